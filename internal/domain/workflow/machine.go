package workflow

import "context"

// StateMachine tracks the status of a single invoice record
type StateMachine interface {
	State() State

	// Fire moves to the first target whose guard passes. The state is left
	// unchanged on error.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists the triggers configured for the current
	// state, sorted by name. Guards are not evaluated.
	PermittedTriggers() []Trigger
}
