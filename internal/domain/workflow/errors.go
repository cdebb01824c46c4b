package workflow

import "errors"

var (
	// ErrInvalidTransition means the trigger is not configured for the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState means the status is not part of the invoice lifecycle
	ErrInvalidState = errors.New("invalid invoice status")

	// ErrGuardFailed means every guarded target of the trigger was refused
	ErrGuardFailed = errors.New("transition guard refused")
)
