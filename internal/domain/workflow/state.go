package workflow

import "github.com/garyjia/invoice-insights/internal/domain/entity"

// State represents an invoice status in the review lifecycle
type State string

const (
	StateProcessing      State = entity.StatusProcessing
	StateDraft           State = entity.StatusDraft
	StateValidated       State = entity.StatusValidated
	StatePendingApproval State = entity.StatusPendingApproval
	StateApproved        State = entity.StatusApproved
	StateRejected        State = entity.StatusRejected
	StateExported        State = entity.StatusExported
	StateError           State = entity.StatusError
)

var terminalStates = map[State]bool{
	StateExported: true,
}

// IsTerminal returns true if no trigger leaves the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid invoice status
func (s State) IsValid() bool {
	return entity.IsValidStatus(string(s))
}
