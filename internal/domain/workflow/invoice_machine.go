package workflow

import (
	"context"
	"fmt"
)

type confidenceKey struct{}

// DefaultAutoValidateThreshold is the extraction confidence at or above which
// an extracted invoice skips the draft state.
const DefaultAutoValidateThreshold = 90

// WithConfidence attaches an extraction confidence score to ctx for the
// EXTRACT_OK guards.
func WithConfidence(ctx context.Context, confidence int) context.Context {
	return context.WithValue(ctx, confidenceKey{}, confidence)
}

func confidenceFrom(ctx context.Context) (int, bool) {
	c, ok := ctx.Value(confidenceKey{}).(int)
	return c, ok
}

// InvoiceWorkflow builds state machines for invoice records
type InvoiceWorkflow struct {
	builder StateMachineBuilder
}

// NewInvoiceWorkflow configures the invoice lifecycle. Extracted invoices
// whose confidence reaches autoValidateThreshold go straight to validated.
// A threshold <= 0 or > 100 disables auto validation.
func NewInvoiceWorkflow(autoValidateThreshold int) *InvoiceWorkflow {
	autoValidate := func(ctx context.Context) bool {
		if autoValidateThreshold <= 0 || autoValidateThreshold > 100 {
			return false
		}
		c, ok := confidenceFrom(ctx)
		return ok && c >= autoValidateThreshold
	}

	b := NewBuilder()

	b.Configure(StateProcessing).
		PermitIf(TriggerExtractOK, StateValidated, autoValidate).
		Permit(TriggerExtractOK, StateDraft).
		Permit(TriggerExtractFail, StateError)

	b.Configure(StateError).
		Permit(TriggerRetry, StateProcessing)

	b.Configure(StateDraft).
		Permit(TriggerEdit, StateDraft).
		Permit(TriggerValidate, StateValidated)

	b.Configure(StateValidated).
		Permit(TriggerEdit, StateDraft).
		Permit(TriggerSubmit, StatePendingApproval).
		Permit(TriggerExport, StateExported)

	b.Configure(StatePendingApproval).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateApproved).
		Permit(TriggerExport, StateExported)

	b.Configure(StateRejected).
		Permit(TriggerReopen, StateDraft)

	return &InvoiceWorkflow{builder: b}
}

// Machine returns a state machine positioned at status
func (w *InvoiceWorkflow) Machine(status string) (StateMachine, error) {
	state := State(status)
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, status)
	}
	return w.builder.Build(state), nil
}

// UserActions lists the user triggers configured for status, sorted by
// name. Terminal and unknown statuses have none.
func (w *InvoiceWorkflow) UserActions(status string) []Trigger {
	actions := []Trigger{}
	m, err := w.Machine(status)
	if err != nil || m.State().IsTerminal() {
		return actions
	}
	for _, t := range m.PermittedTriggers() {
		if t.IsUserTrigger() {
			actions = append(actions, t)
		}
	}
	return actions
}

// Next computes the status reached by firing trigger from status
func (w *InvoiceWorkflow) Next(ctx context.Context, status string, trigger Trigger) (string, error) {
	m, err := w.Machine(status)
	if err != nil {
		return "", err
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return "", err
	}
	return m.State().String(), nil
}
