package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateProcessing, false},
		{StateDraft, false},
		{StateValidated, false},
		{StatePendingApproval, false},
		{StateApproved, false},
		{StateRejected, false},
		{StateError, false},
		{StateExported, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"draft", StateDraft, true},
		{"exported", StateExported, true},
		{"legacy value", State("processed"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_IsUserTrigger(t *testing.T) {
	if TriggerExtractOK.IsUserTrigger() {
		t.Error("EXTRACT_OK must not be a user trigger")
	}
	if TriggerExtractFail.IsUserTrigger() {
		t.Error("EXTRACT_FAIL must not be a user trigger")
	}
	if !TriggerApprove.IsUserTrigger() {
		t.Error("APPROVE should be a user trigger")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildIsolatedFromLaterConfiguration(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(TriggerValidate, StateValidated)

	machine := builder.Build(StateDraft)
	builder.Configure(StateDraft).Permit(TriggerSubmit, StatePendingApproval)

	err := machine.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("machine should not see transitions added after Build(), Fire() error = %v", err)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerValidate, StateValidated, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerValidate)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	wf := NewInvoiceWorkflow(DefaultAutoValidateThreshold)
	m, err := wf.Machine(string(StateValidated))
	if err != nil {
		t.Fatalf("Machine() failed: %v", err)
	}

	got := m.PermittedTriggers()
	want := []Trigger{TriggerEdit, TriggerExport, TriggerSubmit}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInvoiceWorkflow_UserActions(t *testing.T) {
	wf := NewInvoiceWorkflow(DefaultAutoValidateThreshold)

	tests := []struct {
		status string
		want   []Trigger
	}{
		{"processing", []Trigger{}},
		{"error", []Trigger{TriggerRetry}},
		{"draft", []Trigger{TriggerValidate}},
		{"validated", []Trigger{TriggerExport, TriggerSubmit}},
		{"pending_approval", []Trigger{TriggerApprove, TriggerReject}},
		{"approved", []Trigger{TriggerExport}},
		{"rejected", []Trigger{TriggerReopen}},
		{"exported", []Trigger{}},
		{"bogus", []Trigger{}},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := wf.UserActions(tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("UserActions(%q) = %v, want %v", tt.status, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("UserActions(%q)[%d] = %v, want %v", tt.status, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInvoiceWorkflow_Transitions(t *testing.T) {
	wf := NewInvoiceWorkflow(DefaultAutoValidateThreshold)

	tests := []struct {
		name       string
		from       State
		trigger    Trigger
		confidence int
		want       State
		wantErr    error
	}{
		{"high confidence extraction validates", StateProcessing, TriggerExtractOK, 95, StateValidated, nil},
		{"threshold is inclusive", StateProcessing, TriggerExtractOK, 90, StateValidated, nil},
		{"low confidence extraction drafts", StateProcessing, TriggerExtractOK, 60, StateDraft, nil},
		{"extraction failure", StateProcessing, TriggerExtractFail, 0, StateError, nil},
		{"retry", StateError, TriggerRetry, 0, StateProcessing, nil},
		{"validate draft", StateDraft, TriggerValidate, 0, StateValidated, nil},
		{"edit validated returns to draft", StateValidated, TriggerEdit, 0, StateDraft, nil},
		{"submit", StateValidated, TriggerSubmit, 0, StatePendingApproval, nil},
		{"approve", StatePendingApproval, TriggerApprove, 0, StateApproved, nil},
		{"reject", StatePendingApproval, TriggerReject, 0, StateRejected, nil},
		{"reopen", StateRejected, TriggerReopen, 0, StateDraft, nil},
		{"export approved", StateApproved, TriggerExport, 0, StateExported, nil},
		{"export validated", StateValidated, TriggerExport, 0, StateExported, nil},
		{"cannot approve draft", StateDraft, TriggerApprove, 0, "", ErrInvalidTransition},
		{"exported is terminal", StateExported, TriggerEdit, 0, "", ErrInvalidTransition},
		{"cannot export draft", StateDraft, TriggerExport, 0, "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithConfidence(context.Background(), tt.confidence)
			got, err := wf.Next(ctx, string(tt.from), tt.trigger)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() failed: %v", err)
			}
			if got != string(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoiceWorkflow_NoConfidenceDrafts(t *testing.T) {
	wf := NewInvoiceWorkflow(DefaultAutoValidateThreshold)

	got, err := wf.Next(context.Background(), string(StateProcessing), TriggerExtractOK)
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if got != string(StateDraft) {
		t.Errorf("Next() = %v, want %v", got, StateDraft)
	}
}

func TestInvoiceWorkflow_AutoValidateDisabled(t *testing.T) {
	wf := NewInvoiceWorkflow(0)

	got, err := wf.Next(WithConfidence(context.Background(), 100), string(StateProcessing), TriggerExtractOK)
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if got != string(StateDraft) {
		t.Errorf("Next() = %v, want %v", got, StateDraft)
	}
}

func TestInvoiceWorkflow_InvalidStatus(t *testing.T) {
	wf := NewInvoiceWorkflow(DefaultAutoValidateThreshold)

	if _, err := wf.Next(context.Background(), "processed", TriggerValidate); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Next() error = %v, want %v", err, ErrInvalidState)
	}
}
