package workflow

// Trigger represents an event that can cause a status transition
type Trigger string

const (
	TriggerExtractOK   Trigger = "EXTRACT_OK"
	TriggerExtractFail Trigger = "EXTRACT_FAIL"
	TriggerRetry       Trigger = "RETRY"
	TriggerEdit        Trigger = "EDIT"
	TriggerValidate    Trigger = "VALIDATE"
	TriggerSubmit      Trigger = "SUBMIT"
	TriggerApprove     Trigger = "APPROVE"
	TriggerReject      Trigger = "REJECT"
	TriggerReopen      Trigger = "REOPEN"
	TriggerExport      Trigger = "EXPORT"
)

// userTriggers are the triggers a user may fire through the API. Extraction
// outcomes are reserved for the processing pipeline.
var userTriggers = map[Trigger]bool{
	TriggerRetry:    true,
	TriggerValidate: true,
	TriggerSubmit:   true,
	TriggerApprove:  true,
	TriggerReject:   true,
	TriggerReopen:   true,
	TriggerExport:   true,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsUserTrigger reports whether t may be fired directly by a user
func (t Trigger) IsUserTrigger() bool {
	return userTriggers[t]
}
