package workflow

// Trigger represents an event that can cause a report status transition
type Trigger string

const (
	// TriggerSubmit moves a draft report into review (owner action)
	TriggerSubmit Trigger = "SUBMIT"

	// TriggerApprove finalizes a submitted report (admin action)
	TriggerApprove Trigger = "APPROVE"

	// TriggerReject declines a submitted report (admin action)
	TriggerReject Trigger = "REJECT"

	// TriggerReopen demotes a finalized report back to draft. Fired only by
	// the expense mutation coordinator when membership or totals change.
	TriggerReopen Trigger = "REOPEN"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
