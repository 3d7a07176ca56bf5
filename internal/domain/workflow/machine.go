package workflow

import (
	"fmt"
	"sort"

	"github.com/triplog/expenses/internal/domain/entity"
)

// reportTransitions is the exhaustive transition table for the report
// lifecycle:
//
//	DRAFT     --SUBMIT-->  SUBMITTED
//	SUBMITTED --APPROVE--> APPROVED
//	SUBMITTED --REJECT-->  REJECTED
//	SUBMITTED --REOPEN-->  DRAFT
//	APPROVED  --REOPEN-->  DRAFT
//
// REJECTED has no outgoing transitions. Role and field guards (ownership,
// reimbursement bounds, comment presence) are enforced by the report
// service, not here.
var reportTransitions = map[entity.ReportStatus]map[Trigger]entity.ReportStatus{
	entity.ReportStatusDraft: {
		TriggerSubmit: entity.ReportStatusSubmitted,
	},
	entity.ReportStatusSubmitted: {
		TriggerApprove: entity.ReportStatusApproved,
		TriggerReject:  entity.ReportStatusRejected,
		TriggerReopen:  entity.ReportStatusDraft,
	},
	entity.ReportStatusApproved: {
		TriggerReopen: entity.ReportStatusDraft,
	},
	entity.ReportStatusRejected: {},
}

// Machine tracks the status of one report and validates transitions
// against the table above.
type Machine struct {
	current entity.ReportStatus
}

// NewReportMachine creates a machine positioned at the given status.
func NewReportMachine(current entity.ReportStatus) (*Machine, error) {
	if !current.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, current)
	}
	return &Machine{current: current}, nil
}

// State returns the current status
func (m *Machine) State() entity.ReportStatus {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current status
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := reportTransitions[m.current][trigger]
	return ok
}

// Fire executes the trigger, moving to the new status if the transition is
// permitted. Disallowed transitions fail, never silently no-op.
func (m *Machine) Fire(trigger Trigger) error {
	next, ok := reportTransitions[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot %s a %s report", ErrInvalidTransition, trigger, m.current)
	}
	m.current = next
	return nil
}

// PermittedTriggers returns the triggers that can fire in the current
// status, in stable order.
func (m *Machine) PermittedTriggers() []Trigger {
	transitions := reportTransitions[m.current]
	triggers := make([]Trigger, 0, len(transitions))
	for trigger := range transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
