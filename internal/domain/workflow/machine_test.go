package workflow

import (
	"errors"
	"testing"

	"github.com/triplog/expenses/internal/domain/entity"
)

func TestNewReportMachine(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.ReportStatus
		wantErr bool
	}{
		{"draft", entity.ReportStatusDraft, false},
		{"submitted", entity.ReportStatusSubmitted, false},
		{"approved", entity.ReportStatusApproved, false},
		{"rejected", entity.ReportStatusRejected, false},
		{"unknown status", entity.ReportStatus("ARCHIVED"), true},
		{"empty status", entity.ReportStatus(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewReportMachine(tt.status)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for status %q, got none", tt.status)
				}
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("expected ErrInvalidState, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.status {
				t.Errorf("State() = %s, want %s", m.State(), tt.status)
			}
		})
	}
}

func TestMachine_Fire(t *testing.T) {
	tests := []struct {
		name    string
		from    entity.ReportStatus
		trigger Trigger
		want    entity.ReportStatus
		wantErr bool
	}{
		{"submit draft", entity.ReportStatusDraft, TriggerSubmit, entity.ReportStatusSubmitted, false},
		{"approve submitted", entity.ReportStatusSubmitted, TriggerApprove, entity.ReportStatusApproved, false},
		{"reject submitted", entity.ReportStatusSubmitted, TriggerReject, entity.ReportStatusRejected, false},
		{"reopen submitted", entity.ReportStatusSubmitted, TriggerReopen, entity.ReportStatusDraft, false},
		{"reopen approved", entity.ReportStatusApproved, TriggerReopen, entity.ReportStatusDraft, false},
		{"approve draft", entity.ReportStatusDraft, TriggerApprove, "", true},
		{"reject draft", entity.ReportStatusDraft, TriggerReject, "", true},
		{"reopen draft", entity.ReportStatusDraft, TriggerReopen, "", true},
		{"submit submitted", entity.ReportStatusSubmitted, TriggerSubmit, "", true},
		{"re-approve approved", entity.ReportStatusApproved, TriggerApprove, "", true},
		{"submit approved", entity.ReportStatusApproved, TriggerSubmit, "", true},
		{"submit rejected", entity.ReportStatusRejected, TriggerSubmit, "", true},
		{"approve rejected", entity.ReportStatusRejected, TriggerApprove, "", true},
		{"reopen rejected", entity.ReportStatusRejected, TriggerReopen, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewReportMachine(tt.from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = m.Fire(tt.trigger)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error firing %s from %s, got none", tt.trigger, tt.from)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if m.State() != tt.from {
					t.Errorf("state changed on failed transition: %s", m.State())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.want {
				t.Errorf("State() = %s, want %s", m.State(), tt.want)
			}
		})
	}
}

func TestMachine_CanFire(t *testing.T) {
	m, err := NewReportMachine(entity.ReportStatusSubmitted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !m.CanFire(TriggerApprove) {
		t.Error("expected CanFire(APPROVE) from SUBMITTED")
	}
	if m.CanFire(TriggerSubmit) {
		t.Error("did not expect CanFire(SUBMIT) from SUBMITTED")
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	tests := []struct {
		status entity.ReportStatus
		want   []Trigger
	}{
		{entity.ReportStatusDraft, []Trigger{TriggerSubmit}},
		{entity.ReportStatusSubmitted, []Trigger{TriggerApprove, TriggerReject, TriggerReopen}},
		{entity.ReportStatusApproved, []Trigger{TriggerReopen}},
		{entity.ReportStatusRejected, []Trigger{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m, err := NewReportMachine(tt.status)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := m.PermittedTriggers()
			if len(got) != len(tt.want) {
				t.Fatalf("PermittedTriggers() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("PermittedTriggers()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMachine_FullLifecycle(t *testing.T) {
	m, err := NewReportMachine(entity.ReportStatusDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := []struct {
		trigger Trigger
		want    entity.ReportStatus
	}{
		{TriggerSubmit, entity.ReportStatusSubmitted},
		{TriggerApprove, entity.ReportStatusApproved},
		{TriggerReopen, entity.ReportStatusDraft},
		{TriggerSubmit, entity.ReportStatusSubmitted},
		{TriggerReject, entity.ReportStatusRejected},
	}

	for _, step := range steps {
		if err := m.Fire(step.trigger); err != nil {
			t.Fatalf("Fire(%s) from %s: %v", step.trigger, m.State(), err)
		}
		if m.State() != step.want {
			t.Fatalf("after %s: State() = %s, want %s", step.trigger, m.State(), step.want)
		}
	}
}
