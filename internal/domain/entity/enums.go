package entity

import "time"

// ReportStatus is the lifecycle status of a monthly report.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "DRAFT"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusApproved  ReportStatus = "APPROVED"
	ReportStatusRejected  ReportStatus = "REJECTED"
)

var validReportStatuses = map[ReportStatus]bool{
	ReportStatusDraft:     true,
	ReportStatusSubmitted: true,
	ReportStatusApproved:  true,
	ReportStatusRejected:  true,
}

// IsValid returns true if the status is one of the defined constants
func (s ReportStatus) IsValid() bool {
	return validReportStatuses[s]
}

// IsFinalized returns true for statuses that must be demoted to draft
// before the underlying expense set may change silently
func (s ReportStatus) IsFinalized() bool {
	return s == ReportStatusSubmitted || s == ReportStatusApproved
}

// String returns the string representation of the status
func (s ReportStatus) String() string {
	return string(s)
}

// BudgetPeriod is the window length of a budget limit.
type BudgetPeriod string

const (
	BudgetPeriodMonthly   BudgetPeriod = "MONTHLY"
	BudgetPeriodQuarterly BudgetPeriod = "QUARTERLY"
	BudgetPeriodYearly    BudgetPeriod = "YEARLY"
)

var validBudgetPeriods = map[BudgetPeriod]bool{
	BudgetPeriodMonthly:   true,
	BudgetPeriodQuarterly: true,
	BudgetPeriodYearly:    true,
}

// IsValid returns true if the period is one of the defined constants
func (p BudgetPeriod) IsValid() bool {
	return validBudgetPeriods[p]
}

// String returns the string representation of the period
func (p BudgetPeriod) String() string {
	return string(p)
}

// Months returns the window length in months
func (p BudgetPeriod) Months() int {
	switch p {
	case BudgetPeriodQuarterly:
		return 3
	case BudgetPeriodYearly:
		return 12
	default:
		return 1
	}
}

// WindowEnd returns the last day of the period window starting at start.
func (p BudgetPeriod) WindowEnd(start time.Time) time.Time {
	return start.AddDate(0, p.Months(), -1)
}

// AlertStatus classifies budget usage against a limit.
type AlertStatus string

const (
	AlertStatusNormal   AlertStatus = "NORMAL"
	AlertStatusWarning  AlertStatus = "WARNING"
	AlertStatusExceeded AlertStatus = "EXCEEDED"
)

// String returns the string representation of the alert status
func (s AlertStatus) String() string {
	return string(s)
}

// QuarterMonths returns the three months covered by a quarter (1-4).
func QuarterMonths(quarter int) [3]int {
	first := (quarter-1)*3 + 1
	return [3]int{first, first + 1, first + 2}
}
