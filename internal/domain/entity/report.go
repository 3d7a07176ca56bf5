package entity

import "time"

// Report is the denormalized per-(owner, month, year) rollup of expenses.
// Invariant: TotalDistance and TotalExpenseAmount always equal the sums over
// the expenses currently referencing this report. The Version column backs
// optimistic concurrency on status writes.
type Report struct {
	ID                 int64        `json:"id"`
	OwnerID            string       `json:"owner_id"`
	Month              int          `json:"month"` // 1-12
	Year               int          `json:"year"`
	TotalDistance      float64      `json:"total_distance"`
	TotalExpenseAmount float64      `json:"total_expense_amount"`
	ReimbursedAmount   float64      `json:"reimbursed_amount"`
	PendingAmount      float64      `json:"pending_amount"`
	Status             ReportStatus `json:"status"`
	SubmittedAt        *time.Time   `json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time   `json:"approved_at,omitempty"`
	RejectedAt         *time.Time   `json:"rejected_at,omitempty"`
	Version            int64        `json:"version"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// ReportComment is an audit-trail entry on a report (rejections,
// automatic demotions).
type ReportComment struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// QuarterlyReport is a point-in-time snapshot combining a quarter's monthly
// reports. It is never re-synchronized with later edits to the source
// months; regenerating the same (owner, quarter, year) replaces it.
type QuarterlyReport struct {
	ID                 int64        `json:"id"`
	OwnerID            string       `json:"owner_id"`
	Quarter            int          `json:"quarter"` // 1-4
	Year               int          `json:"year"`
	TotalDistance      float64      `json:"total_distance"`
	TotalExpenseAmount float64      `json:"total_expense_amount"`
	ReimbursedAmount   float64      `json:"reimbursed_amount"`
	PendingAmount      float64      `json:"pending_amount"`
	Status             ReportStatus `json:"status"`
	ExpenseIDs         []int64      `json:"expense_ids"`
	GeneratedAt        time.Time    `json:"generated_at"`
}
