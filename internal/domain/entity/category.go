package entity

import "time"

// Category groups expenses for budgeting purposes.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BudgetLimit is a time-boxed spending cap on a category. EndDate is derived
// from StartDate and Period (last day of the window). Among active limits of
// the same category and period type, no two windows may overlap.
type BudgetLimit struct {
	ID                    int64        `json:"id"`
	CategoryID            int64        `json:"category_id"`
	Amount                float64      `json:"amount"`
	Period                BudgetPeriod `json:"period"`
	StartDate             time.Time    `json:"start_date"`
	EndDate               time.Time    `json:"end_date"`
	IsActive              bool         `json:"is_active"`
	NotificationThreshold int          `json:"notification_threshold"` // percent, 1-100
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// Overlaps reports whether two date ranges intersect (inclusive bounds).
func (l *BudgetLimit) Overlaps(other *BudgetLimit) bool {
	return !l.StartDate.After(other.EndDate) && !l.EndDate.Before(other.StartDate)
}

// CategoryUsage is the cached usage snapshot on a category. It is a read
// optimization only; correctness always recomputes from source expenses.
type CategoryUsage struct {
	CategoryID      int64     `json:"category_id"`
	MonthlyAmount   float64   `json:"monthly_amount"`
	QuarterlyAmount float64   `json:"quarterly_amount"`
	YearlyAmount    float64   `json:"yearly_amount"`
	ComputedAt      time.Time `json:"computed_at"`
}

// BudgetAlert is the evaluation of one active limit against current usage.
type BudgetAlert struct {
	LimitID      int64        `json:"limit_id"`
	CategoryID   int64        `json:"category_id"`
	Period       BudgetPeriod `json:"period"`
	LimitAmount  float64      `json:"limit_amount"`
	Usage        float64      `json:"usage"`
	UsagePercent float64      `json:"usage_percent"`
	Threshold    int          `json:"threshold"`
	Status       AlertStatus  `json:"status"`
	WindowStart  time.Time    `json:"window_start"`
	WindowEnd    time.Time    `json:"window_end"`
}
