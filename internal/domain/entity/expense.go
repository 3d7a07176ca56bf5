package entity

import (
	"math"
	"time"
)

// Expense status constants
const (
	ExpenseStatusPending    = "PENDING"
	ExpenseStatusReimbursed = "REIMBURSED"
)

// Expense represents a single recorded journey of a field sales user.
// TotalCost is always derived from Distance and Rate; it is never set
// independently.
type Expense struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	CategoryID  int64     `json:"category_id"`
	ReportID    int64     `json:"report_id"`
	Distance    float64   `json:"distance"` // kilometres
	Rate        float64   `json:"rate"`     // currency per kilometre
	TotalCost   float64   `json:"total_cost"`
	JourneyDate time.Time `json:"journey_date"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecomputeTotalCost refreshes TotalCost from Distance and Rate,
// rounded to the cent.
func (e *Expense) RecomputeTotalCost() {
	e.TotalCost = RoundCents(e.Distance * e.Rate)
}

// Period returns the (month, year) the expense belongs to.
func (e *Expense) Period() (month, year int) {
	return int(e.JourneyDate.Month()), e.JourneyDate.Year()
}

// RoundCents rounds a currency amount to two decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
