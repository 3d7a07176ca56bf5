package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseCreated Type = "expense.created"
	TypeExpenseUpdated Type = "expense.updated"
	TypeExpenseDeleted Type = "expense.deleted"
	TypeBudgetExceeded Type = "budget.threshold_crossed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseCreated,
		TypeExpenseUpdated,
		TypeExpenseDeleted,
		TypeBudgetExceeded:
		return true
	default:
		return false
	}
}
