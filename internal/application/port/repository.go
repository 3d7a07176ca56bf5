package port

import (
	"context"
	"time"

	"github.com/triplog/expenses/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	Delete(ctx context.Context, id int64) error
	ListByReportID(ctx context.Context, reportID int64) ([]*entity.Expense, error)
	CountByReportID(ctx context.Context, reportID int64) (int64, error)

	// SumCostByCategory sums total_cost over the category's expenses with a
	// journey date inside [start, end], inclusive. Always recomputed from
	// source rows; the usage cache is never consulted.
	SumCostByCategory(ctx context.Context, categoryID int64, start, end time.Time) (float64, error)
}

// ReportRepository defines persistence operations for the monthly Report
// aggregate. Totals are only ever changed through ApplyDelta so that
// concurrent mutations cannot lose updates.
type ReportRepository interface {
	// FindOrCreate returns the report for (owner, month, year), creating an
	// empty draft if none exists. Safe under concurrent first-expense
	// creation: the (owner, month, year) key is unique at the store.
	FindOrCreate(ctx context.Context, ownerID string, month, year int) (*entity.Report, error)

	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	GetByPeriod(ctx context.Context, ownerID string, month, year int) (*entity.Report, error)
	ListByPeriods(ctx context.Context, ownerID string, year int, months []int) ([]*entity.Report, error)

	// ApplyDelta atomically increments totals and bumps the version.
	ApplyDelta(ctx context.Context, id int64, distanceDelta, costDelta float64) error

	// UpdateStatus writes status, workflow timestamps and reimbursement
	// fields, guarded by the expected version. Returns a conflict error if
	// the row changed underneath the caller.
	UpdateStatus(ctx context.Context, report *entity.Report, expectedVersion int64) error

	// Demote reverts a SUBMITTED or APPROVED report to DRAFT, clearing the
	// reimbursement fields. Returns false if the report was not finalized.
	Demote(ctx context.Context, id int64) (bool, error)

	Delete(ctx context.Context, id int64) error

	AddComment(ctx context.Context, comment *entity.ReportComment) error
	ListComments(ctx context.Context, reportID int64) ([]*entity.ReportComment, error)
}

// QuarterlyReportRepository defines persistence operations for quarterly
// snapshots
type QuarterlyReportRepository interface {
	// Upsert persists the snapshot, replacing a previous snapshot for the
	// same (owner, quarter, year).
	Upsert(ctx context.Context, report *entity.QuarterlyReport) error
	GetByPeriod(ctx context.Context, ownerID string, quarter, year int) (*entity.QuarterlyReport, error)
}

// CategoryRepository defines persistence operations for Category and its
// cached usage snapshot
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error

	UpsertUsage(ctx context.Context, usage *entity.CategoryUsage) error
	GetUsage(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error)
}

// BudgetLimitRepository defines persistence operations for BudgetLimit
type BudgetLimitRepository interface {
	Create(ctx context.Context, limit *entity.BudgetLimit) error
	GetByID(ctx context.Context, categoryID, limitID int64) (*entity.BudgetLimit, error)
	Update(ctx context.Context, limit *entity.BudgetLimit) error
	Delete(ctx context.Context, categoryID, limitID int64) error
	ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error)
}

// TransactionManager provides transaction management across repositories
type TransactionManager interface {
	// WithTransaction executes fn within a transaction. The transaction is
	// carried in the context; nested calls reuse it.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
