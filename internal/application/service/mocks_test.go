package service

import (
	"context"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/domain/entity"
)

// Mock repositories

type mockExpenseRepo struct {
	createFunc          func(ctx context.Context, expense *entity.Expense) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Expense, error)
	updateFunc          func(ctx context.Context, expense *entity.Expense) error
	deleteFunc          func(ctx context.Context, id int64) error
	listByReportIDFunc  func(ctx context.Context, reportID int64) ([]*entity.Expense, error)
	countByReportIDFunc func(ctx context.Context, reportID int64) (int64, error)
	sumCostFunc         func(ctx context.Context, categoryID int64, start, end time.Time) (float64, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	expense.ID = 1
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Expense{
		ID:          id,
		OwnerID:     "user-1",
		CategoryID:  1,
		ReportID:    1,
		Distance:    100,
		Rate:        0.5,
		TotalCost:   50,
		JourneyDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:      entity.ExpenseStatusPending,
	}, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.Expense) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockExpenseRepo) ListByReportID(ctx context.Context, reportID int64) ([]*entity.Expense, error) {
	if m.listByReportIDFunc != nil {
		return m.listByReportIDFunc(ctx, reportID)
	}
	return []*entity.Expense{}, nil
}

func (m *mockExpenseRepo) CountByReportID(ctx context.Context, reportID int64) (int64, error) {
	if m.countByReportIDFunc != nil {
		return m.countByReportIDFunc(ctx, reportID)
	}
	return 1, nil
}

func (m *mockExpenseRepo) SumCostByCategory(ctx context.Context, categoryID int64, start, end time.Time) (float64, error) {
	if m.sumCostFunc != nil {
		return m.sumCostFunc(ctx, categoryID, start, end)
	}
	return 0, nil
}

type mockReportRepo struct {
	findOrCreateFunc  func(ctx context.Context, ownerID string, month, year int) (*entity.Report, error)
	getByIDFunc       func(ctx context.Context, id int64) (*entity.Report, error)
	getByPeriodFunc   func(ctx context.Context, ownerID string, month, year int) (*entity.Report, error)
	listByPeriodsFunc func(ctx context.Context, ownerID string, year int, months []int) ([]*entity.Report, error)
	applyDeltaFunc    func(ctx context.Context, id int64, distanceDelta, costDelta float64) error
	updateStatusFunc  func(ctx context.Context, report *entity.Report, expectedVersion int64) error
	demoteFunc        func(ctx context.Context, id int64) (bool, error)
	deleteFunc        func(ctx context.Context, id int64) error
	addCommentFunc    func(ctx context.Context, comment *entity.ReportComment) error
	listCommentsFunc  func(ctx context.Context, reportID int64) ([]*entity.ReportComment, error)
}

func (m *mockReportRepo) FindOrCreate(ctx context.Context, ownerID string, month, year int) (*entity.Report, error) {
	if m.findOrCreateFunc != nil {
		return m.findOrCreateFunc(ctx, ownerID, month, year)
	}
	return &entity.Report{
		ID:      1,
		OwnerID: ownerID,
		Month:   month,
		Year:    year,
		Status:  entity.ReportStatusDraft,
		Version: 1,
	}, nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Report{
		ID:      id,
		OwnerID: "user-1",
		Month:   1,
		Year:    2026,
		Status:  entity.ReportStatusDraft,
		Version: 1,
	}, nil
}

func (m *mockReportRepo) GetByPeriod(ctx context.Context, ownerID string, month, year int) (*entity.Report, error) {
	if m.getByPeriodFunc != nil {
		return m.getByPeriodFunc(ctx, ownerID, month, year)
	}
	return nil, apperror.NotFound("no report for %s %d/%d", ownerID, month, year)
}

func (m *mockReportRepo) ListByPeriods(ctx context.Context, ownerID string, year int, months []int) ([]*entity.Report, error) {
	if m.listByPeriodsFunc != nil {
		return m.listByPeriodsFunc(ctx, ownerID, year, months)
	}
	return []*entity.Report{}, nil
}

func (m *mockReportRepo) ApplyDelta(ctx context.Context, id int64, distanceDelta, costDelta float64) error {
	if m.applyDeltaFunc != nil {
		return m.applyDeltaFunc(ctx, id, distanceDelta, costDelta)
	}
	return nil
}

func (m *mockReportRepo) UpdateStatus(ctx context.Context, report *entity.Report, expectedVersion int64) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, report, expectedVersion)
	}
	report.Version = expectedVersion + 1
	return nil
}

func (m *mockReportRepo) Demote(ctx context.Context, id int64) (bool, error) {
	if m.demoteFunc != nil {
		return m.demoteFunc(ctx, id)
	}
	return true, nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockReportRepo) AddComment(ctx context.Context, comment *entity.ReportComment) error {
	if m.addCommentFunc != nil {
		return m.addCommentFunc(ctx, comment)
	}
	return nil
}

func (m *mockReportRepo) ListComments(ctx context.Context, reportID int64) ([]*entity.ReportComment, error) {
	if m.listCommentsFunc != nil {
		return m.listCommentsFunc(ctx, reportID)
	}
	return []*entity.ReportComment{}, nil
}

type mockQuarterlyRepo struct {
	upsertFunc      func(ctx context.Context, report *entity.QuarterlyReport) error
	getByPeriodFunc func(ctx context.Context, ownerID string, quarter, year int) (*entity.QuarterlyReport, error)
}

func (m *mockQuarterlyRepo) Upsert(ctx context.Context, report *entity.QuarterlyReport) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, report)
	}
	report.ID = 1
	return nil
}

func (m *mockQuarterlyRepo) GetByPeriod(ctx context.Context, ownerID string, quarter, year int) (*entity.QuarterlyReport, error) {
	if m.getByPeriodFunc != nil {
		return m.getByPeriodFunc(ctx, ownerID, quarter, year)
	}
	return nil, apperror.NotFound("no quarterly report for %s Q%d %d", ownerID, quarter, year)
}

type mockCategoryRepo struct {
	createFunc      func(ctx context.Context, category *entity.Category) error
	getByIDFunc     func(ctx context.Context, id int64) (*entity.Category, error)
	listFunc        func(ctx context.Context, activeOnly bool) ([]*entity.Category, error)
	updateFunc      func(ctx context.Context, category *entity.Category) error
	upsertUsageFunc func(ctx context.Context, usage *entity.CategoryUsage) error
	getUsageFunc    func(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error)
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, category)
	}
	category.ID = 1
	return nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Category{ID: id, Name: "Fuel", IsActive: true}, nil
}

func (m *mockCategoryRepo) List(ctx context.Context, activeOnly bool) ([]*entity.Category, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, activeOnly)
	}
	return []*entity.Category{}, nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *entity.Category) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepo) UpsertUsage(ctx context.Context, usage *entity.CategoryUsage) error {
	if m.upsertUsageFunc != nil {
		return m.upsertUsageFunc(ctx, usage)
	}
	return nil
}

func (m *mockCategoryRepo) GetUsage(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error) {
	if m.getUsageFunc != nil {
		return m.getUsageFunc(ctx, categoryID)
	}
	return nil, apperror.NotFound("no usage for category %d", categoryID)
}

type mockLimitRepo struct {
	createFunc         func(ctx context.Context, limit *entity.BudgetLimit) error
	getByIDFunc        func(ctx context.Context, categoryID, limitID int64) (*entity.BudgetLimit, error)
	updateFunc         func(ctx context.Context, limit *entity.BudgetLimit) error
	deleteFunc         func(ctx context.Context, categoryID, limitID int64) error
	listByCategoryFunc func(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error)
}

func (m *mockLimitRepo) Create(ctx context.Context, limit *entity.BudgetLimit) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, limit)
	}
	limit.ID = 1
	return nil
}

func (m *mockLimitRepo) GetByID(ctx context.Context, categoryID, limitID int64) (*entity.BudgetLimit, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, categoryID, limitID)
	}
	return nil, apperror.NotFound("limit %d not found", limitID)
}

func (m *mockLimitRepo) Update(ctx context.Context, limit *entity.BudgetLimit) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, limit)
	}
	return nil
}

func (m *mockLimitRepo) Delete(ctx context.Context, categoryID, limitID int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, categoryID, limitID)
	}
	return nil
}

func (m *mockLimitRepo) ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error) {
	if m.listByCategoryFunc != nil {
		return m.listByCategoryFunc(ctx, categoryID, activeOnly)
	}
	return []*entity.BudgetLimit{}, nil
}

// mockTxManager runs the callback directly; the repositories under test are
// in-memory so there is nothing to roll back.
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// Test actors

var (
	actorUser1 = entity.Actor{UserID: "user-1", Role: entity.RoleUser}
	actorUser2 = entity.Actor{UserID: "user-2", Role: entity.RoleUser}
	actorAdmin = entity.Actor{UserID: "admin-1", Role: entity.RoleAdmin}
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
