package service

import (
	"context"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
)

const defaultNotificationThreshold = 80

// CreateCategoryInput carries the fields for a new category
type CreateCategoryInput struct {
	Name        string
	Description string
}

// LimitInput carries the fields for creating or updating a budget limit.
// The window end is always derived from StartDate and Period.
type LimitInput struct {
	Amount                float64
	Period                entity.BudgetPeriod
	StartDate             time.Time
	NotificationThreshold *int
}

// BudgetService manages categories, their spending limits and alert
// evaluation
type BudgetService interface {
	CreateCategory(ctx context.Context, actor entity.Actor, input CreateCategoryInput) (*entity.Category, error)
	GetCategory(ctx context.Context, id int64) (*entity.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*entity.Category, error)
	UpdateCategory(ctx context.Context, actor entity.Actor, category *entity.Category) error

	AddLimit(ctx context.Context, actor entity.Actor, categoryID int64, input LimitInput) (*entity.BudgetLimit, error)
	UpdateLimit(ctx context.Context, actor entity.Actor, categoryID, limitID int64, input LimitInput) (*entity.BudgetLimit, error)
	DeleteLimit(ctx context.Context, actor entity.Actor, categoryID, limitID int64) error
	ListLimits(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error)

	// Usage sums expense costs for the category with journey dates inside
	// [start, end], inclusive. Recomputed from source rows on every call.
	Usage(ctx context.Context, categoryID int64, start, end time.Time) (float64, error)

	// EvaluateAlerts classifies each active limit of the category against
	// usage over the limit's own window.
	EvaluateAlerts(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error)

	// ActiveAlerts returns only the warning and exceeded alerts.
	ActiveAlerts(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error)

	// RefreshUsage recomputes the category's cached usage snapshot for the
	// monthly, quarterly and yearly windows containing now.
	RefreshUsage(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error)
}

type budgetServiceImpl struct {
	categoryRepo port.CategoryRepository
	limitRepo    port.BudgetLimitRepository
	expenseRepo  port.ExpenseRepository
	logger       Logger
	now          func() time.Time
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	categoryRepo port.CategoryRepository,
	limitRepo port.BudgetLimitRepository,
	expenseRepo port.ExpenseRepository,
	logger Logger,
) BudgetService {
	return &budgetServiceImpl{
		categoryRepo: categoryRepo,
		limitRepo:    limitRepo,
		expenseRepo:  expenseRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateCategory creates a new active category. Admin only.
func (s *budgetServiceImpl) CreateCategory(ctx context.Context, actor entity.Actor, input CreateCategoryInput) (*entity.Category, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("only admins may manage categories")
	}
	if input.Name == "" {
		return nil, apperror.Validation("category name is required")
	}

	category := &entity.Category{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created", "id", category.ID, "name", category.Name)
	return category, nil
}

// GetCategory retrieves a category
func (s *budgetServiceImpl) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// ListCategories lists categories
func (s *budgetServiceImpl) ListCategories(ctx context.Context, activeOnly bool) ([]*entity.Category, error) {
	return s.categoryRepo.List(ctx, activeOnly)
}

// UpdateCategory updates a category. Admin only.
func (s *budgetServiceImpl) UpdateCategory(ctx context.Context, actor entity.Actor, category *entity.Category) error {
	if !actor.IsAdmin() {
		return apperror.Authorization("only admins may manage categories")
	}
	if category.Name == "" {
		return apperror.Validation("category name is required")
	}
	return s.categoryRepo.Update(ctx, category)
}

// AddLimit creates a budget limit on a category. Admin only.
func (s *budgetServiceImpl) AddLimit(ctx context.Context, actor entity.Actor, categoryID int64, input LimitInput) (*entity.BudgetLimit, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("only admins may manage budget limits")
	}
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}

	limit, err := s.buildLimit(categoryID, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, limit, 0); err != nil {
		return nil, err
	}

	if err := s.limitRepo.Create(ctx, limit); err != nil {
		return nil, err
	}

	s.logger.Info("Budget limit created",
		"id", limit.ID,
		"category_id", categoryID,
		"period", limit.Period,
		"amount", limit.Amount,
	)
	return limit, nil
}

// UpdateLimit replaces the fields of an existing limit. Admin only.
func (s *budgetServiceImpl) UpdateLimit(ctx context.Context, actor entity.Actor, categoryID, limitID int64, input LimitInput) (*entity.BudgetLimit, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("only admins may manage budget limits")
	}
	existing, err := s.limitRepo.GetByID(ctx, categoryID, limitID)
	if err != nil {
		return nil, err
	}

	limit, err := s.buildLimit(categoryID, input)
	if err != nil {
		return nil, err
	}
	limit.ID = existing.ID
	limit.IsActive = existing.IsActive
	limit.CreatedAt = existing.CreatedAt

	if err := s.checkOverlap(ctx, limit, limit.ID); err != nil {
		return nil, err
	}
	if err := s.limitRepo.Update(ctx, limit); err != nil {
		return nil, err
	}

	s.logger.Info("Budget limit updated", "id", limitID, "category_id", categoryID)
	return limit, nil
}

// DeleteLimit removes a limit. Admin only.
func (s *budgetServiceImpl) DeleteLimit(ctx context.Context, actor entity.Actor, categoryID, limitID int64) error {
	if !actor.IsAdmin() {
		return apperror.Authorization("only admins may manage budget limits")
	}
	if err := s.limitRepo.Delete(ctx, categoryID, limitID); err != nil {
		return err
	}
	s.logger.Info("Budget limit deleted", "id", limitID, "category_id", categoryID)
	return nil
}

// ListLimits lists a category's limits
func (s *budgetServiceImpl) ListLimits(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error) {
	return s.limitRepo.ListByCategory(ctx, categoryID, activeOnly)
}

// Usage sums expense costs over an explicit window
func (s *budgetServiceImpl) Usage(ctx context.Context, categoryID int64, start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, apperror.Validation("window end precedes window start")
	}
	return s.expenseRepo.SumCostByCategory(ctx, categoryID, start, end)
}

// EvaluateAlerts classifies every active limit against its window's usage
func (s *budgetServiceImpl) EvaluateAlerts(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error) {
	limits, err := s.limitRepo.ListByCategory(ctx, categoryID, true)
	if err != nil {
		return nil, err
	}

	alerts := make([]*entity.BudgetAlert, 0, len(limits))
	for _, limit := range limits {
		usage, err := s.expenseRepo.SumCostByCategory(ctx, categoryID, limit.StartDate, limit.EndDate)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, evaluateLimit(limit, usage))
	}
	return alerts, nil
}

// ActiveAlerts returns warning and exceeded alerts only
func (s *budgetServiceImpl) ActiveAlerts(ctx context.Context, categoryID int64) ([]*entity.BudgetAlert, error) {
	alerts, err := s.EvaluateAlerts(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	active := make([]*entity.BudgetAlert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.Status != entity.AlertStatusNormal {
			active = append(active, alert)
		}
	}
	return active, nil
}

// RefreshUsage recomputes the cached usage snapshot for the windows
// containing now
func (s *budgetServiceImpl) RefreshUsage(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error) {
	now := s.now()

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	quarter := (int(now.Month())-1)/3 + 1
	quarterStart := time.Date(now.Year(), time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	monthly, err := s.expenseRepo.SumCostByCategory(ctx, categoryID, monthStart, entity.BudgetPeriodMonthly.WindowEnd(monthStart))
	if err != nil {
		return nil, err
	}
	quarterly, err := s.expenseRepo.SumCostByCategory(ctx, categoryID, quarterStart, entity.BudgetPeriodQuarterly.WindowEnd(quarterStart))
	if err != nil {
		return nil, err
	}
	yearly, err := s.expenseRepo.SumCostByCategory(ctx, categoryID, yearStart, entity.BudgetPeriodYearly.WindowEnd(yearStart))
	if err != nil {
		return nil, err
	}

	usage := &entity.CategoryUsage{
		CategoryID:      categoryID,
		MonthlyAmount:   monthly,
		QuarterlyAmount: quarterly,
		YearlyAmount:    yearly,
		ComputedAt:      now,
	}
	if err := s.categoryRepo.UpsertUsage(ctx, usage); err != nil {
		return nil, err
	}
	return usage, nil
}

// buildLimit validates the input and derives the window end
func (s *budgetServiceImpl) buildLimit(categoryID int64, input LimitInput) (*entity.BudgetLimit, error) {
	if input.Amount <= 0 {
		return nil, apperror.Validation("limit amount must be positive")
	}
	if !input.Period.IsValid() {
		return nil, apperror.Validation("invalid budget period: %s", input.Period)
	}
	if input.StartDate.IsZero() {
		return nil, apperror.Validation("start date is required")
	}

	threshold := defaultNotificationThreshold
	if input.NotificationThreshold != nil {
		threshold = *input.NotificationThreshold
		if threshold < 1 || threshold > 100 {
			return nil, apperror.Validation("notification threshold must be between 1 and 100, got %d", threshold)
		}
	}

	start := input.StartDate
	return &entity.BudgetLimit{
		CategoryID:            categoryID,
		Amount:                input.Amount,
		Period:                input.Period,
		StartDate:             start,
		EndDate:               input.Period.WindowEnd(start),
		IsActive:              true,
		NotificationThreshold: threshold,
	}, nil
}

// checkOverlap rejects a limit whose window intersects another active limit
// of the same category and period type. The storage layer enforces the same
// rule, but checking here produces a clearer error before the write.
func (s *budgetServiceImpl) checkOverlap(ctx context.Context, limit *entity.BudgetLimit, excludeID int64) error {
	existing, err := s.limitRepo.ListByCategory(ctx, limit.CategoryID, true)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID || other.Period != limit.Period {
			continue
		}
		if limit.Overlaps(other) {
			return apperror.Conflict(
				"%s window %s to %s overlaps existing limit %d (%s to %s)",
				limit.Period,
				limit.StartDate.Format("2006-01-02"), limit.EndDate.Format("2006-01-02"),
				other.ID,
				other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02"),
			)
		}
	}
	return nil
}

// evaluateLimit classifies usage against a single limit
func evaluateLimit(limit *entity.BudgetLimit, usage float64) *entity.BudgetAlert {
	percent := 0.0
	if limit.Amount > 0 {
		percent = usage / limit.Amount * 100
	}

	status := entity.AlertStatusNormal
	switch {
	case percent > 100:
		status = entity.AlertStatusExceeded
	case percent >= float64(limit.NotificationThreshold):
		status = entity.AlertStatusWarning
	}

	return &entity.BudgetAlert{
		LimitID:      limit.ID,
		CategoryID:   limit.CategoryID,
		Period:       limit.Period,
		LimitAmount:  limit.Amount,
		Usage:        usage,
		UsagePercent: percent,
		Threshold:    limit.NotificationThreshold,
		Status:       status,
		WindowStart:  limit.StartDate,
		WindowEnd:    limit.EndDate,
	}
}
