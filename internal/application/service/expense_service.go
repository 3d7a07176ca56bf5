package service

import (
	"context"
	"fmt"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/dispatcher"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// systemAuthor is the author recorded on automatically generated report
// comments
const systemAuthor = "system"

// CreateExpenseInput carries a validated expense create request from the
// CRUD layer
type CreateExpenseInput struct {
	OwnerID     string
	CategoryID  int64
	Distance    float64
	Rate        float64
	JourneyDate time.Time
	Notes       string
}

// UpdateExpenseInput carries partial changes; nil fields are left untouched
type UpdateExpenseInput struct {
	CategoryID  *int64
	Distance    *float64
	Rate        *float64
	JourneyDate *time.Time
	Notes       *string
}

// ExpenseService coordinates expense mutations with the monthly report
// aggregates. After any sequence of Create/Update/Delete, every live
// report's totals equal the sums over its referenced expenses.
type ExpenseService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateExpenseInput) (*entity.Expense, error)
	Update(ctx context.Context, actor entity.Actor, id int64, input UpdateExpenseInput) (*entity.Expense, error)
	Delete(ctx context.Context, actor entity.Actor, id int64) error
	Get(ctx context.Context, actor entity.Actor, id int64) (*entity.Expense, error)
	ListByReport(ctx context.Context, actor entity.Actor, reportID int64) ([]*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo port.ExpenseRepository
	reportRepo  port.ReportRepository
	txManager   port.TransactionManager
	events      dispatcher.Dispatcher
	logger      Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	reportRepo port.ReportRepository,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo: expenseRepo,
		reportRepo:  reportRepo,
		txManager:   txManager,
		events:      events,
		logger:      logger,
	}
}

// Create records a new expense and folds it into the report for its period
func (s *expenseServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateExpenseInput) (*entity.Expense, error) {
	if !actor.CanActOn(input.OwnerID) {
		return nil, apperror.Authorization("user %s may not create expenses for %s", actor.UserID, input.OwnerID)
	}
	if err := validateExpenseFields(input.Distance, input.Rate, input.JourneyDate); err != nil {
		return nil, err
	}
	if input.CategoryID <= 0 {
		return nil, apperror.Validation("category is required")
	}

	expense := &entity.Expense{
		OwnerID:     input.OwnerID,
		CategoryID:  input.CategoryID,
		Distance:    input.Distance,
		Rate:        input.Rate,
		JourneyDate: input.JourneyDate,
		Status:      entity.ExpenseStatusPending,
		Notes:       input.Notes,
	}
	expense.RecomputeTotalCost()

	month, year := expense.Period()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reportRepo.FindOrCreate(txCtx, expense.OwnerID, month, year)
		if err != nil {
			return fmt.Errorf("find or create report: %w", err)
		}

		expense.ReportID = report.ID
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		if err := s.reportRepo.ApplyDelta(txCtx, report.ID, expense.Distance, expense.TotalCost); err != nil {
			return fmt.Errorf("apply report delta: %w", err)
		}

		return s.demoteIfFinalized(txCtx, report, "expense added after finalization")
	})
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "owner_id", input.OwnerID)
		return nil, err
	}

	s.logger.Info("Expense created",
		"id", expense.ID,
		"owner_id", expense.OwnerID,
		"report_id", expense.ReportID,
		"total_cost", expense.TotalCost,
	)
	s.notify(ctx, event.TypeExpenseCreated, expense, expense.CategoryID)
	return expense, nil
}

// Update applies partial changes to an expense, moving its contribution
// between reports when the journey date crosses a period boundary
func (s *expenseServiceImpl) Update(ctx context.Context, actor entity.Actor, id int64, input UpdateExpenseInput) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(expense.OwnerID) {
		return nil, apperror.Authorization("user %s may not modify expense %d", actor.UserID, id)
	}

	oldDistance := expense.Distance
	oldCost := expense.TotalCost
	oldCategoryID := expense.CategoryID
	oldReportID := expense.ReportID
	oldMonth, oldYear := expense.Period()

	if input.CategoryID != nil {
		if *input.CategoryID <= 0 {
			return nil, apperror.Validation("category is required")
		}
		expense.CategoryID = *input.CategoryID
	}
	if input.Distance != nil {
		expense.Distance = *input.Distance
	}
	if input.Rate != nil {
		expense.Rate = *input.Rate
	}
	if input.JourneyDate != nil {
		expense.JourneyDate = *input.JourneyDate
	}
	if input.Notes != nil {
		expense.Notes = *input.Notes
	}

	if err := validateExpenseFields(expense.Distance, expense.Rate, expense.JourneyDate); err != nil {
		return nil, err
	}
	expense.RecomputeTotalCost()

	newMonth, newYear := expense.Period()
	movedPeriod := newMonth != oldMonth || newYear != oldYear
	totalsChanged := expense.Distance != oldDistance || expense.TotalCost != oldCost

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if movedPeriod {
			return s.moveAcrossPeriods(txCtx, expense, oldReportID, oldDistance, oldCost, newMonth, newYear)
		}

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}

		if !totalsChanged {
			return nil
		}

		if err := s.reportRepo.ApplyDelta(txCtx, oldReportID,
			expense.Distance-oldDistance, expense.TotalCost-oldCost); err != nil {
			return fmt.Errorf("apply report delta: %w", err)
		}

		report, err := s.reportRepo.GetByID(txCtx, oldReportID)
		if err != nil {
			return fmt.Errorf("load report: %w", err)
		}
		return s.demoteIfFinalized(txCtx, report, fmt.Sprintf("expense %d modified after finalization", expense.ID))
	})
	if err != nil {
		s.logger.Error("Failed to update expense", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Expense updated",
		"id", expense.ID,
		"report_id", expense.ReportID,
		"moved_period", movedPeriod,
	)

	categories := []int64{expense.CategoryID}
	if oldCategoryID != expense.CategoryID {
		categories = append(categories, oldCategoryID)
	}
	s.notify(ctx, event.TypeExpenseUpdated, expense, categories...)
	return expense, nil
}

// moveAcrossPeriods subtracts the expense's old contribution from its old
// report (deleting the report if it becomes empty) and adds the new
// contribution to the target period's report. System-wide totals are
// unchanged by a move.
func (s *expenseServiceImpl) moveAcrossPeriods(
	ctx context.Context,
	expense *entity.Expense,
	oldReportID int64,
	oldDistance, oldCost float64,
	newMonth, newYear int,
) error {
	target, err := s.reportRepo.FindOrCreate(ctx, expense.OwnerID, newMonth, newYear)
	if err != nil {
		return fmt.Errorf("find or create target report: %w", err)
	}

	expense.ReportID = target.ID
	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	if err := s.reportRepo.ApplyDelta(ctx, oldReportID, -oldDistance, -oldCost); err != nil {
		return fmt.Errorf("subtract from old report: %w", err)
	}

	remaining, err := s.expenseRepo.CountByReportID(ctx, oldReportID)
	if err != nil {
		return fmt.Errorf("count old report expenses: %w", err)
	}
	if remaining == 0 {
		if err := s.reportRepo.Delete(ctx, oldReportID); err != nil {
			return fmt.Errorf("delete empty report: %w", err)
		}
	} else {
		oldReport, err := s.reportRepo.GetByID(ctx, oldReportID)
		if err != nil {
			return fmt.Errorf("load old report: %w", err)
		}
		if err := s.demoteIfFinalized(ctx, oldReport,
			fmt.Sprintf("expense %d moved out of period", expense.ID)); err != nil {
			return err
		}
	}

	if err := s.reportRepo.ApplyDelta(ctx, target.ID, expense.Distance, expense.TotalCost); err != nil {
		return fmt.Errorf("add to target report: %w", err)
	}

	return s.demoteIfFinalized(ctx, target,
		fmt.Sprintf("expense %d moved into period", expense.ID))
}

// Delete removes an expense and its contribution from its report, deleting
// the report when it held no other expenses
func (s *expenseServiceImpl) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActOn(expense.OwnerID) {
		return apperror.Authorization("user %s may not delete expense %d", actor.UserID, id)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Delete(txCtx, expense.ID); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}

		if err := s.reportRepo.ApplyDelta(txCtx, expense.ReportID, -expense.Distance, -expense.TotalCost); err != nil {
			return fmt.Errorf("subtract from report: %w", err)
		}

		remaining, err := s.expenseRepo.CountByReportID(txCtx, expense.ReportID)
		if err != nil {
			return fmt.Errorf("count report expenses: %w", err)
		}
		if remaining == 0 {
			if err := s.reportRepo.Delete(txCtx, expense.ReportID); err != nil {
				return fmt.Errorf("delete empty report: %w", err)
			}
			return nil
		}

		report, err := s.reportRepo.GetByID(txCtx, expense.ReportID)
		if err != nil {
			return fmt.Errorf("load report: %w", err)
		}
		return s.demoteIfFinalized(txCtx, report,
			fmt.Sprintf("expense %d deleted after finalization", expense.ID))
	})
	if err != nil {
		s.logger.Error("Failed to delete expense", "error", err, "id", id)
		return err
	}

	s.logger.Info("Expense deleted", "id", id, "report_id", expense.ReportID)
	s.notify(ctx, event.TypeExpenseDeleted, expense, expense.CategoryID)
	return nil
}

// Get retrieves a single expense
func (s *expenseServiceImpl) Get(ctx context.Context, actor entity.Actor, id int64) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(expense.OwnerID) {
		return nil, apperror.Authorization("user %s may not view expense %d", actor.UserID, id)
	}
	return expense, nil
}

// ListByReport returns the expenses referenced by a report
func (s *expenseServiceImpl) ListByReport(ctx context.Context, actor entity.Actor, reportID int64) ([]*entity.Expense, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(report.OwnerID) {
		return nil, apperror.Authorization("user %s may not view report %d", actor.UserID, reportID)
	}
	return s.expenseRepo.ListByReportID(ctx, reportID)
}

// demoteIfFinalized reverts a submitted or approved report to draft and
// records why. The report argument reflects the state loaded inside the
// current transaction; a cleared reimbursement is preserved in the comment
// pending re-approval.
func (s *expenseServiceImpl) demoteIfFinalized(ctx context.Context, report *entity.Report, reason string) error {
	if !report.Status.IsFinalized() {
		return nil
	}

	demoted, err := s.reportRepo.Demote(ctx, report.ID)
	if err != nil {
		return fmt.Errorf("demote report: %w", err)
	}
	if !demoted {
		return nil
	}

	body := fmt.Sprintf("Report reverted to draft: %s", reason)
	if report.Status == entity.ReportStatusApproved && report.ReimbursedAmount > 0 {
		body += fmt.Sprintf(" (reimbursed amount %.2f cleared pending re-approval)", report.ReimbursedAmount)
	}

	if err := s.reportRepo.AddComment(ctx, &entity.ReportComment{
		ReportID: report.ID,
		Author:   systemAuthor,
		Body:     body,
	}); err != nil {
		return fmt.Errorf("add demotion comment: %w", err)
	}

	s.logger.Info("Report demoted to draft", "report_id", report.ID, "reason", reason)
	return nil
}

// notify dispatches a mutation event asynchronously. Budget bookkeeping
// runs behind this boundary and may fail without affecting the committed
// expense write.
func (s *expenseServiceImpl) notify(ctx context.Context, eventType event.Type, expense *entity.Expense, categoryIDs ...int64) {
	if s.events == nil {
		return
	}

	evt := event.NewEvent(eventType, expense.ID, expense.OwnerID, categoryIDs).
		WithPayload("total_cost", expense.TotalCost)
	s.events.DispatchAsync(context.WithoutCancel(ctx), evt)
}

// validateExpenseFields rejects non-positive distance/rate and journey
// dates after today
func validateExpenseFields(distance, rate float64, journeyDate time.Time) error {
	if distance <= 0 {
		return apperror.Validation("distance must be positive, got %v", distance)
	}
	if rate <= 0 {
		return apperror.Validation("rate must be positive, got %v", rate)
	}
	if journeyDate.IsZero() {
		return apperror.Validation("journey date is required")
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, journeyDate.Location())
	if journeyDate.After(today.AddDate(0, 0, 1).Add(-time.Nanosecond)) {
		return apperror.Validation("journey date %s is in the future", journeyDate.Format("2006-01-02"))
	}
	return nil
}
