package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/domain/workflow"
)

// ReportService runs the report approval workflow and builds quarterly
// snapshots
type ReportService interface {
	Get(ctx context.Context, actor entity.Actor, id int64) (*entity.Report, error)
	GetByPeriod(ctx context.Context, actor entity.Actor, ownerID string, month, year int) (*entity.Report, error)
	Comments(ctx context.Context, actor entity.Actor, reportID int64) ([]*entity.ReportComment, error)

	// Submit moves a draft report into review. Owner only.
	Submit(ctx context.Context, actor entity.Actor, id int64) (*entity.Report, error)

	// Approve finalizes a submitted report. Admin only. A nil
	// reimbursedAmount means full reimbursement.
	Approve(ctx context.Context, actor entity.Actor, id int64, reimbursedAmount *float64) (*entity.Report, error)

	// Reject declines a submitted report with a mandatory comment. Admin
	// only.
	Reject(ctx context.Context, actor entity.Actor, id int64, comment string) (*entity.Report, error)

	// GenerateQuarterly snapshots the quarter's monthly reports. The result
	// is frozen at generation time; regenerating replaces it.
	GenerateQuarterly(ctx context.Context, actor entity.Actor, ownerID string, quarter, year int) (*entity.QuarterlyReport, error)
	GetQuarterly(ctx context.Context, actor entity.Actor, ownerID string, quarter, year int) (*entity.QuarterlyReport, error)
}

type reportServiceImpl struct {
	reportRepo    port.ReportRepository
	quarterlyRepo port.QuarterlyReportRepository
	expenseRepo   port.ExpenseRepository
	txManager     port.TransactionManager
	logger        Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reportRepo port.ReportRepository,
	quarterlyRepo port.QuarterlyReportRepository,
	expenseRepo port.ExpenseRepository,
	txManager port.TransactionManager,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		reportRepo:    reportRepo,
		quarterlyRepo: quarterlyRepo,
		expenseRepo:   expenseRepo,
		txManager:     txManager,
		logger:        logger,
	}
}

// Get retrieves a report
func (s *reportServiceImpl) Get(ctx context.Context, actor entity.Actor, id int64) (*entity.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(report.OwnerID) {
		return nil, apperror.Authorization("user %s may not view report %d", actor.UserID, id)
	}
	return report, nil
}

// GetByPeriod retrieves the report for (owner, month, year)
func (s *reportServiceImpl) GetByPeriod(ctx context.Context, actor entity.Actor, ownerID string, month, year int) (*entity.Report, error) {
	if !actor.CanActOn(ownerID) {
		return nil, apperror.Authorization("user %s may not view reports of %s", actor.UserID, ownerID)
	}
	if month < 1 || month > 12 {
		return nil, apperror.Validation("month must be between 1 and 12, got %d", month)
	}
	return s.reportRepo.GetByPeriod(ctx, ownerID, month, year)
}

// Comments lists a report's audit trail
func (s *reportServiceImpl) Comments(ctx context.Context, actor entity.Actor, reportID int64) ([]*entity.ReportComment, error) {
	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(report.OwnerID) {
		return nil, apperror.Authorization("user %s may not view report %d", actor.UserID, reportID)
	}
	return s.reportRepo.ListComments(ctx, reportID)
}

// Submit transitions a draft report to submitted
func (s *reportServiceImpl) Submit(ctx context.Context, actor entity.Actor, id int64) (*entity.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != report.OwnerID {
		return nil, apperror.Authorization("only the report owner may submit report %d", id)
	}

	if err := s.fire(report, workflow.TriggerSubmit); err != nil {
		return nil, err
	}

	now := time.Now()
	report.SubmittedAt = &now

	if err := s.reportRepo.UpdateStatus(ctx, report, report.Version); err != nil {
		s.logger.Error("Failed to submit report", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Report submitted", "id", id, "owner_id", report.OwnerID)
	return report, nil
}

// Approve transitions a submitted report to approved, recording
// reimbursement
func (s *reportServiceImpl) Approve(ctx context.Context, actor entity.Actor, id int64, reimbursedAmount *float64) (*entity.Report, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("only admins may approve reports")
	}

	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reimbursed := report.TotalExpenseAmount
	if reimbursedAmount != nil {
		if *reimbursedAmount < 0 {
			return nil, apperror.Validation("reimbursed amount must not be negative")
		}
		if *reimbursedAmount > report.TotalExpenseAmount {
			return nil, apperror.Validation(
				"reimbursed amount %.2f exceeds report total %.2f",
				*reimbursedAmount, report.TotalExpenseAmount)
		}
		reimbursed = *reimbursedAmount
	}

	if err := s.fire(report, workflow.TriggerApprove); err != nil {
		return nil, err
	}

	now := time.Now()
	report.ReimbursedAmount = entity.RoundCents(reimbursed)
	report.PendingAmount = entity.RoundCents(report.TotalExpenseAmount - reimbursed)
	report.ApprovedAt = &now

	if err := s.reportRepo.UpdateStatus(ctx, report, report.Version); err != nil {
		s.logger.Error("Failed to approve report", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Report approved",
		"id", id,
		"reimbursed", report.ReimbursedAmount,
		"pending", report.PendingAmount,
	)
	return report, nil
}

// Reject transitions a submitted report to rejected with a mandatory
// comment
func (s *reportServiceImpl) Reject(ctx context.Context, actor entity.Actor, id int64, comment string) (*entity.Report, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("only admins may reject reports")
	}
	if comment == "" {
		return nil, apperror.Validation("a rejection comment is required")
	}

	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.fire(report, workflow.TriggerReject); err != nil {
		return nil, err
	}

	now := time.Now()
	report.RejectedAt = &now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.UpdateStatus(txCtx, report, report.Version); err != nil {
			return err
		}
		return s.reportRepo.AddComment(txCtx, &entity.ReportComment{
			ReportID: id,
			Author:   actor.UserID,
			Body:     comment,
		})
	})
	if err != nil {
		s.logger.Error("Failed to reject report", "error", err, "id", id)
		return nil, err
	}

	s.logger.Info("Report rejected", "id", id, "by", actor.UserID)
	return report, nil
}

// GenerateQuarterly sums the quarter's monthly reports into a snapshot
func (s *reportServiceImpl) GenerateQuarterly(ctx context.Context, actor entity.Actor, ownerID string, quarter, year int) (*entity.QuarterlyReport, error) {
	if !actor.CanActOn(ownerID) {
		return nil, apperror.Authorization("user %s may not build reports for %s", actor.UserID, ownerID)
	}
	if quarter < 1 || quarter > 4 {
		return nil, apperror.Validation("quarter must be between 1 and 4, got %d", quarter)
	}

	months := entity.QuarterMonths(quarter)
	monthly, err := s.reportRepo.ListByPeriods(ctx, ownerID, year, months[:])
	if err != nil {
		return nil, err
	}
	if len(monthly) == 0 {
		return nil, apperror.NotFound("no monthly reports for %s Q%d %d", ownerID, quarter, year)
	}

	snapshot := &entity.QuarterlyReport{
		OwnerID:     ownerID,
		Quarter:     quarter,
		Year:        year,
		Status:      entity.ReportStatusDraft,
		GeneratedAt: time.Now(),
	}

	for _, report := range monthly {
		snapshot.TotalDistance += report.TotalDistance
		snapshot.TotalExpenseAmount += report.TotalExpenseAmount
		snapshot.ReimbursedAmount += report.ReimbursedAmount
		snapshot.PendingAmount += report.PendingAmount

		expenses, err := s.expenseRepo.ListByReportID(ctx, report.ID)
		if err != nil {
			return nil, fmt.Errorf("list report %d expenses: %w", report.ID, err)
		}
		for _, expense := range expenses {
			snapshot.ExpenseIDs = append(snapshot.ExpenseIDs, expense.ID)
		}
	}
	snapshot.TotalDistance = entity.RoundCents(snapshot.TotalDistance)
	snapshot.TotalExpenseAmount = entity.RoundCents(snapshot.TotalExpenseAmount)
	snapshot.ReimbursedAmount = entity.RoundCents(snapshot.ReimbursedAmount)
	snapshot.PendingAmount = entity.RoundCents(snapshot.PendingAmount)
	if snapshot.ExpenseIDs == nil {
		snapshot.ExpenseIDs = []int64{}
	}

	if err := s.quarterlyRepo.Upsert(ctx, snapshot); err != nil {
		s.logger.Error("Failed to persist quarterly report", "error", err, "owner_id", ownerID)
		return nil, err
	}

	s.logger.Info("Quarterly report generated",
		"owner_id", ownerID,
		"quarter", quarter,
		"year", year,
		"months", len(monthly),
	)
	return snapshot, nil
}

// GetQuarterly retrieves an existing snapshot
func (s *reportServiceImpl) GetQuarterly(ctx context.Context, actor entity.Actor, ownerID string, quarter, year int) (*entity.QuarterlyReport, error) {
	if !actor.CanActOn(ownerID) {
		return nil, apperror.Authorization("user %s may not view reports of %s", actor.UserID, ownerID)
	}
	return s.quarterlyRepo.GetByPeriod(ctx, ownerID, quarter, year)
}

// fire runs a workflow trigger against the report's current status,
// translating transition failures into conflict errors
func (s *reportServiceImpl) fire(report *entity.Report, trigger workflow.Trigger) error {
	machine, err := workflow.NewReportMachine(report.Status)
	if err != nil {
		return fmt.Errorf("report %d: %w", report.ID, err)
	}
	if err := machine.Fire(trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return apperror.Wrap(apperror.KindConflict, err,
				"report %d is %s", report.ID, report.Status)
		}
		return err
	}
	report.Status = machine.State()
	return nil
}
