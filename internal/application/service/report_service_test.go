package service

import (
	"context"
	"testing"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/domain/entity"
)

func newReportService(reportRepo *mockReportRepo, quarterlyRepo *mockQuarterlyRepo, expenseRepo *mockExpenseRepo) ReportService {
	return NewReportService(reportRepo, quarterlyRepo, expenseRepo, &mockTxManager{}, nopLogger{})
}

func reportInStatus(status entity.ReportStatus) func(ctx context.Context, id int64) (*entity.Report, error) {
	return func(ctx context.Context, id int64) (*entity.Report, error) {
		return &entity.Report{
			ID:                 id,
			OwnerID:            "user-1",
			Month:              1,
			Year:               2026,
			TotalDistance:      200,
			TotalExpenseAmount: 100,
			Status:             status,
			Version:            2,
		}, nil
	}
}

func TestSubmitReport(t *testing.T) {
	var saved *entity.Report
	var savedVersion int64

	reportRepo := &mockReportRepo{
		getByIDFunc: reportInStatus(entity.ReportStatusDraft),
		updateStatusFunc: func(ctx context.Context, report *entity.Report, expectedVersion int64) error {
			saved = report
			savedVersion = expectedVersion
			return nil
		},
	}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	report, err := svc.Submit(context.Background(), actorUser1, 1)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if report.Status != entity.ReportStatusSubmitted {
		t.Errorf("expected SUBMITTED, got %s", report.Status)
	}
	if report.SubmittedAt == nil {
		t.Error("expected SubmittedAt to be set")
	}
	if saved == nil || savedVersion != 2 {
		t.Errorf("expected version-guarded write with version 2, got %d", savedVersion)
	}
}

func TestSubmitReport_OwnerOnly(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusDraft)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	// Even an admin may not submit on the owner's behalf.
	for _, actor := range []entity.Actor{actorUser2, actorAdmin} {
		_, err := svc.Submit(context.Background(), actor, 1)
		if !apperror.IsKind(err, apperror.KindAuthorization) {
			t.Errorf("actor %s: expected authorization error, got %v", actor.UserID, err)
		}
	}
}

func TestSubmitReport_InvalidFromSubmitted(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusSubmitted)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	_, err := svc.Submit(context.Background(), actorUser1, 1)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestApproveReport_DefaultsToFullReimbursement(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusSubmitted)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	report, err := svc.Approve(context.Background(), actorAdmin, 1, nil)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if report.Status != entity.ReportStatusApproved {
		t.Errorf("expected APPROVED, got %s", report.Status)
	}
	if report.ReimbursedAmount != 100 {
		t.Errorf("expected full reimbursement 100, got %v", report.ReimbursedAmount)
	}
	if report.PendingAmount != 0 {
		t.Errorf("expected pending 0, got %v", report.PendingAmount)
	}
	if report.ApprovedAt == nil {
		t.Error("expected ApprovedAt to be set")
	}
}

func TestApproveReport_PartialReimbursement(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusSubmitted)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	report, err := svc.Approve(context.Background(), actorAdmin, 1, floatPtr(60))
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if report.ReimbursedAmount != 60 {
		t.Errorf("expected reimbursed 60, got %v", report.ReimbursedAmount)
	}
	if report.PendingAmount != 40 {
		t.Errorf("expected pending 40, got %v", report.PendingAmount)
	}
}

func TestApproveReport_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		actor      entity.Actor
		status     entity.ReportStatus
		reimbursed *float64
		wantKind   apperror.Kind
	}{
		{"non-admin", actorUser1, entity.ReportStatusSubmitted, nil, apperror.KindAuthorization},
		{"reimbursed over total", actorAdmin, entity.ReportStatusSubmitted, floatPtr(150), apperror.KindValidation},
		{"negative reimbursed", actorAdmin, entity.ReportStatusSubmitted, floatPtr(-1), apperror.KindValidation},
		{"draft report", actorAdmin, entity.ReportStatusDraft, nil, apperror.KindConflict},
		{"already approved", actorAdmin, entity.ReportStatusApproved, nil, apperror.KindConflict},
		{"rejected report", actorAdmin, entity.ReportStatusRejected, nil, apperror.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(tt.status)}
			svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

			_, err := svc.Approve(context.Background(), tt.actor, 1, tt.reimbursed)
			if !apperror.IsKind(err, tt.wantKind) {
				t.Errorf("expected kind %v, got %v", tt.wantKind, err)
			}
		})
	}
}

func TestRejectReport(t *testing.T) {
	var comment *entity.ReportComment

	reportRepo := &mockReportRepo{
		getByIDFunc: reportInStatus(entity.ReportStatusSubmitted),
		addCommentFunc: func(ctx context.Context, c *entity.ReportComment) error {
			comment = c
			return nil
		},
	}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	report, err := svc.Reject(context.Background(), actorAdmin, 1, "missing receipts")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	if report.Status != entity.ReportStatusRejected {
		t.Errorf("expected REJECTED, got %s", report.Status)
	}
	if report.RejectedAt == nil {
		t.Error("expected RejectedAt to be set")
	}
	if comment == nil || comment.Body != "missing receipts" || comment.Author != "admin-1" {
		t.Errorf("expected rejection comment by admin-1, got %+v", comment)
	}
}

func TestRejectReport_RequiresComment(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusSubmitted)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	_, err := svc.Reject(context.Background(), actorAdmin, 1, "")
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectReport_RejectedIsTerminal(t *testing.T) {
	reportRepo := &mockReportRepo{getByIDFunc: reportInStatus(entity.ReportStatusRejected)}
	svc := newReportService(reportRepo, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	_, err := svc.Reject(context.Background(), actorAdmin, 1, "again")
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestGenerateQuarterly_SumsMonthlyReports(t *testing.T) {
	var upserted *entity.QuarterlyReport

	reportRepo := &mockReportRepo{
		listByPeriodsFunc: func(ctx context.Context, ownerID string, year int, months []int) ([]*entity.Report, error) {
			if len(months) != 3 || months[0] != 1 || months[2] != 3 {
				t.Errorf("expected months [1 2 3], got %v", months)
			}
			return []*entity.Report{
				{ID: 1, OwnerID: ownerID, Month: 1, Year: year, TotalDistance: 100, TotalExpenseAmount: 50, ReimbursedAmount: 50},
				{ID: 2, OwnerID: ownerID, Month: 3, Year: year, TotalDistance: 40, TotalExpenseAmount: 20, PendingAmount: 20},
			}, nil
		},
	}
	expenseRepo := &mockExpenseRepo{
		listByReportIDFunc: func(ctx context.Context, reportID int64) ([]*entity.Expense, error) {
			return []*entity.Expense{{ID: reportID * 10}, {ID: reportID*10 + 1}}, nil
		},
	}
	quarterlyRepo := &mockQuarterlyRepo{
		upsertFunc: func(ctx context.Context, report *entity.QuarterlyReport) error {
			upserted = report
			report.ID = 1
			return nil
		},
	}
	svc := newReportService(reportRepo, quarterlyRepo, expenseRepo)

	snapshot, err := svc.GenerateQuarterly(context.Background(), actorUser1, "user-1", 1, 2026)
	if err != nil {
		t.Fatalf("GenerateQuarterly failed: %v", err)
	}

	if upserted == nil {
		t.Fatal("expected snapshot to be persisted")
	}
	if snapshot.TotalDistance != 140 || snapshot.TotalExpenseAmount != 70 {
		t.Errorf("expected totals (140, 70), got (%v, %v)",
			snapshot.TotalDistance, snapshot.TotalExpenseAmount)
	}
	if snapshot.ReimbursedAmount != 50 || snapshot.PendingAmount != 20 {
		t.Errorf("expected reimbursed 50 pending 20, got (%v, %v)",
			snapshot.ReimbursedAmount, snapshot.PendingAmount)
	}
	if len(snapshot.ExpenseIDs) != 4 {
		t.Errorf("expected 4 expense ids, got %v", snapshot.ExpenseIDs)
	}
	if snapshot.Status != entity.ReportStatusDraft {
		t.Errorf("expected DRAFT snapshot, got %s", snapshot.Status)
	}
	if snapshot.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}
}

func TestGenerateQuarterly_NoMonthlyReports(t *testing.T) {
	svc := newReportService(&mockReportRepo{}, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	_, err := svc.GenerateQuarterly(context.Background(), actorUser1, "user-1", 2, 2026)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGenerateQuarterly_InvalidQuarter(t *testing.T) {
	svc := newReportService(&mockReportRepo{}, &mockQuarterlyRepo{}, &mockExpenseRepo{})

	for _, quarter := range []int{0, 5} {
		_, err := svc.GenerateQuarterly(context.Background(), actorUser1, "user-1", quarter, 2026)
		if !apperror.IsKind(err, apperror.KindValidation) {
			t.Errorf("quarter %d: expected validation error, got %v", quarter, err)
		}
	}
}

func TestGetQuarterly_AuthorizationScopesOwner(t *testing.T) {
	quarterlyRepo := &mockQuarterlyRepo{
		getByPeriodFunc: func(ctx context.Context, ownerID string, quarter, year int) (*entity.QuarterlyReport, error) {
			return &entity.QuarterlyReport{OwnerID: ownerID, Quarter: quarter, Year: year, GeneratedAt: time.Now()}, nil
		},
	}
	svc := newReportService(&mockReportRepo{}, quarterlyRepo, &mockExpenseRepo{})

	if _, err := svc.GetQuarterly(context.Background(), actorUser2, "user-1", 1, 2026); !apperror.IsKind(err, apperror.KindAuthorization) {
		t.Errorf("expected authorization error for foreign owner, got %v", err)
	}
	if _, err := svc.GetQuarterly(context.Background(), actorAdmin, "user-1", 1, 2026); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
}
