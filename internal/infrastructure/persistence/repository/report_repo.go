package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ReportRepository implements port.ReportRepository. Totals are only ever
// written through atomic increments so that concurrent expense mutations on
// the same report cannot lose updates; status writes are guarded by the
// version column.
type ReportRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlite.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `id, owner_id, month, year, total_distance,
	total_expense_amount, reimbursed_amount, pending_amount, status,
	submitted_at, approved_at, rejected_at, version, created_at, updated_at`

// FindOrCreate returns the report for (owner, month, year), creating an
// empty draft when none exists. The unique (owner_id, month, year) index
// makes concurrent first-expense creates converge on a single row.
func (r *ReportRepository) FindOrCreate(ctx context.Context, ownerID string, month, year int) (*entity.Report, error) {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO reports (owner_id, month, year, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, month, year) DO NOTHING
	`, ownerID, month, year, entity.ReportStatusDraft)
	if err != nil {
		r.logger.Error("Failed to upsert report",
			zap.String("owner_id", ownerID),
			zap.Int("month", month),
			zap.Int("year", year),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert report: %w", err)
	}

	return r.GetByPeriod(ctx, ownerID, month, year)
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	report, err := r.scanReport(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("report %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get report by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// GetByPeriod retrieves the report for (owner, month, year)
func (r *ReportRepository) GetByPeriod(ctx context.Context, ownerID string, month, year int) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE owner_id = ? AND month = ? AND year = ?`

	report, err := r.scanReport(r.db.Executor(ctx).QueryRowContext(ctx, query, ownerID, month, year))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("no report for %s %d/%d", ownerID, month, year)
	}
	if err != nil {
		r.logger.Error("Failed to get report by period",
			zap.String("owner_id", ownerID),
			zap.Int("month", month),
			zap.Int("year", year),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// ListByPeriods retrieves the owner's reports for the given months of a year
func (r *ReportRepository) ListByPeriods(ctx context.Context, ownerID string, year int, months []int) ([]*entity.Report, error) {
	if len(months) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(months)), ",")
	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE owner_id = ? AND year = ? AND month IN (` + placeholders + `)
		ORDER BY month`

	args := make([]interface{}, 0, len(months)+2)
	args = append(args, ownerID, year)
	for _, m := range months {
		args = append(args, m)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// ApplyDelta atomically adds to the report totals and bumps the version.
// The increments happen inside the store, never as read-modify-write in Go.
func (r *ReportRepository) ApplyDelta(ctx context.Context, id int64, distanceDelta, costDelta float64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE reports
		SET total_distance = ROUND(total_distance + ?, 2),
			total_expense_amount = ROUND(total_expense_amount + ?, 2),
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, distanceDelta, costDelta, id)
	if err != nil {
		r.logger.Error("Failed to apply report delta", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to apply report delta: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("report %d not found", id)
	}

	return nil
}

// UpdateStatus writes status, workflow timestamps and reimbursement fields,
// guarded by the expected version
func (r *ReportRepository) UpdateStatus(ctx context.Context, report *entity.Report, expectedVersion int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE reports
		SET status = ?, reimbursed_amount = ?, pending_amount = ?,
			submitted_at = ?, approved_at = ?, rejected_at = ?,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`,
		report.Status,
		report.ReimbursedAmount,
		report.PendingAmount,
		report.SubmittedAt,
		report.ApprovedAt,
		report.RejectedAt,
		report.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update report status", zap.Int64("id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to update report status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.Conflict("report %d was modified concurrently", report.ID)
	}

	report.Version = expectedVersion + 1
	return nil
}

// Demote reverts a finalized report to draft, clearing reimbursement
// fields. Returns false when the report was not submitted or approved.
func (r *ReportRepository) Demote(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE reports
		SET status = ?, reimbursed_amount = 0, pending_amount = 0,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN (?, ?)
	`, entity.ReportStatusDraft, id, entity.ReportStatusSubmitted, entity.ReportStatusApproved)
	if err != nil {
		r.logger.Error("Failed to demote report", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to demote report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Delete removes a report; comments cascade at the store
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete report", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("report %d not found", id)
	}

	return nil
}

// AddComment appends an audit comment to a report
func (r *ReportRepository) AddComment(ctx context.Context, comment *entity.ReportComment) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO report_comments (report_id, author, body) VALUES (?, ?, ?)
	`, comment.ReportID, comment.Author, comment.Body)
	if err != nil {
		r.logger.Error("Failed to add report comment", zap.Int64("report_id", comment.ReportID), zap.Error(err))
		return fmt.Errorf("failed to add report comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	comment.ID = id
	return nil
}

// ListComments returns a report's comments, oldest first
func (r *ReportRepository) ListComments(ctx context.Context, reportID int64) ([]*entity.ReportComment, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, report_id, author, body, created_at
		FROM report_comments
		WHERE report_id = ?
		ORDER BY created_at, id
	`, reportID)
	if err != nil {
		r.logger.Error("Failed to list report comments", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list report comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.ReportComment
	for rows.Next() {
		var comment entity.ReportComment
		if err := rows.Scan(
			&comment.ID,
			&comment.ReportID,
			&comment.Author,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report comment: %w", err)
		}
		comments = append(comments, &comment)
	}

	return comments, rows.Err()
}

func (r *ReportRepository) scanReport(row rowScanner) (*entity.Report, error) {
	var report entity.Report
	var submittedAt, approvedAt, rejectedAt sql.NullTime

	err := row.Scan(
		&report.ID,
		&report.OwnerID,
		&report.Month,
		&report.Year,
		&report.TotalDistance,
		&report.TotalExpenseAmount,
		&report.ReimbursedAmount,
		&report.PendingAmount,
		&report.Status,
		&submittedAt,
		&approvedAt,
		&rejectedAt,
		&report.Version,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if submittedAt.Valid {
		report.SubmittedAt = &submittedAt.Time
	}
	if approvedAt.Valid {
		report.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		report.RejectedAt = &rejectedAt.Time
	}

	return &report, nil
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
