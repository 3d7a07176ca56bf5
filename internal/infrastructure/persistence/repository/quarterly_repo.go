package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// QuarterlyReportRepository implements port.QuarterlyReportRepository.
// Snapshots store their expense reference list as a JSON column: the list is
// frozen at generation time and never follows later expense moves.
type QuarterlyReportRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewQuarterlyReportRepository creates a new quarterly report repository
func NewQuarterlyReportRepository(db *sqlite.DB, logger *zap.Logger) port.QuarterlyReportRepository {
	return &QuarterlyReportRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert persists a snapshot, replacing any previous snapshot for the same
// (owner, quarter, year)
func (r *QuarterlyReportRepository) Upsert(ctx context.Context, report *entity.QuarterlyReport) error {
	expenseIDs, err := json.Marshal(report.ExpenseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal expense ids: %w", err)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO quarterly_reports (
			owner_id, quarter, year, total_distance, total_expense_amount,
			reimbursed_amount, pending_amount, status, expense_ids, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, quarter, year) DO UPDATE SET
			total_distance = excluded.total_distance,
			total_expense_amount = excluded.total_expense_amount,
			reimbursed_amount = excluded.reimbursed_amount,
			pending_amount = excluded.pending_amount,
			status = excluded.status,
			expense_ids = excluded.expense_ids,
			generated_at = excluded.generated_at
	`,
		report.OwnerID,
		report.Quarter,
		report.Year,
		report.TotalDistance,
		report.TotalExpenseAmount,
		report.ReimbursedAmount,
		report.PendingAmount,
		report.Status,
		string(expenseIDs),
		report.GeneratedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert quarterly report",
			zap.String("owner_id", report.OwnerID),
			zap.Int("quarter", report.Quarter),
			zap.Int("year", report.Year),
			zap.Error(err))
		return fmt.Errorf("failed to upsert quarterly report: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		report.ID = id
	}
	return nil
}

// GetByPeriod retrieves the snapshot for (owner, quarter, year)
func (r *QuarterlyReportRepository) GetByPeriod(ctx context.Context, ownerID string, quarter, year int) (*entity.QuarterlyReport, error) {
	var report entity.QuarterlyReport
	var expenseIDs string

	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, owner_id, quarter, year, total_distance, total_expense_amount,
			reimbursed_amount, pending_amount, status, expense_ids, generated_at
		FROM quarterly_reports
		WHERE owner_id = ? AND quarter = ? AND year = ?
	`, ownerID, quarter, year).Scan(
		&report.ID,
		&report.OwnerID,
		&report.Quarter,
		&report.Year,
		&report.TotalDistance,
		&report.TotalExpenseAmount,
		&report.ReimbursedAmount,
		&report.PendingAmount,
		&report.Status,
		&expenseIDs,
		&report.GeneratedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("no quarterly report for %s Q%d %d", ownerID, quarter, year)
	}
	if err != nil {
		r.logger.Error("Failed to get quarterly report",
			zap.String("owner_id", ownerID),
			zap.Int("quarter", quarter),
			zap.Int("year", year),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get quarterly report: %w", err)
	}

	if err := json.Unmarshal([]byte(expenseIDs), &report.ExpenseIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal expense ids: %w", err)
	}

	return &report, nil
}

// Verify interface compliance
var _ port.QuarterlyReportRepository = (*QuarterlyReportRepository)(nil)
