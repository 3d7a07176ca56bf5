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

// BudgetLimitRepository implements port.BudgetLimitRepository. The schema
// carries BEFORE INSERT/UPDATE triggers that abort on an overlapping active
// window of the same category and period, so the overlap invariant holds
// even when two limits are created concurrently; the service-level scan only
// exists for a friendlier error message.
type BudgetLimitRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewBudgetLimitRepository creates a new budget limit repository
func NewBudgetLimitRepository(db *sqlite.DB, logger *zap.Logger) port.BudgetLimitRepository {
	return &BudgetLimitRepository{
		db:     db,
		logger: logger,
	}
}

const budgetLimitColumns = `id, category_id, amount, period, start_date,
	end_date, is_active, notification_threshold, created_at, updated_at`

// Create inserts a new budget limit
func (r *BudgetLimitRepository) Create(ctx context.Context, limit *entity.BudgetLimit) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO budget_limits (
			category_id, amount, period, start_date, end_date,
			is_active, notification_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		limit.CategoryID,
		limit.Amount,
		limit.Period,
		limit.StartDate,
		limit.EndDate,
		limit.IsActive,
		limit.NotificationThreshold,
	)
	if err != nil {
		if isOverlapAbort(err) {
			return apperror.Wrap(apperror.KindConflict, err,
				"budget window overlaps an existing active %s limit", limit.Period)
		}
		r.logger.Error("Failed to create budget limit", zap.Int64("category_id", limit.CategoryID), zap.Error(err))
		return fmt.Errorf("failed to create budget limit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	limit.ID = id
	return nil
}

// GetByID retrieves a limit scoped to its category
func (r *BudgetLimitRepository) GetByID(ctx context.Context, categoryID, limitID int64) (*entity.BudgetLimit, error) {
	query := `SELECT ` + budgetLimitColumns + ` FROM budget_limits WHERE id = ? AND category_id = ?`

	limit, err := r.scanLimit(r.db.Executor(ctx).QueryRowContext(ctx, query, limitID, categoryID))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("budget limit %d not found on category %d", limitID, categoryID)
	}
	if err != nil {
		r.logger.Error("Failed to get budget limit", zap.Int64("id", limitID), zap.Error(err))
		return nil, fmt.Errorf("failed to get budget limit: %w", err)
	}

	return limit, nil
}

// Update persists limit fields
func (r *BudgetLimitRepository) Update(ctx context.Context, limit *entity.BudgetLimit) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE budget_limits
		SET amount = ?, period = ?, start_date = ?, end_date = ?,
			is_active = ?, notification_threshold = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND category_id = ?
	`,
		limit.Amount,
		limit.Period,
		limit.StartDate,
		limit.EndDate,
		limit.IsActive,
		limit.NotificationThreshold,
		limit.ID,
		limit.CategoryID,
	)
	if err != nil {
		if isOverlapAbort(err) {
			return apperror.Wrap(apperror.KindConflict, err,
				"budget window overlaps an existing active %s limit", limit.Period)
		}
		r.logger.Error("Failed to update budget limit", zap.Int64("id", limit.ID), zap.Error(err))
		return fmt.Errorf("failed to update budget limit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("budget limit %d not found on category %d", limit.ID, limit.CategoryID)
	}

	return nil
}

// Delete removes a budget limit. Already-computed usage history is
// unaffected.
func (r *BudgetLimitRepository) Delete(ctx context.Context, categoryID, limitID int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		"DELETE FROM budget_limits WHERE id = ? AND category_id = ?", limitID, categoryID)
	if err != nil {
		r.logger.Error("Failed to delete budget limit", zap.Int64("id", limitID), zap.Error(err))
		return fmt.Errorf("failed to delete budget limit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("budget limit %d not found on category %d", limitID, categoryID)
	}

	return nil
}

// ListByCategory returns a category's limits ordered by start date
func (r *BudgetLimitRepository) ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]*entity.BudgetLimit, error) {
	query := `SELECT ` + budgetLimitColumns + ` FROM budget_limits WHERE category_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, categoryID)
	if err != nil {
		r.logger.Error("Failed to list budget limits", zap.Int64("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to list budget limits: %w", err)
	}
	defer rows.Close()

	var limits []*entity.BudgetLimit
	for rows.Next() {
		limit, err := r.scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget limit: %w", err)
		}
		limits = append(limits, limit)
	}

	return limits, rows.Err()
}

func (r *BudgetLimitRepository) scanLimit(row rowScanner) (*entity.BudgetLimit, error) {
	var limit entity.BudgetLimit
	err := row.Scan(
		&limit.ID,
		&limit.CategoryID,
		&limit.Amount,
		&limit.Period,
		&limit.StartDate,
		&limit.EndDate,
		&limit.IsActive,
		&limit.NotificationThreshold,
		&limit.CreatedAt,
		&limit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &limit, nil
}

// isOverlapAbort detects the RAISE(ABORT) message from the overlap triggers
func isOverlapAbort(err error) bool {
	return err != nil && strings.Contains(err.Error(), "budget window overlap")
}

// Verify interface compliance
var _ port.BudgetLimitRepository = (*BudgetLimitRepository)(nil)
