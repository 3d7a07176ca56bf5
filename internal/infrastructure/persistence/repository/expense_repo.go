package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlite.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense record
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			owner_id, category_id, report_id, distance, rate, total_cost,
			journey_date, status, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.OwnerID,
		expense.CategoryID,
		expense.ReportID,
		expense.Distance,
		expense.Rate,
		expense.TotalCost,
		expense.JourneyDate,
		expense.Status,
		expense.Notes,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

const expenseColumns = `id, owner_id, category_id, report_id, distance, rate,
	total_cost, journey_date, status, notes, created_at, updated_at`

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := r.scanExpense(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("expense %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// Update persists all mutable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET category_id = ?, report_id = ?, distance = ?, rate = ?,
			total_cost = ?, journey_date = ?, status = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.CategoryID,
		expense.ReportID,
		expense.Distance,
		expense.Rate,
		expense.TotalCost,
		expense.JourneyDate,
		expense.Status,
		expense.Notes,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("expense %d not found", expense.ID)
	}

	return nil
}

// Delete removes an expense record
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete expense", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("expense %d not found", id)
	}

	return nil
}

// ListByReportID returns the expenses referencing a report, oldest first
func (r *ExpenseRepository) ListByReportID(ctx context.Context, reportID int64) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE report_id = ? ORDER BY journey_date, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, reportID)
	if err != nil {
		r.logger.Error("Failed to list expenses by report", zap.Int64("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// CountByReportID counts the expenses referencing a report
func (r *ExpenseRepository) CountByReportID(ctx context.Context, reportID int64) (int64, error) {
	var count int64
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM expenses WHERE report_id = ?", reportID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// SumCostByCategory sums total_cost over a category's expenses whose journey
// date falls within [start, end], inclusive
func (r *ExpenseRepository) SumCostByCategory(ctx context.Context, categoryID int64, start, end time.Time) (float64, error) {
	var total sql.NullFloat64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT SUM(total_cost) FROM expenses
		WHERE category_id = ? AND journey_date >= ? AND journey_date <= ?
	`, categoryID, start, end).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum category costs", zap.Int64("category_id", categoryID), zap.Error(err))
		return 0, fmt.Errorf("failed to sum category costs: %w", err)
	}

	return total.Float64, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ExpenseRepository) scanExpense(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	err := row.Scan(
		&expense.ID,
		&expense.OwnerID,
		&expense.CategoryID,
		&expense.ReportID,
		&expense.Distance,
		&expense.Rate,
		&expense.TotalCost,
		&expense.JourneyDate,
		&expense.Status,
		&expense.Notes,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
