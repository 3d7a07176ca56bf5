package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/port"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CategoryRepository implements port.CategoryRepository
type CategoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sqlite.DB, logger *zap.Logger) port.CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new category
func (r *CategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO categories (name, description, is_active) VALUES (?, ?, ?)
	`, category.Name, category.Description, category.IsActive)
	if err != nil {
		r.logger.Error("Failed to create category", zap.String("name", category.Name), zap.Error(err))
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	category.ID = id
	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	var category entity.Category
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM categories WHERE id = ?
	`, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("category %d not found", id)
	}
	if err != nil {
		r.logger.Error("Failed to get category", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &category, nil
}

// List returns categories, optionally only active ones
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]*entity.Category, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM categories`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*entity.Category
	for rows.Next() {
		var category entity.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.IsActive,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}

	return categories, rows.Err()
}

// Update persists category fields
func (r *CategoryRepository) Update(ctx context.Context, category *entity.Category) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE categories
		SET name = ?, description = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, category.Name, category.Description, category.IsActive, category.ID)
	if err != nil {
		r.logger.Error("Failed to update category", zap.Int64("id", category.ID), zap.Error(err))
		return fmt.Errorf("failed to update category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("category %d not found", category.ID)
	}

	return nil
}

// UpsertUsage writes the cached usage snapshot for a category
func (r *CategoryRepository) UpsertUsage(ctx context.Context, usage *entity.CategoryUsage) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO category_usage (
			category_id, monthly_amount, quarterly_amount, yearly_amount, computed_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category_id) DO UPDATE SET
			monthly_amount = excluded.monthly_amount,
			quarterly_amount = excluded.quarterly_amount,
			yearly_amount = excluded.yearly_amount,
			computed_at = excluded.computed_at
	`,
		usage.CategoryID,
		usage.MonthlyAmount,
		usage.QuarterlyAmount,
		usage.YearlyAmount,
		usage.ComputedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert category usage", zap.Int64("category_id", usage.CategoryID), zap.Error(err))
		return fmt.Errorf("failed to upsert category usage: %w", err)
	}

	return nil
}

// GetUsage retrieves the cached usage snapshot for a category
func (r *CategoryRepository) GetUsage(ctx context.Context, categoryID int64) (*entity.CategoryUsage, error) {
	var usage entity.CategoryUsage
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT category_id, monthly_amount, quarterly_amount, yearly_amount, computed_at
		FROM category_usage WHERE category_id = ?
	`, categoryID).Scan(
		&usage.CategoryID,
		&usage.MonthlyAmount,
		&usage.QuarterlyAmount,
		&usage.YearlyAmount,
		&usage.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("no usage snapshot for category %d", categoryID)
	}
	if err != nil {
		r.logger.Error("Failed to get category usage", zap.Int64("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to get category usage: %w", err)
	}

	return &usage, nil
}

// Verify interface compliance
var _ port.CategoryRepository = (*CategoryRepository)(nil)
