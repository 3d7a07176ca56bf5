package service

import (
	"context"

	"github.com/triplog/expenses/internal/application/dispatcher"
	"github.com/triplog/expenses/internal/domain/entity"
	"github.com/triplog/expenses/internal/domain/event"
)

// BudgetRecalcHandler refreshes cached category usage and evaluates budget
// alerts whenever an expense mutation commits. It runs on the async side of
// the dispatcher: its failures are logged and never surface to the write
// that triggered it.
type BudgetRecalcHandler struct {
	budgets BudgetService
	logger  Logger
}

// NewBudgetRecalcHandler creates a new BudgetRecalcHandler
func NewBudgetRecalcHandler(budgets BudgetService, logger Logger) *BudgetRecalcHandler {
	return &BudgetRecalcHandler{budgets: budgets, logger: logger}
}

// Register subscribes the handler to all expense mutation events
func (h *BudgetRecalcHandler) Register(d dispatcher.Dispatcher) {
	for _, eventType := range []event.Type{
		event.TypeExpenseCreated,
		event.TypeExpenseUpdated,
		event.TypeExpenseDeleted,
	} {
		d.SubscribeNamed(eventType, "budget-recalc", h.Handle)
	}
}

// Handle recomputes usage for every category the mutation touched
func (h *BudgetRecalcHandler) Handle(ctx context.Context, evt *event.Event) error {
	for _, categoryID := range evt.CategoryIDs {
		if err := h.Recalculate(ctx, categoryID); err != nil {
			h.logger.Error("Budget recalculation failed",
				"category_id", categoryID,
				"event_id", evt.ID,
				"error", err,
			)
		}
	}
	return nil
}

// Recalculate refreshes one category's usage cache and logs any limits that
// crossed their notification threshold
func (h *BudgetRecalcHandler) Recalculate(ctx context.Context, categoryID int64) error {
	if _, err := h.budgets.RefreshUsage(ctx, categoryID); err != nil {
		return err
	}

	alerts, err := h.budgets.ActiveAlerts(ctx, categoryID)
	if err != nil {
		return err
	}
	for _, alert := range alerts {
		msg := "Budget threshold crossed"
		if alert.Status == entity.AlertStatusExceeded {
			msg = "Budget limit exceeded"
		}
		h.logger.Info(msg,
			"category_id", alert.CategoryID,
			"limit_id", alert.LimitID,
			"period", alert.Period,
			"usage", alert.Usage,
			"limit", alert.LimitAmount,
			"usage_percent", alert.UsagePercent,
		)
	}
	return nil
}
