package http

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/triplog/expenses/internal/apperror"
	"github.com/triplog/expenses/internal/application/service"
	"github.com/triplog/expenses/internal/domain/entity"
)

// actorContextKey is the gin context key holding the resolved actor
const actorContextKey = "actor"

// dateLayout is the wire format for date-only fields
const dateLayout = "2006-01-02"

// Exporter writes a report with its expenses to a downloadable workbook
type Exporter interface {
	Export(report *entity.Report, expenses []*entity.Expense) (string, error)
}

// Recalculator recomputes a category's budget usage on demand
type Recalculator interface {
	Recalculate(ctx context.Context, categoryID int64) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService service.ExpenseService
	reportService  service.ReportService
	budgetService  service.BudgetService
	exporter       Exporter
	recalculator   Recalculator
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	reportService service.ReportService,
	budgetService service.BudgetService,
	exporter Exporter,
	recalculator Recalculator,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		reportService:  reportService,
		budgetService:  budgetService,
		exporter:       exporter,
		recalculator:   recalculator,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateExpenseRequest represents the expense creation payload
type CreateExpenseRequest struct {
	OwnerID     string  `json:"owner_id"`
	CategoryID  int64   `json:"category_id" binding:"required"`
	Distance    float64 `json:"distance" binding:"required"`
	Rate        float64 `json:"rate" binding:"required"`
	JourneyDate string  `json:"journey_date" binding:"required"`
	Notes       string  `json:"notes"`
}

// UpdateExpenseRequest represents the partial expense update payload
type UpdateExpenseRequest struct {
	CategoryID  *int64   `json:"category_id"`
	Distance    *float64 `json:"distance"`
	Rate        *float64 `json:"rate"`
	JourneyDate *string  `json:"journey_date"`
	Notes       *string  `json:"notes"`
}

// ApproveReportRequest represents the approval payload
type ApproveReportRequest struct {
	ReimbursedAmount *float64 `json:"reimbursed_amount"`
}

// RejectReportRequest represents the rejection payload
type RejectReportRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// QuarterlyReportRequest represents the quarterly snapshot parameters
type QuarterlyReportRequest struct {
	OwnerID string `json:"owner_id" form:"owner_id"`
	Quarter int    `json:"quarter" form:"quarter" binding:"required"`
	Year    int    `json:"year" form:"year" binding:"required"`
}

// CategoryRequest represents the category create/update payload
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// BudgetLimitRequest represents the budget limit create/update payload
type BudgetLimitRequest struct {
	Amount                float64 `json:"amount" binding:"required"`
	Period                string  `json:"period" binding:"required"`
	StartDate             string  `json:"start_date" binding:"required"`
	NotificationThreshold *int    `json:"notification_threshold"`
}

// RecalcRequest represents the internal recalculation payload
type RecalcRequest struct {
	CategoryID int64 `json:"category_id" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	journeyDate, err := time.Parse(dateLayout, req.JourneyDate)
	if err != nil {
		h.badRequest(c, "journey_date must be formatted as YYYY-MM-DD")
		return
	}

	actor := h.actor(c)
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = actor.UserID
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actor, service.CreateExpenseInput{
		OwnerID:     ownerID,
		CategoryID:  req.CategoryID,
		Distance:    req.Distance,
		Rate:        req.Rate,
		JourneyDate: journeyDate,
		Notes:       req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.Get(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// UpdateExpense handles PUT /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	input := service.UpdateExpenseInput{
		CategoryID: req.CategoryID,
		Distance:   req.Distance,
		Rate:       req.Rate,
		Notes:      req.Notes,
	}
	if req.JourneyDate != nil {
		journeyDate, err := time.Parse(dateLayout, *req.JourneyDate)
		if err != nil {
			h.badRequest(c, "journey_date must be formatted as YYYY-MM-DD")
			return
		}
		input.JourneyDate = &journeyDate
	}

	expense, err := h.expenseService.Update(c.Request.Context(), h.actor(c), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), h.actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetReportByPeriod handles GET /api/reports?owner_id=&month=&year=
func (h *Handlers) GetReportByPeriod(c *gin.Context) {
	actor := h.actor(c)

	ownerID := c.Query("owner_id")
	if ownerID == "" {
		ownerID = actor.UserID
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		h.badRequest(c, "month is required")
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		h.badRequest(c, "year is required")
		return
	}

	report, err := h.reportService.GetByPeriod(c.Request.Context(), actor, ownerID, month, year)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.reportService.Get(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// ListReportExpenses handles GET /api/reports/:id/expenses
func (h *Handlers) ListReportExpenses(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListByReport(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ListReportComments handles GET /api/reports/:id/comments
func (h *Handlers) ListReportComments(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	comments, err := h.reportService.Comments(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: comments})
}

// ExportReport handles GET /api/reports/:id/export
func (h *Handlers) ExportReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	actor := h.actor(c)
	report, err := h.reportService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	expenses, err := h.expenseService.ListByReport(c.Request.Context(), actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	path, err := h.exporter.Export(report, expenses)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

// SubmitReport handles POST /api/reports/:id/submit
func (h *Handlers) SubmitReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.reportService.Submit(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// ApproveReport handles POST /api/reports/:id/approve
func (h *Handlers) ApproveReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req ApproveReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}

	report, err := h.reportService.Approve(c.Request.Context(), h.actor(c), id, req.ReimbursedAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// RejectReport handles POST /api/reports/:id/reject
func (h *Handlers) RejectReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req RejectReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "a rejection comment is required")
		return
	}

	report, err := h.reportService.Reject(c.Request.Context(), h.actor(c), id, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: report})
}

// GenerateQuarterlyReport handles POST /api/quarterly-reports
func (h *Handlers) GenerateQuarterlyReport(c *gin.Context) {
	var req QuarterlyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "quarter and year are required")
		return
	}

	actor := h.actor(c)
	if req.OwnerID == "" {
		req.OwnerID = actor.UserID
	}

	snapshot, err := h.reportService.GenerateQuarterly(c.Request.Context(), actor, req.OwnerID, req.Quarter, req.Year)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: snapshot})
}

// GetQuarterlyReport handles GET /api/quarterly-reports?owner_id=&quarter=&year=
func (h *Handlers) GetQuarterlyReport(c *gin.Context) {
	var req QuarterlyReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "quarter and year are required")
		return
	}

	actor := h.actor(c)
	if req.OwnerID == "" {
		req.OwnerID = actor.UserID
	}

	snapshot, err := h.reportService.GetQuarterly(c.Request.Context(), actor, req.OwnerID, req.Quarter, req.Year)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: snapshot})
}

// CreateCategory handles POST /api/categories
func (h *Handlers) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "category name is required")
		return
	}

	category, err := h.budgetService.CreateCategory(c.Request.Context(), h.actor(c), service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: category})
}

// ListCategories handles GET /api/categories?active=true
func (h *Handlers) ListCategories(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	categories, err := h.budgetService.ListCategories(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: categories})
}

// GetCategory handles GET /api/categories/:id
func (h *Handlers) GetCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	category, err := h.budgetService.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: category})
}

// UpdateCategory handles PUT /api/categories/:id
func (h *Handlers) UpdateCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "category name is required")
		return
	}

	category, err := h.budgetService.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	category.Name = req.Name
	category.Description = req.Description
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := h.budgetService.UpdateCategory(c.Request.Context(), h.actor(c), category); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: category})
}

// AddBudgetLimit handles POST /api/categories/:id/limits
func (h *Handlers) AddBudgetLimit(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	input, ok := h.limitInput(c)
	if !ok {
		return
	}

	limit, err := h.budgetService.AddLimit(c.Request.Context(), h.actor(c), categoryID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: limit})
}

// ListBudgetLimits handles GET /api/categories/:id/limits?active=true
func (h *Handlers) ListBudgetLimits(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	limits, err := h.budgetService.ListLimits(c.Request.Context(), categoryID, c.Query("active") == "true")
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: limits})
}

// UpdateBudgetLimit handles PUT /api/categories/:id/limits/:limitID
func (h *Handlers) UpdateBudgetLimit(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limitID, ok := h.pathID(c, "limitID")
	if !ok {
		return
	}

	input, ok := h.limitInput(c)
	if !ok {
		return
	}

	limit, err := h.budgetService.UpdateLimit(c.Request.Context(), h.actor(c), categoryID, limitID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: limit})
}

// DeleteBudgetLimit handles DELETE /api/categories/:id/limits/:limitID
func (h *Handlers) DeleteBudgetLimit(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	limitID, ok := h.pathID(c, "limitID")
	if !ok {
		return
	}

	if err := h.budgetService.DeleteLimit(c.Request.Context(), h.actor(c), categoryID, limitID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetCategoryUsage handles GET /api/categories/:id/usage?start=&end=
func (h *Handlers) GetCategoryUsage(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	start, err := time.Parse(dateLayout, c.Query("start"))
	if err != nil {
		h.badRequest(c, "start must be formatted as YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end"))
	if err != nil {
		h.badRequest(c, "end must be formatted as YYYY-MM-DD")
		return
	}

	usage, err := h.budgetService.Usage(c.Request.Context(), categoryID, start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"category_id": categoryID,
		"start":       start.Format(dateLayout),
		"end":         end.Format(dateLayout),
		"usage":       usage,
	}})
}

// ListBudgetAlerts handles GET /api/categories/:id/alerts?active=true
func (h *Handlers) ListBudgetAlerts(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var alerts []*entity.BudgetAlert
	var err error
	if c.Query("active") == "true" {
		alerts, err = h.budgetService.ActiveAlerts(c.Request.Context(), categoryID)
	} else {
		alerts, err = h.budgetService.EvaluateAlerts(c.Request.Context(), categoryID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: alerts})
}

// RecalculateBudget handles POST /internal/budget/recalc
func (h *Handlers) RecalculateBudget(c *gin.Context) {
	var req RecalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "category_id is required")
		return
	}

	if err := h.recalculator.Recalculate(c.Request.Context(), req.CategoryID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// limitInput parses and validates the shared budget limit payload
func (h *Handlers) limitInput(c *gin.Context) (service.LimitInput, bool) {
	var req BudgetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "amount, period and start_date are required")
		return service.LimitInput{}, false
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.badRequest(c, "start_date must be formatted as YYYY-MM-DD")
		return service.LimitInput{}, false
	}

	return service.LimitInput{
		Amount:                req.Amount,
		Period:                entity.BudgetPeriod(req.Period),
		StartDate:             start,
		NotificationThreshold: req.NotificationThreshold,
	}, true
}

// actor returns the actor resolved by the middleware
func (h *Handlers) actor(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}

// pathID parses a numeric path parameter
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

// badRequest writes a 400 response
func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps an application error to an HTTP response
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}
