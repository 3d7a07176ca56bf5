// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/triplog/expenses/internal/application/service"
	"github.com/triplog/expenses/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// InternalToken guards the /internal routes.
	InternalToken string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	expenseService service.ExpenseService,
	reportService service.ReportService,
	budgetService service.BudgetService,
	exporter Exporter,
	recalculator Recalculator,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(expenseService, reportService, budgetService, exporter, recalculator, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// actorMiddleware resolves the acting user from the identity headers set by
// the upstream auth proxy. Requests without an identity are rejected.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing X-User-ID header",
			})
			return
		}

		role := entity.RoleUser
		if c.GetHeader("X-User-Role") == string(entity.RoleAdmin) {
			role = entity.RoleAdmin
		}

		c.Set(actorContextKey, entity.Actor{UserID: userID, Role: role})
		c.Next()
	}
}

// internalAuthMiddleware guards the internal routes with a shared token
func (s *Server) internalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Internal-Token")
		if token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.config.InternalToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid internal token",
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api")
	api.Use(s.actorMiddleware())
	{
		// Expenses
		api.POST("/expenses", s.handlers.CreateExpense)
		api.GET("/expenses/:id", s.handlers.GetExpense)
		api.PUT("/expenses/:id", s.handlers.UpdateExpense)
		api.DELETE("/expenses/:id", s.handlers.DeleteExpense)

		// Monthly reports
		api.GET("/reports", s.handlers.GetReportByPeriod)
		api.GET("/reports/:id", s.handlers.GetReport)
		api.GET("/reports/:id/expenses", s.handlers.ListReportExpenses)
		api.GET("/reports/:id/comments", s.handlers.ListReportComments)
		api.GET("/reports/:id/export", s.handlers.ExportReport)
		api.POST("/reports/:id/submit", s.handlers.SubmitReport)
		api.POST("/reports/:id/approve", s.handlers.ApproveReport)
		api.POST("/reports/:id/reject", s.handlers.RejectReport)

		// Quarterly snapshots
		api.POST("/quarterly-reports", s.handlers.GenerateQuarterlyReport)
		api.GET("/quarterly-reports", s.handlers.GetQuarterlyReport)

		// Categories and budget limits
		api.POST("/categories", s.handlers.CreateCategory)
		api.GET("/categories", s.handlers.ListCategories)
		api.GET("/categories/:id", s.handlers.GetCategory)
		api.PUT("/categories/:id", s.handlers.UpdateCategory)
		api.POST("/categories/:id/limits", s.handlers.AddBudgetLimit)
		api.GET("/categories/:id/limits", s.handlers.ListBudgetLimits)
		api.PUT("/categories/:id/limits/:limitID", s.handlers.UpdateBudgetLimit)
		api.DELETE("/categories/:id/limits/:limitID", s.handlers.DeleteBudgetLimit)
		api.GET("/categories/:id/usage", s.handlers.GetCategoryUsage)
		api.GET("/categories/:id/alerts", s.handlers.ListBudgetAlerts)
	}

	// Internal routes for operational tooling
	internal := s.router.Group("/internal")
	internal.Use(s.internalAuthMiddleware())
	{
		internal.POST("/budget/recalc", s.handlers.RecalculateBudget)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
