package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/triplog/expenses/internal/application/dispatcher"
	"github.com/triplog/expenses/internal/application/service"
	"github.com/triplog/expenses/internal/config"
	"github.com/triplog/expenses/internal/export"
	"github.com/triplog/expenses/internal/infrastructure/persistence/repository"
	"github.com/triplog/expenses/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/triplog/expenses/internal/interfaces/http"
	"github.com/triplog/expenses/pkg/database"
	"github.com/triplog/expenses/pkg/utils"
)

func main() {
	// Load .env before viper reads the environment
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense tracking service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	txDB := sqlite.NewDB(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(txDB, logger)
	reportRepo := repository.NewReportRepository(txDB, logger)
	quarterlyRepo := repository.NewQuarterlyReportRepository(txDB, logger)
	categoryRepo := repository.NewCategoryRepository(txDB, logger)
	limitRepo := repository.NewBudgetLimitRepository(txDB, logger)

	sugar := utils.NewSugarAdapter(logger)

	// Initialize event dispatcher and services
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(sugar))
	defer events.Close()

	expenseService := service.NewExpenseService(expenseRepo, reportRepo, txDB, events, sugar)
	reportService := service.NewReportService(reportRepo, quarterlyRepo, expenseRepo, txDB, sugar)
	budgetService := service.NewBudgetService(categoryRepo, limitRepo, expenseRepo, sugar)

	recalc := service.NewBudgetRecalcHandler(budgetService, sugar)
	recalc.Register(events)

	exporter, err := export.NewReportExporter(cfg.Export.OutputDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize report exporter", zap.Error(err))
	}

	// Initialize HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:          cfg.Server.Host,
			Port:          cfg.Server.Port,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			InternalToken: cfg.Internal.Token,
		},
		expenseService,
		reportService,
		budgetService,
		exporter,
		recalc,
		sugar,
	)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
