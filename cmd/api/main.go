package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/handler"
	"github.com/Dan9191/credit-dashboard/internal/integrations/cbr"
	"github.com/Dan9191/credit-dashboard/internal/integrations/llm"
	"github.com/Dan9191/credit-dashboard/internal/metrics"
	"github.com/Dan9191/credit-dashboard/internal/middleware"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/Dan9191/credit-dashboard/internal/scheduler"
	"github.com/Dan9191/credit-dashboard/internal/service"
	"github.com/Dan9191/credit-dashboard/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load dataset
	store, err := repository.NewDatasetStore(cfg.DataPath)
	if err != nil {
		logger.Fatalf("Failed to load dataset: %v", err)
	}
	ds := store.Current()
	logger.WithFields(logrus.Fields{
		"records":  ds.Len(),
		"source":   ds.Source(),
		"labelled": ds.HasRisk(),
	}).Info("Dataset loaded")

	// Initialize insight archive
	var db *sql.DB
	if cfg.DBConn != "" {
		db, err = sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
	}
	repo := repository.NewRepository(db)
	if repo.Enabled() {
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare insight archive: %v", err)
		}
		logger.Info("Insight archive enabled")
	}

	// Initialize integrations
	narrator, err := llm.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize %s narrator: %v", cfg.LLMProvider, err)
	}
	logger.Infof("Narrative provider: %s", cfg.LLMProvider)

	m := metrics.New()
	opts := []service.Option{service.WithNarrator(narrator), service.WithMetrics(m)}
	if cfg.KeyRateURL != "" {
		opts = append(opts, service.WithKeyRateSource(cbr.NewClient(cfg.KeyRateURL, logger)))
	}

	// Initialize layers
	svc := service.NewService(store, repo, logger, cfg, opts...)
	if err := svc.RefreshKeyRate(ctx); err != nil {
		logger.Warnf("Key rate unavailable: %v", err)
	}
	limiter := middleware.NewRateLimiter(cfg.InsightRatePerMin, cfg.InsightRatePerMin, logger)
	h := handler.NewHandler(svc, limiter, logger)
	r := handler.NewRouter(h, cfg, m, logger)

	// Background jobs
	schedOpts := []scheduler.Option{scheduler.WithLimiter(limiter)}
	if cfg.DigestSchedule != "" {
		schedOpts = append(schedOpts, scheduler.WithDigest(email.NewSender(cfg, logger)))
	}
	sched, err := scheduler.New(svc, cfg, logger, schedOpts...)
	if err != nil {
		logger.Fatalf("Failed to schedule jobs: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 10*time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
