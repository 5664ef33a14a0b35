package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-scoring-api/internal/config"
	"credit-scoring-api/internal/database"
	"credit-scoring-api/internal/handler"
	"credit-scoring-api/internal/middleware"
	"credit-scoring-api/internal/repository"
	"credit-scoring-api/internal/router"
	"credit-scoring-api/internal/scoring"
	"credit-scoring-api/internal/service"
)

const version = "2.0.0"

type App struct {
	server *http.Server
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	predictionRepo := repository.NewPredictionRepository(pool)
	slog.Info("database ready")

	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, userRepo)
	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	// The scorer is optional at startup: without it the service still
	// serves auth, history and stats, and /predictions/predict returns
	// a model-unavailable error.
	var scorer scoring.Scorer
	if m, loadErr := scoring.Load(cfg.ModelPath, cfg.DecisionThreshold); loadErr != nil {
		slog.Error("scoring model not loaded", "path", cfg.ModelPath, "error", loadErr)
	} else {
		scorer = m
		slog.Info("scoring model loaded", "path", cfg.ModelPath, "version", m.Version())
	}

	decisionService := service.NewDecisionService(scorer, cfg.DecisionThreshold, predictionRepo, userRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Prediction: handler.NewPredictionHandler(decisionService),
		Admin:      handler.NewAdminHandler(authService, decisionService),
		Model:      handler.NewModelHandler(decisionService),
		Health:     handler.NewHealthHandler(db.Health, decisionService.ModelLoaded, version),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.db.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.db.Close()

	slog.Info("server stopped")
	return nil
}
