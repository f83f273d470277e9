// Package internal provides the fixture server initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/docview/internal/fixtures"
	"github.com/starford/docview/internal/sse"
)

// Run starts the fixture server with the given options and blocks until it
// is shut down.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stdout, cfg.App.LogLevel)
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("fixtures_path", cfg.Fixtures.Path),
		slog.String("sqlite_path", cfg.Fixtures.SQLitePath),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := fixtures.Open(cfg.Fixtures.SQLitePath)
	if err != nil {
		return fmt.Errorf("init fixture store: %w", err)
	}
	defer store.Close()

	seed, err := fixtures.ReadSeed(cfg.Fixtures.Path)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	broker := sse.NewBroker(2*time.Second, sse.WithKeepAlive(15*time.Second))
	defer broker.Close()

	if err := fixtures.Sync(store, seed, logger, broker.PublishDocumentEvent); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	answerer := fixtures.NewCannedAnswerer(seed.Answers, seed.DefaultAnswer)
	svc := fixtures.NewService(store, answerer, fixtures.WithEvents(broker.PublishDocumentEvent))
	apiRouter := fixtures.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the seed file on change; canned answers follow it.
	if cfg.Fixtures.Path != "" {
		g.Go(func() error {
			err := fixtures.Watch(gCtx, store, cfg.Fixtures.Path, logger,
				func(s *fixtures.Seed) { answerer.Replace(s.Answers, s.DefaultAnswer) },
				broker.PublishDocumentEvent)
			if err != nil {
				logger.Warn("seed watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
