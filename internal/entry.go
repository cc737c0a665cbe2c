// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/memora/internal/api"
	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/mcpserver"
	"github.com/starford/memora/internal/ratelimit"
	"github.com/starford/memora/internal/review"
	"github.com/starford/memora/internal/sse"
	"github.com/starford/memora/internal/store"
	pkgconfig "github.com/starford/memora/pkg/config"
)

const limiterSweepInterval = 5 * time.Minute

func newApplication(opts []Option, logOut io.Writer) (*application, *slog.LevelVar, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	level := new(slog.LevelVar)
	level.Set(app.config.App.LogLevel)
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))
	}
	return app, level, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, level, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reviews := review.NewService(db, review.WithNotifier(broker), review.WithLogger(logger))
	decks := deckservice.NewService(db, deckservice.WithLogger(logger))

	var limiter *ratelimit.Limiter
	routerCfg := api.RouterConfig{
		Reviews: reviews,
		Decks:   decks,
		Auth:    cfg.Auth.API(),
		Events:  broker.Handler(api.RequestUserID),
	}
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.Settings())
		routerCfg.Limiter = limiter
	}

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","sse_clients":%d}`, broker.ClientCount(""))
	})

	r.Mount("/api", api.NewRouter(routerCfg))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Signals are trapped before the listener starts.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	if app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, NewDefaultConfig, func(next *Config) {
				applyReload(logger, level, limiter, cfg, next)
			}, logger)
		})
	}

	if limiter != nil {
		g.Go(func() error {
			return limiter.Run(gCtx, limiterSweepInterval)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down once runCtx ends or another goroutine in the group fails.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// Open event streams only end once the broker closes their channels.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
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

// applyReload applies the settings that can change without a restart.
func applyReload(logger *slog.Logger, level *slog.LevelVar, limiter *ratelimit.Limiter, current, next *Config) {
	if level.Level() != next.App.LogLevel {
		level.Set(next.App.LogLevel)
		logger.Info("log level changed", slog.String("log_level", next.App.LogLevel.String()))
	}

	switch {
	case limiter != nil && next.RateLimit.Enabled:
		limiter.SetSettings(next.RateLimit.Settings())
		logger.Info("rate limit updated",
			slog.Int("requests_per_minute", next.RateLimit.RequestsPerMinute),
			slog.Int("burst", next.RateLimit.Burst))
	case (limiter != nil) != next.RateLimit.Enabled:
		logger.Warn("rate_limit.enabled changed; restart required")
	}

	if next.SQLite.Path != current.SQLite.Path || next.App.HTTP.Port != current.App.HTTP.Port || next.Auth != current.Auth {
		logger.Warn("sqlite, http or auth settings changed; restart required")
	}
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	// stdout carries the protocol, so logs go to stderr.
	app, _, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger
	slog.SetDefault(logger)

	db, err := store.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	reviews := review.NewService(db, review.WithLogger(logger))
	decks := deckservice.NewService(db, deckservice.WithLogger(logger))
	srv := mcpserver.New(reviews, decks, app.config.MCP.UserID)

	logger.Info("MCP server starting", slog.String("user_id", app.config.MCP.UserID))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
