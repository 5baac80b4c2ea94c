package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kidsquiz/quiz-server/internal/attempt"
	"github.com/kidsquiz/quiz-server/internal/auth"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
	"github.com/kidsquiz/quiz-server/internal/httpapi"
	"github.com/kidsquiz/quiz-server/internal/importer"
	"github.com/kidsquiz/quiz-server/internal/platform/cache"
	"github.com/kidsquiz/quiz-server/internal/platform/config"
	"github.com/kidsquiz/quiz-server/internal/platform/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	redis, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		return fmt.Errorf("connecting to cache: %w", err)
	}
	defer redis.Close()

	quizzes, err := hierarchy.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	attempts, err := attempt.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	users, err := auth.NewPostgresUsers(db.Pool)
	if err != nil {
		return err
	}

	gate := auth.NewGate(users, cfg.Auth.BcryptCost, logger)
	sessions := auth.NewRedisSessions(redis)
	feed := httpapi.NewFeed(logger)
	engine := attempt.NewEngine(attempt.EngineConfig{
		Quizzes:  quizzes,
		Attempts: attempts,
		Notify:   feed.Publish,
		Logger:   logger,
	})
	bulkImporter := importer.New(quizzes)

	if cfg.Auth.AdminUsername != "" {
		if err := gate.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrapping admin: %w", err)
		}
	}

	if cfg.SeedPath != "" {
		if err := seed(ctx, cfg.SeedPath, quizzes); err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
	}

	api := httpapi.New(httpapi.Config{
		Gate:       gate,
		Sessions:   sessions,
		SessionTTL: time.Duration(cfg.Auth.SessionTTL) * time.Minute,
		Hierarchy:  quizzes,
		Engine:     engine,
		Attempts:   attempts,
		Importer:   bulkImporter,
		Feed:       feed,
		Checks:     map[string]httpapi.Checker{"database": db, "cache": redis},
		Logger:     logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// seed imports every subject tree found under dir. Seeds merge by name, so
// restarting with the same seed directory is a no-op.
func seed(ctx context.Context, dir string, sink importer.Sink) error {
	docs, err := importer.LoadSeedDir(dir)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		summary, err := sink.ImportDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("importing seed subject %q: %w", doc.Subject.Name, err)
		}
		slog.Info("seed subject imported",
			"subject", doc.Subject.Name,
			"created", summary.Created,
			"reused", summary.Reused,
		)
	}
	return nil
}

// newLogger builds the process logger from config. Unknown levels fall back
// to info, unknown formats to JSON.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
