// Package bootstrap wires infrastructure adapters to the core use cases
// so both binaries share one composition root.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dermadoc/backend/internal/config"
	"github.com/dermadoc/backend/internal/core/ports"
	"github.com/dermadoc/backend/internal/core/usecase"
	"github.com/dermadoc/backend/internal/infrastructure/classifier/lesionnet"
	"github.com/dermadoc/backend/internal/infrastructure/llm/gemini"
	"github.com/dermadoc/backend/internal/infrastructure/queue/nats"
	"github.com/dermadoc/backend/internal/infrastructure/repository/postgres"
	"github.com/dermadoc/backend/internal/infrastructure/resilience"
	"github.com/dermadoc/backend/internal/infrastructure/storage/localfs"
)

// App holds the wired dependencies a binary picks from. The API serves
// SubmitUC/QueryUC/AuthUC/ChatUC; the worker consumes Queue and runs
// ProcessUC.
type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Store ports.ImageStore

	SubmitUC  ports.CheckSubmitter
	ProcessUC ports.CheckProcessor
	QueryUC   ports.CheckQueryService
	AuthUC    ports.AuthService
	ChatUC    ports.ChatService

	db    *sql.DB
	queue *nats.Queue
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Concurrency:        cfg.WorkerConcurrency,
		ResilienceExecutor: executor,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	checks := postgres.NewSkinCheckRepository(db)
	users := postgres.NewUserRepository(db)

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, executor)
	classifier := lesionnet.New(lesionnet.Options{
		WeightsPath: cfg.ModelWeightsPath,
		Parallelism: cfg.InferenceParallelism,
	})

	app := &App{
		Config: cfg,
		Queue:  queue,
		Store:  store,

		SubmitUC: usecase.NewSubmitCheckUseCase(checks, store, queue),
		ProcessUC: usecase.NewProcessCheckUseCase(
			checks,
			store,
			classifier,
			gemini.NewEnricher(geminiClient),
		),
		QueryUC: usecase.NewCheckQueryUseCase(checks, store),
		AuthUC: usecase.NewAuthUseCase(
			users,
			cfg.JWTSecret,
			time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		),
		ChatUC: usecase.NewChatUseCase(gemini.NewChatRelay(geminiClient), cfg.ChatHistoryLimit),

		db:    db,
		queue: queue,
	}
	return app, nil
}

func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("close postgres", "error", err)
		}
	}
}
