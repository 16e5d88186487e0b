// Package app wires configuration into the running services shared by the
// HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/finance-assistant/pkg/chat"
	"github.com/mikeboe/finance-assistant/pkg/clients"
	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/database"
	"github.com/mikeboe/finance-assistant/pkg/finance"
	"github.com/mikeboe/finance-assistant/pkg/metrics"
)

type App struct {
	Config   *config.Config
	Metrics  *metrics.Recorder
	Registry *finance.Registry
	// Chat is nil when the LLM is not configured.
	Chat *chat.Service
	DB   *database.PostgresDB
}

// New builds the registry and, when possible, the chat service. A missing
// knowledge base or LLM key degrades the app instead of failing it. Database
// errors are returned because DATABASE_URL is opt-in.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.NewRecorder()}

	a.Registry = finance.NewRegistryFromConfig(ctx, cfg.KnowledgeBase,
		finance.WithLogger(slog.Default()),
		finance.WithMetrics(a.Metrics),
	)

	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateAgent(); err != nil {
		slog.Warn("Chat agent disabled", "error", err)
		return a, nil
	}

	responder, err := chat.NewAgentResponder(ctx, cfg, a.Registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init chat agent: %w", err)
	}

	opts := []chat.ServiceOption{chat.WithServiceMetrics(a.Metrics)}
	if llm, err := clients.GoogleAi(ctx, clients.ModelType(cfg.TitleModel), cfg.GoogleApiKey); err != nil {
		slog.Warn("Conversation titles disabled", "error", err)
	} else {
		opts = append(opts, chat.WithTitleGenerator(clients.NewTitleGenerator(llm)))
	}

	a.Chat = chat.NewService(responder, store, opts...)
	return a, nil
}

func (a *App) store(ctx context.Context) (chat.Store, error) {
	if a.Config.DatabaseURL == "" {
		return chat.NewMemoryStore(a.Config.MaxHistory), nil
	}

	db, err := database.NewPostgresDB(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	a.DB = db
	slog.Info("Persisting chat transcripts in Postgres")
	return chat.NewPostgresStore(db, a.Config.MaxHistory), nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
