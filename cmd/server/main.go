package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mikeboe/finance-assistant/pkg/app"
	"github.com/mikeboe/finance-assistant/pkg/config"
	"github.com/mikeboe/finance-assistant/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handler := server.NewHandler(a.Registry, a.Chat, a.Registry, a.Metrics)
	r := server.NewEngine(handler)

	slog.Info("Server starting", "port", cfg.Port, "degraded", a.Registry.Degraded(), "chat", a.Chat != nil)
	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
