package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"sync_server/config"
	"sync_server/core/domain"
	"sync_server/internal/bootstrap"
	"sync_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if exists (for local development)
	_ = godotenv.Load()

	account := flag.String("account", "", "Account UUID to sync the batch into")
	file := flag.String("file", "", "Path to a JSON file holding the raw message batch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "mailsync",
	})

	if *account == "" || *file == "" {
		logger.Fatal("Both -account and -file are required")
	}

	accountID, err := uuid.Parse(*account)
	if err != nil {
		logger.Fatal("Invalid account id %q: %v", *account, err)
	}

	messages, err := loadBatch(*file)
	if err != nil {
		logger.Fatal("Failed to load batch: %v", err)
	}

	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	// Cancel the batch on SIGINT/SIGTERM; every write is idempotent so a
	// re-run picks up where this one stopped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := deps.SyncService.SyncBatch(ctx, accountID, messages)
	if err != nil {
		logger.Error("Sync aborted: %v", err)
		os.Exit(1)
	}

	logger.Info("Sync finished: %d synced, %d indexed, %d failed of %d",
		result.Synced, result.Indexed, result.Failed, result.Total)
	if result.Failed > 0 {
		os.Exit(2)
	}
}

func loadBatch(path string) ([]*domain.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var messages []*domain.RawMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
