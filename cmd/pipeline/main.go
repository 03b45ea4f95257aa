package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/audio"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/chapters"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/jobs"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/orchestrator"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/slides"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/storage"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/transcriber"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/watcher"
	"github.com/nguyentantai21042004/chapter-pipeline/pkg/executor"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Chapter Pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "CPU Cores: %d", runtime.NumCPU())
	log.Info(ctx, "Max Concurrent Jobs: %d", cfg.Pipeline.MaxConcurrent)
	log.Info(ctx, "Configuration loaded successfully")

	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	// Initialize dependencies
	exec := executor.New()

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Error(ctx, "Failed to initialize storage: %v", err)
		os.Exit(1)
	}

	repo, err := newRepository(cfg, store)
	if err != nil {
		log.Error(ctx, "Failed to initialize job repository: %v", err)
		os.Exit(1)
	}

	preparer := audio.New(cfg.Audio, exec, log)
	sttClient := transcriber.NewClient(cfg.STT, log)
	engine := transcriber.New(preparer, sttClient, log)
	generator := chapters.New(cfg.Gemini, log)
	extractor := slides.New(exec, store, log)

	orch := orchestrator.New(repo, store, engine, generator, extractor, cfg.Paths.Work, cfg.STT.Language, log)

	// The watcher hands matched pairs to the orchestrator
	intake := func(ctx context.Context, mediaPath, deckPath string) error {
		mediaKey := "uploads/" + filepath.Base(mediaPath)
		deckKey := "uploads/" + filepath.Base(deckPath)

		if err := store.Upload(ctx, mediaPath, mediaKey, "application/octet-stream"); err != nil {
			return fmt.Errorf("upload media: %w", err)
		}
		if err := store.Upload(ctx, deckPath, deckKey, "application/octet-stream"); err != nil {
			return fmt.Errorf("upload deck: %w", err)
		}

		jobID, err := orch.Submit(ctx, mediaKey, deckKey, nil)
		if err != nil {
			return err
		}
		return orch.Run(ctx, jobID)
	}

	w, err := watcher.New(cfg.Paths.Inbox, intake, log, cfg.Pipeline.MaxConcurrent)
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		os.Exit(1)
	}
	defer w.Stop()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start watcher in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	log.Info(ctx, "========================================")
	log.Info(ctx, "Chapter Pipeline is ready!")
	log.Info(ctx, "Inbox: %s", cfg.Paths.Inbox)
	log.Info(ctx, "Storage backend: %s", cfg.Storage.Backend)
	log.Info(ctx, "Job store: %s", cfg.Pipeline.JobStore)
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Watcher error: %v", err)
	}

	// Graceful shutdown
	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	log.Info(ctx, "Chapter Pipeline stopped")
}

func newRepository(cfg *config.Config, store storage.Store) (jobs.Repository, error) {
	if cfg.Pipeline.JobStore == "sqlite" {
		return jobs.OpenSQLite(cfg.Pipeline.SQLitePath)
	}
	return jobs.NewObject(store), nil
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Work,
		cfg.Paths.Inbox,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
