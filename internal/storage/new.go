package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

// New creates the configured Store backend wrapped with retry behavior
func New(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Store, error) {
	var inner Store
	var err error

	switch cfg.Backend {
	case "fs":
		inner, err = NewFS(cfg.Root)
	case "s3":
		inner, err = NewS3(ctx, S3Options{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(inner, RetryOptions{
		MaxRetries:   cfg.MaxRetries,
		SecondsPerMB: cfg.SecondsPerMB,
		MinTimeout:   time.Duration(cfg.MinTimeoutSecond) * time.Second,
	}, log), nil
}
