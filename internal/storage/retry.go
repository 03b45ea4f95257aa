package storage

import (
	"context"
	"time"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

// RetryOptions bounds retries and the size-scaled download timeout
type RetryOptions struct {
	MaxRetries   int
	SecondsPerMB float64
	MinTimeout   time.Duration
	// Backoff between attempts; exported so tests can shrink it
	Backoff time.Duration
}

type implRetryStore struct {
	inner Store
	opts  RetryOptions
	log   logger.Logger
}

// WithRetry decorates a Store with bounded retries on transient errors
// and a download timeout that scales with object size.
func WithRetry(inner Store, opts RetryOptions, log logger.Logger) Store {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.SecondsPerMB <= 0 {
		opts.SecondsPerMB = 2
	}
	if opts.MinTimeout <= 0 {
		opts.MinTimeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &implRetryStore{inner: inner, opts: opts, log: log}
}

// downloadTimeout scales the hard bound with object size so large media
// is not killed by a fixed ceiling
func (s *implRetryStore) downloadTimeout(sizeBytes int64) time.Duration {
	timeout := time.Duration(float64(sizeBytes)/(1024*1024)*s.opts.SecondsPerMB) * time.Second
	if timeout < s.opts.MinTimeout {
		return s.opts.MinTimeout
	}
	return timeout
}

func (s *implRetryStore) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			s.log.Warn(ctx, "Retrying %s (attempt %d/%d): %v", op, attempt, s.opts.MaxRetries, err)
			select {
			case <-time.After(time.Duration(attempt) * s.opts.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
	}
	return err
}

func (s *implRetryStore) Download(ctx context.Context, key string) (string, error) {
	// Each attempt writes a fresh temp file, so a failed attempt can
	// never leave a corrupted partial download behind for the caller.
	timeout := s.opts.MinTimeout
	if size, err := s.inner.Size(ctx, key); err == nil {
		timeout = s.downloadTimeout(size)
	}

	var localPath string
	err := s.retry(ctx, "download "+key, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		path, err := s.inner.Download(attemptCtx, key)
		if err != nil {
			return err
		}
		localPath = path
		return nil
	})
	if err != nil {
		return "", err
	}
	return localPath, nil
}

func (s *implRetryStore) Upload(ctx context.Context, localPath, key, contentType string) error {
	return s.retry(ctx, "upload "+key, func() error {
		return s.inner.Upload(ctx, localPath, key, contentType)
	})
}

func (s *implRetryStore) UploadContent(ctx context.Context, content []byte, key, contentType string) error {
	return s.retry(ctx, "upload "+key, func() error {
		return s.inner.UploadContent(ctx, content, key, contentType)
	})
}

func (s *implRetryStore) Copy(ctx context.Context, srcKey, destKey string) error {
	return s.retry(ctx, "copy "+srcKey, func() error {
		return s.inner.Copy(ctx, srcKey, destKey)
	})
}

func (s *implRetryStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}

func (s *implRetryStore) Size(ctx context.Context, key string) (int64, error) {
	return s.inner.Size(ctx, key)
}
