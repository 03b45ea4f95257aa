package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

// flakyStore fails a fixed number of times before succeeding
type flakyStore struct {
	Store
	failures  int
	calls     int
	transient bool
}

func (f *flakyStore) Download(ctx context.Context, key string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.transient {
			return "", &domain.TransientError{Op: "download " + key, Err: errors.New("connection reset")}
		}
		return "", errors.New("access denied")
	}
	return f.Store.Download(ctx, key)
}

func newTestFS(t *testing.T) Store {
	t.Helper()
	inner, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return inner
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	ctx := context.Background()
	inner := newTestFS(t)
	if err := inner.UploadContent(ctx, []byte("hello"), "media/talk.mp4", "video/mp4"); err != nil {
		t.Fatal(err)
	}

	flaky := &flakyStore{Store: inner, failures: 2, transient: true}
	store := WithRetry(flaky, RetryOptions{MaxRetries: 3, Backoff: time.Millisecond}, logger.New("error"))

	path, err := store.Download(ctx, "media/talk.mp4")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("downloaded content = %q, want hello", data)
	}
	if flaky.calls != 3 {
		t.Errorf("calls = %d, want 3", flaky.calls)
	}
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: newTestFS(t), failures: 10, transient: true}
	store := WithRetry(flaky, RetryOptions{MaxRetries: 2, Backoff: time.Millisecond}, logger.New("error"))

	_, err := store.Download(ctx, "media/talk.mp4")
	if err == nil {
		t.Fatal("expected error after retry budget exhausted")
	}
	if !domain.IsTransient(err) {
		t.Errorf("exhausted retries should surface the transient error, got %v", err)
	}
	// initial attempt + 2 retries
	if flaky.calls != 3 {
		t.Errorf("calls = %d, want 3", flaky.calls)
	}
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: newTestFS(t), failures: 10, transient: false}
	store := WithRetry(flaky, RetryOptions{MaxRetries: 3, Backoff: time.Millisecond}, logger.New("error"))

	_, err := store.Download(ctx, "media/talk.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if flaky.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent error)", flaky.calls)
	}
}

func TestDownloadTimeoutScalesWithSize(t *testing.T) {
	store := WithRetry(newTestFS(t), RetryOptions{
		SecondsPerMB: 2,
		MinTimeout:   30 * time.Second,
	}, logger.New("error")).(*implRetryStore)

	tests := []struct {
		name  string
		bytes int64
		want  time.Duration
	}{
		{"small object uses floor", 1024, 30 * time.Second},
		{"100MB scales", 100 * 1024 * 1024, 200 * time.Second},
		{"1GB scales", 1024 * 1024 * 1024, 2048 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.downloadTimeout(tt.bytes); got != tt.want {
				t.Errorf("downloadTimeout(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestFS(t)

	if err := store.UploadContent(ctx, []byte("subtitle data"), "outputs/job_1/subtitles.srt", "text/plain"); err != nil {
		t.Fatalf("UploadContent() error = %v", err)
	}

	ok, err := store.Exists(ctx, "outputs/job_1/subtitles.srt")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v, want true", ok, err)
	}

	size, err := store.Size(ctx, "outputs/job_1/subtitles.srt")
	if err != nil || size != int64(len("subtitle data")) {
		t.Fatalf("Size() = %d, %v", size, err)
	}

	if err := store.Copy(ctx, "outputs/job_1/subtitles.srt", "outputs/job_1/copy.srt"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	path, err := store.Download(ctx, "outputs/job_1/copy.srt")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	defer os.Remove(path)

	data, _ := os.ReadFile(path)
	if string(data) != "subtitle data" {
		t.Errorf("content = %q, want %q", data, "subtitle data")
	}

	ok, err = store.Exists(ctx, "outputs/missing.txt")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v, want false, nil", ok, err)
	}
}
