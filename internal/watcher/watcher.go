package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

var (
	mediaExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v", ".flv", ".mp3", ".wav", ".m4a"}
	deckExtensions  = []string{".pdf", ".ppt", ".pptx"}
)

type implWatcher struct {
	inboxDir      string
	handler       PairHandler
	logger        logger.Logger
	watcher       *fsnotify.Watcher
	maxConcurrent int
	semaphore     chan struct{}
	wg            sync.WaitGroup

	mu      sync.Mutex
	claimed map[string]bool
}

// Start monitors the inbox. A job launches once both halves of a pair
// are present: a media file and a deck file sharing the same stem.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Inbox watcher started (max concurrent: %d). Monitoring: %s", w.maxConcurrent, w.inboxDir)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for ongoing jobs to complete...")
			w.wg.Wait()
			w.logger.Info(ctx, "Inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}

			mediaPath, deckPath, ok := w.completePair(event.Name)
			if !ok {
				continue
			}
			w.logger.Info(ctx, "New pair detected: %s + %s", filepath.Base(mediaPath), filepath.Base(deckPath))

			// Small delay to ensure files are fully written
			time.Sleep(500 * time.Millisecond)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(media, deck string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					if err := w.handler(ctx, media, deck); err != nil {
						w.logger.Error(ctx, "Failed to process %s: %v", filepath.Base(media), err)
						w.release(media)
					}
				}(mediaPath, deckPath)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

// completePair resolves the new file's counterpart and claims the stem
// so a pair only launches one job no matter which half arrived last
func (w *implWatcher) completePair(path string) (mediaPath, deckPath string, ok bool) {
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.TrimSuffix(path, filepath.Ext(path))

	switch {
	case hasExtension(ext, mediaExtensions):
		mediaPath = path
		deckPath = findCounterpart(stem, deckExtensions)
	case hasExtension(ext, deckExtensions):
		deckPath = path
		mediaPath = findCounterpart(stem, mediaExtensions)
	default:
		return "", "", false
	}

	if mediaPath == "" || deckPath == "" {
		return "", "", false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed[stem] {
		return "", "", false
	}
	w.claimed[stem] = true
	return mediaPath, deckPath, true
}

// release frees a stem after a failed run so a re-dropped pair retries
func (w *implWatcher) release(mediaPath string) {
	stem := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))
	w.mu.Lock()
	delete(w.claimed, stem)
	w.mu.Unlock()
}

func findCounterpart(stem string, extensions []string) string {
	for _, ext := range extensions {
		candidate := stem + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func hasExtension(ext string, list []string) bool {
	for _, e := range list {
		if ext == e {
			return true
		}
	}
	return false
}
