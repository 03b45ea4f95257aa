package storage

import "context"

// Store defines the interface for durable blob storage.
// Keys are slash-separated paths relative to the configured root or bucket.
type Store interface {
	// Download fetches the object into a private temp file and returns its path.
	// The caller owns the returned file and removes it when done.
	Download(ctx context.Context, key string) (string, error)

	// Upload stores a local file under key
	Upload(ctx context.Context, localPath, key, contentType string) error

	// UploadContent stores raw bytes under key
	UploadContent(ctx context.Context, content []byte, key, contentType string) error

	// Copy duplicates an object inside the store
	Copy(ctx context.Context, srcKey, destKey string) error

	// Exists reports whether an object is present
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the object size in bytes
	Size(ctx context.Context, key string) (int64, error)
}
