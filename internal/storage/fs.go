package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type implFSStore struct {
	root string
}

// NewFS creates a Store backed by a local directory tree
func NewFS(root string) (Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &implFSStore{root: root}, nil
}

func (s *implFSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *implFSStore) Download(ctx context.Context, key string) (string, error) {
	src, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("object %s: %w", key, err)
		}
		return "", fmt.Errorf("open object %s: %w", key, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "store-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("copy object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), nil
}

func (s *implFSStore) Upload(ctx context.Context, localPath, key, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return s.UploadContent(ctx, data, key, contentType)
}

func (s *implFSStore) UploadContent(ctx context.Context, content []byte, key, contentType string) error {
	dest := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	// Write-then-rename so a concurrent reader never sees a partial object
	tmp := dest + ".part"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

func (s *implFSStore) Copy(ctx context.Context, srcKey, destKey string) error {
	data, err := os.ReadFile(s.path(srcKey))
	if err != nil {
		return fmt.Errorf("read object %s: %w", srcKey, err)
	}
	return s.UploadContent(ctx, data, destKey, "")
}

func (s *implFSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s: %w", key, err)
}

func (s *implFSStore) Size(ctx context.Context, key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0, fmt.Errorf("stat object %s: %w", key, err)
	}
	return info.Size(), nil
}
