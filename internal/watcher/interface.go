package watcher

import "context"

// Watcher monitors the inbox directory for media/deck pairs
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// PairHandler processes one matched media/deck pair
type PairHandler func(ctx context.Context, mediaPath, deckPath string) error
