package chapters

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Generator derives chapter markers from a transcript and the number of
// slides in the accompanying deck
type Generator interface {
	Generate(ctx context.Context, transcript *domain.Transcript, slideCount int) ([]domain.Chapter, error)
}
