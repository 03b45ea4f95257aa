package slides

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Extractor renders a slide deck into per-slide images, publishes them
// to the object store, and packages them into a downloadable zip
type Extractor interface {
	Extract(ctx context.Context, deckPath, workDir string) ([]string, error)
	Publish(ctx context.Context, jobID string, imagePaths []string) (*domain.SlideSet, error)
	Package(ctx context.Context, jobID, workDir string, imagePaths []string, includeQA bool) (string, error)
}
