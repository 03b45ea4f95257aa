package audio

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Preparer turns raw media into transcription-ready audio, splitting it
// into chunks when the duration crosses the configured threshold
type Preparer interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, mediaPath string) (string, error)
	Compress(ctx context.Context, audioPath string) (string, error)
	Split(ctx context.Context, audioPath string, chunkMinutes int) ([]domain.AudioChunk, error)
	Prepare(ctx context.Context, mediaPath string) (*Prepared, error)
}

// Prepared is the outcome of the per-job chunking decision. Chunks is
// empty when the audio fits in a single transcription unit.
type Prepared struct {
	AudioPath string
	Duration  float64
	Chunks    []domain.AudioChunk

	tempPaths []string
	chunkDir  string
}
