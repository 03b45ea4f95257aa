package transcriber

import (
	"context"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// UnitTranscriber performs the external speech-to-text call for one
// audio unit (a whole file or a single chunk)
type UnitTranscriber interface {
	TranscribeUnit(ctx context.Context, audioPath string, durationSeconds float64, language string) (*domain.Transcript, error)
}

// Engine converts prepared audio into a single time-ordered transcript,
// fanning chunk transcriptions out concurrently when chunking was needed
type Engine interface {
	Transcribe(ctx context.Context, mediaPath, language string) (*domain.Transcript, error)
	TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, language string) (*domain.Transcript, error)
}
