package transcriber

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

// Transcribe prepares the media and transcribes it as one unit or as
// concurrent chunks. The returned Transcript has the same shape either way,
// so callers never need to know whether chunking occurred.
func (e *implEngine) Transcribe(ctx context.Context, mediaPath, language string) (*domain.Transcript, error) {
	prepared, err := e.preparer.Prepare(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	defer prepared.Cleanup(ctx, e.logger)

	if len(prepared.Chunks) == 0 {
		e.logger.Info(ctx, "Transcribing as a single unit (%.2fs)", prepared.Duration)
		return e.unit.TranscribeUnit(ctx, prepared.AudioPath, prepared.Duration, language)
	}

	return e.TranscribeChunks(ctx, prepared.Chunks, language)
}

// TranscribeChunks dispatches one transcription call per chunk, all at
// once, and reassembles the results in chunk-index order. If any chunk
// fails the whole operation fails; a partial transcript would silently
// corrupt chapter and subtitle alignment downstream.
func (e *implEngine) TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, language string) (*domain.Transcript, error) {
	e.logger.Info(ctx, "Starting parallel transcription of %d chunks", len(chunks))

	results := make([]*domain.Transcript, len(chunks))
	g, gctx := errgroup.WithContext(ctx)

	for _, chunk := range chunks {
		g.Go(func() error {
			t, err := e.unit.TranscribeUnit(gctx, chunk.Path, chunk.Duration, language)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", chunk.Index+1, len(chunks), err)
			}
			results[chunk.Index] = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Offsets accumulate the nominal chunk durations, not the measured
	// length of each transcribed chunk: encoders trim trailing silence
	// inconsistently and measured offsets would drift across chunks.
	assembled := make([]domain.TranscriptSegment, 0)
	texts := make([]string, 0, len(chunks))
	detected := language

	var offset float64
	for i, chunk := range chunks {
		t := results[i]
		for _, seg := range t.Segments {
			adjusted := domain.TranscriptSegment{
				Start: seg.Start + offset,
				End:   seg.End + offset,
				Text:  seg.Text,
			}
			if len(seg.Words) > 0 {
				adjusted.Words = make([]domain.Word, 0, len(seg.Words))
				for _, w := range seg.Words {
					adjusted.Words = append(adjusted.Words, domain.Word{
						Start: w.Start + offset,
						End:   w.End + offset,
						Word:  w.Word,
					})
				}
			}
			assembled = append(assembled, adjusted)
		}
		if t.Text != "" {
			texts = append(texts, strings.TrimSpace(t.Text))
		}
		if t.Language != "" {
			detected = t.Language
		}
		offset += chunk.Duration
	}

	sort.SliceStable(assembled, func(i, j int) bool {
		return assembled[i].Start < assembled[j].Start
	})

	var duration float64
	if len(assembled) > 0 {
		duration = assembled[len(assembled)-1].End
	}

	e.logger.Info(ctx, "Assembled %d segments from %d chunks", len(assembled), len(chunks))

	return &domain.Transcript{
		Text:     strings.Join(texts, " "),
		Segments: assembled,
		Language: detected,
		Duration: duration,
	}, nil
}
