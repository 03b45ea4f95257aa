package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac", ".wma"}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range audioExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// ProbeDuration queries the media duration in seconds via ffprobe.
// Unreadable or zero-duration input is fatal for the job.
func (p *implPreparer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := p.executor.Execute(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, &domain.FatalMediaError{Path: path, Reason: fmt.Sprintf("probe failed: %v", err)}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, &domain.FatalMediaError{Path: path, Reason: fmt.Sprintf("unparseable duration %q", strings.TrimSpace(out))}
	}
	if duration <= 0 {
		return 0, &domain.FatalMediaError{Path: path, Reason: "zero duration"}
	}

	return duration, nil
}

// ExtractAudio isolates the audio track as 16kHz mono WAV. Inputs that
// are already audio files pass through untouched.
func (p *implPreparer) ExtractAudio(ctx context.Context, mediaPath string) (string, error) {
	if isAudioFile(mediaPath) {
		p.logger.Info(ctx, "Audio file detected, using directly: %s", mediaPath)
		return mediaPath, nil
	}

	audioPath := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".wav"
	p.logger.Info(ctx, "Extracting audio: %s", mediaPath)

	// 16kHz mono is the minimum fidelity speech models need
	args := []string{
		"-i", mediaPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-y",
		audioPath,
	}

	if _, err := p.executor.Execute(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	p.logger.Info(ctx, "Audio extracted successfully: %s", audioPath)
	return audioPath, nil
}

// Compress re-encodes to a low-bitrate mono mp3 to get under the
// transcription API size ceiling
func (p *implPreparer) Compress(ctx context.Context, audioPath string) (string, error) {
	outputPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + "_compressed.mp3"

	p.logger.Info(ctx, "Compressing audio: %s", audioPath)

	args := []string{
		"-i", audioPath,
		"-ac", "1",
		"-ar", "16000",
		"-b:a", p.cfg.CompressBitrate,
		"-y",
		outputPath,
	}

	if _, err := p.executor.Execute(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("ffmpeg compress audio: %w", err)
	}

	return outputPath, nil
}

// Split divides the audio into fixed windows of chunkMinutes. The final
// chunk may be shorter; a near-zero final chunk is still kept.
func (p *implPreparer) Split(ctx context.Context, audioPath string, chunkMinutes int) ([]domain.AudioChunk, error) {
	duration, err := p.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	chunkDir := filepath.Join(filepath.Dir(audioPath), "chunks")
	if err := os.MkdirAll(chunkDir, 0755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	plan := splitPlan(duration, float64(chunkMinutes)*60)
	p.logger.Info(ctx, "Splitting %.2fs of audio into %d chunks of %d minutes", duration, len(plan), chunkMinutes)

	chunks := make([]domain.AudioChunk, 0, len(plan))
	for _, window := range plan {
		chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.mp3", window.Index))

		args := []string{
			"-i", audioPath,
			"-ss", strconv.FormatFloat(window.Start, 'f', -1, 64),
			"-t", strconv.FormatFloat(window.Window, 'f', -1, 64),
			"-ac", "1",
			"-ar", "16000",
			"-b:a", p.cfg.CompressBitrate,
			"-y",
			chunkPath,
		}
		if _, err := p.executor.Execute(ctx, "ffmpeg", args...); err != nil {
			return nil, fmt.Errorf("ffmpeg split chunk %d: %w", window.Index, err)
		}

		chunks = append(chunks, domain.AudioChunk{
			Index:    window.Index,
			Start:    window.Start,
			Duration: window.Duration,
			Path:     chunkPath,
		})
	}

	p.logger.Info(ctx, "Split audio into %d chunks", len(chunks))
	return chunks, nil
}

// chunkWindow is one planned split window. Window is the length passed
// to ffmpeg (the full chunk size), Duration the nominal coverage which
// is shorter only for the final chunk.
type chunkWindow struct {
	Index    int
	Start    float64
	Window   float64
	Duration float64
}

// splitPlan covers [0, duration) in fixed windows with no gap or overlap
func splitPlan(duration, chunkSeconds float64) []chunkWindow {
	count := int(math.Ceil(duration / chunkSeconds))
	if count < 1 {
		count = 1
	}

	plan := make([]chunkWindow, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkSeconds
		nominal := chunkSeconds
		if remaining := duration - start; remaining < nominal {
			nominal = remaining
		}
		plan = append(plan, chunkWindow{
			Index:    i,
			Start:    start,
			Window:   chunkSeconds,
			Duration: nominal,
		})
	}
	return plan
}

// Prepare runs the per-job decision policy: extract, compress when the
// file exceeds the API size ceiling, and split when duration exceeds
// the chunking threshold.
func (p *implPreparer) Prepare(ctx context.Context, mediaPath string) (*Prepared, error) {
	audioPath, err := p.ExtractAudio(ctx, mediaPath)
	if err != nil {
		return nil, err
	}

	prepared := &Prepared{AudioPath: audioPath}
	if audioPath != mediaPath {
		prepared.tempPaths = append(prepared.tempPaths, audioPath)
	}

	duration, err := p.ProbeDuration(ctx, audioPath)
	if err != nil {
		prepared.Cleanup(ctx, p.logger)
		return nil, err
	}
	prepared.Duration = duration

	info, err := os.Stat(audioPath)
	if err != nil {
		prepared.Cleanup(ctx, p.logger)
		return nil, fmt.Errorf("stat audio: %w", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	p.logger.Info(ctx, "Prepared audio: %.2f MB, %.2f seconds", sizeMB, duration)

	stillOversized := false
	if sizeMB > float64(p.cfg.MaxUploadMB) {
		p.logger.Info(ctx, "Audio exceeds %d MB ceiling, compressing", p.cfg.MaxUploadMB)
		compressed, err := p.Compress(ctx, audioPath)
		if err != nil {
			prepared.Cleanup(ctx, p.logger)
			return nil, err
		}
		prepared.AudioPath = compressed
		prepared.tempPaths = append(prepared.tempPaths, compressed)

		info, err := os.Stat(compressed)
		if err != nil {
			prepared.Cleanup(ctx, p.logger)
			return nil, fmt.Errorf("stat compressed audio: %w", err)
		}
		compressedMB := float64(info.Size()) / (1024 * 1024)
		if compressedMB > float64(p.cfg.MaxUploadMB) {
			p.logger.Warn(ctx, "Compressed audio is still %.2f MB, splitting into chunks", compressedMB)
			stillOversized = true
		}
	}

	if stillOversized || duration > float64(p.cfg.SplitThresholdMinutes)*60 {
		if duration > float64(p.cfg.SplitThresholdMinutes)*60 {
			p.logger.Info(ctx, "Duration %.2f min exceeds %d-minute threshold, splitting for parallel transcription",
				duration/60, p.cfg.SplitThresholdMinutes)
		}
		chunks, err := p.Split(ctx, prepared.AudioPath, p.cfg.ChunkMinutes)
		if err != nil {
			prepared.Cleanup(ctx, p.logger)
			return nil, err
		}
		prepared.Chunks = chunks
		prepared.chunkDir = filepath.Join(filepath.Dir(prepared.AudioPath), "chunks")
	}

	return prepared, nil
}

// Cleanup removes intermediate audio artifacts. Safe to call on every
// exit path; failures are logged, not returned.
func (pr *Prepared) Cleanup(ctx context.Context, log logger.Logger) {
	for _, path := range pr.tempPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn(ctx, "Failed to cleanup temp file %s: %v", path, err)
		}
	}
	pr.tempPaths = nil

	if pr.chunkDir != "" {
		if err := os.RemoveAll(pr.chunkDir); err != nil {
			log.Warn(ctx, "Failed to cleanup chunk dir %s: %v", pr.chunkDir, err)
		}
		pr.chunkDir = ""
	}
}
