package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

// implClient calls a Whisper-style speech-to-text HTTP API
type implClient struct {
	baseURL          string
	apiKey           string
	model            string
	prompt           string
	secondsPerMinute float64
	minTimeout       time.Duration
	httpClient       *http.Client
	logger           logger.Logger
}

// NewClient creates a UnitTranscriber backed by the configured STT API
func NewClient(cfg config.STTConfig, log logger.Logger) UnitTranscriber {
	return &implClient{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:           cfg.APIKey,
		model:            cfg.Model,
		prompt:           cfg.Prompt,
		secondsPerMinute: cfg.SecondsPerMinute,
		minTimeout:       time.Duration(cfg.MinTimeoutSecond) * time.Second,
		httpClient:       &http.Client{},
		logger:           log,
	}
}

// timeout scales with audio duration, not file size: speech-model
// latency is duration-bound.
func (c *implClient) timeout(durationSeconds float64) time.Duration {
	t := time.Duration(durationSeconds / 60 * c.secondsPerMinute * float64(time.Second))
	if t < c.minTimeout {
		return c.minTimeout
	}
	return t
}

// wire shapes of the verbose_json transcription response. Normalized
// into domain types immediately so nothing downstream branches on the
// API's response format.
type sttWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type sttSegment struct {
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Text  string    `json:"text"`
	Words []sttWord `json:"words"`
}

type sttResponse struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Segments []sttSegment `json:"segments"`
	Words    []sttWord    `json:"words"`
}

// TranscribeUnit sends one audio unit to the STT API and returns the
// normalized transcript
func (c *implClient) TranscribeUnit(ctx context.Context, audioPath string, durationSeconds float64, language string) (*domain.Transcript, error) {
	timeout := c.timeout(durationSeconds)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.Debug(ctx, "Transcribing %s (%.2fs audio, %s timeout)", audioPath, durationSeconds, timeout)

	body, contentType, err := c.buildRequestBody(audioPath, language)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}

	return normalize(parsed, language), nil
}

func (c *implClient) buildRequestBody(audioPath, language string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}

	fields := map[string]string{
		"model":           c.model,
		"language":        language,
		"response_format": "verbose_json",
	}
	if c.prompt != "" {
		fields["prompt"] = c.prompt
	}
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", key, err)
		}
	}
	for _, g := range []string{"segment", "word"} {
		if err := w.WriteField("timestamp_granularities[]", g); err != nil {
			return nil, "", fmt.Errorf("write granularity: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// normalize converts the wire response into the single internal segment
// shape, chunk-local timestamps left untouched
func normalize(resp sttResponse, requestedLanguage string) *domain.Transcript {
	segments := make([]domain.TranscriptSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		s := domain.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
		for _, w := range seg.Words {
			s.Words = append(s.Words, domain.Word{Start: w.Start, End: w.End, Word: w.Word})
		}
		segments = append(segments, s)
	}

	language := resp.Language
	if language == "" {
		language = requestedLanguage
	}

	duration := resp.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &domain.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Segments: segments,
		Language: language,
		Duration: duration,
	}
}
