package transcriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

func TestClientTimeoutScalesWithDuration(t *testing.T) {
	c := &implClient{secondsPerMinute: 10, minTimeout: 30 * time.Second}

	tests := []struct {
		name     string
		duration float64
		want     time.Duration
	}{
		{"short clip floors at minimum", 60, 30 * time.Second},
		{"ten minutes", 600, 100 * time.Second},
		{"one hour", 3600, 600 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.timeout(tt.duration); got != tt.want {
				t.Errorf("timeout(%v) = %v, want %v", tt.duration, got, tt.want)
			}
		})
	}
}

func TestClientTranscribeUnit(t *testing.T) {
	var gotAuth, gotModel, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		json.NewEncoder(w).Encode(sttResponse{
			Text:     "  hello world  ",
			Language: "en",
			Segments: []sttSegment{
				{Start: 0, End: 2.5, Text: " hello ", Words: []sttWord{{Word: "hello", Start: 0, End: 1}}},
				{Start: 2.5, End: 5, Text: "world"},
			},
		})
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "unit.mp3")
	if err := os.WriteFile(audioPath, []byte("fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := NewClient(config.STTConfig{
		BaseURL:          server.URL,
		APIKey:           "sk-test",
		Model:            "whisper-1",
		SecondsPerMinute: 10,
		MinTimeoutSecond: 30,
	}, logger.New("error"))

	got, err := client.TranscribeUnit(context.Background(), audioPath, 5, "en")
	if err != nil {
		t.Fatalf("TranscribeUnit() error = %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format = %q", gotFormat)
	}

	if got.Text != "hello world" {
		t.Errorf("Text = %q, want trimmed %q", got.Text, "hello world")
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].Text != "hello" {
		t.Errorf("segment text = %q, want trimmed", got.Segments[0].Text)
	}
	if got.Duration != 5 {
		t.Errorf("Duration = %v, want 5 (last segment end)", got.Duration)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "unit.mp3")
	if err := os.WriteFile(audioPath, []byte("fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := NewClient(config.STTConfig{
		BaseURL:          server.URL,
		Model:            "whisper-1",
		SecondsPerMinute: 10,
		MinTimeoutSecond: 30,
	}, logger.New("error"))

	_, err := client.TranscribeUnit(context.Background(), audioPath, 5, "en")
	if err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	got := normalize(sttResponse{
		Text:     "text",
		Segments: []sttSegment{{Start: 0, End: 7.2, Text: "text"}},
	}, "vi")

	if got.Language != "vi" {
		t.Errorf("Language = %q, want requested language fallback", got.Language)
	}
	if got.Duration != 7.2 {
		t.Errorf("Duration = %v, want 7.2", got.Duration)
	}
}
