package chapters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
)

const chapterPrompt = `Analyze this presentation transcript and create chapter markers.

TRANSCRIPT:
%s

CONTEXT:
- Total presentation slides: %d
- Video duration: %.0f seconds
- The presentation slides are numbered from 1 to %d

INSTRUCTIONS:
1. Identify major topic transitions in the presentation
2. Create chapter markers that align with slide changes when possible
3. Each chapter should have a clear, descriptive title
4. Detect Q&A sections - look for phrases like "questions", "Q&A", "let me answer", etc.
5. For Q&A sections, set is_qa to true
6. Ensure timestamps are in seconds and monotonically increasing
7. Try to have one chapter per slide, but combine if slides are discussed very briefly

Respond with ONLY a JSON object of this exact shape, no markdown fences:
{"chapters": [{"timestamp_seconds": 0, "slide_number": 1, "title": "...", "is_qa": false}]}`

// qaKeywords mark a chapter as Q&A even when the model forgot to flag it
var qaKeywords = []string{"q&a", "q & a", "questions", "q and a", "qa", "question and answer"}

// wire shape of the model's JSON answer
type chapterEntry struct {
	TimestampSeconds int    `json:"timestamp_seconds"`
	SlideNumber      int    `json:"slide_number"`
	Title            string `json:"title"`
	IsQA             bool   `json:"is_qa"`
}

type chapterResponse struct {
	Chapters []chapterEntry `json:"chapters"`
}

// Generate asks Gemini for chapter markers, then normalizes them: QA
// chapters get the "qa" image name, the rest map to their slide number,
// and the result is sorted by timestamp.
func (g *implGenerator) Generate(ctx context.Context, transcript *domain.Transcript, slideCount int) ([]domain.Chapter, error) {
	prompt := fmt.Sprintf(chapterPrompt, transcript.Text, slideCount, transcript.Duration, slideCount)

	raw, err := g.callGemini(ctx, prompt)
	if err != nil {
		return nil, err
	}

	entries, err := parseChapters(raw)
	if err != nil {
		return nil, fmt.Errorf("parse chapter response: %w", err)
	}

	g.logger.Info(ctx, "Model produced %d chapter markers", len(entries))
	return formatChapters(entries), nil
}

// callGemini sends the prompt and returns the response text. Rotates
// API keys on 429 / quota errors.
func (g *implGenerator) callGemini(ctx context.Context, prompt string) (string, error) {
	attempts := len(g.apiKeys)
	if attempts == 0 {
		return "", fmt.Errorf("no Gemini API keys configured")
	}
	var lastErr error

	for range attempts {
		key, keyIndex := g.selectKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", keyIndex+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
				}
			}
			return text, nil
		}

		return "", fmt.Errorf("empty response from Gemini")
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *implGenerator) selectKey() (string, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKeys[g.currentKey], g.currentKey
}

func (g *implGenerator) rotateKey() {
	g.mu.Lock()
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
	g.mu.Unlock()
}

// parseChapters tolerates markdown fences and surrounding prose by
// extracting the outermost JSON object before decoding
func parseChapters(raw string) ([]chapterEntry, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed chapterResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, err
	}
	return parsed.Chapters, nil
}

func formatChapters(entries []chapterEntry) []domain.Chapter {
	out := make([]domain.Chapter, 0, len(entries))
	for i, e := range entries {
		imageName := domain.QAImageName
		if !e.IsQA && !titleLooksLikeQA(e.Title) {
			slide := e.SlideNumber
			if slide <= 0 {
				slide = i + 1
			}
			imageName = strconv.Itoa(slide)
		}
		out = append(out, domain.Chapter{
			TimeSeconds: e.TimestampSeconds,
			ImageName:   imageName,
			Title:       e.Title,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeSeconds < out[j].TimeSeconds
	})
	return out
}

func titleLooksLikeQA(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range qaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
