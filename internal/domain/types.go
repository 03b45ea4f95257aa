package domain

import "time"

// JobStatus tracks the lifecycle state of a processing job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Job is one end-to-end request to turn a media+deck pair into artifacts
type Job struct {
	ID          string            `json:"id"`
	Status      JobStatus         `json:"status"`
	Progress    int               `json:"progress"`
	Message     string            `json:"message"`
	MediaPath   string            `json:"media_path"`
	DeckPath    string            `json:"deck_path"`
	Options     map[string]string `json:"options,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// JobResult holds the artifact locations of a completed job
type JobResult struct {
	JobID       string            `json:"job_id"`
	Status      string            `json:"status"`
	OutputFiles map[string]string `json:"output_files"`
	Statistics  Statistics        `json:"statistics"`
}

// Statistics summarizes a completed run
type Statistics struct {
	DurationSeconds     float64 `json:"duration_seconds"`
	ChapterCount        int     `json:"chapters_count"`
	SlidesExtracted     int     `json:"slides_extracted"`
	TranscriptionLength int     `json:"transcription_length"`
	Language            string  `json:"language"`
}

// AudioChunk is a contiguous time slice of prepared audio.
// Index defines reassembly order; Start and Duration are the requested
// window, not the measured length of the encoded chunk file.
type AudioChunk struct {
	Index    int     `json:"chunk_index"`
	Start    float64 `json:"start_time"`
	Duration float64 `json:"duration"`
	Path     string  `json:"path"`
}

// Word is a word-level timing inside a segment
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TranscriptSegment is a time-bounded unit of transcript text
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is a whole-file transcription result. The shape is the
// same whether the audio was transcribed as one unit or many chunks.
type Transcript struct {
	Text     string              `json:"full_text"`
	Segments []TranscriptSegment `json:"segments"`
	Language string              `json:"language"`
	Duration float64             `json:"duration"`
}

// QAImageName marks a chapter as a Q&A segment instead of a slide
const QAImageName = "qa"

// Chapter is a derived marker tying a timestamp to a slide or Q&A segment
type Chapter struct {
	TimeSeconds int    `json:"time_seconds"`
	ImageName   string `json:"image_name"`
	Title       string `json:"description"`
}

// IsQA reports whether the chapter marks a Q&A segment
func (c Chapter) IsQA() bool {
	return c.ImageName == QAImageName
}

// SlideSet describes the slides extracted from a deck
type SlideSet struct {
	SlideCount int      `json:"slide_count"`
	ImageKeys  []string `json:"image_keys"`
	ZipKey     string   `json:"zip_key,omitempty"`
}
