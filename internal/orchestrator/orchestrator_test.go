package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/jobs"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/storage"
)

type fakeEngine struct {
	transcript *domain.Transcript
	err        error
}

func (f *fakeEngine) Transcribe(ctx context.Context, mediaPath, language string) (*domain.Transcript, error) {
	return f.transcript, f.err
}

func (f *fakeEngine) TranscribeChunks(ctx context.Context, chunks []domain.AudioChunk, language string) (*domain.Transcript, error) {
	return f.transcript, f.err
}

type fakeGenerator struct {
	chapters []domain.Chapter
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, transcript *domain.Transcript, slideCount int) ([]domain.Chapter, error) {
	return f.chapters, f.err
}

type fakeSlides struct {
	count       int
	packagedQA  bool
	packageSeen bool
	err         error
}

func (f *fakeSlides) Extract(ctx context.Context, deckPath, workDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var paths []string
	for i := 1; i <= f.count; i++ {
		p := filepath.Join(workDir, fmt.Sprintf("%02d.jpg", i))
		if err := os.WriteFile(p, []byte("jpg"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeSlides) Publish(ctx context.Context, jobID string, imagePaths []string) (*domain.SlideSet, error) {
	keys := make([]string, 0, len(imagePaths))
	for _, p := range imagePaths {
		keys = append(keys, fmt.Sprintf("outputs/%s/slides/%s", jobID, filepath.Base(p)))
	}
	return &domain.SlideSet{SlideCount: len(imagePaths), ImageKeys: keys}, nil
}

func (f *fakeSlides) Package(ctx context.Context, jobID, workDir string, imagePaths []string, includeQA bool) (string, error) {
	f.packageSeen = true
	f.packagedQA = includeQA
	return fmt.Sprintf("outputs/%s/slides.zip", jobID), nil
}

// recordingRepo tracks the progress values written through it
type recordingRepo struct {
	jobs.Repository
	progress []int
}

func (r *recordingRepo) Update(ctx context.Context, job *domain.Job) error {
	r.progress = append(r.progress, job.Progress)
	return r.Repository.Update(ctx, job)
}

type fixture struct {
	orch   Orchestrator
	repo   *recordingRepo
	store  storage.Store
	slides *fakeSlides
	work   string
}

func newFixture(t *testing.T, engine *fakeEngine, gen *fakeGenerator, sl *fakeSlides) *fixture {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := &recordingRepo{Repository: jobs.NewObject(store)}
	work := t.TempDir()

	ctx := context.Background()
	if err := store.UploadContent(ctx, []byte("video"), "uploads/lecture.mp4", "video/mp4"); err != nil {
		t.Fatal(err)
	}
	if err := store.UploadContent(ctx, []byte("deck"), "uploads/lecture.pdf", "application/pdf"); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		orch:   New(repo, store, engine, gen, sl, work, "en", logger.New("error")),
		repo:   repo,
		store:  store,
		slides: sl,
		work:   work,
	}
}

func sampleTranscript() *domain.Transcript {
	return &domain.Transcript{
		Text:     "hello world",
		Language: "en",
		Duration: 300,
		Segments: []domain.TranscriptSegment{
			{Start: 0, End: 150, Text: "hello"},
			{Start: 150, End: 300, Text: "world"},
		},
	}
}

func sampleChapters() []domain.Chapter {
	return []domain.Chapter{
		{TimeSeconds: 0, ImageName: "1", Title: "Introduction"},
		{TimeSeconds: 200, ImageName: "qa", Title: "Q&A"},
	}
}

func TestSubmitCreatesPendingJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, &fakeSlides{count: 3})

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", map[string]string{"language": "en"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.HasPrefix(id, "job_") || len(id) != len("job_")+12 {
		t.Errorf("job id = %q, want job_ prefix with 12 hex chars", id)
	}

	job, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("progress = %d, want 0", job.Progress)
	}
}

func TestRunCompletesJob(t *testing.T) {
	ctx := context.Background()
	sl := &fakeSlides{count: 3}
	f := newFixture(t, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, sl)

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.orch.Run(ctx, id); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed (error=%q)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}

	// progress only ever moves forward
	for i := 1; i < len(f.repo.progress); i++ {
		if f.repo.progress[i] < f.repo.progress[i-1] {
			t.Errorf("progress went backwards: %v", f.repo.progress)
		}
	}

	result, err := f.orch.GetResults(ctx, id)
	if err != nil {
		t.Fatalf("GetResults() error = %v", err)
	}
	for _, key := range []string{"chapters", "subtitles", "transcript", "transcript_docx", "chapters_docx", "slides", "slides_zip"} {
		if result.OutputFiles[key] == "" {
			t.Errorf("output %q missing from %v", key, result.OutputFiles)
		}
	}

	// the chapter sheet document actually exists in the store
	ok, err := f.store.Exists(ctx, result.OutputFiles["chapters_docx"])
	if err != nil || !ok {
		t.Errorf("chapter sheet not stored (ok=%v err=%v)", ok, err)
	}
	if result.Statistics.ChapterCount != 2 || result.Statistics.SlidesExtracted != 3 {
		t.Errorf("statistics = %+v", result.Statistics)
	}
	if result.Statistics.DurationSeconds != 300 {
		t.Errorf("duration = %v, want 300", result.Statistics.DurationSeconds)
	}

	// the CSV artifact actually exists in the store
	ok, err = f.store.Exists(ctx, result.OutputFiles["chapters"])
	if err != nil || !ok {
		t.Errorf("chapters CSV not stored (ok=%v err=%v)", ok, err)
	}

	// a QA chapter means the package includes the placeholder
	if !sl.packageSeen || !sl.packagedQA {
		t.Errorf("slides package QA flag = %v (seen=%v), want true", sl.packagedQA, sl.packageSeen)
	}

	// per-job working directory is removed on success
	if _, err := os.Stat(filepath.Join(f.work, id)); !os.IsNotExist(err) {
		t.Errorf("work dir still present after run (err=%v)", err)
	}
}

func TestRunRecordsStageFailure(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{err: errors.New("chunk 2/4: request timed out")}
	f := newFixture(t, engine, &fakeGenerator{chapters: sampleChapters()}, &fakeSlides{count: 2})

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.orch.Run(ctx, id); err == nil {
		t.Fatal("Run() should surface the stage failure")
	}

	job, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.Error, "transcribe") || !strings.Contains(job.Error, "chunk 2/4: request timed out") {
		t.Errorf("error text = %q, want stage and cause preserved", job.Error)
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt set on a failed job")
	}

	// results are only available for completed jobs
	if _, err := f.orch.GetResults(ctx, id); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("GetResults() error = %v, want ErrInvalidState", err)
	}

	if _, err := os.Stat(filepath.Join(f.work, id)); !os.IsNotExist(err) {
		t.Errorf("work dir still present after failure (err=%v)", err)
	}
}

func TestCancelSemantics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, &fakeSlides{count: 1})

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := f.orch.Cancel(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Cancel() = %v, %v, want true on pending job", ok, err)
	}

	job, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", job.Status)
	}
	if job.CompletedAt != nil {
		t.Error("CompletedAt set on a cancelled job")
	}

	// cancel is irreversible and not repeatable
	ok, err = f.orch.Cancel(ctx, id)
	if err != nil || ok {
		t.Errorf("second Cancel() = %v, %v, want false", ok, err)
	}

	// unknown ids report false without an error
	ok, err = f.orch.Cancel(ctx, "job_missing00000")
	if err != nil || ok {
		t.Errorf("Cancel(missing) = %v, %v, want false, nil", ok, err)
	}
}

// interposingRepo injects a cancellation between a checkpoint's read
// and its write, the narrowest window a concurrent Cancel can hit
type interposingRepo struct {
	jobs.Repository
	triggerProgress int
	fired           bool
}

func (r *interposingRepo) Update(ctx context.Context, job *domain.Job) error {
	if !r.fired && job.Status == domain.JobStatusProcessing && job.Progress == r.triggerProgress {
		r.fired = true
		current, err := r.Repository.Get(ctx, job.ID)
		if err != nil {
			return err
		}
		current.Status = domain.JobStatusCancelled
		current.Message = "Job cancelled"
		if err := r.Repository.Update(ctx, current); err != nil {
			return err
		}
	}
	return r.Repository.Update(ctx, job)
}

func TestCancelDuringCheckpointWindowWins(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UploadContent(ctx, []byte("video"), "uploads/lecture.mp4", "video/mp4"); err != nil {
		t.Fatal(err)
	}
	if err := store.UploadContent(ctx, []byte("deck"), "uploads/lecture.pdf", "application/pdf"); err != nil {
		t.Fatal(err)
	}

	repo := &interposingRepo{Repository: jobs.NewObject(store), triggerProgress: 30}
	sl := &fakeSlides{count: 1}
	orch := New(repo, store, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, sl, t.TempDir(), "en", logger.New("error"))

	id, err := orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := orch.Run(ctx, id); err != nil {
		t.Fatalf("Run() error = %v, want clean stop after mid-run cancel", err)
	}

	job, err := orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %s, the cancellation must not be overwritten", job.Status)
	}
	if job.Progress == 30 {
		t.Error("stale checkpoint progress written over a cancelled job")
	}
	if sl.packageSeen {
		t.Error("pipeline stages kept running after cancellation")
	}
}

func TestRunIsNoOpAfterCancel(t *testing.T) {
	ctx := context.Background()
	sl := &fakeSlides{count: 1}
	f := newFixture(t, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, sl)

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.orch.Cancel(ctx, id); err != nil {
		t.Fatal(err)
	}

	if err := f.orch.Run(ctx, id); err != nil {
		t.Fatalf("Run() on cancelled job error = %v, want nil no-op", err)
	}

	job, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.JobStatusCancelled {
		t.Errorf("status = %s, cancelled job must not be resurrected", job.Status)
	}
	if sl.packageSeen {
		t.Error("pipeline stages ran for a cancelled job")
	}
}

func TestGetStatusIdempotentOnTerminalJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeEngine{transcript: sampleTranscript()}, &fakeGenerator{chapters: sampleChapters()}, &fakeSlides{count: 1})

	id, err := f.orch.Submit(ctx, "uploads/lecture.mp4", "uploads/lecture.pdf", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.orch.Run(ctx, id); err != nil {
		t.Fatal(err)
	}

	first, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.orch.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("terminal snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeEngine{}, &fakeGenerator{}, &fakeSlides{})

	if _, err := f.orch.GetStatus(ctx, "job_nope00000000"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("GetStatus(unknown) error = %v, want ErrJobNotFound", err)
	}
}
