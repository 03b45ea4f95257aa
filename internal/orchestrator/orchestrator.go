package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/chapters"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/docxport"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/domain"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/subtitle"
)

// errCancelled short-circuits the stage loop when a checkpoint finds the
// job was cancelled underneath it
var errCancelled = errors.New("job cancelled")

// Submit allocates an id, persists a PENDING job, and returns immediately
func (o *implOrchestrator) Submit(ctx context.Context, mediaKey, deckKey string, options map[string]string) (string, error) {
	id := newJobID()
	now := time.Now().UTC()

	job := &domain.Job{
		ID:        id,
		Status:    domain.JobStatusPending,
		Progress:  0,
		Message:   "Job created",
		MediaPath: mediaKey,
		DeckPath:  deckKey,
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}

	o.logger.Info(ctx, "Submitted job %s (media=%s deck=%s)", id, mediaKey, deckKey)
	return id, nil
}

func newJobID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "job_" + hex[:12]
}

// Run drives the pipeline stages for a PENDING job. A cancelled, running,
// or finished job is left untouched.
func (o *implOrchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusPending {
		o.logger.Info(ctx, "Job %s is %s, nothing to run", jobID, job.Status)
		return nil
	}

	workDir := filepath.Join(o.workRoot, jobID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	// Working files are owned by this run and removed on every exit path
	defer os.RemoveAll(workDir)

	if err := o.checkpoint(ctx, jobID, 0, "Starting processing"); err != nil {
		return o.settle(ctx, jobID, err)
	}

	err = o.process(ctx, job, workDir)
	return o.settle(ctx, jobID, err)
}

// process runs the stages in order; any stage error aborts the rest
func (o *implOrchestrator) process(ctx context.Context, job *domain.Job, workDir string) error {
	language := job.Options["language"]
	if language == "" {
		language = o.language
	}

	// Stage 1: slide extraction
	if err := o.checkpoint(ctx, job.ID, 10, "Extracting presentation slides"); err != nil {
		return err
	}
	deckPath, err := o.fetch(ctx, job.DeckPath, workDir)
	if err != nil {
		return domain.NewStageError("extract slides", err)
	}
	imagePaths, err := o.slides.Extract(ctx, deckPath, workDir)
	if err != nil {
		return domain.NewStageError("extract slides", err)
	}
	slideSet, err := o.slides.Publish(ctx, job.ID, imagePaths)
	if err != nil {
		return domain.NewStageError("extract slides", err)
	}

	// Stage 2: transcription
	if err := o.checkpoint(ctx, job.ID, 30, "Transcribing media"); err != nil {
		return err
	}
	mediaPath, err := o.fetch(ctx, job.MediaPath, workDir)
	if err != nil {
		return domain.NewStageError("transcribe", err)
	}
	transcript, err := o.transcriber.Transcribe(ctx, mediaPath, language)
	if err != nil {
		return domain.NewStageError("transcribe", err)
	}

	// Stage 3: chapter generation
	if err := o.checkpoint(ctx, job.ID, 70, "Generating chapters"); err != nil {
		return err
	}
	chapterList, err := o.chapters.Generate(ctx, transcript, slideSet.SlideCount)
	if err != nil {
		return domain.NewStageError("generate chapters", err)
	}

	// Stage 4: slides package, with the Q&A placeholder only when referenced
	if err := o.checkpoint(ctx, job.ID, 85, "Creating slides package"); err != nil {
		return err
	}
	hasQA := false
	for _, c := range chapterList {
		if c.IsQA() {
			hasQA = true
			break
		}
	}
	zipKey, err := o.slides.Package(ctx, job.ID, workDir, imagePaths, hasQA)
	if err != nil {
		return domain.NewStageError("package slides", err)
	}
	slideSet.ZipKey = zipKey

	// Stage 5: output artifacts
	if err := o.checkpoint(ctx, job.ID, 90, "Generating output files"); err != nil {
		return err
	}
	outputFiles, err := o.publishOutputs(ctx, job.ID, workDir, transcript, chapterList, slideSet)
	if err != nil {
		return domain.NewStageError("generate outputs", err)
	}

	result := &domain.JobResult{
		JobID:       job.ID,
		Status:      string(domain.JobStatusCompleted),
		OutputFiles: outputFiles,
		Statistics: domain.Statistics{
			DurationSeconds:     transcript.Duration,
			ChapterCount:        len(chapterList),
			SlidesExtracted:     slideSet.SlideCount,
			TranscriptionLength: len(transcript.Text),
			Language:            transcript.Language,
		},
	}
	if err := o.repo.SaveResult(ctx, result); err != nil {
		return domain.NewStageError("generate outputs", err)
	}

	return nil
}

// publishOutputs uploads the chapter CSV, subtitles, and transcript
// artifacts and returns their keys
func (o *implOrchestrator) publishOutputs(ctx context.Context, jobID, workDir string, transcript *domain.Transcript, chapterList []domain.Chapter, slideSet *domain.SlideSet) (map[string]string, error) {
	outputs := make(map[string]string)

	csvContent, err := chapters.BuildCSV(chapterList)
	if err != nil {
		return nil, fmt.Errorf("build chapters csv: %w", err)
	}
	csvKey := fmt.Sprintf("outputs/%s/importChapters.csv", jobID)
	if err := o.store.UploadContent(ctx, csvContent, csvKey, "text/csv"); err != nil {
		return nil, err
	}
	outputs["chapters"] = csvKey

	if len(transcript.Segments) > 0 {
		srtKey := fmt.Sprintf("outputs/%s/subtitles.srt", jobID)
		srt := subtitle.RenderSRT(transcript.Segments)
		if err := o.store.UploadContent(ctx, []byte(srt), srtKey, "text/plain"); err != nil {
			return nil, err
		}
		outputs["subtitles"] = srtKey
	}

	txtKey := fmt.Sprintf("outputs/%s/transcript.txt", jobID)
	if err := o.store.UploadContent(ctx, []byte(transcript.Text), txtKey, "text/plain"); err != nil {
		return nil, err
	}
	outputs["transcript"] = txtKey

	docxPath := filepath.Join(workDir, "transcript.docx")
	if err := docxport.WriteTranscript(jobID, transcript, docxPath); err != nil {
		return nil, fmt.Errorf("write transcript docx: %w", err)
	}
	docxKey := fmt.Sprintf("outputs/%s/transcript.docx", jobID)
	if err := o.store.Upload(ctx, docxPath, docxKey, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"); err != nil {
		return nil, err
	}
	outputs["transcript_docx"] = docxKey

	sheetPath := filepath.Join(workDir, "chapters.docx")
	if err := docxport.WriteChapterSheet(jobID, chapterList, sheetPath); err != nil {
		return nil, fmt.Errorf("write chapter sheet docx: %w", err)
	}
	sheetKey := fmt.Sprintf("outputs/%s/chapters.docx", jobID)
	if err := o.store.Upload(ctx, sheetPath, sheetKey, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"); err != nil {
		return nil, err
	}
	outputs["chapters_docx"] = sheetKey

	outputs["slides"] = fmt.Sprintf("outputs/%s/slides/", jobID)
	if slideSet.ZipKey != "" {
		outputs["slides_zip"] = slideSet.ZipKey
	}

	return outputs, nil
}

// checkpoint advances progress, re-reading the record first so a
// cancellation that happened mid-stage wins
func (o *implOrchestrator) checkpoint(ctx context.Context, jobID string, progress int, message string) error {
	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobStatusCancelled {
		return errCancelled
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidState, jobID, job.Status)
	}

	job.Status = domain.JobStatusProcessing
	job.Progress = progress
	job.Message = message
	job.UpdatedAt = time.Now().UTC()
	return o.repo.Update(ctx, job)
}

// settle writes the terminal state implied by the pipeline outcome
func (o *implOrchestrator) settle(ctx context.Context, jobID string, runErr error) error {
	if errors.Is(runErr, errCancelled) {
		o.logger.Info(ctx, "Job %s cancelled mid-run, stopping", jobID)
		return nil
	}

	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobStatusCancelled {
		// a cancellation raced a checkpoint write and won
		o.logger.Info(ctx, "Job %s cancelled mid-run, stopping", jobID)
		return nil
	}
	if job.Status.Terminal() {
		return runErr
	}

	now := time.Now().UTC()
	job.UpdatedAt = now

	if runErr != nil {
		job.Status = domain.JobStatusFailed
		job.Error = runErr.Error()
		job.Message = "Processing failed"
		if err := o.repo.Update(ctx, job); err != nil {
			o.logger.Error(ctx, "Failed to record failure for job %s: %v", jobID, err)
		}
		o.logger.Error(ctx, "Job %s failed: %v", jobID, runErr)
		return runErr
	}

	// completed_at is set only for COMPLETED jobs
	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.Message = "Processing completed successfully"
	job.CompletedAt = &now
	if err := o.repo.Update(ctx, job); err != nil {
		return err
	}

	o.logger.Info(ctx, "Job %s completed", jobID)
	return nil
}

// Cancel flips a non-terminal job to CANCELLED
func (o *implOrchestrator) Cancel(ctx context.Context, jobID string) (bool, error) {
	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}
	if job.Status.Terminal() {
		return false, nil
	}

	job.Status = domain.JobStatusCancelled
	job.Message = "Job cancelled"
	job.UpdatedAt = time.Now().UTC()
	if err := o.repo.Update(ctx, job); err != nil {
		return false, err
	}

	o.logger.Info(ctx, "Job %s cancelled", jobID)
	return true, nil
}

// GetStatus returns the persisted job snapshot
func (o *implOrchestrator) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return o.repo.Get(ctx, jobID)
}

// GetResults returns the artifact map of a COMPLETED job
func (o *implOrchestrator) GetResults(ctx context.Context, jobID string) (*domain.JobResult, error) {
	job, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job %s is %s, results require completed", domain.ErrInvalidState, jobID, job.Status)
	}
	return o.repo.GetResult(ctx, jobID)
}

// fetch downloads an object into the job work dir, keeping the key's
// base name so downstream tools see the right extension
func (o *implOrchestrator) fetch(ctx context.Context, key, workDir string) (string, error) {
	tmp, err := o.store.Download(ctx, key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(workDir, filepath.Base(key))
	if err := os.Rename(tmp, dest); err != nil {
		// temp dir may sit on another filesystem
		if copyErr := copyFile(tmp, dest); copyErr != nil {
			return "", copyErr
		}
		os.Remove(tmp)
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
