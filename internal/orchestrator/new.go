package orchestrator

import (
	"github.com/nguyentantai21042004/chapter-pipeline/internal/chapters"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/jobs"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/slides"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/storage"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/transcriber"
)

type implOrchestrator struct {
	repo        jobs.Repository
	store       storage.Store
	transcriber transcriber.Engine
	chapters    chapters.Generator
	slides      slides.Extractor
	workRoot    string
	language    string
	logger      logger.Logger
}

// New creates a new Orchestrator instance
func New(
	repo jobs.Repository,
	store storage.Store,
	engine transcriber.Engine,
	generator chapters.Generator,
	extractor slides.Extractor,
	workRoot string,
	defaultLanguage string,
	log logger.Logger,
) Orchestrator {
	return &implOrchestrator{
		repo:        repo,
		store:       store,
		transcriber: engine,
		chapters:    generator,
		slides:      extractor,
		workRoot:    workRoot,
		language:    defaultLanguage,
		logger:      log,
	}
}
