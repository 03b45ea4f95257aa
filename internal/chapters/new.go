package chapters

import (
	"sync"

	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

type implGenerator struct {
	apiKeys []string
	model   string
	logger  logger.Logger

	// mu guards currentKey; one Generator serves every concurrent job
	mu         sync.Mutex
	currentKey int
}

// New creates a Generator that rotates through the supplied Gemini API keys.
func New(cfg config.GeminiConfig, log logger.Logger) Generator {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &implGenerator{
		apiKeys: cfg.APIKeys,
		model:   model,
		logger:  log,
	}
}
