package audio

import (
	"github.com/nguyentantai21042004/chapter-pipeline/internal/config"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
	"github.com/nguyentantai21042004/chapter-pipeline/pkg/executor"
)

type implPreparer struct {
	cfg      config.AudioConfig
	executor executor.Executor
	logger   logger.Logger
}

// New creates a new Preparer instance
func New(cfg config.AudioConfig, exec executor.Executor, log logger.Logger) Preparer {
	return &implPreparer{
		cfg:      cfg,
		executor: exec,
		logger:   log,
	}
}
