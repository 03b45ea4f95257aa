package slides

import (
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/storage"
	"github.com/nguyentantai21042004/chapter-pipeline/pkg/executor"
)

// qaImageSource is the bundled placeholder shown for Q&A chapters
const qaImageSource = "static/qa.jpg"

type implExtractor struct {
	executor executor.Executor
	store    storage.Store
	logger   logger.Logger
}

// New creates a new Extractor instance
func New(exec executor.Executor, store storage.Store, log logger.Logger) Extractor {
	return &implExtractor{
		executor: exec,
		store:    store,
		logger:   log,
	}
}
