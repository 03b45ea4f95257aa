package transcriber

import (
	"github.com/nguyentantai21042004/chapter-pipeline/internal/audio"
	"github.com/nguyentantai21042004/chapter-pipeline/internal/logger"
)

type implEngine struct {
	preparer audio.Preparer
	unit     UnitTranscriber
	logger   logger.Logger
}

// New creates a new Engine instance
func New(preparer audio.Preparer, unit UnitTranscriber, log logger.Logger) Engine {
	return &implEngine{
		preparer: preparer,
		unit:     unit,
		logger:   log,
	}
}
