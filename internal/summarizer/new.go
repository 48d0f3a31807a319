package summarizer

import (
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
)

const (
	PlatformYouTube  = "youtube"
	PlatformSpreaker = "spreaker"
)

type Options struct {
	FastModel  string
	SmartModel string
}

type implSummarizer struct {
	completer  llm.Completer
	fastModel  string
	smartModel string
	logger     logger.Logger
	now        func() time.Time
}

// New creates a Summarizer. Summaries use the fast model, metadata the smart one.
func New(c llm.Completer, opts Options, log logger.Logger) Summarizer {
	return &implSummarizer{
		completer:  c,
		fastModel:  opts.FastModel,
		smartModel: opts.SmartModel,
		logger:     log,
		now:        time.Now,
	}
}
