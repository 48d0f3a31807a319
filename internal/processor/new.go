package processor

import (
	"sync"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/chapters"
	"github.com/nguyentantai21042004/chapter-flow/internal/config"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/matcher"
	"github.com/nguyentantai21042004/chapter-flow/internal/report"
	"github.com/nguyentantai21042004/chapter-flow/internal/scheduler"
	"github.com/nguyentantai21042004/chapter-flow/internal/sections"
	"github.com/nguyentantai21042004/chapter-flow/internal/summarizer"
	"github.com/nguyentantai21042004/chapter-flow/internal/transcriber"
)

// Deps are the collaborators a Processor cannot build from config alone.
// Registry is optional.
type Deps struct {
	Transcriber transcriber.Manager
	Completer   llm.Completer
	Registry    *jobs.Registry
}

type implProcessor struct {
	cfg         *config.Config
	transcriber transcriber.Manager
	completer   llm.Completer
	registry    *jobs.Registry
	pool        *scheduler.Pool
	queue       *scheduler.Queue
	chapters    *chapters.Generator
	sections    *sections.Detector
	summarizer  summarizer.Summarizer
	store       *report.Store
	logger      logger.Logger
	now         func() time.Time

	// queue handle id -> job id, for position events
	waiting sync.Map
}

// New creates a new Processor instance
func New(cfg *config.Config, deps Deps, log logger.Logger) Processor {
	registry := deps.Registry
	if registry == nil {
		registry = jobs.NewRegistry(jobs.NewEventBus(0))
	}

	p := &implProcessor{
		cfg:         cfg,
		transcriber: deps.Transcriber,
		completer:   deps.Completer,
		registry:    registry,
		pool:        scheduler.NewPool(cfg.Performance.MaxConcurrent),
		queue:       scheduler.NewQueue(),
		store:       report.NewStore(cfg.Paths.Output),
		logger:      log,
		now:         time.Now,
	}
	p.queue.OnPosition(p.publishPosition)

	queued := llm.CompleterFunc(p.complete)
	m := matcher.New(matcher.Options{
		FuzzyThreshold: cfg.Matcher.FuzzyThreshold,
		WindowPadding:  cfg.Matcher.WindowPadding,
		Stride:         cfg.Matcher.Stride,
	})

	p.chapters = chapters.NewGenerator(queued, chapters.GeneratorOptions{
		Model:        cfg.AI.SmartModel,
		ChunkSeconds: cfg.Chapters.ChunkSeconds,
		Matcher:      m,
		Validator:    chapters.NewValidator(cfg.Chapters.MinDurationSeconds, cfg.Chapters.MinCount),
	}, log)
	p.sections = sections.New(queued, sections.Options{
		Model:         cfg.AI.SmartModel,
		Ceiling:       cfg.Sections.CeilingSeconds,
		MaxSliceChars: cfg.Sections.MaxSliceChars,
		Matcher:       m,
	}, log)
	p.summarizer = summarizer.New(queued, summarizer.Options{
		FastModel:  cfg.AI.FastModel,
		SmartModel: cfg.AI.SmartModel,
	}, log)

	return p
}
