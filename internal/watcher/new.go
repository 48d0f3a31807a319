package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"

	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
)

const (
	defaultMaxConcurrent = 2
	defaultSettle        = 500 * time.Millisecond
)

type Options struct {
	Dir           string
	Handler       EventHandler
	MaxConcurrent int
	// Settle is how long a file's size must stay unchanged before it is handled
	Settle time.Duration
	// ScanExisting hands videos already in Dir to the handler on Start
	ScanExisting bool
}

// New creates a new Watcher instance with concurrency control
func New(opts Options, log logger.Logger) (Watcher, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("watcher handler is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(opts.Dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}

	return &implWatcher{
		opts:     opts,
		logger:   log,
		watcher:  watcher,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		inFlight: make(map[string]struct{}),
	}, nil
}
