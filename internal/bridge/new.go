package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/pkg/executor"
)

// Options configures binary resolution and invocation
type Options struct {
	FFmpegBinary   string
	WhisperBinary  string
	ModelPath      string
	Language       string
	Prompt         string
	Threads        int
	SearchDirs     []string // packaged resources first, development checkout second
	FFmpegTimeout  time.Duration
	WhisperTimeout time.Duration
}

type implBridge struct {
	exec    executor.Executor
	logger  logger.Logger
	opts    Options
	ffmpeg  string
	whisper string

	mu      sync.Mutex
	running map[string]*activeRun
}

// New resolves both binaries and verifies their architecture.
// A missing or mismatched binary is returned as a configuration error.
func New(opts Options, exec executor.Executor, log logger.Logger) (Bridge, error) {
	r := newResolver(opts.SearchDirs)

	ffmpeg, err := r.resolve(orName(opts.FFmpegBinary, "ffmpeg"))
	if err != nil {
		return nil, fmt.Errorf("resolve ffmpeg: %w", err)
	}
	whisper, err := r.resolve(orName(opts.WhisperBinary, "whisper-cli"))
	if err != nil {
		return nil, fmt.Errorf("resolve whisper: %w", err)
	}

	log.Debug(context.Background(), "Resolved binaries: ffmpeg=%s whisper=%s", ffmpeg, whisper)

	return newBridge(opts, ffmpeg, whisper, exec, log), nil
}

func newBridge(opts Options, ffmpeg, whisper string, exec executor.Executor, log logger.Logger) *implBridge {
	if opts.FFmpegTimeout <= 0 {
		opts.FFmpegTimeout = 30 * time.Minute
	}
	if opts.WhisperTimeout <= 0 {
		opts.WhisperTimeout = 3 * time.Hour
	}
	if opts.Language == "" {
		opts.Language = "auto"
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	return &implBridge{
		exec:    exec,
		logger:  log,
		opts:    opts,
		ffmpeg:  ffmpeg,
		whisper: whisper,
		running: make(map[string]*activeRun),
	}
}

func orName(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
