package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/config"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
	"github.com/nguyentantai21042004/chapter-flow/internal/processor"
	"github.com/nguyentantai21042004/chapter-flow/internal/transcriber"
	"github.com/nguyentantai21042004/chapter-flow/pkg/executor"
)

type app struct {
	cfg      *config.Config
	log      logger.Logger
	registry *jobs.Registry
	proc     processor.Processor

	stopMetrics func()
	stopEvents  func()
}

// loadBase reads config and builds the logger shared by every command
func loadBase(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if on, _ := cmd.Flags().GetBool("metrics"); on {
		cfg.Metrics.Enabled = true
	}

	log := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	return cfg, log, nil
}

func bridgeOptions(cfg *config.Config) bridge.Options {
	return bridge.Options{
		FFmpegBinary:   cfg.FFmpeg.BinaryPath,
		WhisperBinary:  cfg.Whisper.BinaryPath,
		ModelPath:      cfg.Whisper.ModelPath,
		Language:       cfg.Whisper.Language,
		Prompt:         cfg.Whisper.Prompt,
		Threads:        cfg.Whisper.Threads,
		SearchDirs:     []string{cfg.Paths.Resources, cfg.Paths.DevBin},
		FFmpegTimeout:  time.Duration(cfg.FFmpeg.TimeoutMinutes) * time.Minute,
		WhisperTimeout: time.Duration(cfg.Whisper.TimeoutMinutes) * time.Minute,
	}
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadBase(cmd)
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "========================================")
	log.Info(ctx, "Chapter Flow %s", version)
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "Max Concurrent Transcriptions: %d", cfg.Performance.MaxConcurrent)
	log.Info(ctx, "Model provider: %s %s (fast=%s, smart=%s)", cfg.AI.Provider, cfg.AI.Remote, cfg.AI.FastModel, cfg.AI.SmartModel)

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	b, err := bridge.New(bridgeOptions(cfg), executor.New(), log)
	if err != nil {
		return nil, fmt.Errorf("initialize process bridge: %w", err)
	}
	client, err := llm.NewFromConfig(cfg.AI, log)
	if err != nil {
		return nil, fmt.Errorf("initialize model provider: %w", err)
	}

	registry := jobs.NewRegistry(jobs.NewEventBus(0))
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		proc: processor.New(cfg, processor.Deps{
			Transcriber: transcriber.New(b, cfg.Paths.Temp, "", log),
			Completer:   client,
			Registry:    registry,
		}, log),
		stopMetrics: func() {},
	}
	a.stopEvents = a.logEvents(ctx)
	if cfg.Metrics.Enabled {
		a.stopMetrics = a.serveMetrics(ctx)
	}
	return a, nil
}

func (a *app) Close() {
	a.proc.Close()
	a.stopEvents()
	a.stopMetrics()
}

// logEvents mirrors progress events into the log until the returned func is called
func (a *app) logEvents(ctx context.Context) func() {
	events, unsubscribe := a.registry.Bus().Subscribe(64)
	go func() {
		for e := range events {
			switch {
			case e.Phase == jobs.PhaseStatus && e.Status != "":
				a.log.Debug(ctx, "[%s] %s %s", e.JobID, e.Status, e.Message)
			case e.Percent != nil:
				a.log.Info(ctx, "[%s] %s %s: %d%%", e.JobID, e.Filename, e.Phase, *e.Percent)
			default:
				a.log.Debug(ctx, "[%s] %s: %s", e.JobID, e.Phase, e.Message)
			}
		}
	}()
	return unsubscribe
}

func (a *app) serveMetrics(ctx context.Context) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info(ctx, "Serving metrics on %s/metrics", a.cfg.Metrics.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "Metrics server failed: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		cfg.Paths.Archived,
		cfg.Paths.Temp,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
