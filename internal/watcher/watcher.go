package watcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"

	"github.com/nguyentantai21042004/chapter-flow/internal/input"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
)

type implWatcher struct {
	opts    Options
	logger  logger.Logger
	watcher *fsnotify.Watcher
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Start monitors the input directory until ctx ends, then waits for running handlers
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "File watcher started (max concurrent: %d). Monitoring: %s", w.opts.MaxConcurrent, w.opts.Dir)

	if w.opts.ScanExisting {
		videos, err := input.ListVideos(w.opts.Dir)
		if err != nil {
			return fmt.Errorf("scan input dir: %w", err)
		}
		if len(videos) > 0 {
			w.logger.Info(ctx, "Found %d existing videos", len(videos))
		}
		for _, v := range videos {
			if err := w.dispatch(ctx, v); err != nil {
				return w.shutdown(ctx, err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return w.shutdown(ctx, ctx.Err())

		case event, ok := <-w.watcher.Events:
			if !ok {
				return w.shutdown(ctx, fmt.Errorf("watcher events channel closed"))
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if input.ShouldSkip(event.Name) || !input.IsVideo(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-video file: %s", event.Name)
				continue
			}
			if _, err := os.Stat(event.Name); err != nil {
				// renamed away
				continue
			}

			w.logger.Info(ctx, "New video detected: %s", event.Name)
			if err := w.dispatch(ctx, event.Name); err != nil {
				return w.shutdown(ctx, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return w.shutdown(ctx, fmt.Errorf("watcher errors channel closed"))
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

// dispatch blocks until a handler slot is free, then handles path in the background
func (w *implWatcher) dispatch(ctx context.Context, path string) error {
	w.mu.Lock()
	if _, busy := w.inFlight[path]; busy {
		w.mu.Unlock()
		return nil
	}
	w.inFlight[path] = struct{}{}
	w.mu.Unlock()

	if err := w.sem.Acquire(ctx, 1); err != nil {
		w.done(path)
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.sem.Release(1)
		defer w.done(path)

		if err := waitStable(ctx, path, w.opts.Settle); err != nil {
			w.logger.Warn(ctx, "Skipping %s: %v", path, err)
			return
		}
		w.handle(ctx, path)
	}()
	return nil
}

func (w *implWatcher) handle(ctx context.Context, path string) {
	err := w.opts.Handler(ctx, path)
	switch {
	case err == nil:
	case jobs.IsCancelled(err):
		w.logger.Info(ctx, "Processing of %s cancelled", path)
	default:
		w.logger.Error(ctx, "Failed to process %s: %v", path, err)
	}
}

func (w *implWatcher) done(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()
}

func (w *implWatcher) shutdown(ctx context.Context, err error) error {
	w.logger.Info(ctx, "Waiting for ongoing processing to complete...")
	w.wg.Wait()
	w.logger.Info(ctx, "File watcher stopped")
	return err
}

// waitStable returns once the size of path is non-zero and unchanged across one settle interval
func waitStable(ctx context.Context, path string, settle time.Duration) error {
	last := int64(-1)
	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		size := info.Size()
		if size > 0 && size == last {
			return nil
		}
		last = size

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
	}
}
