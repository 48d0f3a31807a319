package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

type job struct {
	id         string
	sourcePath string
	workspace  string
	audioPath  string
	aborted    atomic.Bool
	cleanup    sync.Once
}

// Transcribe extracts audio into a private workspace, runs the speech engine and parses its captions.
// The workspace is removed on every exit path.
func (m *implManager) Transcribe(ctx context.Context, jobID, videoPath string, onProgress bridge.ProgressFunc) (Result, error) {
	if _, err := m.stat(videoPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrNotFound, videoPath)
		}
		return Result{}, fmt.Errorf("stat input: %w", err)
	}

	j := &job{id: jobID, sourcePath: videoPath}
	if err := m.register(j); err != nil {
		return Result{}, err
	}
	defer m.unregister(j)
	defer m.release(ctx, j)

	metrics.JobStarted("transcription")
	defer metrics.JobEnded("transcription")

	workspace, err := m.mkdirTemp(m.tempDir, "job-"+jobID+"-*")
	if err != nil {
		return Result{}, fmt.Errorf("create workspace: %w", err)
	}
	j.workspace = workspace

	progress := func(p bridge.Progress) {
		if onProgress != nil && !j.aborted.Load() {
			onProgress(p)
		}
	}

	m.logger.Info(ctx, "Extracting audio: %s", videoPath)
	j.audioPath = filepath.Join(workspace, "audio.wav")
	if err := m.step(j, func() error {
		return m.bridge.ExtractAudio(ctx, jobID, videoPath, j.audioPath, 0, progress)
	}); err != nil {
		return Result{}, m.classify(j, "extract audio", err)
	}

	m.logger.Info(ctx, "Transcribing: %s", videoPath)
	var out bridge.TranscribeResult
	if err := m.step(j, func() error {
		var err error
		out, err = m.bridge.Transcribe(ctx, jobID, j.audioPath, workspace, m.model, progress)
		return err
	}); err != nil {
		return Result{}, m.classify(j, "transcribe", err)
	}

	if err := m.remove(j.audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn(ctx, "Failed to remove audio %s: %v", j.audioPath, err)
	}

	data, err := m.readFile(out.SegmentFilePath)
	if err != nil {
		return Result{}, fmt.Errorf("read captions: %w", err)
	}
	segments := srt.Parse(string(data))
	if len(segments) == 0 {
		return Result{}, fmt.Errorf("%s: %w", videoPath, ErrEmptyResult)
	}
	if j.aborted.Load() {
		return Result{}, m.classify(j, "transcribe", ErrCancelled)
	}

	m.logger.Info(ctx, "Transcription completed: %s (%d segments)", videoPath, len(segments))
	return Result{
		JobID:    jobID,
		Segments: segments,
		Duration: srt.Duration(segments),
	}, nil
}

// Abort flags the job and kills any running sub-process
func (m *implManager) Abort(jobID string) bool {
	m.mu.Lock()
	j, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	j.aborted.Store(true)
	m.bridge.Abort(jobID)
	return true
}

// step runs fn unless the job was aborted before it could start
func (m *implManager) step(j *job, fn func() error) error {
	if j.aborted.Load() {
		return ErrCancelled
	}
	return fn()
}

func (m *implManager) classify(j *job, stage string, err error) error {
	if j.aborted.Load() || bridge.IsCancelled(err) {
		return fmt.Errorf("%s: %w", stage, ErrCancelled)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (m *implManager) register(j *job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[j.id]; exists {
		return fmt.Errorf("job %s is already running", j.id)
	}
	m.jobs[j.id] = j
	return nil
}

func (m *implManager) unregister(j *job) {
	m.mu.Lock()
	delete(m.jobs, j.id)
	m.mu.Unlock()
}

// release removes the workspace exactly once
func (m *implManager) release(ctx context.Context, j *job) {
	j.cleanup.Do(func() {
		if j.workspace == "" {
			return
		}
		if err := m.removeAll(j.workspace); err != nil {
			m.logger.Warn(ctx, "Failed to remove workspace %s: %v", j.workspace, err)
			return
		}
		m.logger.Debug(ctx, "Removed workspace %s", j.workspace)
	})
}
