package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
	"github.com/nguyentantai21042004/chapter-flow/pkg/executor"
)

type activeRun struct {
	cancel  context.CancelFunc
	aborted atomic.Bool
}

// ExtractAudio converts the input into the WAV format the speech engine expects
func (b *implBridge) ExtractAudio(ctx context.Context, id, inputPath, outputPath string, durationHint float64, onProgress ProgressFunc) error {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}

	_, err := b.run(ctx, id, StageExtract, b.ffmpeg, args, "", b.opts.FFmpegTimeout, newProgressParser(durationHint), onProgress)
	return err
}

// Transcribe runs whisper-cli and returns the path of the caption file it wrote
func (b *implBridge) Transcribe(ctx context.Context, id, audioPath, workDir, modelHint string, onProgress ProgressFunc) (TranscribeResult, error) {
	model := b.opts.ModelPath
	if modelHint != "" {
		model = modelHint
	}
	outBase := filepath.Join(workDir, "transcript")

	args := []string{
		"-m", model,
		"-f", audioPath,
		"-osrt",
		"-of", outBase,
		"-l", b.opts.Language,
		"-t", fmt.Sprintf("%d", b.opts.Threads),
		"-pp",
	}
	if b.opts.Prompt != "" {
		args = append(args, "--prompt", b.opts.Prompt)
	}

	if _, err := b.run(ctx, id, StageTranscribe, b.whisper, args, workDir, b.opts.WhisperTimeout, newProgressParser(0), onProgress); err != nil {
		return TranscribeResult{}, err
	}

	srtPath := outBase + ".srt"
	if _, err := os.Stat(srtPath); err != nil {
		return TranscribeResult{}, &ProcessError{
			Stage:  StageTranscribe,
			Binary: filepath.Base(b.whisper),
			Err:    fmt.Errorf("caption output missing: %w", err),
		}
	}

	return TranscribeResult{SegmentFilePath: srtPath}, nil
}

// Abort cancels the process registered under id
func (b *implBridge) Abort(id string) bool {
	b.mu.Lock()
	r, ok := b.running[id]
	b.mu.Unlock()
	if !ok {
		return false
	}

	r.aborted.Store(true)
	r.cancel()
	return true
}

func (b *implBridge) register(id string, cancel context.CancelFunc) *activeRun {
	r := &activeRun{cancel: cancel}
	b.mu.Lock()
	b.running[id] = r
	b.mu.Unlock()
	return r
}

func (b *implBridge) unregister(id string, r *activeRun) {
	b.mu.Lock()
	if b.running[id] == r {
		delete(b.running, id)
	}
	b.mu.Unlock()
}

func (b *implBridge) run(
	parent context.Context,
	id, stage, binary string,
	args []string,
	dir string,
	timeout time.Duration,
	parser *progressParser,
	onProgress ProgressFunc,
) (executor.Result, error) {
	name := filepath.Base(binary)
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	r := b.register(id, cancel)
	defer b.unregister(id, r)

	emit := func(percent int, msg string) {
		if onProgress == nil || r.aborted.Load() || parent.Err() != nil {
			return
		}
		onProgress(Progress{ID: id, Stage: stage, Percent: percent, Message: msg})
	}

	b.logger.Debug(ctx, "Running %s %s", name, strings.Join(args, " "))
	started := time.Now()
	emit(0, "starting "+name)

	res, err := b.exec.Stream(ctx, executor.Command{Name: binary, Args: args, Dir: dir}, func(_ executor.Stream, line string) {
		if percent, msg, changed := parser.parse(line); changed {
			emit(percent, msg)
		}
	})
	metrics.ObserveProcessDuration(name, time.Since(started).Seconds())

	switch {
	case r.aborted.Load() || errors.Is(parent.Err(), context.Canceled):
		metrics.RecordProcess(name, "cancelled")
		return res, fmt.Errorf("%s: %w", stage, ErrCancelled)
	case err != nil:
		metrics.RecordProcess(name, "failed")
		cause := err
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			cause = fmt.Errorf("timed out after %s: %w", timeout, context.DeadlineExceeded)
		} else if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			cause = fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		return res, &ProcessError{
			Stage:    stage,
			Binary:   name,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      cause,
		}
	}

	metrics.RecordProcess(name, "success")
	emit(100, "completed")
	return res, nil
}

// Check runs ffmpeg and whisper-cli and stats the configured model file
func (b *implBridge) Check(ctx context.Context) []HealthStatus {
	checkBinary := func(name, path string, args ...string) HealthStatus {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		st := HealthStatus{Name: name, Path: path}
		out, err := b.exec.Execute(pctx, path, args...)
		if err != nil {
			st.Detail = err.Error()
			return st
		}
		st.OK = true
		st.Detail = firstLine(out)
		return st
	}

	statuses := []HealthStatus{
		checkBinary("ffmpeg", b.ffmpeg, "-version"),
		checkBinary("whisper-cli", b.whisper, "--help"),
	}

	model := HealthStatus{Name: "whisper-model", Path: b.opts.ModelPath}
	if info, err := os.Stat(b.opts.ModelPath); err != nil {
		model.Detail = err.Error()
	} else {
		model.OK = info.Size() > 0
		model.Detail = fmt.Sprintf("%d MB", info.Size()/(1024*1024))
	}
	return append(statuses, model)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
