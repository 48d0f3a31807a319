package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captions = `1
00:00:00,000 --> 00:00:05,000
hello world

2
00:00:05,000 --> 00:12:00,000
goodbye
`

type fakeBridge struct {
	mu         sync.Mutex
	captions   string
	extractErr error
	block      chan struct{}
	started    chan struct{}
	aborted    map[string]bool
	workspaces []string
}

func (f *fakeBridge) ExtractAudio(ctx context.Context, id, in, out string, hint float64, onProgress bridge.ProgressFunc) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	onProgress(bridge.Progress{ID: id, Stage: bridge.StageExtract, Percent: 100})
	return os.WriteFile(out, []byte("RIFF"), 0644)
}

func (f *fakeBridge) Transcribe(ctx context.Context, id, audio, workDir, model string, onProgress bridge.ProgressFunc) (bridge.TranscribeResult, error) {
	f.mu.Lock()
	f.workspaces = append(f.workspaces, workDir)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		onProgress(bridge.Progress{ID: id, Stage: bridge.StageTranscribe, Percent: 10})
		close(f.started)
		<-block
		onProgress(bridge.Progress{ID: id, Stage: bridge.StageTranscribe, Percent: 60})
		return bridge.TranscribeResult{}, fmt.Errorf("transcribing: %w", bridge.ErrCancelled)
	}

	path := filepath.Join(workDir, "transcript.srt")
	if err := os.WriteFile(path, []byte(f.captions), 0644); err != nil {
		return bridge.TranscribeResult{}, err
	}
	return bridge.TranscribeResult{SegmentFilePath: path}, nil
}

func (f *fakeBridge) Abort(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted == nil {
		f.aborted = map[string]bool{}
	}
	f.aborted[id] = true
	if f.block != nil {
		close(f.block)
		f.block = nil
	}
	return true
}

func (f *fakeBridge) Check(ctx context.Context) []bridge.HealthStatus { return nil }

func newInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	return path
}

func assertNoWorkspaces(t *testing.T, tempDir string) {
	t.Helper()
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace should be removed")
}

func TestTranscribeSuccess(t *testing.T) {
	tempDir := t.TempDir()
	fb := &fakeBridge{captions: captions}
	m := New(fb, tempDir, "", logger.Discard())

	var events []bridge.Progress
	res, err := m.Transcribe(context.Background(), "job-1", newInput(t), func(p bridge.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", res.JobID)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, "hello world", res.Segments[0].Text)
	assert.Equal(t, 720.0, res.Duration)
	assert.NotEmpty(t, events)
	assertNoWorkspaces(t, tempDir)
}

func TestTranscribeNotFound(t *testing.T) {
	m := New(&fakeBridge{}, t.TempDir(), "", logger.Discard())

	_, err := m.Transcribe(context.Background(), "job", "/does/not/exist.mp4", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscribeEmptyResult(t *testing.T) {
	tempDir := t.TempDir()
	m := New(&fakeBridge{captions: "\n\n"}, tempDir, "", logger.Discard())

	_, err := m.Transcribe(context.Background(), "job", newInput(t), nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assertNoWorkspaces(t, tempDir)
}

func TestTranscribeExtractionFailureCleansUp(t *testing.T) {
	tempDir := t.TempDir()
	procErr := &bridge.ProcessError{Stage: bridge.StageExtract, Binary: "ffmpeg", ExitCode: 1, Stderr: "bad input"}
	m := New(&fakeBridge{extractErr: procErr}, tempDir, "", logger.Discard())

	_, err := m.Transcribe(context.Background(), "job", newInput(t), nil)
	var pErr *bridge.ProcessError
	require.True(t, errors.As(err, &pErr))
	assert.False(t, errors.Is(err, ErrCancelled))
	assertNoWorkspaces(t, tempDir)
}

func TestAbortMidTranscription(t *testing.T) {
	tempDir := t.TempDir()
	fb := &fakeBridge{captions: captions, block: make(chan struct{}), started: make(chan struct{})}
	m := New(fb, tempDir, "", logger.Discard())

	input := newInput(t)
	var mu sync.Mutex
	var percents []int
	done := make(chan error, 1)
	go func() {
		_, err := m.Transcribe(context.Background(), "job-abort", input, func(p bridge.Progress) {
			mu.Lock()
			percents = append(percents, p.Percent)
			mu.Unlock()
		})
		done <- err
	}()

	<-fb.started
	assert.True(t, m.Abort("job-abort"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after Abort")
	}

	mu.Lock()
	assert.Equal(t, []int{100, 10}, percents, "no progress after abort")
	mu.Unlock()
	fb.mu.Lock()
	assert.True(t, fb.aborted["job-abort"])
	fb.mu.Unlock()
	assertNoWorkspaces(t, tempDir)
	assert.False(t, m.Abort("job-abort"))
}

func TestConcurrentJobsUseSeparateWorkspaces(t *testing.T) {
	tempDir := t.TempDir()
	fb := &fakeBridge{captions: captions}
	m := New(fb, tempDir, "", logger.Discard())

	input := newInput(t)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Transcribe(context.Background(), fmt.Sprintf("job-%d", i), input, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, ws := range fb.workspaces {
		assert.False(t, seen[ws], "workspace reused: %s", ws)
		seen[ws] = true
	}
	assert.Len(t, seen, 4)
	assertNoWorkspaces(t, tempDir)
}

func TestReleaseIsIdempotent(t *testing.T) {
	var calls int
	m := New(&fakeBridge{}, t.TempDir(), "", logger.Discard()).(*implManager)
	m.removeAll = func(string) error { calls++; return nil }

	j := &job{workspace: "/tmp/x"}
	m.release(context.Background(), j)
	m.release(context.Background(), j)
	assert.Equal(t, 1, calls)
}
