package transcriber

import (
	"context"
	"errors"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

var (
	ErrNotFound    = errors.New("input not found")
	ErrEmptyResult = errors.New("speech engine produced no segments")
	ErrCancelled   = bridge.ErrCancelled
)

// Manager converts one media file into time-coded segments
type Manager interface {
	// Transcribe runs one job end to end. jobID doubles as the bridge correlation id.
	Transcribe(ctx context.Context, jobID, videoPath string, onProgress bridge.ProgressFunc) (Result, error)
	// Abort cancels a running job. It reports whether the job was known.
	Abort(jobID string) bool
}

type Result struct {
	JobID    string
	Segments []srt.Segment
	Duration float64
}
