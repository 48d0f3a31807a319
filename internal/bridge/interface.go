package bridge

import "context"

// Bridge wraps the audio transcoder and the speech engine binaries
type Bridge interface {
	// ExtractAudio converts input media into 16kHz mono WAV at outputPath.
	// durationHint (seconds, 0 if unknown) lets progress be derived from ffmpeg's time= output.
	ExtractAudio(ctx context.Context, id, inputPath, outputPath string, durationHint float64, onProgress ProgressFunc) error
	// Transcribe runs the speech engine on audioPath and writes a caption file into workDir.
	// modelHint overrides the configured model path when non-empty.
	Transcribe(ctx context.Context, id, audioPath, workDir, modelHint string, onProgress ProgressFunc) (TranscribeResult, error)
	// Abort kills the process running under id. It reports whether one was found.
	Abort(id string) bool
	// Check runs both binaries and stats the speech model
	Check(ctx context.Context) []HealthStatus
}

// Progress is one normalized progress report for a correlation id.
// Percent only reaches 100 once the process has exited successfully.
type Progress struct {
	ID      string
	Stage   string
	Percent int
	Message string
}

type ProgressFunc func(Progress)

type TranscribeResult struct {
	SegmentFilePath string
}

type HealthStatus struct {
	Name   string
	Path   string
	OK     bool
	Detail string
}
