package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks an aborted operation. It is an outcome, not a failure.
	ErrCancelled = errors.New("cancelled")
	// ErrBinaryNotFound is a configuration error; the binary could not be resolved
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrArchMismatch is a configuration error; the binary targets another CPU architecture
	ErrArchMismatch = errors.New("binary architecture mismatch")
)

const (
	StageExtract    = "extracting"
	StageTranscribe = "transcribing"
)

// ProcessError is a stage-aware failure of one external process
type ProcessError struct {
	Stage    string
	Binary   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s failed (exit=%d)", e.Stage, e.Binary, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\nstderr: " + lastLines(e.Stderr, 10)
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsCancelled reports whether err is the cancelled outcome
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
