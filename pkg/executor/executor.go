package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	maxStderrTail = 8 * 1024
	maxLineLength = 1024 * 1024
	waitDelay     = 5 * time.Second
)

type implExecutor struct{}

// New creates a new Executor instance
func New() Executor {
	return &implExecutor{}
}

// Execute runs an external command with the given arguments
func (e *implExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return e.ExecuteInDir(ctx, "", name, args...)
}

// ExecuteInDir runs an external command in a specific working directory
func (e *implExecutor) ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("command '%s' failed: %w\nstderr: %s", name, err, stderrStr)
		}
		return "", fmt.Errorf("command '%s' failed: %w", name, err)
	}

	return stdout.String(), nil
}

// Stream runs a command, delivering output lines as they are produced
func (e *implExecutor) Stream(ctx context.Context, c Command, onLine LineFunc) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay

	var (
		mu     sync.Mutex
		out    strings.Builder
		errBuf tailBuffer
	)
	deliver := func(stream Stream, line string) {
		mu.Lock()
		defer mu.Unlock()
		if stream == Stdout {
			out.WriteString(line)
			out.WriteByte('\n')
		} else {
			errBuf.writeLine(line)
		}
		if onLine != nil {
			onLine(stream, line)
		}
	}

	stdoutW := &lineWriter{emit: func(l string) { deliver(Stdout, l) }}
	stderrW := &lineWriter{emit: func(l string) { deliver(Stderr, l) }}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	runErr := cmd.Run()
	stdoutW.flush()
	stderrW.flush()

	mu.Lock()
	res := Result{
		Stdout:   out.String(),
		Stderr:   errBuf.String(),
		ExitCode: exitCode(cmd, runErr),
	}
	mu.Unlock()

	if runErr != nil {
		return res, fmt.Errorf("command '%s' failed: %w", c.Name, runErr)
	}
	return res, nil
}

// lineWriter splits written bytes on '\n' or '\r' and emits non-empty lines
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.send(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > maxLineLength {
		w.send(w.buf)
		w.buf = nil
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.send(w.buf)
	w.buf = nil
}

func (w *lineWriter) send(b []byte) {
	if line := strings.TrimSpace(string(b)); line != "" {
		w.emit(line)
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 0
}

type tailBuffer struct {
	b []byte
}

func (t *tailBuffer) writeLine(line string) {
	t.b = append(t.b, line...)
	t.b = append(t.b, '\n')
	if over := len(t.b) - maxStderrTail; over > 0 {
		t.b = t.b[over:]
	}
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.b))
}
