package executor

import "context"

// Executor defines the interface for executing external commands
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
	ExecuteInDir(ctx context.Context, dir string, name string, args ...string) (string, error)
	// Stream runs cmd and hands every output line to onLine as it arrives.
	// Carriage returns count as line breaks so progress bars are seen incrementally.
	Stream(ctx context.Context, cmd Command, onLine LineFunc) (Result, error)
}

// Stream names the output stream a line came from
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineFunc receives one output line. Calls are serialized.
type LineFunc func(stream Stream, line string)

type Command struct {
	Name string
	Args []string
	Dir  string
}

type Result struct {
	Stdout   string
	Stderr   string // tail only, bounded by maxStderrTail
	ExitCode int
}
