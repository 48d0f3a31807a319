package watcher

import "context"

// Watcher monitors an input folder and hands every new video to a handler
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler is a function that handles one new input file
type EventHandler func(ctx context.Context, filePath string) error
