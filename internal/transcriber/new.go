package transcriber

import (
	"os"
	"sync"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
)

type implManager struct {
	bridge  bridge.Bridge
	logger  logger.Logger
	tempDir string
	model   string

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	remove    func(path string) error
	stat      func(name string) (os.FileInfo, error)
	readFile  func(name string) ([]byte, error)

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a Manager that keeps per-job workspaces under tempDir
func New(b bridge.Bridge, tempDir, modelHint string, log logger.Logger) Manager {
	return &implManager{
		bridge:    b,
		logger:    log,
		tempDir:   tempDir,
		model:     modelHint,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		remove:    os.Remove,
		stat:      os.Stat,
		readFile:  os.ReadFile,
		jobs:      make(map[string]*job),
	}
}
