package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nguyentantai21042004/chapter-flow/internal/models"
)

// Store persists analysis reports under one directory
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes r as <name>.json. Readers see either the previous file or the complete new one.
func (s *Store) Save(r models.Report, name string) (string, error) {
	if r.SectionCount == 0 || len(r.Sections) == 0 {
		return "", errors.New("refusing to save a report without sections")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(s.dir, SanitizeFilename(name, 100)+".json")
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a report written by Save
func (s *Store) Load(path string) (models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Report{}, fmt.Errorf("read report: %w", err)
	}
	var r models.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// SanitizeFilename replaces characters that are invalid in file names and collapses whitespace to '_'
func SanitizeFilename(name string, maxLen int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r == 0 {
			return '_'
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), "_")
	name = truncate(name, maxLen)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		return "report"
	}
	return name
}

// CleanName removes invalid file name characters but keeps single spaces
func CleanName(name string, maxLen int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || r == 0 {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.TrimRight(truncate(name, maxLen), ". ")
	if name == "" {
		return "metadata"
	}
	return name
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
