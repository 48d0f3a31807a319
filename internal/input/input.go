package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
	"golang.org/x/sync/errgroup"
)

// Kind is the detected type of one input item
type Kind string

const (
	KindSubject    Kind = "subject"
	KindVideo      Kind = "video"
	KindTranscript Kind = "transcript_file"
	KindDirectory  Kind = "directory"
)

const (
	DefaultMaxFileSizeMB = 500
	MinSubjectLength     = 3
	MaxSubjectLength     = 1000
)

var ErrInvalidInput = errors.New("invalid input")

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true, ".m4v": true,
	".flv": true, ".wmv": true, ".mpg": true, ".mpeg": true, ".3gp": true, ".ogv": true,
}

var systemFiles = map[string]bool{
	"Thumbs.db":   true,
	"Desktop.ini": true,
	".DS_Store":   true,
	".localized":  true,
	"Icon\r":      true,
}

// Item is one validated input
type Item struct {
	Source string
	Kind   Kind
}

// IsVideo reports whether path has a supported video extension
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Detect classifies item. Anything path-like is a file or directory, everything else is a subject.
func Detect(item string) Kind {
	item = strings.TrimSpace(item)
	if ext := filepath.Ext(item); (ext == "" || ext == ".") && !strings.ContainsAny(item, `/\`) {
		return KindSubject
	}

	if info, err := os.Stat(item); err == nil && info.IsDir() {
		return KindDirectory
	}
	if IsVideo(item) {
		return KindVideo
	}
	return KindTranscript
}

// Validate rejects item before any work starts. Errors wrap ErrInvalidInput.
func Validate(item string, kind Kind, maxFileSizeMB int) error {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = DefaultMaxFileSizeMB
	}

	switch kind {
	case KindSubject:
		if len(strings.TrimSpace(item)) < MinSubjectLength {
			return fmt.Errorf("%w: subject must be at least %d characters", ErrInvalidInput, MinSubjectLength)
		}
		if len(item) > MaxSubjectLength {
			return fmt.Errorf("%w: subject too long (max %d characters)", ErrInvalidInput, MaxSubjectLength)
		}
	case KindVideo, KindTranscript:
		info, err := os.Stat(item)
		if err != nil {
			return fmt.Errorf("%w: file not found: %s", ErrInvalidInput, item)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: path is not a file: %s", ErrInvalidInput, item)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%w: file is empty: %s", ErrInvalidInput, item)
		}
		if sizeMB := float64(info.Size()) / (1024 * 1024); sizeMB > float64(maxFileSizeMB) {
			return fmt.Errorf("%w: file too large: %.1fMB (max: %dMB)", ErrInvalidInput, sizeMB, maxFileSizeMB)
		}
	case KindDirectory:
		info, err := os.Stat(item)
		if err != nil {
			return fmt.Errorf("%w: directory not found: %s", ErrInvalidInput, item)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: path is not a directory: %s", ErrInvalidInput, item)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}
	return nil
}

// ShouldSkip reports hidden files, macOS resource forks, system files and extensionless names
func ShouldSkip(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || systemFiles[base] {
		return true
	}
	return filepath.Ext(base) == ""
}

// ListVideos returns the videos directly inside dir, sorted by name
func ListVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || ShouldSkip(e.Name()) || !IsVideo(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Resolve detects and validates every item concurrently, expanding directories into their videos.
// Accepted items keep their input order; rejected ones are returned separately and never abort the rest.
func Resolve(ctx context.Context, items []string, maxFileSizeMB int) ([]Item, []error, error) {
	type outcome struct {
		items []Item
		err   error
	}
	outcomes := make([]outcome, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, raw := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			source := strings.TrimSpace(raw)
			kind := Detect(source)
			if err := Validate(source, kind, maxFileSizeMB); err != nil {
				outcomes[i].err = err
				return nil
			}
			if kind != KindDirectory {
				outcomes[i].items = []Item{{Source: source, Kind: kind}}
				return nil
			}

			videos, err := ListVideos(source)
			if err != nil {
				outcomes[i].err = fmt.Errorf("%w: %v", ErrInvalidInput, err)
				return nil
			}
			for _, v := range videos {
				if err := Validate(v, KindVideo, maxFileSizeMB); err != nil {
					outcomes[i].err = errors.Join(outcomes[i].err, err)
					continue
				}
				outcomes[i].items = append(outcomes[i].items, Item{Source: v, Kind: KindVideo})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		accepted []Item
		rejected []error
	)
	for _, o := range outcomes {
		accepted = append(accepted, o.items...)
		if o.err != nil {
			rejected = append(rejected, o.err)
		}
	}
	return accepted, rejected, nil
}

// ReadTranscript loads a transcript file. Caption files also yield their segments.
func ReadTranscript(path string) (string, []srt.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read transcript: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".srt") {
		segments := srt.Parse(string(data))
		if len(segments) > 0 {
			return srt.Text(segments), segments, nil
		}
	}
	return strings.TrimSpace(string(data)), nil, nil
}
