package srt

import (
	"fmt"
	"os"
)

// ReadFile parses a caption file from disk
func ReadFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return Parse(string(data)), nil
}

// WriteFile writes segments as caption text to path
func WriteFile(path string, segments []Segment) error {
	if err := os.WriteFile(path, []byte(Format(segments)), 0644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
