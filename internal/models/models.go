// Package models holds the data types shared between engine components
package models

import (
	"sort"
	"time"
)

// Marker is a chapter or section boundary.
// Sequence is assigned by Renumber, never taken from model output.
type Marker struct {
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
	Title        string  `json:"title"`
	Body         string  `json:"description"`
	SourcePhrase string  `json:"startPhrase,omitempty"`
	Sequence     int     `json:"sectionNumber"`
}

func (m Marker) Duration() float64 {
	return m.EndSeconds - m.StartSeconds
}

// Report is the persisted result of one long-form analysis run
type Report struct {
	SourcePath           string    `json:"sourcePath"`
	TotalDurationSeconds float64   `json:"totalDuration"`
	SectionCount         int       `json:"sectionCount"`
	Sections             []Marker  `json:"sections"`
	AnalyzedAt           time.Time `json:"analyzedAt"`
}

// NewReport builds a Report from a finished section list
func NewReport(source string, duration float64, sections []Marker, now time.Time) Report {
	return Report{
		SourcePath:           source,
		TotalDurationSeconds: duration,
		SectionCount:         len(sections),
		Sections:             sections,
		AnalyzedAt:           now.UTC(),
	}
}

// SortMarkers sorts by start time, keeping the relative order of equal starts
func SortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].StartSeconds < markers[j].StartSeconds
	})
}

// Renumber assigns 1-based sequence numbers in slice order
func Renumber(markers []Marker) {
	for i := range markers {
		markers[i].Sequence = i + 1
	}
}

// RecomputeEnds sets each end to the next start, and the last end to limit
func RecomputeEnds(markers []Marker, limit float64) {
	for i := range markers {
		if i+1 < len(markers) {
			markers[i].EndSeconds = markers[i+1].StartSeconds
		} else {
			markers[i].EndSeconds = limit
		}
	}
}

// Clone returns a copy that can be modified without affecting the input
func Clone(markers []Marker) []Marker {
	if markers == nil {
		return nil
	}
	out := make([]Marker, len(markers))
	copy(out, markers)
	return out
}
