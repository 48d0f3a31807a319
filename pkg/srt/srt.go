// Package srt parses and writes caption-block (SubRip) text
package srt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one time-coded span of transcribed speech
type Segment struct {
	Index        int     `json:"index"`
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
	Text         string  `json:"text"`
}

var (
	timingLine = regexp.MustCompile(`^\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})`)
	timestamp  = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})$`)
	blockSep   = regexp.MustCompile(`\n\s*\n`)
)

// Parse converts caption text into segments.
// Blocks that do not have an index line, a timing line and at least one text line are skipped.
func Parse(content string) []Segment {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var segments []Segment
	for _, block := range blockSep.Split(strings.TrimSpace(content), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}

		m := timingLine.FindStringSubmatch(lines[1])
		if m == nil {
			continue
		}
		start, err := ParseTimestamp(m[1])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(m[2])
		if err != nil {
			continue
		}

		text := make([]string, 0, len(lines)-2)
		for _, l := range lines[2:] {
			if l = strings.TrimSpace(l); l != "" {
				text = append(text, l)
			}
		}
		if len(text) == 0 {
			continue
		}

		segments = append(segments, Segment{
			Index:        index,
			StartSeconds: start,
			EndSeconds:   end,
			Text:         strings.Join(text, " "),
		})
	}

	return segments
}

// ParseTimestamp converts "hh:mm:ss,mmm" (or with '.') to seconds
func ParseTimestamp(s string) (float64, error) {
	m := timestamp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	frac := m[4]
	for len(frac) < 3 {
		frac += "0"
	}
	ms, _ := strconv.Atoi(frac)

	return float64(h*3600+min*60+sec) + float64(ms)/1000, nil
}

// FormatTimestamp converts seconds to "hh:mm:ss,mmm"
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", s/3600, (s%3600)/60, s%60, ms)
}

// Format serializes segments as caption text, renumbering from 1
func Format(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			i+1, FormatTimestamp(seg.StartSeconds), FormatTimestamp(seg.EndSeconds), seg.Text)
	}
	return b.String()
}

// Duration returns the end time of the last segment
func Duration(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].EndSeconds
}

// Text joins all segment texts with single spaces
func Text(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}
