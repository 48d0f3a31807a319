package chapters

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

const DefaultChunkSeconds = 30.0

// Chunk is a ~30 second slice of transcript closed at a sentence boundary
type Chunk struct {
	ID           int     `json:"id"`
	Time         string  `json:"time"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"startSeconds"`
}

// ChunkSegments groups segments into chunks of roughly target seconds.
// When a chunk is closed the trailing partial sentence carries into the next one.
func ChunkSegments(segments []srt.Segment, target float64) []Chunk {
	if len(segments) == 0 {
		return nil
	}
	if target <= 0 {
		target = DefaultChunkSeconds
	}

	var (
		chunks  []Chunk
		parts   []string
		startAt = segments[0].StartSeconds
		id      = 1
	)
	flush := func(text string) {
		chunks = append(chunks, Chunk{ID: id, Time: FormatClock(startAt), Text: text, StartSeconds: startAt})
		id++
	}

	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}

		if seg.StartSeconds-startAt < target {
			continue
		}

		sentences := splitSentences(strings.Join(parts, " "))
		if len(sentences) > 1 {
			flush(strings.Join(sentences[:len(sentences)-1], " "))
			parts = []string{sentences[len(sentences)-1]}
		} else {
			flush(strings.Join(parts, " "))
			parts = nil
		}
		startAt = seg.StartSeconds
	}

	if len(parts) > 0 {
		flush(strings.Join(parts, " "))
	}
	return chunks
}

// splitSentences splits after '.', '!' or '?' when followed by whitespace and an upper-case letter
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i
		for j < len(text) {
			ws, n := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += n
		}
		if j == i || j >= len(text) {
			continue
		}
		if next, _ := utf8.DecodeRuneInString(text[j:]); unicode.IsUpper(next) {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = j
			i = j
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// FormatForAI renders chunks as "N. [m:ss] text" lines
func FormatForAI(chunks []Chunk) string {
	lines := make([]string, 0, len(chunks))
	for _, c := range chunks {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", c.ID, c.Time, c.Text))
	}
	return strings.Join(lines, "\n")
}

// FormatClock renders seconds as "m:ss", or "h:mm:ss" past the first hour
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseClock accepts "h:mm:ss", "m:ss" or "ss"
func ParseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		total = total*60 + n
	}
	return float64(total), nil
}
