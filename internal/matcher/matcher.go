// Package matcher maps quoted phrases back onto transcript timestamps
package matcher

import (
	"strings"

	"github.com/nguyentantai21042004/chapter-flow/internal/metrics"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

const (
	DefaultFuzzyThreshold = 0.5
	DefaultWindowPadding  = 50
	DefaultStride         = 10
)

type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

type Options struct {
	FuzzyThreshold float64
	WindowPadding  int
	Stride         int
}

type Match struct {
	Seconds  float64
	Tier     Tier
	Position int
}

type Matcher struct {
	opts Options
}

func New(opts Options) *Matcher {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.WindowPadding <= 0 {
		opts.WindowPadding = DefaultWindowPadding
	}
	if opts.Stride <= 0 {
		opts.Stride = DefaultStride
	}
	return &Matcher{opts: opts}
}

// FindTimestamp resolves phrase against segments with default window settings
func FindTimestamp(phrase string, segments []srt.Segment, fuzzyThreshold, minSeconds float64) (float64, bool) {
	m, ok := New(Options{FuzzyThreshold: fuzzyThreshold}).Find(phrase, NewCorpus(segments), minSeconds)
	return m.Seconds, ok
}

// Find tries exact, normalized and fuzzy search in that order.
// Only text at or after the first segment starting at minSeconds is searched.
func (m *Matcher) Find(phrase string, c *Corpus, minSeconds float64) (Match, bool) {
	match, ok := m.find(phrase, c, minSeconds)
	metrics.RecordMatch(match.Tier.String())
	return match, ok
}

func (m *Matcher) find(phrase string, c *Corpus, minSeconds float64) (Match, bool) {
	if c == nil || c.Len() == 0 || strings.TrimSpace(phrase) == "" {
		return Match{}, false
	}

	if pos, ok := search(c, c.exact, lower(phrase), minSeconds); ok {
		return Match{Seconds: c.secondsAt(c.exact, pos), Tier: TierExact, Position: pos}, true
	}

	normalized := normalize(phrase)
	if pos, ok := search(c, c.normalized, normalized, minSeconds); ok {
		return Match{Seconds: c.secondsAt(c.normalized, pos), Tier: TierNormalized, Position: pos}, true
	}

	if pos, ok := m.fuzzy(c, normalized, minSeconds); ok {
		return Match{Seconds: c.secondsAt(c.normalized, pos), Tier: TierFuzzy, Position: pos}, true
	}

	return Match{}, false
}

func search(c *Corpus, t text, needle string, minSeconds float64) (int, bool) {
	if needle == "" {
		return 0, false
	}
	from := c.floor(t, minSeconds)
	if from < 0 {
		return 0, false
	}
	i := strings.Index(t.body[from:], needle)
	if i < 0 {
		return 0, false
	}
	return from + i, true
}

// fuzzy slides a window of len(phrase)+padding across the corpus and picks the window
// containing the most phrase keywords. The reported position is the earliest keyword hit
// inside that window.
func (m *Matcher) fuzzy(c *Corpus, phrase string, minSeconds float64) (int, bool) {
	words := keywords(phrase)
	if len(words) == 0 {
		return 0, false
	}

	body := c.normalized.body
	from := c.floor(c.normalized, minSeconds)
	if from < 0 {
		return 0, false
	}

	size := len(phrase) + m.opts.WindowPadding
	bestCount, bestStart := 0, -1
	for start := from; start < len(body); start += m.opts.Stride {
		end := start + size
		if end > len(body) {
			end = len(body)
		}
		window := body[start:end]

		count := 0
		for _, w := range words {
			if strings.Contains(window, w) {
				count++
			}
		}
		if count > bestCount {
			bestCount, bestStart = count, start
		}
		if end == len(body) {
			break
		}
	}

	if bestStart < 0 || float64(bestCount) < m.opts.FuzzyThreshold*float64(len(words)) {
		return 0, false
	}

	end := bestStart + size
	if end > len(body) {
		end = len(body)
	}
	window := body[bestStart:end]
	first := len(window)
	for _, w := range words {
		if i := strings.Index(window, w); i >= 0 && i < first {
			first = i
		}
	}
	return bestStart + first, true
}
