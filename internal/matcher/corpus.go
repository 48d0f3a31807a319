package matcher

import (
	"sort"
	"strings"
	"unicode"

	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// text is one searchable rendering of the transcript with per-segment start offsets
type text struct {
	body    string
	offsets []int
}

// Corpus is the lower-cased transcript prepared for repeated lookups.
// It is read-only after construction and safe for concurrent use.
type Corpus struct {
	starts     []float64
	exact      text
	normalized text
}

// NewCorpus indexes segments in the order given
func NewCorpus(segments []srt.Segment) *Corpus {
	c := &Corpus{starts: make([]float64, len(segments))}

	exact := make([]string, len(segments))
	normalized := make([]string, len(segments))
	for i, seg := range segments {
		c.starts[i] = seg.StartSeconds
		exact[i] = lower(seg.Text)
		normalized[i] = normalize(seg.Text)
	}

	c.exact = join(exact)
	c.normalized = join(normalized)
	return c
}

func join(parts []string) text {
	t := text{offsets: make([]int, len(parts))}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		t.offsets[i] = b.Len()
		b.WriteString(p)
	}
	t.body = b.String()
	return t
}

// Len is the number of indexed segments
func (c *Corpus) Len() int {
	return len(c.starts)
}

// floor returns the byte offset of the first segment starting at or after minSeconds,
// or -1 when no segment qualifies
func (c *Corpus) floor(t text, minSeconds float64) int {
	if minSeconds <= 0 {
		return 0
	}
	i := sort.Search(len(c.starts), func(i int) bool { return c.starts[i] >= minSeconds })
	if i == len(c.starts) {
		return -1
	}
	return t.offsets[i]
}

// secondsAt maps a byte position to the start of the segment containing it
func (c *Corpus) secondsAt(t text, pos int) float64 {
	i := sort.Search(len(t.offsets), func(i int) bool { return t.offsets[i] > pos }) - 1
	if i < 0 {
		i = 0
	}
	return c.starts[i]
}

var lowerCaser = cases.Lower(language.Und)

func lower(s string) string {
	return lowerCaser.String(s)
}

// normalize lower-cases, composes to NFC and collapses whitespace runs to one space
func normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(lower(s))), " ")
}

// keywords returns the distinct words of phrase longer than two runes
func keywords(phrase string) []string {
	fields := strings.FieldsFunc(normalize(phrase), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})

	seen := make(map[string]bool, len(fields))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len([]rune(w)) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}
