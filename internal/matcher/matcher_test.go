package matcher

import (
	"testing"

	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
	"github.com/stretchr/testify/assert"
)

var segments = []srt.Segment{
	{Index: 1, StartSeconds: 0, EndSeconds: 10, Text: "Hello world, this is the intro."},
	{Index: 2, StartSeconds: 10, EndSeconds: 20, Text: "Now we cover   the main   topic of today."},
	{Index: 3, StartSeconds: 20, EndSeconds: 30, Text: "Finally we wrap up with questions."},
	{Index: 4, StartSeconds: 30, EndSeconds: 40, Text: "Hello world again at the end."},
	{Index: 5, StartSeconds: 40, EndSeconds: 50, Text: "Cafe\u0301 au lait is the sponsor."},
}

func TestFind(t *testing.T) {
	m := New(Options{})
	c := NewCorpus(segments)

	tests := []struct {
		name       string
		phrase     string
		minSeconds float64
		wantOK     bool
		wantSec    float64
		wantTier   Tier
	}{
		{"exact", "hello world", 0, true, 0, TierExact},
		{"exact is case-insensitive", "WRAP UP", 0, true, 20, TierExact},
		{"exact respects lower bound", "hello world", 1, true, 30, TierExact},
		{"normalized collapses corpus whitespace", "cover the main topic", 0, true, 10, TierNormalized},
		{"normalized collapses phrase whitespace", "wrap    up   with", 0, true, 20, TierNormalized},
		{"normalized composes unicode", "CAF\u00c9 au lait", 0, true, 40, TierNormalized},
		{"fuzzy with two of three words", "we finally wrapped questions", 0, true, 20, TierFuzzy},
		{"absent phrase", "quantum chromodynamics lecture", 0, false, 0, TierNone},
		{"lower bound past every segment", "hello world", 41, false, 0, TierNone},
		{"empty phrase", "   ", 0, false, 0, TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Find(tt.phrase, c, tt.minSeconds)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSec, got.Seconds)
				assert.Equal(t, tt.wantTier, got.Tier)
			}
		})
	}
}

func TestNormalizedTierIsUsedForPhraseWhitespace(t *testing.T) {
	segs := []srt.Segment{
		{StartSeconds: 0, Text: "opening remarks"},
		{StartSeconds: 15, Text: "the second part begins"},
	}
	got, ok := New(Options{}).Find("second   part", NewCorpus(segs), 0)
	assert.True(t, ok)
	assert.Equal(t, TierNormalized, got.Tier)
	assert.Equal(t, 15.0, got.Seconds)
}

func TestFuzzyThreshold(t *testing.T) {
	c := NewCorpus(segments)

	_, ok := New(Options{FuzzyThreshold: 1}).Find("we finally wrapped questions", c, 0)
	assert.False(t, ok, "2 of 3 keywords should fail a threshold of 1.0")

	_, ok = New(Options{FuzzyThreshold: 0.6}).Find("we finally wrapped questions", c, 0)
	assert.True(t, ok)
}

func TestFuzzyRespectsLowerBound(t *testing.T) {
	c := NewCorpus(segments)

	got, ok := New(Options{}).Find("hello planet world", c, 25)
	assert.True(t, ok)
	assert.Equal(t, TierFuzzy, got.Tier)
	assert.Equal(t, 30.0, got.Seconds)
}

func TestFuzzyIgnoresShortWords(t *testing.T) {
	assert.Equal(t, []string{"the", "end"}, keywords("at the END of it, the end"))
}

func TestFindTimestamp(t *testing.T) {
	sec, ok := FindTimestamp("hello world", segments, 0.5, 0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, sec)

	_, ok = FindTimestamp("hello world", nil, 0.5, 0)
	assert.False(t, ok)
}

func TestMonotonicChain(t *testing.T) {
	c := NewCorpus(segments)
	m := New(Options{})

	prev := -1.0
	for _, phrase := range []string{"hello world", "main topic", "hello world"} {
		got, ok := m.Find(phrase, c, prev+1)
		if !assert.True(t, ok, phrase) {
			return
		}
		assert.Greater(t, got.Seconds, prev)
		prev = got.Seconds
	}
	assert.Equal(t, 30.0, prev)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "exact", TierExact.String())
	assert.Equal(t, "fuzzy", TierFuzzy.String())
	assert.Equal(t, "none", TierNone.String())
}
