package sections

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns its responses in order and records every prompt
type scripted struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (s *scripted) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.prompts) > len(s.responses) {
		return "[]", nil
	}
	return s.responses[len(s.prompts)-1], nil
}

// timeline builds filler segments every step seconds, replacing the text at the given starts
func timeline(total, step float64, lines map[float64]string) []srt.Segment {
	var out []srt.Segment
	for t, i := 0.0, 1; t < total; t, i = t+step, i+1 {
		text := "lorem ipsum dolor sit amet"
		if l, ok := lines[t]; ok {
			text = l
		}
		out = append(out, srt.Segment{Index: i, StartSeconds: t, EndSeconds: t + step, Text: text})
	}
	return out
}

func starts(markers []models.Marker) []float64 {
	out := make([]float64, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.StartSeconds)
	}
	return out
}

func TestDetectTwelveMinuteExample(t *testing.T) {
	segments := timeline(720, 3, map[float64]string{
		0:   "welcome to the gardening hour",
		252: "now let us talk about tomatoes",
		525: "finally we cover the harvest season",
	})
	model := &scripted{responses: []string{`[
		{"startPhrase": "welcome to the gardening hour", "title": "Intro", "description": "Hello"},
		{"startPhrase": "let us talk about tomatoes", "title": "Tomatoes", "description": "Red"},
		{"startPhrase": "we cover the harvest season", "title": "Harvest", "description": "Done"}
	]`}}

	got, err := New(model, Options{}, logger.Discard()).Detect(context.Background(), "", segments, 720, "")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []float64{0, 252, 525}, starts(got))
	assert.Equal(t, 252.0, got[0].EndSeconds)
	assert.Equal(t, 525.0, got[1].EndSeconds)
	assert.Equal(t, 720.0, got[2].EndSeconds)
	assert.Equal(t, "Tomatoes", got[1].Title)
	assert.Equal(t, "Red", got[1].Body)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Sequence, got[1].Sequence, got[2].Sequence})
	assert.Len(t, model.prompts, 1)

	report := models.NewReport("talk.mp4", 720, got, time.Now())
	assert.Equal(t, 3, report.SectionCount)
}

func TestDetectForcesFirstSectionToZero(t *testing.T) {
	segments := timeline(300, 10, map[float64]string{60: "the real start of things", 200: "second topic begins here"})
	model := &scripted{responses: []string{`[
		{"startPhrase": "the real start of things", "title": "First"},
		{"startPhrase": "second topic begins here", "title": "Second"}
	]`}}

	got, err := New(model, Options{}, logger.Discard()).Detect(context.Background(), "", segments, 300, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 200}, starts(got))
}

func TestDetectKeepsChronologicalOrder(t *testing.T) {
	segments := timeline(600, 10, map[float64]string{
		100: "apples are discussed first",
		400: "bananas come much later",
	})
	model := &scripted{responses: []string{`[
		{"startPhrase": "lorem ipsum", "title": "Opening"},
		{"startPhrase": "bananas come much later", "title": "Bananas"},
		{"startPhrase": "apples are discussed first", "title": "Apples"}
	]`}}

	got, err := New(model, Options{}, logger.Discard()).Detect(context.Background(), "", segments, 600, "")
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 400}, starts(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].StartSeconds, got[i-1].StartSeconds)
	}
}

func TestDetectLongSectionEqualFallback(t *testing.T) {
	segments := timeline(9000, 30, nil)
	model := &scripted{responses: []string{
		`[{"startPhrase": "lorem ipsum", "title": "Marathon", "description": "All of it"}]`,
		`[{"startPhrase": "zebra xylophone quantum", "title": "Nope"}]`,
	}}

	got, err := New(model, Options{Ceiling: 3600}, logger.Discard()).Detect(context.Background(), "", segments, 9000, "")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []float64{0, 3000, 6000}, starts(got))
	assert.Equal(t, "Marathon (Part 1)", got[0].Title)
	assert.Equal(t, "Marathon (Part 3)", got[2].Title)

	sum := 0.0
	for _, m := range got {
		sum += m.Duration()
	}
	assert.Equal(t, 9000.0, sum)
	assert.Len(t, model.prompts, 2)
	assert.Contains(t, model.prompts[1], "exactly 2 points")
}

func TestDetectLongSectionSplitByPhrases(t *testing.T) {
	segments := timeline(9000, 30, map[float64]string{
		3000: "moving on to the second hour",
		6000: "the final stretch starts now",
	})
	model := &scripted{responses: []string{
		`{"sections": [{"startPhrase": "lorem ipsum", "title": "Marathon"}]}`,
		"```json\n[" +
			`{"startPhrase": "moving on to the second hour", "title": "Hour two"},` +
			`{"startPhrase": "the final stretch starts now", "title": "Hour three"}` +
			"]\n```",
	}}

	got, err := New(model, Options{Ceiling: 3600}, logger.Discard()).Detect(context.Background(), "", segments, 9000, "")
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 3000, 6000}, starts(got))
	assert.Equal(t, []string{"Marathon", "Hour two", "Hour three"}, []string{got[0].Title, got[1].Title, got[2].Title})
	assert.Equal(t, 9000.0, got[2].EndSeconds)
}

func TestDetectSplitPieceStillTooLong(t *testing.T) {
	segments := timeline(9000, 30, map[float64]string{1200: "a short opening ends here"})
	model := &scripted{responses: []string{
		`[{"startPhrase": "lorem ipsum", "title": "Marathon"}]`,
		`[{"startPhrase": "a short opening ends here", "title": "Rest"}]`,
	}}

	got, err := New(model, Options{Ceiling: 3600}, logger.Discard()).Detect(context.Background(), "", segments, 9000, "")
	require.NoError(t, err)

	for _, m := range got {
		assert.LessOrEqual(t, m.Duration(), 3600.0)
	}
	assert.Equal(t, 0.0, got[0].StartSeconds)
	assert.Equal(t, 9000.0, got[len(got)-1].EndSeconds)
}

func TestDetectErrors(t *testing.T) {
	segments := timeline(120, 10, nil)

	_, err := New(&scripted{responses: []string{"sorry, no"}}, Options{}, logger.Discard()).
		Detect(context.Background(), "", segments, 120, "")
	assert.Error(t, err)

	_, err = New(&scripted{}, Options{}, logger.Discard()).Detect(context.Background(), "", nil, 0, "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(&scripted{responses: []string{"[]"}}, Options{}, logger.Discard()).Detect(ctx, "", segments, 120, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEqualSplit(t *testing.T) {
	parts := EqualSplit(models.Marker{StartSeconds: 100, EndSeconds: 400, Title: "T", Body: "b"}, 3)

	require.Len(t, parts, 3)
	assert.Equal(t, []float64{100, 200, 300}, starts(parts))
	assert.Equal(t, 400.0, parts[2].EndSeconds)
	assert.Equal(t, "T (Part 2)", parts[1].Title)
	assert.Equal(t, "b", parts[2].Body)

	assert.Len(t, EqualSplit(models.Marker{EndSeconds: 10}, 1), 1)
}

func TestRenderPrompt(t *testing.T) {
	got := renderPrompt("Length {duration}\n{transcript}", "words", 3725)
	assert.Equal(t, "Length 1:02:05\nwords", got)
	assert.True(t, strings.HasSuffix(renderPrompt("No placeholder", "words", 10), "\n\nwords"))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abc", truncate("abc", 10))
}
