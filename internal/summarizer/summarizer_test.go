package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	calls  []string
	models []string
	reply  func(prompt string) (string, error)
}

func (r *recorder) Complete(ctx context.Context, prompt, model string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, prompt)
	r.models = append(r.models, model)
	r.mu.Unlock()
	return r.reply(prompt)
}

func newTestSummarizer(r llm.Completer) Summarizer {
	return New(r, Options{FastModel: "fast", SmartModel: "smart"}, logger.Discard())
}

func TestSummarizeShortPassesThrough(t *testing.T) {
	r := &recorder{reply: func(string) (string, error) { t.Fatal("unexpected call"); return "", nil }}

	got, err := newTestSummarizer(r).Summarize(context.Background(), "short text", "clip")
	require.NoError(t, err)
	assert.Equal(t, "short text", got)
}

func TestSummarizeSingleCall(t *testing.T) {
	r := &recorder{reply: func(string) (string, error) { return "  A fine summary of the talk.  ", nil }}

	got, err := newTestSummarizer(r).Summarize(context.Background(), strings.Repeat("word ", 400), "clip")
	require.NoError(t, err)
	assert.Equal(t, "A fine summary of the talk.", got)
	require.Len(t, r.calls, 1)
	assert.Contains(t, r.calls[0], "The source filename provides context about the content: clip")
	assert.Equal(t, "fast", r.models[0])
}

func TestSummarizeChunked(t *testing.T) {
	r := &recorder{reply: func(string) (string, error) { return "chunk summary text", nil }}

	got, err := newTestSummarizer(r).Summarize(context.Background(), strings.Repeat("a", 20000), "clip")
	require.NoError(t, err)
	require.Len(t, r.calls, 3)
	assert.Contains(t, r.calls[2], "clip_chunk_2")
	assert.Equal(t, "chunk summary text\n\nchunk summary text\n\nchunk summary text", got)
}

func TestSummarizeChunkFailureFallsBack(t *testing.T) {
	r := &recorder{reply: func(string) (string, error) { return "", errors.New("down") }}

	text := strings.Repeat("Sentence number one is here. ", 100)
	got, err := newTestSummarizer(r).Summarize(context.Background(), text, "clip")
	require.NoError(t, err)
	assert.Contains(t, got, "[Truncated from 2900 chars - clip]")
}

func TestSummarizeCompressionFallback(t *testing.T) {
	long := strings.Repeat("x", 9000)
	r := &recorder{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "This is a combined summary") {
			return "", errors.New("too big")
		}
		return long, nil
	}}

	got, err := newTestSummarizer(r).Summarize(context.Background(), strings.Repeat("a", 16001), "clip")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "... [TRUNCATED]"))
	assert.Len(t, got, 12000+len("... [TRUNCATED]"))
}

func TestSummarizeCompressionSucceeds(t *testing.T) {
	r := &recorder{reply: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "This is a combined summary") {
			return "compressed overall summary", nil
		}
		return strings.Repeat("y", 9000), nil
	}}

	got, err := newTestSummarizer(r).Summarize(context.Background(), strings.Repeat("a", 16001), "clip")
	require.NoError(t, err)
	assert.Equal(t, "compressed overall summary", got)
}

func TestSummarizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &recorder{reply: func(string) (string, error) { cancel(); return "", context.Canceled }}

	_, err := newTestSummarizer(r).Summarize(ctx, strings.Repeat("a", 20000), "clip")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, r.calls, 1)
}

func TestFallbackTruncate(t *testing.T) {
	got := FallbackTruncate("One. Two. Three", "clip")
	assert.Equal(t, "One. Two. Three. [Truncated from 15 chars - clip]", got)

	long := strings.Repeat("a", 300) + ". " + strings.Repeat("b", 200) + ". c"
	got = FallbackTruncate(long, "n")
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 300)+". [Truncated"))
}

func TestGenerateMetadata(t *testing.T) {
	r := &recorder{reply: func(string) (string, error) {
		return "Here you go:\n```json\n" + `{
			"thumbnail_text": ["big win", "Game Over"],
			"titles": ["  First Title  ", "", 7, "Second Title"],
			"description": "About the episode.",
			"tags": ["go", " concurrency ", ""],
			"hashtags": ["golang", "#dev"],
			"chapters": "0:00 Intro"
		}` + "\n```", nil
	}}

	res, err := newTestSummarizer(r).GenerateMetadata(context.Background(), "content", "SPREAKER")
	require.NoError(t, err)

	assert.Equal(t, "spreaker", res.Platform)
	assert.Contains(t, r.calls[0], "Spreaker")
	assert.Equal(t, "smart", r.models[0])

	md := res.Metadata
	assert.Equal(t, []string{"BIG WIN", "GAME OVER"}, md.ThumbnailText)
	assert.Equal(t, []string{"First Title", "Second Title"}, md.Titles)
	assert.Equal(t, "About the episode.", md.Description)
	assert.Equal(t, "go, concurrency", md.Tags)
	assert.Equal(t, "#golang #dev", md.Hashtags)
	assert.Equal(t, "0:00 Intro", md.Extra["chapters"])
	assert.Contains(t, res.Fixes, "Removed 2 invalid title entries")
	assert.Contains(t, res.Fixes, "Converted tags list to comma-separated string")
}

func TestGenerateMetadataFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  error
	}{
		{"provider error", "", errors.New("down"), nil},
		{"not json", "no idea", nil, llm.ErrUnparseable},
		{"empty object", `{"tags": "a, b"}`, nil, ErrEmptyMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{reply: func(string) (string, error) { return tt.reply, tt.err }}
			_, err := newTestSummarizer(r).GenerateMetadata(context.Background(), "content", "")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNormalizeOddTypes(t *testing.T) {
	md, fixes := Normalize(map[string]interface{}{
		"thumbnail_text": "NOT A LIST",
		"titles":         "single",
		"description":    42.0,
		"tags":           12.0,
		"hashtags":       "one #two  three",
	})

	assert.Empty(t, md.ThumbnailText)
	assert.Empty(t, md.Titles)
	assert.Equal(t, "42", md.Description)
	assert.Equal(t, "", md.Tags)
	assert.Equal(t, "#one #two #three", md.Hashtags)
	assert.ElementsMatch(t, []string{
		"Fixed non-list thumbnail_text",
		"Fixed non-list titles",
		"Converted description to string",
		"Fixed invalid tags format",
	}, fixes)
}

func TestPlatformPromptDefaultsToYouTube(t *testing.T) {
	assert.Contains(t, PlatformPrompt("stuff", "tiktok"), "YouTube")
	assert.Contains(t, PlatformPrompt("stuff", "youtube"), "CONTENT: stuff")
}

func TestSplitKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 5) // 10 bytes
	parts := splitChars(s, 3)
	assert.Equal(t, []string{"é", "é", "é", "é", "é"}, parts)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
	}

	assert.Equal(t, "aé", truncateRunes("aéb", 3))
	assert.Equal(t, "a", truncateRunes("aéb", 2))
	assert.Equal(t, "short", truncateRunes("short", 10))
}
