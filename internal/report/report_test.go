package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/internal/summarizer"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleReport() models.Report {
	sections := []models.Marker{
		{StartSeconds: 0, EndSeconds: 252, Title: "Opening", Body: "Hosts say **hello**", Sequence: 1},
		{StartSeconds: 252, EndSeconds: 720, Title: "Main Topic", Sequence: 2},
	}
	return models.NewReport("talk.mp4", 720, sections, fixedNow)
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Save(sampleReport(), "my talk")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "my_talk.json"), path)

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SectionCount)
	assert.Equal(t, 720.0, got.TotalDurationSeconds)
	assert.Equal(t, "Main Topic", got.Sections[1].Title)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveReplacesExisting(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save(sampleReport(), "talk")
	require.NoError(t, err)

	r := sampleReport()
	r.Sections = r.Sections[:1]
	r.SectionCount = 1
	path, err := s.Save(r, "talk")
	require.NoError(t, err)

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SectionCount)
}

func TestSaveRejectsEmptyReport(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save(models.NewReport("x", 10, nil, fixedNow), "x")
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(filepath.Join(s.Dir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(s.Dir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = s.Load(bad)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"My: Video / Name", 100, "My__Video___Name"},
		{"plain", 100, "plain"},
		{"trailing dots...", 100, "trailing_dots"},
		{"abcdefghij", 4, "abcd"},
		{"???", 100, "___"},
		{"", 100, "report"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in, tt.max), tt.in)
	}
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "ab c", CleanName("a:b  c?.", 100))
	assert.Equal(t, "metadata", CleanName("***", 100))
	assert.Equal(t, "héllo", CleanName("héllo wörld", 6))
}

func sampleMetadata() summarizer.Result {
	return summarizer.Result{
		Platform: "youtube",
		Metadata: summarizer.Metadata{
			ThumbnailText: []string{"BIG NEWS"},
			Titles:        []string{"First Title", "Second Title"},
			Description:   "About the episode.",
			Tags:          "go, concurrency",
			Hashtags:      "#golang #dev",
			Extra:         map[string]interface{}{"chapters": []interface{}{"0:00 Intro"}, "mood": "calm"},
		},
		Fixes: []string{"Converted tags list to comma-separated string"},
	}
}

func TestSaveMetadata(t *testing.T) {
	s := newTestStore(t)

	folder, err := s.SaveMetadata(sampleMetadata(), "", "/videos/My Talk?.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "metadata", "20260102_030405_youtube_My_Talk_"), folder)

	data, err := os.ReadFile(filepath.Join(folder, "metadata.json"))
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "My Talk", raw["_title"])
	assert.Equal(t, "youtube", raw["_prompt_set"])
	assert.Equal(t, "About the episode.", raw["description"])

	txt, err := os.ReadFile(filepath.Join(folder, "My Talk.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "METADATA - youtube")
}

func TestSaveMetadataRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveMetadata(summarizer.Result{Platform: "youtube"}, "", "x.mp4")
	assert.Error(t, err)
}

func TestReadable(t *testing.T) {
	text := Readable(sampleMetadata().Metadata, "youtube", fixedNow)
	lines := strings.Split(text, "\n")

	assert.Equal(t, banner, lines[0])
	assert.Equal(t, "METADATA - youtube", lines[1])
	assert.Equal(t, "Generated: 2026-01-02 03:04:05", lines[2])
	assert.Equal(t, "End of metadata", lines[len(lines)-2])

	for _, want := range []string{
		"TITLES\n" + rule + "\n1. First Title\n2. Second Title\n",
		"THUMBNAIL TEXT\n" + rule + "\n1. BIG NEWS\n",
		"DESCRIPTION\n" + rule + "\nAbout the episode.\n",
		"HASHTAGS\n" + rule + "\n#golang #dev\n",
		"TAGS\n" + rule + "\ngo, concurrency\n",
		"ADDITIONAL METADATA\n" + rule + "\nCHAPTERS:\n[\n  \"0:00 Intro\"\n]\n\nMOOD:\ncalm\n",
	} {
		assert.Contains(t, text, want)
	}
	assert.Less(t, strings.Index(text, "HASHTAGS"), strings.Index(text, "TAGS\n"+rule+"\ngo"))
}

func TestReadableSkipsEmptySections(t *testing.T) {
	text := Readable(summarizer.Metadata{Description: "only this"}, "spreaker", fixedNow)
	assert.NotContains(t, text, "TITLES")
	assert.NotContains(t, text, "ADDITIONAL METADATA")
	assert.Contains(t, text, "only this")
}

func TestMetadataMarkdown(t *testing.T) {
	md := MetadataMarkdown(sampleMetadata().Metadata)
	assert.Contains(t, md, "## Titles\n- First Title\n- Second Title\n")
	assert.Contains(t, md, "## Description\nAbout the episode.\n")
}

func TestDocxWriters(t *testing.T) {
	dir := t.TempDir()

	reportPath := filepath.Join(dir, "sections.docx")
	require.NoError(t, WriteDocx(sampleReport(), "talk", reportPath))

	mdPath := filepath.Join(dir, "metadata.docx")
	require.NoError(t, MarkdownDocx("talk", MetadataMarkdown(sampleMetadata().Metadata), mdPath))

	segments := []srt.Segment{{Index: 1, Text: "Hello there"}, {Index: 2, Text: "Hello there"}, {Index: 3, Text: "Bye"}}
	trPath := filepath.Join(dir, "transcript.docx")
	require.NoError(t, TranscriptDocx("talk", segments, trPath))

	for _, p := range []string{reportPath, mdPath, trPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestTranscriptLines(t *testing.T) {
	segments := []srt.Segment{
		{Text: "Hello there\nGeneral"},
		{Text: "  Hello there "},
		{Text: ""},
		{Text: "Bye"},
	}
	assert.Equal(t, []string{"Hello there", "General", "Bye"}, TranscriptLines(segments))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "00:04:12", clock(252))
	assert.Equal(t, "02:30:00", clock(9000))
	assert.Equal(t, "00:00:00", clock(-3))
}
