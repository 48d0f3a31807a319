package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nguyentantai21042004/chapter-flow/internal/summarizer"
)

const rule = "--------------------------------------------------------------------------------"
const banner = "================================================================================"

type metadataFile struct {
	summarizer.Metadata
	Title     string   `json:"_title"`
	PromptSet string   `json:"_prompt_set"`
	Fixes     []string `json:"_fixes_applied,omitempty"`
}

// SaveMetadata writes metadata.json and a readable <name>.txt into a new
// <timestamp>_<promptSet>_<name> folder under the store's metadata directory.
func (s *Store) SaveMetadata(res summarizer.Result, promptSet, source string) (string, error) {
	md := res.Metadata
	if len(md.Titles) == 0 && md.Description == "" {
		return "", errors.New("metadata cannot be empty")
	}
	if promptSet == "" {
		promptSet = res.Platform
	}

	name := "metadata"
	if source != "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	clean := CleanName(name, 100)
	now := s.now()

	folder := filepath.Join(s.dir, "metadata", SanitizeFilename(fmt.Sprintf("%s_%s_%s", now.Format("20060102_150405"), promptSet, name), 50))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create metadata folder: %w", err)
	}

	data, err := json.MarshalIndent(metadataFile{Metadata: md, Title: clean, PromptSet: promptSet, Fixes: res.Fixes}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(folder, "metadata.json"), data); err != nil {
		return "", err
	}
	if err := WriteFileAtomic(filepath.Join(folder, clean+".txt"), []byte(Readable(md, promptSet, now))); err != nil {
		return "", err
	}
	return folder, nil
}

// Readable renders metadata as the plain text sheet shipped next to metadata.json
func Readable(md summarizer.Metadata, promptSet string, generated time.Time) string {
	var lines []string
	section := func(title string, body ...string) {
		lines = append(lines, title, rule)
		lines = append(lines, body...)
		lines = append(lines, "")
	}

	lines = append(lines, banner,
		"METADATA - "+promptSet,
		"Generated: "+generated.Format("2006-01-02 15:04:05"),
		banner, "")

	if len(md.Titles) > 0 {
		section("TITLES", numbered(md.Titles)...)
	}
	if len(md.ThumbnailText) > 0 {
		section("THUMBNAIL TEXT", numbered(md.ThumbnailText)...)
	}
	if md.Description != "" {
		section("DESCRIPTION", md.Description)
	}
	if md.Hashtags != "" {
		section("HASHTAGS", md.Hashtags)
	}
	if md.Tags != "" {
		section("TAGS", md.Tags)
	}

	if len(md.Extra) > 0 {
		keys := make([]string, 0, len(md.Extra))
		for k := range md.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines = append(lines, "ADDITIONAL METADATA", rule)
		for _, k := range keys {
			lines = append(lines, strings.ToUpper(k)+":", formatValue(md.Extra[k]), "")
		}
	}

	lines = append(lines, banner, "End of metadata", banner)
	return strings.Join(lines, "\n")
}

func numbered(items []string) []string {
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, fmt.Sprintf("%d. %s", i+1, it))
	}
	return out
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}, map[string]interface{}:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// MetadataMarkdown renders metadata as markdown for docx export
func MetadataMarkdown(md summarizer.Metadata) string {
	var b strings.Builder
	write := func(heading string, body ...string) {
		fmt.Fprintf(&b, "## %s\n", heading)
		for _, line := range body {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(md.Titles) > 0 {
		write("Titles", bullets(md.Titles)...)
	}
	if len(md.ThumbnailText) > 0 {
		write("Thumbnail Text", bullets(md.ThumbnailText)...)
	}
	if md.Description != "" {
		write("Description", strings.Split(md.Description, "\n")...)
	}
	if md.Tags != "" {
		write("Tags", md.Tags)
	}
	if md.Hashtags != "" {
		write("Hashtags", md.Hashtags)
	}
	return b.String()
}

func bullets(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, "- "+it)
	}
	return out
}
