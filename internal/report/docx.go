package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
)

// WriteDocx renders a section report: one heading per section with its time range and description
func WriteDocx(r models.Report, title, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)
	addStyledRun(doc.AddParagraph(""), fmt.Sprintf("%d sections, %s total", r.SectionCount, clock(r.TotalDurationSeconds)), false, fontSize)

	for _, s := range r.Sections {
		heading := fmt.Sprintf("%d. %s", s.Sequence, s.Title)
		addStyledRun(doc.AddParagraph(""), heading, true, headingSize(2))
		addStyledRun(doc.AddParagraph(""), timeRange(s), false, fontSize)
		if s.Body != "" {
			addRichText(doc.AddParagraph(""), s.Body)
		}
	}

	return doc.SaveTo(path)
}

// MarkdownDocx converts markdown text to a styled docx file
func MarkdownDocx(title, markdown, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			addRichText(doc.AddParagraph(""), "• "+m[1])
			continue
		}
		addRichText(doc.AddParagraph(""), trimmed)
	}

	return doc.SaveTo(path)
}

// TranscriptDocx writes the dialogue of segments without indices or timestamps.
// Repeated lines are kept once.
func TranscriptDocx(title string, segments []srt.Segment, path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)
	doc.AddParagraph("")

	for _, t := range TranscriptLines(segments) {
		doc.AddParagraph("").AddText(t).Font(fontName).Size(fontSize).Color("000000")
	}

	return doc.SaveTo(path)
}

// TranscriptLines returns the distinct dialogue lines TranscriptDocx would write
func TranscriptLines(segments []srt.Segment) []string {
	var out []string
	seen := make(map[string]bool)
	for _, seg := range segments {
		for _, line := range strings.Split(seg.Text, "\n") {
			t := strings.TrimSpace(line)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func timeRange(m models.Marker) string {
	return fmt.Sprintf("%s - %s", clock(m.StartSeconds), clock(m.EndSeconds))
}

func clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(cleanMarkdownInline(text)).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
