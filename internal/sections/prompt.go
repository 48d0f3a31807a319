package sections

import (
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/chapter-flow/internal/models"
)

const DefaultPrompt = `You are analyzing the transcript of a long recording ({duration} total).
Divide it into its major topical sections. Long recordings usually have between 3 and 12.

Respond with a JSON array only. Each element must have:
- "startPhrase": 5 to 10 words copied exactly from the transcript where the section begins
- "title": a short section title
- "description": one or two sentences describing the section

List sections in chronological order.

Transcript:
{transcript}`

func renderPrompt(template, transcript string, duration float64) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt
	}
	out := strings.ReplaceAll(template, DurationPlaceholder, clock(duration))
	if strings.Contains(out, TranscriptPlaceholder) {
		return strings.ReplaceAll(out, TranscriptPlaceholder, transcript)
	}
	return out + "\n\n" + transcript
}

func splitPrompt(s models.Marker, text string, breaks int) string {
	return fmt.Sprintf(`The following transcript excerpt belongs to the section "%s" and runs %s.
It is too long and must be divided into %d parts.

Find exactly %d points where a new sub-topic begins. Respond with a JSON array only. Each element must have:
- "startPhrase": 5 to 10 words copied exactly from the excerpt where the part begins
- "title": a short title for the part
- "description": one sentence describing the part

Excerpt:
%s`, s.Title, clock(s.Duration()), breaks+1, breaks, text)
}
