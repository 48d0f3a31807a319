package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
)

var ErrEmptyMetadata = errors.New("model produced no usable metadata")

const youtubePrompt = `You know how YouTube discovery works: what earns a click, how the algorithm reads keywords, what mobile viewers see first.

CONTENT: %s

Lead with facts and evidence, not hype. Pick 1-2 primary keywords (names, main topic) and 2-3 secondary ones.
Primary keywords must appear in the title, the opening of the description, several tags and the thumbnail text.

THUMBNAIL TEXT: 10 options, max 3 words, ALL CAPS.
TITLES: 10 options, 50-60 characters ideal, max 70. Title Case only, no ALL CAPS words, no "BREAKING:" prefixes,
no repeated punctuation. Front-load the primary keyword.
DESCRIPTION: complete text. The first 125 characters carry the primary keyword and a hook. End with a call to action.
No timestamps, no ellipsis, no hashtags.
TAGS: exactly 15, from exact-match keywords down to broad discovery terms.
HASHTAGS: 10 hashtags with # symbols.

OUTPUT FORMAT - JSON ONLY, ASCII characters only:
{
  "thumbnail_text": ["..."],
  "titles": ["..."],
  "description": "...",
  "tags": "tag1, tag2, ...",
  "hashtags": "#one #two ..."
}

Respond with ONLY the JSON object.`

const spreakerPrompt = `You are an expert in podcast metadata optimization for the Spreaker platform.

CONTENT: %s

EPISODE TITLES: 10 options, 50-70 characters, clear and descriptive, main topic or guest first.
THUMBNAIL TEXT: 10 options, max 3 words, ALL CAPS (guest names, themes, formats like INTERVIEW or Q&A).
DESCRIPTION: complete text. Hook first, then key topics, guest credentials if any, and a call to subscribe, rate and review.
No timestamps.
TAGS: exactly 15 comma-separated tags covering topic, genre and discovery terms.
HASHTAGS: 10 hashtags with # symbols.

OUTPUT FORMAT - JSON ONLY:
{
  "thumbnail_text": ["..."],
  "titles": ["..."],
  "description": "...",
  "tags": "tag1, tag2, ...",
  "hashtags": "#one #two ..."
}

Respond with ONLY the JSON object.`

// PlatformPrompt returns the metadata prompt for platform, defaulting to YouTube
func PlatformPrompt(content, platform string) string {
	if strings.EqualFold(platform, PlatformSpreaker) {
		return fmt.Sprintf(spreakerPrompt, content)
	}
	return fmt.Sprintf(youtubePrompt, content)
}

func (s *implSummarizer) GenerateMetadata(ctx context.Context, content, platform string) (Result, error) {
	if platform == "" {
		platform = PlatformYouTube
	}
	platform = strings.ToLower(platform)
	started := s.now()

	s.logger.Info(ctx, "Generating %s metadata", platform)
	raw, err := s.completer.Complete(ctx, PlatformPrompt(content, platform), s.smartModel)
	if err != nil {
		return Result{}, fmt.Errorf("generate metadata: %w", err)
	}

	var parsed map[string]interface{}
	if err := llm.Decode(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse metadata: %w", err)
	}

	md, fixes := Normalize(parsed)
	if len(md.Titles) == 0 && md.Description == "" {
		return Result{}, ErrEmptyMetadata
	}
	if len(fixes) > 0 {
		s.logger.Info(ctx, "Applied %d metadata fixes", len(fixes))
	}

	return Result{Metadata: md, Platform: platform, Fixes: fixes, Elapsed: s.now().Sub(started)}, nil
}

var knownKeys = map[string]bool{
	"thumbnail_text": true,
	"titles":         true,
	"description":    true,
	"tags":           true,
	"hashtags":       true,
}

// Normalize converts loosely typed model output into Metadata and lists every fix it made
func Normalize(raw map[string]interface{}) (Metadata, []string) {
	var (
		md    Metadata
		fixes []string
	)

	switch v := raw["thumbnail_text"].(type) {
	case []interface{}:
		for _, t := range v {
			md.ThumbnailText = append(md.ThumbnailText, strings.ToUpper(fmt.Sprint(t)))
		}
	case nil:
	default:
		fixes = append(fixes, "Fixed non-list thumbnail_text")
	}

	switch v := raw["titles"].(type) {
	case []interface{}:
		for _, t := range v {
			if str, ok := t.(string); ok && strings.TrimSpace(str) != "" {
				md.Titles = append(md.Titles, strings.TrimSpace(str))
			}
		}
		if dropped := len(v) - len(md.Titles); dropped > 0 {
			fixes = append(fixes, fmt.Sprintf("Removed %d invalid title entries", dropped))
		}
	case nil:
	default:
		fixes = append(fixes, "Fixed non-list titles")
	}

	switch v := raw["tags"].(type) {
	case string:
		md.Tags = v
	case []interface{}:
		var tags []string
		for _, t := range v {
			if tag := strings.TrimSpace(fmt.Sprint(t)); tag != "" {
				tags = append(tags, tag)
			}
		}
		md.Tags = strings.Join(tags, ", ")
		fixes = append(fixes, "Converted tags list to comma-separated string")
	case nil:
	default:
		fixes = append(fixes, "Fixed invalid tags format")
	}

	switch v := raw["hashtags"].(type) {
	case string:
		md.Hashtags = hashtags(strings.Fields(v))
	case []interface{}:
		words := make([]string, 0, len(v))
		for _, t := range v {
			words = append(words, fmt.Sprint(t))
		}
		md.Hashtags = hashtags(words)
		fixes = append(fixes, "Converted hashtags list to space-separated string with # symbols")
	case nil:
	default:
		fixes = append(fixes, "Fixed invalid hashtags format")
	}

	switch v := raw["description"].(type) {
	case string:
		md.Description = v
	case nil:
	default:
		md.Description = fmt.Sprint(v)
		fixes = append(fixes, "Converted description to string")
	}

	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if md.Extra == nil {
			md.Extra = make(map[string]interface{})
		}
		md.Extra[k] = v
	}
	return md, fixes
}

func hashtags(words []string) string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if !strings.HasPrefix(w, "#") {
			w = "#" + w
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
