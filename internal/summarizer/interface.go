package summarizer

import (
	"context"
	"time"
)

// Summarizer condenses transcripts and turns content into platform metadata.
type Summarizer interface {
	// Summarize returns a short version of transcript. Model failures fall back to truncation;
	// only cancellation is reported as an error.
	Summarize(ctx context.Context, transcript, sourceName string) (string, error)
	// GenerateMetadata asks the smart model for titles, description, tags and hashtags.
	GenerateMetadata(ctx context.Context, content, platform string) (Result, error)
}

// Metadata is the normalized model output for one item
type Metadata struct {
	ThumbnailText []string               `json:"thumbnail_text"`
	Titles        []string               `json:"titles"`
	Description   string                 `json:"description"`
	Tags          string                 `json:"tags"`
	Hashtags      string                 `json:"hashtags"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

type Result struct {
	Metadata Metadata      `json:"metadata"`
	Platform string        `json:"platform"`
	Fixes    []string      `json:"fixesApplied,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}
