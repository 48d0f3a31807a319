package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/matcher"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

// TranscriptPlaceholder marks where the chunked transcript goes in a prompt template
const TranscriptPlaceholder = "{transcript}"

const DefaultPrompt = `You are creating YouTube chapters for a video.
Below is the transcript split into numbered chunks with their start times.
Identify where the main topic changes and propose between 3 and 15 chapters.

Respond with a JSON array only. Each element must have:
- "chunk_id": the number of the chunk where the chapter begins
- "startPhrase": 5 to 10 words copied exactly from the transcript where the chapter begins
- "title": a short chapter title (max 60 characters)

Transcript:
{transcript}`

var ErrNoSegments = errors.New("no transcript segments")

type GeneratorOptions struct {
	Model        string
	ChunkSeconds float64
	Matcher      *matcher.Matcher
	Validator    *Validator
}

// Generator asks a model for chapter boundaries and maps them back onto the timeline
type Generator struct {
	completer    llm.Completer
	model        string
	chunkSeconds float64
	matcher      *matcher.Matcher
	validator    *Validator
	logger       logger.Logger
}

func NewGenerator(c llm.Completer, opts GeneratorOptions, log logger.Logger) *Generator {
	if opts.Matcher == nil {
		opts.Matcher = matcher.New(matcher.Options{})
	}
	if opts.Validator == nil {
		opts.Validator = NewValidator(DefaultMinDuration, DefaultMinCount)
	}
	if opts.ChunkSeconds <= 0 {
		opts.ChunkSeconds = DefaultChunkSeconds
	}
	return &Generator{
		completer:    c,
		model:        opts.Model,
		chunkSeconds: opts.ChunkSeconds,
		matcher:      opts.Matcher,
		validator:    opts.Validator,
		logger:       log,
	}
}

// Generate returns validated chapter markers. An empty result means no usable chapters.
func (g *Generator) Generate(ctx context.Context, segments []srt.Segment, duration float64, template string) ([]models.Marker, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if duration <= 0 {
		duration = srt.Duration(segments)
	}

	chunks := ChunkSegments(segments, g.chunkSeconds)
	prompt := RenderPrompt(template, FormatForAI(chunks))

	g.logger.Info(ctx, "Requesting chapters for %d chunks (%s)", len(chunks), FormatClock(duration))
	raw, err := g.completer.Complete(ctx, prompt, g.model)
	if err != nil {
		return nil, fmt.Errorf("generate chapters: %w", err)
	}

	records, err := llm.DecodeRecords(raw, "chapters", "items")
	if err != nil {
		return nil, fmt.Errorf("parse chapters: %w", err)
	}

	markers := g.resolve(ctx, records, chunks, segments)
	validated := g.validator.Validate(markers, duration)
	g.logger.Info(ctx, "Chapters: %d proposed, %d resolved, %d valid", len(records), len(markers), len(validated))
	return validated, nil
}

func (g *Generator) resolve(ctx context.Context, records []llm.Record, chunks []Chunk, segments []srt.Segment) []models.Marker {
	byID := make(map[int]Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	corpus := matcher.NewCorpus(segments)
	var (
		markers []models.Marker
		last    = -1.0
	)
	for _, r := range records {
		title := r.String("title", "name")
		if title == "" {
			continue
		}
		phrase := r.String("startPhrase", "start_phrase", "phrase")

		start, ok := 0.0, false
		if phrase != "" {
			var m matcher.Match
			if m, ok = g.matcher.Find(phrase, corpus, last+1); ok {
				start = m.Seconds
			}
		}
		if !ok {
			if id, has := r.Int("chunk_id", "chunkId", "segment_id"); has {
				if c, found := byID[id]; found {
					start, ok = c.StartSeconds, true
				}
			}
		}
		if !ok {
			if clock := r.String("timestamp", "time"); clock != "" {
				if s, err := ParseClock(clock); err == nil {
					start, ok = s, true
				}
			}
		}
		if !ok {
			g.logger.Debug(ctx, "Skipping chapter %q: no position", title)
			continue
		}

		if start > last {
			last = start
		}
		markers = append(markers, models.Marker{StartSeconds: start, Title: title, SourcePhrase: phrase})
	}
	return markers
}

// RenderPrompt substitutes body into template, appending it when the placeholder is absent
func RenderPrompt(template, body string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt
	}
	if strings.Contains(template, TranscriptPlaceholder) {
		return strings.ReplaceAll(template, TranscriptPlaceholder, body)
	}
	return template + "\n\n" + body
}

// FormatChapters renders markers as YouTube description lines: "0:00 Title"
func FormatChapters(markers []models.Marker) string {
	lines := make([]string, 0, len(markers))
	for _, m := range markers {
		lines = append(lines, FormatClock(m.StartSeconds)+" "+m.Title)
	}
	return strings.Join(lines, "\n")
}
