package sections

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/logger"
	"github.com/nguyentantai21042004/chapter-flow/internal/matcher"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

const (
	DefaultCeiling       = 3600.0
	DefaultMaxSliceChars = 60000

	TranscriptPlaceholder = "{transcript}"
	DurationPlaceholder   = "{duration}"
)

var ErrNoSections = errors.New("model returned no sections")

type Options struct {
	Model         string
	Ceiling       float64
	MaxSliceChars int
	Matcher       *matcher.Matcher
}

// Detector splits a long recording into coarse topical sections in two passes
type Detector struct {
	completer llm.Completer
	model     string
	ceiling   float64
	maxSlice  int
	matcher   *matcher.Matcher
	logger    logger.Logger
}

func New(c llm.Completer, opts Options, log logger.Logger) *Detector {
	if opts.Ceiling <= 0 {
		opts.Ceiling = DefaultCeiling
	}
	if opts.MaxSliceChars <= 0 {
		opts.MaxSliceChars = DefaultMaxSliceChars
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.New(matcher.Options{})
	}
	return &Detector{
		completer: c,
		model:     opts.Model,
		ceiling:   opts.Ceiling,
		maxSlice:  opts.MaxSliceChars,
		matcher:   opts.Matcher,
		logger:    log,
	}
}

// Detect returns sections ordered by start time, the first at 0 and the last ending at totalDuration.
// transcript may be empty, in which case it is rebuilt from segments.
func (d *Detector) Detect(ctx context.Context, transcript string, segments []srt.Segment, totalDuration float64, template string) ([]models.Marker, error) {
	if totalDuration <= 0 {
		totalDuration = srt.Duration(segments)
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = srt.Text(segments)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("empty transcript")
	}

	sections, err := d.firstPass(ctx, transcript, segments, totalDuration, template)
	if err != nil {
		return nil, err
	}

	var out []models.Marker
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Duration() <= d.ceiling {
			out = append(out, s)
			continue
		}
		parts, err := d.split(ctx, s, segments)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}

	models.SortMarkers(out)
	models.RecomputeEnds(out, totalDuration)
	models.Renumber(out)
	return out, nil
}

func (d *Detector) firstPass(ctx context.Context, transcript string, segments []srt.Segment, total float64, template string) ([]models.Marker, error) {
	prompt := renderPrompt(template, transcript, total)

	d.logger.Info(ctx, "Detecting sections over %s of transcript", clock(total))
	raw, err := d.completer.Complete(ctx, prompt, d.model)
	if err != nil {
		return nil, fmt.Errorf("detect sections: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := llm.DecodeRecords(raw, "sections", "chapters")
	if err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoSections
	}

	corpus := matcher.NewCorpus(segments)
	var (
		out  []models.Marker
		last = -1.0
	)
	for i, r := range records {
		phrase := r.String("startPhrase", "start_phrase", "phrase")
		title := r.String("title", "name")
		if title == "" {
			title = "Section " + strconv.Itoa(i+1)
		}

		var start float64
		if len(out) == 0 {
			start = 0
		} else {
			m, ok := d.matcher.Find(phrase, corpus, last+1)
			if !ok || m.Seconds >= total {
				d.logger.Debug(ctx, "Section %q unresolved, skipping", title)
				continue
			}
			start = m.Seconds
		}

		last = start
		out = append(out, models.Marker{
			StartSeconds: start,
			Title:        title,
			Body:         r.String("description", "summary"),
			SourcePhrase: phrase,
		})
	}

	models.RecomputeEnds(out, total)
	d.logger.Info(ctx, "Pass 1: %d proposed, %d resolved", len(records), len(out))
	return out, nil
}

// split breaks an over-ceiling section using model-chosen phrases, falling back to equal slices
func (d *Detector) split(ctx context.Context, s models.Marker, segments []srt.Segment) ([]models.Marker, error) {
	n := int(math.Ceil(s.Duration() / d.ceiling))
	slice := sliceSegments(segments, s.StartSeconds, s.EndSeconds)

	parts, err := d.splitByPhrases(ctx, s, slice, n)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger.Warn(ctx, "Split of %q failed, using equal slices: %v", s.Title, err)
	}
	if len(parts) < 2 {
		d.logger.Info(ctx, "Splitting %q (%s) into %d equal parts", s.Title, clock(s.Duration()), n)
		return EqualSplit(s, n), nil
	}

	var out []models.Marker
	for _, p := range parts {
		if p.Duration() > d.ceiling {
			out = append(out, EqualSplit(p, int(math.Ceil(p.Duration()/d.ceiling)))...)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *Detector) splitByPhrases(ctx context.Context, s models.Marker, slice []srt.Segment, n int) ([]models.Marker, error) {
	if len(slice) == 0 {
		return nil, errors.New("no transcript in section range")
	}

	text := truncate(srt.Text(slice), d.maxSlice)
	raw, err := d.completer.Complete(ctx, splitPrompt(s, text, n-1), d.model)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := llm.DecodeRecords(raw, "breaks", "sections")
	if err != nil {
		return nil, err
	}

	corpus := matcher.NewCorpus(slice)
	parts := []models.Marker{{StartSeconds: s.StartSeconds, Title: s.Title, Body: s.Body, SourcePhrase: s.SourcePhrase}}
	prev := s.StartSeconds
	for k, r := range records {
		phrase := r.String("startPhrase", "start_phrase", "phrase")
		m, ok := d.matcher.Find(phrase, corpus, prev+1)
		if !ok || m.Seconds <= prev || m.Seconds >= s.EndSeconds {
			continue
		}
		title := r.String("title")
		if title == "" {
			title = fmt.Sprintf("%s (Part %d)", s.Title, k+2)
		}
		parts = append(parts, models.Marker{
			StartSeconds: m.Seconds,
			Title:        title,
			Body:         r.String("description", "summary"),
			SourcePhrase: phrase,
		})
		prev = m.Seconds
	}

	models.RecomputeEnds(parts, s.EndSeconds)
	return parts, nil
}

// EqualSplit divides s into n adjacent parts of equal duration. The last part ends exactly at s.EndSeconds.
func EqualSplit(s models.Marker, n int) []models.Marker {
	if n < 2 {
		return []models.Marker{s}
	}
	step := s.Duration() / float64(n)
	out := make([]models.Marker, 0, n)
	for k := 0; k < n; k++ {
		out = append(out, models.Marker{
			StartSeconds: s.StartSeconds + float64(k)*step,
			Title:        fmt.Sprintf("%s (Part %d)", s.Title, k+1),
			Body:         s.Body,
		})
	}
	models.RecomputeEnds(out, s.EndSeconds)
	return out
}

func sliceSegments(segments []srt.Segment, from, to float64) []srt.Segment {
	var out []srt.Segment
	for _, seg := range segments {
		if seg.StartSeconds >= from && seg.StartSeconds < to {
			out = append(out, seg)
		}
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
