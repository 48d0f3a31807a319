package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nguyentantai21042004/chapter-flow/internal/input"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
)

var ErrNoContent = errors.New("no valid content items")

// Compile loads and condenses every source, joins them into one numbered document and
// generates a single metadata result saved as "Compilation of N items"
func (p *implProcessor) Compile(ctx context.Context, sources []string, platform string) (Compilation, error) {
	var out Compilation
	if platform == "" {
		platform = p.cfg.AI.Platform
	}

	err := p.run(ctx, jobs.KindCompilation, strings.Join(sources, ", "), func(ctx context.Context, _ jobs.Job) error {
		items, rejected, err := input.Resolve(ctx, sources, p.cfg.Performance.MaxFileSizeMB)
		if err != nil {
			return err
		}
		for _, r := range rejected {
			p.logger.Warn(ctx, "Skipping rejected input: %v", r)
		}

		parts := make([]*Transcript, len(items))
		var g errgroup.Group
		g.SetLimit(p.pool.Limit())
		for i, item := range items {
			g.Go(func() error {
				t, err := p.load(withItemIndex(ctx, i), item.Source)
				if err != nil {
					if jobs.IsCancelled(err) {
						return err
					}
					p.logger.Warn(ctx, "Skipping %s: %v", item.Source, err)
					return nil
				}
				if strings.TrimSpace(t.Text) == "" {
					p.logger.Warn(ctx, "Skipping %s: %v", item.Source, ErrEmptyTranscript)
					return nil
				}

				p.publish(ctx, jobs.PhaseGenerating, "summarizing "+baseName(item.Source))
				summary, err := p.summarizer.Summarize(ctx, t.Text, baseName(item.Source))
				if err != nil {
					return fmt.Errorf("summarize %s: %w", item.Source, err)
				}
				t.Text = summary
				parts[i] = &t
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var kept []Transcript
		for _, t := range parts {
			if t != nil {
				kept = append(kept, *t)
			}
		}
		if len(kept) == 0 {
			return ErrNoContent
		}

		out.Name = fmt.Sprintf("Compilation of %d items", len(kept))
		out.Content = CompilationContent(kept)
		for _, t := range kept {
			out.Sources = append(out.Sources, t.Source)
		}

		p.publish(ctx, jobs.PhaseGenerating, "generating "+platform+" metadata")
		res, err := p.summarizer.GenerateMetadata(ctx, out.Content, platform)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		out.Result = res

		p.publish(ctx, jobs.PhaseSaving, "saving metadata")
		if out.Folder, err = p.store.SaveMetadata(res, res.Platform, out.Name); err != nil {
			return fmt.Errorf("save metadata: %w", err)
		}
		return nil
	})
	return out, err
}

// CompilationContent numbers each part: subjects as "TOPIC i:", everything else as
// "CONTENT i (from file: name):" followed by its text
func CompilationContent(parts []Transcript) string {
	sections := make([]string, 0, len(parts))
	for i, t := range parts {
		n := i + 1
		if t.Kind == input.KindSubject {
			sections = append(sections, fmt.Sprintf("TOPIC %d: %s", n, t.Text))
			continue
		}
		sections = append(sections, fmt.Sprintf("CONTENT %d (from file: %s):\n%s", n, filepath.Base(t.Source), t.Text))
	}
	return strings.Join(sections, "\n\n")
}
