package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nguyentantai21042004/chapter-flow/internal/input"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/internal/report"
	"github.com/nguyentantai21042004/chapter-flow/internal/summarizer"
	"github.com/nguyentantai21042004/chapter-flow/internal/transcriber"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

var ErrEmptyTranscript = errors.New("transcript is empty")

// Process orchestrates every enabled step for one input
func (p *implProcessor) Process(ctx context.Context, source string, opts Options) (Outcome, error) {
	startTime := p.now()
	out := Outcome{Source: source}
	name := baseName(source)

	err := p.run(ctx, jobs.KindProcess, source, func(ctx context.Context, job jobs.Job) error {
		p.logger.Info(ctx, "========================================")
		p.logger.Info(ctx, "Processing %s (job %s)", source, job.ID)
		p.logger.Info(ctx, "========================================")

		t, err := p.load(ctx, source)
		if err != nil {
			return err
		}
		out.Kind = t.Kind
		out.CaptionPath = t.CaptionPath

		if err := os.MkdirAll(p.cfg.Paths.Output, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		if opts.Docx && len(t.Segments) > 0 {
			path := filepath.Join(p.cfg.Paths.Output, name+"_transcript.docx")
			if err := report.TranscriptDocx(name, t.Segments, path); err != nil {
				p.logger.Warn(ctx, "Failed to write transcript docx: %v", err)
			}
		}

		if opts.Chapters {
			if len(t.Segments) == 0 {
				p.logger.Warn(ctx, "Skipping chapters for %s: no timeline", source)
			} else {
				markers, err := p.generateChapters(ctx, t, opts.ChapterPrompt)
				if err != nil {
					return fmt.Errorf("chapters: %w", err)
				}
				out.Chapters = markers
				if len(markers) > 0 {
					if out.ChaptersPath, err = p.saveChapters(ctx, name, markers); err != nil {
						return fmt.Errorf("save chapters: %w", err)
					}
				}
			}
		}

		if opts.Sections {
			if len(t.Segments) == 0 {
				p.logger.Warn(ctx, "Skipping sections for %s: no timeline", source)
			} else {
				r, path, err := p.detectSections(ctx, t, opts.SectionPrompt)
				if err != nil {
					return fmt.Errorf("sections: %w", err)
				}
				out.Report, out.ReportPath = &r, path
				if opts.Docx {
					if err := report.WriteDocx(r, name, strings.TrimSuffix(path, ".json")+".docx"); err != nil {
						p.logger.Warn(ctx, "Failed to write sections docx: %v", err)
					}
				}
			}
		}

		if opts.Metadata {
			res, err := p.generateMetadata(ctx, t, opts.Platform)
			if err != nil {
				return fmt.Errorf("metadata: %w", err)
			}
			p.publish(ctx, jobs.PhaseSaving, "saving metadata")
			folder, err := p.store.SaveMetadata(res, res.Platform, source)
			if err != nil {
				return fmt.Errorf("save metadata: %w", err)
			}
			out.MetadataFolder = folder
			if opts.Docx {
				if err := report.MarkdownDocx(name, report.MetadataMarkdown(res.Metadata), filepath.Join(folder, "metadata.docx")); err != nil {
					p.logger.Warn(ctx, "Failed to write metadata docx: %v", err)
				}
			}
		}

		if opts.Archive && t.Kind == input.KindVideo {
			archived, err := p.moveToArchived(ctx, source)
			if err != nil {
				p.logger.Warn(ctx, "Failed to move original to archived folder: %v", err)
			}
			out.ArchivedPath = archived
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	p.logger.Info(ctx, "Processing completed: %s in %s", source, p.now().Sub(startTime).Round(time.Millisecond))
	return out, nil
}

// ProcessDir processes the videos of dir with at most the pool limit in flight
func (p *implProcessor) ProcessDir(ctx context.Context, dir string, opts Options) (DirSummary, error) {
	if err := input.Validate(dir, input.KindDirectory, p.cfg.Performance.MaxFileSizeMB); err != nil {
		return DirSummary{}, err
	}
	items, rejected, err := input.Resolve(ctx, []string{dir}, p.cfg.Performance.MaxFileSizeMB)
	if err != nil {
		return DirSummary{}, err
	}

	var (
		mu       sync.Mutex
		summary  = DirSummary{Total: len(items), Errors: rejected}
		outcomes = make([]*Outcome, len(items))
		g        errgroup.Group
	)
	for _, r := range rejected {
		p.logger.Warn(ctx, "Skipping rejected input: %v", r)
	}
	g.SetLimit(p.pool.Limit())

	for i, item := range items {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Cancelled += len(items) - i
			mu.Unlock()
			break
		}
		g.Go(func() error {
			out, err := p.Process(withItemIndex(ctx, i), item.Source, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Succeeded++
				outcomes[i] = &out
			case jobs.IsCancelled(err):
				summary.Cancelled++
			default:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", item.Source, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	for _, out := range outcomes {
		if out != nil {
			summary.Outcomes = append(summary.Outcomes, *out)
		}
	}

	p.logger.Info(ctx, "Directory %s: %d succeeded, %d failed, %d cancelled of %d",
		dir, summary.Succeeded, summary.Failed, summary.Cancelled, summary.Total)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (p *implProcessor) Transcribe(ctx context.Context, videoPath string) (Transcript, error) {
	var out Transcript
	err := p.run(ctx, jobs.KindTranscription, videoPath, func(ctx context.Context, job jobs.Job) error {
		progress := p.registry.Bus().Progress(job.ID, filepath.Base(videoPath), itemIndex(ctx))

		var res transcriber.Result
		if err := p.pool.Do(ctx, func(ctx context.Context) error {
			var err error
			res, err = p.transcriber.Transcribe(ctx, job.ID, videoPath, progress)
			return err
		}); err != nil {
			return err
		}

		caption, err := p.writeCaptions(ctx, videoPath, res.Segments)
		if err != nil {
			return err
		}
		out = Transcript{
			Source:      videoPath,
			Kind:        input.KindVideo,
			Text:        srt.Text(res.Segments),
			Segments:    res.Segments,
			Duration:    res.Duration,
			CaptionPath: caption,
		}
		return nil
	})
	return out, err
}

func (p *implProcessor) Chapters(ctx context.Context, source, template string) ([]models.Marker, error) {
	t, err := p.load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.generateChapters(ctx, t, template)
}

func (p *implProcessor) Sections(ctx context.Context, source, template string) (models.Report, error) {
	t, err := p.load(ctx, source)
	if err != nil {
		return models.Report{}, err
	}
	r, _, err := p.detectSections(ctx, t, template)
	return r, err
}

func (p *implProcessor) Metadata(ctx context.Context, source, platform string) (summarizer.Result, error) {
	t, err := p.load(ctx, source)
	if err != nil {
		return summarizer.Result{}, err
	}
	return p.generateMetadata(ctx, t, platform)
}

// Cancel stops jobID and every step running under it
func (p *implProcessor) Cancel(jobID string) error {
	for _, id := range p.registry.Subtree(jobID) {
		p.transcriber.Abort(id)
	}
	return p.registry.Cancel(jobID)
}

func (p *implProcessor) Close() {
	p.registry.CancelAll()
	p.queue.Close()
}

// load produces the transcript of any single input kind
func (p *implProcessor) load(ctx context.Context, source string) (Transcript, error) {
	kind := input.Detect(source)
	if err := input.Validate(source, kind, p.cfg.Performance.MaxFileSizeMB); err != nil {
		return Transcript{}, err
	}

	switch kind {
	case input.KindVideo:
		return p.Transcribe(ctx, source)
	case input.KindTranscript:
		text, segments, err := input.ReadTranscript(source)
		if err != nil {
			return Transcript{}, err
		}
		return Transcript{Source: source, Kind: kind, Text: text, Segments: segments, Duration: srt.Duration(segments)}, nil
	case input.KindSubject:
		return Transcript{Source: source, Kind: kind, Text: source}, nil
	default:
		return Transcript{}, fmt.Errorf("%w: %s is a directory", input.ErrInvalidInput, source)
	}
}

func (p *implProcessor) generateChapters(ctx context.Context, t Transcript, template string) ([]models.Marker, error) {
	var markers []models.Marker
	err := p.run(ctx, jobs.KindChapters, t.Source, func(ctx context.Context, _ jobs.Job) error {
		p.publish(ctx, jobs.PhaseGenerating, "generating chapters")
		var err error
		markers, err = p.chapters.Generate(ctx, t.Segments, t.Duration, template)
		if err != nil {
			return err
		}
		if len(markers) == 0 {
			p.logger.Warn(ctx, "No usable chapters for %s", t.Source)
		}
		return nil
	})
	return markers, err
}

func (p *implProcessor) detectSections(ctx context.Context, t Transcript, template string) (models.Report, string, error) {
	var (
		r    models.Report
		path string
	)
	err := p.run(ctx, jobs.KindSections, t.Source, func(ctx context.Context, _ jobs.Job) error {
		p.publish(ctx, jobs.PhaseGenerating, "detecting sections")
		markers, err := p.sections.Detect(ctx, t.Text, t.Segments, t.Duration, template)
		if err != nil {
			return err
		}

		r = models.NewReport(t.Source, t.Duration, markers, p.now())
		p.publish(ctx, jobs.PhaseSaving, "saving report")
		path, err = p.store.Save(r, baseName(t.Source)+"_sections")
		return err
	})
	return r, path, err
}

func (p *implProcessor) generateMetadata(ctx context.Context, t Transcript, platform string) (summarizer.Result, error) {
	if strings.TrimSpace(t.Text) == "" {
		return summarizer.Result{}, ErrEmptyTranscript
	}
	if platform == "" {
		platform = p.cfg.AI.Platform
	}

	var res summarizer.Result
	err := p.run(ctx, jobs.KindMetadata, t.Source, func(ctx context.Context, _ jobs.Job) error {
		p.publish(ctx, jobs.PhaseGenerating, "summarizing transcript")
		summary, err := p.summarizer.Summarize(ctx, t.Text, baseName(t.Source))
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}

		p.publish(ctx, jobs.PhaseGenerating, "generating "+platform+" metadata")
		res, err = p.summarizer.GenerateMetadata(ctx, summary, platform)
		return err
	})
	return res, err
}

// run wraps fn in a registry job: pending, running, then finished from fn's error
func (p *implProcessor) run(ctx context.Context, kind jobs.Kind, source string, fn func(ctx context.Context, job jobs.Job) error) error {
	job, ctx := p.registry.Start(ctx, kind, source)
	if err := p.registry.Transition(job.ID, jobs.StatusRunning); err != nil {
		p.logger.Debug(ctx, "Job %s did not start: %v", job.ID, err)
	}

	err := fn(ctx, job)
	if err == nil {
		err = ctx.Err()
	}

	final, _ := p.registry.Finish(job.ID, err)
	switch final.Status {
	case jobs.StatusCancelled:
		p.logger.Info(ctx, "%s job %s cancelled", kind, job.ID)
		if err == nil {
			err = jobs.ErrCancelled
		}
	case jobs.StatusFailed:
		p.logger.Error(ctx, "%s job %s failed: %v", kind, job.ID, err)
	}
	return err
}

func baseName(source string) string {
	if input.Detect(source) == input.KindSubject {
		return report.SanitizeFilename(source, 50)
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
