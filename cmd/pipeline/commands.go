package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/chapter-flow/internal/bridge"
	"github.com/nguyentantai21042004/chapter-flow/internal/chapters"
	"github.com/nguyentantai21042004/chapter-flow/internal/input"
	"github.com/nguyentantai21042004/chapter-flow/internal/jobs"
	"github.com/nguyentantai21042004/chapter-flow/internal/llm"
	"github.com/nguyentantai21042004/chapter-flow/internal/processor"
	"github.com/nguyentantai21042004/chapter-flow/internal/watcher"
	"github.com/nguyentantai21042004/chapter-flow/pkg/executor"
)

const (
	modeIndividual  = "individual"
	modeCompilation = "compilation"
)

func newWatchCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "watch",
		Short: "Watch the input folder and process every new video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := processOptions(cmd)
			if err != nil {
				return err
			}

			w, err := watcher.New(watcher.Options{
				Dir: a.cfg.Paths.Input,
				Handler: func(ctx context.Context, path string) error {
					_, err := a.proc.Process(ctx, path, opts)
					return err
				},
				MaxConcurrent: a.cfg.Performance.MaxConcurrent,
				ScanExisting:  true,
			}, a.log)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer w.Stop()

			a.log.Info(ctx, "Pipeline is ready. Monitoring: %s, output: %s", a.cfg.Paths.Input, a.cfg.Paths.Output)
			a.log.Info(ctx, "Press Ctrl+C to stop")

			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info(ctx, "Pipeline stopped")
			return nil
		},
	}
	c.Flags().Bool("chapters", true, "generate chapter markers")
	c.Flags().Bool("sections", false, "run long-form section detection")
	c.Flags().Bool("metadata", false, "generate platform metadata")
	c.Flags().Bool("archive", true, "move processed videos to the archived folder")
	addOutputFlags(c)
	return c
}

func newTranscribeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "transcribe <video|dir>...",
		Short: "Transcribe videos into caption files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, args, func(opts *processor.Options) {}, func(out processor.Outcome) {
				fmt.Println(out.CaptionPath)
			})
		},
	}
	addOutputFlags(c)
	return c
}

func newChaptersCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "chapters <source>...",
		Short: "Generate timestamped chapters from a video or transcript file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, args, func(opts *processor.Options) {
				opts.Chapters = true
			}, func(out processor.Outcome) {
				if len(out.Chapters) == 0 {
					fmt.Printf("%s: no usable chapters\n", out.Source)
					return
				}
				fmt.Printf("%s\n%s\n\n", out.Source, chapters.FormatChapters(out.Chapters))
			})
		},
	}
	addOutputFlags(c)
	return c
}

func newSectionsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sections <source>...",
		Short: "Split long recordings into topical sections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, args, func(opts *processor.Options) {
				opts.Sections = true
			}, func(out processor.Outcome) {
				if out.Report == nil {
					return
				}
				fmt.Printf("%s (%d sections) -> %s\n", out.Source, out.Report.SectionCount, out.ReportPath)
				for _, s := range out.Report.Sections {
					fmt.Printf("  %d. [%s - %s] %s\n", s.Sequence,
						chapters.FormatClock(s.StartSeconds), chapters.FormatClock(s.EndSeconds), s.Title)
				}
			})
		},
	}
	addOutputFlags(c)
	return c
}

func newMetadataCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "metadata <source>...",
		Short: "Generate titles, description, tags and hashtags for a video, transcript or subject",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")
			switch mode {
			case modeIndividual:
				return runSources(cmd, args, func(opts *processor.Options) {
					opts.Metadata = true
				}, func(out processor.Outcome) {
					fmt.Printf("%s -> %s\n", out.Source, out.MetadataFolder)
				})
			case modeCompilation:
				return runCompilation(cmd, args)
			default:
				return fmt.Errorf("unknown mode %q: want %s or %s", mode, modeIndividual, modeCompilation)
			}
		},
	}
	c.Flags().String("platform", "", "metadata platform: youtube or spreaker (default from config)")
	c.Flags().String("mode", modeIndividual, "individual: metadata per input; compilation: one metadata set for all inputs")
	addOutputFlags(c)
	return c
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, speech model and model provider configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, log, err := loadBase(cmd)
			if err != nil {
				return err
			}

			healthy := true
			report := func(ok bool, name, path, detail string) {
				mark := "ok"
				if !ok {
					mark = "FAIL"
					healthy = false
				}
				fmt.Printf("[%4s] %-8s %s %s\n", mark, name, path, detail)
			}

			b, err := bridge.New(bridgeOptions(cfg), executor.New(), log)
			if err != nil {
				report(false, "binaries", "", err.Error())
			} else {
				for _, s := range b.Check(ctx) {
					report(s.OK, s.Name, s.Path, s.Detail)
				}
			}

			if client, err := llm.NewFromConfig(cfg.AI, log); err != nil {
				report(false, "model", cfg.AI.Provider, err.Error())
			} else {
				report(true, "model", string(client.Kind()), client.ProviderName())
			}

			if !healthy {
				return errors.New("some checks failed")
			}
			return nil
		},
	}
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().Bool("docx", false, "also write docx exports")
	if c.Flags().Lookup("archive") == nil {
		c.Flags().Bool("archive", false, "move processed videos to the archived folder")
	}
	c.Flags().String("chapter-prompt", "", "file with a custom chapter prompt template")
	c.Flags().String("section-prompt", "", "file with a custom section prompt template")
}

// processOptions reads the flags shared by processing commands
func processOptions(cmd *cobra.Command) (processor.Options, error) {
	var opts processor.Options
	flags := cmd.Flags()
	opts.Docx, _ = flags.GetBool("docx")
	opts.Archive, _ = flags.GetBool("archive")
	if flags.Lookup("chapters") != nil {
		opts.Chapters, _ = flags.GetBool("chapters")
		opts.Sections, _ = flags.GetBool("sections")
		opts.Metadata, _ = flags.GetBool("metadata")
	}
	if flags.Lookup("platform") != nil {
		opts.Platform, _ = flags.GetString("platform")
	}

	var err error
	if opts.ChapterPrompt, err = readPrompt(cmd, "chapter-prompt"); err != nil {
		return opts, err
	}
	if opts.SectionPrompt, err = readPrompt(cmd, "section-prompt"); err != nil {
		return opts, err
	}
	return opts, nil
}

func readPrompt(cmd *cobra.Command, flag string) (string, error) {
	path, _ := cmd.Flags().GetString(flag)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s template: %w", flag, err)
	}
	return string(data), nil
}

// runSources processes each argument, expanding directories, and reports every outcome
func runSources(cmd *cobra.Command, args []string, enable func(*processor.Options), show func(processor.Outcome)) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := processOptions(cmd)
	if err != nil {
		return err
	}
	enable(&opts)

	var t tally
	for _, source := range args {
		if ctx.Err() != nil {
			break
		}

		if input.Detect(source) == input.KindDirectory {
			summary, err := a.proc.ProcessDir(ctx, source, opts)
			if err != nil && !jobs.IsCancelled(err) {
				return err
			}
			for _, out := range summary.Outcomes {
				show(out)
			}
			fmt.Printf("%s: %d succeeded, %d failed, %d cancelled\n", source, summary.Succeeded, summary.Failed, summary.Cancelled)
			t.cancelled += summary.Cancelled
			for _, e := range summary.Errors {
				t.failures = append(t.failures, e.Error())
			}
			continue
		}

		out, err := a.proc.Process(ctx, source, opts)
		if t.record(source, err) {
			show(out)
		}
	}
	if t.cancelled > 0 {
		a.log.Info(ctx, "%d inputs cancelled", t.cancelled)
	}
	return t.err()
}

// tally separates cancelled inputs from failed ones
type tally struct {
	cancelled int
	failures  []string
}

// record reports whether source succeeded
func (t *tally) record(source string, err error) bool {
	switch {
	case err == nil:
		return true
	case jobs.IsCancelled(err):
		t.cancelled++
	default:
		t.failures = append(t.failures, fmt.Sprintf("%s: %v", source, err))
	}
	return false
}

func (t *tally) err() error {
	if len(t.failures) > 0 {
		return fmt.Errorf("%d inputs failed:\n  %s", len(t.failures), strings.Join(t.failures, "\n  "))
	}
	return nil
}

// runCompilation generates one metadata set for all arguments
func runCompilation(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	platform, _ := cmd.Flags().GetString("platform")
	c, err := a.proc.Compile(ctx, args, platform)
	if jobs.IsCancelled(err) {
		a.log.Info(ctx, "Compilation cancelled")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d sources) -> %s\n", c.Name, len(c.Sources), c.Folder)
	return nil
}
