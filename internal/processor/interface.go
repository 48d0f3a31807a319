package processor

import (
	"context"

	"github.com/nguyentantai21042004/chapter-flow/internal/input"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/internal/summarizer"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

// Processor drives inputs through transcription, timeline analysis and metadata generation
type Processor interface {
	// Transcribe turns one video into segments and writes its caption file to the output folder
	Transcribe(ctx context.Context, videoPath string) (Transcript, error)
	// Chapters returns validated chapter markers for a video or transcript file.
	// An empty list means the model produced no usable chapters.
	Chapters(ctx context.Context, source, template string) ([]models.Marker, error)
	// Sections runs long-form section detection and returns the persisted report
	Sections(ctx context.Context, source, template string) (models.Report, error)
	// Metadata summarizes the source and generates platform metadata
	Metadata(ctx context.Context, source, platform string) (summarizer.Result, error)
	// Process runs every step enabled in opts for one input and saves the results
	Process(ctx context.Context, source string, opts Options) (Outcome, error)
	// ProcessDir processes every video in dir. Per-file failures are counted, not returned.
	ProcessDir(ctx context.Context, dir string, opts Options) (DirSummary, error)
	// Compile combines every source into one document and generates a single metadata result for it
	Compile(ctx context.Context, sources []string, platform string) (Compilation, error)
	// Cancel cancels a running job by id
	Cancel(jobID string) error
	// Close cancels running jobs and stops the generation queue
	Close()
}

// Transcript is the text of one input, with its timeline when one exists
type Transcript struct {
	Source      string
	Kind        input.Kind
	Text        string
	Segments    []srt.Segment
	Duration    float64
	CaptionPath string
}

type Options struct {
	Chapters      bool
	Sections      bool
	Metadata      bool
	Platform      string
	ChapterPrompt string
	SectionPrompt string
	Docx          bool
	Archive       bool
}

type Outcome struct {
	Source         string
	Kind           input.Kind
	CaptionPath    string
	Chapters       []models.Marker
	ChaptersPath   string
	Report         *models.Report
	ReportPath     string
	MetadataFolder string
	ArchivedPath   string
}

type DirSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Errors    []error
	// Outcomes of the succeeded items, in directory order
	Outcomes []Outcome
}

// Compilation is the metadata generated for a combined set of inputs
type Compilation struct {
	Name    string
	Sources []string
	Content string
	Result  summarizer.Result
	Folder  string
}
