package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nguyentantai21042004/chapter-flow/internal/chapters"
	"github.com/nguyentantai21042004/chapter-flow/internal/models"
	"github.com/nguyentantai21042004/chapter-flow/internal/report"
	"github.com/nguyentantai21042004/chapter-flow/pkg/srt"
)

// writeCaptions stores segments as <name>.srt in the output folder (keeps original filename)
func (p *implProcessor) writeCaptions(ctx context.Context, videoPath string, segments []srt.Segment) (string, error) {
	if err := os.MkdirAll(p.cfg.Paths.Output, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.cfg.Paths.Output, baseName(videoPath)+".srt")

	p.logger.Info(ctx, "Writing captions: %s", path)
	if err := srt.WriteFile(path, segments); err != nil {
		return "", fmt.Errorf("write captions: %w", err)
	}
	return path, nil
}

// saveChapters writes "m:ss Title" lines ready to paste into a video description
func (p *implProcessor) saveChapters(ctx context.Context, name string, markers []models.Marker) (string, error) {
	if err := os.MkdirAll(p.cfg.Paths.Output, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.cfg.Paths.Output, name+"_chapters.txt")

	p.logger.Info(ctx, "Writing %d chapters: %s", len(markers), path)
	if err := report.WriteFileAtomic(path, []byte(chapters.FormatChapters(markers)+"\n")); err != nil {
		return "", err
	}
	return path, nil
}
