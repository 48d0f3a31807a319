package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// moveToArchived moves a processed video into the archived folder without overwriting earlier ones
func (p *implProcessor) moveToArchived(ctx context.Context, videoPath string) (string, error) {
	if err := os.MkdirAll(p.cfg.Paths.Archived, 0o755); err != nil {
		return "", fmt.Errorf("create archived dir: %w", err)
	}
	destPath, err := uniquePath(filepath.Join(p.cfg.Paths.Archived, filepath.Base(videoPath)))
	if err != nil {
		return "", err
	}

	p.logger.Info(ctx, "Moving to archived folder: %s -> %s", videoPath, destPath)

	if err := os.Rename(videoPath, destPath); err != nil {
		// Rename fails across devices
		if err := moveFile(videoPath, destPath); err != nil {
			return "", fmt.Errorf("move to archived: %w", err)
		}
	}
	return destPath, nil
}

// uniquePath appends _1, _2, ... before the extension until path is free
func uniquePath(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 1; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

func moveFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return os.Remove(src)
}
