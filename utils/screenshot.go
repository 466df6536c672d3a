package utils

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Shooter is anything that can write a full page screenshot to a file.
type Shooter interface {
	Screenshot(ctx context.Context, path string) error
}

// ScreenShotDebugger handles debug screenshots
type ScreenShotDebugger struct {
	outputDir string
	logger    *slog.Logger
}

func NewScreenShotDebugger(dir string, logger *slog.Logger) *ScreenShotDebugger {
	if dir == "" {
		dir = "."
	}
	return &ScreenShotDebugger{
		outputDir: dir,
		logger:    logger,
	}
}

// CaptureAndLog saves a screenshot as <dir>/<name> and returns its path.
// Callers treat the error as advisory.
func (s *ScreenShotDebugger) CaptureAndLog(ctx context.Context, page Shooter, name, message string) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Warn("failed to create screenshot dir", "dir", s.outputDir, "error", err)
		return "", fmt.Errorf("creating screenshot dir: %w", err)
	}
	path := filepath.Join(s.outputDir, name)
	s.logger.Info(message, "path", path)

	//Take screenshot
	if err := page.Screenshot(ctx, path); err != nil {
		s.logger.Warn("failed to capture screenshot", "path", path, "error", err)
		return "", err
	}

	s.logger.Debug("screenshot saved", "path", path)
	return path, nil
}
