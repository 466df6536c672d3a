package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/output"
	"go-cvbankas-scraper/internal/scraper"
	"go-cvbankas-scraper/internal/scraper/cvbankas"
	"go-cvbankas-scraper/utils"
)

type notifier interface {
	SendResult(res *scraper.Result)
	SendError(q scraper.Query, err error)
}

type runner struct {
	cfg      *config.Config
	launcher browser.Launcher
	notifier notifier
	logger   *slog.Logger
	now      func() time.Time
}

// run scrapes q and writes the results file. label is the optional
// timestamp argument; it names the output files and the metadata timestamp.
func (r *runner) run(ctx context.Context, q scraper.Query, label string) (string, error) {
	stamp := output.FileStamp(label, r.now())

	s, err := cvbankas.NewCVBankasScraper(r.cfg, r.launcher, r.logger)
	if err != nil {
		r.logger.Error("invalid extraction rules", "error", err)
		return "", err
	}
	if r.cfg.Output.Screenshot {
		s.WithScreenshot(utils.NewScreenShotDebugger(r.cfg.Output.Dir, r.logger), output.ScreenshotFileName(stamp))
	}

	r.logger.Info("🚀 Starting scrape", "scraper", s.Name(), "job", q.JobTitle, "city", q.City)
	res, err := s.Scrape(ctx, q)
	if err != nil {
		r.logger.Error("❌ scrape failed", "error", err)
		if r.notifier != nil {
			r.notifier.SendError(q, err)
		}
		return "", err
	}

	path := filepath.Join(r.cfg.Output.Dir, output.JobsFileName(stamp))
	if err := output.WriteFile(path, output.Success(res, label)); err != nil {
		r.logger.Error("❌ failed to save results", "error", err)
		return "", err
	}
	r.logger.Info("📁 Results saved", "path", path, "jobs", len(res.Jobs))

	if r.notifier != nil {
		r.notifier.SendResult(res)
	}

	r.logger.Info("🏁 Execution finished.")
	return path, nil
}
