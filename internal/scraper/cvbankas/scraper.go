package cvbankas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/consent"
	"go-cvbankas-scraper/internal/extract"
	"go-cvbankas-scraper/internal/scraper"
	"go-cvbankas-scraper/utils"
)

type CVBankasScraper struct {
	cfg       config.Search
	launcher  browser.Launcher
	extractor *extract.Extractor
	consent   *consent.Handler
	logger    *slog.Logger

	// optional, set with WithScreenshot
	debugger   *utils.ScreenShotDebugger
	screenshot string
}

var _ scraper.Scraper = (*CVBankasScraper)(nil)

// NewCVBankasScraper compiles the extraction rules up front so a bad
// selector fails at startup, not on the first request.
func NewCVBankasScraper(cfg *config.Config, launcher browser.Launcher, logger *slog.Logger) (*CVBankasScraper, error) {
	extractor, err := extract.Compile(cfg.Extract)
	if err != nil {
		return nil, err
	}
	return &CVBankasScraper{
		cfg:       cfg.Search,
		launcher:  launcher,
		extractor: extractor,
		consent:   consent.NewHandler(cfg.Consent, logger),
		logger:    logger,
	}, nil
}

// WithScreenshot makes every scrape that got a page save it as name through d.
func (s *CVBankasScraper) WithScreenshot(d *utils.ScreenShotDebugger, name string) *CVBankasScraper {
	s.debugger = d
	s.screenshot = name
	return s
}

func (s *CVBankasScraper) Name() string {
	return "CVBankas"
}

// Scrape runs one isolated browser session: navigate, settle, dismiss the
// consent banner, extract. The session is closed on every path.
func (s *CVBankasScraper) Scrape(ctx context.Context, q scraper.Query) (*scraper.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	res := &scraper.Result{
		Query:     q,
		URL:       SearchURL(s.cfg.URLTemplate, q),
		StartedAt: time.Now(),
	}
	log := s.logger.With("job", q.JobTitle, "city", q.City)
	log.Info("📋 Searching CVBankas...", "url", res.URL)

	sess, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scraper.ErrLaunch, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("browser teardown failed", "error", err)
		}
	}()

	err = s.run(ctx, log, sess, res)
	if s.debugger != nil {
		// best effort, also on failure when it helps most
		s.debugger.CaptureAndLog(ctx, sess, s.screenshot, "📸 saving debug screenshot")
	}
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	log.Info("✅ Scrape finished",
		"cards_found", res.CardsFound,
		"cards_extracted", res.CardsExtracted,
		"consent", res.Consent,
		"duration", res.Duration)
	return res, nil
}

func (s *CVBankasScraper) run(ctx context.Context, log *slog.Logger, sess browser.Session, res *scraper.Result) error {
	//navigate
	start := time.Now()
	if err := sess.Navigate(ctx, res.URL, s.cfg.NavigationTimeout); err != nil {
		return navigationError("loading "+res.URL, err)
	}
	if err := sess.WaitVisible(ctx, "body", s.cfg.BodyTimeout); err != nil {
		return navigationError("waiting for body", err)
	}
	log.Debug("page loaded", "took", time.Since(start))

	s.settle(ctx, log, sess)

	//consent banner, never fatal
	out := s.consent.Dismiss(ctx, sess)
	res.Consent = scraper.ConsentStatus(out.Status)

	html, err := sess.Content(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading document: %v", scraper.ErrExtraction, err)
	}
	if current, err := sess.URL(ctx); err == nil && current != "" {
		res.URL = current
	}

	ex, err := s.extractor.Extract(html, res.URL, s.cfg.StampJobs)
	if err != nil {
		return err
	}
	res.Jobs = ex.Jobs
	res.CardsFound = ex.CardsFound
	res.CardsExtracted = ex.CardsExtracted

	if ex.CardsFound == 0 {
		log.Warn("no job cards matched, markup may have changed")
	}
	return nil
}

// settle waits until the element count stops changing between two samples,
// at most SettleMax. Errors only end the wait.
func (s *CVBankasScraper) settle(ctx context.Context, log *slog.Logger, sess browser.Session) {
	if s.cfg.SettleMax <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SettleMax)
	defer cancel()

	ticker := time.NewTicker(s.cfg.SettleInterval)
	defer ticker.Stop()

	prev, err := sess.ElementCount(ctx)
	if err != nil {
		log.Debug("settle poll stopped", "error", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug("settle bound reached", "elements", prev)
			return
		case <-ticker.C:
		}
		n, err := sess.ElementCount(ctx)
		if err != nil {
			log.Debug("settle poll stopped", "error", err)
			return
		}
		if n == prev {
			log.Debug("dom stable", "elements", n)
			return
		}
		prev = n
	}
}

func navigationError(step string, err error) error {
	if errors.Is(err, browser.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", scraper.ErrNavigationTimeout, step, err)
	}
	return fmt.Errorf("%w: %s: %v", scraper.ErrNavigation, step, err)
}
