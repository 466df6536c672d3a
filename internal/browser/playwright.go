package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts a dedicated playwright driver and chromium per session.
type PlaywrightLauncher struct {
	opts   Options
	logger *slog.Logger
}

func NewPlaywrightLauncher(opts Options, logger *slog.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{opts: opts, logger: logger}
}

type playwrightSession struct {
	pw       *playwright.Playwright
	browser  playwright.Browser // nil for persistent profiles
	context  playwright.BrowserContext
	page     playwright.Page
	logger   *slog.Logger
	once     sync.Once
	closeErr error
}

var _ Launcher = (*PlaywrightLauncher)(nil)
var _ Session = (*playwrightSession)(nil)

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cookies []playwright.OptionalCookie
	if l.opts.CookiesPath != "" {
		loaded, err := LoadCookies(l.opts.CookiesPath)
		if err != nil {
			return nil, err
		}
		for _, c := range loaded {
			cookies = append(cookies, c.ToPlaywright())
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	s := &playwrightSession{pw: pw, logger: l.logger}

	if err := l.open(s); err != nil {
		s.Close()
		return nil, err
	}

	if len(cookies) > 0 {
		if err := s.context.AddCookies(cookies); err != nil {
			s.Close()
			return nil, fmt.Errorf("adding cookies: %w", err)
		}
		l.logger.Debug("cookies preloaded", "count", len(cookies))
	}

	if l.opts.DisableCache {
		if err := s.disableCache(); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// open creates the browser context and page on s, using a persistent
// profile when one is configured.
func (l *PlaywrightLauncher) open(s *playwrightSession) error {
	viewport := &playwright.Size{Width: l.opts.WindowWidth, Height: l.opts.WindowHeight}
	var execPath *string
	if l.opts.ExecutablePath != "" {
		execPath = playwright.String(l.opts.ExecutablePath)
	}

	if l.opts.ProfileDir != "" {
		bctx, err := s.pw.Chromium.LaunchPersistentContext(l.opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:       playwright.Bool(l.opts.Headless),
			Args:           l.opts.Args(),
			ExecutablePath: execPath,
			UserAgent:      playwright.String(l.opts.UserAgent),
			Viewport:       viewport,
		})
		if err != nil {
			return fmt.Errorf("launching chromium with profile %s: %w", l.opts.ProfileDir, err)
		}
		s.context = bctx
	} else {
		browser, err := s.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless:       playwright.Bool(l.opts.Headless),
			Args:           l.opts.Args(),
			ExecutablePath: execPath,
		})
		if err != nil {
			return fmt.Errorf("launching chromium: %w", err)
		}
		s.browser = browser

		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent: playwright.String(l.opts.UserAgent),
			Viewport:  viewport,
		})
		if err != nil {
			return fmt.Errorf("creating browser context: %w", err)
		}
		s.context = bctx
	}

	page, err := s.context.NewPage()
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	s.page = page
	return nil
}

func (s *playwrightSession) disableCache() error {
	cdp, err := s.context.NewCDPSession(s.page)
	if err != nil {
		return fmt.Errorf("opening cdp session: %w", err)
	}
	if _, err := cdp.Send("Network.enable", map[string]interface{}{}); err != nil {
		return fmt.Errorf("enabling network domain: %w", err)
	}
	if _, err := cdp.Send("Network.setCacheDisabled", map[string]interface{}{"cacheDisabled": true}); err != nil {
		return fmt.Errorf("disabling cache: %w", err)
	}
	return nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms(boundedTimeout(ctx, timeout)),
	})
	if err != nil {
		return wrapPlaywright(fmt.Sprintf("navigate %s", url), err)
	}
	return nil
}

func (s *playwrightSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(boundedTimeout(ctx, timeout)),
	})
	if err != nil {
		return wrapPlaywright(fmt.Sprintf("wait for %s", selector), err)
	}
	return nil
}

func (s *playwrightSession) Visible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.page.Locator(selector).First().IsVisible()
}

func (s *playwrightSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: ms(boundedTimeout(ctx, timeout)),
	})
	if err != nil {
		return wrapPlaywright(fmt.Sprintf("click %s", selector), err)
	}
	return nil
}

func (s *playwrightSession) ElementCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := s.page.Evaluate("document.getElementsByTagName('*').length")
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected element count type %T", v)
	}
}

func (s *playwrightSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *playwrightSession) URL(ctx context.Context) (string, error) {
	return s.page.URL(), nil
}

func (s *playwrightSession) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// Close tears down page, context, browser and the driver process, in that order.
func (s *playwrightSession) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.context != nil {
			errs = append(errs, s.context.Close())
		}
		if s.browser != nil {
			errs = append(errs, s.browser.Close())
		}
		errs = append(errs, s.pw.Stop())
		s.closeErr = errors.Join(errs...)
		s.logger.Debug("playwright session closed", "error", s.closeErr)
	})
	return s.closeErr
}

func wrapPlaywright(op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ms converts d to playwright's millisecond timeouts. Zero means "wait forever"
// to playwright, so it is never passed through.
func ms(d time.Duration) *float64 {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}
