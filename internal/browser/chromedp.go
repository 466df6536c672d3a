package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const idlePoll = 100 * time.Millisecond

// ChromedpLauncher drives chrome over the devtools protocol directly,
// one exec allocator (and so one chrome process) per session.
type ChromedpLauncher struct {
	opts   Options
	logger *slog.Logger
}

func NewChromedpLauncher(opts Options, logger *slog.Logger) *ChromedpLauncher {
	return &ChromedpLauncher{opts: opts, logger: logger}
}

type chromedpSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	requests    *inflight
	logger      *slog.Logger
	once        sync.Once
	closeErr    error
}

var _ Launcher = (*ChromedpLauncher)(nil)
var _ Session = (*chromedpSession)(nil)

func (l *ChromedpLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
		chromedp.UserAgent(l.opts.UserAgent),
	)
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if l.opts.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecutablePath))
	}
	if l.opts.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(l.opts.ProfileDir))
	}
	return opts
}

func (l *ChromedpLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cookies []*network.CookieParam
	if l.opts.CookiesPath != "" {
		loaded, err := LoadCookies(l.opts.CookiesPath)
		if err != nil {
			return nil, err
		}
		for _, c := range loaded {
			cookies = append(cookies, c.ToCDP())
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}))

	s := &chromedpSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		requests:    newInflight(idleMaxInflight),
		logger:      l.logger,
	}
	chromedp.ListenTarget(tabCtx, s.requests.handle)

	//first Run starts the browser process
	actions := []chromedp.Action{network.Enable()}
	if l.opts.DisableCache {
		actions = append(actions, network.SetCacheDisabled(true))
	}
	if len(cookies) > 0 {
		actions = append(actions, network.SetCookies(cookies))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		s.Close()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return s, nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := s.bound(ctx, timeout)
	defer cancel()

	s.requests.reset()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return wrapChromedp(ctx, fmt.Sprintf("navigate %s", url), err)
	}
	if err := s.requests.wait(tctx, idleWindow, idlePoll); err != nil {
		return wrapChromedp(ctx, fmt.Sprintf("network idle %s", url), err)
	}
	return nil
}

func (s *chromedpSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := s.bound(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return wrapChromedp(ctx, fmt.Sprintf("wait for %s", selector), err)
	}
	return nil
}

func (s *chromedpSession) Visible(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const r = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden';
	})()`, quoted)

	tctx, cancel := s.bound(ctx, 0)
	defer cancel()
	var visible bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := s.bound(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return wrapChromedp(ctx, fmt.Sprintf("click %s", selector), err)
	}
	return nil
}

func (s *chromedpSession) ElementCount(ctx context.Context) (int, error) {
	tctx, cancel := s.bound(ctx, 0)
	defer cancel()
	var n int
	err := chromedp.Run(tctx, chromedp.Evaluate(`document.getElementsByTagName('*').length`, &n))
	return n, err
}

func (s *chromedpSession) Content(ctx context.Context) (string, error) {
	tctx, cancel := s.bound(ctx, 0)
	defer cancel()
	var html string
	err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromedpSession) URL(ctx context.Context) (string, error) {
	tctx, cancel := s.bound(ctx, 0)
	defer cancel()
	var loc string
	err := chromedp.Run(tctx, chromedp.Location(&loc))
	return loc, err
}

func (s *chromedpSession) Screenshot(ctx context.Context, path string) error {
	tctx, cancel := s.bound(ctx, 0)
	defer cancel()
	var buf []byte
	//quality 100 gives a png
	if err := chromedp.Run(tctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Close shuts the browser down gracefully, then releases the allocator,
// which kills the process if it is still around.
func (s *chromedpSession) Close() error {
	s.once.Do(func() {
		err := chromedp.Cancel(s.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.cancelTab()
		s.cancelAlloc()
		s.closeErr = err
		s.logger.Debug("chromedp session closed", "error", err)
	})
	return s.closeErr
}

// bound derives a context that carries the chromedp target of the session
// and ends with the caller's ctx or after timeout, whichever comes first.
// A zero timeout only follows ctx.
func (s *chromedpSession) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		tctx, cancelTimeout = context.WithTimeout(tctx, timeout)
		return tctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return tctx, func() {
		stop()
		cancel()
	}
}

func wrapChromedp(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
