package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTimeout marks a wait that ran past its bound. Drivers wrap their own
// timeout errors with it so callers can use errors.Is.
var ErrTimeout = errors.New("browser timeout")

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	// DefaultUserAgent is sent by every session unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36 Edg/96.0.1054.62"

	// network idle: at most idleMaxInflight requests for idleWindow
	idleMaxInflight = 2
	idleWindow      = 500 * time.Millisecond
)

// Options configures how a browser process is started. It is read from the
// "browser" section of the config file.
type Options struct {
	Driver         string `yaml:"driver"`
	Headless       bool   `yaml:"headless"`
	NoSandbox      bool   `yaml:"no_sandbox"`
	WindowWidth    int    `yaml:"window_width"`
	WindowHeight   int    `yaml:"window_height"`
	UserAgent      string `yaml:"user_agent"`
	ExecutablePath string `yaml:"executable_path"`
	ProfileDir     string `yaml:"profile_dir"`
	CookiesPath    string `yaml:"cookies_path"`
	DisableCache   bool   `yaml:"disable_cache"`
}

// DefaultOptions matches the window size, sandbox flags and user agent the
// scraper has always used.
func DefaultOptions() Options {
	return Options{
		Driver:       DriverPlaywright,
		Headless:     true,
		NoSandbox:    true,
		WindowWidth:  1366,
		WindowHeight: 768,
		UserAgent:    DefaultUserAgent,
		DisableCache: true,
	}
}

// Args returns the chromium command line flags shared by both drivers.
func (o Options) Args() []string {
	args := []string{fmt.Sprintf("--window-size=%d,%d", o.WindowWidth, o.WindowHeight)}
	if o.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	return args
}

// Session is one isolated browser with a single page. Close must be called
// on every path once Launch succeeded; calling it again is a no-op.
type Session interface {
	// Navigate loads url and waits for the network to go idle.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Visible reports whether the first match of selector is rendered. It does not wait.
	Visible(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// ElementCount is the number of elements in the current document.
	ElementCount(ctx context.Context) (int, error)
	// Content is the serialized HTML of the rendered document.
	Content(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Launcher starts a fresh Session. Sessions are never pooled or shared.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// NewLauncher picks the driver named in opts.
func NewLauncher(opts Options, logger *slog.Logger) (Launcher, error) {
	switch opts.Driver {
	case "", DriverPlaywright:
		return NewPlaywrightLauncher(opts, logger), nil
	case DriverChromedp:
		return NewChromedpLauncher(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}

// boundedTimeout shrinks d so it never outlives ctx.
func boundedTimeout(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			if left < 0 {
				return 0
			}
			return left
		}
	}
	return d
}
