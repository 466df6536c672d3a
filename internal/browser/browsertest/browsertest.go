// Package browsertest provides a scriptable in-memory browser for tests of
// code that drives a browser.Session.
package browsertest

import (
	"context"
	"os"
	"sync"
	"time"

	"go-cvbankas-scraper/internal/browser"
)

// Page is what a fake session serves.
type Page struct {
	HTML string
	// URL reported after navigation, defaults to the navigated url.
	URL string
	// Visible selectors, consulted by Visible and Click.
	Visible map[string]bool
	// ElementCounts are returned in turn by ElementCount, the last one repeats.
	ElementCounts []int

	NavigateErr error
	WaitErr     error
	ClickErr    error
	ContentErr  error
	VisibleErr  error
}

// Launcher hands out a new Session per Launch, all serving the same Page.
type Launcher struct {
	Page      Page
	LaunchErr error

	mu       sync.Mutex
	launches int
	sessions []*Session
}

var _ browser.Launcher = (*Launcher)(nil)

func NewLauncher(page Page) *Launcher {
	return &Launcher{Page: page}
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := &Session{page: l.Page}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Launches counts calls to Launch, failed ones included.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Session records what was done to it.
type Session struct {
	page Page

	mu          sync.Mutex
	navigated   []string
	clicked     []string
	screenshots []string
	closes      int
	counts      int
}

var _ browser.Session = (*Session)(nil)

func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return s.page.NavigateErr
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.page.WaitErr
}

func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	if s.page.VisibleErr != nil {
		return false, s.page.VisibleErr
	}
	return s.page.Visible[selector], nil
}

func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page.ClickErr != nil {
		return s.page.ClickErr
	}
	if !s.page.Visible[selector] {
		return browser.ErrTimeout
	}
	s.clicked = append(s.clicked, selector)
	return nil
}

func (s *Session) ElementCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.page.ElementCounts) == 0 {
		return 0, nil
	}
	i := s.counts
	if i >= len(s.page.ElementCounts) {
		i = len(s.page.ElementCounts) - 1
	}
	s.counts++
	return s.page.ElementCounts[i], nil
}

func (s *Session) Content(ctx context.Context) (string, error) {
	return s.page.HTML, s.page.ContentErr
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page.URL != "" {
		return s.page.URL, nil
	}
	if len(s.navigated) > 0 {
		return s.navigated[len(s.navigated)-1], nil
	}
	return "about:blank", nil
}

// Screenshot writes a tiny placeholder file so callers can check the path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	s.mu.Lock()
	s.screenshots = append(s.screenshots, path)
	s.mu.Unlock()
	return os.WriteFile(path, []byte("png"), 0644)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Counts is how many times ElementCount was called.
func (s *Session) Counts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

func (s *Session) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigated...)
}

func (s *Session) Clicked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicked...)
}

func (s *Session) Screenshots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.screenshots...)
}
