package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// inflight counts outstanding network requests of one page and remembers
// since when the count has been at or below the idle threshold.
type inflight struct {
	mu        sync.Mutex
	pending   map[network.RequestID]struct{}
	maxIdle   int
	quietFrom time.Time
	now       func() time.Time
}

func newInflight(maxIdle int) *inflight {
	t := &inflight{
		pending: make(map[network.RequestID]struct{}),
		maxIdle: maxIdle,
		now:     time.Now,
	}
	t.quietFrom = t.now()
	return t
}

// handle is registered with chromedp.ListenTarget.
func (t *inflight) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.add(e.RequestID)
	case *network.EventLoadingFinished:
		t.done(e.RequestID)
	case *network.EventLoadingFailed:
		t.done(e.RequestID)
	}
}

func (t *inflight) add(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// redirects reuse the request id
	t.pending[id] = struct{}{}
	if len(t.pending) > t.maxIdle {
		t.quietFrom = time.Time{}
	}
}

func (t *inflight) done(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
	if len(t.pending) <= t.maxIdle && t.quietFrom.IsZero() {
		t.quietFrom = t.now()
	}
}

// reset forgets requests of the previous document.
func (t *inflight) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = make(map[network.RequestID]struct{})
	t.quietFrom = t.now()
}

// idleFor reports how long the page has been quiet, zero while busy.
func (t *inflight) idleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quietFrom.IsZero() {
		return 0
	}
	return t.now().Sub(t.quietFrom)
}

// wait blocks until the page was quiet for window or ctx is done.
func (t *inflight) wait(ctx context.Context, window, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if t.idleFor() >= window {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
