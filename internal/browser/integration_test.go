package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const consentPage = `<html><body>
<div id="cookie-banner" style="width:300px;height:80px">
  <button id="accept" onclick="document.getElementById('cookie-banner').remove()">OK</button>
</div>
<article class="list_article"><a href="/job/1"><h3>Go developer</h3></a></article>
</body></html>`

// real browser run, needs chromium plus the playwright driver installed
func TestDrivers_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("SCRAPER_BROWSER_TESTS") == "" {
		t.Skip("set SCRAPER_BROWSER_TESTS=1 to run against a real browser")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(consentPage))
	}))
	defer srv.Close()

	for _, driver := range []string{DriverPlaywright, DriverChromedp} {
		t.Run(driver, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Driver = driver
			launcher, err := NewLauncher(opts, discardLogger())
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			s, err := launcher.Launch(ctx)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Navigate(ctx, srv.URL+"/?keyw=go", 30*time.Second))
			require.NoError(t, s.WaitVisible(ctx, "body", 15*time.Second))

			visible, err := s.Visible(ctx, "#cookie-banner")
			require.NoError(t, err)
			assert.True(t, visible)
			require.NoError(t, s.Click(ctx, "#accept", 2*time.Second))

			visible, err = s.Visible(ctx, "#cookie-banner")
			require.NoError(t, err)
			assert.False(t, visible)

			n, err := s.ElementCount(ctx)
			require.NoError(t, err)
			assert.Greater(t, n, 3)

			html, err := s.Content(ctx)
			require.NoError(t, err)
			assert.Contains(t, html, "Go developer")

			u, err := s.URL(ctx)
			require.NoError(t, err)
			assert.Contains(t, u, "keyw=go")

			shot := filepath.Join(t.TempDir(), "shot.png")
			require.NoError(t, s.Screenshot(ctx, shot))
			assert.FileExists(t, shot)

			assert.NoError(t, s.Close())
			assert.NoError(t, s.Close())
		})
	}
}
