package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/browser/browsertest"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/output"
	"go-cvbankas-scraper/internal/scraper/cvbankas"
	"go-cvbankas-scraper/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, page browsertest.Page) (http.Handler, *browsertest.Launcher) {
	t.Helper()
	cfg := config.Default()
	cfg.Search.SettleMax = 0

	l := browsertest.NewLauncher(page)
	s, err := cvbankas.NewCVBankasScraper(cfg, l, utils.DiscardLogger())
	require.NoError(t, err)

	srv, err := NewServer(cfg.Server, NewScrapeHandler(s, utils.DiscardLogger()), utils.DiscardLogger())
	require.NoError(t, err)
	srv.SetUpRoutes()
	return srv.Handler(), l
}

func get(h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) output.Envelope {
	t.Helper()
	var env output.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestScrape_MissingParams(t *testing.T) {
	targets := []string{
		"/scrape",
		"/scrape?job=programuotojas",
		"/scrape?city=Vilnius",
		"/scrape?job=programuotojas&city=",
		"/scrape?job=&city=Vilnius",
		"/scrape?job=&city=",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			h, l := newTestServer(t, browsertest.Page{})
			w := get(h, target, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"success":false,"error":"Missing job or city query parameter"}`, w.Body.String())
			assert.Equal(t, 0, l.Launches())
		})
	}
}

func TestScrape_Success(t *testing.T) {
	html, err := os.ReadFile(filepath.Join("..", "extract", "testdata", "listing.html"))
	require.NoError(t, err)

	h, l := newTestServer(t, browsertest.Page{HTML: string(html)})
	w := get(h, "/scrape?job=programuotojas&city=Vilnius", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
	require.Len(t, env.Jobs, 3)
	assert.Equal(t, "Programuotojas (Go)", env.Jobs[0].Title)
	assert.Equal(t, "https://www.cvbankas.lt/darbo-skelbimas/103", env.Jobs[2].URL)

	require.NotNil(t, env.Metadata)
	assert.Equal(t, 3, env.Metadata.ResultsCount)
	assert.Equal(t, 4, env.Metadata.CardsFound)
	assert.Equal(t, "Vilnius", env.Metadata.SearchQuery.City)
	_, err = time.Parse(time.RFC3339, env.Metadata.Timestamp)
	assert.NoError(t, err)

	assert.Equal(t, 1, l.Launches())
	assert.Equal(t, 1, l.Sessions()[0].Closes())
}

func TestScrape_EncodesQuery(t *testing.T) {
	h, l := newTestServer(t, browsertest.Page{HTML: "<html><body></body></html>"})
	w := get(h, "/scrape?job=R%26D+engineer&city=%C5%A0iauliai", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		[]string{"https://www.cvbankas.lt/?keyw=R%26D+engineer&city=%C5%A0iauliai"},
		l.Sessions()[0].Navigated())
	assert.Equal(t, []any{}, decodeRaw(t, w)["jobs"])
}

func decodeRaw(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	return raw
}

func TestScrape_InternalErrors(t *testing.T) {
	tests := []struct {
		name    string
		page    browsertest.Page
		launch  error
		message string
	}{
		{
			name:    "launch failure",
			launch:  errors.New("chromium not found"),
			message: "browser launch failed: chromium not found",
		},
		{
			name:    "navigation timeout",
			page:    browsertest.Page{NavigateErr: browser.ErrTimeout},
			message: "navigation timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, l := newTestServer(t, tt.page)
			l.LaunchErr = tt.launch

			w := get(h, "/scrape?job=go&city=Vilnius", nil)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			raw := decodeRaw(t, w)
			assert.Equal(t, false, raw["success"])
			assert.Contains(t, raw["error"], tt.message)
			assert.NotContains(t, raw, "jobs")
			assert.NotContains(t, raw, "metadata")
			for _, s := range l.Sessions() {
				assert.Equal(t, 1, s.Closes())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	h, _ := newTestServer(t, browsertest.Page{})

	w := get(h, "/", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = get(h, "/", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestHealth(t *testing.T) {
	h, l := newTestServer(t, browsertest.Page{})
	w := get(h, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeRaw(t, w)["status"])
	assert.Equal(t, 0, l.Launches())
}
