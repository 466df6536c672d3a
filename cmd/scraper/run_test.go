package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/browser/browsertest"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/output"
	"go-cvbankas-scraper/internal/scraper"
	"go-cvbankas-scraper/utils"
)

type recordingNotifier struct {
	results []*scraper.Result
	errs    []error
}

func (n *recordingNotifier) SendResult(res *scraper.Result)      { n.results = append(n.results, res) }
func (n *recordingNotifier) SendError(q scraper.Query, err error) { n.errs = append(n.errs, err) }

var fixedNow = time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC)

func newRunner(t *testing.T, page browsertest.Page) (*runner, *browsertest.Launcher, *recordingNotifier) {
	t.Helper()
	cfg := config.Default()
	cfg.Search.SettleMax = 0
	cfg.Output.Dir = t.TempDir()

	l := browsertest.NewLauncher(page)
	n := &recordingNotifier{}
	return &runner{
		cfg:      cfg,
		launcher: l,
		notifier: n,
		logger:   utils.DiscardLogger(),
		now:      func() time.Time { return fixedNow },
	}, l, n
}

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "extract", "testdata", "listing.html"))
	require.NoError(t, err)
	return string(data)
}

var query = scraper.Query{JobTitle: "programuotojas", City: "Vilnius"}

func TestRun_WritesResultsAndScreenshot(t *testing.T) {
	r, l, n := newRunner(t, browsertest.Page{HTML: fixture(t)})

	path, err := r.run(context.Background(), query, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.cfg.Output.Dir, "jobs-20240501-093005.json"), path)
	assert.FileExists(t, filepath.Join(r.cfg.Output.Dir, "debug-20240501-093005.png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var env output.Envelope
	require.NoError(t, json.Unmarshal(data, &env))

	assert.True(t, env.Success)
	assert.Len(t, env.Jobs, 3)
	assert.Equal(t, query, env.Metadata.SearchQuery)
	assert.Equal(t, 3, env.Metadata.ResultsCount)

	assert.Len(t, n.results, 1)
	assert.Equal(t, 1, l.Sessions()[0].Closes())
}

func TestRun_TimestampLabel(t *testing.T) {
	r, _, _ := newRunner(t, browsertest.Page{HTML: fixture(t)})

	path, err := r.run(context.Background(), query, "2024-05-01T10:00")
	require.NoError(t, err)
	assert.Equal(t, "jobs-2024-05-01T10-00.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var env output.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "2024-05-01T10:00", env.Metadata.Timestamp)
}

func TestRun_NoScreenshot(t *testing.T) {
	r, l, _ := newRunner(t, browsertest.Page{HTML: fixture(t)})
	r.cfg.Output.Screenshot = false

	_, err := r.run(context.Background(), query, "x")
	require.NoError(t, err)
	assert.Empty(t, l.Sessions()[0].Screenshots())
}

func TestRun_FailureWritesNoResults(t *testing.T) {
	r, l, n := newRunner(t, browsertest.Page{NavigateErr: browser.ErrTimeout})

	_, err := r.run(context.Background(), query, "x")
	assert.ErrorIs(t, err, scraper.ErrNavigationTimeout)
	assert.NoFileExists(t, filepath.Join(r.cfg.Output.Dir, "jobs-x.json"))
	// screenshot still taken for debugging
	assert.FileExists(t, filepath.Join(r.cfg.Output.Dir, "debug-x.png"))
	assert.Len(t, n.errs, 1)
	assert.Equal(t, 1, l.Sessions()[0].Closes())
}

func TestRun_LaunchFailure(t *testing.T) {
	r, l, _ := newRunner(t, browsertest.Page{})
	l.LaunchErr = errors.New("chromium missing")

	_, err := r.run(context.Background(), query, "")
	assert.ErrorIs(t, err, scraper.ErrLaunch)
}

func TestValidateArgs(t *testing.T) {
	cmd := &cobra.Command{}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"job and city", []string{"programuotojas", "Vilnius"}, false},
		{"with timestamp", []string{"programuotojas", "Vilnius", "123"}, false},
		{"missing city", []string{"programuotojas"}, true},
		{"none", nil, true},
		{"too many", []string{"a", "b", "c", "d"}, true},
		{"empty job", []string{"", "Vilnius"}, true},
		{"empty city", []string{"programuotojas", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(cmd, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
