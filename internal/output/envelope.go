// Package output shapes scrape results into the JSON envelope both the HTTP
// endpoint and the CLI emit.
package output

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-cvbankas-scraper/internal/scraper"
)

// MissingQueryMessage is the exact error text for a request without job or city.
const MissingQueryMessage = "Missing job or city query parameter"

const stampLayout = "20060102-150405"

// Envelope is the top-level JSON document. Error bodies carry only Success
// and Error; success bodies always carry a jobs array, possibly empty.
type Envelope struct {
	Success  bool          `json:"success"`
	Jobs     []scraper.Job `json:"jobs,omitzero"`
	Error    string        `json:"error,omitempty"`
	Metadata *Metadata     `json:"metadata,omitempty"`
}

type Metadata struct {
	SearchQuery  scraper.Query `json:"searchQuery"`
	Timestamp    string        `json:"timestamp"`
	ResultsCount int           `json:"resultsCount"`
	// CardsFound vs CardsExtracted tells "no listings" from "selectors missed".
	CardsFound     int    `json:"cardsFound"`
	CardsExtracted int    `json:"cardsExtracted"`
	Consent        string `json:"consent,omitempty"`
	URL            string `json:"url,omitempty"`
}

// Success wraps res. label, when set, replaces the scrape start time as the
// metadata timestamp.
func Success(res *scraper.Result, label string) Envelope {
	jobs := res.Jobs
	if jobs == nil {
		jobs = []scraper.Job{}
	}

	timestamp := label
	if timestamp == "" {
		timestamp = res.StartedAt.UTC().Format(time.RFC3339)
	}

	return Envelope{
		Success: true,
		Jobs:    jobs,
		Metadata: &Metadata{
			SearchQuery:    res.Query,
			Timestamp:      timestamp,
			ResultsCount:   len(jobs),
			CardsFound:     res.CardsFound,
			CardsExtracted: res.CardsExtracted,
			Consent:        string(res.Consent),
			URL:            res.URL,
		},
	}
}

func Failure(err error) Envelope {
	return Envelope{Success: false, Error: Message(err)}
}

// Message is the human readable text for err.
func Message(err error) string {
	if errors.Is(err, scraper.ErrMissingQuery) {
		return MissingQueryMessage
	}
	return err.Error()
}

// FileStamp turns a caller supplied label into something safe for a file
// name, falling back to now when nothing usable is left.
func FileStamp(label string, now time.Time) string {
	stamp := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(label))
	stamp = strings.Trim(stamp, "-.")
	if stamp == "" {
		return now.Format(stampLayout)
	}
	return stamp
}

func JobsFileName(stamp string) string {
	return fmt.Sprintf("jobs-%s.json", stamp)
}

func ScreenshotFileName(stamp string) string {
	return fmt.Sprintf("debug-%s.png", stamp)
}
