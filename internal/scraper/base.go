// Define the types shared by every listing scraper
// and the interface the HTTP and CLI front-ends drive.

package scraper

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingQuery      = errors.New("missing job or city query parameter")
	ErrLaunch            = errors.New("browser launch failed")
	ErrNavigationTimeout = errors.New("navigation timed out")
	ErrNavigation        = errors.New("navigation failed")
	ErrExtraction        = errors.New("extraction failed")
)

// Job is one listing pulled from a search results page.
// Title and URL are always set; Company and Location are best effort.
type Job struct {
	Title     string     `json:"title"`
	Company   string     `json:"company,omitempty"`
	Location  string     `json:"location,omitempty"`
	URL       string     `json:"url"`
	ScrapedAt *time.Time `json:"scrapedAt,omitempty"`
}

// Query is what the caller searches for.
type Query struct {
	JobTitle string `json:"jobTitle"`
	City     string `json:"city"`
}

// Validate only checks presence, both values go into the URL as-is.
func (q Query) Validate() error {
	if q.JobTitle == "" || q.City == "" {
		return ErrMissingQuery
	}
	return nil
}

// ConsentStatus mirrors consent.Status without importing it here.
type ConsentStatus string

// Result is everything one scrape produced.
type Result struct {
	Query          Query
	URL            string
	Jobs           []Job
	CardsFound     int
	CardsExtracted int
	Consent        ConsentStatus
	StartedAt      time.Time
	Duration       time.Duration
}

//Scraper defines what a site scraper must implement
type Scraper interface {
	//Scrape runs one isolated browser session for the query
	Scrape(ctx context.Context, q Query) (*Result, error)

	//Name is the site name (CVBankas, ...)
	Name() string
}
