package cvbankas

import (
	"net/url"
	"strings"

	"go-cvbankas-scraper/internal/scraper"
)

// SearchURL fills the {job} and {city} slots of template with the query
// escaped as query-string values.
func SearchURL(template string, q scraper.Query) string {
	r := strings.NewReplacer(
		"{job}", url.QueryEscape(q.JobTitle),
		"{city}", url.QueryEscape(q.City),
	)
	return r.Replace(template)
}
