// Package extract turns a rendered search results page into job records.
//
// Every field is located through an ordered chain of CSS selectors: each
// entry is tried in turn and the first element (in document order) with
// non-empty text wins. The chains are data, so a markup change on the site
// is a config change, not a code change.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/text/unicode/norm"

	"go-cvbankas-scraper/internal/scraper"
)

// Rules is the "extract" section of the config.
type Rules struct {
	Cards    []string `yaml:"cards"`
	Title    []string `yaml:"title"`
	Company  []string `yaml:"company"`
	Location []string `yaml:"location"`
	// UniqueURLs drops records whose URL was already emitted.
	UniqueURLs bool `yaml:"unique_urls"`
	// LinkFallbacks lets a title element without an href borrow the link of
	// an enclosing anchor or of an anchor inside it. Off, such cards are dropped.
	LinkFallbacks bool `yaml:"link_fallbacks"`
}

// DefaultRules targets cvbankas.lt list pages, with generic fallbacks.
func DefaultRules() Rules {
	return Rules{
		Cards: []string{
			`article`,
			`.list_article`,
			`.list_a`,
			`[class*="job-list"]`,
			`.list_cell`,
		},
		Title: []string{
			`h3 > a, [class*="title"], [class*="position"], a[class*="list_h"]`,
			`a`,
		},
		Company: []string{
			`.list_logo_txt, .dib, [class*="company"], [class*="employer"]`,
		},
		Location: []string{
			`.list_city, [class*="location"], [class*="city"]`,
		},
	}
}

// Strategy locates one element inside a card, or reports nothing found.
type Strategy func(card *goquery.Selection) (*goquery.Selection, bool)

// Chain is an ordered list of strategies; the first hit wins.
type Chain []Strategy

// Resolve returns the element and its cleaned text from the first strategy
// that yields non-empty text.
func (c Chain) Resolve(card *goquery.Selection) (*goquery.Selection, string) {
	for _, find := range c {
		el, ok := find(card)
		if !ok {
			continue
		}
		if text := visibleText(el); text != "" {
			return el, text
		}
	}
	return nil, ""
}

// bySelector picks the first element with non-empty text among the matches
// of a (possibly grouped) selector.
func bySelector(m goquery.Matcher) Strategy {
	return func(card *goquery.Selection) (*goquery.Selection, bool) {
		var found *goquery.Selection
		card.FindMatcher(m).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if visibleText(el) != "" {
				found = el
				return false
			}
			return true
		})
		return found, found != nil
	}
}

// Extractor is a compiled Rules.
type Extractor struct {
	cards         goquery.Matcher
	title         Chain
	company       Chain
	location      Chain
	uniqueURLs    bool
	linkFallbacks bool
	now           func() time.Time
}

// Extraction is the outcome of one pass over a document.
type Extraction struct {
	Jobs           []scraper.Job
	CardsFound     int
	CardsExtracted int
}

// Compile validates every selector in r.
func Compile(r Rules) (*Extractor, error) {
	if len(r.Cards) == 0 {
		return nil, fmt.Errorf("extract: no card selectors")
	}
	if len(r.Title) == 0 {
		return nil, fmt.Errorf("extract: no title selectors")
	}

	// one group keeps the union in document order, like querySelectorAll
	cards, err := cascadia.Compile(strings.Join(r.Cards, ", "))
	if err != nil {
		return nil, fmt.Errorf("extract: card selectors: %w", err)
	}

	title, err := compileChain("title", r.Title)
	if err != nil {
		return nil, err
	}
	company, err := compileChain("company", r.Company)
	if err != nil {
		return nil, err
	}
	location, err := compileChain("location", r.Location)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		cards:         cards,
		title:         title,
		company:       company,
		location:      location,
		uniqueURLs:    r.UniqueURLs,
		linkFallbacks: r.LinkFallbacks,
		now:           time.Now,
	}, nil
}

func compileChain(field string, selectors []string) (Chain, error) {
	chain := make(Chain, 0, len(selectors))
	for _, sel := range selectors {
		m, err := cascadia.Compile(sel)
		if err != nil {
			return nil, fmt.Errorf("extract: %s selector %q: %w", field, sel, err)
		}
		chain = append(chain, bySelector(m))
	}
	return chain, nil
}

// Extract reads html and returns every card that has both a title and a URL,
// in document order. baseURL resolves relative links. When stamp is true each
// record carries the extraction time.
func (e *Extractor) Extract(html, baseURL string, stamp bool) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: parsing document: %v", scraper.ErrExtraction, err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: base url %q: %v", scraper.ErrExtraction, baseURL, err)
	}

	var stampedAt *time.Time
	if stamp {
		now := e.now().UTC()
		stampedAt = &now
	}

	cards := doc.FindMatcher(e.cards)
	out := Extraction{
		Jobs:       make([]scraper.Job, 0, cards.Length()),
		CardsFound: cards.Length(),
	}
	seen := make(map[string]bool)

	cards.Each(func(_ int, card *goquery.Selection) {
		job, ok := e.extractCard(card, base)
		if !ok {
			return
		}
		if e.uniqueURLs {
			if seen[job.URL] {
				return
			}
			seen[job.URL] = true
		}
		job.ScrapedAt = stampedAt
		out.Jobs = append(out.Jobs, job)
	})
	out.CardsExtracted = len(out.Jobs)

	return out, nil
}

func (e *Extractor) extractCard(card *goquery.Selection, base *url.URL) (scraper.Job, bool) {
	titleEl, title := e.title.Resolve(card)
	if titleEl == nil {
		return scraper.Job{}, false
	}

	link := resolveHref(e.linkOf(card, titleEl), base)
	if link == "" {
		return scraper.Job{}, false
	}

	_, company := e.company.Resolve(card)
	_, location := e.location.Resolve(card)

	return scraper.Job{
		Title:    title,
		Company:  company,
		Location: location,
		URL:      link,
	}, true
}

// linkOf returns the href of the title element. With link fallbacks on it
// then tries the closest anchor around it inside the card (the card itself
// included), then the first anchor inside it.
func (e *Extractor) linkOf(card, titleEl *goquery.Selection) string {
	if href, ok := titleEl.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return href
	}
	if !e.linkFallbacks {
		return ""
	}

	ancestors := titleEl.ParentsUntilSelection(card).AddSelection(card).Filter("a[href]")
	if ancestors.Length() > 0 {
		// ParentsUntil lists nearest first, the card comes last
		if href, ok := ancestors.First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return href
		}
	}

	if href, ok := titleEl.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	return ""
}

func resolveHref(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// hiddenContent never shows up in innerText.
const hiddenContent = "script, style, noscript, template, [hidden]"

// visibleText is the cleaned text of el without script, style and hidden
// descendants.
func visibleText(el *goquery.Selection) string {
	if el.Find(hiddenContent).Length() == 0 {
		return cleanText(el.Text())
	}
	c := el.Clone()
	c.Find(hiddenContent).Remove()
	return cleanText(c.Text())
}

// cleanText collapses whitespace the way innerText renders it and NFC-normalises
// so composed and decomposed Lithuanian letters compare equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
