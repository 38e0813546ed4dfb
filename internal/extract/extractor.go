// Package extract maps fetched documents into article records. The content
// heuristics are site-specific and replaceable: each is an entry in an
// ordered strategy list tried in sequence, so selectors can be swapped
// without touching the traversal engine.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/section"
)

// UntitledSentinel replaces a missing title so records always carry one.
const UntitledSentinel = "Untitled"

// Clock supplies the crawled_at stamp.
type Clock interface {
	Now() time.Time
}

// ContentStrategy is one prioritized attempt at locating body text: all
// elements matched by Selector contribute their text, joined by blank
// lines. The first strategy producing non-empty content wins.
type ContentStrategy struct {
	Name     string
	Selector string
}

// DefaultContentStrategies returns the built-in cascade tuned for the
// source site's markup.
func DefaultContentStrategies() []ContentStrategy {
	return []ContentStrategy{
		{Name: "article-content-block", Selector: "article .content"},
		{Name: "article-content-class", Selector: ".article-content"},
		{Name: "article-body", Selector: ".article-body"},
		{Name: "post-content", Selector: ".post-content"},
		{Name: "article-paragraphs", Selector: "article p"},
		{Name: "entry-content", Selector: ".entry-content"},
	}
}

var defaultImageBlocklist = []string{"logo", "icon", "avatar", "banner"}

var dateSelectors = []string{".date", ".post-date", ".article-date"}

const maxImageURLs = 5

// Config assembles an Extractor.
type Config struct {
	Section        *section.Section
	Strategies     []ContentStrategy
	ImageBlocklist []string
	Clock          Clock
}

// Extractor turns a document plus its URL into an Article. It tolerates
// partially missing structure: every field degrades to a sentinel or an
// absent value rather than failing.
type Extractor struct {
	section    *section.Section
	strategies []ContentStrategy
	blocklist  []string
	clock      Clock
}

// New builds an Extractor for one section.
func New(cfg Config) (*Extractor, error) {
	if cfg.Section == nil {
		return nil, fmt.Errorf("extractor requires a section")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("extractor requires a clock")
	}
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = DefaultContentStrategies()
	}
	blocklist := cfg.ImageBlocklist
	if blocklist == nil {
		blocklist = defaultImageBlocklist
	}
	return &Extractor{
		section:    cfg.Section,
		strategies: strategies,
		blocklist:  blocklist,
		clock:      cfg.Clock,
	}, nil
}

// Extract builds the full article record for a page. Pure aside from the
// crawled_at stamp.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) article.Article {
	return article.Article{
		IndexEntry: article.IndexEntry{
			URL:      pageURL,
			Title:    e.title(doc),
			Date:     e.date(doc),
			Category: e.section.CategoryOf(pageURL),
			Filename: e.section.RecordFilename(pageURL),
		},
		Content:   e.content(doc),
		AudioURL:  e.audioURL(doc, pageURL),
		ImageURLs: e.imageURLs(doc, pageURL),
		CrawledAt: e.clock.Now(),
	}
}

func (e *Extractor) title(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	return UntitledSentinel
}

func (e *Extractor) date(doc *goquery.Document) string {
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && dt != "" {
		return dt
	}
	for _, sel := range dateSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func (e *Extractor) content(doc *goquery.Document) string {
	for _, strategy := range e.strategies {
		if text := joinTexts(doc.Find(strategy.Selector)); text != "" {
			return text
		}
	}
	scope := firstOf(doc, "main", "article", "div.content")
	if scope == nil {
		return ""
	}
	return joinTexts(scope.Find("p"))
}

func (e *Extractor) audioURL(doc *goquery.Document, pageURL string) string {
	if src, ok := doc.Find("audio[src]").First().Attr("src"); ok && src != "" {
		return resolveURL(pageURL, src)
	}
	if src, ok := doc.Find("source[src]").First().Attr("src"); ok && src != "" {
		return resolveURL(pageURL, src)
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, ".mp3") || strings.Contains(href, "/audio/") {
			found = resolveURL(pageURL, href)
			return false
		}
		return true
	})
	return found
}

func (e *Extractor) imageURLs(doc *goquery.Document, pageURL string) []string {
	urls := []string{}
	scope := firstOf(doc, "article", "main")
	if scope == nil {
		return urls
	}
	scope.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" || e.blockedImage(src) {
			return
		}
		urls = append(urls, resolveURL(pageURL, src))
	})
	if len(urls) > maxImageURLs {
		urls = urls[:maxImageURLs]
	}
	return urls
}

func (e *Extractor) blockedImage(src string) bool {
	lowered := strings.ToLower(src)
	for _, blocked := range e.blocklist {
		if strings.Contains(lowered, blocked) {
			return true
		}
	}
	return false
}

// joinTexts joins the trimmed text of every matched element with blank
// lines, skipping empty ones.
func joinTexts(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, node *goquery.Selection) {
		if text := strings.TrimSpace(node.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// firstOf returns the first element matched by any of the selectors, tried
// in order, or nil when none match.
func firstOf(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return node
		}
	}
	return nil
}

// resolveURL resolves a possibly relative reference against the page URL,
// returning the reference untouched when either side fails to parse.
func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
