package engine

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/rriarchive/harvester/internal/section"
)

// pageLinks holds the two disjoint link classes harvested from one page.
type pageLinks struct {
	articles   []string
	pagination []string
}

// harvestLinks walks every anchor on the page and classifies it. Relative
// hrefs resolve against the page URL; only links inside the section scope
// are eligible. The pagination check runs on the raw href as found in the
// document, the article check on the resolved URL. Each class is
// deduplicated preserving document order.
func harvestLinks(doc *goquery.Document, pageURL string, sec *section.Section) pageLinks {
	var links pageLinks
	seenArticles := make(map[string]struct{})
	seenPages := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := resolveLink(pageURL, href)
		if !sec.Contains(resolved) {
			return
		}
		switch {
		case section.IsArticleURL(resolved):
			if _, dup := seenArticles[resolved]; dup {
				return
			}
			seenArticles[resolved] = struct{}{}
			links.articles = append(links.articles, resolved)
		case section.IsPaginationLink(href):
			if _, dup := seenPages[resolved]; dup {
				return
			}
			seenPages[resolved] = struct{}{}
			links.pagination = append(links.pagination, resolved)
		}
	})
	return links
}

func resolveLink(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
