package engine

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestHarvestLinksClassifiesAndDedups(t *testing.T) {
	t.Parallel()

	sec := testSection(t)
	pageURL := "https://www.rri.ro/ro_ar/actualitati"
	doc := mustDoc(t, `<html><body>
<a href="/ro_ar/actualitati/alpha-id11.html">alpha</a>
<a href="https://www.rri.ro/ro_ar/actualitati/beta-id22.html">beta</a>
<a href="/ro_ar/actualitati/alpha-id11.html">alpha din nou</a>
<a href="/actualitate/stiri/gamma-id33.html">alta sectiune</a>
<a href="?page=2">inainte</a>
<a href="/ro_ar/actualitati/page/3/">a treia</a>
<a href="">gol</a>
<a href="#sus">ancora</a>
</body></html>`)

	links := harvestLinks(doc, pageURL, sec)

	require.Equal(t, []string{
		"https://www.rri.ro/ro_ar/actualitati/alpha-id11.html",
		"https://www.rri.ro/ro_ar/actualitati/beta-id22.html",
	}, links.articles)
	require.Equal(t, []string{
		"https://www.rri.ro/ro_ar/actualitati?page=2",
		"https://www.rri.ro/ro_ar/actualitati/page/3/",
	}, links.pagination)
}

func TestHarvestLinksChecksPaginationOnRawHref(t *testing.T) {
	t.Parallel()

	sec := testSection(t)
	// the page itself lives under /page/; its relative links must not be
	// mistaken for pagination
	pageURL := "https://www.rri.ro/ro_ar/actualitati/page/2/"
	doc := mustDoc(t, `<html><body>
<a href="stire-noua-id44.html">stire</a>
<a href="despre-noi">despre</a>
</body></html>`)

	links := harvestLinks(doc, pageURL, sec)

	require.Equal(t, []string{
		"https://www.rri.ro/ro_ar/actualitati/page/2/stire-noua-id44.html",
	}, links.articles)
	require.Empty(t, links.pagination)
}

func TestHarvestLinksSkipsOutOfScope(t *testing.T) {
	t.Parallel()

	sec := testSection(t)
	pageURL := "https://www.rri.ro/ro_ar/actualitati"
	doc := mustDoc(t, `<html><body>
<a href="https://alt-site.example/ro/articol-id55.html">extern</a>
<a href="/en/news/story-id66.html">engleza</a>
<a href="https://www.rri.ro/en/news?page=4">paginare straina</a>
</body></html>`)

	links := harvestLinks(doc, pageURL, sec)
	require.Empty(t, links.articles)
	require.Empty(t, links.pagination)
}
