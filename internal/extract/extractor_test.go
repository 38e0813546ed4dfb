package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rriarchive/harvester/internal/section"
)

var testTime = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

// --- fakes ---

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	sec, err := section.Get("ro_ar")
	if err != nil {
		t.Fatalf("section.Get: %v", err)
	}
	e, err := New(Config{Section: sec, Clock: fixedClock{at: testTime}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestExtractFullArticle(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<h1> Alegeri locale </h1>
<time datetime="2026-04-09T10:00:00Z">ieri</time>
<article>
  <div class="content">Rezultatele alegerilor locale.</div>
  <img src="/img/photo1.jpg">
  <img src="https://cdn.rri.ro/logo-small.png">
  <img src="/img/photo2.jpg">
</article>
<audio src="/audio/emisiune.mp3"></audio>
</body></html>`

	e := newTestExtractor(t)
	pageURL := "https://www.rri.ro/ro_ar/actualitati/alegeri-id12345.html"
	a := e.Extract(parseHTML(t, html), pageURL)

	if a.Title != "Alegeri locale" {
		t.Fatalf("Title = %q", a.Title)
	}
	if a.Date != "2026-04-09T10:00:00Z" {
		t.Fatalf("Date = %q", a.Date)
	}
	if a.Category != "actualitati" {
		t.Fatalf("Category = %q", a.Category)
	}
	if a.Filename != "actualitati_12345.json" {
		t.Fatalf("Filename = %q", a.Filename)
	}
	if a.Content != "Rezultatele alegerilor locale." {
		t.Fatalf("Content = %q", a.Content)
	}
	if a.AudioURL != "https://www.rri.ro/audio/emisiune.mp3" {
		t.Fatalf("AudioURL = %q", a.AudioURL)
	}
	want := []string{
		"https://www.rri.ro/img/photo1.jpg",
		"https://www.rri.ro/img/photo2.jpg",
	}
	if len(a.ImageURLs) != len(want) {
		t.Fatalf("ImageURLs = %v", a.ImageURLs)
	}
	for i, u := range want {
		if a.ImageURLs[i] != u {
			t.Fatalf("ImageURLs[%d] = %q, want %q", i, a.ImageURLs[i], u)
		}
	}
	if !a.CrawledAt.Equal(testTime) {
		t.Fatalf("CrawledAt = %v", a.CrawledAt)
	}
}

func TestExtractDegradesGracefully(t *testing.T) {
	t.Parallel()

	html := `<html><body><div id="nav">menu</div></body></html>`
	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/sport-ro_ar/meci-id77.html")

	if a.Title != UntitledSentinel {
		t.Fatalf("Title = %q, want sentinel", a.Title)
	}
	if a.Date != "" {
		t.Fatalf("Date = %q, want empty", a.Date)
	}
	if a.Content != "" {
		t.Fatalf("Content = %q, want empty", a.Content)
	}
	if a.AudioURL != "" {
		t.Fatalf("AudioURL = %q, want empty", a.AudioURL)
	}
	if a.ImageURLs == nil || len(a.ImageURLs) != 0 {
		t.Fatalf("ImageURLs = %#v, want empty non-nil slice", a.ImageURLs)
	}
}

func TestContentFallsBackToGenericParagraphs(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<main>
  <p>Fallback unu.</p>
  <p>   </p>
  <p>Fallback doi.</p>
</main>
</body></html>`
	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/interviuri/dialog-id5.html")
	if a.Content != "Fallback unu.\n\nFallback doi." {
		t.Fatalf("Content = %q", a.Content)
	}
}

func TestContentJoinsMatchedElements(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<article>
  <p>Primul paragraf.</p>
  <p></p>
  <p>Al doilea paragraf.</p>
</article>
</body></html>`
	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/actualitati/p-id2.html")
	if a.Content != "Primul paragraf.\n\nAl doilea paragraf." {
		t.Fatalf("Content = %q", a.Content)
	}
}

func TestDateSelectorFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body><span class="post-date"> 12 aprilie 2026 </span></body></html>`
	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/actualitati/zi-id8.html")
	if a.Date != "12 aprilie 2026" {
		t.Fatalf("Date = %q", a.Date)
	}
}

func TestAudioFallsBackToLinks(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="/despre">despre</a>
<a href="/files/emisiune-speciala.mp3">asculta</a>
</body></html>`
	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/emisiunea-zilei/azi-id3.html")
	if a.AudioURL != "https://www.rri.ro/files/emisiune-speciala.mp3" {
		t.Fatalf("AudioURL = %q", a.AudioURL)
	}
}

func TestImageCapAndOrder(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<html><body><article>")
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		b.WriteString(`<img src="/img/` + name + `.jpg">`)
	}
	b.WriteString("</article></body></html>")

	e := newTestExtractor(t)
	a := e.Extract(parseHTML(t, b.String()), "https://www.rri.ro/ro_ar/reportaje/foto-id9.html")
	if len(a.ImageURLs) != 5 {
		t.Fatalf("expected cap at 5 images, got %d", len(a.ImageURLs))
	}
	if a.ImageURLs[0] != "https://www.rri.ro/img/a.jpg" || a.ImageURLs[4] != "https://www.rri.ro/img/e.jpg" {
		t.Fatalf("document order not preserved: %v", a.ImageURLs)
	}
}

func TestCustomStrategiesTakePriority(t *testing.T) {
	t.Parallel()

	sec, err := section.Get("ro_ar")
	if err != nil {
		t.Fatalf("section.Get: %v", err)
	}
	e, err := New(Config{
		Section: sec,
		Clock:   fixedClock{at: testTime},
		Strategies: []ContentStrategy{
			{Name: "custom", Selector: ".custom-body"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	html := `<html><body>
<div class="custom-body">Castigator.</div>
<div class="article-content">Pierzator.</div>
</body></html>`
	a := e.Extract(parseHTML(t, html), "https://www.rri.ro/ro_ar/actualitati/x-id1.html")
	if a.Content != "Castigator." {
		t.Fatalf("Content = %q, want custom strategy output", a.Content)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	sec, err := section.Get("ro_ar")
	if err != nil {
		t.Fatalf("section.Get: %v", err)
	}
	if _, err := New(Config{Clock: fixedClock{}}); err == nil {
		t.Fatal("expected error without section")
	}
	if _, err := New(Config{Section: sec}); err == nil {
		t.Fatal("expected error without clock")
	}
}
