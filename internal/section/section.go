// Package section defines the crawlable tracks of the source site and the
// URL classification rules shared by the traversal engine and the matcher.
package section

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	articleURLPattern = regexp.MustCompile(`-id\d+\.html$`)
	articleIDPattern  = regexp.MustCompile(`-id(\d+)\.html$`)
)

// Section describes one independently crawled language track: a path prefix
// scoping link discovery, a pattern deriving category labels from article
// URLs, and the fixed list of category entry points.
type Section struct {
	Name          string
	Description   string
	PathPrefix    string
	CategoryPaths []string
	DefaultOutput string

	categoryPattern *regexp.Regexp
}

// New builds a Section from its raw configuration. The category pattern must
// contain exactly one capture group, which yields the category label.
func New(name, description, prefix, pattern string, categories []string, defaultOutput string) (*Section, error) {
	if name == "" {
		return nil, fmt.Errorf("section name is required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("section %q: path prefix is required", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("section %q: compile category pattern: %w", name, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("section %q: category pattern needs exactly one capture group", name)
	}
	return &Section{
		Name:            name,
		Description:     description,
		PathPrefix:      prefix,
		CategoryPaths:   append([]string(nil), categories...),
		DefaultOutput:   defaultOutput,
		categoryPattern: re,
	}, nil
}

func mustSection(name, description, prefix, pattern string, categories []string, defaultOutput string) *Section {
	s, err := New(name, description, prefix, pattern, categories, defaultOutput)
	if err != nil {
		panic(err)
	}
	return s
}

var registry = map[string]*Section{
	"ro_ar": mustSection(
		"ro_ar",
		"Aromanian service",
		"/ro_ar/",
		`/ro_ar/([^/]+)`,
		[]string{
			"/ro_ar/actualitati",
			"/ro_ar/actualitati/habarli",
			"/ro_ar/actualitati/eveniment-top-ro_ar",
			"/ro_ar/actualitati/focus",
			"/ro_ar/teatru-armanescu",
			"/ro_ar/teatru-armanescu/colinde-armanesti",
			"/ro_ar/teatru-armanescu/umor-armanesc",
			"/ro_ar/rubriti-di-cafi-stamana",
			"/ro_ar/rubriti-di-cafi-stamana/pro-memoria-ro_ar",
			"/ro_ar/rubriti-di-cafi-stamana/carnet-cultural",
			"/ro_ar/rubriti-di-cafi-stamana/radio-priimnare",
			"/ro_ar/cultura-si-adet-armanesti",
			"/ro_ar/cultura-si-adet-armanesti/scriitori-armani",
			"/ro_ar/cultura-si-adet-armanesti/pirmithi",
			"/ro_ar/cultura-si-adet-armanesti/portreti",
			"/ro_ar/cultura-si-adet-armanesti/oaspit-la-microfonlu-rri",
			"/ro_ar/cultura-si-adet-armanesti/grai",
			"/ro_ar/cultura-si-adet-armanesti/agenda-armaneasca",
			"/ro_ar/informatii-ti-noi",
			"/ro_ar/informatii-ti-noi/istoric-rri",
			"/ro_ar/informatii-ti-noi/sectia-aromana",
			"/ro_ar/informatii-ti-noi/premii",
			"/ro_ar/ascultat-la-caftari",
		},
		"data/rri_aromanian",
	),
	"actualitate": mustSection(
		"actualitate",
		"Romanian news service",
		"/actualitate/",
		`/actualitate/([^/]+)`,
		[]string{
			"/actualitate",
			"/actualitate/stiri",
			"/actualitate/alte-stiri",
			"/actualitate/jurnal-romanesc",
			"/actualitate/in-actualitate",
			"/actualitate/alegeri-2024",
			"/actualitate/alerte-si-sfaturi-de-calatorie",
			"/actualitate/anti-fake-news",
			"/actualitate/sport-la-rri",
			"/actualitate/eveniment-top",
			"/actualitate/focus",
		},
		"data/rri_romanian",
	),
}

// Get returns the named section from the built-in registry.
func Get(name string) (*Section, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown section %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// All returns every registered section, ordered by name.
func All() []*Section {
	out := make([]*Section, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered section names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether a URL falls inside this section's scope.
func (s *Section) Contains(rawURL string) bool {
	return strings.Contains(rawURL, s.PathPrefix)
}

// CategoryOf derives the category label from an article URL by applying the
// section pattern to the URL path. URLs that do not match yield "unknown".
func (s *Section) CategoryOf(rawURL string) string {
	target := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		target = u.Path
	}
	m := s.categoryPattern.FindStringSubmatch(target)
	if len(m) < 2 || m[1] == "" {
		return "unknown"
	}
	return m[1]
}

// ArticleID extracts the numeric identifier from an article URL. When the
// URL carries no "-id<digits>.html" suffix the last URL segment, with its
// extension removed, is used instead.
func ArticleID(rawURL string) string {
	if m := articleIDPattern.FindStringSubmatch(rawURL); len(m) == 2 {
		return m[1]
	}
	segment := rawURL
	if i := strings.LastIndex(rawURL, "/"); i >= 0 {
		segment = rawURL[i+1:]
	}
	return strings.ReplaceAll(segment, ".html", "")
}

// RecordFilename derives the deterministic storage key for an article URL:
// "<category>_<id>.json".
func (s *Section) RecordFilename(rawURL string) string {
	return fmt.Sprintf("%s_%s.json", s.CategoryOf(rawURL), ArticleID(rawURL))
}

// IsArticleURL reports whether a URL points at an article page.
func IsArticleURL(rawURL string) bool {
	return articleURLPattern.MatchString(rawURL)
}

// IsPaginationLink reports whether a raw href looks like a pagination link.
// The check runs on the href as found in the document, before resolution.
func IsPaginationLink(href string) bool {
	return strings.Contains(href, "page=") || strings.Contains(href, "/page/")
}

// MatchCategory resolves an operator-supplied category argument against the
// section's entry points. Both the full path and its last segment are
// accepted.
func (s *Section) MatchCategory(arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("category is required")
	}
	for _, cat := range s.CategoryPaths {
		if cat == arg || path.Base(cat) == arg {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unknown category %q for section %q", arg, s.Name)
}
