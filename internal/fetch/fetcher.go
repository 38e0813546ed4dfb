// Package fetch implements the polite document fetcher on top of colly.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

// Defaults mirror the reference crawl profile: one request per second, a
// 30 second ceiling per request, and a browser-like identity.
const (
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	DefaultDelay       = time.Second
	DefaultTimeout     = 30 * time.Second
	DefaultParallelism = 2
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Delay       time.Duration
	Timeout     time.Duration
	Parallelism int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	return c
}

// Result is a successfully fetched and parsed page.
type Result struct {
	URL        string
	StatusCode int
	Doc        *goquery.Document
}

// Fetcher fetches pages with a fixed inter-request delay and bounded
// timeout. It performs no retries; any transport or protocol error is
// returned to the caller to record.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. The politeness delay lives on the shared collector
// backend, so clones issued for parallel article fetches still respect it.
func New(cfg Config) (*Fetcher, error) {
	cfg = cfg.withDefaults()

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(newHTTPTransport())

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       cfg.Delay,
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("apply rate limit: %w", err)
	}

	return &Fetcher{cfg: cfg, baseCollector: c}, nil
}

// Fetch executes a single HTTP GET and parses the response into a goquery
// document, decoding legacy charsets to UTF-8 first.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var (
		result   *Result
		hookErr  error
		parseErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &result, &hookErr, &parseErr)

	if err := f.runCollector(ctx, collector, rawURL); err != nil {
		return nil, err
	}
	if hookErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, hookErr)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, parseErr)
	}
	if result == nil {
		return nil, fmt.Errorf("fetch %s: no response received", rawURL)
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result **Result, hookErr, parseErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		doc, err := parseDocument(r.Body, r.Headers.Get("Content-Type"))
		if err != nil {
			*parseErr = err
			return
		}
		*result = &Result{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Doc:        doc,
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*hookErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", rawURL, err)
		}
		return nil
	}
}

func parseDocument(body []byte, contentType string) (*goquery.Document, error) {
	utf8Reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
