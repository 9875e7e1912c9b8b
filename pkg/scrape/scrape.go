package scrape

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"
)

// Fetcher turns a course page url into a course.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Course, error)
}

// FetchError is returned when a page could not be downloaded. StatusCode is
// zero for transport failures.
type FetchError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: status %d: %v", e.Url, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Url, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type CollectorOptions struct {
	UserAgent string
	CacheDir  string        // empty disables the web cache
	Timeout   time.Duration // per request, zero keeps colly's default
}

func NewCollector(opts CollectorOptions) *colly.Collector {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = UserAgent
	}
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.AllowURLRevisit = true
	c.CacheDir = opts.CacheDir
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	return c
}

// PageFetcher downloads course pages with a colly collector and parses them.
type PageFetcher struct {
	c *colly.Collector
}

func NewPageFetcher(c *colly.Collector) *PageFetcher {
	return &PageFetcher{c: c}
}

func (f *PageFetcher) Fetch(ctx context.Context, url string) (Course, error) {
	var body []byte
	var status int
	cached := url

	c := f.c.Clone() // same collector but without old callbacks
	c.Context = ctx
	c.OnResponse(func(res *colly.Response) {
		body = res.Body
	})
	c.OnError(func(res *colly.Response, _ error) {
		if res != nil {
			status = res.StatusCode
			if res.Request != nil && res.Request.URL != nil {
				cached = res.Request.URL.String()
			}
		}
	})

	if err := c.Visit(url); err != nil {
		evictCached(c.CacheDir, cached)
		return Course{}, &FetchError{Url: url, StatusCode: status, Err: err}
	}
	return ParsePage(string(body), url)
}

// evictCached removes the web cache entry of a failed request; colly stores
// every response below 500. The path follows colly's layout: the sha1 of the
// url under a directory named by its first two hex digits.
func evictCached(cacheDir, url string) {
	if cacheDir == "" {
		return
	}
	sum := sha1.Sum([]byte(url))
	hash := hex.EncodeToString(sum[:])
	_ = os.Remove(filepath.Join(cacheDir, hash[:2], hash))
}
