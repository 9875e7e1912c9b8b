package scrape

import (
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"github.com/openswoop/coursegraph/pkg/logger"
)

const SitemapIndexUrl = "https://www.uu.se/download/18.7f7c20f41984f683c7d7d9/1771216449846/index.xml"

// GetCourseUrls walks a sitemap index and returns the course pages listed in
// its dynamic page sitemaps, in document order. A positive limit caps the
// number of urls returned.
func GetCourseUrls(c *colly.Collector, indexUrl string, limit int, log *logger.Logger) ([]string, error) {
	var urls []string

	// Sitemaps are always read live so new course pages show up on a rerun
	c = c.Clone()
	c.CacheDir = ""
	c.OnXML("//sitemapindex/sitemap/loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		if !strings.Contains(loc, "pages-dynamic") {
			return
		}
		if limit > 0 && len(urls) >= limit {
			return
		}
		log.Info("processing child sitemap", "url", loc)
		if err := e.Request.Visit(loc); err != nil {
			log.Warn("failed to process child sitemap", "url", loc, "error", err)
		}
	})
	c.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		if strings.Contains(loc, "/course?query=") {
			urls = append(urls, loc)
		}
	})

	log.Info("fetching sitemap index", "url", indexUrl)
	if err := c.Visit(indexUrl); err != nil {
		return nil, fmt.Errorf("failed to fetch sitemap index: %w", err)
	}

	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}
