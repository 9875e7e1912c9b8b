package scrape

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"
)

const (
	SiteUrl   = "https://www.uu.se"
	UserAgent = "Mozilla/5.0 (compatible; Scraper/1.0)"
)

var ErrNoKey = errors.New("no course key in url")

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// KeyFromURL takes a course page url like ".../course?query=1MA017" and
// returns its course key (e.g: 1MA017)
func KeyFromURL(rawUrl string) (string, error) {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	key := u.Query().Get("query")
	if key == "" {
		return "", ErrNoKey
	}
	return key, nil
}

// cleanText strips tags, decodes entities and collapses whitespace. It returns
// nil when nothing is left. A "<" without a closing ">" is kept as text.
func cleanText(raw string) *string {
	if raw == "" {
		return nil
	}
	text := tagPattern.ReplaceAllString(raw, "")
	return String(collapse(html.UnescapeString(text)))
}

func cleanField(raw *string) *string {
	if raw == nil {
		return nil
	}
	return cleanText(*raw)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimSpace(s string) string {
	return strings.TrimSpace(s)
}
