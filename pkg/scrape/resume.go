package scrape

import "github.com/openswoop/coursegraph/pkg/logger"

// FilterNew returns the urls whose course key is not in existing, in their
// original order. Urls without a key are dropped and a url whose key was
// already seen earlier in the list is only kept once.
func FilterNew(urls []string, existing map[string]bool, log *logger.Logger) []string {
	seen := make(map[string]bool)
	var fresh []string
	for _, url := range urls {
		key, err := KeyFromURL(url)
		if err != nil {
			log.Warn("skipping url without course key", "url", url, "error", err)
			continue
		}
		if existing[key] || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, url)
	}
	return fresh
}
