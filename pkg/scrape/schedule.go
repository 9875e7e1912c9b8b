package scrape

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 10

// Result is the outcome of fetching one url. Exactly one of Course and Err
// is meaningful.
type Result struct {
	Url    string
	Course Course
	Err    error
}

// Schedule fetches urls with at most workers requests in flight and delivers
// results in completion order. A failed url never stops the others. The
// channel is closed once every url has been handled or ctx is done.
func Schedule(ctx context.Context, f Fetcher, urls []string, workers int) <-chan Result {
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	jobs := make(chan string)
	results := make(chan Result)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for url := range jobs {
				course, err := f.Fetch(ctx, url)
				select {
				case results <- Result{Url: url, Course: course, Err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, url := range urls {
			select {
			case jobs <- url:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}
