package scrape

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	fail     map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (Course, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(f.delay)
	if f.fail[url] {
		return Course{}, errors.New("boom")
	}
	return Course{Key: url}, nil
}

func urlList(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("u%02d", i)
	}
	return urls
}

func TestScheduleRespectsConcurrencyCeiling(t *testing.T) {
	f := &fakeFetcher{delay: 5 * time.Millisecond}
	urls := urlList(40)

	var got []string
	for res := range Schedule(context.Background(), f, urls, 4) {
		assert.NoError(t, res.Err)
		got = append(got, res.Course.Key)
	}

	sort.Strings(got)
	assert.Equal(t, urls, got)
	assert.LessOrEqual(t, f.peak.Load(), int32(4))
	assert.Greater(t, f.peak.Load(), int32(1))
}

func TestScheduleIsolatesFailures(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"u01": true, "u03": true}}

	failed := map[string]bool{}
	ok := 0
	for res := range Schedule(context.Background(), f, urlList(5), 2) {
		if res.Err != nil {
			failed[res.Url] = true
			continue
		}
		ok++
	}
	assert.Equal(t, map[string]bool{"u01": true, "u03": true}, failed)
	assert.Equal(t, 3, ok)
}

func TestScheduleDefaultsAndEmptyInput(t *testing.T) {
	f := &fakeFetcher{}
	count := 0
	for range Schedule(context.Background(), f, nil, 0) {
		count++
	}
	assert.Zero(t, count)

	for range Schedule(context.Background(), f, urlList(3), 0) {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestScheduleStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{delay: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	for range Schedule(ctx, f, urlList(100), 2) {
		count++
		if count == 2 {
			cancel()
		}
	}
	cancel()
	assert.Less(t, count, 100)
}
