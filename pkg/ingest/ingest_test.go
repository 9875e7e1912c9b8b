package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeFetcher struct {
	pages map[string]scrape.Course
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (scrape.Course, error) {
	f.calls.Add(1)
	c, ok := f.pages[url]
	if !ok {
		return scrape.Course{}, &scrape.FetchError{Url: url, StatusCode: 404}
	}
	return c, nil
}

type fakeEmbedder struct {
	fail map[string]bool
}

func (e fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.fail[text] {
		return nil, errors.New("quota exceeded")
	}
	return []float64{0.6, 0.8}, nil
}

func courseUrl(key string) string {
	return scrape.SiteUrl + "/en/study/course?query=" + key
}

func newPipeline(t *testing.T, fetcher *fakeFetcher, embedder fakeEmbedder) (*Pipeline, *database.Sqlite) {
	t.Helper()
	db, err := database.NewSqlite(filepath.Join(t.TempDir(), "courses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Pipeline{DB: db, Embedder: embedder, Fetcher: fetcher, Log: logger.Nop(), Concurrency: 3}, db
}

func stored(t *testing.T, db database.Database) map[string]scrape.Course {
	t.Helper()
	courses := map[string]scrape.Course{}
	require.NoError(t, db.EachCourse(context.Background(), func(c scrape.Course) error {
		courses[c.Key] = c
		return nil
	}))
	return courses
}

var catalog = map[string]scrape.Course{
	courseUrl("X"): {
		Key:               "X",
		Title:             scrape.String("Topology"),
		EntryRequirements: scrape.String("Requires 1MA017 and completion of Linear Algebra I"),
	},
	courseUrl("1MA017"): {Key: "1MA017", Title: scrape.String("Calculus")},
	courseUrl("ALGI"):   {Key: "ALGI", Title: scrape.String("Linear Algebra I")},
}

func TestRunBuildsGraph(t *testing.T) {
	fetcher := &fakeFetcher{pages: catalog}
	p, db := newPipeline(t, fetcher, fakeEmbedder{fail: map[string]bool{"Calculus": true}})

	urls := []string{courseUrl("X"), courseUrl("1MA017"), courseUrl("ALGI"), courseUrl("GONE")}
	summary, err := p.Run(context.Background(), urls, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Saved)
	assert.Equal(t, 1, summary.FetchErrors)
	assert.Equal(t, 1, summary.EmbedErrors)
	assert.Equal(t, 3, summary.Relations)

	courses := stored(t, db)
	assert.Equal(t, []string{"1MA017", "ALGI"}, courses["X"].Prerequisites)
	assert.Equal(t, []string{"X"}, courses["1MA017"].PrerequisiteOf)
	assert.Equal(t, []string{"X"}, courses["ALGI"].PrerequisiteOf)

	// The failed embedding still leaves a stored course
	assert.Nil(t, courses["1MA017"].Embedding)
	assert.Equal(t, []float64{0.6, 0.8}, courses["ALGI"].Embedding)
}

func TestRunResumes(t *testing.T) {
	fetcher := &fakeFetcher{pages: catalog}
	p, db := newPipeline(t, fetcher, fakeEmbedder{})
	urls := []string{courseUrl("X"), courseUrl("1MA017"), courseUrl("ALGI")}

	_, err := p.Run(context.Background(), urls, Options{})
	require.NoError(t, err)
	before := stored(t, db)

	fetcher.calls.Store(0)
	summary, err := p.Run(context.Background(), urls, Options{})
	require.NoError(t, err)
	assert.Zero(t, fetcher.calls.Load())
	assert.Zero(t, summary.Fetched)
	assert.Equal(t, before, stored(t, db))
}

func TestRunRegenerate(t *testing.T) {
	fetcher := &fakeFetcher{pages: catalog}
	p, _ := newPipeline(t, fetcher, fakeEmbedder{})
	urls := []string{courseUrl("X"), courseUrl("1MA017"), courseUrl("ALGI")}

	_, err := p.Run(context.Background(), urls, Options{})
	require.NoError(t, err)

	fetcher.calls.Store(0)
	summary, err := p.Run(context.Background(), urls, Options{Regenerate: true})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Deleted)
	assert.Equal(t, int32(3), fetcher.calls.Load())
	assert.Equal(t, 3, summary.Saved)
}

func TestRunCancelled(t *testing.T) {
	fetcher := &fakeFetcher{pages: catalog}
	p, _ := newPipeline(t, fetcher, fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, []string{courseUrl("X")}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSave struct {
	*database.Sqlite
	key string
}

func (f failingSave) SaveCourse(ctx context.Context, c scrape.Course) error {
	if c.Key == f.key {
		return errors.New("write rejected")
	}
	return f.Sqlite.SaveCourse(ctx, c)
}

func TestRunLogsProgressBySavedCourses(t *testing.T) {
	pages := map[string]scrape.Course{}
	var urls []string
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("C%02d", i)
		pages[courseUrl(key)] = scrape.Course{Key: key}
		urls = append(urls, courseUrl(key))
	}
	p, db := newPipeline(t, &fakeFetcher{pages: pages}, fakeEmbedder{})
	p.DB = failingSave{Sqlite: db, key: "C03"}
	core, logs := observer.New(zap.InfoLevel)
	p.Log = &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	summary, err := p.Run(context.Background(), urls, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Fetched)
	assert.Equal(t, 9, summary.Saved)
	assert.Equal(t, 1, summary.SaveErrors)
	assert.Zero(t, logs.FilterMessage("Progress").Len())
}
