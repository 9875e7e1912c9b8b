// Package ingest runs the fetch, embed and persist loop followed by the
// prerequisite inference pass.
package ingest

import (
	"context"
	"fmt"

	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/embed"
	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/openswoop/coursegraph/pkg/prereq"
	"github.com/openswoop/coursegraph/pkg/scrape"
)

const progressInterval = 10

type Pipeline struct {
	DB          database.Database
	Embedder    embed.Embedder
	Fetcher     scrape.Fetcher
	Log         *logger.Logger
	Concurrency int
}

type Options struct {
	// Regenerate wipes the collection before fetching.
	Regenerate bool
}

type Summary struct {
	Candidates  int
	Fetched     int
	Saved       int
	FetchErrors int
	EmbedErrors int
	SaveErrors  int
	Deleted     int
	Relations   int
}

// Run ingests every url whose course is not stored yet, then recomputes the
// prerequisite graph over the whole collection. Per url and per course
// failures are logged and counted; only store level failures are returned.
func (p *Pipeline) Run(ctx context.Context, urls []string, opts Options) (Summary, error) {
	summary := Summary{Candidates: len(urls)}

	if opts.Regenerate {
		deleted, err := p.DB.DeleteAll(ctx)
		summary.Deleted = deleted
		if err != nil {
			return summary, fmt.Errorf("failed to reset collection: %w", err)
		}
		p.Log.Info("Deleted existing courses", "count", deleted)
	}

	existing, err := p.DB.Keys(ctx)
	if err != nil {
		return summary, err
	}
	pending := scrape.FilterNew(urls, existing, p.Log)
	p.Log.Info("Fetching courses", "candidates", len(urls), "stored", len(existing), "new", len(pending))

	for res := range scrape.Schedule(ctx, p.Fetcher, pending, p.Concurrency) {
		if res.Err != nil {
			summary.FetchErrors++
			p.Log.Warn("Skipping course page", "url", res.Url, "error", res.Err)
			continue
		}
		summary.Fetched++
		if p.save(ctx, res.Course, &summary) && summary.Saved%progressInterval == 0 {
			p.Log.Info("Progress", "saved", summary.Saved, "of", len(pending))
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	summary.Relations, err = prereq.Run(ctx, p.DB, p.Log)
	if err != nil {
		return summary, fmt.Errorf("failed to update prerequisites: %w", err)
	}
	return summary, nil
}

// save embeds and upserts one course and reports whether it was stored.
func (p *Pipeline) save(ctx context.Context, course scrape.Course, summary *Summary) bool {
	log := p.Log.With("key", course.Key)

	if text := course.EmbeddingText(); text != "" && p.Embedder != nil {
		vector, err := p.Embedder.Embed(ctx, text)
		if err != nil {
			summary.EmbedErrors++
			log.Warn("Saving course without embedding", "error", err)
		} else {
			course.Embedding = vector
		}
	}

	if err := p.DB.SaveCourse(ctx, course); err != nil {
		summary.SaveErrors++
		log.Error("Failed to save course", "error", err)
		return false
	}
	summary.Saved++
	return true
}
