package database

import (
	"context"
	"io"

	"github.com/openswoop/coursegraph/pkg/scrape"
)

// BatchSize is the largest number of writes committed together.
const BatchSize = 500

// Relations is the prerequisite state of one course.
type Relations struct {
	Key            string
	Prerequisites  []string
	PrerequisiteOf []string
}

// Database is the persisted course collection.
type Database interface {
	io.Closer

	// SaveCourse upserts the scraped fields of a course. Relation fields are
	// left as they are and the embedding is only written when present.
	SaveCourse(ctx context.Context, c scrape.Course) error

	// EachCourse streams every stored course.
	EachCourse(ctx context.Context, fn func(scrape.Course) error) error

	// Keys returns the key of every stored course without loading fields.
	Keys(ctx context.Context) (map[string]bool, error)

	// DeleteAll removes every course, committing in chunks of BatchSize, and
	// returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	// SaveRelations writes one batch of relation updates.
	SaveRelations(ctx context.Context, batch []Relations) error

	// Nearest returns up to limit courses ranked by cosine similarity of
	// their embedding to vector.
	Nearest(ctx context.Context, vector []float64, limit int) ([]scrape.Course, error)
}
