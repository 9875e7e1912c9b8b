package database

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestMergeQuery(t *testing.T) {
	schema, err := bigquery.InferSchema(bigqueryCourse{})
	require.NoError(t, err)

	q := mergeQuery("coursegraph", "courses", "courses_1700000000", schema)
	assert.Contains(t, q, "MERGE coursegraph.courses t")
	assert.Contains(t, q, "USING coursegraph.courses_1700000000 s")
	assert.Contains(t, q, "ON t.key = s.key")
	assert.Contains(t, q, "title = s.title, location = s.location")
	assert.Contains(t, q, "synced_at = s.synced_at")
	assert.NotContains(t, q, "key = s.key,")
	assert.Contains(t, q, "INSERT ROW")
}

func TestToBigqueryCourse(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	row := toBigqueryCourse(scrape.Course{
		Key:       "1MA017",
		Title:     scrape.String("Calculus"),
		Embedding: []float64{1},
	}, at)

	assert.Equal(t, bigquery.NullString{StringVal: "Calculus", Valid: true}, row.Title)
	assert.False(t, row.Location.Valid)
	assert.Equal(t, []string{}, row.Prerequisites)
	assert.True(t, row.Embedded)
	assert.Equal(t, at, row.SyncedAt)
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, isDuplicateError(&googleapi.Error{Code: 409}))
	assert.True(t, isDuplicateError(fmt.Errorf("create: %w", &googleapi.Error{Code: 409})))
	assert.False(t, isDuplicateError(&googleapi.Error{Code: 404}))
	assert.False(t, isDuplicateError(nil))
}
