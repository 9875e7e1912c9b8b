package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	DefaultDataset = "coursegraph"

	// Arrival tables are kept for a day so an insertion can be audited.
	arrivalsExpiry = 24 * time.Hour
)

// bigqueryCourse is the warehouse row of a course. The embedding is left out;
// vector search runs against the document store.
type bigqueryCourse struct {
	Key                   string              `bigquery:"key"`
	Title                 bigquery.NullString `bigquery:"title"`
	Location              bigquery.NullString `bigquery:"location"`
	PaceOfStudy           bigquery.NullString `bigquery:"pace_of_study"`
	TeachingForm          bigquery.NullString `bigquery:"teaching_form"`
	InstructionalTime     bigquery.NullString `bigquery:"instructional_time"`
	StudyPeriod           bigquery.NullString `bigquery:"study_period"`
	LanguageOfInstruction bigquery.NullString `bigquery:"language_of_instruction"`
	EntryRequirements     bigquery.NullString `bigquery:"entry_requirements"`
	Selection             bigquery.NullString `bigquery:"selection"`
	Fees                  bigquery.NullString `bigquery:"fees"`
	ApplicationDeadline   bigquery.NullString `bigquery:"application_deadline"`
	ApplicationCode       bigquery.NullString `bigquery:"application_code"`
	SyllabusLink          bigquery.NullString `bigquery:"syllabus_link"`
	ReadingListLink       bigquery.NullString `bigquery:"reading_list_link"`
	AboutBlurb            bigquery.NullString `bigquery:"about_blurb"`
	Prerequisites         []string            `bigquery:"prerequisites"`
	PrerequisiteOf        []string            `bigquery:"prerequisite_of"`
	Embedded              bool                `bigquery:"embedded"`
	SyncedAt              time.Time           `bigquery:"synced_at"`
}

func bqString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func toBigqueryCourse(c scrape.Course, syncedAt time.Time) bigqueryCourse {
	return bigqueryCourse{
		Key:                   c.Key,
		Title:                 bqString(c.Title),
		Location:              bqString(c.Location),
		PaceOfStudy:           bqString(c.PaceOfStudy),
		TeachingForm:          bqString(c.TeachingForm),
		InstructionalTime:     bqString(c.InstructionalTime),
		StudyPeriod:           bqString(c.StudyPeriod),
		LanguageOfInstruction: bqString(c.LanguageOfInstruction),
		EntryRequirements:     bqString(c.EntryRequirements),
		Selection:             bqString(c.Selection),
		Fees:                  bqString(c.Fees),
		ApplicationDeadline:   bqString(c.ApplicationDeadline),
		ApplicationCode:       bqString(c.ApplicationCode),
		SyllabusLink:          bqString(c.SyllabusLink),
		ReadingListLink:       bqString(c.ReadingListLink),
		AboutBlurb:            bqString(c.AboutBlurb),
		Prerequisites:         nonNil(c.Prerequisites),
		PrerequisiteOf:        nonNil(c.PrerequisiteOf),
		Embedded:              len(c.Embedding) > 0,
		SyncedAt:              syncedAt,
	}
}

// BigQuery mirrors the course collection into a warehouse table.
type BigQuery struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
}

func NewBigQuery(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*BigQuery, error) {
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	if datasetID == "" {
		datasetID = DefaultDataset
	}

	dataset := client.Dataset(datasetID)
	if err := dataset.Create(ctx, nil); err != nil && !isDuplicateError(err) {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset}, nil
}

// SyncCourses upserts courses into the courses table on key. Rows are first
// streamed into a fresh arrivals table and then merged in one query.
func (bq *BigQuery) SyncCourses(ctx context.Context, courses []scrape.Course) error {
	schema, err := bigquery.InferSchema(bigqueryCourse{})
	if err != nil {
		return fmt.Errorf("failed to infer schema: %w", err)
	}

	table := bq.dataset.Table(coursesTable)
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil && !isDuplicateError(err) {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if len(courses) == 0 {
		return nil
	}

	// Uses a different table each time so the merge never reads a streaming
	// buffer left by an earlier run
	now := time.Now().UTC()
	arrivalsName := coursesTable + "_" + strconv.FormatInt(now.Unix(), 10)
	arrivals := bq.dataset.Table(arrivalsName)
	meta := &bigquery.TableMetadata{Schema: schema, ExpirationTime: now.Add(arrivalsExpiry)}
	if err := arrivals.Create(ctx, meta); err != nil && !isDuplicateError(err) {
		return fmt.Errorf("failed to create arrivals table: %w", err)
	}

	rows := make([]bigqueryCourse, len(courses))
	for i, c := range courses {
		rows[i] = toBigqueryCourse(c, now)
	}
	inserter := arrivals.Inserter()
	for start := 0; start < len(rows); start += BatchSize {
		if err := inserter.Put(ctx, rows[start:min(start+BatchSize, len(rows))]); err != nil {
			return fmt.Errorf("failed to insert rows: %w", err)
		}
	}

	q := bq.client.Query(mergeQuery(bq.dataset.DatasetID, coursesTable, arrivalsName, schema))
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute merge: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for merge: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}

func mergeQuery(dataset, target, source string, schema bigquery.Schema) string {
	var sets []string
	for _, field := range schema {
		if field.Name != "key" {
			sets = append(sets, fmt.Sprintf("%s = s.%s", field.Name, field.Name))
		}
	}
	return fmt.Sprintf(`
		MERGE %s.%s t
		USING %s.%s s
		ON t.key = s.key
		WHEN MATCHED THEN
		  UPDATE SET %s
		WHEN NOT MATCHED THEN
		  INSERT ROW`, dataset, target, dataset, source, strings.Join(sets, ", "))
}

func (bq *BigQuery) Close() error {
	return bq.client.Close()
}

func isDuplicateError(err error) bool {
	var e *googleapi.Error
	if errors.As(err, &e) {
		return e.Code == http.StatusConflict
	}
	return false
}
