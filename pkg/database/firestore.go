package database

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/openswoop/coursegraph/pkg/scrape"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	DefaultCollection = "courses"
	embeddingField    = "embedding"
)

// firestoreCourse is the document shape of a course; the key is the
// document id.
type firestoreCourse struct {
	Title                 *string            `firestore:"title"`
	Location              *string            `firestore:"location"`
	PaceOfStudy           *string            `firestore:"pace_of_study"`
	TeachingForm          *string            `firestore:"teaching_form"`
	InstructionalTime     *string            `firestore:"instructional_time"`
	StudyPeriod           *string            `firestore:"study_period"`
	LanguageOfInstruction *string            `firestore:"language_of_instruction"`
	EntryRequirements     *string            `firestore:"entry_requirements"`
	Selection             *string            `firestore:"selection"`
	Fees                  *string            `firestore:"fees"`
	ApplicationDeadline   *string            `firestore:"application_deadline"`
	ApplicationCode       *string            `firestore:"application_code"`
	SyllabusLink          *string            `firestore:"syllabus_link"`
	ReadingListLink       *string            `firestore:"reading_list_link"`
	AboutBlurb            *string            `firestore:"about_blurb"`
	Prerequisites         []string           `firestore:"prerequisites"`
	PrerequisiteOf        []string           `firestore:"prerequisite_of"`
	Embedding             firestore.Vector64 `firestore:"embedding,omitempty"`
}

func (d firestoreCourse) course(key string) scrape.Course {
	return scrape.Course{
		Key:                   key,
		Title:                 d.Title,
		Location:              d.Location,
		PaceOfStudy:           d.PaceOfStudy,
		TeachingForm:          d.TeachingForm,
		InstructionalTime:     d.InstructionalTime,
		StudyPeriod:           d.StudyPeriod,
		LanguageOfInstruction: d.LanguageOfInstruction,
		EntryRequirements:     d.EntryRequirements,
		Selection:             d.Selection,
		Fees:                  d.Fees,
		ApplicationDeadline:   d.ApplicationDeadline,
		ApplicationCode:       d.ApplicationCode,
		SyllabusLink:          d.SyllabusLink,
		ReadingListLink:       d.ReadingListLink,
		AboutBlurb:            d.AboutBlurb,
		Prerequisites:         d.Prerequisites,
		PrerequisiteOf:        d.PrerequisiteOf,
		Embedding:             []float64(d.Embedding),
	}
}

// scrapedFields is the merge payload of a course. Absent fields are written
// as null so a rescrape clears values the page no longer carries.
func scrapedFields(c scrape.Course) map[string]interface{} {
	fields := map[string]interface{}{
		"title":                   c.Title,
		"location":                c.Location,
		"pace_of_study":           c.PaceOfStudy,
		"teaching_form":           c.TeachingForm,
		"instructional_time":      c.InstructionalTime,
		"study_period":            c.StudyPeriod,
		"language_of_instruction": c.LanguageOfInstruction,
		"entry_requirements":      c.EntryRequirements,
		"selection":               c.Selection,
		"fees":                    c.Fees,
		"application_deadline":    c.ApplicationDeadline,
		"application_code":        c.ApplicationCode,
		"syllabus_link":           c.SyllabusLink,
		"reading_list_link":       c.ReadingListLink,
		"about_blurb":             c.AboutBlurb,
	}
	if c.Embedding != nil {
		fields[embeddingField] = firestore.Vector64(c.Embedding)
	}
	return fields
}

type FirestoreOptions struct {
	ProjectID       string // empty detects the project from the credentials
	DatabaseID      string // empty selects the default database
	CredentialsFile string
	Collection      string
}

type Firestore struct {
	client  *firestore.Client
	courses *firestore.CollectionRef
}

func NewFirestore(ctx context.Context, opts FirestoreOptions) (*Firestore, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	projectID := opts.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	databaseID := opts.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	collection := opts.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return &Firestore{client: client, courses: client.Collection(collection)}, nil
}

func (f *Firestore) SaveCourse(ctx context.Context, c scrape.Course) error {
	if _, err := f.courses.Doc(c.Key).Set(ctx, scrapedFields(c), firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to save course %s: %w", c.Key, err)
	}
	return nil
}

func (f *Firestore) EachCourse(ctx context.Context, fn func(scrape.Course) error) error {
	iter := f.courses.Documents(ctx)
	defer iter.Stop()
	return eachCourse(iter, fn)
}

func eachCourse(iter *firestore.DocumentIterator, fn func(scrape.Course) error) error {
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read courses: %w", err)
		}
		var doc firestoreCourse
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to decode course %s: %w", snap.Ref.ID, err)
		}
		if err := fn(doc.course(snap.Ref.ID)); err != nil {
			return err
		}
	}
}

func (f *Firestore) Keys(ctx context.Context) (map[string]bool, error) {
	refs, err := f.refs(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(refs))
	for _, ref := range refs {
		keys[ref.ID] = true
	}
	return keys, nil
}

// refs lists every course document with an empty projection.
func (f *Firestore) refs(ctx context.Context) ([]*firestore.DocumentRef, error) {
	iter := f.courses.Select().Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return refs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read course keys: %w", err)
		}
		refs = append(refs, snap.Ref)
	}
}

func (f *Firestore) DeleteAll(ctx context.Context) (int, error) {
	refs, err := f.refs(ctx)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for start := 0; start < len(refs); start += BatchSize {
		chunk := refs[start:min(start+BatchSize, len(refs))]
		batch := f.client.Batch()
		for _, ref := range chunk {
			batch.Delete(ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete courses: %w", err)
		}
		deleted += len(chunk)
	}
	return deleted, nil
}

func (f *Firestore) SaveRelations(ctx context.Context, relations []Relations) error {
	if len(relations) == 0 {
		return nil
	}
	batch := f.client.Batch()
	for _, r := range relations {
		batch.Update(f.courses.Doc(r.Key), []firestore.Update{
			{Path: "prerequisites", Value: nonNil(r.Prerequisites)},
			{Path: "prerequisite_of", Value: nonNil(r.PrerequisiteOf)},
		})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to update relations: %w", err)
	}
	return nil
}

func (f *Firestore) Nearest(ctx context.Context, query []float64, limit int) ([]scrape.Course, error) {
	vq := f.courses.FindNearest(embeddingField, firestore.Vector64(query), limit, firestore.DistanceMeasureCosine, nil)
	iter := vq.Documents(ctx)
	defer iter.Stop()

	var courses []scrape.Course
	err := eachCourse(iter, func(c scrape.Course) error {
		courses = append(courses, c)
		return nil
	})
	return courses, err
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
