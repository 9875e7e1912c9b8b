package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gorp/gorp/v3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/openswoop/coursegraph/pkg/embed"
	"github.com/openswoop/coursegraph/pkg/persist"
	"github.com/openswoop/coursegraph/pkg/scrape"
)

const coursesTable = "courses"

// keyList and vector are stored as JSON text; nil is NULL.
type keyList []string

type vector []float64

func (k keyList) Value() (driver.Value, error) {
	if k == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(k))
	return string(b), err
}

func (k *keyList) Scan(src interface{}) error {
	return scanJSON(src, (*[]string)(k))
}

func (v vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal([]float64(v))
	return string(b), err
}

func (v *vector) Scan(src interface{}) error {
	return scanJSON(src, (*[]float64)(v))
}

func scanJSON(src interface{}, dst interface{}) error {
	switch s := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(s), dst)
	case []byte:
		return json.Unmarshal(s, dst)
	default:
		return fmt.Errorf("cannot scan %T as json", src)
	}
}

type courseRow struct {
	Key                   string         `db:"course_key"`
	Title                 sql.NullString `db:"title"`
	Location              sql.NullString `db:"location"`
	PaceOfStudy           sql.NullString `db:"pace_of_study"`
	TeachingForm          sql.NullString `db:"teaching_form"`
	InstructionalTime     sql.NullString `db:"instructional_time"`
	StudyPeriod           sql.NullString `db:"study_period"`
	LanguageOfInstruction sql.NullString `db:"language_of_instruction"`
	EntryRequirements     sql.NullString `db:"entry_requirements"`
	Selection             sql.NullString `db:"selection"`
	Fees                  sql.NullString `db:"fees"`
	ApplicationDeadline   sql.NullString `db:"application_deadline"`
	ApplicationCode       sql.NullString `db:"application_code"`
	SyllabusLink          sql.NullString `db:"syllabus_link"`
	ReadingListLink       sql.NullString `db:"reading_list_link"`
	AboutBlurb            sql.NullString `db:"about_blurb"`
	Prerequisites         keyList        `db:"prerequisites"`
	PrerequisiteOf        keyList        `db:"prerequisite_of"`
	Embedding             vector         `db:"embedding"`
}

type keyRow struct {
	Key string `db:"course_key"`
}

// scrapedColumns are written by SaveCourse, in courseRow.scraped order.
var scrapedColumns = []string{
	"title", "location", "pace_of_study", "teaching_form", "instructional_time",
	"study_period", "language_of_instruction", "entry_requirements", "selection",
	"fees", "application_deadline", "application_code", "syllabus_link",
	"reading_list_link", "about_blurb",
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optional(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func toRow(c scrape.Course) courseRow {
	return courseRow{
		Key:                   c.Key,
		Title:                 nullString(c.Title),
		Location:              nullString(c.Location),
		PaceOfStudy:           nullString(c.PaceOfStudy),
		TeachingForm:          nullString(c.TeachingForm),
		InstructionalTime:     nullString(c.InstructionalTime),
		StudyPeriod:           nullString(c.StudyPeriod),
		LanguageOfInstruction: nullString(c.LanguageOfInstruction),
		EntryRequirements:     nullString(c.EntryRequirements),
		Selection:             nullString(c.Selection),
		Fees:                  nullString(c.Fees),
		ApplicationDeadline:   nullString(c.ApplicationDeadline),
		ApplicationCode:       nullString(c.ApplicationCode),
		SyllabusLink:          nullString(c.SyllabusLink),
		ReadingListLink:       nullString(c.ReadingListLink),
		AboutBlurb:            nullString(c.AboutBlurb),
		Embedding:             vector(c.Embedding),
	}
}

func (r courseRow) scraped() []interface{} {
	return []interface{}{
		r.Title, r.Location, r.PaceOfStudy, r.TeachingForm, r.InstructionalTime,
		r.StudyPeriod, r.LanguageOfInstruction, r.EntryRequirements, r.Selection,
		r.Fees, r.ApplicationDeadline, r.ApplicationCode, r.SyllabusLink,
		r.ReadingListLink, r.AboutBlurb,
	}
}

func (r courseRow) course() scrape.Course {
	return scrape.Course{
		Key:                   r.Key,
		Title:                 optional(r.Title),
		Location:              optional(r.Location),
		PaceOfStudy:           optional(r.PaceOfStudy),
		TeachingForm:          optional(r.TeachingForm),
		InstructionalTime:     optional(r.InstructionalTime),
		StudyPeriod:           optional(r.StudyPeriod),
		LanguageOfInstruction: optional(r.LanguageOfInstruction),
		EntryRequirements:     optional(r.EntryRequirements),
		Selection:             optional(r.Selection),
		Fees:                  optional(r.Fees),
		ApplicationDeadline:   optional(r.ApplicationDeadline),
		ApplicationCode:       optional(r.ApplicationCode),
		SyllabusLink:          optional(r.SyllabusLink),
		ReadingListLink:       optional(r.ReadingListLink),
		AboutBlurb:            optional(r.AboutBlurb),
		Prerequisites:         []string(r.Prerequisites),
		PrerequisiteOf:        []string(r.PrerequisiteOf),
		Embedding:             []float64(r.Embedding),
	}
}

// Sqlite keeps the course collection in a local file.
type Sqlite struct {
	db    *sql.DB
	dbmap *gorp.DbMap
}

func NewSqlite(file string) (*Sqlite, error) {
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Initialize the database connection
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Initialize the database mapping, creating the table if it's our first run
	dbmap := &gorp.DbMap{Db: db, Dialect: gorp.SqliteDialect{}}
	dbmap.AddTableWithName(courseRow{}, coursesTable).SetKeys(false, "Key")
	if err := dbmap.CreateTablesIfNotExists(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create tables: %w", err)
	}

	return &Sqlite{db: db, dbmap: dbmap}, nil
}

func (s *Sqlite) SaveCourse(ctx context.Context, c scrape.Course) error {
	row := toRow(c)
	tx, err := s.dbmap.Begin()
	if err != nil {
		return err
	}
	exec := tx.WithContext(ctx)

	merge := func(interface{}) error {
		columns := scrapedColumns
		args := row.scraped()
		if row.Embedding != nil {
			columns = append(columns[:len(columns):len(columns)], "embedding")
			args = append(args, row.Embedding)
		}
		sets := make([]string, len(columns))
		for i, col := range columns {
			sets[i] = col + " = ?"
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE course_key = ?", coursesTable, strings.Join(sets, ", "))
		_, err := exec.Exec(query, append(args, row.Key)...)
		return err
	}

	if err := persist.InsertOrMerge(exec, merge).Insert(&row); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to save course %s: %w", c.Key, err)
	}
	return tx.Commit()
}

func (s *Sqlite) EachCourse(ctx context.Context, fn func(scrape.Course) error) error {
	exec := s.dbmap.WithContext(ctx)
	after := ""
	for {
		var rows []courseRow
		query := fmt.Sprintf("SELECT * FROM %s WHERE course_key > ? ORDER BY course_key LIMIT ?", coursesTable)
		if _, err := exec.Select(&rows, query, after, BatchSize); err != nil {
			return fmt.Errorf("failed to read courses: %w", err)
		}
		for _, row := range rows {
			if err := fn(row.course()); err != nil {
				return err
			}
		}
		if len(rows) < BatchSize {
			return nil
		}
		after = rows[len(rows)-1].Key
	}
}

func (s *Sqlite) Keys(ctx context.Context) (map[string]bool, error) {
	var rows []keyRow
	query := fmt.Sprintf("SELECT course_key FROM %s", coursesTable)
	if _, err := s.dbmap.WithContext(ctx).Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to read course keys: %w", err)
	}
	keys := make(map[string]bool, len(rows))
	for _, row := range rows {
		keys[row.Key] = true
	}
	return keys, nil
}

func (s *Sqlite) DeleteAll(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	all := make([]interface{}, 0, len(keys))
	for key := range keys {
		all = append(all, key)
	}

	deleted := 0
	for start := 0; start < len(all); start += BatchSize {
		chunk := all[start:min(start+BatchSize, len(all))]
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")
		query := fmt.Sprintf("DELETE FROM %s WHERE course_key IN (%s)", coursesTable, placeholders)
		if _, err := s.dbmap.WithContext(ctx).Exec(query, chunk...); err != nil {
			return deleted, fmt.Errorf("failed to delete courses: %w", err)
		}
		deleted += len(chunk)
	}
	return deleted, nil
}

func (s *Sqlite) SaveRelations(ctx context.Context, batch []Relations) error {
	tx, err := s.dbmap.Begin()
	if err != nil {
		return err
	}
	exec := tx.WithContext(ctx)
	query := fmt.Sprintf("UPDATE %s SET prerequisites = ?, prerequisite_of = ? WHERE course_key = ?", coursesTable)
	for _, r := range batch {
		if _, err := exec.Exec(query, keyList(nonNil(r.Prerequisites)), keyList(nonNil(r.PrerequisiteOf)), r.Key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update relations of %s: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

func (s *Sqlite) Nearest(ctx context.Context, query []float64, limit int) ([]scrape.Course, error) {
	type scored struct {
		course scrape.Course
		score  float64
	}
	var ranked []scored
	err := s.EachCourse(ctx, func(c scrape.Course) error {
		if len(c.Embedding) == len(query) {
			ranked = append(ranked, scored{c, embed.Cosine(query, c.Embedding)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	courses := make([]scrape.Course, len(ranked))
	for i, r := range ranked {
		courses[i] = r.course
	}
	return courses, nil
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}
