package report

import (
	"sort"
	"strings"

	"github.com/openswoop/coursegraph/pkg/scrape"
)

type courseView struct {
	Key                   string `csv:"key"`
	Title                 string `csv:"title"`
	Location              string `csv:"location"`
	PaceOfStudy           string `csv:"pace_of_study"`
	TeachingForm          string `csv:"teaching_form"`
	InstructionalTime     string `csv:"instructional_time"`
	StudyPeriod           string `csv:"study_period"`
	LanguageOfInstruction string `csv:"language_of_instruction"`
	EntryRequirements     string `csv:"entry_requirements"`
	Selection             string `csv:"selection"`
	Fees                  string `csv:"fees"`
	ApplicationDeadline   string `csv:"application_deadline"`
	ApplicationCode       string `csv:"application_code"`
	SyllabusLink          string `csv:"syllabus_link"`
	ReadingListLink       string `csv:"reading_list_link"`
	AboutBlurb            string `csv:"about_blurb"`
	Prerequisites         string `csv:"prerequisites"`
	PrerequisiteOf        string `csv:"prerequisite_of"`
	Embedded              bool   `csv:"embedded"`
}

const listSeparator = ";"

func toCourseView(c scrape.Course) courseView {
	return courseView{
		Key:                   c.Key,
		Title:                 scrape.Value(c.Title),
		Location:              scrape.Value(c.Location),
		PaceOfStudy:           scrape.Value(c.PaceOfStudy),
		TeachingForm:          scrape.Value(c.TeachingForm),
		InstructionalTime:     scrape.Value(c.InstructionalTime),
		StudyPeriod:           scrape.Value(c.StudyPeriod),
		LanguageOfInstruction: scrape.Value(c.LanguageOfInstruction),
		EntryRequirements:     scrape.Value(c.EntryRequirements),
		Selection:             scrape.Value(c.Selection),
		Fees:                  scrape.Value(c.Fees),
		ApplicationDeadline:   scrape.Value(c.ApplicationDeadline),
		ApplicationCode:       scrape.Value(c.ApplicationCode),
		SyllabusLink:          scrape.Value(c.SyllabusLink),
		ReadingListLink:       scrape.Value(c.ReadingListLink),
		AboutBlurb:            scrape.Value(c.AboutBlurb),
		Prerequisites:         strings.Join(c.Prerequisites, listSeparator),
		PrerequisiteOf:        strings.Join(c.PrerequisiteOf, listSeparator),
		Embedded:              len(c.Embedding) > 0,
	}
}

// WriteCourses writes one row per course, ordered by key. Relation lists are
// joined with semicolons and the embedding is reduced to a flag.
func WriteCourses(fileName string, courses []scrape.Course) error {
	rows := make([]courseView, len(courses))
	for i, c := range courses {
		rows[i] = toCourseView(c)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key < rows[j].Key
	})
	return WriteCsv(&rows, fileName)
}
