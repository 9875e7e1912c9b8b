package scrape

import (
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultSyllabusUri    = "/en/study/syllabus"
	defaultReadingListUri = "/en/study/reading-list"
	courseBlobType        = "course"
)

var initialStateR = regexp.MustCompile(`(?s)AppRegistry\.registerInitialState\('[^']+',\s*(\{.*?\})\);`)

// ParsePage extracts a course from a catalog page. Blobs are applied best
// effort: one that fails to decode is skipped without affecting the others.
func ParsePage(html string, pageUrl string) (Course, error) {
	var course Course

	for raw := range initialStates(html) {
		var s initialState
		if err := s.decode(raw); err != nil {
			continue
		}
		s.apply(&course)
	}

	key, err := KeyFromURL(pageUrl)
	if err != nil {
		return course, fmt.Errorf("%s: %w", pageUrl, err)
	}
	course.Key = key

	// Fall back to the page heading when no blob named the course
	if course.Title == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			course.Title = String(collapse(doc.Find("h1").First().Text()))
		}
	}

	return course, nil
}

// initialStates yields the JSON object of every registerInitialState call.
func initialStates(html string) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		rest := html
		for {
			loc := initialStateR.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield([]byte(rest[loc[2]:loc[3]])) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

type instance struct {
	Location          *string `json:"location"`
	Pace              *string `json:"pace"`
	Distance          *string `json:"distance"`
	Time              *string `json:"time"`
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	Language          *string `json:"language"`
	EntryRequirements *string `json:"entryRequirements"`
	Selection         *string `json:"selection"`
	TotalFee          *string `json:"totalFee"`
	ApplicationDate   *string `json:"applicationDate"`
	ApplicationCode   *string `json:"applicationCode"`
	SemesterName      string  `json:"-"`
}

type semester struct {
	Name      string     `json:"name"`
	Instances []instance `json:"instances"`
}

type document struct {
	ID documentID `json:"id"`
}

// documentID accepts both string and numeric ids.
type documentID string

func (d *documentID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = documentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("document id %s is neither string nor number", b)
	}
	*d = documentID(n.String())
	return nil
}

// initialState is the decoded form of one blob. Only the parts the blob
// actually carried are set.
type initialState struct {
	latest *instance

	syllabusLink    *string
	readingListLink *string

	hasAbout   bool
	aboutBlurb *string
	title      *string
}

func (s *initialState) decode(raw []byte) error {
	var blob map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blob); err != nil {
		return err
	}

	if msg, ok := blob["semesters"]; ok {
		var semesters []semester
		if err := json.Unmarshal(msg, &semesters); err != nil {
			return err
		}
		latest, ok := latestInstance(semesters)
		if !ok {
			return fmt.Errorf("offering has no instances")
		}
		s.latest = &latest
	}

	link, err := documentLink(blob, "syllabi", "syllabusUri", defaultSyllabusUri)
	if err != nil {
		return err
	}
	s.syllabusLink = link

	link, err = documentLink(blob, "readingLists", "readingListUri", defaultReadingListUri)
	if err != nil {
		return err
	}
	s.readingListLink = link

	if msg, ok := blob["description"]; ok {
		var kind string
		_ = json.Unmarshal(blob["type"], &kind)
		if kind == courseBlobType {
			var description, title *string
			if err := json.Unmarshal(msg, &description); err != nil {
				return err
			}
			if t, ok := blob["title"]; ok {
				if err := json.Unmarshal(t, &title); err != nil {
					return err
				}
			}
			s.hasAbout = true
			s.aboutBlurb = cleanField(description)
			s.title = cleanField(title)
		}
	}

	return nil
}

func (s initialState) apply(c *Course) {
	if i := s.latest; i != nil {
		c.Location = cleanField(i.Location)
		c.PaceOfStudy = cleanField(i.Pace)
		c.TeachingForm = cleanField(i.Distance)
		c.InstructionalTime = cleanField(i.Time)

		start, end := cleanField(i.StartDate), cleanField(i.EndDate)
		c.StudyPeriod = nil
		if start != nil && end != nil {
			c.StudyPeriod = String(*start + " - " + *end)
		}

		c.LanguageOfInstruction = cleanField(i.Language)
		c.EntryRequirements = cleanField(i.EntryRequirements)
		c.Selection = cleanField(i.Selection)
		c.Fees = cleanField(i.TotalFee)
		c.ApplicationDeadline = cleanField(i.ApplicationDate)
		c.ApplicationCode = cleanField(i.ApplicationCode)
	}
	if s.syllabusLink != nil {
		c.SyllabusLink = s.syllabusLink
	}
	if s.readingListLink != nil {
		c.ReadingListLink = s.readingListLink
	}
	if s.hasAbout {
		c.AboutBlurb = s.aboutBlurb
		if s.title != nil {
			c.Title = s.title
		}
	}
}

// latestInstance flattens the instances of every semester and picks the one
// with the greatest start date. Dates compare as strings, which only orders
// correctly for zero-padded ISO dates.
func latestInstance(semesters []semester) (instance, bool) {
	var all []instance
	for _, sem := range semesters {
		for _, inst := range sem.Instances {
			inst.SemesterName = sem.Name
			all = append(all, inst)
		}
	}
	if len(all) == 0 {
		return instance{}, false
	}
	sort.SliceStable(all, func(i, j int) bool {
		return Value(all[i].StartDate) > Value(all[j].StartDate)
	})
	return all[0], true
}

// documentLink builds the link to the first document listed under listKey.
// It returns nil if the blob lists none.
func documentLink(blob map[string]json.RawMessage, listKey, uriKey, defaultUri string) (*string, error) {
	msg, ok := blob[listKey]
	if !ok {
		return nil, nil
	}
	var docs []document
	if err := json.Unmarshal(msg, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	base := defaultUri
	if msg, ok := blob[uriKey]; ok {
		var uri string
		if err := json.Unmarshal(msg, &uri); err == nil && uri != "" {
			base = uri
		}
	}
	link := fmt.Sprintf("%s%s?query=%s", SiteUrl, base, docs[0].ID)
	return &link, nil
}
