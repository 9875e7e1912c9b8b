package scrape

// Course is one catalog entry keyed by its course code. A nil string field
// means the page did not supply it.
type Course struct {
	Key                   string    `json:"key"`
	Title                 *string   `json:"title"`
	Location              *string   `json:"location"`
	PaceOfStudy           *string   `json:"pace_of_study"`
	TeachingForm          *string   `json:"teaching_form"`
	InstructionalTime     *string   `json:"instructional_time"`
	StudyPeriod           *string   `json:"study_period"`
	LanguageOfInstruction *string   `json:"language_of_instruction"`
	EntryRequirements     *string   `json:"entry_requirements"`
	Selection             *string   `json:"selection"`
	Fees                  *string   `json:"fees"`
	ApplicationDeadline   *string   `json:"application_deadline"`
	ApplicationCode       *string   `json:"application_code"`
	SyllabusLink          *string   `json:"syllabus_link"`
	ReadingListLink       *string   `json:"reading_list_link"`
	AboutBlurb            *string   `json:"about_blurb"`
	Prerequisites         []string  `json:"prerequisites"`
	PrerequisiteOf        []string  `json:"prerequisite_of"`
	Embedding             []float64 `json:"embedding,omitempty"`
}

// EmbeddingText is the text sent to the embedding service: the title and the
// about blurb on separate lines, trimmed.
func (c Course) EmbeddingText() string {
	return trimSpace(Value(c.Title) + "\n" + Value(c.AboutBlurb))
}

// Value dereferences an optional field, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String returns a pointer to s, or nil if s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
