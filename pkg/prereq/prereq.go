// Package prereq derives the prerequisite graph from the free-text entry
// requirements of every stored course.
package prereq

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/openswoop/coursegraph/pkg/database"
	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/openswoop/coursegraph/pkg/scrape"
)

// MinTitleLength is the shortest title, in runes, matched against
// requirement text.
const MinTitleLength = 5

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Entry is the part of a course the inference reads.
type Entry struct {
	Key          string
	Title        string
	Requirements string
}

func EntryOf(c scrape.Course) Entry {
	return Entry{
		Key:          c.Key,
		Title:        scrape.Value(c.Title),
		Requirements: scrape.Value(c.EntryRequirements),
	}
}

// Graph holds both directions of the prerequisite relation. Every edge in
// Prerequisites has its inverse in PrerequisiteOf.
type Graph struct {
	Prerequisites  map[string][]string
	PrerequisiteOf map[string][]string
}

// Infer matches each entry's requirement text against every known key and
// title. Keys match as whole tokens of the upper-cased text; titles of at
// least MinTitleLength runes match as lower-cased substrings. An entry never
// lists itself.
func Infer(entries []Entry) Graph {
	keys := make(map[string]bool, len(entries))
	titles := make(map[string]string, len(entries))
	for _, e := range entries {
		keys[e.Key] = true
		if e.Title != "" {
			titles[strings.ToLower(e.Title)] = e.Key
		}
	}

	forward := map[string]map[string]bool{}
	inverse := map[string]map[string]bool{}
	for _, e := range entries {
		if e.Requirements == "" {
			continue
		}
		matched := map[string]bool{}
		for _, token := range tokenPattern.FindAllString(strings.ToUpper(e.Requirements), -1) {
			if keys[token] {
				matched[token] = true
			}
		}
		text := strings.ToLower(e.Requirements)
		for title, key := range titles {
			if utf8.RuneCountInString(title) >= MinTitleLength && strings.Contains(text, title) {
				matched[key] = true
			}
		}
		delete(matched, e.Key)
		if len(matched) == 0 {
			continue
		}

		forward[e.Key] = matched
		for target := range matched {
			if inverse[target] == nil {
				inverse[target] = map[string]bool{}
			}
			inverse[target][e.Key] = true
		}
	}

	return Graph{Prerequisites: sorted(forward), PrerequisiteOf: sorted(inverse)}
}

func sorted(sets map[string]map[string]bool) map[string][]string {
	out := make(map[string][]string, len(sets))
	for key, set := range sets {
		list := make([]string, 0, len(set))
		for k := range set {
			list = append(list, k)
		}
		sort.Strings(list)
		out[key] = list
	}
	return out
}

// Relations lists an update for every key on either side of an edge,
// ordered by key. A missing side is an empty list.
func (g Graph) Relations() []database.Relations {
	touched := map[string]bool{}
	for key := range g.Prerequisites {
		touched[key] = true
	}
	for key := range g.PrerequisiteOf {
		touched[key] = true
	}

	relations := make([]database.Relations, 0, len(touched))
	for key := range touched {
		relations = append(relations, database.Relations{
			Key:            key,
			Prerequisites:  orEmpty(g.Prerequisites[key]),
			PrerequisiteOf: orEmpty(g.PrerequisiteOf[key]),
		})
	}
	sort.Slice(relations, func(i, j int) bool {
		return relations[i].Key < relations[j].Key
	})
	return relations
}

func orEmpty(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

type RelationWriter interface {
	SaveRelations(ctx context.Context, relations []database.Relations) error
}

// Apply writes relations in chunks of batchSize. A failed chunk stops the
// write; earlier chunks stay committed.
func Apply(ctx context.Context, w RelationWriter, relations []database.Relations, batchSize int) error {
	if batchSize <= 0 {
		batchSize = database.BatchSize
	}
	for start := 0; start < len(relations); start += batchSize {
		chunk := relations[start:min(start+batchSize, len(relations))]
		if err := w.SaveRelations(ctx, chunk); err != nil {
			return fmt.Errorf("failed to commit relations %d-%d: %w", start, start+len(chunk), err)
		}
	}
	return nil
}

type Store interface {
	RelationWriter
	EachCourse(ctx context.Context, fn func(scrape.Course) error) error
}

// Run rebuilds the prerequisite graph over the whole collection and returns
// the number of courses updated.
func Run(ctx context.Context, store Store, log *logger.Logger) (int, error) {
	log.Info("Inferring prerequisites")

	var entries []Entry
	err := store.EachCourse(ctx, func(c scrape.Course) error {
		entries = append(entries, EntryOf(c))
		return nil
	})
	if err != nil {
		return 0, err
	}

	graph := Infer(entries)
	relations := graph.Relations()
	if err := Apply(ctx, store, relations, database.BatchSize); err != nil {
		return 0, err
	}

	log.Info("Updated prerequisites", "courses", len(entries), "edges", edgeCount(graph), "updated", len(relations))
	return len(relations), nil
}

func edgeCount(g Graph) int {
	n := 0
	for _, targets := range g.Prerequisites {
		n += len(targets)
	}
	return n
}
