package report

import (
	"sort"

	"github.com/openswoop/coursegraph/pkg/scrape"
)

type edgeView struct {
	Course       string `csv:"course"`
	Prerequisite string `csv:"prerequisite"`
}

// WriteEdges writes the prerequisite graph as an edge list, one row per
// (course, prerequisite) pair.
func WriteEdges(fileName string, courses []scrape.Course) error {
	rows := []edgeView{}
	for _, c := range courses {
		for _, p := range c.Prerequisites {
			rows = append(rows, edgeView{Course: c.Key, Prerequisite: p})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Course != rows[j].Course {
			return rows[i].Course < rows[j].Course
		}
		return rows[i].Prerequisite < rows[j].Prerequisite
	})
	return WriteCsv(&rows, fileName)
}
