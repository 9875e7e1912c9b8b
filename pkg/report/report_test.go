package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openswoop/coursegraph/pkg/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(b)
}

var graph = []scrape.Course{
	{
		Key:            "ALGI",
		Title:          scrape.String("Linear Algebra"),
		PrerequisiteOf: []string{"1MA017", "1MA020"},
	},
	{
		Key:           "1MA020",
		Title:         scrape.String("Geometry"),
		Prerequisites: []string{"ALGI"},
	},
	{
		Key:           "1MA017",
		Title:         scrape.String("Calculus"),
		Location:      scrape.String("Uppsala"),
		Prerequisites: []string{"ALGI"},
		Embedding:     []float64{1},
	},
}

func TestWriteCourses(t *testing.T) {
	name := filepath.Join(t.TempDir(), "courses.csv")
	require.NoError(t, WriteCourses(name, graph))

	out := readFile(t, name)
	assert.Contains(t, out, "key,title,location,")
	assert.Contains(t, out, "1MA017,Calculus,Uppsala,")
	assert.Contains(t, out, ",1MA017;1MA020,false\n")
	assert.Less(t, strings.Index(out, "1MA017,"), strings.Index(out, "ALGI,"))
}

func TestWriteEdges(t *testing.T) {
	name := filepath.Join(t.TempDir(), "edges.csv")
	require.NoError(t, WriteEdges(name, graph))

	assert.Equal(t, "course,prerequisite\n1MA017,ALGI\n1MA020,ALGI\n", readFile(t, name))
}

func TestWriteCsvBadPath(t *testing.T) {
	err := WriteEdges(filepath.Join(t.TempDir(), "missing", "edges.csv"), graph)
	assert.Error(t, err)
}
