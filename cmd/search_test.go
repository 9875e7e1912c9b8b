package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))

	long := strings.Repeat("å", 200)
	got := snippet(long)
	assert.Equal(t, strings.Repeat("å", snippetLength)+"...", got)
}
