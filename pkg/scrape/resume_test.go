package scrape

import (
	"testing"

	"github.com/openswoop/coursegraph/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestFilterNew(t *testing.T) {
	urls := []string{
		"https://www.uu.se/en/study/course?query=1MA017",
		"https://www.uu.se/en/study/course?query=ALGI",
		"https://www.uu.se/en/study/course",
		"https://www.uu.se/en/study/course?query=5AR123",
		"https://www.uu.se/sv/utbildning/kurs?query=5AR123",
	}
	existing := map[string]bool{"ALGI": true}

	got := FilterNew(urls, existing, logger.Nop())
	assert.Equal(t, []string{
		"https://www.uu.se/en/study/course?query=1MA017",
		"https://www.uu.se/en/study/course?query=5AR123",
	}, got)
}

func TestFilterNewEverythingKnown(t *testing.T) {
	urls := []string{"https://www.uu.se/en/study/course?query=ALGI"}
	assert.Empty(t, FilterNew(urls, map[string]bool{"ALGI": true}, logger.Nop()))
}
