package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := map[string]*string{
		"Uppsala <b>Campus</b>\n   Ekonomikum": String("Uppsala Campus Ekonomikum"),
		"Grade 3 in Physics <B and Math":       String("Grade 3 in Physics <B and Math"),
		"1MA017 &amp; <i>Linear Algebra I</i>": String("1MA017 & Linear Algebra I"),
		"&lt;none&gt;":                         String("<none>"),
		"<p> </p>":                             nil,
		"":                                     nil,
	}
	for raw, want := range cases {
		assert.Equal(t, want, cleanText(raw), raw)
	}
}
