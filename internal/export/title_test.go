package export

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestShortPM(t *testing.T) {
	assert.Equal(t, "JOHN S", ShortPM("JOHN SMITH"))
	assert.Equal(t, "Mary J", ShortPM("  Mary Ann   Jones "))
	assert.Equal(t, "CHER", ShortPM("CHER"))
	assert.Equal(t, "", ShortPM("   "))
}

func TestStreet(t *testing.T) {
	assert.Equal(t, "3060 3rd Ave", Street("3060 3rd Ave, Bronx, NY 10451"))
	assert.Equal(t, "Office Work", Street(" Office Work "))
}

func TestTitle(t *testing.T) {
	got := Title("JOHN SMITH", "3060 3rd Ave, Bronx, NY", []string{"Alice Brown", " Bob  Green"})
	assert.Equal(t, "JOHN S - 3060 3rd Ave (Alice, Bob)", got)
}

func TestTitle_Truncates(t *testing.T) {
	workers := []string{"Alexander One", "Bartholomew Two", "Christopher Three", "Dominique Four"}
	got := Title("JOHN SMITH", "1234 Very Long Boulevard Name Extension, Somewhere", workers)

	assert.Equal(t, MaxTitleLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, strings.HasPrefix(got, "JOHN S - 1234 Very Long Boulevard"))

	exact := strings.Repeat("x", MaxTitleLen-len("P -  ()"))
	assert.Equal(t, "P - "+exact+" ()", Title("P", exact, nil), "64 characters is not truncated")
}

func TestNotes(t *testing.T) {
	assert.Equal(t,
		"JOHN SMITH - 3060 3rd Ave, Bronx, NY (Alice Brown, Bob Green)",
		Notes("JOHN SMITH", "3060 3rd Ave, Bronx, NY", []string{"Alice Brown", "Bob Green"}))
}
