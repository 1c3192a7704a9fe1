package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

func TestParseMappingMode(t *testing.T) {
	mode, err := ParseMappingMode("")
	require.NoError(t, err)
	assert.Equal(t, MappingPerOccurrence, mode)

	mode, err = ParseMappingMode("Consistent")
	require.NoError(t, err)
	assert.Equal(t, MappingConsistent, mode)

	_, err = ParseMappingMode("sticky")
	assert.Error(t, err)
}

func TestPIIMapping_GetOrCreate(t *testing.T) {
	counter := 0
	gen := func() string {
		counter++
		return string(rune('A' + counter))
	}

	consistent := NewPIIMapping(MappingConsistent)
	a := consistent.GetOrCreate(detectors.PersonName, "John", gen)
	b := consistent.GetOrCreate(detectors.PersonName, "John", gen)
	c := consistent.GetOrCreate(detectors.Location, "John", gen)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "mapping is keyed by type as well as value")
	assert.Equal(t, 2, consistent.Len())

	perOccurrence := NewPIIMapping(MappingPerOccurrence)
	x := perOccurrence.GetOrCreate(detectors.PersonName, "John", gen)
	y := perOccurrence.GetOrCreate(detectors.PersonName, "John", gen)
	assert.NotEqual(t, x, y)
	assert.Equal(t, 0, perOccurrence.Len())
}

func TestSubstituter_SkipsOverlappingMatches(t *testing.T) {
	s := NewSubstituter(NewGeneratorServiceWithSeed(1), detectors.DefaultCatalog(), MappingPerOccurrence)
	text := "abc def ghi"
	matches := []detectors.EntityMatch{
		{Start: 0, End: 3, Text: "abc", Type: detectors.PersonName},
		{Start: 2, End: 7, Text: "c def", Type: detectors.Email},
		{Start: 8, End: 11, Text: "ghi", Type: detectors.Location},
	}

	out, reps := s.Substitute(text, matches, false)
	assert.Equal(t, "[PERSON_NAME] def [LOCATION]", out)
	assert.Len(t, reps, 2)
}

func TestSubstituter_NoMatches(t *testing.T) {
	s := NewSubstituter(NewGeneratorServiceWithSeed(1), detectors.DefaultCatalog(), "")
	out, reps := s.Substitute("plain text", nil, true)
	assert.Equal(t, "plain text", out)
	assert.NotNil(t, reps)
	assert.Empty(t, reps)
}
