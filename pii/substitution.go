package pii

import (
	"strings"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Substituter turns detected spans into replacement text
type Substituter struct {
	generator *GeneratorService
	catalog   *detectors.Catalog
	mode      MappingMode
}

func NewSubstituter(generator *GeneratorService, catalog *detectors.Catalog, mode MappingMode) *Substituter {
	if mode == "" {
		mode = MappingPerOccurrence
	}
	return &Substituter{generator: generator, catalog: catalog, mode: mode}
}

// Substitute rebuilds text in one left-to-right pass, splicing a replacement
// in for each match. Matches must be sorted by start and disjoint; a match
// that starts before the end of the previous one is skipped.
func (s *Substituter) Substitute(text string, matches []detectors.EntityMatch, preserveContext bool) (string, []Replacement) {
	replacements := make([]Replacement, 0, len(matches))
	if len(matches) == 0 {
		return text, replacements
	}

	mapping := NewPIIMapping(s.mode)
	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	for _, m := range matches {
		if m.Start < cursor || m.End > len(text) {
			continue
		}
		original := text[m.Start:m.End]

		var replacement string
		if preserveContext {
			replacement = mapping.GetOrCreate(m.Type, original, func() string {
				return s.generator.GenerateReplacement(m.Type, original)
			})
		} else {
			replacement = m.Type.Placeholder()
		}

		b.WriteString(text[cursor:m.Start])
		b.WriteString(replacement)
		cursor = m.End

		replacements = append(replacements, Replacement{
			Original:    original,
			Replacement: replacement,
			EntityType:  m.Type,
			Confidence:  s.catalog.Weight(m.Type),
		})
	}
	b.WriteString(text[cursor:])

	return b.String(), replacements
}
