package detectors

import (
	"sort"
)

// RegexDetector implements Detector over an ordered pattern catalog
type RegexDetector struct {
	catalog *Catalog
}

func NewRegexDetector(catalog *Catalog) *RegexDetector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &RegexDetector{catalog: catalog}
}

// Name returns the name of this detector
func (r *RegexDetector) Name() string {
	return DetectorNameRegex
}

// Catalog returns the catalog the detector runs
func (r *RegexDetector) Catalog() *Catalog {
	return r.catalog
}

// Detect runs every rule active at level against the original text. A match
// that overlaps a span claimed by an earlier rule is dropped. The result is
// sorted by start offset.
func (r *RegexDetector) Detect(text string, level PrivacyLevel) []EntityMatch {
	matches := []EntityMatch{}
	if text == "" {
		return matches
	}

	for _, rule := range r.catalog.RulesFor(level) {
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*rule.Group], loc[2*rule.Group+1]
			if start < 0 {
				continue
			}
			if rule.Accept != nil {
				var ok bool
				start, end, ok = rule.Accept(text, start, end)
				if !ok {
					continue
				}
			}
			if start >= end {
				continue
			}
			candidate := EntityMatch{Start: start, End: end, Text: text[start:end], Type: rule.Type}
			if overlapsAny(candidate, matches) {
				continue
			}
			matches = append(matches, candidate)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}

func overlapsAny(m EntityMatch, accepted []EntityMatch) bool {
	for _, a := range accepted {
		if m.Overlaps(a) {
			return true
		}
	}
	return false
}
