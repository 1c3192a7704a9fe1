package pii

import (
	"fmt"
	"strings"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// MappingMode selects how repeated mentions of the same value are replaced
// within one text
type MappingMode string

const (
	// MappingPerOccurrence draws a fresh synthetic value for every match
	MappingPerOccurrence MappingMode = "per_occurrence"
	// MappingConsistent reuses the first synthetic value drawn for an original
	MappingConsistent MappingMode = "consistent"
)

// ParseMappingMode parses "per_occurrence" or "consistent"; empty means per_occurrence
func ParseMappingMode(s string) (MappingMode, error) {
	switch MappingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MappingPerOccurrence:
		return MappingPerOccurrence, nil
	case MappingConsistent:
		return MappingConsistent, nil
	}
	return "", fmt.Errorf("unknown mapping mode: %q", s)
}

type mappingKey struct {
	entityType detectors.EntityType
	original   string
}

// PIIMapping is the original -> replacement table of a single
// sanitization call. It is never shared between calls.
type PIIMapping struct {
	mode            MappingMode
	OriginalToDummy map[mappingKey]string
}

// NewPIIMapping creates an empty mapping for one call
func NewPIIMapping(mode MappingMode) *PIIMapping {
	m := &PIIMapping{mode: mode}
	if mode == MappingConsistent {
		m.OriginalToDummy = make(map[mappingKey]string)
	}
	return m
}

// GetOrCreate returns the replacement for original, calling generate when the
// policy requires a new value
func (m *PIIMapping) GetOrCreate(t detectors.EntityType, original string, generate func() string) string {
	if m.mode != MappingConsistent {
		return generate()
	}
	key := mappingKey{entityType: t, original: original}
	if dummy, ok := m.OriginalToDummy[key]; ok {
		return dummy
	}
	dummy := generate()
	m.OriginalToDummy[key] = dummy
	return dummy
}

// Len returns the number of distinct originals recorded
func (m *PIIMapping) Len() int {
	return len(m.OriginalToDummy)
}
