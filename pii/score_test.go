package pii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	words := func(n int) string {
		return strings.TrimSpace(strings.Repeat("w ", n))
	}
	tests := []struct {
		name         string
		original     string
		replacements int
		want         float64
	}{
		{"empty text", "", 0, 0.85},
		{"nothing found", words(40), 0, 0.85},
		{"sparse", words(100), 4, 0.85},
		{"middle band", words(20), 2, 0.95},
		{"exactly five percent", words(20), 1, 0.95},
		{"dense is capped", words(10), 2, 0.99},
		{"everything replaced", words(3), 3, 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.original, "", tt.replacements), 1e-9)
		})
	}
}
