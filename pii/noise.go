package pii

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	noiseThreshold = 100
	laplaceMu      = 0.0
	laplaceScale   = 1.0
)

// NoiseInjector perturbs standalone integer tokens with Laplace noise
type NoiseInjector struct {
	source *GeneratorService
}

func NewNoiseInjector(source *GeneratorService) *NoiseInjector {
	return &NoiseInjector{source: source}
}

// Laplace draws one sample from Laplace(mu, b) by inverse transform
func (n *NoiseInjector) Laplace(mu, b float64) float64 {
	u := n.source.Uniform()
	for u == -0.5 {
		u = n.source.Uniform()
	}
	sign := 0.0
	switch {
	case u > 0:
		sign = 1
	case u < 0:
		sign = -1
	}
	return mu - b*sign*math.Log(1-2*math.Abs(u))
}

// Inject replaces every integer token greater than 100 with
// max(0, round(v + Laplace(0, 1))). A token is a run of ASCII digits that
// starts the text or follows whitespace, and ends the text or is followed by
// whitespace or a single trailing punctuation mark.
func (n *NoiseInjector) Inject(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	i := 0
	for i < len(text) {
		if !isDigit(text[i]) || !tokenStart(text, i) {
			i++
			continue
		}
		j := i
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if !tokenEnd(text, j) {
			i = j
			continue
		}

		value, err := strconv.ParseInt(text[i:j], 10, 64)
		if err == nil && value > noiseThreshold {
			noisy := math.Round(float64(value) + n.Laplace(laplaceMu, laplaceScale))
			if noisy < 0 {
				noisy = 0
			}
			b.WriteString(text[cursor:i])
			b.WriteString(strconv.FormatInt(int64(noisy), 10))
			cursor = j
		}
		i = j
	}
	if cursor == 0 {
		return text
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func tokenStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsSpace(r)
}

func tokenEnd(text string, j int) bool {
	if j == len(text) {
		return true
	}
	r, size := utf8.DecodeRuneInString(text[j:])
	if unicode.IsSpace(r) {
		return true
	}
	if !strings.ContainsRune(".,;:!?", r) {
		return false
	}
	if j+size == len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[j+size:])
	return unicode.IsSpace(next)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
