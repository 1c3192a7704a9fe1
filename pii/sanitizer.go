package pii

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// LocalSanitizer runs detection, substitution, noise and scoring in-process.
// It is total: every input produces a result.
type LocalSanitizer struct {
	catalog     *detectors.Catalog
	detector    detectors.Detector
	generator   *GeneratorService
	mode        MappingMode
	substituter *Substituter
	noise       *NoiseInjector
	logger      zerolog.Logger
}

type LocalOption func(*LocalSanitizer)

// WithGenerator replaces the random source, e.g. with a seeded one in tests
func WithGenerator(g *GeneratorService) LocalOption {
	return func(s *LocalSanitizer) { s.generator = g }
}

func WithMappingMode(mode MappingMode) LocalOption {
	return func(s *LocalSanitizer) { s.mode = mode }
}

// WithDetector swaps the detector; the catalog still supplies confidence weights
func WithDetector(d detectors.Detector) LocalOption {
	return func(s *LocalSanitizer) { s.detector = d }
}

// NewLocalSanitizer builds a sanitizer over catalog (DefaultCatalog when nil)
func NewLocalSanitizer(catalog *detectors.Catalog, opts ...LocalOption) *LocalSanitizer {
	if catalog == nil {
		catalog = detectors.DefaultCatalog()
	}
	s := &LocalSanitizer{
		catalog: catalog,
		mode:    MappingPerOccurrence,
		logger:  log.With().Str("component", "local_sanitizer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = detectors.NewRegexDetector(catalog)
	}
	if s.generator == nil {
		s.generator = NewGeneratorService()
	}
	s.substituter = NewSubstituter(s.generator, catalog, s.mode)
	s.noise = NewNoiseInjector(s.generator)
	return s
}

// Catalog returns the catalog supplying rules and weights
func (s *LocalSanitizer) Catalog() *detectors.Catalog {
	return s.catalog
}

// Detect returns the spans that Sanitize would replace at level
func (s *LocalSanitizer) Detect(text string, level detectors.PrivacyLevel) []detectors.EntityMatch {
	return s.detector.Detect(text, level)
}

// Sanitize redacts text according to cfg
func (s *LocalSanitizer) Sanitize(text string, cfg PrivacyConfig) SanitizationResult {
	start := time.Now()

	sanitized := text
	replacements := []Replacement{}
	if cfg.EnableTokenSubstitution {
		matches := s.detector.Detect(text, cfg.PrivacyLevel)
		sanitized, replacements = s.substituter.Substitute(text, matches, cfg.PreserveContext)
	}
	if cfg.EnableDifferentialPrivacy {
		sanitized = s.noise.Inject(sanitized)
	}

	result := SanitizationResult{
		SanitizedText:    sanitized,
		Replacements:     replacements,
		PrivacyScore:     Score(text, sanitized, len(replacements)),
		ContextPreserved: cfg.PreserveContext,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Engine:           EngineLocal,
	}

	s.logger.Debug().
		Int("input_len", len(text)).
		Int("replacements", len(replacements)).
		Str("level", cfg.PrivacyLevel.String()).
		Float64("privacy_score", result.PrivacyScore).
		Msg("sanitized locally")

	return result
}
