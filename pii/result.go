package pii

import (
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Engine identifies which sanitizer produced a result. Privacy scores from
// different engines use different formulas and are not comparable.
type Engine string

const (
	EngineLocal  Engine = "local"
	EngineRemote Engine = "remote"
)

// Replacement records one substituted span
type Replacement struct {
	Original    string               `json:"original"`
	Replacement string               `json:"replacement"`
	EntityType  detectors.EntityType `json:"entity_type"`
	Confidence  float64              `json:"confidence"`
}

// SanitizationResult is returned by both the local and the remote engine
type SanitizationResult struct {
	SanitizedText    string        `json:"sanitized_text"`
	Replacements     []Replacement `json:"replacements"`
	PrivacyScore     float64       `json:"privacy_score"`
	ContextPreserved bool          `json:"context_preserved"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	Engine           Engine        `json:"engine"`
}

// PrivacyConfig holds the per-call switches derived from the requested level
type PrivacyConfig struct {
	EnableTokenSubstitution   bool                   `json:"enable_token_substitution"`
	EnableDifferentialPrivacy bool                   `json:"enable_differential_privacy"`
	PrivacyLevel              detectors.PrivacyLevel `json:"privacy_level"`
	PreserveContext           bool                   `json:"preserve_context"`
}

// NewPrivacyConfig builds the config for one sanitization call. Noise
// injection is only enabled at Maximum.
func NewPrivacyConfig(level detectors.PrivacyLevel, preserveContext bool) PrivacyConfig {
	return PrivacyConfig{
		EnableTokenSubstitution:   true,
		EnableDifferentialPrivacy: level == detectors.Maximum,
		PrivacyLevel:              level,
		PreserveContext:           preserveContext,
	}
}
