package anonymizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Remote privacy levels. The remote service has no Enhanced equivalent.
const (
	remoteLevelStandard = "standard"
	remoteLevelStrict   = "strict"
)

// RemoteLevel maps a local level onto the remote vocabulary
func RemoteLevel(level detectors.PrivacyLevel) string {
	if level == detectors.Maximum {
		return remoteLevelStrict
	}
	return remoteLevelStandard
}

type anonymizeRequest struct {
	Text           string   `json:"text"`
	PrivacyLevel   string   `json:"privacy_level"`
	PreserveFormat bool     `json:"preserve_format"`
	CustomEntities []string `json:"custom_entities,omitempty"`
}

type position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type entityFound struct {
	Original    string   `json:"original"`
	Replacement string   `json:"replacement"`
	EntityType  string   `json:"entity_type"`
	Confidence  float64  `json:"confidence"`
	Position    position `json:"position"`
}

type anonymizeResponse struct {
	SanitizedText    *string       `json:"sanitized_text"`
	PrivacyScore     *float64      `json:"privacy_score"`
	EntitiesFound    []entityFound `json:"entities_found"`
	ProcessingTimeMs float64       `json:"processing_time_ms"`
	PrivacyLevel     string        `json:"privacy_level"`
	Error            string        `json:"error,omitempty"`
}

type batchResponse struct {
	Results []anonymizeResponse `json:"results"`
}

// Stats is the informational payload of GET /stats
type Stats struct {
	TotalMappings     int      `json:"total_mappings"`
	SpacyModelLoaded  bool     `json:"spacy_model_loaded"`
	SupportedEntities []string `json:"supported_entities"`
	PrivacyLevels     []string `json:"privacy_levels"`
}

// remoteTypes maps the remote service's labels onto local entity types.
// Labels not listed here are kept verbatim.
var remoteTypes = map[string]detectors.EntityType{
	"PERSON":      detectors.PersonName,
	"EMAIL":       detectors.Email,
	"PHONE":       detectors.Phone,
	"CREDIT_CARD": detectors.CreditCard,
	"SSN":         detectors.SSN,
	"ADDRESS":     detectors.Address,
	"GPE":         detectors.Location,
	"LOC":         detectors.Location,
	"DATE":        detectors.Date,
	"TIME":        detectors.Date,
	"MONEY":       detectors.GenericNumber,
	"PERCENT":     detectors.GenericNumber,
}

func mapEntityType(label string) detectors.EntityType {
	upper := strings.ToUpper(label)
	if t, ok := remoteTypes[upper]; ok {
		return t
	}
	if t, err := detectors.ParseEntityType(upper); err == nil {
		return t
	}
	return detectors.EntityType(upper)
}

// toResult validates a response item and converts it to the shared result shape
func (r anonymizeResponse) toResult(preserveContext bool) (pii.SanitizationResult, error) {
	if r.Error != "" {
		return pii.SanitizationResult{}, fmt.Errorf("%w: item failed remotely: %s", ErrProtocol, r.Error)
	}
	if r.SanitizedText == nil {
		return pii.SanitizationResult{}, fmt.Errorf("%w: missing sanitized_text", ErrProtocol)
	}
	if r.PrivacyScore == nil || math.IsNaN(*r.PrivacyScore) || *r.PrivacyScore < 0 || *r.PrivacyScore > 1 {
		return pii.SanitizationResult{}, fmt.Errorf("%w: privacy_score missing or outside [0,1]", ErrProtocol)
	}
	if r.ProcessingTimeMs < 0 {
		return pii.SanitizationResult{}, fmt.Errorf("%w: negative processing_time_ms", ErrProtocol)
	}

	// the service reports entities in reverse order of discovery
	entities := make([]entityFound, len(r.EntitiesFound))
	copy(entities, r.EntitiesFound)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Position.Start < entities[j].Position.Start
	})

	replacements := make([]pii.Replacement, 0, len(entities))
	for _, e := range entities {
		replacements = append(replacements, pii.Replacement{
			Original:    e.Original,
			Replacement: e.Replacement,
			EntityType:  mapEntityType(e.EntityType),
			Confidence:  e.Confidence,
		})
	}

	return pii.SanitizationResult{
		SanitizedText:    *r.SanitizedText,
		Replacements:     replacements,
		PrivacyScore:     *r.PrivacyScore,
		ContextPreserved: preserveContext,
		ProcessingTimeMs: int64(math.Round(r.ProcessingTimeMs)),
		Engine:           pii.EngineRemote,
	}, nil
}
