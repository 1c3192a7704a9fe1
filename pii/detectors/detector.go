package detectors

const (
	DetectorNameRegex = "regex_detector"
)

// Detector finds PII spans in text. Implementations must be safe for
// concurrent use.
type Detector interface {
	Name() string
	Detect(text string, level PrivacyLevel) []EntityMatch
}
