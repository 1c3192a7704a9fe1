package detectors

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// OverlayFile is the YAML document accepted by Catalog.WithOverlay:
//
//	rules:
//	  - type: EMAIL_ADDRESS
//	    pattern: '\b[a-z]+ at [a-z]+ dot com\b'
//	  - type: GENERIC_NUMBER
//	    pattern: 'Order #(\d+)'
//	    group: 1
type OverlayFile struct {
	Rules []OverlayRule `yaml:"rules"`
}

type OverlayRule struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
	Group   int    `yaml:"group"`
	// DigitBounded rejects matches that touch another digit
	DigitBounded bool `yaml:"digit_bounded"`
}

// WithOverlay returns a new catalog with the rules from the YAML file at path
// appended after the built-in rules of their type. The receiver is not
// modified.
func (c *Catalog) WithOverlay(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog overlay: %w", err)
	}
	return c.WithOverlayYAML(data)
}

// WithOverlayYAML is WithOverlay for an in-memory document
func (c *Catalog) WithOverlayYAML(data []byte) (*Catalog, error) {
	var file OverlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog overlay: %w", err)
	}

	extra := make([]Rule, 0, len(file.Rules))
	for i, or := range file.Rules {
		t, err := ParseEntityType(or.Type)
		if err != nil {
			return nil, fmt.Errorf("overlay rule %d: %w", i, err)
		}
		if or.Pattern == "" {
			return nil, fmt.Errorf("overlay rule %d (%s): empty pattern", i, t)
		}
		re, err := regexp.Compile(or.Pattern)
		if err != nil {
			return nil, fmt.Errorf("overlay rule %d (%s): %w", i, t, err)
		}
		rule := Rule{Type: t, Pattern: re, Group: or.Group}
		if or.DigitBounded {
			rule.Accept = digitBounded
		}
		extra = append(extra, rule)
	}
	return c.withExtraRules(extra)
}
