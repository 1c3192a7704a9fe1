package detectors

import (
	"fmt"
	"strings"
)

// EntityType is a closed category of PII the detector recognizes
type EntityType string

const (
	PersonName    EntityType = "PERSON_NAME"
	Email         EntityType = "EMAIL_ADDRESS"
	Phone         EntityType = "PHONE_NUMBER"
	Address       EntityType = "ADDRESS"
	SSN           EntityType = "SSN"
	CreditCard    EntityType = "CREDIT_CARD"
	Date          EntityType = "DATE"
	Location      EntityType = "LOCATION"
	GenericNumber EntityType = "GENERIC_NUMBER"
)

// AllEntityTypes lists every entity type in catalog order
var AllEntityTypes = []EntityType{
	PersonName, Email, Phone, Address, SSN, CreditCard, Location, Date, GenericNumber,
}

// Placeholder returns the static token used when context is not preserved
func (t EntityType) Placeholder() string {
	return "[" + string(t) + "]"
}

// ParseEntityType parses a type name such as "EMAIL_ADDRESS" (case-insensitive)
func ParseEntityType(s string) (EntityType, error) {
	upper := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range AllEntityTypes {
		if t == upper {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type: %q", s)
}

// PrivacyLevel selects the active subset of entity types. Levels are ordered:
// Standard < Enhanced < Maximum.
type PrivacyLevel int

const (
	Standard PrivacyLevel = iota
	Enhanced
	Maximum
)

func (l PrivacyLevel) String() string {
	switch l {
	case Standard:
		return "standard"
	case Enhanced:
		return "enhanced"
	case Maximum:
		return "maximum"
	}
	return fmt.Sprintf("PrivacyLevel(%d)", int(l))
}

// Valid reports whether l is one of the defined levels
func (l PrivacyLevel) Valid() bool {
	return l >= Standard && l <= Maximum
}

// Stricter returns the next level up and false when l is already Maximum
func (l PrivacyLevel) Stricter() (PrivacyLevel, bool) {
	if l >= Maximum {
		return Maximum, false
	}
	return l + 1, true
}

// ParsePrivacyLevel parses "standard", "enhanced" or "maximum"
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return Standard, nil
	case "enhanced":
		return Enhanced, nil
	case "maximum":
		return Maximum, nil
	}
	return Standard, fmt.Errorf("unknown privacy level: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (l PrivacyLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid privacy level: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *PrivacyLevel) UnmarshalText(text []byte) error {
	parsed, err := ParsePrivacyLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// activeTypes maps each level to the entity types it enables
var activeTypes = map[PrivacyLevel]map[EntityType]bool{
	Standard: {PersonName: true, Email: true, Phone: true, Address: true, SSN: true, CreditCard: true},
	Enhanced: {PersonName: true, Email: true, Phone: true, Address: true, SSN: true, CreditCard: true, Location: true},
	Maximum: {
		PersonName: true, Email: true, Phone: true, Address: true, SSN: true, CreditCard: true,
		Location: true, Date: true, GenericNumber: true,
	},
}

// Active reports whether entity type t is enabled at this level
func (l PrivacyLevel) Active(t EntityType) bool {
	return activeTypes[l][t]
}

// EntityMatch is a detected PII span. Start and End are half-open byte
// offsets into the original text.
type EntityMatch struct {
	Start int        `json:"start"`
	End   int        `json:"end"`
	Text  string     `json:"text"`
	Type  EntityType `json:"entity_type"`
}

// Overlaps reports whether the two spans share at least one byte
func (m EntityMatch) Overlaps(o EntityMatch) bool {
	return m.Start < o.End && o.Start < m.End
}
