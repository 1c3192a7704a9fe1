package detectors

import (
	"fmt"
	"regexp"
)

// AcceptFunc gates a raw regex match. It may narrow the span (returning new
// offsets inside [start, end)) or reject it by returning ok == false.
type AcceptFunc func(text string, start, end int) (newStart, newEnd int, ok bool)

// Rule is a single detection rule for one entity type
type Rule struct {
	Type    EntityType
	Pattern *regexp.Regexp
	// Group selects the capture group whose span is the entity; 0 is the whole match
	Group  int
	Accept AcceptFunc
}

// Entry groups the rules and base confidence of one entity type
type Entry struct {
	Type   EntityType
	Weight float64
	Rules  []Rule
}

// Catalog is an immutable, ordered table of detection rules. Rules are
// applied in entry order; a later rule never claims text already claimed by
// an earlier one.
type Catalog struct {
	entries []Entry
	weights map[EntityType]float64
}

// NewCatalog builds a catalog from entries in the given order
func NewCatalog(entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		weights: make(map[EntityType]float64, len(entries)),
	}
	for _, e := range entries {
		if _, dup := c.weights[e.Type]; dup {
			return nil, fmt.Errorf("duplicate catalog entry for %s", e.Type)
		}
		if e.Weight < 0 || e.Weight > 1 {
			return nil, fmt.Errorf("weight for %s out of range: %v", e.Type, e.Weight)
		}
		rules := make([]Rule, len(e.Rules))
		for i, r := range e.Rules {
			if r.Pattern == nil {
				return nil, fmt.Errorf("rule %d for %s has no pattern", i, e.Type)
			}
			if r.Group < 0 || r.Group > r.Pattern.NumSubexp() {
				return nil, fmt.Errorf("rule %d for %s references missing group %d", i, e.Type, r.Group)
			}
			r.Type = e.Type
			rules[i] = r
		}
		e.Rules = rules
		c.entries = append(c.entries, e)
		c.weights[e.Type] = e.Weight
	}
	return c, nil
}

// RulesFor returns the ordered rules active at the given privacy level
func (c *Catalog) RulesFor(level PrivacyLevel) []Rule {
	var rules []Rule
	for _, e := range c.entries {
		if !level.Active(e.Type) {
			continue
		}
		rules = append(rules, e.Rules...)
	}
	return rules
}

// Weight returns the base confidence of an entity type, 0 if unknown
func (c *Catalog) Weight(t EntityType) float64 {
	return c.weights[t]
}

// Types returns the entity types in catalog order
func (c *Catalog) Types() []EntityType {
	types := make([]EntityType, 0, len(c.entries))
	for _, e := range c.entries {
		types = append(types, e.Type)
	}
	return types
}

// withExtraRules returns a copy of the catalog with rules appended after the
// built-in rules of their type
func (c *Catalog) withExtraRules(extra []Rule) (*Catalog, error) {
	entries := make([]Entry, len(c.entries))
	index := make(map[EntityType]int, len(c.entries))
	for i, e := range c.entries {
		rules := make([]Rule, len(e.Rules))
		copy(rules, e.Rules)
		e.Rules = rules
		entries[i] = e
		index[e.Type] = i
	}
	for _, r := range extra {
		i, ok := index[r.Type]
		if !ok {
			return nil, fmt.Errorf("catalog has no entry for %s", r.Type)
		}
		entries[i].Rules = append(entries[i].Rules, r)
	}
	return NewCatalog(entries...)
}

// DefaultCatalog returns the built-in catalog. The order is
// PersonName, Email, Phone, Address, SSN, CreditCard, Location, Date,
// GenericNumber: the types each stricter level enables sit after every type
// of the lower level.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Entry{Type: PersonName, Weight: 0.75, Rules: []Rule{
			{Pattern: personNamePattern, Accept: acceptPersonName},
		}},
		Entry{Type: Email, Weight: 0.95, Rules: []Rule{
			{Pattern: emailPattern},
		}},
		Entry{Type: Phone, Weight: 0.90, Rules: []Rule{
			{Pattern: phonePattern, Accept: digitBounded},
		}},
		Entry{Type: Address, Weight: 0.85, Rules: []Rule{
			{Pattern: streetAddressPattern},
			{Pattern: poBoxPattern},
		}},
		Entry{Type: SSN, Weight: 0.98, Rules: []Rule{
			{Pattern: ssnPattern, Accept: digitBounded},
		}},
		Entry{Type: CreditCard, Weight: 0.95, Rules: []Rule{
			{Pattern: creditCardPattern, Accept: digitBounded},
			{Pattern: amexPattern, Accept: digitBounded},
		}},
		Entry{Type: Location, Weight: 0.80, Rules: []Rule{
			{Pattern: cityStatePattern, Accept: acceptCityState},
			{Pattern: prepositionPlacePattern, Group: 1, Accept: acceptPlace},
		}},
		Entry{Type: Date, Weight: 0.70, Rules: []Rule{
			{Pattern: isoDatePattern},
			{Pattern: numericDatePattern},
			{Pattern: monthDayYearPattern},
			{Pattern: dayMonthYearPattern},
		}},
		Entry{Type: GenericNumber, Weight: 0.60, Rules: []Rule{
			{Pattern: genericNumberPattern},
		}},
	)
	if err != nil {
		panic(fmt.Sprintf("detectors.DefaultCatalog: %v", err))
	}
	return c
}
