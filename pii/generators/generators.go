package generators

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Generator produces a synthetic value of the same kind as original. The
// original is only inspected for its shape, never copied into the output.
type Generator func(rng *rand.Rand, original string) string

// ReservedEmailDomains are the RFC 2606 domains synthetic emails are drawn from
var ReservedEmailDomains = []string{"example.com", "example.org", "example.net", "mail.example", "corp.test"}

var firstNames = []string{
	"Avery", "Blake", "Cameron", "Dana", "Elliot", "Frances", "Glenn", "Harper",
	"Imani", "Jordan", "Kai", "Lena", "Marlon", "Noor", "Oskar", "Priya",
	"Quinn", "Rosa", "Soren", "Tamar", "Uma", "Viktor", "Wren", "Yusuf", "Zoe",
}

var lastNames = []string{
	"Abara", "Bellamy", "Castillo", "Dunmore", "Eklund", "Fairbanks", "Gallo", "Hollis",
	"Iwata", "Jaramillo", "Kowal", "Lindqvist", "Mbatha", "Navarro", "Okafor", "Pryce",
	"Quintero", "Rahimi", "Sato", "Thorne", "Underhill", "Vance", "Whitlock", "Yilmaz",
}

var cities = []string{
	"Anytown", "Springfield", "Riverton", "Fairview", "Lakeside", "Millbrook",
	"Cedar Falls", "Oakridge", "Pleasantville", "Brookhaven", "Maplewood", "Eastport",
}

var stateCodes = []string{"AA", "ZZ", "XX"}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// PersonNameGenerator returns a random first and last name
func PersonNameGenerator(rng *rand.Rand, original string) string {
	return firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
}

// EmailGenerator returns an address on a reserved documentation domain
func EmailGenerator(rng *rand.Rand, original string) string {
	first := strings.ToLower(firstNames[rng.Intn(len(firstNames))])
	last := strings.ToLower(lastNames[rng.Intn(len(lastNames))])
	domain := ReservedEmailDomains[rng.Intn(len(ReservedEmailDomains))]
	return fmt.Sprintf("%s.%s@%s", first, last, domain)
}

// PhoneGenerator returns a number from the 555-0100..555-0199 fictional range
func PhoneGenerator(rng *rand.Rand, original string) string {
	return fmt.Sprintf("(555) 555-01%02d", rng.Intn(100))
}

// AddressGenerator returns the canonical placeholder address
func AddressGenerator(rng *rand.Rand, original string) string {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(original)), "P") {
		return "PO Box 0000"
	}
	return "123 Main Street"
}

// SSNGenerator returns an SSN in the never-issued 000 area
func SSNGenerator(rng *rand.Rand, original string) string {
	return fmt.Sprintf("000-%02d-%04d", 1+rng.Intn(99), rng.Intn(10000))
}

// CreditCardGenerator returns a masked card number with random trailing digits
func CreditCardGenerator(rng *rand.Rand, original string) string {
	return fmt.Sprintf("XXXX-XXXX-XXXX-%04d", rng.Intn(10000))
}

// DateGenerator returns a random date, keeping the layout of the original
func DateGenerator(rng *rand.Rand, original string) string {
	year := 1950 + rng.Intn(55)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)

	switch {
	case len(original) == 10 && original[4] == '-':
		return fmt.Sprintf("%d-%02d-%02d", year, month, day)
	case strings.ContainsAny(original, "/-"):
		sep := "/"
		if strings.Contains(original, "-") {
			sep = "-"
		}
		return fmt.Sprintf("%02d%s%02d%s%d", month, sep, day, sep, year)
	case len(original) > 0 && original[0] >= '0' && original[0] <= '9':
		return fmt.Sprintf("%d %s %d", day, monthNames[month-1], year)
	}
	return fmt.Sprintf("%s %d, %d", monthNames[month-1], day, year)
}

// LocationGenerator returns a synthetic city, with a placeholder state code
// when the original carried one
func LocationGenerator(rng *rand.Rand, original string) string {
	city := cities[rng.Intn(len(cities))]
	if strings.Contains(original, ",") {
		return city + ", " + stateCodes[rng.Intn(len(stateCodes))]
	}
	return city
}

// GenericNumberGenerator masks the number with up to six X characters
func GenericNumberGenerator(rng *rand.Rand, original string) string {
	n := len(original)
	if n > 6 {
		n = 6
	}
	if n < 1 {
		n = 1
	}
	return "[" + strings.Repeat("X", n) + "]"
}

// PlaceholderGenerator returns the static [TYPE] token for t
func PlaceholderGenerator(t detectors.EntityType) Generator {
	token := t.Placeholder()
	return func(*rand.Rand, string) string { return token }
}

var byType = map[detectors.EntityType]Generator{
	detectors.PersonName:    PersonNameGenerator,
	detectors.Email:         EmailGenerator,
	detectors.Phone:         PhoneGenerator,
	detectors.Address:       AddressGenerator,
	detectors.SSN:           SSNGenerator,
	detectors.CreditCard:    CreditCardGenerator,
	detectors.Date:          DateGenerator,
	detectors.Location:      LocationGenerator,
	detectors.GenericNumber: GenericNumberGenerator,
}

// For returns the synthetic value generator for t, falling back to the
// placeholder for types without one
func For(t detectors.EntityType) Generator {
	if g, ok := byType[t]; ok {
		return g
	}
	return PlaceholderGenerator(t)
}
