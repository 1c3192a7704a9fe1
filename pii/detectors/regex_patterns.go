package detectors

import (
	"regexp"
	"strings"
)

var (
	personNamePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:['-][A-Za-z]+)?(?:[ \t]+[A-Z][a-z]+(?:['-][A-Za-z]+)?)+\b`)
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern      = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)

	streetAddressPattern = regexp.MustCompile(`\b\d{1,5}(?:[ \t]+[A-Z][A-Za-z]*\.?){1,4}[ \t]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Circle|Parkway|Pkwy)\b\.?(?:,?[ \t]+(?:Apt|Suite|Unit)\.?[ \t]*#?[A-Za-z0-9]+)?`)
	poBoxPattern         = regexp.MustCompile(`(?i)\bP\.?[ \t]?O\.?[ \t]+Box[ \t]+\d+\b`)

	ssnPattern        = regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`)
	amexPattern       = regexp.MustCompile(`\b3[47]\d{2}[- ]?\d{6}[- ]?\d{5}\b`)

	cityStatePattern        = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?,[ \t]+[A-Z]{2}\b`)
	prepositionPlacePattern = regexp.MustCompile(`\b(?:in|at|from|near|to|visiting)[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){0,2})\b`)

	isoDatePattern      = regexp.MustCompile(`\b\d{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`)
	numericDatePattern  = regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12]\d|3[01])[/-](?:\d{4}|\d{2})\b`)
	monthDayYearPattern = regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?[ \t]+\d{1,2}(?:st|nd|rd|th)?,?[ \t]+\d{4}\b`)
	dayMonthYearPattern = regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?[ \t]+(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?,?[ \t]+\d{4}\b`)

	genericNumberPattern = regexp.MustCompile(`\b\d{4,}\b`)

	wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
)

// nonNameWords are capitalized words that commonly precede a name at the
// start of a sentence (greetings, titles, pronouns)
var nonNameWords = toSet(
	"Hi", "Hello", "Hey", "Dear", "Thanks", "Thank", "Regards", "Sincerely", "Best", "Cheers",
	"Please", "Yesterday", "Today", "Tomorrow", "Tonight",
	"The", "This", "That", "These", "Those", "A", "An",
	"My", "Our", "Your", "His", "Her", "Their", "Its",
	"Contact", "Call", "Email", "Phone", "Text", "Ask", "Meet", "Met", "Tell", "Told", "Visit",
	"Mr", "Mrs", "Ms", "Miss", "Dr", "Prof", "Sir", "Madam",
	"When", "Then", "And", "But", "If", "So", "Also", "Yes", "No", "Ok", "Okay", "Sure",
	"On", "In", "At",
)

// placePrefixes start multi-word place names that the name rule must leave alone
var placePrefixes = toSet(
	"New", "San", "Santa", "Los", "Las", "Saint", "Fort", "Lake", "Mount", "Port",
	"North", "South", "East", "West", "United", "Great",
)

var streetSuffixes = toSet(
	"Street", "St", "Avenue", "Ave", "Road", "Rd", "Boulevard", "Blvd", "Lane", "Ln",
	"Drive", "Dr", "Court", "Ct", "Way", "Place", "Pl", "Terrace", "Circle", "Parkway", "Pkwy",
)

var calendarWords = toSet(
	"January", "February", "March", "April", "May", "June", "July", "August",
	"September", "October", "November", "December",
	"Jan", "Feb", "Mar", "Apr", "Jun", "Jul", "Aug", "Sep", "Sept", "Oct", "Nov", "Dec",
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
)

var usStates = toSet(
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA", "HI", "ID", "IL", "IN", "IA",
	"KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VT",
	"VA", "WA", "WV", "WI", "WY", "DC",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// acceptPersonName trims greetings, titles and calendar words off a candidate
// name and rejects place names. A leading month or weekday is kept when it is
// needed to make up two words ("June Carter"); a trailing one never is.
func acceptPersonName(text string, start, end int) (int, int, bool) {
	words := wordPattern.FindAllStringIndex(text[start:end], -1)
	word := func(i int) string { return text[start+words[i][0] : start+words[i][1]] }

	first, last := 0, len(words)-1
lead:
	for first <= last {
		switch {
		case nonNameWords[word(first)]:
			first++
		case calendarWords[word(first)] && last-first > 1:
			first++
		default:
			break lead
		}
	}
	for last >= first && calendarWords[word(last)] {
		last--
	}

	// a street suffix leaves only the words before the street name; a
	// candidate that starts right after a house number is all street
	for i := first; i <= last; i++ {
		if streetSuffixes[word(i)] {
			if followsHouseNumber(text, start+words[first][0]) {
				return 0, 0, false
			}
			last = i - 2
			break
		}
	}

	if last-first < 1 {
		return 0, 0, false
	}
	if placePrefixes[word(first)] {
		return 0, 0, false
	}
	return start + words[first][0], start + words[last][1], true
}

// followsHouseNumber reports whether pos is preceded by digits and blanks
func followsHouseNumber(text string, pos int) bool {
	i := pos
	for i > 0 && (text[i-1] == ' ' || text[i-1] == '\t') {
		i--
	}
	return i < pos && i > 0 && text[i-1] >= '0' && text[i-1] <= '9'
}

// acceptCityState keeps "City, ST" only when ST is a US state code
func acceptCityState(text string, start, end int) (int, int, bool) {
	span := text[start:end]
	comma := strings.LastIndexByte(span, ',')
	if comma < 0 {
		return 0, 0, false
	}
	state := strings.TrimSpace(span[comma+1:])
	if !usStates[state] {
		return 0, 0, false
	}
	city := strings.Fields(span[:comma])
	if len(city) > 0 && (nonNameWords[city[0]] || calendarWords[city[0]]) {
		return 0, 0, false
	}
	return start, end, true
}

// acceptPlace rejects prepositional phrases that name a date or a pronoun
// rather than a place
func acceptPlace(text string, start, end int) (int, int, bool) {
	words := strings.Fields(text[start:end])
	if len(words) == 0 {
		return 0, 0, false
	}
	for _, w := range words {
		if calendarWords[w] || nonNameWords[w] {
			return 0, 0, false
		}
	}
	return start, end, true
}

// digitBounded rejects matches that are part of a longer run of digits
func digitBounded(text string, start, end int) (int, int, bool) {
	if start > 0 && isDigit(text[start-1]) {
		return 0, 0, false
	}
	if end < len(text) && isDigit(text[end]) {
		return 0, 0, false
	}
	return start, end, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
