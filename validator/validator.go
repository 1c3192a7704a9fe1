// Package validator is the post-hoc gate callers run on a sanitization result
// before persisting it. It is never run by the sanitizer itself.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hannes/pellucid-sanitizer/pii"
)

// MinPrivacyScore is the lowest acceptable score
const MinPrivacyScore = 0.70

var ErrValidationFailed = errors.New("validation failed")

// Error lists every reason a result failed. errors.Is(err, ErrValidationFailed) holds.
type Error struct {
	Reasons []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(e.Reasons, "; "))
}

func (e *Error) Unwrap() error {
	return ErrValidationFailed
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})\b`)
	ssnPattern   = regexp.MustCompile(`\b(\d{3})[- ](\d{2})[- ](\d{4})\b`)
	phonePattern = regexp.MustCompile(`(?:\(\d{3}\)|\b\d{3})[-.\s]?(\d{3})[-.\s]?(\d{4})\b`)
)

// reservedDomains are the RFC 2606 second-level names; reservedTLDs the
// reserved top-level names
var (
	reservedDomains = []string{"example.com", "example.org", "example.net"}
	reservedTLDs    = []string{".example", ".test", ".invalid", ".localhost"}
)

// IsSafe reports whether result passes every check
func IsSafe(result pii.SanitizationResult) bool {
	return Check(result) == nil
}

// Check returns nil for a safe result and an *Error naming each failed check
// otherwise
func Check(result pii.SanitizationResult) error {
	var reasons []string
	text := result.SanitizedText

	if n := countLeaks(emailPattern, text, reservedEmail); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d residual email address(es)", n))
	}
	if n := countLeaks(ssnPattern, text, reservedSSN); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d residual SSN(s)", n))
	}
	if n := countLeaks(phonePattern, text, reservedPhone); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d residual phone number(s)", n))
	}
	if result.PrivacyScore < MinPrivacyScore {
		reasons = append(reasons, fmt.Sprintf("privacy score %.2f below %.2f", result.PrivacyScore, MinPrivacyScore))
	}

	if len(reasons) == 0 {
		return nil
	}
	return &Error{Reasons: reasons}
}

func countLeaks(re *regexp.Regexp, text string, reserved func(groups []string) bool) int {
	n := 0
	for _, groups := range re.FindAllStringSubmatch(text, -1) {
		if !reserved(groups) {
			n++
		}
	}
	return n
}

func reservedEmail(groups []string) bool {
	domain := strings.ToLower(groups[1])
	for _, d := range reservedDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, tld := range reservedTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// reservedSSN accepts only area 000, the range synthetic SSNs are drawn from.
// 9xx numbers are live ITINs and still count as leaks.
func reservedSSN(groups []string) bool {
	return groups[1] == "000"
}

// reservedPhone accepts the fictional 555-0100 through 555-0199 range
func reservedPhone(groups []string) bool {
	return groups[1] == "555" && strings.HasPrefix(groups[2], "01")
}
