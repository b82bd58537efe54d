package phone

import (
	"strings"

	"golang.org/x/text/width"
)

// Reason explains why a number failed validation.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonEmptyValue      Reason = "empty_value"
	ReasonFormatError     Reason = "format_error"
	ReasonInvalidAreaCode Reason = "invalid_area_code"
	ReasonDummyPattern    Reason = "dummy_pattern"
)

// ValidationResult is the outcome of Format. Failures are values, never errors.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
}

// Number is a resolved phone number split into its dialing groups.
type Number struct {
	Digits     string
	AreaCode   AreaCode
	Exchange   string
	Subscriber string
}

// String renders the number as area-exchange-subscriber.
func (n Number) String() string {
	return n.AreaCode.Prefix + "-" + n.Exchange + "-" + n.Subscriber
}

const (
	minDigits = 9
	maxDigits = 11
)

// countryPrefixes are surface forms that carry the Korean country code.
var countryPrefixes = []string{"+82", "0082", "82-", "82 ", "82."}

// knownDummies are literal placeholder numbers seen on template sites.
var knownDummies = map[string]bool{
	"01012345678": true,
	"01012341234": true,
	"01098765432": true,
	"01000000000": true,
}

// Format normalizes raw into area-exchange-subscriber form and validates it
// against the area-code table. It is pure and idempotent on its own output.
func Format(raw string) ValidationResult {
	n, reason := Parse(raw)
	if reason != ReasonNone {
		return ValidationResult{Reason: reason}
	}
	return ValidationResult{Valid: true, Formatted: n.String()}
}

// Parse resolves raw into a Number, or returns the reason it cannot.
func Parse(raw string) (Number, Reason) {
	digits := normalizeDigits(raw)
	if digits == "" {
		return Number{}, ReasonEmptyValue
	}
	if len(digits) < minDigits || len(digits) > maxDigits {
		return Number{}, ReasonFormatError
	}
	if isPlaceholder(digits) {
		return Number{}, ReasonDummyPattern
	}

	ac, ok := LookupAreaCode(digits)
	if !ok {
		return Number{}, ReasonInvalidAreaCode
	}
	if len(digits) < ac.MinLength || len(digits) > ac.MaxLength {
		return Number{}, ReasonFormatError
	}

	n := split(digits, ac)
	if isPlaceholderGroups(n) {
		return Number{}, ReasonDummyPattern
	}
	return n, ReasonNone
}

// Digits returns the domestic digit string for raw, with any country code
// replaced by the leading zero.
func Digits(raw string) string {
	return normalizeDigits(raw)
}

func normalizeDigits(raw string) string {
	s := strings.TrimSpace(width.Narrow.String(raw))

	country := false
	for _, p := range countryPrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			country = true
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if country {
		digits = "0" + strings.TrimLeft(digits, "0")
	}
	return digits
}

// split assigns the digits after the area code to exchange and subscriber.
// The subscriber is always the last four digits.
func split(digits string, ac AreaCode) Number {
	rest := digits[len(ac.Prefix):]
	return Number{
		Digits:     digits,
		AreaCode:   ac,
		Exchange:   rest[:len(rest)-4],
		Subscriber: rest[len(rest)-4:],
	}
}

func isPlaceholder(digits string) bool {
	if knownDummies[digits] {
		return true
	}
	if sameDigit(digits) {
		return true
	}
	return sequential(digits)
}

func isPlaceholderGroups(n Number) bool {
	if sameDigit(n.Exchange + n.Subscriber) {
		return true
	}
	return strings.Trim(n.Subscriber, "0") == ""
}

func sameDigit(s string) bool {
	if s == "" {
		return false
	}
	return strings.Count(s, s[:1]) == len(s)
}

// sequential reports whether every digit is one more (or one less) than the
// previous one, as in 0123456789.
func sequential(s string) bool {
	if len(s) < 2 {
		return false
	}
	step := int(s[1]) - int(s[0])
	if step != 1 && step != -1 {
		return false
	}
	for i := 2; i < len(s); i++ {
		if int(s[i])-int(s[i-1]) != step {
			return false
		}
	}
	return true
}
