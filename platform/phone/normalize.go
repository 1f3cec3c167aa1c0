// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when callers do not configure one.
const DefaultRegion = "IN"

// Normalizer formats numbers to E.164 against a fixed default region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a Normalizer. An empty region falls back to DefaultRegion.
func NewNormalizer(region string) Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return Normalizer{region: region}
}

// Normalize formats a phone number to E.164. If parsing fails, or the number
// is not valid for its region, it falls back to Canonical so that the same
// digits written with different separators still dedupe.
func (n Normalizer) Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return Canonical(trimmed)
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Canonical strips everything but digits, keeping a leading plus. Input
// without any digits is returned trimmed.
func Canonical(input string) string {
	trimmed := strings.TrimSpace(input)
	digits := Digits(trimmed)
	if digits == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits
	}
	return digits
}

// NormalizeE164 formats input using DefaultRegion.
func NormalizeE164(input string) string {
	return NewNormalizer(DefaultRegion).Normalize(input)
}

// Digits returns only the decimal digits of input.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
