package utils

import (
	"strings"
)

const (
	// CountryCallingCode is prepended to bare subscriber numbers. The
	// platform serves a single market, so a single prefix is enough.
	CountryCallingCode = "48"

	subscriberDigits = 9
)

// NormalizePhone canonicalizes a user-supplied phone string into the
// digit-only, country-code-prefixed key used for pending-code storage.
// Malformed input is passed through as its stripped digits; normalization
// never fails.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, CountryCallingCode) && len(digits) == len(CountryCallingCode)+subscriberDigits {
		return digits
	}
	if len(digits) == subscriberDigits {
		return CountryCallingCode + digits
	}
	return digits
}

// PhoneLookupVariants returns the textual forms the client directory may
// have stored for a phone number: the canonical key, its +-prefixed form,
// and the raw input as the caller typed it. Old directory records were
// written inconsistently, so the lookup has to match all three.
func PhoneLookupVariants(raw string) []string {
	normalized := NormalizePhone(raw)
	return []string{normalized, "+" + normalized, raw}
}
