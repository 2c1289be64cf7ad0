package models

import "strings"

// ZeroAddress is the canonical empty principal.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lower-cases and trims a principal so that comparisons are
// case-insensitive.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsZeroAddress reports whether addr is empty or consists only of zero hex digits.
func IsZeroAddress(addr string) bool {
	a := NormalizeAddress(addr)
	if a == "" {
		return true
	}
	a = strings.TrimPrefix(a, "0x")
	return strings.Trim(a, "0") == ""
}

// SameAddress compares two principals case-insensitively.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
