// Package cardid normalizes card identifiers ("cd") to their canonical
// fixed-width form.
package cardid

import (
	"strconv"
	"strings"
)

// Width is the number of digits in a canonical card id.
const Width = 5

// Normalize returns the canonical form of a card id: surrounding whitespace
// removed and numeric ids left-padded with zeros to Width digits.
// Non-numeric ids are returned trimmed but otherwise untouched.
func Normalize(cd string) string {
	cd = strings.TrimSpace(cd)
	if cd == "" {
		return ""
	}
	for _, r := range cd {
		if r < '0' || r > '9' {
			return cd
		}
	}
	if len(cd) >= Width {
		return cd
	}
	return strings.Repeat("0", Width-len(cd)) + cd
}

// FromInt formats a numeric card id in canonical form.
func FromInt(n int) string {
	return Normalize(strconv.Itoa(n))
}

// Valid reports whether cd normalizes to a non-empty id.
func Valid(cd string) bool {
	return Normalize(cd) != ""
}
