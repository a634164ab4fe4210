package internal

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphanumeric is the session id alphabet.
const Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RandomAlphanumeric returns n symbols drawn uniformly from [Alphanumeric]
// using crypto/rand.
func RandomAlphanumeric(n int) (string, error) {
	return gonanoid.Generate(Alphanumeric, n)
}

// IsAlphanumeric reports whether s only contains symbols of [Alphanumeric].
func IsAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
