package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/internal"
)

// IDGenerator produces candidate session ids. Uniqueness is checked by the
// manager, not the generator.
type IDGenerator interface {
	Generate(length int) (string, error)
}

// NanoIDGenerator draws ids uniformly from the 62-symbol alphanumeric
// alphabet. A 26-symbol id carries about 154 bits of entropy.
type NanoIDGenerator struct{}

// Generate returns a random alphanumeric id of the given length.
func (NanoIDGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("session id length must be > 0")
	}
	return internal.RandomAlphanumeric(length)
}

// validID reports whether an inbound id has the configured shape.
func validID(id string, length int) bool {
	return len(id) == length && internal.IsAlphanumeric(id)
}
