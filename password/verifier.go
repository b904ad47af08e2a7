package password

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxBytes bounds plaintext length to keep hashing cost predictable.
const DefaultMaxBytes = 1024

// DefaultMinBytes is the shortest password accepted for new hashes.
const DefaultMinBytes = 8

// ErrPasswordLength is returned by Hash when plaintext is outside the configured bounds.
var ErrPasswordLength = errors.New("password length out of bounds")

// Limits bounds plaintext length on hashing. Zero fields take the defaults.
type Limits struct {
	MinBytes int
	MaxBytes int
}

func (l Limits) withDefaults() Limits {
	if l.MinBytes <= 0 {
		l.MinBytes = DefaultMinBytes
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	return l
}

func (l Limits) check(plaintext string) error {
	if len(plaintext) < l.MinBytes || len(plaintext) > l.MaxBytes {
		return fmt.Errorf("%w: must be %d..%d bytes", ErrPasswordLength, l.MinBytes, l.MaxBytes)
	}
	return nil
}

// Hasher is the pair of operations every scheme in this package provides.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, encoded string) bool
}

// Multi hashes with Primary and verifies against whichever scheme produced the stored hash.
type Multi struct {
	Primary Hasher
	Argon2  *Argon2
	Bcrypt  *Bcrypt
}

// Hash delegates to Primary.
func (m *Multi) Hash(plaintext string) (string, error) {
	return m.Primary.Hash(plaintext)
}

// Matches dispatches on the hash prefix. Unknown formats never match.
func (m *Multi) Matches(plaintext, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix) && m.Argon2 != nil:
		return m.Argon2.Matches(plaintext, encoded)
	case isBcrypt(encoded) && m.Bcrypt != nil:
		return m.Bcrypt.Matches(plaintext, encoded)
	default:
		return false
	}
}

func isBcrypt(encoded string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}
