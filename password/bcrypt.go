package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and verifies passwords with bcrypt. It exists so accounts migrated from a
// bcrypt-based store keep working.
type Bcrypt struct {
	cost   int
	limits Limits
}

// NewBcrypt returns a bcrypt hasher. A zero cost selects bcrypt.DefaultCost.
func NewBcrypt(cost int, limits Limits) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	limits = limits.withDefaults()
	// bcrypt silently ignores input past 72 bytes.
	if limits.MaxBytes > 72 {
		limits.MaxBytes = 72
	}
	return &Bcrypt{cost: cost, limits: limits}, nil
}

// Hash returns the bcrypt encoding of plaintext.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if err := b.limits.check(plaintext); err != nil {
		return "", err
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Matches reports whether plaintext matches the bcrypt hash.
func (b *Bcrypt) Matches(plaintext, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext)) == nil
}
