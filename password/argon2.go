package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
)

// ErrMalformedHash is returned when a stored hash cannot be decoded.
var ErrMalformedHash = errors.New("malformed password hash")

// Argon2Params are the Argon2id cost parameters used for new hashes.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	Limits      Limits
}

// DefaultArgon2Params returns the OWASP-leaning parameter set used by the server binary.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords as PHC-encoded Argon2id strings.
type Argon2 struct {
	params Argon2Params
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2 validates p and returns a hasher.
func NewArgon2(p Argon2Params) (*Argon2, error) {
	if p.Memory < minMemoryKB {
		return nil, fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	}
	if p.Time < minTimeCost {
		return nil, errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return nil, fmt.Errorf("argon2 salt length must be >= %d", minSaltLength)
	}
	if p.KeyLength < minKeyLength {
		return nil, fmt.Errorf("argon2 key length must be >= %d", minKeyLength)
	}
	p.Limits = p.Limits.withDefaults()
	return &Argon2{params: p}, nil
}

// Hash returns the PHC encoding of plaintext under a fresh random salt.
func (a *Argon2) Hash(plaintext string) (string, error) {
	if err := a.params.Limits.check(plaintext); err != nil {
		return "", err
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Matches reports whether plaintext hashes to encoded. Malformed hashes never match.
func (a *Argon2) Matches(plaintext, encoded string) bool {
	if len(plaintext) > a.params.Limits.MaxBytes {
		return false
	}
	h, err := decodePHC(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.hash)))
	return subtle.ConstantTimeCompare(computed, h.hash) == 1
}

// NeedsRehash reports whether encoded was produced with weaker parameters than the current ones.
func (a *Argon2) NeedsRehash(encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.params.Memory > h.memory ||
		a.params.Time > h.time ||
		a.params.Parallelism > h.parallelism ||
		a.params.KeyLength != uint32(len(h.hash)), nil
}

func decodePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, ErrMalformedHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	h := &phc{}
	if err := h.decodeParams(parts[3]); err != nil {
		return nil, err
	}

	if h.salt, err = decodeB64(parts[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.hash, err = decodeB64(parts[5]); err != nil || len(h.hash) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

// decodeB64 accepts both padded and unpadded encodings; older hashes were written padded.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func (h *phc) decodeParams(part string) error {
	seen := 0
	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: parameter %q", ErrMalformedHash, pair)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return fmt.Errorf("%w: memory", ErrMalformedHash)
			}
			h.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return fmt.Errorf("%w: time", ErrMalformedHash)
			}
			h.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return fmt.Errorf("%w: parallelism", ErrMalformedHash)
			}
			h.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: parameter %q", ErrMalformedHash, k)
		}
		seen++
	}
	if seen != 3 {
		return fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	return nil
}
