package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RefreshPrefix namespaces the per-identity refresh token record.
	RefreshPrefix = "RT:"
	// RevocationPrefix namespaces logged-out access tokens.
	RevocationPrefix = "BL:"

	revokedMarker = "logout"
)

// ErrRedisUnavailable wraps every Redis transport or command failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRefreshNotFound is returned when no refresh record exists for the identity.
var ErrRefreshNotFound = errors.New("refresh record not found")

// ErrRefreshMismatch is returned when the presented refresh token is not the one on file.
// The record has already been deleted when this is returned from [Store.RotateRefreshToken].
var ErrRefreshMismatch = errors.New("refresh token mismatch")

// ErrInvalidTTL is returned for non-positive TTLs on writes that require expiry.
var ErrInvalidTTL = errors.New("ttl must be positive")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

// Compare-and-swap on the refresh record. A mismatch kills the record so a replayed token
// also takes the current session down with it.
const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 2
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 3
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// Store is a thin Redis client for refresh records and revocation entries.
type Store struct {
	redis redis.UniversalClient
}

// NewStore creates a [Store] on the given client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

// RefreshKey returns the Redis key of the refresh record for email.
func RefreshKey(email string) string { return RefreshPrefix + email }

// RevocationKey returns the Redis key of the revocation entry for an access token.
func RevocationKey(accessToken string) string { return RevocationPrefix + accessToken }

// SetWithTTL writes value under key with a mandatory expiry.
func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the value under key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SaveRefreshToken overwrites the refresh record for email.
func (s *Store) SaveRefreshToken(ctx context.Context, email, token string, ttl time.Duration) error {
	return s.SetWithTTL(ctx, RefreshKey(email), token, ttl)
}

// RefreshToken returns the live refresh token for email.
func (s *Store) RefreshToken(ctx context.Context, email string) (string, bool, error) {
	return s.Get(ctx, RefreshKey(email))
}

// DeleteRefreshToken removes the refresh record for email.
func (s *Store) DeleteRefreshToken(ctx context.Context, email string) error {
	return s.Delete(ctx, RefreshKey(email))
}

// RotateRefreshToken atomically replaces presented with next when presented is still the
// record on file.
//
//	Performance: 1 Lua EVALSHA.
//	Security: a mismatch deletes the record inside the script.
func (s *Store) RotateRefreshToken(ctx context.Context, email, presented, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	code, err := rotateRefreshLua.Run(ctx, s.redis, []string{RefreshKey(email)}, presented, next, ms).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusMismatch:
		return ErrRefreshMismatch
	case rotateStatusNotFound:
		return ErrRefreshNotFound
	default:
		return fmt.Errorf("%w: unknown rotate status %d", ErrRedisUnavailable, code)
	}
}

// Revoke records accessToken as logged out for ttl. A non-positive ttl writes nothing:
// the token is already past its natural expiry.
func (s *Store) Revoke(ctx context.Context, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.SetWithTTL(ctx, RevocationKey(accessToken), revokedMarker, ttl)
}

// IsRevoked reports whether accessToken has a live revocation entry.
func (s *Store) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	n, err := s.redis.Exists(ctx, RevocationKey(accessToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// RevocationTTL returns the remaining lifetime of the revocation entry, or zero when absent.
func (s *Store) RevocationTTL(ctx context.Context, accessToken string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, RevocationKey(accessToken)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
