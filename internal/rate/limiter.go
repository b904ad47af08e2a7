package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	emailPrefix = "LA:"
	ipPrefix    = "LAI:"
)

var (
	// ErrRateLimited is returned once a counter has exceeded its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter read and write failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds failed-login budgets. MaxAttempts <= 0 disables the throttle.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
}

// Limiter counts failed logins per email and, optionally, per IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] on the given client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// Enabled reports whether any budget is configured.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxAttempts > 0 && l.config.Window > 0
}

// Check returns ErrRateLimited when the email or IP budget is already spent.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		n, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if n >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// Fail records a failed attempt. The returned error is ErrRateLimited when this attempt
// spent the last unit of budget.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	limited := false
	for _, key := range l.keys(email, ip) {
		n, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		// The window opens on the first failure.
		if n == 1 {
			if err := l.redis.PExpire(ctx, key, l.config.Window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		if n >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the email counter after a successful login. The IP counter is shared by
// every account behind that address and only expires with its window.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failed-attempt count for email. Missing keys count as zero.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	n, err := l.redis.Get(ctx, emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// emailKey folds case so every spelling of an address shares one budget, matching the
// case-insensitive account lookup.
func emailKey(email string) string {
	return emailPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{emailKey(email)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, ipPrefix+ip)
	}
	return keys
}
