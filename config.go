package tokenAuth

import (
	"errors"
	"time"
)

// Config is the engine configuration tree.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT      JWTConfig
	Security SecurityConfig
	Account  AccountConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the HS256 secret and token lifetimes.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	// AllowWeakSecret permits secrets shorter than 32 bytes. Never enable in production.
	AllowWeakSecret bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the failed-login throttle. MaxLoginAttempts of zero disables it.
type SecurityConfig struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
	EnableIPThrottle bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration.
type AccountConfig struct {
	Enabled     bool
	DefaultRole Role
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: 1h access tokens, 7d refresh tokens,
// 5 failed logins per 15 minutes, registration as ROLE_USER.
//
// The JWT secret is left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 5,
			LoginWindow:      15 * time.Minute,
			EnableIPThrottle: true,
		},
		Account: AccountConfig{
			Enabled:     true,
			DefaultRole: RoleUser,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if !c.JWT.AllowWeakSecret && len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginWindow <= 0 {
		return errors.New("Security LoginWindow must be > 0 when MaxLoginAttempts is set")
	}

	// Account
	if c.Account.Enabled && c.Account.DefaultRole != RoleUser && c.Account.DefaultRole != RoleAdmin {
		return errors.New("Account DefaultRole must be ROLE_USER or ROLE_ADMIN")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
