// Package config loads the tokenauth-server settings from TOKENAUTH_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Server is the full server configuration.
type Server struct {
	Addr            string        `env:"TOKENAUTH_ADDR"             envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"TOKENAUTH_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"TOKENAUTH_LOG_LEVEL"        envDefault:"info"`

	JWTSecret  string        `env:"TOKENAUTH_JWT_SECRET,required,unset"`
	JWTIssuer  string        `env:"TOKENAUTH_JWT_ISSUER"`
	AccessTTL  time.Duration `env:"TOKENAUTH_ACCESS_TTL"  envDefault:"1h"`
	RefreshTTL time.Duration `env:"TOKENAUTH_REFRESH_TTL" envDefault:"168h"`

	RedisAddr     string `env:"TOKENAUTH_REDIS_ADDR"           envDefault:"localhost:6379"`
	RedisPassword string `env:"TOKENAUTH_REDIS_PASSWORD,unset"`
	RedisDB       int    `env:"TOKENAUTH_REDIS_DB"             envDefault:"0"`

	// SQLitePath selects the SQLite account store; empty keeps accounts in memory.
	SQLitePath string `env:"TOKENAUTH_SQLITE_PATH"`

	SecureCookies    bool          `env:"TOKENAUTH_SECURE_COOKIES"     envDefault:"true"`
	MaxLoginAttempts int           `env:"TOKENAUTH_MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginWindow      time.Duration `env:"TOKENAUTH_LOGIN_WINDOW"       envDefault:"15m"`
	RegistrationOpen bool          `env:"TOKENAUTH_REGISTRATION_OPEN"  envDefault:"true"`
	AuditLog         bool          `env:"TOKENAUTH_AUDIT_LOG"          envDefault:"false"`

	// RequestRate is the sustained per-IP request rate on /api/auth/*, per second.
	RequestRate  float64 `env:"TOKENAUTH_REQUEST_RATE"  envDefault:"5"`
	RequestBurst int     `env:"TOKENAUTH_REQUEST_BURST" envDefault:"10"`
}

// Load parses the process environment.
func Load() (Server, error) {
	return parse(env.Options{})
}

// LoadFrom parses environ instead of the process environment.
func LoadFrom(environ map[string]string) (Server, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	if s.RequestRate < 0 || s.RequestBurst < 0 {
		return errors.New("TOKENAUTH_REQUEST_RATE and TOKENAUTH_REQUEST_BURST must be >= 0")
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	engine := s.Engine()
	return engine.Validate()
}

// Level returns the zerolog level named by LogLevel.
func (s Server) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("TOKENAUTH_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Engine maps the server settings onto the engine configuration.
func (s Server) Engine() tokenAuth.Config {
	cfg := tokenAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(s.JWTSecret)
	cfg.JWT.Issuer = s.JWTIssuer
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.JWT.RefreshTTL = s.RefreshTTL
	cfg.Security.MaxLoginAttempts = s.MaxLoginAttempts
	cfg.Security.LoginWindow = s.LoginWindow
	cfg.Account.Enabled = s.RegistrationOpen
	cfg.Audit.Enabled = s.AuditLog
	return cfg
}
