package tokenAuth

import (
	"testing"
	"time"
)

func TestDefaultConfigLifetimes(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.JWT.AccessTTL != time.Hour {
		t.Fatalf("expected 1h access TTL, got %s", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %s", cfg.JWT.RefreshTTL)
	}
	if cfg.Account.DefaultRole != RoleUser {
		t.Fatalf("expected ROLE_USER default, got %s", cfg.Account.DefaultRole)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with secret", mutate: func(c *Config) {}, wantValid: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = nil }, wantValid: false},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = []byte("short") }, wantValid: false},
		{
			name: "short secret allowed",
			mutate: func(c *Config) {
				c.JWT.Secret = []byte("short")
				c.JWT.AllowWeakSecret = true
			},
			wantValid: true,
		},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantValid: false},
		{name: "zero refresh ttl", mutate: func(c *Config) { c.JWT.RefreshTTL = 0 }, wantValid: false},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.JWT.RefreshTTL = 30 * time.Minute }, wantValid: false},
		{name: "negative attempts", mutate: func(c *Config) { c.Security.MaxLoginAttempts = -1 }, wantValid: false},
		{name: "throttle without window", mutate: func(c *Config) { c.Security.LoginWindow = 0 }, wantValid: false},
		{
			name: "throttle disabled without window",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 0
				c.Security.LoginWindow = 0
			},
			wantValid: true,
		},
		{name: "unknown default role", mutate: func(c *Config) { c.Account.DefaultRole = "ROLE_ROOT" }, wantValid: false},
		{
			name: "unknown role ignored when registration disabled",
			mutate: func(c *Config) {
				c.Account.Enabled = false
				c.Account.DefaultRole = ""
			},
			wantValid: true,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderCopiesSecret(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()

	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(newFakeUsers()).WithPasswordHasher(newTestHasher(t)).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	cfg.JWT.Secret[0] ^= 0xff
	if engine.config.JWT.Secret[0] == cfg.JWT.Secret[0] {
		t.Fatal("engine must hold its own copy of the secret")
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithUserProvider(newFakeUsers()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user provider")
	}
	if _, err := New().WithRedis(rdb).WithUserProvider(newFakeUsers()).Build(); err == nil {
		t.Fatal("expected error without secret")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserProvider(newFakeUsers()).WithPasswordHasher(newTestHasher(t))
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}
