package tokenAuth

import (
	"context"
	"testing"
)

func BenchmarkAuthenticate(b *testing.B) {
	env := newTestEnv(b, testConfig(), nil)
	ts := env.login(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authenticate(ctx, ts.AccessToken); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateParallel(b *testing.B) {
	env := newTestEnv(b, testConfig(), nil)
	ts := env.login(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := env.engine.Authenticate(ctx, ts.AccessToken); err != nil {
				b.Errorf("authenticate failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkReissue(b *testing.B) {
	env := newTestEnv(b, testConfig(), nil)
	refresh := env.login(b).RefreshToken
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ts, err := env.engine.Reissue(ctx, refresh)
		if err != nil {
			b.Fatalf("reissue failed: %v", err)
		}
		refresh = ts.RefreshToken
	}
}

func BenchmarkLogin(b *testing.B) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 0
	env := newTestEnv(b, cfg, nil)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
			b.Fatalf("login failed: %v", err)
		}
	}
}
