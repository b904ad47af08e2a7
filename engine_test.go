package tokenAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenAuth/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func parseWithTestSecret(t *testing.T, env *testEnv, token string) *jwt.Claims {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		Secret:     []byte(testSecret),
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
		Clock:      env.clock.Now,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return claims
}

func TestLoginIssuesTokenSetAndStoresRefresh(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)

	if ts.RefreshTokenExpirationTime != 604800000 {
		t.Fatalf("expected refresh expiration 604800000ms, got %d", ts.RefreshTokenExpirationTime)
	}

	stored, ok := env.storedRefresh(t)
	if !ok || stored != ts.RefreshToken {
		t.Fatalf("expected RT record to hold the issued refresh token")
	}
	if ttl := env.mr.TTL("RT:" + testEmail); ttl != 7*24*time.Hour {
		t.Fatalf("expected RT ttl 7d, got %s", ttl)
	}

	access := parseWithTestSecret(t, env, ts.AccessToken)
	if access.MemberID == nil || *access.MemberID != env.member.MemberID || access.Role != string(RoleUser) {
		t.Fatalf("unexpected access claims: %+v", access)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected access lifetime 1h, got %s", got)
	}

	refresh := parseWithTestSecret(t, env, ts.RefreshToken)
	if refresh.Email() != testEmail || refresh.MemberID != nil || refresh.Role != "" {
		t.Fatalf("refresh token must carry the subject only: %+v", refresh)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()

	_, errUnknown := env.engine.Login(ctx, "nobody@example.com", testPassword)
	_, errWrong := env.engine.Login(ctx, testEmail, "wrong-password-456")

	if !errors.Is(errUnknown, ErrUnauthenticated) || !errors.Is(errWrong, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for both, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("unknown email and wrong password must look the same: %q vs %q", errUnknown, errWrong)
	}
	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("failed login must not create a refresh record")
	}
}

func TestLoginOverwritesPreviousSession(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	first := env.login(t)
	second := env.login(t)

	if first.RefreshToken == second.RefreshToken {
		t.Fatal("expected distinct refresh tokens across logins")
	}
	if stored, _ := env.storedRefresh(t); stored != second.RefreshToken {
		t.Fatal("expected latest login to own the refresh record")
	}

	if _, err := env.engine.Reissue(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected the superseded refresh token to be treated as reuse, got %v", err)
	}
}

func TestLoginStoreFailureReturnsNoTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 0
	env := newTestEnv(t, cfg, nil)
	env.mr.Close()

	ts, err := env.engine.Login(context.Background(), testEmail, testPassword)
	if !errors.Is(err, ErrSessionWriteFailed) || !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrSessionWriteFailed wrapping ErrRedisUnavailable, got %v", err)
	}
	if ts != (TokenSet{}) {
		t.Fatal("expected no tokens when the refresh record cannot be stored")
	}
}

func TestLoginThrottleUnavailableFailsClosed(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.mr.Close()

	if _, err := env.engine.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestLoginRateLimitedAfterFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	env := newTestEnv(t, cfg, nil)
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 2; i++ {
		if _, err := env.engine.Login(ctx, testEmail, "wrong-password-456"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("attempt %d: expected ErrUnauthenticated, got %v", i, err)
		}
	}
	if _, err := env.engine.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	env.mr.FastForward(cfg.Security.LoginWindow + time.Second)
	if _, err := env.engine.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("expected login after window to succeed, got %v", err)
	}
	if env.mr.Exists("LA:" + testEmail) {
		t.Fatal("expected successful login to clear the failure counter")
	}
}

func TestLoginRateLimitIgnoresEmailCase(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.EnableIPThrottle = false
	env := newTestEnv(t, cfg, nil)
	ctx := context.Background()

	for _, email := range []string{testEmail, "Alice@Example.com"} {
		if _, err := env.engine.Login(ctx, email, "wrong-password-456"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", email, err)
		}
	}
	for _, email := range []string{testEmail, strings.ToUpper(testEmail), " aLiCe@example.COM "} {
		if _, err := env.engine.Login(ctx, email, testPassword); !errors.Is(err, ErrLoginRateLimited) {
			t.Fatalf("%q: expected ErrLoginRateLimited, got %v", email, err)
		}
	}
}

func TestReissueRotatesRefreshRecord(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)
	env.clock.Advance(time.Minute)

	next, err := env.engine.Reissue(context.Background(), ts.RefreshToken)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if next.RefreshToken == ts.RefreshToken || next.AccessToken == ts.AccessToken {
		t.Fatal("expected a new token pair")
	}
	if stored, _ := env.storedRefresh(t); stored != next.RefreshToken {
		t.Fatal("expected RT record to hold the rotated refresh token")
	}
	if ttl := env.mr.TTL("RT:" + testEmail); ttl != 7*24*time.Hour {
		t.Fatalf("expected rotated record ttl 7d, got %s", ttl)
	}

	if _, err := env.engine.Reissue(context.Background(), next.RefreshToken); err != nil {
		t.Fatalf("expected chained reissue to succeed, got %v", err)
	}
}

func TestReissueReplayDestroysSession(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	ts := env.login(t)

	next, err := env.engine.Reissue(ctx, ts.RefreshToken)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}

	if _, err := env.engine.Reissue(ctx, ts.RefreshToken); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected on replay, got %v", err)
	}
	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("expected replay to delete the refresh record")
	}

	if _, err := env.engine.Reissue(ctx, next.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected legitimate holder to be logged out, got %v", err)
	}
}

func TestReissueWithAccessTokenIsReuse(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)

	if _, err := env.engine.Reissue(context.Background(), ts.AccessToken); !errors.Is(err, ErrTokenReuseDetected) {
		t.Fatalf("expected ErrTokenReuseDetected, got %v", err)
	}
	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("expected mismatch to delete the refresh record")
	}
}

func TestReissueRejectsInvalidAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	ts := env.login(t)

	if _, err := env.engine.Reissue(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	env.clock.Advance(7*24*time.Hour + time.Second)
	if _, err := env.engine.Reissue(ctx, ts.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired refresh token, got %v", err)
	}
	if _, ok := env.storedRefresh(t); !ok {
		t.Fatal("an invalid token must not touch the refresh record")
	}
}

func TestReissueAfterRecordExpiry(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)

	env.mr.FastForward(7*24*time.Hour + time.Second)
	if _, err := env.engine.Reissue(context.Background(), ts.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestReissueRereadsRole(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)
	env.users.setRole(testEmail, RoleAdmin)

	next, err := env.engine.Reissue(context.Background(), ts.RefreshToken)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	p, err := env.engine.Authenticate(context.Background(), next.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if len(p.Roles) != 1 || p.Roles[0] != RoleAdmin {
		t.Fatalf("expected reissued token to carry ROLE_ADMIN, got %v", p.Roles)
	}
}

func TestReissueAccountGone(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)
	env.users.remove(testEmail)

	if _, err := env.engine.Reissue(context.Background(), ts.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("expected refresh record of a deleted account to be removed")
	}
}

func TestReissueStoreFailureSurfaces(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)
	env.mr.Close()

	if _, err := env.engine.Reissue(context.Background(), ts.RefreshToken); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestLogoutBlacklistsForRemainingLifetime(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	ts := env.login(t)

	env.clock.Advance(20 * time.Minute)
	if err := env.engine.Logout(ctx, ts.AccessToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("expected logout to delete the refresh record")
	}
	v, err := env.mr.Get("BL:" + ts.AccessToken)
	if err != nil || v != "logout" {
		t.Fatalf("expected BL entry with value logout, got %q %v", v, err)
	}
	if ttl := env.mr.TTL("BL:" + ts.AccessToken); ttl != 40*time.Minute {
		t.Fatalf("expected BL ttl 40m, got %s", ttl)
	}

	if _, err := env.engine.Authenticate(ctx, ts.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
	if _, err := env.engine.Reissue(ctx, ts.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
}

func TestLogoutAcceptsExpiredToken(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)

	env.clock.Advance(2 * time.Hour)
	if err := env.engine.Logout(context.Background(), ts.AccessToken); err != nil {
		t.Fatalf("expected expired token logout to succeed, got %v", err)
	}
	if _, ok := env.storedRefresh(t); ok {
		t.Fatal("expected refresh record to be deleted")
	}
	if env.mr.Exists("BL:" + ts.AccessToken) {
		t.Fatal("expected no blacklist entry for an already-expired token")
	}
}

func TestLogoutRejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := env.login(t)

	if err := env.engine.Logout(context.Background(), ts.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if env.mr.Exists("BL:" + ts.RefreshToken) {
		t.Fatal("refresh token must not be blacklisted")
	}
	if stored, ok := env.storedRefresh(t); !ok || stored != ts.RefreshToken {
		t.Fatal("expected refresh record to survive a rejected logout")
	}
}

func TestLogoutRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	env.login(t)

	if err := env.engine.Logout(context.Background(), "a.b.c"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, ok := env.storedRefresh(t); !ok {
		t.Fatal("invalid logout must not touch the refresh record")
	}
}

func TestAuthenticateOutcomes(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()
	ts := env.login(t)
	before := env.users.calls()

	p, err := env.engine.Authenticate(ctx, ts.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if p.MemberID != env.member.MemberID || p.Email != testEmail || !p.HasRole(RoleUser) || p.HasRole(RoleAdmin) {
		t.Fatalf("unexpected principal %+v", p)
	}
	if env.users.calls() != before {
		t.Fatal("authenticate must not consult the user provider")
	}

	if _, err := env.engine.Authenticate(ctx, ts.RefreshToken); !errors.Is(err, ErrMissingClaim) {
		t.Fatalf("expected refresh token to fail with ErrMissingClaim, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, strings.Repeat("x", 40)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	env.clock.Advance(time.Hour + time.Second)
	if _, err := env.engine.Authenticate(ctx, ts.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthenticateRejectsTokenWithoutRole(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	id := env.member.MemberID
	claims := jwt.Claims{MemberID: &id, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   testEmail,
		IssuedAt:  gjwt.NewNumericDate(env.clock.Now()),
		ExpiresAt: gjwt.NewNumericDate(env.clock.Now().Add(time.Hour)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := env.engine.Authenticate(context.Background(), token); !errors.Is(err, ErrMissingClaim) {
		t.Fatalf("expected ErrMissingClaim, got %v", err)
	}
}

func TestRegisterCreatesUserWithDefaultRole(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ctx := context.Background()

	rec, err := env.engine.Register(ctx, RegisterRequest{
		Email:    " bob@example.com ",
		Password: "bob-password-123",
		Nickname: "bob",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if rec.Email != "bob@example.com" || rec.Role != RoleUser || rec.MemberID == 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.PasswordHash == "bob-password-123" {
		t.Fatal("password must be stored hashed")
	}

	if _, err := env.engine.Login(ctx, "bob@example.com", "bob-password-123"); err != nil {
		t.Fatalf("expected registered user to log in, got %v", err)
	}
	if _, err := env.engine.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "another-pass-1", Nickname: "b2"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := env.engine.Register(ctx, RegisterRequest{Email: "carol@example.com", Password: "short", Nickname: "c"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for short password, got %v", err)
	}
	if _, err := env.engine.Register(ctx, RegisterRequest{Email: "no-at-sign", Password: "long-enough-pass", Nickname: "d"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for malformed email, got %v", err)
	}
}

func TestRegisterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Account.Enabled = false
	env := newTestEnv(t, cfg, nil)

	_, err := env.engine.Register(context.Background(), RegisterRequest{Email: "x@example.com", Password: "long-enough-pass", Nickname: "x"})
	if !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("expected ErrRegistrationDisabled, got %v", err)
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Authenticate(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	if err := env.engine.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	env.mr.Close()
	if err := env.engine.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
