package tokenAuth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokenAuth/internal/flows"
	"github.com/MrEthical07/tokenAuth/internal/rate"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/rs/zerolog"
)

// Engine issues, rotates, validates and revokes token sessions.
//
// Engine holds no per-request state and is safe for concurrent use. Build one with [New].
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	userProvider UserProvider
	userCreator  UserCreator
	verifier     CredentialVerifier
	hasher       PasswordHasher
	audit        *auditDispatcher
	metrics      *Metrics
	log          zerolog.Logger
	now          func() time.Time
	flows        flows.Deps
}

// Close drains and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies credentials and returns a fresh token pair. The refresh token replaces
// any previous one stored for the email, so logging in elsewhere ends earlier sessions'
// ability to reissue.
//
// Unknown emails and wrong passwords both return ErrUnauthenticated. If the refresh
// record cannot be written no tokens are returned and the error matches both
// ErrSessionWriteFailed and ErrRedisUnavailable.
func (e *Engine) Login(ctx context.Context, email, password string) (TokenSet, error) {
	if e == nil || e.jwtManager == nil {
		return TokenSet{}, ErrEngineNotReady
	}
	email = strings.TrimSpace(email)
	ip := clientIPFromContext(ctx)

	res := flows.RunLogin(ctx, email, password, ip, e.flows.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.log.Warn().Str("email", email).Str("ip", ip).Msg("login rate limited")
		e.emitAudit(ctx, auditEventLoginRateLimited, false, 0, email, ErrLoginRateLimited, nil)
		return TokenSet{}, ErrLoginRateLimited
	case flows.LoginFailureUnknownUser, flows.LoginFailureBadPassword:
		reason := "unknown_email"
		if res.Failure == flows.LoginFailureBadPassword {
			reason = "password_mismatch"
		}
		e.metricInc(MetricLoginFailure)
		e.log.Warn().Str("email", email).Str("reason", reason).Msg("login failed")
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Account.MemberID, email, ErrUnauthenticated, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return TokenSet{}, ErrUnauthenticated
	case flows.LoginFailureSessionWrite:
		err := errors.Join(ErrSessionWriteFailed, res.Err)
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStoreFailure)
		e.log.Error().Err(res.Err).Str("email", email).Msg("login aborted: refresh record not stored")
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Account.MemberID, email, err, nil)
		return TokenSet{}, err
	case flows.LoginFailureThrottleUnavailable:
		err := errors.Join(ErrRedisUnavailable, res.Err)
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStoreFailure)
		e.log.Error().Err(res.Err).Str("email", email).Msg("login aborted: throttle unavailable")
		return TokenSet{}, err
	case flows.LoginFailureLookup:
		e.metricInc(MetricLoginFailure)
		e.log.Error().Err(res.Err).Str("email", email).Msg("login aborted: user lookup failed")
		return TokenSet{}, fmt.Errorf("user lookup: %w", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.log.Error().Err(res.Err).Str("email", email).Msg("login aborted: token issuance failed")
		return TokenSet{}, fmt.Errorf("issue tokens: %w", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.log.Info().Str("email", res.Account.Email).Str("role", res.Account.Role).Msg("login succeeded")
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Account.MemberID, res.Account.Email, nil, nil)
	return tokenSet(res.Tokens), nil
}

// Reissue exchanges the live refresh token for a new pair and rotates the stored record.
//
// Invalid or expired refresh tokens return ErrInvalidToken. A missing record returns
// ErrSessionExpired. A refresh token that is well-signed but not the one on file is
// treated as theft: the record is deleted and ErrTokenReuseDetected is returned, so
// the legitimate holder must log in again too. The role is re-read from the
// UserProvider, so role changes take effect on the next reissue.
func (e *Engine) Reissue(ctx context.Context, refreshToken string) (TokenSet, error) {
	if e == nil || e.jwtManager == nil {
		return TokenSet{}, ErrEngineNotReady
	}

	res := flows.RunReissue(ctx, refreshToken, e.flows.Reissue)
	switch res.Failure {
	case flows.ReissueFailureNone:
	case flows.ReissueFailureInvalid:
		e.metricInc(MetricReissueFailure)
		e.log.Warn().Err(res.Err).Msg("reissue rejected: invalid refresh token")
		e.emitAudit(ctx, auditEventReissueFailure, false, 0, "", ErrInvalidToken, nil)
		return TokenSet{}, ErrInvalidToken
	case flows.ReissueFailureSessionNotFound, flows.ReissueFailureRotateGone:
		e.metricInc(MetricReissueFailure)
		e.metricInc(MetricSessionExpired)
		e.log.Warn().Str("email", res.Email).Msg("reissue rejected: no refresh record (expired or logged out)")
		e.emitAudit(ctx, auditEventReissueFailure, false, 0, res.Email, ErrSessionExpired, nil)
		return TokenSet{}, ErrSessionExpired
	case flows.ReissueFailureMismatch, flows.ReissueFailureRotateLost:
		stage := "compare"
		if res.Failure == flows.ReissueFailureRotateLost {
			stage = "rotate"
		}
		e.metricInc(MetricReissueFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.log.Error().Str("email", res.Email).Str("event", auditEventRefreshReuseDetected).Str("stage", stage).
			Msg("refresh token mismatch, possible theft; session revoked")
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.Account.MemberID, res.Email, ErrTokenReuseDetected, func() map[string]string {
			return map[string]string{"stage": stage}
		})
		if res.Failure == flows.ReissueFailureMismatch && res.Err != nil {
			// The record may have survived; surface the store failure with the reuse signal.
			e.metricInc(MetricStoreFailure)
			e.log.Error().Err(res.Err).Str("email", res.Email).Msg("refresh record delete failed after mismatch")
			return TokenSet{}, errors.Join(ErrTokenReuseDetected, res.Err)
		}
		return TokenSet{}, ErrTokenReuseDetected
	case flows.ReissueFailureAccountGone:
		e.metricInc(MetricReissueFailure)
		e.log.Warn().Str("email", res.Email).Msg("reissue rejected: account no longer exists")
		e.emitAudit(ctx, auditEventReissueFailure, false, 0, res.Email, ErrUnauthenticated, nil)
		return TokenSet{}, ErrUnauthenticated
	case flows.ReissueFailureAccountLookup:
		e.metricInc(MetricReissueFailure)
		e.log.Error().Err(res.Err).Str("email", res.Email).Msg("reissue aborted: user lookup failed")
		return TokenSet{}, fmt.Errorf("user lookup: %w", res.Err)
	case flows.ReissueFailureIssue:
		e.metricInc(MetricReissueFailure)
		e.log.Error().Err(res.Err).Str("email", res.Email).Msg("reissue aborted: token issuance failed")
		return TokenSet{}, fmt.Errorf("issue tokens: %w", res.Err)
	default:
		e.metricInc(MetricReissueFailure)
		e.metricInc(MetricStoreFailure)
		e.log.Error().Err(res.Err).Str("email", res.Email).Msg("reissue aborted: session store failure")
		return TokenSet{}, res.Err
	}

	e.metricInc(MetricReissueSuccess)
	e.log.Info().Str("email", res.Email).Msg("tokens reissued")
	e.emitAudit(ctx, auditEventReissueSuccess, true, res.Account.MemberID, res.Email, nil, nil)
	return tokenSet(res.Tokens), nil
}

// Logout ends the session of the access token's subject and blacklists the token until
// its natural expiry. Expired but well-signed tokens are accepted; nothing is blacklisted
// for them. Tokens that fail verification or lack access claims (refresh tokens) return
// ErrInvalidToken and change nothing.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, accessToken, e.flows.Logout)
	switch res.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureInvalid:
		e.log.Warn().Err(res.Err).Msg("logout rejected: invalid token")
		return ErrInvalidToken
	default:
		e.metricInc(MetricStoreFailure)
		e.log.Error().Err(res.Err).Str("email", res.Email).Msg("logout aborted: session store failure")
		return res.Err
	}

	e.metricInc(MetricLogout)
	e.log.Info().Str("email", res.Email).Int64("remaining_ms", res.Remaining.Milliseconds()).Msg("logged out")
	e.emitAudit(ctx, auditEventLogout, true, 0, res.Email, nil, func() map[string]string {
		return map[string]string{"remaining_ms": strconv.FormatInt(res.Remaining.Milliseconds(), 10)}
	})
	return nil
}

// Authenticate validates an access token for a request. It never consults the
// UserProvider.
//
// Failures: ErrInvalidToken (bad signature, malformed, wrong algorithm), ErrTokenExpired,
// ErrTokenRevoked (logged out), ErrMissingClaim (no id or role, e.g. a refresh token),
// or a store error matching ErrRedisUnavailable.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if e == nil || e.jwtManager == nil {
		return Principal{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	res := flows.RunAuthenticate(ctx, accessToken, e.flows.Authenticate)
	switch res.Failure {
	case flows.AuthenticateFailureNone:
	case flows.AuthenticateFailureExpired:
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, ErrTokenExpired
	case flows.AuthenticateFailureRevoked:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricRevokedTokenPresented)
		e.log.Warn().Str("email", res.Email).Msg("revoked token presented")
		e.emitAudit(ctx, auditEventRevokedPresented, false, 0, res.Email, ErrTokenRevoked, nil)
		return Principal{}, ErrTokenRevoked
	case flows.AuthenticateFailureMissingClaim:
		e.metricInc(MetricAuthenticateFailure)
		e.log.Warn().Err(res.Err).Str("email", res.Email).Msg("access token missing identity claims")
		return Principal{}, errors.Join(ErrMissingClaim, res.Err)
	case flows.AuthenticateFailureRevocationLookup:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricStoreFailure)
		e.log.Error().Err(res.Err).Msg("revocation lookup failed")
		return Principal{}, res.Err
	default:
		e.metricInc(MetricAuthenticateFailure)
		return Principal{}, ErrInvalidToken
	}

	roles := make([]Role, len(res.Roles))
	for i, r := range res.Roles {
		roles[i] = Role(r)
	}
	e.metricInc(MetricAuthenticateSuccess)
	return Principal{MemberID: res.MemberID, Email: res.Email, Roles: roles}, nil
}

// Register creates an account with the configured default role.
//
// It requires a UserCreator. An email already on file returns ErrAccountExists; a missing
// field or a password outside the hasher's bounds returns ErrInvalidRequest.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (UserRecord, error) {
	if e == nil || e.jwtManager == nil {
		return UserRecord{}, ErrEngineNotReady
	}
	if !e.config.Account.Enabled || e.userCreator == nil || e.hasher == nil {
		return UserRecord{}, ErrRegistrationDisabled
	}
	req = req.normalized()

	var created UserRecord
	deps := e.flows.Register
	deps.Create = func(ctx context.Context, acct flows.NewAccount) (flows.Account, error) {
		rec, err := e.userCreator.CreateUser(ctx, CreateUserInput{
			Email:        acct.Email,
			PasswordHash: acct.PasswordHash,
			Nickname:     acct.Nickname,
			Age:          req.Age,
			RegionID:     req.RegionID,
			Bio:          req.Bio,
			Role:         Role(acct.Role),
		})
		if err != nil {
			return flows.Account{}, err
		}
		created = rec
		return toAccount(rec, acct.Email), nil
	}

	res := flows.RunRegister(ctx, flows.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	}, deps)

	switch res.Failure {
	case flows.RegisterFailureNone:
	case flows.RegisterFailureDuplicate:
		e.metricInc(MetricRegistrationDuplicate)
		e.log.Warn().Str("email", req.Email).Msg("registration rejected: email already in use")
		e.emitAudit(ctx, auditEventRegister, false, 0, req.Email, ErrAccountExists, nil)
		return UserRecord{}, ErrAccountExists
	case flows.RegisterFailureInvalid, flows.RegisterFailureHash:
		err := errors.Join(ErrInvalidRequest, res.Err)
		e.log.Warn().Err(res.Err).Str("email", req.Email).Msg("registration rejected: invalid request")
		e.emitAudit(ctx, auditEventRegister, false, 0, req.Email, err, nil)
		return UserRecord{}, err
	default:
		e.log.Error().Err(res.Err).Str("email", req.Email).Msg("registration failed")
		return UserRecord{}, fmt.Errorf("create user: %w", res.Err)
	}

	e.metricInc(MetricRegistrationSuccess)
	e.log.Info().Str("email", created.Email).Int64("member_id", created.MemberID).Msg("account registered")
	e.emitAudit(ctx, auditEventRegister, true, created.MemberID, created.Email, nil, nil)
	return created, nil
}

// Ping checks session store availability.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	_, err := e.sessionStore.Ping(ctx)
	return err
}

func (e *Engine) findAccount(ctx context.Context, email string) (flows.Account, bool, error) {
	rec, ok, err := e.userProvider.FindByEmail(ctx, email)
	if err != nil || !ok {
		return flows.Account{}, false, err
	}
	return toAccount(rec, email), true, nil
}

func toAccount(rec UserRecord, email string) flows.Account {
	if rec.Email == "" {
		rec.Email = email
	}
	return flows.Account{
		MemberID:     rec.MemberID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Role:         string(rec.Role),
	}
}

func tokenSet(t flows.IssuedTokens) TokenSet {
	return TokenSet{
		AccessToken:                t.Access,
		RefreshToken:               t.Refresh,
		RefreshTokenExpirationTime: t.RefreshTTL.Milliseconds(),
	}
}
