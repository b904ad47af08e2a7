package flows

import (
	"context"
	"errors"
	"time"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureThrottleUnavailable
	LoginFailureLookup
	LoginFailureUnknownUser
	LoginFailureBadPassword
	LoginFailureIssue
	LoginFailureSessionWrite
)

// LoginThrottle counts failed attempts.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// LoginSessionStore persists the refresh record.
type LoginSessionStore interface {
	SaveRefreshToken(ctx context.Context, email, token string, ttl time.Duration) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Tokens       TokenIssuer
	SessionStore LoginSessionStore
	FindAccount  AccountLookup
	Matches      func(plaintext, hash string) bool
	// DummyHash is verified against when the account does not exist so both failure
	// paths spend the same hashing time.
	DummyHash   string
	Throttle    LoginThrottle
	RateLimited error
	Warn        func(msg string, err error)
}

// LoginResult carries either the issued tokens or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Account Account
	Tokens  IssuedTokens
}

// RunLogin verifies credentials, issues a token pair and stores the refresh token,
// replacing any previous one for the email.
func RunLogin(ctx context.Context, email, password, ip string, deps LoginDeps) LoginResult {
	if deps.Throttle != nil {
		if err := deps.Throttle.Check(ctx, email, ip); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureThrottleUnavailable, Err: err}
		}
	}

	acct, ok, err := deps.FindAccount(ctx, email)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if !ok {
		if deps.DummyHash != "" {
			_ = deps.Matches(password, deps.DummyHash)
		}
		recordFailure(ctx, email, ip, deps)
		return LoginResult{Failure: LoginFailureUnknownUser}
	}
	if !deps.Matches(password, acct.PasswordHash) {
		recordFailure(ctx, email, ip, deps)
		return LoginResult{Failure: LoginFailureBadPassword, Account: acct}
	}

	tokens, err := issue(deps.Tokens, acct)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Account: acct}
	}

	if err := deps.SessionStore.SaveRefreshToken(ctx, acct.Email, tokens.Refresh, tokens.RefreshTTL); err != nil {
		return LoginResult{Failure: LoginFailureSessionWrite, Err: err, Account: acct}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.Reset(ctx, email); err != nil && deps.Warn != nil {
			deps.Warn("login throttle reset failed", err)
		}
	}

	return LoginResult{Failure: LoginFailureNone, Account: acct, Tokens: tokens}
}

func recordFailure(ctx context.Context, email, ip string, deps LoginDeps) {
	if deps.Throttle == nil {
		return
	}
	err := deps.Throttle.Fail(ctx, email, ip)
	if err == nil || (deps.RateLimited != nil && errors.Is(err, deps.RateLimited)) {
		return
	}
	if deps.Warn != nil {
		deps.Warn("login throttle update failed", err)
	}
}
