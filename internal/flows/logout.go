package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenAuth/jwt"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureInvalid
	LogoutFailureDeleteSession
	LogoutFailureRevoke
)

// LogoutSessionStore removes the refresh record and revokes the access token.
type LogoutSessionStore interface {
	DeleteRefreshToken(ctx context.Context, email string) error
	Revoke(ctx context.Context, accessToken string, ttl time.Duration) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Tokens       TokenParser
	SessionStore LogoutSessionStore
	Now          func() time.Time
}

// LogoutResult reports the identity logged out and the revocation lifetime written.
type LogoutResult struct {
	Failure   LogoutFailureKind
	Err       error
	Email     string
	Remaining time.Duration
}

// RunLogout deletes the identity's refresh record and blacklists the access token for
// the rest of its lifetime. Expired tokens are accepted; nothing is blacklisted for them.
// Tokens without access claims, refresh tokens included, are rejected.
func RunLogout(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.Tokens.Parse(accessToken)
	if err != nil && !errors.Is(err, jwt.ErrExpired) {
		return LogoutResult{Failure: LogoutFailureInvalid, Err: err}
	}
	_, email, _, err := claims.AccessIdentity()
	if err != nil {
		return LogoutResult{Failure: LogoutFailureInvalid, Err: err}
	}

	remaining := claims.Remaining(deps.Now())

	if err := deps.SessionStore.DeleteRefreshToken(ctx, email); err != nil {
		return LogoutResult{Failure: LogoutFailureDeleteSession, Err: err, Email: email}
	}
	if err := deps.SessionStore.Revoke(ctx, accessToken, remaining); err != nil {
		return LogoutResult{Failure: LogoutFailureRevoke, Err: err, Email: email, Remaining: remaining}
	}

	return LogoutResult{Failure: LogoutFailureNone, Email: email, Remaining: remaining}
}
