package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenAuth/session"
)

// ReissueFailureKind classifies reissue failures for root-level mapping.
type ReissueFailureKind int

const (
	ReissueFailureNone ReissueFailureKind = iota
	ReissueFailureInvalid
	ReissueFailureSessionLookup
	ReissueFailureSessionNotFound
	ReissueFailureMismatch
	ReissueFailureAccountLookup
	ReissueFailureAccountGone
	ReissueFailureIssue
	ReissueFailureRotateLost
	ReissueFailureRotateGone
	ReissueFailureRotate
)

// ReissueSessionStore reads and rotates the refresh record.
type ReissueSessionStore interface {
	RefreshToken(ctx context.Context, email string) (string, bool, error)
	DeleteRefreshToken(ctx context.Context, email string) error
	RotateRefreshToken(ctx context.Context, email, presented, next string, ttl time.Duration) error
}

// ReissueDeps captures reissue flow dependencies.
type ReissueDeps struct {
	Tokens       TokenCodec
	SessionStore ReissueSessionStore
	FindAccount  AccountLookup
}

// ReissueResult carries either the rotated tokens or failure metadata.
type ReissueResult struct {
	Failure ReissueFailureKind
	Err     error
	Email   string
	Account Account
	Tokens  IssuedTokens
}

// RunReissue exchanges a live refresh token for a new pair.
//
// The presented token must equal the stored one byte for byte. Any other token for the
// same email, including one that was valid earlier, destroys the stored record. The
// final write is a compare-and-swap so of two concurrent reissues with the same token
// at most one succeeds.
func RunReissue(ctx context.Context, refreshToken string, deps ReissueDeps) ReissueResult {
	// Expired refresh tokens are rejected like any other invalid token.
	claims, err := deps.Tokens.Parse(refreshToken)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureInvalid, Err: err}
	}
	email := claims.Email()
	if email == "" {
		return ReissueResult{Failure: ReissueFailureInvalid, Err: errors.New("refresh token has no subject")}
	}

	stored, ok, err := deps.SessionStore.RefreshToken(ctx, email)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureSessionLookup, Err: err, Email: email}
	}
	if !ok {
		return ReissueResult{Failure: ReissueFailureSessionNotFound, Email: email}
	}
	if stored != refreshToken {
		return ReissueResult{
			Failure: ReissueFailureMismatch,
			Err:     deps.SessionStore.DeleteRefreshToken(ctx, email),
			Email:   email,
		}
	}

	acct, ok, err := deps.FindAccount(ctx, email)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureAccountLookup, Err: err, Email: email}
	}
	if !ok {
		return ReissueResult{
			Failure: ReissueFailureAccountGone,
			Err:     deps.SessionStore.DeleteRefreshToken(ctx, email),
			Email:   email,
		}
	}

	tokens, err := issue(deps.Tokens, acct)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureIssue, Err: err, Email: email, Account: acct}
	}

	if err := deps.SessionStore.RotateRefreshToken(ctx, email, refreshToken, tokens.Refresh, tokens.RefreshTTL); err != nil {
		r := ReissueResult{Err: err, Email: email, Account: acct}
		switch {
		case errors.Is(err, session.ErrRefreshMismatch):
			r.Failure = ReissueFailureRotateLost
		case errors.Is(err, session.ErrRefreshNotFound):
			r.Failure = ReissueFailureRotateGone
		default:
			r.Failure = ReissueFailureRotate
		}
		return r
	}

	return ReissueResult{Failure: ReissueFailureNone, Email: email, Account: acct, Tokens: tokens}
}
