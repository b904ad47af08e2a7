package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenAuth/jwt"
)

// AuthenticateFailureKind classifies access-token validation failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureInvalid
	AuthenticateFailureExpired
	AuthenticateFailureRevocationLookup
	AuthenticateFailureRevoked
	AuthenticateFailureMissingClaim
)

// RevocationChecker reports blacklisted access tokens.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, accessToken string) (bool, error)
}

// AuthenticateDeps captures validation dependencies.
type AuthenticateDeps struct {
	Tokens      TokenParser
	Revocations RevocationChecker
}

// AuthenticateResult carries the identity of a valid access token.
type AuthenticateResult struct {
	Failure  AuthenticateFailureKind
	Err      error
	MemberID int64
	Email    string
	Roles    []string
}

// RunAuthenticate verifies an access token, checks the revocation list and extracts the
// identity claims. A store failure fails closed.
func RunAuthenticate(ctx context.Context, accessToken string, deps AuthenticateDeps) AuthenticateResult {
	claims, err := deps.Tokens.Parse(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return AuthenticateResult{Failure: AuthenticateFailureExpired, Err: err, Email: claims.Email()}
		}
		return AuthenticateResult{Failure: AuthenticateFailureInvalid, Err: err}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureRevocationLookup, Err: err, Email: claims.Email()}
	}
	if revoked {
		return AuthenticateResult{Failure: AuthenticateFailureRevoked, Email: claims.Email()}
	}

	id, email, roles, err := claims.AccessIdentity()
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureMissingClaim, Err: err, Email: claims.Email()}
	}

	return AuthenticateResult{Failure: AuthenticateFailureNone, MemberID: id, Email: email, Roles: roles}
}
