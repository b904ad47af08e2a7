package tokenAuth

import (
	"errors"

	"github.com/MrEthical07/tokenAuth/session"
)

var (
	// ErrUnauthenticated is returned for unknown users and wrong passwords. The two cases are
	// deliberately indistinguishable to callers.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken is returned for tokens that fail verification, including expired refresh tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned by Authenticate for well-signed access tokens past exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionExpired is returned when no refresh record exists for the identity.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenReuseDetected is returned when a refresh token other than the live one is presented.
	// The live session is destroyed before this is returned.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	// ErrMissingClaim is returned when an access token lacks the id or role claim.
	ErrMissingClaim = errors.New("token missing required claim")
	// ErrTokenRevoked is returned for access tokens that were logged out.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrAccountExists is returned by Register for an email already on file.
	ErrAccountExists = errors.New("account already exists")
	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionWriteFailed is returned when login cannot persist the refresh record.
	ErrSessionWriteFailed = errors.New("session write failed")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRegistrationDisabled is returned by Register when no UserCreator is configured.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrInvalidRequest is returned by Register for requests missing required fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRedisUnavailable is the session store sentinel, re-exported so callers need not
	// import the session package to detect an outage.
	ErrRedisUnavailable = session.ErrRedisUnavailable
)
