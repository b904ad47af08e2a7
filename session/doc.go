// Package session wraps Redis for the two pieces of state the token core keeps: the single
// live refresh token per identity ("RT:"+email) and the access-token revocation entries
// ("BL:"+token).
//
// # Failure semantics
//
// Every Redis error is surfaced wrapped in [ErrRedisUnavailable]. Nothing is swallowed: a
// login or reissue whose refresh record could not be written must fail.
//
// # Architecture boundaries
//
// This package owns key layout, TTLs and the rotation compare-and-swap script. It does NOT
// parse tokens or decide what a mismatch means for the caller.
package session
