// Package internal groups the packages private to tokenAuth.
//
//   - config: TOKENAUTH_* environment loading for the server binary
//   - flows: the login, reissue, logout, authenticate and register orchestration
//   - rate: the Redis-backed failed-login throttle
package internal
