// Package rate implements the Redis-backed failed-login throttle.
//
// Fixed-window counters: INCR, then PEXPIRE on the first hit of a window. Key prefixes:
//   - LA:  failed logins per email
//   - LAI: failed logins per client IP
//
// The counters only move on failed attempts; a successful login clears both.
package rate
