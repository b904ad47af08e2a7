// Package jwt signs and verifies the compact HS256 tokens used for access and refresh
// credentials, and decodes their claim sets into a typed [Claims] value.
//
// # Expiry vs. invalid
//
// [Manager.Parse] separates two failure classes. A token whose signature verifies but whose
// expiry has passed returns its claims together with [ErrExpired], so callers can still read
// the identity (logout accepts such tokens). Anything structurally broken, signed with another
// key, or signed with another algorithm returns [ErrInvalid] and no claims at all.
//
// # What this package must NOT do
//
//   - Touch Redis or any other I/O.
//   - Decide whether a refresh token is still the live one for its identity.
package jwt
