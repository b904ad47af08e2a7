// Package middleware adapts tokenAuth.Engine to net/http.
//
// [Authenticate] reads the Authorization header, validates the bearer token with
// Engine.Authenticate and stores the resulting principal in the request context. A
// missing or rejected token leaves the request anonymous; the decision to refuse it
// belongs to [RequireAuthenticated] and [RequireRole], which answer 401 and 403.
//
// This package never parses tokens or touches Redis itself.
package middleware
