// Package tokenAuth is a token session core: it issues HS256 access and refresh tokens,
// rotates refresh tokens against a single Redis record per identity, validates access
// tokens for requests and revokes them on logout.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Session model
//
// Each email has at most one live refresh token, stored under "RT:"+email with the
// refresh lifetime as TTL. Login overwrites it. Reissue requires the presented token to
// equal it byte for byte; any other well-signed refresh token for that email deletes the
// record. Logout deletes the record and writes "BL:"+accessToken for the rest of the
// access token's lifetime.
//
// # Architecture boundaries
//
// tokenAuth is the public surface: [Engine], [Builder], [Config] and value types. Flow
// orchestration and the login throttle live under internal/. User records and password
// hashing are collaborators behind [UserProvider], [UserCreator] and [CredentialVerifier].
//
// # What this package must NOT do
//
//   - Expose Redis clients or token internals in its public API.
//   - Log token strings or passwords.
//   - Import any sub-package that re-imports tokenAuth.
package tokenAuth
