// Package flows contains the orchestration behind every Engine operation.
//
// Each Run function takes a typed dependency struct and returns a result carrying either
// the outcome or a failure kind. The root package maps failure kinds to its public errors,
// metrics, audit events and log lines.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenAuth (to avoid import cycles).
//   - Log. Logging is done by the Engine from the returned failure kind.
package flows
