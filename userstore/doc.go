// Package userstore groups the account adapters that satisfy tokenAuth.UserProvider
// and tokenAuth.UserCreator: an in-process map in [memory] and a SQLite table in
// [sqlite]. Both compare emails case-insensitively.
package userstore
