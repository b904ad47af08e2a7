// Package password implements the credential verifiers used by login.
//
// # Schemes
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes ($2a$, $2b$, $2y$) are verified for accounts carried over from older stores.
// [Multi] picks the scheme from the stored hash prefix.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other tokenAuth package.
//   - Log plaintext passwords.
package password
