package tokenAuth

import (
	"context"
	"strings"
)

// Role is an authority carried in the access token role claim.
type Role string

const (
	// RoleUser is granted to every registered account.
	RoleUser Role = "ROLE_USER"
	// RoleAdmin implies RoleUser.
	RoleAdmin Role = "ROLE_ADMIN"
)

// implied lists, for each role, the roles it grants in addition to itself.
var implied = map[Role][]Role{
	RoleAdmin: {RoleUser},
}

// Grants reports whether holding r satisfies a requirement for want.
func (r Role) Grants(want Role) bool {
	if r == want {
		return true
	}
	for _, sub := range implied[r] {
		if sub.Grants(want) {
			return true
		}
	}
	return false
}

// Principal is the identity recovered from a validated access token.
type Principal struct {
	MemberID int64  `json:"id"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
}

// HasRole reports whether any of the principal's roles grants want.
func (p Principal) HasRole(want Role) bool {
	for _, r := range p.Roles {
		if r.Grants(want) {
			return true
		}
	}
	return false
}

// TokenSet is returned by Login and Reissue.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// RefreshTokenExpirationTime is the refresh validity in milliseconds.
	RefreshTokenExpirationTime int64 `json:"refreshTokenExpirationTime"`
}

// UserRecord is the subset of a stored account the engine needs.
type UserRecord struct {
	MemberID     int64
	Email        string
	Nickname     string
	PasswordHash string
	Role         Role
}

// UserProvider looks up accounts by email. Implementations must be safe for concurrent use.
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserCreator persists new accounts. Register is disabled without one.
type UserCreator interface {
	CreateUser(ctx context.Context, in CreateUserInput) (UserRecord, error)
}

// CreateUserInput is a validated registration with the password already hashed.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Nickname     string
	Age          *int
	RegionID     *int64
	Bio          string
	Role         Role
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Age      *int   `json:"age,omitempty"`
	RegionID *int64 `json:"region_id,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

func (r RegisterRequest) normalized() RegisterRequest {
	r.Email = strings.TrimSpace(r.Email)
	r.Nickname = strings.TrimSpace(r.Nickname)
	return r
}

// CredentialVerifier checks a plaintext password against a stored hash.
type CredentialVerifier interface {
	Matches(plaintext, hash string) bool
}

// PasswordHasher produces hashes accepted by its own Matches.
type PasswordHasher interface {
	CredentialVerifier
	Hash(plaintext string) (string, error)
}
