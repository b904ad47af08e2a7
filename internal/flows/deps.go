package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenAuth/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and delegates
// request methods to the matching flow.
type Deps struct {
	Login        LoginDeps
	Reissue      ReissueDeps
	Logout       LogoutDeps
	Authenticate AuthenticateDeps
	Register     RegisterDeps
}

// Account is the engine's view of a stored user.
type Account struct {
	MemberID     int64
	Email        string
	PasswordHash string
	Role         string
}

// AccountLookup resolves an account by email. ok is false when no account exists.
type AccountLookup func(ctx context.Context, email string) (acct Account, ok bool, err error)

// TokenIssuer mints the two token kinds.
type TokenIssuer interface {
	CreateAccess(memberID int64, email, role string) (string, error)
	CreateRefresh(email string) (string, error)
	RefreshTTL() time.Duration
}

// TokenParser verifies a compact token.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// TokenCodec is both halves.
type TokenCodec interface {
	TokenIssuer
	TokenParser
}

// IssuedTokens is a freshly minted pair.
type IssuedTokens struct {
	Access     string
	Refresh    string
	RefreshTTL time.Duration
}

func issue(codec TokenIssuer, acct Account) (IssuedTokens, error) {
	access, err := codec.CreateAccess(acct.MemberID, acct.Email, acct.Role)
	if err != nil {
		return IssuedTokens{}, err
	}
	refresh, err := codec.CreateRefresh(acct.Email)
	if err != nil {
		return IssuedTokens{}, err
	}
	return IssuedTokens{Access: access, Refresh: refresh, RefreshTTL: codec.RefreshTTL()}, nil
}
