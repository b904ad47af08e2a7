package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSecretBytes = 32

var (
	// ErrInvalid is returned for malformed tokens, bad signatures and unexpected algorithms.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned together with readable claims when the signature is valid but exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrMissingClaim is returned by [Claims.AccessIdentity] when id, role or subject is absent.
	ErrMissingClaim = errors.New("token missing required claim")
)

// Config holds the signing secret and token lifetimes.
//
// Config instances are built once at startup and treated as immutable afterwards.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	// AllowWeakSecret disables the 256-bit minimum secret length. Tests only.
	AllowWeakSecret bool
	// Clock overrides time.Now for issuance and expiry checks.
	Clock func() time.Time
}

// Manager creates and verifies HS256 tokens with a key derived once from Config.Secret.
type Manager struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// Claims is the claim set carried by both token kinds.
//
// MemberID and Role are present only on access tokens.
type Claims struct {
	MemberID *int64 `json:"id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and copies the secret into the signing key.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret required")
	}
	if !cfg.AllowWeakSecret && len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}

	key := make([]byte, len(cfg.Secret))
	copy(key, cfg.Secret)

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Manager{
		key:        key,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     strings.TrimSpace(cfg.Issuer),
		now:        now,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// CreateAccess mints an access token carrying subject, member id and role.
func (m *Manager) CreateAccess(memberID int64, email, role string) (string, error) {
	if email == "" {
		return "", errors.New("access token requires subject")
	}
	if role == "" {
		return "", errors.New("access token requires role")
	}
	id := memberID
	return m.sign(&Claims{MemberID: &id, Role: role}, email, m.accessTTL)
}

// CreateRefresh mints a refresh token carrying the subject only.
func (m *Manager) CreateRefresh(email string) (string, error) {
	if email == "" {
		return "", errors.New("refresh token requires subject")
	}
	return m.sign(&Claims{}, email, m.refreshTTL)
}

func (m *Manager) sign(claims *Claims, subject string, ttl time.Duration) (string, error) {
	now := m.now()
	claims.Subject = subject
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if m.issuer != "" {
		claims.Issuer = m.issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// Parse verifies signature and expiry.
//
// On expiry the decoded claims are returned alongside ErrExpired. On any other failure
// the claims are nil and the error wraps ErrInvalid.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.key, nil
	})
	if err != nil {
		// golang-jwt only reports expiry after the signature has verified.
		if errors.Is(err, jwt.ErrTokenExpired) && onlyExpired(err) {
			return claims, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !token.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}

// onlyExpired reports whether expiry is the sole validation failure; an expired token that
// also has a wrong issuer must stay invalid.
func onlyExpired(err error) bool {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidIssuer) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued) {
		return false
	}
	return true
}

// Email returns the subject.
func (c *Claims) Email() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// Remaining returns exp minus now, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// AccessIdentity extracts the identity an access token must carry.
//
// A refresh token, or any token lacking id or role, fails with ErrMissingClaim.
func (c *Claims) AccessIdentity() (int64, string, []string, error) {
	if c == nil || c.Subject == "" {
		return 0, "", nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if c.Role == "" {
		return 0, "", nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	if c.MemberID == nil {
		return 0, "", nil, fmt.Errorf("%w: id", ErrMissingClaim)
	}

	parts := strings.Split(c.Role, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	if len(roles) == 0 {
		return 0, "", nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	return *c.MemberID, c.Subject, roles, nil
}
