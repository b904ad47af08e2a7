package tokenAuth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenAuth/internal/flows"
	"github.com/MrEthical07/tokenAuth/internal/rate"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/password"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	userCreator  UserCreator
	verifier     CredentialVerifier
	hasher       PasswordHasher
	auditSink    AuditSink
	logger       zerolog.Logger
	clock        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the session store client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the account lookup. If up also implements [UserCreator] it is
// used for registration unless WithUserCreator is called.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithUserCreator enables Register.
func (b *Builder) WithUserCreator(uc UserCreator) *Builder {
	b.userCreator = uc
	return b
}

// WithVerifier sets the credential verifier used by Login. Without one, the password
// hasher is used.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithPasswordHasher sets the hasher used by Register. Without one, Argon2id with
// bcrypt fallback verification is used.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithAuditSink sets the audit sink. Audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now for token issuance, verification and logout TTLs.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret:          cfg.JWT.Secret,
		AccessTTL:       cfg.JWT.AccessTTL,
		RefreshTTL:      cfg.JWT.RefreshTTL,
		Issuer:          cfg.JWT.Issuer,
		AllowWeakSecret: cfg.JWT.AllowWeakSecret,
		Clock:           now,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = defaultHasher()
		if err != nil {
			return nil, err
		}
	}
	verifier := b.verifier
	if verifier == nil {
		verifier = hasher
	}

	creator := b.userCreator
	if creator == nil {
		creator, _ = b.userProvider.(UserCreator)
	}

	engine := &Engine{
		config:       cfg,
		jwtManager:   jm,
		sessionStore: session.NewStore(b.redis),
		userProvider: b.userProvider,
		userCreator:  creator,
		verifier:     verifier,
		hasher:       hasher,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		log:          b.logger.With().Str("component", "tokenauth").Logger(),
		now:          now,
	}
	if cfg.Security.MaxLoginAttempts > 0 {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			MaxAttempts: cfg.Security.MaxLoginAttempts,
			Window:      cfg.Security.LoginWindow,
			PerIP:       cfg.Security.EnableIPThrottle,
		})
	}

	dummy, err := dummyHash(hasher)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	engine.flows = flows.Deps{
		Login: flows.LoginDeps{
			Tokens:       jm,
			SessionStore: engine.sessionStore,
			FindAccount:  engine.findAccount,
			Matches:      verifier.Matches,
			DummyHash:    dummy,
			RateLimited:  rate.ErrRateLimited,
			Warn: func(msg string, err error) {
				engine.log.Warn().Err(err).Msg(msg)
			},
		},
		Reissue: flows.ReissueDeps{
			Tokens:       jm,
			SessionStore: engine.sessionStore,
			FindAccount:  engine.findAccount,
		},
		Logout: flows.LogoutDeps{
			Tokens:       jm,
			SessionStore: engine.sessionStore,
			Now:          now,
		},
		Authenticate: flows.AuthenticateDeps{
			Tokens:      jm,
			Revocations: engine.sessionStore,
		},
		Register: flows.RegisterDeps{
			Exists:      b.userProvider.ExistsByEmail,
			Hash:        hasher.Hash,
			DefaultRole: string(cfg.Account.DefaultRole),
			Duplicate:   ErrAccountExists,
		},
	}
	// A nil *rate.Limiter must not become a non-nil interface.
	if engine.rateLimiter != nil {
		engine.flows.Login.Throttle = engine.rateLimiter
	}

	b.built = true

	return engine, nil
}

func defaultHasher() (PasswordHasher, error) {
	a, err := password.NewArgon2(password.DefaultArgon2Params())
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(0, password.Limits{})
	if err != nil {
		return nil, err
	}
	return &password.Multi{Primary: a, Argon2: a, Bcrypt: bc}, nil
}

func dummyHash(h PasswordHasher) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return h.Hash(hex.EncodeToString(buf))
}
