package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Engine is the subset of *tokenAuth.Engine the handlers call.
type Engine interface {
	Login(ctx context.Context, email, password string) (tokenAuth.TokenSet, error)
	Reissue(ctx context.Context, refreshToken string) (tokenAuth.TokenSet, error)
	Logout(ctx context.Context, accessToken string) error
	Register(ctx context.Context, req tokenAuth.RegisterRequest) (tokenAuth.UserRecord, error)
	Authenticate(ctx context.Context, accessToken string) (tokenAuth.Principal, error)
	Ping(ctx context.Context) error
}

// Options configures the handler.
type Options struct {
	// SecureCookies sets the Secure attribute on the refresh cookie.
	SecureCookies bool
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
	// RequestRate and RequestBurst bound /api/auth/* per client IP. Zero disables it.
	RequestRate  rate.Limit
	RequestBurst int
	// Metrics, if set, is served at GET /metrics.
	Metrics http.Handler
	Logger  zerolog.Logger
}

type handler struct {
	engine  Engine
	opts    Options
	limiter *ipLimiter
	log     zerolog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// New returns the routed handler.
func New(engine Engine, opts Options) http.Handler {
	h := &handler{
		engine: engine,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "httpapi").Logger(),
	}
	if opts.RequestRate > 0 && opts.RequestBurst > 0 {
		h.limiter = newIPLimiter(opts.RequestRate, opts.RequestBurst)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/login", h.rateLimit(http.HandlerFunc(h.login)))
	mux.Handle("POST /api/auth/reissue", h.rateLimit(http.HandlerFunc(h.reissue)))
	mux.Handle("POST /api/auth/logout", h.rateLimit(http.HandlerFunc(h.logout)))
	mux.Handle("POST /api/auth/register", h.rateLimit(http.HandlerFunc(h.register)))

	authn := middleware.Authenticate(engine)
	mux.Handle("GET /api/me", authn(middleware.RequireAuthenticated(http.HandlerFunc(h.me))))
	mux.Handle("GET /api/admin/ping", authn(middleware.RequireRole(tokenAuth.RoleAdmin)(http.HandlerFunc(h.adminPing))))

	mux.HandleFunc("GET /healthz", h.healthz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return h.accessLog(h.withClientIP(mux))
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, kind, messages[kind])
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ts, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setRefreshCookie(w, ts)
	writeJSON(w, http.StatusOK, ts)
}

func (h *handler) reissue(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refreshToken cookie is required")
		return
	}

	ts, err := h.engine.Reissue(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, tokenAuth.ErrTokenReuseDetected) || errors.Is(err, tokenAuth.ErrSessionExpired) {
			h.clearRefreshCookie(w)
		}
		h.fail(w, r, err)
		return
	}
	h.setRefreshCookie(w, ts)
	writeJSON(w, http.StatusOK, ts)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer token is required")
		return
	}

	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageBody{Message: "logged out"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req tokenAuth.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.engine.Register(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: "registered"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := tokenAuth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) adminPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.engine.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(tokenAuth.WithClientIP(r.Context(), h.clientIP(r))))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
