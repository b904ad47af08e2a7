package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorBody{Error: kind, Message: message})
}

// statusFor maps engine errors to a status code and a stable error kind.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tokenAuth.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, tokenAuth.ErrAccountExists):
		return http.StatusConflict, "account_exists"
	case errors.Is(err, tokenAuth.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, tokenAuth.ErrRegistrationDisabled):
		return http.StatusForbidden, "registration_disabled"
	case errors.Is(err, tokenAuth.ErrTokenReuseDetected):
		return http.StatusUnauthorized, "token_reuse_detected"
	case errors.Is(err, tokenAuth.ErrSessionExpired):
		return http.StatusUnauthorized, "session_expired"
	case errors.Is(err, tokenAuth.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, tokenAuth.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_revoked"
	case errors.Is(err, tokenAuth.ErrUnauthenticated),
		errors.Is(err, tokenAuth.ErrInvalidToken),
		errors.Is(err, tokenAuth.ErrMissingClaim):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, tokenAuth.ErrRedisUnavailable),
		errors.Is(err, tokenAuth.ErrSessionWriteFailed),
		errors.Is(err, tokenAuth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

var messages = map[string]string{
	"rate_limited":          "too many failed attempts, try again later",
	"account_exists":        "email already registered",
	"invalid_request":       "invalid request",
	"registration_disabled": "registration is disabled",
	"token_reuse_detected":  "session revoked, log in again",
	"session_expired":       "session expired, log in again",
	"token_expired":         "token expired",
	"token_revoked":         "token revoked",
	"unauthenticated":       "authentication failed",
	"unavailable":           "service temporarily unavailable",
	"internal_error":        "internal error",
}
