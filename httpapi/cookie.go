package httpapi

import (
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

func (h *handler) setRefreshCookie(w http.ResponseWriter, ts tokenAuth.TokenSet) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    ts.RefreshToken,
		Path:     "/",
		MaxAge:   int(ts.RefreshTokenExpirationTime / 1000),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie emits Max-Age=0.
func (h *handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
