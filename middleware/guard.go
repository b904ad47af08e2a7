package middleware

import (
	"context"
	"net/http"
	"strings"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// Authenticator validates an access token. *tokenAuth.Engine implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (tokenAuth.Principal, error)
}

// Authenticate attaches the principal of a valid bearer token to the request context.
// Requests without a usable token continue anonymously.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenAuth.WithPrincipal(r.Context(), p)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
