package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"tms-console/internal/domain"
)

// PrincipalFromToken derives a display label from a bearer token. The token
// is NOT verified; the backend does that on every call. Only use the result
// for display.
func PrincipalFromToken(token string) (domain.ContextPrincipal, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.ContextPrincipal{}, false
	}
	for _, key := range []string{"name", "email", "preferred_username", "username", "sub"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return domain.ContextPrincipal{Name: strings.TrimSpace(v), Kind: "bearer"}, true
		}
	}
	return domain.ContextPrincipal{}, false
}

// Credentials moves the credentials found by extract into the request
// context together with a display principal. Requests without credentials
// pass through untouched.
func Credentials(extract func(*http.Request) domain.Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := extract(r)
			if creds.Empty() {
				next.ServeHTTP(w, r)
				return
			}
			ctx := domain.WithCredentials(r.Context(), creds)
			p := domain.ContextPrincipal{Name: "API key", Kind: "api_key"}
			if creds.Token != "" {
				if tp, ok := PrincipalFromToken(creds.Token); ok {
					p = tp
				} else {
					p = domain.ContextPrincipal{Name: "token user", Kind: "bearer"}
				}
			}
			ctx = domain.WithPrincipal(ctx, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
