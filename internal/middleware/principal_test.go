package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tms-console/internal/domain"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return tok
}

func TestPrincipalFromToken(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{name: "name claim", token: signed(t, jwt.MapClaims{"name": "Priya", "sub": "u1"}), want: "Priya", wantOK: true},
		{name: "email fallback", token: signed(t, jwt.MapClaims{"email": "ops@tms.example", "sub": "u1"}), want: "ops@tms.example", wantOK: true},
		{name: "sub fallback", token: signed(t, jwt.MapClaims{"sub": "u1"}), want: "u1", wantOK: true},
		{name: "no usable claim", token: signed(t, jwt.MapClaims{"iat": 1})},
		{name: "not a jwt", token: "opaque-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := PrincipalFromToken(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name     string
		creds    domain.Credentials
		wantName string
		wantSeen bool
	}{
		{name: "anonymous"},
		{name: "api key", creds: domain.Credentials{APIKey: "k"}, wantName: "API key", wantSeen: true},
		{name: "opaque token", creds: domain.Credentials{Token: "opaque"}, wantName: "token user", wantSeen: true},
		{name: "jwt", creds: domain.Credentials{Token: signed(t, jwt.MapClaims{"name": "Priya"})}, wantName: "Priya", wantSeen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotCreds domain.Credentials
				gotP     domain.ContextPrincipal
				seen     bool
			)
			h := Credentials(func(*http.Request) domain.Credentials { return tt.creds })(
				http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
					gotCreds, seen = domain.CredentialsFromContext(r.Context())
					gotP, _ = domain.PrincipalFromContext(r.Context())
				}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantSeen, seen)
			assert.Equal(t, tt.wantName, gotP.Name)
			if tt.wantSeen {
				assert.Equal(t, tt.creds, gotCreds)
			}
		})
	}
}
