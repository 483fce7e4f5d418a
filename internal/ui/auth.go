package ui

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"tms-console/internal/domain"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const (
	bearerCookieName = "tms_bearer"
	apiKeyCookieName = "tms_api_key"
	sessionLifetime  = 12 * time.Hour
)

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := domain.CredentialsFromContext(r.Context()); ok {
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
		return
	}
	renderHTML(w, http.StatusOK, loginPage(strings.TrimSpace(r.URL.Query().Get("error")), csrfField(r)))
}

func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/ui/login?error=invalid+form", http.StatusSeeOther)
		return
	}
	kind := strings.TrimSpace(r.Form.Get("kind"))
	token := strings.TrimSpace(r.Form.Get("token"))
	if token == "" {
		http.Redirect(w, r, "/ui/login?error="+url.QueryEscape("token is required"), http.StatusSeeOther)
		return
	}

	bearer := h.sessionCookie(bearerCookieName)
	apiKey := h.sessionCookie(apiKeyCookieName)
	if kind == "api_key" {
		apiKey.Value = token
		bearer.MaxAge = -1
	} else {
		bearer.Value = strings.TrimPrefix(token, "Bearer ")
		apiKey.MaxAge = -1
	}
	http.SetCookie(w, bearer)
	http.SetCookie(w, apiKey)
	http.Redirect(w, r, "/ui", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{bearerCookieName, apiKeyCookieName} {
		c := h.sessionCookie(name)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, "/ui/login", http.StatusSeeOther)
}

func (h *Handler) sessionCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Production,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	}
}

// CredentialsFromRequest reads backend credentials from an explicit header
// first, then from the console session cookies.
func CredentialsFromRequest(r *http.Request) domain.Credentials {
	var c domain.Credentials
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		c.Token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else if cookie, err := r.Cookie(bearerCookieName); err == nil {
		c.Token = strings.TrimSpace(cookie.Value)
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		c.APIKey = key
	} else if cookie, err := r.Cookie(apiKeyCookieName); err == nil {
		c.APIKey = strings.TrimSpace(cookie.Value)
	}
	return c
}

// RequireLogin redirects console pages to the login form when no backend
// credential is present.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.CredentialsFromContext(r.Context()); !ok {
			RedirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/ui") {
		http.Redirect(w, r, "/ui/login", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
}

func loginPage(errMsg string, csrf Node) Node {
	return documentShell("Sign in",
		Body(
			Class("login-body"),
			Main(Class("login-wrap"),
				If(errMsg != "", P(Class("flash flash-error"), Text("Error: "+errMsg))),
				H1(Text("TMS Admin Console")),
				P(Text("Sign in with a backend access token or API key.")),
				Form(
					Method("post"),
					Action("/ui/login"),
					Class("login-form"),
					csrf,
					Label(Text("Credential type")),
					Select(
						Name("kind"),
						Option(Value("bearer"), Text("Bearer token")),
						Option(Value("api_key"), Text("API key")),
					),
					Label(Text("Token")),
					Textarea(Name("token"), Placeholder("Paste token here"), Required()),
					Button(Type("submit"), Class(primaryButtonClass()), Text("Sign In")),
				),
			),
		),
	)
}
