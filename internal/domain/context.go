package domain

import "context"

type principalKey struct{}

type credentialsKey struct{}

// ContextPrincipal is the signed-in operator as displayed by the console.
type ContextPrincipal struct {
	Name string
	Kind string // "bearer" or "api_key"
}

// Credentials are forwarded verbatim to the backend API.
type Credentials struct {
	Token  string
	APIKey string
}

// Empty reports whether no credential is present.
func (c Credentials) Empty() bool {
	return c.Token == "" && c.APIKey == ""
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}

// WithCredentials stores backend credentials in the context.
func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

// CredentialsFromContext extracts backend credentials from the context.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(Credentials)
	return c, ok
}
