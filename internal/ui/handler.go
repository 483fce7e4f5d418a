// Package ui serves the server-rendered admin console. One generic handler
// set covers every entity declared in the resource registry.
package ui

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tms-console/internal/access"
	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/resource"

	gomponents "maragu.dev/gomponents"
)

// maxUploadBytes bounds multipart bodies for uploads and imports.
const maxUploadBytes = 20 << 20

type Handler struct {
	Registry        *resource.Registry
	Client          *apiclient.Client
	DefaultPageSize int
	Production      bool
	Logger          *slog.Logger
	// Now stamps cache-busting image URLs.
	Now func() time.Time
}

func NewHandler(registry *resource.Registry, client *apiclient.Client, defaultPageSize int, production bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = domain.DefaultPageSize
	}
	return &Handler{
		Registry:        registry,
		Client:          client,
		DefaultPageSize: defaultPageSize,
		Production:      production,
		Logger:          logger,
		Now:             time.Now,
	}
}

// schemaFromRequest resolves the {resource} URL parameter. It renders a 404
// page and returns false for unknown entities.
func (h *Handler) schemaFromRequest(w http.ResponseWriter, r *http.Request) (*resource.Schema, bool) {
	s, ok := h.Registry.Lookup(chi.URLParam(r, "resource"))
	if !ok {
		renderHTML(w, http.StatusNotFound, errorPage("Not Found", "Unknown module "+chi.URLParam(r, "resource")+"."))
		return nil, false
	}
	return s, true
}

// accessor returns a request-scoped accessor that forwards the caller's
// credentials. Callers must Close it.
func (h *Handler) accessor(r *http.Request, s *resource.Schema) *access.Accessor {
	client := h.Client
	if creds, ok := domain.CredentialsFromContext(r.Context()); ok {
		client = client.WithCredentials(creds)
	}
	return access.New(client.Resource(s), h.Logger)
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func principalFromContext(ctx context.Context) domain.ContextPrincipal {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(p.Name) == "" {
		return domain.ContextPrincipal{Name: "unknown", Kind: p.Kind}
	}
	return p
}
