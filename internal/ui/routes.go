package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tms-console/internal/ui/assets"
)

// MountRoutes registers the console under r, which is expected to be mounted
// at /ui. credentials moves backend credentials into the request context; see
// CredentialsFromRequest.
func MountRoutes(r chi.Router, h *Handler, credentials func(http.Handler) http.Handler) {
	r.Handle("/static/*", http.StripPrefix("/ui/static/", http.FileServer(http.FS(assets.Static()))))

	r.Group(func(r chi.Router) {
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)
		r.Use(credentials)

		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginSubmit)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireLogin)
			r.Get("/", h.Home)
			r.Route("/{resource}", func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/new", h.New)
				r.Post("/wizard", h.WizardStep)
				r.Get("/import", h.ImportForm)
				r.Post("/import", h.Import)
				r.Get("/export", h.Export)
				r.Get("/template", h.Template)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Detail)
					r.Get("/edit", h.EditForm)
					r.Post("/upload", h.Upload)
					r.Get("/deactivate", h.ConfirmDeactivate)
					r.Post("/deactivate", h.Deactivate)
					r.Get("/delete", h.ConfirmDelete)
					r.Post("/delete", h.Delete)
				})
			})
		})
	})
}
