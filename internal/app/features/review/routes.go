// internal/app/features/review/routes.go
package review

import (
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the review endpoints on r, restricted to reviewers.
func MountRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(authz.ReviewRoles...))
		r.Get("/pending", h.ServeList)
		r.Put("/{id}/status", h.HandleStatus)
	})
}
