// internal/app/features/registry/routes.go
package registry

import (
	"net/http"

	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the registry endpoints on r. The self-service
// routes are public; limit, when not nil, throttles them per client.
func MountRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Get("/buscar", h.ServeLookup)
		r.Put("/atualizar/{id}", h.HandleSelfUpdate)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(authz.RegistryAdminRoles...))
		r.Put("/{registrationNumber}", h.HandleAdminUpdate)
		r.Delete("/{registrationNumber}", h.HandleAdminDelete)
	})
}
