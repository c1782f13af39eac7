// internal/app/features/register/routes.go
package register

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the public intake endpoint on r. limit, when not
// nil, throttles submissions per client.
func MountRoutes(r chi.Router, h *Handler, limit func(http.Handler) http.Handler) {
	if limit != nil {
		r.With(limit).Post("/register", h.HandleRegister)
		return
	}
	r.Post("/register", h.HandleRegister)
}
