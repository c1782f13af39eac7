// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.With(auth.RequireSignedIn).Get("/me", h.ServeMe)
	return r
}
