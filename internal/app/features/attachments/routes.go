// internal/app/features/attachments/routes.go
package attachments

import "github.com/go-chi/chi/v5"

// MountRoutes registers the public attachment endpoint on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/image/{id}", h.ServeImage)
}
