// internal/app/features/export/routes.go
package export

import (
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the export endpoint on r, restricted to staff.
func MountRoutes(r chi.Router, h *Handler) {
	r.With(auth.RequireRole(authz.ExportRoles...)).Get("/export/excel", h.ServeExcel)
}
