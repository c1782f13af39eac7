// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under the path where this router is mounted
// (typically "/api/audit" from bootstrap). Access is restricted to admins.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(authz.AuditRoles...))

		pr.Get("/", h.ServeList)
		pr.Get("/failed-logins", h.ServeFailedLogins)
		pr.Get("/applicants/{id}", h.ServeApplicantHistory)
	})

	return r
}
