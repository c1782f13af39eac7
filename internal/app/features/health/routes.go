// internal/app/features/health/routes.go
package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes serves the database check at the mount root. HEAD answers with the
// status code alone, for load balancers that do not read bodies.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	r.Head("/", h.Serve)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	return r
}
