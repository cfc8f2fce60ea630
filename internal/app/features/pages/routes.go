// internal/app/features/pages/routes.go
package pages

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted under /api/pages.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{page}", h.ServePage)
	return r
}
