// internal/app/features/content/routes.go
package content

import "github.com/go-chi/chi/v5"

// Routes returns the router for the content endpoints, mounted under
// /api/content. The same router is mounted at /api/sanity for older clients.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAll)
	r.Post("/mutate", h.ServeMutate)
	r.Get("/{page}", h.ServePage)
	return r
}
