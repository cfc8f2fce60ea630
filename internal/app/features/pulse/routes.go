// internal/app/features/pulse/routes.go
package pulse

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted under /api/pulse.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{id}/view", h.ServeView)
	r.Post("/{id}/upvote", h.ServeUpvote)
	return r
}
