// internal/app/features/authapi/routes.go
package authapi

import "github.com/go-chi/chi/v5"

// Routes returns the router mounted at /api/auth. GET /auth/verify is
// registered by the caller because it lives outside /api.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.ServeSignup)
	r.Post("/login", h.ServeLogin)
	r.Post("/logout", h.ServeLogout)
	r.Post("/reset", h.ServeReset)
	return r
}
