// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	authapifeature "github.com/dalemusser/vlsiclub/internal/app/features/authapi"
	authgooglefeature "github.com/dalemusser/vlsiclub/internal/app/features/authgoogle"
	contentfeature "github.com/dalemusser/vlsiclub/internal/app/features/content"
	healthfeature "github.com/dalemusser/vlsiclub/internal/app/features/health"
	pagesfeature "github.com/dalemusser/vlsiclub/internal/app/features/pages"
	passwordresetfeature "github.com/dalemusser/vlsiclub/internal/app/features/passwordreset"
	profilefeature "github.com/dalemusser/vlsiclub/internal/app/features/profile"
	pulsefeature "github.com/dalemusser/vlsiclub/internal/app/features/pulse"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/metrics"
	"github.com/dalemusser/waffle/router"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// MsgRateLimited is returned when the API rate limit trips.
const MsgRateLimited = "Too many requests. Please try again later."

// BuildHandler constructs the root HTTP handler on WAFFLE's router, which
// already carries request IDs, real IP, panic recovery, the body size limit,
// HTTP metrics and access logging.
//
// Layout:
//   - /health, /metrics                   operational
//   - /auth/verify, /auth/google[...]     browser redirects
//   - /api/...                            JSON API, rate limited per IP
func BuildHandler(coreCfg *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil || svc.Sessions == nil {
		return nil, errors.New("build handler: services not started")
	}
	sm := svc.Sessions

	r := router.New(coreCfg, logger)
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	// Loads the signed-in user from the cookie token on every request.
	r.Use(sm.LoadSessionUser(svc.Controller))

	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.CMS, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	authHandler := authapifeature.NewHandler(svc.Identity, svc.Controller, sm, svc.LoginLimiter, logger)
	var verifier authgooglefeature.IDTokenVerifier
	if svc.Verifier != nil {
		verifier = svc.Verifier
	}
	googleHandler := authgooglefeature.NewHandler(
		svc.Identity, svc.Controller, sm, svc.OAuthState, verifier,
		cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.BaseURL, logger,
	)
	r.Get("/auth/verify", authHandler.ServeVerify)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	contentHandler := contentfeature.NewHandler(svc.Content, svc.CMS, logger)
	pagesHandler := pagesfeature.NewHandler(svc.Content, logger)
	pulseHandler := pulsefeature.NewHandler(svc.CMS, sm, logger)
	resetHandler := passwordresetfeature.NewHandler(svc.Identity, cfg.Auth.Domain, svc.MailConfigured, svc.ResetLimiter, logger)
	profileHandler := profilefeature.NewHandler(svc.Controller, sm, logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(apiRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow))
		api.Use(middleware.RequestSize(limits.MaxRequestBody))

		contentRoutes := contentfeature.Routes(contentHandler)
		api.Mount("/content", contentRoutes)
		api.Mount("/sanity", contentRoutes)

		api.Mount("/pages", pagesfeature.Routes(pagesHandler))
		api.Mount("/pulse", pulsefeature.Routes(pulseHandler))
		api.Mount("/send-reset-email", passwordresetfeature.Routes(resetHandler))

		api.Post("/auth/google", googleHandler.ServeIDToken)
		api.Mount("/auth", authapifeature.Routes(authHandler))
		api.Mount("/profile", profilefeature.Routes(profileHandler))

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpjson.Error(w, http.StatusNotFound, "Not found")
		})
	})

	return r, nil
}

// apiRateLimit limits API requests per client IP. limit <= 0 disables it.
func apiRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpjson.Error(w, http.StatusTooManyRequests, MsgRateLimited)
		}),
	)
}
