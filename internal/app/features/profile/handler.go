// internal/app/features/profile/handler.go
package profile

import (
	"context"

	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"go.uber.org/zap"
)

// Controller is the slice of *session.Controller the profile endpoints use.
type Controller interface {
	Current(ctx context.Context, token string) session.View
	UpdateProfile(ctx context.Context, token string, u models.ProfileUpdate) (session.View, error)
}

// Handler owns the member profile endpoints.
type Handler struct {
	Ctrl       Controller
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler constructs a Handler bound to the session controller.
func NewHandler(ctrl Controller, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Ctrl:       ctrl,
		SessionMgr: sm,
		Log:        logger,
	}
}
