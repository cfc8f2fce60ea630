// internal/app/features/pulse/handler.go
package pulse

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Incrementer applies an atomic counter increment in the content repository.
type Incrementer interface {
	Increment(ctx context.Context, id, field string, by int) (models.Document, error)
}

const (
	MsgMissingID      = "Missing id or action"
	MsgAlreadyUpvoted = "Already upvoted"
	MsgUpdateFailed   = "Failed to update document"
	MsgSessionFailed  = "Failed to record upvote"
)

// Handler serves the VLSI Pulse counters. Upvotes are limited to one per
// topic per cookie session.
type Handler struct {
	CMS        Incrementer
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(cms Incrementer, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{CMS: cms, SessionMgr: sm, Log: logger}
}

type result struct {
	Success bool            `json:"success"`
	Data    models.Document `json:"data"`
}

// ServeView handles POST /api/pulse/{id}/view.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httpjson.Error(w, http.StatusBadRequest, MsgMissingID)
		return
	}
	doc, err := h.CMS.Increment(r.Context(), id, "views", 1)
	if err != nil {
		h.Log.Error("pulse view increment failed", zap.String("id", id), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgUpdateFailed)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, result{Success: true, Data: doc})
}

// ServeUpvote handles POST /api/pulse/{id}/upvote.
func (h *Handler) ServeUpvote(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httpjson.Error(w, http.StatusBadRequest, MsgMissingID)
		return
	}
	if h.SessionMgr.HasUpvoted(r, id) {
		httpjson.Error(w, http.StatusConflict, MsgAlreadyUpvoted)
		return
	}
	// the set change is checked before the count so a vote that cannot be
	// remembered is never counted
	pending, err := h.SessionMgr.PrepareUpvote(r, id)
	if err != nil {
		h.Log.Error("pulse upvote cannot be recorded in session", zap.String("id", id), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgSessionFailed)
		return
	}

	doc, err := h.CMS.Increment(r.Context(), id, "upvotes", 1)
	if err != nil {
		h.Log.Error("pulse upvote increment failed", zap.String("id", id), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgUpdateFailed)
		return
	}
	if err := pending.Save(w, r); err != nil {
		h.Log.Error("pulse upvote session save failed", zap.String("id", id), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgSessionFailed)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, result{Success: true, Data: doc})
}
