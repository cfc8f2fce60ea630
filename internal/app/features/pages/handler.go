// internal/app/features/pages/handler.go
package pages

import (
	"context"
	"errors"
	"net/http"

	agg "github.com/dalemusser/vlsiclub/internal/app/content"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/viewmodel"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PageFetcher loads the collections one page needs.
type PageFetcher interface {
	Page(ctx context.Context, page string) (agg.Payload, error)
}

const (
	MsgUnknownPage = "Unknown page"
	MsgLoadFailed  = "Failed to load data. Please try again later."
	MsgTimedOut    = "Request timed out. Please try again later."
)

// Handler serves page view models already derived from the payload.
type Handler struct {
	Content PageFetcher
	Log     *zap.Logger
}

// NewHandler constructs a pages Handler.
func NewHandler(f PageFetcher, logger *zap.Logger) *Handler {
	return &Handler{Content: f, Log: logger}
}

// ServePage handles GET /api/pages/{page}.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")

	payload, err := h.Content.Page(r.Context(), page)
	switch {
	case errors.Is(err, agg.ErrUnknownPage):
		httpjson.Error(w, http.StatusNotFound, MsgUnknownPage)
		return
	case err != nil:
		var fe *agg.FetchError
		if errors.As(err, &fe) && fe.Timeout {
			h.Log.Warn("page content timed out", zap.String("page", page), zap.Error(err))
			httpjson.Error(w, http.StatusGatewayTimeout, MsgTimedOut)
			return
		}
		h.Log.Error("page content failed", zap.String("page", page), zap.Error(err))
		httpjson.Error(w, http.StatusBadGateway, MsgLoadFailed)
		return
	}

	vm, err := viewmodel.Build(page, payload)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, MsgUnknownPage)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, vm)
}
