// internal/app/features/content/handler.go
package content

import (
	"context"
	"errors"
	"net/http"
	"strings"

	agg "github.com/dalemusser/vlsiclub/internal/app/content"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Fetcher runs the aggregation catalog.
type Fetcher interface {
	All(ctx context.Context) (agg.Payload, error)
	Page(ctx context.Context, page string) (agg.Payload, error)
}

// Incrementer applies an atomic counter increment in the content repository.
type Incrementer interface {
	Increment(ctx context.Context, id, field string, by int) (models.Document, error)
}

// Mutation actions and the counter each one increments.
var actions = map[string]string{
	"incrementViews":   "views",
	"incrementUpvotes": "upvotes",
}

// Response messages.
const (
	MsgFetchFailed   = "Failed to fetch data from the content repository"
	MsgFetchTimeout  = "Content repository request timed out"
	MsgUnknownPage   = "Unknown page"
	MsgMissingInput  = "Missing id or action"
	MsgInvalidAction = "Invalid action"
	MsgUpdateFailed  = "Failed to update document"
)

// Handler serves the aggregation and mutation endpoints.
type Handler struct {
	Content Fetcher
	CMS     Incrementer
	Log     *zap.Logger
}

func NewHandler(f Fetcher, inc Incrementer, logger *zap.Logger) *Handler {
	return &Handler{Content: f, CMS: inc, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/content                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Content.All(r.Context())
	if err != nil {
		h.fetchFailed(w, "all", err)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, payload)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/content/{page}                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	payload, err := h.Content.Page(r.Context(), page)
	if errors.Is(err, agg.ErrUnknownPage) {
		httpjson.Error(w, http.StatusNotFound, MsgUnknownPage)
		return
	}
	if err != nil {
		h.fetchFailed(w, page, err)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, payload)
}

func (h *Handler) fetchFailed(w http.ResponseWriter, page string, err error) {
	var fe *agg.FetchError
	timeout := errors.As(err, &fe) && fe.Timeout
	h.Log.Error("content aggregation failed",
		zap.String("page", page),
		zap.Bool("timeout", timeout),
		zap.Error(err))
	if timeout {
		httpjson.Error(w, http.StatusBadGateway, MsgFetchTimeout)
		return
	}
	httpjson.Error(w, http.StatusBadGateway, MsgFetchFailed)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/content/mutate                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type mutateRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

type mutateResponse struct {
	Success bool            `json:"success"`
	Data    models.Document `json:"data"`
}

func (h *Handler) ServeMutate(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	// an unreadable body is a failed mutation, not a missing field
	if err := httpjson.Decode(r, &req); err != nil {
		h.Log.Warn("content mutation body unreadable", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgUpdateFailed)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Action == "" {
		httpjson.Error(w, http.StatusBadRequest, MsgMissingInput)
		return
	}
	field, ok := actions[req.Action]
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, MsgInvalidAction)
		return
	}

	doc, err := h.CMS.Increment(r.Context(), req.ID, field, 1)
	if err != nil {
		h.Log.Error("content mutation failed",
			zap.String("id", req.ID),
			zap.String("action", req.Action),
			zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgUpdateFailed)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, mutateResponse{Success: true, Data: doc})
}
