package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// BreakerReporter is satisfied by *cms.Client.
type BreakerReporter interface {
	BreakerState() string
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB  Pinger
	CMS BreakerReporter // optional
	Log *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(db Pinger, cms BreakerReporter, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		CMS: cms,
		Log: logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	CMS      string `json:"cms,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "cms":"closed" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
//
// An open CMS breaker is reported but does not fail the check.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}
	if h.CMS != nil {
		resp.CMS = h.CMS.BreakerState()
	}

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = httpjson.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	_ = httpjson.Write(w, http.StatusOK, resp)
}
