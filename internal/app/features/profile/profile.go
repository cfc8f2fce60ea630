// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/inputval"
	norm "github.com/dalemusser/vlsiclub/internal/app/system/normalize"
	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"github.com/dalemusser/vlsiclub/internal/app/system/validation"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	MsgUnauthorized = "Unauthorized"
	MsgBadRequest   = "Invalid request body"
	MsgNothingToSet = "No profile fields to update"
	MsgUpdateFailed = "Failed to update profile"
	MsgLoading      = "Profile is still loading. Please try again."
)

// ServeProfile handles GET /api/profile. It returns {state, user}.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v := h.Ctrl.Current(ctx, h.SessionMgr.Token(r))
	if v.State == session.StateUnauthenticated {
		httpjson.Error(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, v)
}

// HandleUpdate handles PATCH /api/profile with a partial profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var u models.ProfileUpdate
	if err := httpjson.Decode(r, &u); err != nil {
		httpjson.Error(w, http.StatusBadRequest, MsgBadRequest)
		return
	}
	normalize(&u)
	if msg := check(u); msg != "" {
		httpjson.Error(w, http.StatusBadRequest, msg)
		return
	}
	if u.IsEmpty() {
		httpjson.Error(w, http.StatusBadRequest, MsgNothingToSet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	token := h.SessionMgr.Token(r)
	v, err := h.Ctrl.UpdateProfile(ctx, token, u)
	if err != nil {
		h.Log.Error("profile update failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, MsgUpdateFailed)
		return
	}
	switch v.State {
	case session.StateAuthenticated:
		_ = httpjson.Write(w, http.StatusOK, v)
	case session.StateLoading:
		httpjson.Error(w, http.StatusServiceUnavailable, MsgLoading)
	default:
		httpjson.Error(w, http.StatusUnauthorized, MsgUnauthorized)
	}
}

// normalize trims the text fields. The bio is stored as plain text.
func normalize(u *models.ProfileUpdate) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if u.Name != nil {
		name := norm.Name(*u.Name)
		u.Name = &name
	}
	trim(u.Department)
	trim(u.Year)
	trim(u.Phone)
	if u.Bio != nil {
		bio := htmlsanitize.StripTags(*u.Bio)
		u.Bio = &bio
	}
	if u.Interests != nil {
		out := norm.List(*u.Interests)
		u.Interests = &out
	}
}

func check(u models.ProfileUpdate) string {
	if u.Name != nil {
		if msg := inputval.Name(*u.Name); msg != "" {
			return msg
		}
	}
	if err := validation.Struct(u); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return verr.First()
		}
		return MsgBadRequest
	}
	return ""
}
