// Package httpjson writes and reads JSON bodies for the API handlers.
package httpjson

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/vlsiclub/internal/app/system/limits"
	json "github.com/goccy/go-json"
)

// MaxBodyBytes bounds request bodies decoded by Decode.
const MaxBodyBytes = limits.MaxJSONBody

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Write encodes v as the response body with the given status.
func Write(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// ErrorBody is the {error} shape returned by the content endpoints.
type ErrorBody struct {
	Error string `json:"error"`
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	_ = Write(w, status, ErrorBody{Error: msg})
}

// Result is the {success, message} shape returned by the account endpoints.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	User    any    `json:"user,omitempty"`
}

// Fail writes {"success": false, "message": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	_ = Write(w, status, Result{Success: false, Message: msg})
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
