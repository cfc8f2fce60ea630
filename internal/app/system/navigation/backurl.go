// Package navigation provides helpers for safe URL navigation and redirects.
package navigation

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// SafeReturn returns raw when it is a same-site absolute path, otherwise
// fallback. /login and /logout are never returned, so signing in cannot
// bounce straight back to a sign-in or sign-out page.
func SafeReturn(raw, fallback string) string {
	return urlutil.SafeReturn(raw, "", fallback)
}

// ReturnURL reads the "return" query parameter, falling back to the form
// value, and validates it with SafeReturn.
func ReturnURL(r *http.Request, fallback string) string {
	if ret := SafeReturn(query.Get(r, "return"), ""); ret != "" {
		return ret
	}
	return SafeReturn(r.FormValue("return"), fallback)
}
