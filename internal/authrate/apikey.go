// Package authrate implements the C8 contract: API-key validation, a
// per-client fixed-window rate limiter, and comment/request sanitisation
// (spec §4.6).
package authrate

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// APIKeyCheck validates an API key against want. It accepts the key from,
// in order, the X-API-Key header, an Authorization: Bearer header, or an
// api_key query parameter (spec §4.6; the query form is permitted but the
// least secure of the three). Comparison is constant-time (teacher
// web/handlers/middleware.go's RequireAuth).
type APIKeyCheck struct {
	Want string
}

// Validate extracts a candidate key from r and checks it against the
// configured key.
func (c APIKeyCheck) Validate(r *http.Request) error {
	if c.Want == "" {
		return engramerr.Unauthorized("no API key configured")
	}

	got := r.Header.Get("X-API-Key")
	if got == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if got == "" {
		got = r.URL.Query().Get("api_key")
	}
	if got == "" {
		return engramerr.Unauthorized("missing API key")
	}

	if subtle.ConstantTimeCompare([]byte(got), []byte(c.Want)) != 1 {
		return engramerr.Unauthorized("invalid API key")
	}
	return nil
}
