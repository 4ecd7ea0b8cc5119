package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/authrate"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// clientIP extracts the request's source IP for rate-limiting from
// RemoteAddr alone; forwarded headers such as X-Forwarded-For are ignored
// (the teacher trusts RemoteAddr alone; Engram sits behind the same trust
// model — no reverse proxy chain is assumed by spec §6).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware enforces the C8 fixed-window limiter on every
// request, ahead of the security-headers wrapper, matching the teacher's
// rate-limit-then-headers ordering in internal/server/server.go.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.limiter.Allow(clientIP(r), time.Now().UTC()); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitRequestBody caps the request body at cfg.RequestMaxBytes (spec
// §4.6, SanitizeRequestBody's ceiling), rejecting an oversized body before
// it is ever fully read into memory rather than after (the cheaper,
// earlier-reject form of the same check).
func (s *Server) limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		max := int64(s.cfg.RequestMaxBytes)
		if max <= 0 {
			max = authrate.DefaultRequestMaxBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey enforces C8 API-key validation on every /cam/ and
// /api/v1/admin/ route (spec §6.1: "all non-admin endpoints require an API
// key" — admin endpoints require it too, in addition to basic auth).
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.AuthEnabled {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.apiKey.Validate(r); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdminBasicAuth enforces HTTP Basic Auth against the configured
// admin credentials, constant-time per the stdlib's own
// http.Request.BasicAuth + subtle comparison convention (spec §6.1: "Admin
// endpoints require HTTP Basic Auth *and* a valid API key").
func (s *Server) requireAdminBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !constantTimeEqual(user, s.cfg.AdminUser) || !constantTimeEqual(pass, s.cfg.AdminPassword) {
			w.Header().Set("WWW-Authenticate", `Basic realm="engram-admin"`)
			writeError(w, engramerr.Unauthorized("admin credentials required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
