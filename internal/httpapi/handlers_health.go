package httpapi

import "net/http"

// handleHealth implements GET /health: unauthenticated liveness, exempt
// from both the API-key check and the rate limiter (spec §6.1).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
