package httpapi

import "net/http"

// handleAdminFlush implements POST /api/v1/admin/flush/memories (spec
// §6.1: "drop all records, preserve index"). The engine-native index has
// no separate on-disk definition (SPEC_FULL §4.1.1), so "preserve index"
// means the index structure is rebuilt empty alongside the records rather
// than requiring a second recreate call; RebuildIndex is still invoked
// explicitly afterwards so the in-process graph does not keep stale
// entries for deleted IDs.
func (s *Server) handleAdminFlush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := s.engine.Store.AllMemoryIDs(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	deleted := 0
	for _, id := range ids {
		if err := s.engine.Store.Delete(ctx, id); err != nil {
			continue
		}
		deleted++
	}
	if err := s.engine.Store.RebuildIndex(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "flushed", "deleted": deleted})
}

// handleAdminRecreateIndexes implements POST
// /api/v1/admin/recreate/indexes.
func (s *Server) handleAdminRecreateIndexes(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Store.RebuildIndex(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "indexes recreated"})
}

// handleAdminStatus implements GET /api/v1/admin/status.
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Store.AllMemoryIDs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	status := map[string]interface{}{
		"status":             "ok",
		"memory_count":       len(ids),
		"scheduler_attached": s.scheduler != nil,
	}
	writeJSON(w, http.StatusOK, status)
}
