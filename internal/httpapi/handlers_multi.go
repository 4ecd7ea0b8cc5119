package httpapi

import (
	"net/http"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// handleStoreMulti implements POST /cam/multi/store (spec §4.2
// store_multi).
func (s *Server) handleStoreMulti(w http.ResponseWriter, r *http.Request) {
	var dto storeMultiRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	req, err := dto.toEngineRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.StoreMulti(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, storeResponseFrom(result))
}

// handleRetrieveMulti implements POST /cam/multi/retrieve (spec §4.2
// retrieve_multi: requesting_entity is mandatory).
func (s *Server) handleRetrieveMulti(w http.ResponseWriter, r *http.Request) {
	var dto retrieveRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	if dto.RequestingEntity == "" {
		writeError(w, engramerr.Invalid("requesting_entity is required for retrieve_multi", "requesting_entity"))
		return
	}
	result, err := s.engine.RetrieveMulti(r.Context(), dto.toEngineRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponseFrom(result))
}

// handleGetMemoryMulti implements GET /cam/multi/memory/{id} (spec §6.1
// "Witness-checked read"): requesting_entity is mandatory, unlike the
// single-agent read.
func (s *Server) handleGetMemoryMulti(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requestingEntity := r.URL.Query().Get("requesting_entity")
	if requestingEntity == "" {
		writeError(w, engramerr.Invalid("requesting_entity query parameter is required", "requesting_entity"))
		return
	}

	memory, err := s.engine.Get(r.Context(), id, requestingEntity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

// handleSituationsFor implements GET /cam/multi/situations/{entity_id}
// (spec §4.2 situations_for).
func (s *Server) handleSituationsFor(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")

	situations, err := s.engine.SituationsFor(r.Context(), entityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"situations": situations})
}
