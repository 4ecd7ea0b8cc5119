package httpapi

import (
	"net/http"

	"github.com/Foundation42/entrained.ai-engram/internal/authrate"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
)

// handleStoreSingle implements POST /cam/store (spec §4.2 store_single).
func (s *Server) handleStoreSingle(w http.ResponseWriter, r *http.Request) {
	var dto storeSingleRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	req, err := dto.toEngineRequest()
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.StoreSingle(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, storeResponseFrom(result))
}

// handleRetrieveSingle implements POST /cam/retrieve (spec §4.2
// retrieve_single).
func (s *Server) handleRetrieveSingle(w http.ResponseWriter, r *http.Request) {
	var dto retrieveRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.RetrieveSingle(r.Context(), dto.toEngineRequest())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponseFrom(result))
}

// handleGetMemory implements GET /cam/memory/{id} (spec §6.1 "Read
// memory"). requesting_entity is an optional query parameter; its absence
// means only a public memory will be returned (spec §4.4 has no
// administrative override).
func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requestingEntity := r.URL.Query().Get("requesting_entity")

	memory, err := s.engine.Get(r.Context(), id, requestingEntity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

// handleAnnotate implements POST /cam/memory/{id}/annotate (spec §4.2
// annotate: "only a witness may annotate"). The annotator's own ID is used
// as the access-predicate's requesting entity.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var dto annotateRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	if dto.AnnotatorID == "" {
		writeError(w, engramerr.Invalid("annotator_id is required", "annotator_id"))
		return
	}
	if err := authrate.SanitizeComment(dto.Content, s.cfg.CommentMaxBytes); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Annotate(r.Context(), id, dto.AnnotatorID, dto.toDomain()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "annotated"})
}

// handleListAnnotations implements GET /cam/memory/{id}/annotations.
// Listing is witness-gated the same way a read is: fetch the memory via
// the access-checked Get before returning its annotations, so an
// unauthorised caller cannot enumerate annotations on a memory it could
// not otherwise see.
func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requestingEntity := r.URL.Query().Get("requesting_entity")

	if _, err := s.engine.Get(r.Context(), id, requestingEntity); err != nil {
		writeError(w, err)
		return
	}
	annotations, err := s.engine.Store.ListAnnotations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": annotations})
}
