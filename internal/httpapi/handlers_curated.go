package httpapi

import (
	"net/http"

	"github.com/Foundation42/entrained.ai-engram/internal/curation"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// curateRequestDTO is the shared /cam/curated/analyze and /cam/curated/store
// wire request (spec §4.3).
type curateRequestDTO struct {
	UserInput           string              `json:"user_input"`
	AgentResponse       string              `json:"agent_response"`
	ConversationContext []string            `json:"conversation_context,omitempty"`
	WitnessedBy         []string            `json:"witnessed_by"`
	SituationID         string              `json:"situation_id,omitempty"`
	SituationType       types.SituationType `json:"situation_type,omitempty"`
	ForceStorage        bool                `json:"force_storage,omitempty"`
}

func (req curateRequestDTO) toEngineRequest(analyzeOnly bool) curation.Request {
	situationType := req.SituationType
	if situationType == "" {
		situationType = types.SituationConversation
	}
	return curation.Request{
		UserInput:           req.UserInput,
		AgentResponse:       req.AgentResponse,
		ConversationContext: req.ConversationContext,
		WitnessedBy:         req.WitnessedBy,
		SituationID:         req.SituationID,
		SituationType:       situationType,
		ForceStorage:        req.ForceStorage,
		AnalyzeOnly:         analyzeOnly,
	}
}

type curateResponseDTO struct {
	Decisions       []types.ObservationDecision `json:"decisions"`
	StoredMemoryIDs []string                    `json:"stored_memory_ids,omitempty"`
}

func curateResponseFrom(r *curation.Result) curateResponseDTO {
	return curateResponseDTO{Decisions: r.Decisions, StoredMemoryIDs: r.StoredMemoryIDs}
}

// handleCuratedAnalyze implements POST /cam/curated/analyze (spec §4.3
// "Analyse-only mode").
func (s *Server) handleCuratedAnalyze(w http.ResponseWriter, r *http.Request) {
	var dto curateRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCurateRequest(dto); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.curation.Curate(r.Context(), dto.toEngineRequest(true))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curateResponseFrom(result))
}

// handleCuratedStore implements POST /cam/curated/store (spec §4.3 steps
// 1-5, or the force-store override).
func (s *Server) handleCuratedStore(w http.ResponseWriter, r *http.Request) {
	var dto curateRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCurateRequest(dto); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.curation.Curate(r.Context(), dto.toEngineRequest(false))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curateResponseFrom(result))
}

func validateCurateRequest(dto curateRequestDTO) error {
	if len(dto.WitnessedBy) == 0 {
		return engramerr.Invalid("witnessed_by must be non-empty", "witnessed_by")
	}
	if dto.UserInput == "" && dto.AgentResponse == "" {
		return engramerr.Invalid("user_input or agent_response must be present", "user_input")
	}
	return nil
}

// curatedRetrieveRequestDTO is /cam/curated/retrieve's wire request (spec
// §6.1 "Retrieve with intent analysis"): a natural-language query replaces
// the raw resonance_vectors of /cam/retrieve and /cam/multi/retrieve, and is
// embedded server-side before the same engine retrieval runs — the "intent
// analysis" is the semantic embedding of the query text itself, since no
// pack example implements a separate NL-to-structured-query intent parser.
type curatedRetrieveRequestDTO struct {
	Query            string              `json:"query"`
	TagsInclude      []string            `json:"tags_include,omitempty"`
	TagsExclude      []string            `json:"tags_exclude,omitempty"`
	Filters          filtersDTO          `json:"filters,omitempty"`
	Retrieval        retrievalOptionsDTO `json:"retrieval,omitempty"`
	RequestingEntity string              `json:"requesting_entity,omitempty"`
	EntityFilters    entityFiltersDTO    `json:"entity_filters,omitempty"`
	Ordering         string              `json:"ordering,omitempty"`
}

// handleCuratedRetrieve implements POST /cam/curated/retrieve.
func (s *Server) handleCuratedRetrieve(w http.ResponseWriter, r *http.Request) {
	var dto curatedRetrieveRequestDTO
	if err := decodeJSON(r, &dto); err != nil {
		writeError(w, err)
		return
	}
	if dto.Query == "" {
		writeError(w, engramerr.Invalid("query must be non-empty", "query"))
		return
	}

	vector, err := s.embedder.Embed(r.Context(), dto.Query)
	if err != nil {
		writeError(w, engramerr.Upstream("embedding query failed", err))
		return
	}

	req := engine.RetrieveRequest{
		ResonanceVectors: []engine.ResonanceVector{{Vector: vector, Weight: 1}},
		TagsInclude:      dto.TagsInclude,
		TagsExclude:      dto.TagsExclude,
		Filters: engine.RetrievalFilters{
			TimestampFrom:       dto.Filters.TimestampFrom,
			TimestampTo:         dto.Filters.TimestampTo,
			MemoryTypes:         dto.Filters.MemoryTypes,
			AgentIDs:            dto.Filters.AgentIDs,
			ConfidenceThreshold: dto.Filters.ConfidenceThreshold,
			Domains:             dto.Filters.Domains,
		},
		Retrieval:        dto.Retrieval.toDomain(),
		RequestingEntity: dto.RequestingEntity,
		EntityFilters: engine.EntityFilters{
			CoParticipants:   dto.EntityFilters.CoParticipants,
			ExcludePrivateTo: dto.EntityFilters.ExcludePrivateTo,
		},
		Ordering: dto.Ordering,
	}

	var result *engine.RetrieveResult
	if dto.RequestingEntity != "" {
		result, err = s.engine.RetrieveMulti(r.Context(), req)
	} else {
		result, err = s.engine.RetrieveSingle(r.Context(), req)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponseFrom(result))
}

type entityStatsDTO struct {
	EntityID        string `json:"entity_id"`
	MemoryCount     int    `json:"memory_count"`
	SituationCount  int    `json:"situation_count"`
}

// handleCuratedStats implements GET /cam/curated/stats/{entity_id}.
func (s *Server) handleCuratedStats(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")

	memoryIDs, err := s.engine.Store.ScanByEntity(r.Context(), entityID)
	if err != nil {
		writeError(w, err)
		return
	}
	situations, err := s.engine.SituationsFor(r.Context(), entityID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entityStatsDTO{
		EntityID:       entityID,
		MemoryCount:    len(memoryIDs),
		SituationCount: len(situations),
	})
}
