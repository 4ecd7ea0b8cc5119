package httpapi

import (
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// contentDTO mirrors types.Content on the wire.
type contentDTO struct {
	Text     string            `json:"text"`
	Media    []types.MediaRef  `json:"media,omitempty"`
	Speakers map[string]string `json:"speakers,omitempty"`
	Summary  string            `json:"summary,omitempty"`
}

func (c contentDTO) toDomain() types.Content {
	return types.Content{Text: c.Text, Media: c.Media, Speakers: c.Speakers, Summary: c.Summary}
}

// metadataDTO mirrors types.Metadata, keeping Timestamp as the raw string
// the client sent so the UTC+"Z" invariant (spec §3.2 invariant 9) can be
// checked before parsing.
type metadataDTO struct {
	Timestamp                string         `json:"timestamp,omitempty"`
	MemoryType               types.MemoryType `json:"memory_type,omitempty"`
	AgentID                  string         `json:"agent_id,omitempty"`
	Domain                   string         `json:"domain,omitempty"`
	Confidence               float64        `json:"confidence,omitempty"`
	Importance               float64        `json:"importance,omitempty"`
	TopicTags                []string       `json:"topic_tags,omitempty"`
	InteractionQuality       float64        `json:"interaction_quality,omitempty"`
	SituationDurationMinutes float64        `json:"situation_duration_minutes,omitempty"`
}

func (m metadataDTO) toDomain() (types.Metadata, error) {
	md := types.Metadata{
		MemoryType:               m.MemoryType,
		AgentID:                  m.AgentID,
		Domain:                   m.Domain,
		Confidence:               m.Confidence,
		Importance:               m.Importance,
		TopicTags:                m.TopicTags,
		InteractionQuality:       m.InteractionQuality,
		SituationDurationMinutes: m.SituationDurationMinutes,
	}
	if m.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err == nil {
			md.Timestamp = ts.UTC()
		}
	}
	return md, nil
}

type causalityDTO struct {
	ParentMemories    []string  `json:"parent_memories,omitempty"`
	InfluenceStrength []float64 `json:"influence_strength,omitempty"`
	SynthesisType     string    `json:"synthesis_type,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
}

func (c causalityDTO) toDomain() types.Causality {
	return types.Causality{
		ParentMemories:    c.ParentMemories,
		InfluenceStrength: c.InfluenceStrength,
		SynthesisType:     c.SynthesisType,
		Reasoning:         c.Reasoning,
	}
}

type retentionDTO struct {
	TTLSeconds    int64               `json:"ttl_seconds,omitempty"`
	DecayFunction types.DecayFunction `json:"decay_function,omitempty"`
}

func (r retentionDTO) toDomain() types.Retention {
	return types.Retention{TTLSeconds: r.TTLSeconds, DecayFunction: r.DecayFunction}
}

// storeSingleRequestDTO is the /cam/store wire request (spec §4.2
// store_single).
type storeSingleRequestDTO struct {
	Content       contentDTO          `json:"content"`
	PrimaryVector []float32           `json:"primary_vector"`
	Metadata      metadataDTO         `json:"metadata"`
	Tags          []string            `json:"tags,omitempty"`
	Causality     causalityDTO        `json:"causality,omitempty"`
	Retention     retentionDTO        `json:"retention,omitempty"`
	SituationType types.SituationType `json:"situation_type,omitempty"`
	PrivacyLevel  types.PrivacyLevel  `json:"privacy_level,omitempty"`
}

func (req storeSingleRequestDTO) toEngineRequest() (engine.StoreSingleRequest, error) {
	metadata, err := req.Metadata.toDomain()
	if err != nil {
		return engine.StoreSingleRequest{}, err
	}
	return engine.StoreSingleRequest{
		Content:       req.Content.toDomain(),
		PrimaryVector: req.PrimaryVector,
		TimestampRaw:  req.Metadata.Timestamp,
		Metadata:      metadata,
		Tags:          req.Tags,
		Causality:     req.Causality.toDomain(),
		Retention:     req.Retention.toDomain(),
		SituationType: req.SituationType,
		PrivacyLevel:  req.PrivacyLevel,
	}, nil
}

// storeMultiRequestDTO is the /cam/multi/store wire request (spec §4.2
// store_multi).
type storeMultiRequestDTO struct {
	WitnessedBy   []string            `json:"witnessed_by"`
	SituationType types.SituationType `json:"situation_type"`
	SituationID   string              `json:"situation_id,omitempty"`
	Content       contentDTO          `json:"content"`
	PrimaryVector []float32           `json:"primary_vector"`
	Metadata      metadataDTO         `json:"metadata"`
	Tags          []string            `json:"tags,omitempty"`
	Causality     causalityDTO        `json:"causality,omitempty"`
	Retention     retentionDTO        `json:"retention,omitempty"`
	PrivacyLevel  types.PrivacyLevel  `json:"privacy_level,omitempty"`
}

func (req storeMultiRequestDTO) toEngineRequest() (engine.StoreMultiRequest, error) {
	metadata, err := req.Metadata.toDomain()
	if err != nil {
		return engine.StoreMultiRequest{}, err
	}
	return engine.StoreMultiRequest{
		WitnessedBy:   req.WitnessedBy,
		SituationType: req.SituationType,
		SituationID:   req.SituationID,
		Content:       req.Content.toDomain(),
		PrimaryVector: req.PrimaryVector,
		TimestampRaw:  req.Metadata.Timestamp,
		Metadata:      metadata,
		Tags:          req.Tags,
		Causality:     req.Causality.toDomain(),
		Retention:     req.Retention.toDomain(),
		PrivacyLevel:  req.PrivacyLevel,
	}, nil
}

type storeResponseDTO struct {
	MemoryID  string    `json:"memory_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func storeResponseFrom(r *engine.StoreResult) storeResponseDTO {
	return storeResponseDTO{MemoryID: r.MemoryID, Status: r.Status, Timestamp: r.Timestamp}
}

// resonanceVectorDTO mirrors engine.ResonanceVector.
type resonanceVectorDTO struct {
	Vector []float32 `json:"vector"`
	Weight float64   `json:"weight,omitempty"`
	Label  string    `json:"label,omitempty"`
}

type filtersDTO struct {
	TimestampFrom       *time.Time       `json:"timestamp_from,omitempty"`
	TimestampTo         *time.Time       `json:"timestamp_to,omitempty"`
	MemoryTypes         []types.MemoryType `json:"memory_types,omitempty"`
	AgentIDs            []string         `json:"agent_ids,omitempty"`
	ConfidenceThreshold float64          `json:"confidence_threshold,omitempty"`
	Domains             []string         `json:"domains,omitempty"`
}

// retrievalOptionsDTO mirrors engine.RetrievalOptions. TopK is a pointer so
// an omitted top_k (nil, falls back to the engine default) can be told
// apart from an explicit "top_k": 0 (spec §4.2: returns an empty result),
// which a bare int with omitempty cannot express.
type retrievalOptionsDTO struct {
	TopK                *int    `json:"top_k,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	DiversityLambda     float64 `json:"diversity_lambda,omitempty"`
	BoostRecent         float64 `json:"boost_recent,omitempty"`
}

func (r retrievalOptionsDTO) toDomain() engine.RetrievalOptions {
	topK := engine.TopKOmitted
	if r.TopK != nil {
		topK = *r.TopK
	}
	return engine.RetrievalOptions{
		TopK:                topK,
		SimilarityThreshold: r.SimilarityThreshold,
		DiversityLambda:     r.DiversityLambda,
		BoostRecent:         r.BoostRecent,
	}
}

type entityFiltersDTO struct {
	CoParticipants   []string `json:"co_participants,omitempty"`
	ExcludePrivateTo []string `json:"exclude_private_to,omitempty"`
}

// retrieveRequestDTO is the shared /cam/retrieve and /cam/multi/retrieve
// wire request shape (spec §4.2).
type retrieveRequestDTO struct {
	ResonanceVectors []resonanceVectorDTO `json:"resonance_vectors"`
	TagsInclude      []string             `json:"tags_include,omitempty"`
	TagsExclude      []string             `json:"tags_exclude,omitempty"`
	Filters          filtersDTO           `json:"filters,omitempty"`
	Retrieval        retrievalOptionsDTO  `json:"retrieval,omitempty"`
	RequestingEntity string               `json:"requesting_entity,omitempty"`
	EntityFilters    entityFiltersDTO     `json:"entity_filters,omitempty"`
	Ordering         string               `json:"ordering,omitempty"`
}

func (req retrieveRequestDTO) toEngineRequest() engine.RetrieveRequest {
	vectors := make([]engine.ResonanceVector, 0, len(req.ResonanceVectors))
	for _, v := range req.ResonanceVectors {
		vectors = append(vectors, engine.ResonanceVector{Vector: v.Vector, Weight: v.Weight, Label: v.Label})
	}
	return engine.RetrieveRequest{
		ResonanceVectors: vectors,
		TagsInclude:      req.TagsInclude,
		TagsExclude:      req.TagsExclude,
		Filters: engine.RetrievalFilters{
			TimestampFrom:       req.Filters.TimestampFrom,
			TimestampTo:         req.Filters.TimestampTo,
			MemoryTypes:         req.Filters.MemoryTypes,
			AgentIDs:            req.Filters.AgentIDs,
			ConfidenceThreshold: req.Filters.ConfidenceThreshold,
			Domains:             req.Filters.Domains,
		},
		Retrieval:        req.Retrieval.toDomain(),
		RequestingEntity: req.RequestingEntity,
		EntityFilters: engine.EntityFilters{
			CoParticipants:   req.EntityFilters.CoParticipants,
			ExcludePrivateTo: req.EntityFilters.ExcludePrivateTo,
		},
		Ordering: req.Ordering,
	}
}

type memoryHitDTO struct {
	MemoryID        string         `json:"memory_id"`
	SimilarityScore float64        `json:"similarity_score"`
	ContentPreview  string         `json:"content_preview"`
	Metadata        types.Metadata `json:"metadata"`
	Tags            []string       `json:"tags,omitempty"`
	MediaCount      int            `json:"media_count"`
	AnnotationCount int            `json:"annotation_count"`
}

type retrieveResponseDTO struct {
	Memories           []memoryHitDTO `json:"memories"`
	TotalFound         int            `json:"total_found"`
	SearchTimeMs       int64          `json:"search_time_ms"`
	QueryVectorDims    int            `json:"query_vector_dims"`
	AccessGrantedCount int            `json:"access_granted_count,omitempty"`
	AccessDeniedCount  int            `json:"access_denied_count,omitempty"`
	EntityVerification string         `json:"entity_verification,omitempty"`
}

func retrieveResponseFrom(r *engine.RetrieveResult) retrieveResponseDTO {
	hits := make([]memoryHitDTO, 0, len(r.Memories))
	for _, m := range r.Memories {
		hits = append(hits, memoryHitDTO{
			MemoryID:        m.MemoryID,
			SimilarityScore: m.SimilarityScore,
			ContentPreview:  m.ContentPreview,
			Metadata:        m.Metadata,
			Tags:            m.Tags,
			MediaCount:      m.MediaCount,
			AnnotationCount: m.AnnotationCount,
		})
	}
	return retrieveResponseDTO{
		Memories:           hits,
		TotalFound:         r.TotalFound,
		SearchTimeMs:       r.SearchTimeMs,
		QueryVectorDims:    r.QueryVectorDims,
		AccessGrantedCount: r.AccessGrantedCount,
		AccessDeniedCount:  r.AccessDeniedCount,
		EntityVerification: r.EntityVerification,
	}
}

// annotateRequestDTO is the /cam/memory/{id}/annotate wire request.
type annotateRequestDTO struct {
	AnnotatorID   string             `json:"annotator_id"`
	Type          types.AnnotationType `json:"type,omitempty"`
	Content       string             `json:"content"`
	Vector        []float32          `json:"vector,omitempty"`
	EvidenceLinks []string           `json:"evidence_links,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	Confidence    float64            `json:"confidence,omitempty"`
}

func (req annotateRequestDTO) toDomain() types.Annotation {
	return types.Annotation{
		AnnotatorID:   req.AnnotatorID,
		Type:          req.Type,
		Content:       req.Content,
		Vector:        req.Vector,
		EvidenceLinks: req.EvidenceLinks,
		Tags:          req.Tags,
		Confidence:    req.Confidence,
	}
}
