// Package engine implements the C5 memory engine: the request-level
// operations (store_single, store_multi, retrieve_single, retrieve_multi,
// get, annotate, situations_for) that sit between the transports (C9/C10)
// and the record store (C3), enforcing validation and the access predicate
// (C4) along the way (spec §4.2).
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Foundation42/entrained.ai-engram/internal/access"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/internal/normalize"
	"github.com/Foundation42/entrained.ai-engram/internal/shardedcache"
	"github.com/Foundation42/entrained.ai-engram/internal/store"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// getCachePerShardSize bounds the get(memory_id) cache (spec §5: "a small
// LRU over get(memory_id)"), sharded the same way as the C8 rate limiter's
// per-client counters.
const getCachePerShardSize = 256

// Engine wires the C3 store and C1 embedder collaborators behind the C5
// operation set. Its only other state is the bounded get(memory_id) cache
// spec §5 calls for; every other call is independently servable, matching
// the teacher's stateless memory-engine shape.
type Engine struct {
	Store    store.Store
	Embedder embedder.Client

	getCache *shardedcache.Cache[*types.Memory]
}

// New constructs an Engine over the given collaborators.
func New(s store.Store, e embedder.Client) *Engine {
	return &Engine{Store: s, Embedder: e, getCache: shardedcache.New[*types.Memory](getCachePerShardSize)}
}

// StoreSingleRequest is the store_single input (spec §4.2).
type StoreSingleRequest struct {
	Content        types.Content
	PrimaryVector  []float32
	TimestampRaw   string
	Metadata       types.Metadata
	Tags           []string
	Causality      types.Causality
	Retention      types.Retention
	SituationType  types.SituationType
	PrivacyLevel   types.PrivacyLevel
}

// StoreResult is the common store_single/store_multi result shape (spec
// §4.2: "{memory_id, status, timestamp}").
type StoreResult struct {
	MemoryID  string
	Status    string
	Timestamp time.Time
}

// StoreSingle implements spec §4.2 store_single: a legacy single-agent
// memory whose witness set is exactly {agent_id}.
func (e *Engine) StoreSingle(ctx context.Context, req StoreSingleRequest) (*StoreResult, error) {
	if err := validateContentText(req.Content.Text, "content.text"); err != nil {
		return nil, err
	}
	if err := validateVector(req.PrimaryVector, e.Embedder.Dimension(), "primary_vector"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Metadata.AgentID) == "" {
		return nil, engramerr.Invalid("metadata.agent_id is required for store_single", "metadata.agent_id")
	}
	if err := validateTimestamp(req.TimestampRaw, "metadata.timestamp"); err != nil {
		return nil, err
	}
	if err := validateMemoryType(req.Metadata.MemoryType, "metadata.memory_type"); err != nil {
		return nil, err
	}
	if err := validateCausality(req.Causality); err != nil {
		return nil, err
	}

	situationType := req.SituationType
	if situationType == "" {
		situationType = types.SituationLegacySingleAgent
	}
	privacyLevel := req.PrivacyLevel
	if privacyLevel == "" {
		privacyLevel = types.PrivacyParticipantsOnly
	}
	memoryType := req.Metadata.MemoryType
	if memoryType == "" {
		memoryType = types.MemoryTypeLegacySingleAgent
	}

	now := time.Now().UTC()
	metadata := req.Metadata
	metadata.MemoryType = memoryType
	if metadata.Timestamp.IsZero() {
		metadata.Timestamp = now
	}

	situationID := uuid.NewString()
	memory := &types.Memory{
		MemoryID:      GenerateMemoryID(req.Content.Text, req.Metadata.AgentID, situationID),
		Content:       req.Content,
		Vector:        req.PrimaryVector,
		Metadata:      metadata,
		Tags:          req.Tags,
		WitnessedBy:   []string{req.Metadata.AgentID},
		SituationID:   situationID,
		SituationType: situationType,
		PrivacyLevel:  privacyLevel,
		Causality:     req.Causality,
		Retention:     req.Retention,
		CreatedAt:     now,
	}

	if err := e.Store.Put(ctx, memory); err != nil {
		return nil, err
	}
	return &StoreResult{MemoryID: memory.MemoryID, Status: "stored", Timestamp: now}, nil
}

// StoreMultiRequest is the store_multi input (spec §4.2).
type StoreMultiRequest struct {
	WitnessedBy   []string
	SituationType types.SituationType
	SituationID   string
	Content       types.Content
	PrimaryVector []float32
	TimestampRaw  string
	Metadata      types.Metadata
	Tags          []string
	Causality     types.Causality
	Retention     types.Retention
	PrivacyLevel  types.PrivacyLevel
}

// StoreMulti implements spec §4.2 store_multi: a witness-scoped,
// multi-entity memory.
func (e *Engine) StoreMulti(ctx context.Context, req StoreMultiRequest) (*StoreResult, error) {
	if err := validateWitnesses(req.WitnessedBy, "witnessed_by"); err != nil {
		return nil, err
	}
	if err := validateContentText(req.Content.Text, "content.text"); err != nil {
		return nil, err
	}
	if err := validateVector(req.PrimaryVector, e.Embedder.Dimension(), "primary_vector"); err != nil {
		return nil, err
	}
	if req.SituationType == "" {
		return nil, engramerr.Invalid("situation_type is required", "situation_type")
	}
	if err := validateTimestamp(req.TimestampRaw, "metadata.timestamp"); err != nil {
		return nil, err
	}
	if err := validateMemoryType(req.Metadata.MemoryType, "metadata.memory_type"); err != nil {
		return nil, err
	}
	if err := validatePrivacyLevel(req.PrivacyLevel, "privacy_level"); err != nil {
		return nil, err
	}
	if err := validateCausality(req.Causality); err != nil {
		return nil, err
	}

	witnesses := normalize.Set(req.WitnessedBy)
	// normalize.Set deduplicates but also rewrites to normalised form; the
	// record keeps the original strings for display (spec §9), so dedupe
	// against the normalised form while preserving first-seen originals.
	seen := make(map[string]struct{}, len(witnesses))
	originalOrder := make([]string, 0, len(req.WitnessedBy))
	for _, w := range req.WitnessedBy {
		norm := normalize.EntityID(w)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		originalOrder = append(originalOrder, w)
	}

	situationID := req.SituationID
	if situationID == "" {
		situationID = uuid.NewString()
	}
	privacyLevel := req.PrivacyLevel
	if privacyLevel == "" {
		privacyLevel = types.PrivacyParticipantsOnly
	}
	memoryType := req.Metadata.MemoryType
	if memoryType == "" {
		memoryType = types.MemoryTypeConversation
	}

	now := time.Now().UTC()
	metadata := req.Metadata
	metadata.MemoryType = memoryType
	if metadata.Timestamp.IsZero() {
		metadata.Timestamp = now
	}

	memory := &types.Memory{
		MemoryID:      GenerateMemoryID(req.Content.Text, originalOrder[0], situationID),
		Content:       req.Content,
		Vector:        req.PrimaryVector,
		Metadata:      metadata,
		Tags:          req.Tags,
		WitnessedBy:   originalOrder,
		SituationID:   situationID,
		SituationType: req.SituationType,
		PrivacyLevel:  privacyLevel,
		Causality:     req.Causality,
		Retention:     req.Retention,
		CreatedAt:     now,
	}

	if err := e.Store.Put(ctx, memory); err != nil {
		return nil, err
	}
	return &StoreResult{MemoryID: memory.MemoryID, Status: "stored", Timestamp: now}, nil
}

// Get implements spec §4.2 get: for multi-entity memories the access
// predicate is applied, and a denial is reported as NotFound rather than
// Forbidden so existence is never leaked (spec §4.2, §7).
func (e *Engine) Get(ctx context.Context, memoryID, requestingEntity string) (*types.Memory, error) {
	memory, cached := e.getCache.Get(memoryID)
	if !cached {
		var err error
		memory, err = e.Store.Get(ctx, memoryID)
		if err != nil {
			return nil, err
		}
	}
	if !access.Allow(memory, requestingEntity) {
		return nil, engramerr.NotFound("memory not found")
	}
	memory.AccessCount++
	now := time.Now().UTC()
	memory.LastAccessedAt = &now
	if err := e.Store.Update(ctx, memory); err != nil {
		return nil, err
	}
	e.getCache.Put(memoryID, memory)
	return memory, nil
}

// InvalidateCache evicts memoryID from the get(memory_id) cache. The C7
// scheduler mutates and deletes memories directly against the store,
// bypassing Engine entirely, so it calls this after every delete/merge/
// decay write — otherwise a memory removed by ExpireDaily or merged away by
// ConsolidateWeekly could still be served as "found" from a stale cache
// entry on the next Get, violating spec §8.1 invariant 7 ("after delete(m),
// any subsequent get(m.memory_id) returns NotFound"). Satisfies
// scheduler.CacheInvalidator.
func (e *Engine) InvalidateCache(memoryID string) {
	e.getCache.Remove(memoryID)
}

// Annotate implements spec §4.2 annotate: only a witness may annotate.
func (e *Engine) Annotate(ctx context.Context, memoryID, requestingEntity string, annotation types.Annotation) error {
	memory, err := e.Store.Get(ctx, memoryID)
	if err != nil {
		return err
	}
	if !access.Allow(memory, requestingEntity) {
		return engramerr.NotFound("memory not found")
	}
	if annotation.Timestamp.IsZero() {
		annotation.Timestamp = time.Now().UTC()
	}
	return e.Store.Annotate(ctx, memoryID, annotation)
}

// SituationsFor implements spec §4.2 situations_for: situations entityID
// participates in, ordered by last_activity descending (delegated to the
// store, which already orders results this way).
func (e *Engine) SituationsFor(ctx context.Context, entityID string) ([]types.Situation, error) {
	return e.Store.SituationsForEntity(ctx, entityID)
}
