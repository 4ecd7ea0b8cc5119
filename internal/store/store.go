// Package store defines the C3 contract: durable storage of memory records
// plus an index supporting witness/tag/numeric-filtered KNN queries (spec
// §4.1). Store is implemented by internal/store/redisrecord, composing a
// Redis-resident record layout with an in-process internal/store/hnsw
// index.
package store

import (
	"context"
	"time"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// TagFilter narrows a KNN query to memories matching literal tag
// predicates (spec §4.1 "KNN-with-filter evaluation"). A zero-value field
// means "no constraint on this dimension". RequireWitness is always set by
// multi-entity retrieval (store_multi's witness predicate is mandatory);
// it is empty for situations that intentionally bypass the witness check
// (none, currently — kept as a field rather than a separate method to
// keep the KNN signature singular per the spec's contract).
type TagFilter struct {
	RequireWitness string // normalised entity ID; "" means no witness predicate
	SituationType  string
	SituationID    string
	PrivacyLevels  []types.PrivacyLevel
	MemoryTypes    []types.MemoryType
	AgentIDs       []string
	Domains        []string
	TopicTagsAny   []string
}

// NumericFilter narrows a KNN query by sortable numeric ranges (spec §4.1).
type NumericFilter struct {
	TimestampFrom    *time.Time
	TimestampTo      *time.Time
	ConfidenceMin    *float64
	ImportanceMin    *float64
}

// KNNResult is one ranked hit from a KNN query: a memory ID and its cosine
// similarity (1 - distance) to the query vector, descending (spec §4.1:
// "callers convert to similarity = 1 - distance and re-sort descending").
type KNNResult struct {
	MemoryID   string
	Similarity float64
}

// Store is the full C3 contract (spec §4.1 "Operations").
type Store interface {
	// Put persists memory. It is idempotent on MemoryID: a duplicate ID
	// fails with engramerr.KindAlreadyExists (spec §4.1).
	Put(ctx context.Context, memory *types.Memory) error

	// Update overwrites an existing record in place, preserving its
	// memory_id (spec §3.2 invariant 1, "memory_id is immutable"). It is
	// used for the bookkeeping mutations the spec explicitly allows
	// outside annotation append — access_count/last_accessed_at on
	// retrieval, and importance decay on the monthly cleanup job (spec
	// §3.3, §4.5) — never for content changes. Fails with
	// engramerr.KindNotFound if memory_id does not already exist.
	Update(ctx context.Context, memory *types.Memory) error

	// Get returns memory by ID, or an engramerr.KindNotFound error.
	Get(ctx context.Context, memoryID string) (*types.Memory, error)

	// KNN returns up to k memories nearest to query by cosine similarity,
	// matching tags and nums, with similarity >= floor, ordered by
	// decreasing similarity.
	KNN(ctx context.Context, query []float32, k int, floor float64, tags TagFilter, nums NumericFilter) ([]KNNResult, error)

	// ScanByEntity lists every memory ID witnessed by entityID (spec §4.1,
	// "witness-scoped listing").
	ScanByEntity(ctx context.Context, entityID string) ([]string, error)

	// Annotate appends annotation to memoryID's annotation list. Fails
	// with engramerr.KindNotFound if the parent does not exist.
	Annotate(ctx context.Context, memoryID string, annotation types.Annotation) error

	// ListAnnotations returns every annotation attached to memoryID, in
	// append order.
	ListAnnotations(ctx context.Context, memoryID string) ([]types.Annotation, error)

	// Delete removes memory and its secondary indices. It does not remove
	// incoming causality edges (spec §4.1, §9 "weak references").
	Delete(ctx context.Context, memoryID string) error

	// GetSituation returns the derived Situation for situationID, or
	// engramerr.KindNotFound.
	GetSituation(ctx context.Context, situationID string) (*types.Situation, error)

	// SituationsForEntity lists every situation entityID participates in,
	// ordered by LastActivity descending (spec §4.2 situations_for).
	SituationsForEntity(ctx context.Context, entityID string) ([]types.Situation, error)

	// AllMemoryIDs returns every memory ID currently stored, for the
	// cleanup scheduler's scan-based jobs (spec §4.5) and for the
	// engine-native HNSW index's startup Load.
	AllMemoryIDs(ctx context.Context) ([]string, error)

	// RebuildIndex discards and reconstructs the in-process vector index
	// from the durable records currently held, without touching the
	// records themselves (spec §6.1 admin "recreate/indexes"; SPEC_FULL
	// §4.1.1 — the engine-native index has no on-disk definition to
	// recreate, so this replays the same load-from-records step New
	// performs at startup).
	RebuildIndex(ctx context.Context) error

	// Close releases the store's underlying connection(s).
	Close() error
}
