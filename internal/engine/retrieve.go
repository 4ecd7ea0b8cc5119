package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/access"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/internal/normalize"
	"github.com/Foundation42/entrained.ai-engram/internal/store"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// ResonanceVector is one weighted query vector in a retrieval request (spec
// §4.2 retrieve_single: "resonance_vectors: [{vector, weight, label?}]").
type ResonanceVector struct {
	Vector []float32
	Weight float64
	Label  string
}

// RetrievalFilters narrows candidates beyond the vector search itself (spec
// §4.2 retrieve_single).
type RetrievalFilters struct {
	TimestampFrom       *time.Time
	TimestampTo         *time.Time
	MemoryTypes         []types.MemoryType
	AgentIDs            []string
	ConfidenceThreshold float64
	Domains             []string
}

// RetrievalOptions controls ranking and result shape (spec §4.2
// retrieve_single "retrieval" block).
//
// TopK distinguishes "omitted" from "explicit zero": TopKOmitted (the zero
// value of an unset RetrievalOptions in wire DTOs is translated to this
// sentinel) falls back to defaultTopK, a positive value is used as-is, and
// an explicit 0 returns an empty result set (spec §4.2: "top_k = 0: returns
// empty memories, status ok"). A bare `<= 0` check cannot make this
// distinction, which is why the sentinel exists.
type RetrievalOptions struct {
	TopK                int
	SimilarityThreshold float64
	DiversityLambda     float64
	BoostRecent         float64
}

// TopKOmitted marks RetrievalOptions.TopK as not supplied by the caller.
// Wire layers (internal/httpapi's DTOs, internal/mcpserver's tool args) must
// translate a missing top_k into this sentinel rather than into 0, so that
// retrieve() can still tell it apart from an explicit top_k: 0.
const TopKOmitted = -1

// EntityFilters narrows retrieve_multi by co-participation (spec §4.2
// retrieve_multi).
type EntityFilters struct {
	CoParticipants   []string
	ExcludePrivateTo []string
}

// Ordering values recognised by retrieve() (spec §4.2: "Rank by the
// ordering spec, default similarity desc"). An empty Ordering is treated as
// OrderingSimilarityDesc.
const (
	OrderingSimilarityDesc = "similarity desc"
	OrderingCreatedAtDesc  = "created_at desc"
	OrderingCreatedAtAsc   = "created_at asc"
	OrderingImportanceDesc = "importance desc"
)

// RetrieveRequest is the shared retrieve_single/retrieve_multi input. For
// retrieve_multi, RequestingEntity is required and non-empty.
type RetrieveRequest struct {
	ResonanceVectors []ResonanceVector
	TagsInclude      []string
	TagsExclude      []string
	Filters          RetrievalFilters
	Retrieval        RetrievalOptions
	RequestingEntity string
	EntityFilters    EntityFilters

	// Ordering selects the result rank (one of the Ordering* constants);
	// empty defaults to OrderingSimilarityDesc.
	Ordering string
}

// MemoryHit is one ranked result entry (spec §4.2: "each entry carries
// similarity_score, content_preview ..., metadata, tags, counts of media and
// annotations").
type MemoryHit struct {
	MemoryID        string
	SimilarityScore float64
	ContentPreview  string
	Metadata        types.Metadata
	Tags            []string
	MediaCount      int
	AnnotationCount int
}

// RetrieveResult is the shared retrieve_single/retrieve_multi result shape.
type RetrieveResult struct {
	Memories          []MemoryHit
	TotalFound        int
	SearchTimeMs      int64
	QueryVectorDims   int
	AccessGrantedCount int
	AccessDeniedCount  int
	EntityVerification string
}

const defaultTopK = 10

// RetrieveSingle implements spec §4.2 retrieve_single.
func (e *Engine) RetrieveSingle(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	return e.retrieve(ctx, req, store.TagFilter{})
}

// RetrieveMulti implements spec §4.2 retrieve_multi: the KNN query is
// always witness-scoped to the requesting entity, and the access predicate
// is applied as a defence-in-depth post-filter.
func (e *Engine) RetrieveMulti(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	if req.RequestingEntity == "" {
		return nil, engramerr.Invalid("requesting_entity is required for retrieve_multi", "requesting_entity")
	}
	tags := store.TagFilter{RequireWitness: normalize.EntityID(req.RequestingEntity)}
	return e.retrieve(ctx, req, tags)
}

func (e *Engine) retrieve(ctx context.Context, req RetrieveRequest, tags store.TagFilter) (*RetrieveResult, error) {
	start := time.Now()

	query, err := combineResonanceVectors(req.ResonanceVectors)
	if err != nil {
		return nil, err
	}
	if err := validateVector(query, e.Embedder.Dimension(), "resonance_vectors"); err != nil {
		return nil, err
	}

	topK := req.Retrieval.TopK
	switch {
	case topK < 0:
		topK = defaultTopK
	case topK == 0:
		result := &RetrieveResult{
			Memories:        []MemoryHit{},
			SearchTimeMs:    time.Since(start).Milliseconds(),
			QueryVectorDims: len(query),
		}
		if req.RequestingEntity != "" {
			result.EntityVerification = "witnessed_memories_only"
		}
		return result, nil
	}

	if len(req.Filters.MemoryTypes) > 0 {
		tags.MemoryTypes = req.Filters.MemoryTypes
	}
	if len(req.Filters.AgentIDs) > 0 {
		tags.AgentIDs = req.Filters.AgentIDs
	}
	if len(req.Filters.Domains) > 0 {
		tags.Domains = req.Filters.Domains
	}

	var nums store.NumericFilter
	nums.TimestampFrom = req.Filters.TimestampFrom
	nums.TimestampTo = req.Filters.TimestampTo
	if req.Filters.ConfidenceThreshold > 0 {
		threshold := req.Filters.ConfidenceThreshold
		nums.ConfidenceMin = &threshold
	}

	// Diversity re-ranking runs over a pool larger than top_k (spec §4.2.1:
	// "pool size = max(4*top_k, 50)"); the similarity floor is applied by
	// the store itself before that pool is built, so a below-floor result
	// is never a candidate for MMR to resurrect (spec §4.2.1).
	poolSize := topK
	if req.Retrieval.DiversityLambda > 0 {
		poolSize = max(4*topK, 50)
	}

	candidates, err := e.Store.KNN(ctx, query, poolSize, req.Retrieval.SimilarityThreshold, tags, nums)
	if err != nil {
		return nil, err
	}

	var grantedCount, deniedCount int
	var pool []scoredCandidate
	now := time.Now().UTC()

	for _, c := range candidates {
		memory, err := e.Store.Get(ctx, c.MemoryID)
		if err != nil {
			continue
		}

		if req.RequestingEntity != "" {
			if !access.Allow(memory, req.RequestingEntity) {
				deniedCount++
				continue
			}
			grantedCount++
		}

		if !matchesTagInclude(memory.Tags, req.TagsInclude) || matchesTagExclude(memory.Tags, req.TagsExclude) {
			continue
		}
		if !matchesCoParticipants(memory.WitnessedBy, req.EntityFilters.CoParticipants) {
			continue
		}
		if matchesExcludePrivateTo(memory.WitnessedBy, req.RequestingEntity, req.EntityFilters.ExcludePrivateTo) {
			continue
		}

		score := c.Similarity
		if req.Retrieval.BoostRecent > 0 {
			score += req.Retrieval.BoostRecent * RecencyFactor(memory.CreatedAt, now)
		}
		pool = append(pool, scoredCandidate{memory: memory, score: score})
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })

	var ranked []scoredCandidate
	if req.Retrieval.DiversityLambda > 0 {
		ranked = mmrRerank(query, pool, req.Retrieval.DiversityLambda, topK)
	} else {
		orderPool(pool, req.Ordering)
		if len(pool) > topK {
			pool = pool[:topK]
		}
		ranked = pool
	}

	hits := make([]MemoryHit, 0, len(ranked))
	for _, r := range ranked {
		annotations, err := e.Store.ListAnnotations(ctx, r.memory.MemoryID)
		if err != nil {
			annotations = nil
		}
		hits = append(hits, MemoryHit{
			MemoryID:        r.memory.MemoryID,
			SimilarityScore: r.score,
			ContentPreview:  contentPreview(r.memory.Content.Text),
			Metadata:        r.memory.Metadata,
			Tags:            r.memory.Tags,
			MediaCount:      len(r.memory.Content.Media),
			AnnotationCount: len(annotations),
		})
	}

	result := &RetrieveResult{
		Memories:        hits,
		TotalFound:      len(hits),
		SearchTimeMs:    time.Since(start).Milliseconds(),
		QueryVectorDims: len(query),
	}
	if req.RequestingEntity != "" {
		result.AccessGrantedCount = grantedCount
		result.AccessDeniedCount = deniedCount
		result.EntityVerification = "witnessed_memories_only"
	}
	return result, nil
}

// combineResonanceVectors implements spec §4.2.1: weighted mean, then
// renormalise to unit length, before the KNN call.
func combineResonanceVectors(vectors []ResonanceVector) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, engramerr.Invalid("resonance_vectors must be non-empty", "resonance_vectors")
	}
	if len(vectors) == 1 && vectors[0].Weight == 0 {
		return vectors[0].Vector, nil
	}

	dim := len(vectors[0].Vector)
	sum := make([]float64, dim)
	var totalWeight float64
	for _, rv := range vectors {
		if len(rv.Vector) != dim {
			return nil, engramerr.Invalid("all resonance_vectors must share the same dimension", "resonance_vectors")
		}
		weight := rv.Weight
		if weight == 0 {
			weight = 1
		}
		totalWeight += weight
		for i, v := range rv.Vector {
			sum[i] += weight * float64(v)
		}
	}
	if totalWeight == 0 {
		totalWeight = 1
	}

	combined := make([]float32, dim)
	var norm float64
	for i := range sum {
		combined[i] = float32(sum[i] / totalWeight)
		norm += float64(combined[i]) * float64(combined[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return combined, nil
	}
	for i := range combined {
		combined[i] = float32(float64(combined[i]) / norm)
	}
	return combined, nil
}

// scoredCandidate is a retrieval candidate carrying its post-filter score,
// used to build the MMR pool and the final ranked result.
type scoredCandidate struct {
	memory *types.Memory
	score  float64
}

// orderPool sorts pool in place per the requested ordering spec, defaulting
// to similarity desc (spec §4.2: "Rank by the ordering spec, default
// similarity desc"). Unrecognised values fall back to the default rather
// than erroring, since ordering is an optional refinement of an otherwise
// valid request.
func orderPool(pool []scoredCandidate, ordering string) {
	switch ordering {
	case OrderingCreatedAtDesc:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].memory.CreatedAt.After(pool[j].memory.CreatedAt)
		})
	case OrderingCreatedAtAsc:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].memory.CreatedAt.Before(pool[j].memory.CreatedAt)
		})
	case OrderingImportanceDesc:
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].memory.Metadata.Importance > pool[j].memory.Metadata.Importance
		})
	default:
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })
	}
}

// mmrRerank applies Maximal Marginal Relevance over pool (already sorted by
// score descending), picking up to topK items that balance relevance to
// query against redundancy with already-selected items (spec §4.2 "Apply
// diversity ... by Maximal Marginal Relevance"):
//
//	MMR = argmax_{d in pool} [ lambda * score(d) - (1-lambda) * max_{s in selected} sim(d, s) ]
func mmrRerank(query []float32, pool []scoredCandidate, lambda float64, topK int) []scoredCandidate {
	if len(pool) == 0 {
		return nil
	}
	remaining := make([]scoredCandidate, len(pool))
	copy(remaining, pool)

	selected := make([]scoredCandidate, 0, topK)
	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := 0
		bestValue := math.Inf(-1)
		for i, cand := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(cand.memory.Vector, s.memory.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			value := lambda*cand.score - (1-lambda)*redundancy
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matchesTagInclude reports whether tags contains every entry in include
// (AND semantics, spec §4.2: "AND of includes").
func matchesTagInclude(tags, include []string) bool {
	if len(include) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	for _, want := range include {
		if _, ok := set[want]; !ok {
			return false
		}
	}
	return true
}

// matchesTagExclude reports whether tags contains any entry in exclude
// (spec §4.2: "AND-NOT of excludes").
func matchesTagExclude(tags, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	for _, avoid := range exclude {
		if _, ok := set[avoid]; ok {
			return true
		}
	}
	return false
}

// matchesCoParticipants reports whether every requested co-participant is
// present in witnesses (spec §4.2 retrieve_multi entity_filters.co_participants
// "must all be in witnessed_by").
func matchesCoParticipants(witnesses, coParticipants []string) bool {
	if len(coParticipants) == 0 {
		return true
	}
	normWitnesses := normalize.Set(witnesses)
	for _, want := range coParticipants {
		if !normalize.Contains(normWitnesses, want) {
			return false
		}
	}
	return true
}

// matchesExcludePrivateTo reports whether witnesses is exactly
// excludeSet minus requestingEntity, in which case the memory is a private
// consultation between the excluded parties that the requester should not
// see surfaced (spec §4.2 retrieve_multi
// "entity_filters.exclude_private_to ... rejects memories whose
// witnessed_by is exactly that set minus the requester").
func matchesExcludePrivateTo(witnesses []string, requestingEntity string, excludeSet []string) bool {
	if len(excludeSet) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(excludeSet))
	for _, id := range excludeSet {
		norm := normalize.EntityID(id)
		if norm == normalize.EntityID(requestingEntity) {
			continue
		}
		want[norm] = struct{}{}
	}
	if len(want) == 0 {
		return false
	}
	normWitnesses := normalize.Set(witnesses)
	if len(normWitnesses) != len(want) {
		return false
	}
	for _, w := range normWitnesses {
		if _, ok := want[w]; !ok {
			return false
		}
	}
	return true
}

// contentPreview returns the first 200 runes of text (spec §4.2:
// "content_preview (first 200 chars of content.text)").
func contentPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= 200 {
		return text
	}
	return string(runes[:200])
}
