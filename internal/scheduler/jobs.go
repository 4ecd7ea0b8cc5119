package scheduler

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/normalize"
	"github.com/Foundation42/entrained.ai-engram/internal/store"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// consolidationThreshold is the cosine-similarity floor above which two
// memories with identical witness sets are consolidation candidates (spec
// §4.5).
const consolidationThreshold = 0.95

// CacheInvalidator lets the cleanup jobs, which mutate the store directly
// rather than going through internal/engine.Engine, evict the memories they
// delete/merge/rewrite from Engine's get(memory_id) cache. internal/engine.
// Engine implements this via its InvalidateCache method; inv may be nil, in
// which case the jobs run exactly as before (suitable for tests that don't
// wire an Engine).
type CacheInvalidator interface {
	InvalidateCache(memoryID string)
}

func invalidate(inv CacheInvalidator, memoryID string) {
	if inv != nil {
		inv.InvalidateCache(memoryID)
	}
}

// ExpireDaily implements spec §4.5's daily job: delete any memory whose
// created_at + ttl_seconds has passed.
func ExpireDaily(ctx context.Context, s store.Store, now time.Time, inv CacheInvalidator) (int, error) {
	ids, err := s.AllMemoryIDs(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			continue // already gone; another runner's pass may have raced us
		}
		expiresAt, ok := m.ExpiresAt()
		if !ok {
			continue
		}
		if !expiresAt.Before(now) {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			return deleted, err
		}
		invalidate(inv, id)
		deleted++
	}
	return deleted, nil
}

// ConsolidateWeekly implements spec §4.5's weekly job: merge pairs of
// memories with cosine similarity above consolidationThreshold and
// identical witness sets into one record, concatenating content and taking
// the higher confidence and earlier timestamp.
func ConsolidateWeekly(ctx context.Context, s store.Store, inv CacheInvalidator) (int, error) {
	ids, err := s.AllMemoryIDs(ctx)
	if err != nil {
		return 0, err
	}

	memories := make([]*types.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		memories = append(memories, m)
	}

	// Deterministic order so a re-run after a partial failure merges the
	// same pairs first.
	sort.Slice(memories, func(i, j int) bool { return memories[i].MemoryID < memories[j].MemoryID })

	consumed := make(map[string]bool, len(memories))
	merged := 0
	for i := 0; i < len(memories); i++ {
		a := memories[i]
		if consumed[a.MemoryID] {
			continue
		}
		for j := i + 1; j < len(memories); j++ {
			b := memories[j]
			if consumed[b.MemoryID] {
				continue
			}
			if !sameWitnessSet(a.WitnessedBy, b.WitnessedBy) {
				continue
			}
			if cosineSimilarity(a.Vector, b.Vector) <= consolidationThreshold {
				continue
			}

			mergedMemory := mergeMemories(a, b)
			if err := s.Put(ctx, mergedMemory); err != nil {
				return merged, err
			}
			if err := s.Delete(ctx, a.MemoryID); err != nil {
				return merged, err
			}
			if err := s.Delete(ctx, b.MemoryID); err != nil {
				return merged, err
			}
			invalidate(inv, a.MemoryID)
			invalidate(inv, b.MemoryID)
			invalidate(inv, mergedMemory.MemoryID)
			consumed[a.MemoryID] = true
			consumed[b.MemoryID] = true
			merged++
			break
		}
	}
	return merged, nil
}

// mergeMemories implements spec §4.5's merge rule: concatenated content,
// higher confidence, earlier timestamp. The surviving vector and primary
// witness are taken from whichever memory has the earlier timestamp, since
// the spec is silent on which embedding a merged record should carry.
func mergeMemories(a, b *types.Memory) *types.Memory {
	earlier, later := a, b
	if b.Metadata.Timestamp.Before(a.Metadata.Timestamp) {
		earlier, later = b, a
	}

	content := earlier.Content
	content.Text = earlier.Content.Text + "\n" + later.Content.Text

	metadata := earlier.Metadata
	if later.Metadata.Confidence > metadata.Confidence {
		metadata.Confidence = later.Metadata.Confidence
	}

	merged := &types.Memory{
		MemoryID:      engine.GenerateMemoryID(content.Text, earlier.WitnessedBy[0], earlier.SituationID),
		Content:       content,
		Vector:        earlier.Vector,
		Metadata:      metadata,
		Tags:          mergeTags(earlier.Tags, later.Tags),
		WitnessedBy:   earlier.WitnessedBy,
		SituationID:   earlier.SituationID,
		SituationType: earlier.SituationType,
		PrivacyLevel:  earlier.PrivacyLevel,
		Retention:     earlier.Retention,
		CreatedAt:     earlier.CreatedAt,
	}
	return merged
}

func mergeTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range append(append([]string{}, a...), b...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sameWitnessSet(a, b []string) bool {
	na, nb := normalize.Set(a), normalize.Set(b)
	if len(na) != len(nb) {
		return false
	}
	sort.Strings(na)
	sort.Strings(nb)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DecayMonthly implements spec §4.5's monthly job: renormalise
// metadata.importance via each memory's configured decay function,
// persisting the result via store.Update (SPEC_FULL §4.5.1).
func DecayMonthly(ctx context.Context, s store.Store, linearRatePerDay float64, now time.Time, inv CacheInvalidator) (int, error) {
	ids, err := s.AllMemoryIDs(ctx)
	if err != nil {
		return 0, err
	}

	demoted := 0
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if !engine.ApplyImportanceDecay(m, now, linearRatePerDay) {
			continue
		}
		if err := s.Update(ctx, m); err != nil {
			return demoted, err
		}
		invalidate(inv, id)
		demoted++
	}
	return demoted, nil
}
