// Package access implements the C4 access predicate: the single function
// that decides whether a requesting entity may see a given memory (spec
// §4.4). There is no administrative override — a caller needing to inspect
// memories out of band must enumerate store keys directly, never through
// this predicate.
package access

import (
	"github.com/Foundation42/entrained.ai-engram/internal/normalize"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// Allow reports whether requestingEntity may see memory, per spec §4.4:
//
//	allow(memory, requestingEntity) =
//	    requestingEntity ∈ normalise(memory.witnessed_by) ∨ memory.privacy_level = "public"
func Allow(memory *types.Memory, requestingEntity string) bool {
	if memory.PrivacyLevel == types.PrivacyPublic {
		return true
	}
	if requestingEntity == "" {
		return false
	}
	// memory.WitnessedBy preserves original entity strings for display
	// (spec §9); normalise both sides before comparing so "human-alice-123"
	// and "humanalice123" are recognised as the same witness.
	return normalize.Contains(normalize.Set(memory.WitnessedBy), requestingEntity)
}
