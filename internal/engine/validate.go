package engine

import (
	"math"
	"strings"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// validateVector checks spec §3.2 invariant 3: |vector| = dimension and
// every component finite.
func validateVector(vector []float32, dimension int, field string) error {
	if len(vector) != dimension {
		return engramerr.Invalid("vector dimension mismatch", field)
	}
	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return engramerr.Invalid("vector contains non-finite component", field)
		}
	}
	return nil
}

// validateTimestamp checks spec §3.2 invariant 9: UTC with trailing Z. Go's
// time.Time carries no literal suffix, so this operates on the raw string
// the request arrived with, before it is parsed into a time.Time.
func validateTimestamp(raw, field string) error {
	if raw == "" {
		return nil
	}
	if !strings.HasSuffix(raw, "Z") {
		return engramerr.Invalid("timestamp must be UTC with trailing Z", field)
	}
	return nil
}

// validateWitnesses checks spec §3.2 invariant 2 (non-empty) together with
// the normalised-set-semantics requirement (spec §9): duplicates after
// normalisation are tolerated and deduplicated by the caller via
// normalize.Set, not rejected here.
func validateWitnesses(witnesses []string, field string) error {
	if len(witnesses) == 0 {
		return engramerr.Invalid("witnessed_by must be non-empty", field)
	}
	for _, w := range witnesses {
		if strings.TrimSpace(w) == "" {
			return engramerr.Invalid("witnessed_by entries must be non-empty strings", field)
		}
	}
	return nil
}

// validateCausality checks spec §3.2 invariant 4: parent_memories and
// influence_strength are parallel arrays of equal length.
func validateCausality(c types.Causality) error {
	if len(c.ParentMemories) != len(c.InfluenceStrength) {
		return engramerr.Invalid("causality.parent_memories and causality.influence_strength must have equal length", "causality")
	}
	return nil
}

// validateContentText checks that content.text is present; memories are
// never purely structural (spec §4.2 store_single validation).
func validateContentText(text, field string) error {
	if strings.TrimSpace(text) == "" {
		return engramerr.Invalid("content.text must be non-empty", field)
	}
	return nil
}

// validateMemoryType checks memoryType against the closed vocabulary (spec
// §6.3), when non-empty — callers may defer the default to the engine.
func validateMemoryType(memoryType types.MemoryType, field string) error {
	if memoryType == "" {
		return nil
	}
	if !types.IsValidMemoryType(memoryType) {
		return engramerr.Invalid("unrecognised memory_type", field)
	}
	return nil
}

// validatePrivacyLevel checks level against the closed vocabulary (spec
// §6.3), when non-empty.
func validatePrivacyLevel(level types.PrivacyLevel, field string) error {
	if level == "" {
		return nil
	}
	if !types.IsValidPrivacyLevel(level) {
		return engramerr.Invalid("unrecognised privacy_level", field)
	}
	return nil
}
