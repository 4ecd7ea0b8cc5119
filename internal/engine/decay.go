package engine

import (
	"math"
	"time"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// recencyHalfLifeHours controls how fast the additive recency boost decays
// (SPEC_FULL §4.2.1: "reusing the teacher's DecayManager exponential shape").
const recencyHalfLifeHours = 168.0

// recencyLambda returns the decay constant derived from recencyHalfLifeHours.
func recencyLambda() float64 {
	return math.Log(2) / recencyHalfLifeHours
}

// RecencyFactor returns exp(-ln(2) * age_hours / half_life), in (0,1], so it
// halves every recencyHalfLifeHours; used by the additive boost_recent
// composition (spec §4.2.1).
func RecencyFactor(createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-recencyLambda() * hours)
}

// ApplyImportanceDecay renormalises m.Metadata.Importance in place per its
// configured retention.decay_function (spec §4.5):
//
//   - none: untouched.
//   - linear: importance -= age_days * linearRate, floored at 0.
//   - logarithmic: importance *= exp(-λ * age_days), the teacher's
//     DecayManager formula reused verbatim for metadata.importance
//     (SPEC_FULL §4.5.1).
//
// It reports whether the value changed.
func ApplyImportanceDecay(m *types.Memory, now time.Time, linearRatePerDay float64) bool {
	ageDays := now.Sub(m.CreatedAt).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}

	before := m.Metadata.Importance
	switch m.Retention.DecayFunction {
	case types.DecayLinear:
		m.Metadata.Importance = math.Max(0, before-ageDays*linearRatePerDay)
	case types.DecayLogarithmic:
		lambda := math.Log(2) / recencyHalfLifeHours * 24 // per-day lambda from the same half-life family
		m.Metadata.Importance = before * math.Exp(-lambda*ageDays)
	case types.DecayNone, "":
		return false
	}
	return math.Abs(m.Metadata.Importance-before) > 1e-9
}
