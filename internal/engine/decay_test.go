package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

func TestApplyImportanceDecayNoneLeavesUntouched(t *testing.T) {
	m := &types.Memory{
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour).UTC(),
		Metadata:  types.Metadata{Importance: 0.8},
		Retention: types.Retention{DecayFunction: types.DecayNone},
	}
	changed := ApplyImportanceDecay(m, time.Now().UTC(), 0.01)
	assert.False(t, changed)
	assert.Equal(t, 0.8, m.Metadata.Importance)
}

func TestApplyImportanceDecayLinearFloorsAtZero(t *testing.T) {
	m := &types.Memory{
		CreatedAt: time.Now().Add(-1000 * 24 * time.Hour).UTC(),
		Metadata:  types.Metadata{Importance: 0.5},
		Retention: types.Retention{DecayFunction: types.DecayLinear},
	}
	changed := ApplyImportanceDecay(m, time.Now().UTC(), 0.01)
	assert.True(t, changed)
	assert.Equal(t, 0.0, m.Metadata.Importance)
}

func TestApplyImportanceDecayLogarithmicShrinksTowardZero(t *testing.T) {
	m := &types.Memory{
		CreatedAt: time.Now().Add(-365 * 24 * time.Hour).UTC(),
		Metadata:  types.Metadata{Importance: 1.0},
		Retention: types.Retention{DecayFunction: types.DecayLogarithmic},
	}
	now := time.Now().UTC()
	changed := ApplyImportanceDecay(m, now, 0.01)
	assert.True(t, changed)
	assert.Less(t, m.Metadata.Importance, 1.0)
	assert.Greater(t, m.Metadata.Importance, 0.0)
}

func TestRecencyFactorDecaysWithAge(t *testing.T) {
	now := time.Now().UTC()
	fresh := RecencyFactor(now, now)
	weekOld := RecencyFactor(now.Add(-168*time.Hour), now)
	assert.InDelta(t, 1.0, fresh, 1e-9)
	assert.InDelta(t, 0.5, weekOld, 1e-6)
	assert.Greater(t, fresh, weekOld)
}
