package curation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/curator"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/store/redisrecord"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

func setupPipeline(t *testing.T) *Pipeline {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	s, err := redisrecord.New(context.Background(), redisrecord.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fake := embedder.NewFake(16)
	eng := engine.New(s, fake)
	return New(curator.NewFake(), curator.NewTemplate(""), eng, fake)
}

// TestCurateAdmitsFactsAndRejectsEphemeralAsides covers spec scenario S3:
// a weather aside is dropped by the admission rule while the accompanying
// fact is stored.
func TestCurateAdmitsFactsAndRejectsEphemeralAsides(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, err := p.Curate(ctx, Request{
		UserInput:     "My name is Liversedge. It's raining right now though.",
		AgentResponse: "Good to know, Liversedge.",
		WitnessedBy:   []string{"liversedge", "assistant"},
		SituationType: types.SituationConversation,
	})
	require.NoError(t, err)
	require.Len(t, result.Decisions, 2)

	var admitted, rejected int
	for _, d := range result.Decisions {
		if d.Admitted {
			admitted++
		} else {
			rejected++
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rejected)
	assert.Len(t, result.StoredMemoryIDs, 1)
}

func TestCurateAnalyzeOnlySkipsStorage(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, err := p.Curate(ctx, Request{
		UserInput:     "I prefer dark roast coffee over light roast.",
		AgentResponse: "Noted.",
		WitnessedBy:   []string{"alice", "assistant"},
		SituationType: types.SituationConversation,
		AnalyzeOnly:   true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.StoredMemoryIDs)
	for _, d := range result.Decisions {
		assert.Empty(t, d.MemoryID)
	}
}

func TestCurateForceStorageStoresExactlyOneMemory(t *testing.T) {
	p := setupPipeline(t)
	ctx := context.Background()

	result, err := p.Curate(ctx, Request{
		UserInput:     "This is ephemeral small talk.",
		AgentResponse: "Sure thing.",
		WitnessedBy:   []string{"alice", "assistant"},
		SituationType: types.SituationConversation,
		ForceStorage:  true,
	})
	require.NoError(t, err)
	require.Len(t, result.Decisions, 1)
	assert.True(t, result.Decisions[0].Admitted)
	require.Len(t, result.StoredMemoryIDs, 1)
}

func TestDecideRejectsLowConfidence(t *testing.T) {
	decision := decide(types.Observation{
		Content:           "maybe true",
		ConfidenceScore:   0.1,
		EphemeralityScore: 0.1,
		ContextualValue:   0.9,
	})
	assert.False(t, decision.Admitted)
	assert.Contains(t, decision.RejectionReason, "confidence_score")
}

func TestDecideMapsRetentionPolicy(t *testing.T) {
	decision := decide(types.Observation{
		Content:           "a durable fact",
		ConfidenceScore:   0.9,
		EphemeralityScore: 0.1,
		ContextualValue:   0.9,
		StorageType:       types.StorageFacts,
	})
	require.True(t, decision.Admitted)
	assert.Equal(t, types.RetentionPermanent, decision.RetentionPolicy)
	assert.Zero(t, decision.TTLSeconds)
}
