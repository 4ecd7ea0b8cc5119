package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

func storeFixture(t *testing.T, e *Engine, fake interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}, text string, witnesses []string, situationType types.SituationType, privacy types.PrivacyLevel) string {
	t.Helper()
	ctx := context.Background()
	vec, err := fake.Embed(ctx, text)
	require.NoError(t, err)

	result, err := e.StoreMulti(ctx, StoreMultiRequest{
		WitnessedBy:   witnesses,
		SituationType: situationType,
		Content:       types.Content{Text: text},
		PrimaryVector: vec,
		PrivacyLevel:  privacy,
		Metadata:      types.Metadata{MemoryType: types.MemoryTypeFact, Confidence: 0.8, Importance: 0.5},
	})
	require.NoError(t, err)
	return result.MemoryID
}

// TestRetrieveMultiScopesToWitness covers spec scenario S1: alice's private
// consultation memory must not surface for bob's retrieve_multi, and must
// surface for alice's.
func TestRetrieveMultiScopesToWitness(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	storeFixture(t, e, fake, "alice discusses a private medical concern", []string{"alice", "dr-claude"}, types.SituationConsultation1to1, types.PrivacyParticipantsOnly)

	vec, err := fake.Embed(ctx, "alice discusses a private medical concern")
	require.NoError(t, err)

	resAlice, err := e.RetrieveMulti(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		RequestingEntity: "alice",
		Retrieval:        RetrievalOptions{TopK: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resAlice.TotalFound)
	assert.Equal(t, "witnessed_memories_only", resAlice.EntityVerification)

	resBob, err := e.RetrieveMulti(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		RequestingEntity: "bob",
		Retrieval:        RetrievalOptions{TopK: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resBob.TotalFound)
}

// TestRetrieveMultiGroupVisibility covers spec scenario S2: a group
// discussion memory witnessed by three entities is retrievable by any of
// them.
func TestRetrieveMultiGroupVisibility(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	storeFixture(t, e, fake, "team standup notes on the release plan", []string{"alice", "bob", "carol"}, types.SituationGroupDiscussion, types.PrivacyGroup)

	vec, err := fake.Embed(ctx, "team standup notes on the release plan")
	require.NoError(t, err)

	for _, entity := range []string{"alice", "bob", "carol"} {
		res, err := e.RetrieveMulti(ctx, RetrieveRequest{
			ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
			RequestingEntity: entity,
			Retrieval:        RetrievalOptions{TopK: 5},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.TotalFound, "entity %s should see the group memory", entity)
	}
}

func TestRetrieveSingleAppliesSimilarityThreshold(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	storeFixture(t, e, fake, "completely unrelated topic about gardening", []string{"alice"}, types.SituationConversation, types.PrivacyParticipantsOnly)

	vec, err := fake.Embed(ctx, "a totally different query about astrophysics")
	require.NoError(t, err)

	res, err := e.RetrieveSingle(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		Retrieval:        RetrievalOptions{TopK: 5, SimilarityThreshold: 0.999},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalFound)
}

// TestRetrieveSingleExplicitTopKZeroReturnsEmpty covers spec §4.2: an
// explicit top_k: 0 must return an empty result, distinct from top_k being
// omitted (which falls back to defaultTopK).
func TestRetrieveSingleExplicitTopKZeroReturnsEmpty(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	storeFixture(t, e, fake, "a memory that would otherwise match", []string{"alice"}, types.SituationConversation, types.PrivacyParticipantsOnly)

	vec, err := fake.Embed(ctx, "a memory that would otherwise match")
	require.NoError(t, err)

	res, err := e.RetrieveSingle(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		Retrieval:        RetrievalOptions{TopK: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalFound)
	assert.Empty(t, res.Memories)
}

// TestRetrieveSingleOmittedTopKUsesDefault covers the other half of the same
// distinction: TopKOmitted (what wire layers translate a missing top_k
// into) still returns defaultTopK results, not zero.
func TestRetrieveSingleOmittedTopKUsesDefault(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	storeFixture(t, e, fake, "a memory retrievable under the default top_k", []string{"alice"}, types.SituationConversation, types.PrivacyParticipantsOnly)

	vec, err := fake.Embed(ctx, "a memory retrievable under the default top_k")
	require.NoError(t, err)

	res, err := e.RetrieveSingle(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		Retrieval:        RetrievalOptions{TopK: TopKOmitted},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalFound)
}

// TestRetrieveSingleOrderingCreatedAtAsc covers spec §4.2's ordering field:
// a non-default ordering must actually change result order, not just be
// silently accepted and ignored.
func TestRetrieveSingleOrderingCreatedAtAsc(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	older := storeFixture(t, e, fake, "shared topic first memory", []string{"alice"}, types.SituationConversation, types.PrivacyParticipantsOnly)
	newer := storeFixture(t, e, fake, "shared topic second memory", []string{"alice"}, types.SituationConversation, types.PrivacyParticipantsOnly)

	vec, err := fake.Embed(ctx, "shared topic")
	require.NoError(t, err)

	res, err := e.RetrieveSingle(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		Retrieval:        RetrievalOptions{TopK: 5},
		Ordering:         OrderingCreatedAtAsc,
	})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.Equal(t, older, res.Memories[0].MemoryID)
	assert.Equal(t, newer, res.Memories[1].MemoryID)
}

func TestRetrieveSingleContentPreviewTruncatesAt200Runes(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	longText := ""
	for i := 0; i < 50; i++ {
		longText += "0123456789"
	}
	vec, err := fake.Embed(ctx, longText)
	require.NoError(t, err)
	_, err = e.StoreSingle(ctx, StoreSingleRequest{
		Content:       types.Content{Text: longText},
		PrimaryVector: vec,
		Metadata:      types.Metadata{AgentID: "alice", MemoryType: types.MemoryTypeFact},
	})
	require.NoError(t, err)

	res, err := e.RetrieveSingle(ctx, RetrieveRequest{
		ResonanceVectors: []ResonanceVector{{Vector: vec, Weight: 1}},
		Retrieval:        RetrievalOptions{TopK: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	assert.Len(t, res.Memories[0].ContentPreview, 200)
}

func TestCombineResonanceVectorsWeightedMeanUnitNorm(t *testing.T) {
	combined, err := combineResonanceVectors([]ResonanceVector{
		{Vector: []float32{1, 0}, Weight: 1},
		{Vector: []float32{0, 1}, Weight: 1},
	})
	require.NoError(t, err)
	var norm float64
	for _, v := range combined {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestMMRRerankPrefersDiverseCandidatesOverDuplicates(t *testing.T) {
	query := []float32{1, 0, 0, 0}
	near := &types.Memory{MemoryID: "a", Vector: []float32{1, 0, 0, 0}}
	dup := &types.Memory{MemoryID: "b", Vector: []float32{1, 0, 0, 0}}
	diverse := &types.Memory{MemoryID: "c", Vector: []float32{0, 1, 0, 0}}

	pool := []scoredCandidate{
		{memory: near, score: 1.0},
		{memory: dup, score: 0.99},
		{memory: diverse, score: 0.9},
	}

	ranked := mmrRerank(query, pool, 0.5, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].memory.MemoryID)
	assert.Equal(t, "c", ranked[1].memory.MemoryID, "MMR should prefer the diverse candidate over the near-duplicate")
}
