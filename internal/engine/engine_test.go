package engine

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/internal/store/redisrecord"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

const testDim = 16

func setupEngine(t *testing.T) (*Engine, *embedder.Fake) {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	s, err := redisrecord.New(context.Background(), redisrecord.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fake := embedder.NewFake(testDim)
	return New(s, fake), fake
}

func TestStoreSingleAssignsWitnessFromAgentID(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()

	vec, err := fake.Embed(ctx, "alice likes tea")
	require.NoError(t, err)

	result, err := e.StoreSingle(ctx, StoreSingleRequest{
		Content:       types.Content{Text: "alice likes tea"},
		PrimaryVector: vec,
		Metadata: types.Metadata{
			AgentID:    "alice",
			MemoryType: types.MemoryTypePreference,
			Confidence: 0.9,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "stored", result.Status)
	assert.NotEmpty(t, result.MemoryID)

	stored, err := e.Get(ctx, result.MemoryID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, stored.WitnessedBy)
	assert.Equal(t, types.SituationLegacySingleAgent, stored.SituationType)
}

func TestStoreSingleRejectsWrongVectorDimension(t *testing.T) {
	e, _ := setupEngine(t)
	_, err := e.StoreSingle(context.Background(), StoreSingleRequest{
		Content:       types.Content{Text: "short vector"},
		PrimaryVector: []float32{1, 2, 3},
		Metadata:      types.Metadata{AgentID: "bob"},
	})
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindInvalidRequest))
}

func TestStoreSingleRejectsMissingAgentID(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "x")
	_, err := e.StoreSingle(ctx, StoreSingleRequest{
		Content:       types.Content{Text: "no agent"},
		PrimaryVector: vec,
	})
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindInvalidRequest))
}

func TestStoreMultiDeduplicatesWitnessesAfterNormalisation(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "consult")

	result, err := e.StoreMulti(ctx, StoreMultiRequest{
		WitnessedBy:   []string{"human-alice-123", "humanalice123", "agent-claude"},
		SituationType: types.SituationConsultation1to1,
		Content:       types.Content{Text: "consult"},
		PrimaryVector: vec,
	})
	require.NoError(t, err)

	stored, err := e.Get(ctx, result.MemoryID, "human-alice-123")
	require.NoError(t, err)
	assert.Len(t, stored.WitnessedBy, 2)
}

func TestGetDeniesNonWitnessAsNotFound(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "private consult")

	result, err := e.StoreMulti(ctx, StoreMultiRequest{
		WitnessedBy:   []string{"alice", "claude"},
		SituationType: types.SituationConsultation1to1,
		Content:       types.Content{Text: "private consult"},
		PrimaryVector: vec,
		PrivacyLevel:  types.PrivacyParticipantsOnly,
	})
	require.NoError(t, err)

	_, err = e.Get(ctx, result.MemoryID, "mallory")
	require.Error(t, err)
	assert.True(t, engramerr.Is(err, engramerr.KindNotFound))
}

func TestPublicMemoryVisibleToAnyRequester(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "public announcement")

	result, err := e.StoreMulti(ctx, StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: types.SituationPublicPresentation,
		Content:       types.Content{Text: "public announcement"},
		PrimaryVector: vec,
		PrivacyLevel:  types.PrivacyPublic,
	})
	require.NoError(t, err)

	got, err := e.Get(ctx, result.MemoryID, "anyone")
	require.NoError(t, err)
	assert.Equal(t, "public announcement", got.Content.Text)
}

func TestGetCachesAcrossRepeatedCalls(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "cached lookup")

	result, err := e.StoreSingle(ctx, StoreSingleRequest{
		Content:       types.Content{Text: "cached lookup"},
		PrimaryVector: vec,
		Metadata:      types.Metadata{AgentID: "alice"},
	})
	require.NoError(t, err)

	first, err := e.Get(ctx, result.MemoryID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.AccessCount)

	second, err := e.Get(ctx, result.MemoryID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, second.AccessCount)
}

func TestInvalidateCacheForcesNextGetToHitStore(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "about to be deleted")

	result, err := e.StoreSingle(ctx, StoreSingleRequest{
		Content:       types.Content{Text: "about to be deleted"},
		PrimaryVector: vec,
		Metadata:      types.Metadata{AgentID: "alice"},
	})
	require.NoError(t, err)

	_, err = e.Get(ctx, result.MemoryID, "alice")
	require.NoError(t, err)

	require.NoError(t, e.Store.Delete(ctx, result.MemoryID))
	e.InvalidateCache(result.MemoryID)

	_, err = e.Get(ctx, result.MemoryID, "alice")
	assert.Error(t, err)
}

func TestAnnotateRequiresWitness(t *testing.T) {
	e, fake := setupEngine(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "notes")

	result, err := e.StoreMulti(ctx, StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: types.SituationConversation,
		Content:       types.Content{Text: "notes"},
		PrimaryVector: vec,
	})
	require.NoError(t, err)

	err = e.Annotate(ctx, result.MemoryID, "mallory", types.Annotation{Content: "intrusion"})
	assert.True(t, engramerr.Is(err, engramerr.KindNotFound))

	err = e.Annotate(ctx, result.MemoryID, "alice", types.Annotation{
		AnnotatorID: "alice",
		Timestamp:   time.Now().UTC(),
		Content:     "follow-up",
	})
	require.NoError(t, err)
}
