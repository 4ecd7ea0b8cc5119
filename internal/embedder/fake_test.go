package embedder_test

import (
	"context"
	"math"
	"testing"

	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeEmbedIsDeterministic(t *testing.T) {
	f := embedder.NewFake(128)
	a, err := f.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFakeEmbedDiffersByText(t *testing.T) {
	f := embedder.NewFake(128)
	a, err := f.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), "beta")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFakeEmbedHasConfiguredDimension(t *testing.T) {
	f := embedder.NewFake(256)
	vec, err := f.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, vec, 256)
	assert.Equal(t, 256, f.Dimension())
}

func TestFakeEmbedIsUnitNorm(t *testing.T) {
	f := embedder.NewFake(64)
	vec, err := f.Embed(context.Background(), "normalised")
	require.NoError(t, err)

	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
}
