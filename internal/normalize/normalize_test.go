package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityIDStripsHyphens(t *testing.T) {
	assert.Equal(t, "humanalice123", EntityID("human-alice-123"))
	assert.Equal(t, "humanalice123", EntityID("humanalice123"))
}

func TestEntityIDIdempotent(t *testing.T) {
	for _, id := range []string{"human-alice-123", "bob", "--edge--case--"} {
		once := EntityID(id)
		twice := EntityID(once)
		assert.Equal(t, once, twice, "normalisation must be idempotent for %q", id)
	}
}

func TestSetDeduplicatesByNormalisedForm(t *testing.T) {
	got := Set([]string{"human-alice-123", "humanalice123", "bob"})
	assert.Equal(t, []string{"humanalice123", "bob"}, got)
}

func TestContains(t *testing.T) {
	normalised := Set([]string{"human-alice-123", "bob"})
	assert.True(t, Contains(normalised, "humanalice123"))
	assert.True(t, Contains(normalised, "human-alice-123"))
	assert.False(t, Contains(normalised, "dave"))
}
