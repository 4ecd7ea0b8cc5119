package embedder

import (
	"context"
	"hash/fnv"
	"math"
)

// Fake is a deterministic embedding client for tests and offline development
// (spec §9, "tests wire them to deterministic fakes"). The same text always
// produces the same unit-norm vector, and similar-looking text does not
// reliably cluster — it is a stand-in for wiring, not a semantic model.
type Fake struct {
	dimension int
	model     string
}

// NewFake constructs a Fake embedder producing vectors of dimension dim.
func NewFake(dim int) *Fake {
	if dim <= 0 {
		dim = 768
	}
	return &Fake{dimension: dim, model: "fake-embedder-v1"}
}

// Embed implements Client. It hashes text into a seeded sequence, expands it
// to a vector of the configured dimension and L2-normalises it.
func (f *Fake) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, f.dimension)
	state := seed
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state>>40)%10000) / 10000.0
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

// GetModel implements Client.
func (f *Fake) GetModel() string { return f.model }

// Dimension implements Client.
func (f *Fake) Dimension() int { return f.dimension }

var _ Client = (*Fake)(nil)
