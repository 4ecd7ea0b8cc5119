// Package embedder provides the C1 collaborator: turning memory content into
// a D-dimensional vector (spec §4.1). Implementations are swappable via
// New so the engine never depends on a concrete provider.
package embedder

import "context"

// Client is the embedding collaborator contract (mirrors the teacher's
// EmbeddingGenerator interface, narrowed to what the engine needs).
type Client interface {
	// Embed returns a vector of the deployment-wide dimension for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// GetModel returns the model identifier in use, for logging/metadata.
	GetModel() string

	// Dimension returns the vector length this client produces.
	Dimension() int
}
