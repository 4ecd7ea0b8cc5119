// Package curator provides the C2 collaborator: the AI-assisted observer
// that decomposes a conversation turn into scored observations for the
// curation pipeline (spec §4.3). Implementations are swappable via New.
package curator

import "context"

// Client is the curation collaborator contract (mirrors the teacher's
// TextGenerator interface, since curation is a single-turn completion).
type Client interface {
	// Complete sends prompt and returns the raw completion text, expected
	// to contain a CurationReport JSON document (spec §4.3 step 1).
	Complete(ctx context.Context, prompt string) (string, error)

	// GetModel returns the model identifier in use, for logging/metadata.
	GetModel() string
}
