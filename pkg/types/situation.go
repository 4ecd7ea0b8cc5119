package types

import "time"

// SituationStatus tracks the lifecycle of a Situation.
type SituationStatus string

// Situation status constants.
const (
	SituationStatusActive   SituationStatus = "active"
	SituationStatusArchived SituationStatus = "archived"
	SituationStatusPrivate  SituationStatus = "private"
)

// Situation is a derived entity: a named grouping of memories that share
// participants and context. It is created implicitly on the first memory
// carrying a given SituationID and garbage-collected when its last memory
// is deleted (spec §3.3).
type Situation struct {
	SituationID   string          `json:"situation_id"`
	SituationType SituationType   `json:"situation_type"`

	// Participants is the union of WitnessedBy over every memory added to
	// the situation; deleting a memory does not remove its witnesses.
	Participants []string `json:"participants"`
	MemoryIDs    []string `json:"memory_ids"`

	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
	Status       SituationStatus `json:"status"`
}
