package types

import "time"

// Memory is the single primary entity of the system: free-form content plus
// a dense embedding, a witness set controlling who may retrieve it, and the
// situation/causality bookkeeping that groups related memories together.
//
// Single-agent memories are not a separate model: they are memories with
// |WitnessedBy| == 1 and SituationType == SituationLegacySingleAgent (spec §9,
// "two storage systems... were an evolutionary artefact").
type Memory struct {
	// MemoryID is opaque, unique, stable, and assigned on creation.
	// Format: mem-<12-hex>.
	MemoryID string `json:"memory_id"`

	Content Content `json:"content"`

	// Vector is the primary embedding; its length must equal the
	// deployment's configured dimension D.
	Vector []float32 `json:"vector"`

	Metadata Metadata `json:"metadata"`

	// Tags is a flat list of filterable strings, distinct from
	// Metadata.TopicTags (which is specifically topical).
	Tags []string `json:"tags,omitempty"`

	// WitnessedBy is the non-empty set of entity IDs permitted to retrieve
	// this memory. Stored and compared in normalised form; original
	// strings are preserved here for display (spec §9, "preserving the
	// original strings for display").
	WitnessedBy []string `json:"witnessed_by"`

	SituationID   string        `json:"situation_id"`
	SituationType SituationType `json:"situation_type"`
	PrivacyLevel  PrivacyLevel  `json:"privacy_level"`

	Causality Causality `json:"causality,omitempty"`
	Retention Retention `json:"retention,omitempty"`

	// CreatedAt is engine-assigned, never client-supplied.
	CreatedAt time.Time `json:"created_at"`

	// AccessCount and LastAccessedAt are updated on every successful
	// retrieval; they are not part of the client-provided record and are
	// excluded from the round-trip equality check in spec §8.2.
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Content holds the textual body of a memory plus optional structured
// extras (media references, per-speaker utterances, a short summary).
type Content struct {
	Text     string            `json:"text"`
	Media    []MediaRef        `json:"media,omitempty"`
	Speakers map[string]string `json:"speakers,omitempty"`
	Summary  string            `json:"summary,omitempty"`
}

// MediaRef is a single ordered media reference attached to Content.
type MediaRef struct {
	Type         MediaType `json:"type"`
	URL          string    `json:"url"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	MimeType     string    `json:"mime_type,omitempty"`
	Authors      []string  `json:"authors,omitempty"`
	Abstract     string    `json:"abstract,omitempty"`
	PreviewText  string    `json:"preview_text,omitempty"`
}

// Metadata carries the structured, filterable facts about a memory that are
// not part of its free-form content.
type Metadata struct {
	// Timestamp is RFC-3339 UTC with a trailing "Z" (spec §3.2 invariant 9).
	Timestamp time.Time `json:"timestamp"`

	MemoryType MemoryType `json:"memory_type"`

	// AgentID is set for single-agent memories; optional for multi-entity
	// memories where WitnessedBy already carries the participant set.
	AgentID string `json:"agent_id,omitempty"`

	Domain                    string   `json:"domain,omitempty"`
	Confidence                float64  `json:"confidence"`
	Importance                float64  `json:"importance"`
	TopicTags                 []string `json:"topic_tags,omitempty"`
	InteractionQuality        float64  `json:"interaction_quality,omitempty"`
	SituationDurationMinutes  float64  `json:"situation_duration_minutes,omitempty"`
}

// Causality records the memories that causally contributed to this one.
// ParentMemories and InfluenceStrength are parallel arrays of equal length
// (spec §3.2 invariant 4). Parents may later be deleted; see spec §9 —
// incoming pointers are weak references, never cascaded.
type Causality struct {
	ParentMemories    []string  `json:"parent_memories,omitempty"`
	InfluenceStrength []float64 `json:"influence_strength,omitempty"`
	SynthesisType     string    `json:"synthesis_type,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
}

// Retention controls expiry and importance decay for a memory.
type Retention struct {
	// TTLSeconds is optional; zero/negative means "no expiry".
	TTLSeconds   int64         `json:"ttl_seconds,omitempty"`
	DecayFunction DecayFunction `json:"decay_function,omitempty"`
}

// IsSingleAgent reports whether m is a legacy single-agent memory, i.e. one
// created via store_single rather than store_multi.
func (m *Memory) IsSingleAgent() bool {
	return m.SituationType == SituationLegacySingleAgent && len(m.WitnessedBy) == 1
}

// ExpiresAt returns the instant at which m becomes eligible for daily
// cleanup, and false if it has no TTL configured.
func (m *Memory) ExpiresAt() (time.Time, bool) {
	if m.Retention.TTLSeconds <= 0 {
		return time.Time{}, false
	}
	return m.CreatedAt.Add(time.Duration(m.Retention.TTLSeconds) * time.Second), true
}
