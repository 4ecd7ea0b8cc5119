package types

// Observation is a transient candidate memory emitted by the curator (C2)
// for a single conversation turn. It is stored only if it survives the
// admission rule in the curation pipeline (spec §4.3); rejected observations
// are still reported back to the caller so curation decisions are
// explainable.
type Observation struct {
	MemoryType        MemoryType  `json:"memory_type"`
	Content           string      `json:"content"`
	ConfidenceScore   float64     `json:"confidence_score"`
	EphemeralityScore float64     `json:"ephemerality_score"`
	ContextualValue   float64     `json:"contextual_value"`
	PrivacyLevel      PrivacyLevel `json:"privacy_level"`
	Rationale         string      `json:"rationale,omitempty"`

	// StorageType classifies the observation for retention-policy mapping
	// (spec §4.3 step 3). It is distinct from MemoryType: MemoryType
	// describes what the memory *is*, StorageType how long it should live.
	StorageType StorageType `json:"storage_type,omitempty"`

	// RequiresReview is set on the single observation synthesised by the
	// curator-failure degrade path (spec §7, "curator failures fall back to
	// admitting the turn as a single context memory ... requires_review =
	// true"); it flags the memory for a human to double-check since the
	// curator itself could not be consulted.
	RequiresReview bool `json:"requires_review,omitempty"`
}

// CurationReport is the curator's full reply for one conversation turn
// (spec §4.3 step 1).
type CurationReport struct {
	Observations     []Observation `json:"observations"`
	ShouldStore      bool          `json:"should_store"`
	OverallReasoning string        `json:"overall_reasoning,omitempty"`
}

// ObservationDecision records what happened to one observation after the
// admission rule ran, whether admitted or rejected, so curated/analyze and
// curated/store can explain their behaviour (spec §4.3 step 5).
type ObservationDecision struct {
	Observation     Observation `json:"observation"`
	Admitted        bool        `json:"admitted"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	RetentionPolicy RetentionPolicy `json:"retention_policy,omitempty"`
	TTLSeconds      int64       `json:"ttl_seconds,omitempty"`

	// MemoryID is set only when Admitted and the observation was actually
	// stored (curated/store, not curated/analyze).
	MemoryID string `json:"memory_id,omitempty"`
}
