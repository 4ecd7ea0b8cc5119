// Package types defines the core data structures for the Engram memory system:
// memory records, annotations, situations, and the curation observations that
// precede storage, together with the controlled vocabularies that validate them.
package types

// MemoryType classifies the purpose/nature of a memory.
type MemoryType string

// Memory type constants (closed vocabulary, spec §6.3).
const (
	MemoryTypeFact               MemoryType = "fact"
	MemoryTypePreference         MemoryType = "preference"
	MemoryTypeEvent              MemoryType = "event"
	MemoryTypeSolution           MemoryType = "solution"
	MemoryTypeInsight            MemoryType = "insight"
	MemoryTypeDecision           MemoryType = "decision"
	MemoryTypePattern            MemoryType = "pattern"
	MemoryTypeConversation       MemoryType = "conversation"
	MemoryTypeLegacySingleAgent  MemoryType = "legacy_single_agent"
)

// ValidMemoryTypes lists every memory type accepted by validation.
var ValidMemoryTypes = []MemoryType{
	MemoryTypeFact,
	MemoryTypePreference,
	MemoryTypeEvent,
	MemoryTypeSolution,
	MemoryTypeInsight,
	MemoryTypeDecision,
	MemoryTypePattern,
	MemoryTypeConversation,
	MemoryTypeLegacySingleAgent,
}

// IsValidMemoryType reports whether memoryType is a recognised memory type.
func IsValidMemoryType(memoryType MemoryType) bool {
	for _, valid := range ValidMemoryTypes {
		if valid == memoryType {
			return true
		}
	}
	return false
}

// SituationType classifies the social context a memory was formed in.
type SituationType string

// Situation type constants (spec §6.3). The vocabulary is open for extension —
// unrecognised values are tag-matched as literal strings rather than rejected.
const (
	SituationConversation      SituationType = "conversation"
	SituationConsultation1to1  SituationType = "consultation_1to1"
	SituationGroupDiscussion   SituationType = "group_discussion"
	SituationPublicPresentation SituationType = "public_presentation"
	SituationLegacySingleAgent SituationType = "legacy_single_agent"
	SituationTest              SituationType = "test"
)

// PrivacyLevel controls who, beyond the witness set, may see a memory.
type PrivacyLevel string

// Privacy level constants (spec §6.3).
const (
	PrivacyPersonal         PrivacyLevel = "personal"
	PrivacyParticipantsOnly PrivacyLevel = "participants_only"
	PrivacyGroup            PrivacyLevel = "group"
	PrivacyPublic           PrivacyLevel = "public"
)

// ValidPrivacyLevels lists every accepted privacy level.
var ValidPrivacyLevels = []PrivacyLevel{
	PrivacyPersonal,
	PrivacyParticipantsOnly,
	PrivacyGroup,
	PrivacyPublic,
}

// IsValidPrivacyLevel reports whether level is one of the closed set.
func IsValidPrivacyLevel(level PrivacyLevel) bool {
	for _, valid := range ValidPrivacyLevels {
		if valid == level {
			return true
		}
	}
	return false
}

// StorageType is the curator's vocabulary for classifying an observation
// before it is mapped to a RetentionPolicy (spec §6.3, §4.3 step 3).
type StorageType string

// Storage type constants.
const (
	StorageFacts         StorageType = "facts"
	StoragePreferences   StorageType = "preferences"
	StorageContext       StorageType = "context"
	StorageTemporary     StorageType = "temporary"
	StorageSkills        StorageType = "skills"
	StorageRelationships StorageType = "relationships"
)

// RetentionPolicy determines how long a memory is kept before the cleanup
// scheduler's daily job deletes it.
type RetentionPolicy string

// Retention policy constants (spec §6.3).
const (
	RetentionPermanent   RetentionPolicy = "permanent"
	RetentionLongTerm    RetentionPolicy = "long_term"
	RetentionMediumTerm  RetentionPolicy = "medium_term"
	RetentionShortTerm   RetentionPolicy = "short_term"
	RetentionSessionOnly RetentionPolicy = "session_only"
)

// DecayFunction names the function applied to metadata.importance by the
// monthly cleanup job (spec §4.5).
type DecayFunction string

// Decay function constants.
const (
	DecayNone        DecayFunction = "none"
	DecayLinear      DecayFunction = "linear"
	DecayLogarithmic DecayFunction = "logarithmic"
)

// retentionPolicyTable maps a curator StorageType to its default
// RetentionPolicy (spec §4.3 step 3).
var retentionPolicyTable = map[StorageType]RetentionPolicy{
	StorageFacts:         RetentionPermanent,
	StoragePreferences:   RetentionLongTerm,
	StorageSkills:        RetentionLongTerm,
	StorageRelationships: RetentionLongTerm,
	StorageContext:       RetentionMediumTerm,
	StorageTemporary:     RetentionShortTerm,
}

// RetentionPolicyFor returns the default retention policy for a curator
// storage type, and whether that type is recognised.
func RetentionPolicyFor(st StorageType) (RetentionPolicy, bool) {
	policy, ok := retentionPolicyTable[st]
	return policy, ok
}

// retentionTTLTable maps a RetentionPolicy to its default ttl_seconds
// (spec §4.3 step 3: short=7d, medium=30d, long=365d, session=4h).
var retentionTTLTable = map[RetentionPolicy]int64{
	RetentionShortTerm:   7 * 24 * 3600,
	RetentionMediumTerm:  30 * 24 * 3600,
	RetentionLongTerm:    365 * 24 * 3600,
	RetentionSessionOnly: 4 * 3600,
	// RetentionPermanent has no TTL (ttl_seconds unset).
}

// DefaultTTLSeconds returns the default ttl_seconds for policy, and false if
// the policy (e.g. permanent) carries no expiry.
func DefaultTTLSeconds(policy RetentionPolicy) (int64, bool) {
	ttl, ok := retentionTTLTable[policy]
	return ttl, ok
}

// MediaType classifies a media reference attached to a memory's content.
type MediaType string

// Media type constants (spec §3.1).
const (
	MediaImage    MediaType = "image"
	MediaWebsite  MediaType = "website"
	MediaDocument MediaType = "document"
)

// AnnotationType loosely classifies an annotation's purpose. The vocabulary
// is open — annotations are free-form notes, not classified data.
type AnnotationType string
