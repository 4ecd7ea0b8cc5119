// Package normalize implements the entity-ID normalisation required by the
// tag-tokenizer the store's index is modelled on (spec §3.2 invariant 8,
// §4.1 "Entity-ID normalisation"). The tokenizer splits tag fields on
// punctuation, so "human-alice-123" and "humanalice123" would otherwise be
// treated as different tokens; this package strips hyphens (the only
// punctuation it removes) before any tag-filter comparison so the two forms
// compare equal.
package normalize

import "strings"

// EntityID strips every hyphen from id, leading and trailing ones included,
// so it matches the tokenizer's tag-field splitting behaviour. It is
// idempotent: EntityID(EntityID(x)) == EntityID(x) (spec §8.1 invariant 6), and it never reorders or drops any
// non-hyphen character, so the original string can always be recovered from
// context even though it is not invertible from the normalised form alone.
func EntityID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// Set normalises every entity ID in ids, preserving order, and deduplicates
// by normalised form (spec §9: "Witness set is a logical set... enforce set
// semantics on insertion (deduplicate after normalisation)").
func Set(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		norm := EntityID(id)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// Contains reports whether normalisedSet (already normalised, e.g. via Set)
// contains entityID after normalisation.
func Contains(normalisedSet []string, entityID string) bool {
	target := EntityID(entityID)
	for _, id := range normalisedSet {
		if id == target {
			return true
		}
	}
	return false
}
