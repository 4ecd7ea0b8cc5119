package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateMemoryID derives a memory_id from the record's content, its
// primary witness and its situation ID, formatted mem-<12-hex> (SPEC_FULL
// §1.1). The same content for the same witness and situation produces the
// same ID, which store.Put then rejects as AlreadyExists instead of
// duplicating it. StoreSingle, and StoreMulti without a situation_id,
// generate a fresh situation ID on every call, so a resubmission through
// them gets a new ID and is stored again.
func GenerateMemoryID(content, primaryWitness, situationID string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(primaryWitness))
	h.Write([]byte{0})
	h.Write([]byte(situationID))
	sum := h.Sum(nil)
	return fmt.Sprintf("mem-%s", hex.EncodeToString(sum[:6]))
}
