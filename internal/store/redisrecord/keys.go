package redisrecord

import "fmt"

// Key naming follows the persisted layout in spec §6.5 literally: plain
// Redis hashes, sets and lists reachable from any Redis client, not a
// RediSearch-specific document format.
func memoryKey(memoryID string) string        { return fmt.Sprintf("memory:%s", memoryID) }
func entityAccessKey(entityNorm string) string { return fmt.Sprintf("entity_access:%s", entityNorm) }
func situationKey(situationID string) string   { return fmt.Sprintf("situation:%s", situationID) }
func annotationsKey(memoryID string) string    { return fmt.Sprintf("annotations:%s", memoryID) }
func causalityParentsKey(memoryID string) string  { return fmt.Sprintf("causality:%s:parents", memoryID) }
func causalityChildrenKey(memoryID string) string { return fmt.Sprintf("causality:%s:children", memoryID) }

// allMemoriesKey is an engine-native addition (not in spec §6.5): a single
// set of every memory_id, so AllMemoryIDs and startup Load don't need a
// cursor SCAN over the whole keyspace.
const allMemoriesKey = "engram:all_memories"
