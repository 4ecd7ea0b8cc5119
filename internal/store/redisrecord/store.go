// Package redisrecord implements the C3 durable record/situation/
// annotation/causality layout against Redis (spec §6.5), paired with an
// in-process HNSW index for KNN queries (SPEC_FULL §4.1.1). It is grounded
// on the client-setup and Pipeline/TxPipeline conventions of
// scttfrdmn-agenkit-go's redis_memory.go and kart-io-sentinel-x's redis
// component package.
package redisrecord

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/internal/normalize"
	"github.com/Foundation42/entrained.ai-engram/internal/store"
	"github.com/Foundation42/entrained.ai-engram/internal/store/hnsw"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// Store is the Redis-backed implementation of store.Store.
type Store struct {
	rdb   *redis.Client
	index *hnsw.Index

	// mirror is an in-process cache of every live memory, keyed by ID,
	// kept in sync with Redis on every Put/Delete. The KNN post-filter
	// (spec §4.1 "KNN-with-filter evaluation") reads from here rather than
	// round-tripping to Redis per candidate (SPEC_FULL §4.1.1).
	mu     sync.RWMutex
	mirror map[string]*types.Memory
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and rebuilds the in-process HNSW index from every
// record currently persisted (SPEC_FULL §4.1.1, "rebuilt from the
// Redis-resident records at startup").
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisrecord: ping: %w", err)
	}

	s := &Store{
		rdb:    rdb,
		index:  hnsw.New(),
		mirror: make(map[string]*types.Memory),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load rebuilds the in-process mirror and HNSW index from Redis.
func (s *Store) load(ctx context.Context) error {
	ids, err := s.rdb.SMembers(ctx, allMemoriesKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redisrecord: load: %w", err)
	}
	for _, id := range ids {
		m, err := s.fetchMemory(ctx, id)
		if err != nil {
			continue // tombstoned/partial record; skip rather than fail startup
		}
		s.mirror[id] = m
		s.index.Insert(id, m.Vector)
	}
	return nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, m *types.Memory) error {
	s.mu.Lock()
	if _, exists := s.mirror[m.MemoryID]; exists {
		s.mu.Unlock()
		return engramerr.AlreadyExists(fmt.Sprintf("memory %s already exists", m.MemoryID))
	}
	s.mu.Unlock()

	exists, err := s.rdb.Exists(ctx, memoryKey(m.MemoryID)).Result()
	if err != nil {
		return engramerr.Storage("checking existing record", err)
	}
	if exists > 0 {
		return engramerr.AlreadyExists(fmt.Sprintf("memory %s already exists", m.MemoryID))
	}

	return s.writeRecord(ctx, m)
}

// Update implements store.Store: overwrites an existing record in place,
// preserving memory_id. Fails with engramerr.KindNotFound if the record is
// not already present.
func (s *Store) Update(ctx context.Context, m *types.Memory) error {
	s.mu.RLock()
	_, exists := s.mirror[m.MemoryID]
	s.mu.RUnlock()
	if !exists {
		return engramerr.NotFound(fmt.Sprintf("memory %s not found", m.MemoryID))
	}
	return s.writeRecord(ctx, m)
}

// writeRecord is the shared hash/set write path for Put and Update: it
// writes the witness-access sets before the record hash (spec §4.1
// "Atomicity": "never expose a record whose witness set is unset"), rolling
// the sets back on pipeline failure.
func (s *Store) writeRecord(ctx context.Context, m *types.Memory) error {
	normWitnesses := normalize.Set(m.WitnessedBy)

	payload, err := encodePayload(m)
	if err != nil {
		return engramerr.Storage("encoding record", err)
	}

	pipe := s.rdb.TxPipeline()
	// Write the witness-access sets first so a record is never visible
	// with an unset witness set (spec §4.1 "Atomicity").
	for _, w := range normWitnesses {
		pipe.SAdd(ctx, entityAccessKey(w), m.MemoryID)
	}
	pipe.HSet(ctx, memoryKey(m.MemoryID), map[string]interface{}{
		"memory_id":      m.MemoryID,
		"text":           m.Content.Text,
		"witnessed_by":   joinTags(normWitnesses),
		"situation_id":   m.SituationID,
		"situation_type": string(m.SituationType),
		"privacy_level":  string(m.PrivacyLevel),
		"memory_type":    string(m.Metadata.MemoryType),
		"agent_id":       m.Metadata.AgentID,
		"domain":         m.Metadata.Domain,
		"topic_tags":     joinTags(m.Metadata.TopicTags),
		"timestamp":      strconv.FormatInt(m.Metadata.Timestamp.Unix(), 10),
		"confidence":     strconv.FormatFloat(m.Metadata.Confidence, 'f', -1, 64),
		"importance":     strconv.FormatFloat(m.Metadata.Importance, 'f', -1, 64),
		"embedding":      encodeEmbedding(m.Vector),
		"payload":        payload,
	})
	pipe.SAdd(ctx, allMemoriesKey, m.MemoryID)
	for _, parent := range m.Causality.ParentMemories {
		pipe.SAdd(ctx, causalityParentsKey(m.MemoryID), parent)
		pipe.SAdd(ctx, causalityChildrenKey(parent), m.MemoryID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Roll back the witness sets written above: an unset witness set
		// must never be observable (spec §4.1 "Atomicity").
		rollback := s.rdb.Pipeline()
		for _, w := range normWitnesses {
			rollback.SRem(ctx, entityAccessKey(w), m.MemoryID)
		}
		_, _ = rollback.Exec(ctx)
		return engramerr.Storage("writing record", err)
	}

	if err := s.upsertSituation(ctx, m); err != nil {
		return engramerr.Storage("updating situation", err)
	}

	s.mu.Lock()
	s.mirror[m.MemoryID] = cloneMemory(m)
	s.mu.Unlock()
	s.index.Insert(m.MemoryID, m.Vector)

	return nil
}

func (s *Store) upsertSituation(ctx context.Context, m *types.Memory) error {
	existing, err := s.rdb.HGet(ctx, situationKey(m.SituationID), "payload").Result()
	var situation *types.Situation
	if err == nil {
		situation, _ = decodeSituation([]byte(existing))
	}
	if situation == nil {
		situation = &types.Situation{
			SituationID:   m.SituationID,
			SituationType: m.SituationType,
			CreatedAt:     m.CreatedAt,
			Status:        types.SituationStatusActive,
		}
	}
	situation.Participants = normalize.Set(append(situation.Participants, m.WitnessedBy...))
	situation.MemoryIDs = appendUnique(situation.MemoryIDs, m.MemoryID)
	situation.LastActivity = m.CreatedAt

	encoded, err := encodeSituation(situation)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, situationKey(m.SituationID), "payload", encoded).Err()
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, memoryID string) (*types.Memory, error) {
	s.mu.RLock()
	if m, ok := s.mirror[memoryID]; ok {
		s.mu.RUnlock()
		return cloneMemory(m), nil
	}
	s.mu.RUnlock()

	m, err := s.fetchMemory(ctx, memoryID)
	if err != nil {
		return nil, engramerr.NotFound(fmt.Sprintf("memory %s not found", memoryID))
	}
	return m, nil
}

func (s *Store) fetchMemory(ctx context.Context, memoryID string) (*types.Memory, error) {
	fields, err := s.rdb.HGetAll(ctx, memoryKey(memoryID)).Result()
	if err != nil {
		return nil, err
	}
	payload, ok := fields["payload"]
	if !ok {
		return nil, fmt.Errorf("redisrecord: %s missing payload", memoryID)
	}
	m, err := decodePayload([]byte(payload))
	if err != nil {
		return nil, err
	}
	embField, err := s.rdb.HGet(ctx, memoryKey(memoryID), "embedding").Bytes()
	if err == nil {
		m.Vector = decodeEmbedding(embField)
	}
	return m, nil
}

// KNN implements store.Store. It over-fetches fetchK = max(4k, 64)
// candidates from the HNSW graph, then post-filters by tag/numeric
// predicate (SPEC_FULL §4.1.1).
func (s *Store) KNN(_ context.Context, query []float32, k int, floor float64, tags store.TagFilter, nums store.NumericFilter) ([]store.KNNResult, error) {
	if k <= 0 {
		return nil, nil
	}
	fetchK := 4 * k
	if fetchK < 64 {
		fetchK = 64
	}

	s.mu.RLock()
	candidates := s.index.Search(query, fetchK)
	out := make([]store.KNNResult, 0, k)
	for _, c := range candidates {
		m, ok := s.mirror[c.ID]
		if !ok {
			continue
		}
		similarity := 1 - c.Distance
		if similarity < floor {
			continue
		}
		if !matchesTags(m, tags) || !matchesNumeric(m, nums) {
			continue
		}
		out = append(out, store.KNNResult{MemoryID: c.ID, Similarity: similarity})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func matchesTags(m *types.Memory, f store.TagFilter) bool {
	if f.RequireWitness != "" && !normalize.Contains(normalize.Set(m.WitnessedBy), f.RequireWitness) {
		return false
	}
	if f.SituationType != "" && string(m.SituationType) != f.SituationType {
		return false
	}
	if f.SituationID != "" && m.SituationID != f.SituationID {
		return false
	}
	if len(f.PrivacyLevels) > 0 && !containsPrivacy(f.PrivacyLevels, m.PrivacyLevel) {
		return false
	}
	if len(f.MemoryTypes) > 0 && !containsMemoryType(f.MemoryTypes, m.Metadata.MemoryType) {
		return false
	}
	if len(f.AgentIDs) > 0 && !containsString(f.AgentIDs, m.Metadata.AgentID) {
		return false
	}
	if len(f.Domains) > 0 && !containsString(f.Domains, m.Metadata.Domain) {
		return false
	}
	if len(f.TopicTagsAny) > 0 && !anyStringIn(f.TopicTagsAny, m.Metadata.TopicTags) {
		return false
	}
	return true
}

func matchesNumeric(m *types.Memory, f store.NumericFilter) bool {
	if f.TimestampFrom != nil && m.Metadata.Timestamp.Before(*f.TimestampFrom) {
		return false
	}
	if f.TimestampTo != nil && m.Metadata.Timestamp.After(*f.TimestampTo) {
		return false
	}
	if f.ConfidenceMin != nil && m.Metadata.Confidence < *f.ConfidenceMin {
		return false
	}
	if f.ImportanceMin != nil && m.Metadata.Importance < *f.ImportanceMin {
		return false
	}
	return true
}

// ScanByEntity implements store.Store.
func (s *Store) ScanByEntity(ctx context.Context, entityID string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, entityAccessKey(normalize.EntityID(entityID))).Result()
	if err != nil {
		return nil, engramerr.Storage("scanning entity access set", err)
	}
	return ids, nil
}

// Annotate implements store.Store.
func (s *Store) Annotate(ctx context.Context, memoryID string, annotation types.Annotation) error {
	exists, err := s.rdb.Exists(ctx, memoryKey(memoryID)).Result()
	if err != nil {
		return engramerr.Storage("checking memory", err)
	}
	if exists == 0 {
		return engramerr.NotFound(fmt.Sprintf("memory %s not found", memoryID))
	}
	encoded, err := encodeAnnotation(annotation)
	if err != nil {
		return engramerr.Storage("encoding annotation", err)
	}
	if err := s.rdb.RPush(ctx, annotationsKey(memoryID), encoded).Err(); err != nil {
		return engramerr.Storage("appending annotation", err)
	}
	return nil
}

// ListAnnotations implements store.Store.
func (s *Store) ListAnnotations(ctx context.Context, memoryID string) ([]types.Annotation, error) {
	raw, err := s.rdb.LRange(ctx, annotationsKey(memoryID), 0, -1).Result()
	if err != nil {
		return nil, engramerr.Storage("listing annotations", err)
	}
	out := make([]types.Annotation, 0, len(raw))
	for _, item := range raw {
		a, err := decodeAnnotation([]byte(item))
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Delete implements store.Store. It removes the record and secondary
// indices, drops memoryID from its situation (deleting the situation once
// its last memory is gone), and never cascades to causality children
// (spec §4.1, §9).
func (s *Store) Delete(ctx context.Context, memoryID string) error {
	m, err := s.Get(ctx, memoryID)
	if err != nil {
		return nil // already gone; Delete is idempotent
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, memoryKey(memoryID))
	pipe.Del(ctx, annotationsKey(memoryID))
	pipe.Del(ctx, causalityParentsKey(memoryID))
	pipe.SRem(ctx, allMemoriesKey, memoryID)
	for _, w := range normalize.Set(m.WitnessedBy) {
		pipe.SRem(ctx, entityAccessKey(w), memoryID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return engramerr.Storage("deleting record", err)
	}

	if situation, err := s.GetSituation(ctx, m.SituationID); err == nil {
		kept := make([]string, 0, len(situation.MemoryIDs))
		for _, id := range situation.MemoryIDs {
			if id != memoryID {
				kept = append(kept, id)
			}
		}
		situation.MemoryIDs = kept
		if len(kept) == 0 {
			_ = s.rdb.Del(ctx, situationKey(m.SituationID)).Err()
		} else if encoded, err := encodeSituation(situation); err == nil {
			_ = s.rdb.HSet(ctx, situationKey(m.SituationID), "payload", encoded).Err()
		}
	}

	s.mu.Lock()
	delete(s.mirror, memoryID)
	s.mu.Unlock()
	s.index.Delete(memoryID)
	return nil
}

// GetSituation implements store.Store.
func (s *Store) GetSituation(ctx context.Context, situationID string) (*types.Situation, error) {
	raw, err := s.rdb.HGet(ctx, situationKey(situationID), "payload").Result()
	if err == redis.Nil {
		return nil, engramerr.NotFound(fmt.Sprintf("situation %s not found", situationID))
	}
	if err != nil {
		return nil, engramerr.Storage("reading situation", err)
	}
	return decodeSituation([]byte(raw))
}

// SituationsForEntity implements store.Store, ordered by LastActivity
// descending (spec §4.2 situations_for).
func (s *Store) SituationsForEntity(ctx context.Context, entityID string) ([]types.Situation, error) {
	memoryIDs, err := s.ScanByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var situations []types.Situation
	for _, id := range memoryIDs {
		m, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if _, ok := seen[m.SituationID]; ok {
			continue
		}
		seen[m.SituationID] = struct{}{}
		situation, err := s.GetSituation(ctx, m.SituationID)
		if err != nil {
			continue
		}
		situations = append(situations, *situation)
	}

	sort.Slice(situations, func(i, j int) bool {
		return situations[i].LastActivity.After(situations[j].LastActivity)
	})
	return situations, nil
}

// AllMemoryIDs implements store.Store.
func (s *Store) AllMemoryIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, allMemoriesKey).Result()
	if err != nil {
		return nil, engramerr.Storage("listing all memory ids", err)
	}
	return ids, nil
}

// RebuildIndex implements store.Store by discarding the in-process HNSW
// graph and reinserting every mirrored record, the same step New takes at
// startup — there is no separate on-disk index definition to recreate.
func (s *Store) RebuildIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := hnsw.New()
	for id, m := range s.mirror {
		fresh.Insert(id, m.Vector)
	}
	s.index = fresh
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.rdb.Close()
}

var _ store.Store = (*Store)(nil)

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func containsPrivacy(list []types.PrivacyLevel, v types.PrivacyLevel) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsMemoryType(list []types.MemoryType, v types.MemoryType) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func anyStringIn(needles, haystack []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}

func cloneMemory(m *types.Memory) *types.Memory {
	clone := *m
	clone.Vector = append([]float32(nil), m.Vector...)
	clone.WitnessedBy = append([]string(nil), m.WitnessedBy...)
	clone.Tags = append([]string(nil), m.Tags...)
	return &clone
}
