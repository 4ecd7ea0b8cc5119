package redisrecord

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// encodeEmbedding packs vector as a little-endian float32 blob (spec §6.5:
// "embedding is a binary float32 blob little-endian").
func encodeEmbedding(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian float32 blob produced by
// encodeEmbedding.
func decodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	vector := make([]float32, n)
	for i := 0; i < n; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector
}

// recordPayload is the hash's "payload" field: the full structured record
// minus the embedding, which is stored separately as a binary blob so it
// round-trips exactly (spec §6.5) without JSON's float-precision quirks.
type recordPayload struct {
	Memory *types.Memory `json:"memory"`
}

func encodePayload(m *types.Memory) ([]byte, error) {
	vector := m.Vector
	m.Vector = nil
	defer func() { m.Vector = vector }()
	return json.Marshal(recordPayload{Memory: m})
}

func decodePayload(data []byte) (*types.Memory, error) {
	var p recordPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p.Memory, nil
}

func encodeAnnotation(a types.Annotation) ([]byte, error) {
	return json.Marshal(a)
}

func decodeAnnotation(data []byte) (types.Annotation, error) {
	var a types.Annotation
	err := json.Unmarshal(data, &a)
	return a, err
}

func encodeSituation(s *types.Situation) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSituation(data []byte) (*types.Situation, error) {
	var s types.Situation
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
