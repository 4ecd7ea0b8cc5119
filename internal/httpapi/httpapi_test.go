package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/authrate"
	"github.com/Foundation42/entrained.ai-engram/internal/curation"
	"github.com/Foundation42/entrained.ai-engram/internal/curator"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/store/redisrecord"
)

const testDim = 16
const testAPIKey = "test-key"

func setupServer(t *testing.T) (*Server, *embedder.Fake) {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	s, err := redisrecord.New(context.Background(), redisrecord.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fake := embedder.NewFake(testDim)
	eng := engine.New(s, fake)
	pipeline := curation.New(curator.NewFake(), curator.NewTemplate(""), eng, fake)

	srv := New(Config{
		APIKey:          testAPIKey,
		AuthEnabled:     true,
		AdminUser:       "admin",
		AdminPassword:   "hunter2",
		CommentMaxBytes: authrate.DefaultCommentMaxBytes,
		RequestMaxBytes: authrate.DefaultRequestMaxBytes,
		RateLimit:       authrate.Config{PerMinute: 1000, PerHour: 100000, BlockDuration: time.Minute},
	}, eng, pipeline, fake, nil)
	return srv, fake
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRequiresNoAPIKey(t *testing.T) {
	srv, _ := setupServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreSingleRequiresAPIKey(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "alice likes tea")

	body := storeSingleRequestDTO{
		Content:       contentDTO{Text: "alice likes tea"},
		PrimaryVector: vec,
		Metadata:      metadataDTO{AgentID: "alice", MemoryType: "preference", Confidence: 0.9},
	}

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/store", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/cam/store", body, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp storeResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stored", resp.Status)
	assert.NotEmpty(t, resp.MemoryID)
}

func TestStoreAndGetMultiWitnessChecked(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "private consult")

	storeBody := storeMultiRequestDTO{
		WitnessedBy:   []string{"alice", "claude"},
		SituationType: "consultation_1to1",
		Content:       contentDTO{Text: "private consult"},
		PrimaryVector: vec,
		PrivacyLevel:  "participants_only",
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/multi/store", storeBody, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored storeResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/cam/multi/memory/"+stored.MemoryID+"?requesting_entity=bob", nil, testAPIKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/cam/multi/memory/"+stored.MemoryID+"?requesting_entity=alice", nil, testAPIKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRetrieveSingleExplicitTopKZeroReturnsEmpty(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "a fact that would otherwise match")

	storeBody := storeSingleRequestDTO{
		Content:       contentDTO{Text: "a fact that would otherwise match"},
		PrimaryVector: vec,
		Metadata:      metadataDTO{AgentID: "alice"},
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/store", storeBody, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	zero := 0
	body := retrieveRequestDTO{
		ResonanceVectors: []resonanceVectorDTO{{Vector: vec, Weight: 1}},
		Retrieval:        retrievalOptionsDTO{TopK: &zero},
	}
	rec = doRequest(t, srv.Handler(), http.MethodPost, "/cam/retrieve", body, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp retrieveResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.TotalFound)
	assert.Empty(t, resp.Memories)
}

func TestRetrieveSingleOmittedTopKUsesDefault(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "a fact retrievable under the default top_k")

	storeBody := storeSingleRequestDTO{
		Content:       contentDTO{Text: "a fact retrievable under the default top_k"},
		PrimaryVector: vec,
		Metadata:      metadataDTO{AgentID: "alice"},
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/store", storeBody, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	body := retrieveRequestDTO{
		ResonanceVectors: []resonanceVectorDTO{{Vector: vec, Weight: 1}},
	}
	rec = doRequest(t, srv.Handler(), http.MethodPost, "/cam/retrieve", body, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp retrieveResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalFound)
}

func TestRetrieveMultiRequiresRequestingEntity(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "group topic")

	body := retrieveRequestDTO{
		ResonanceVectors: []resonanceVectorDTO{{Vector: vec, Weight: 1}},
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/multi/retrieve", body, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnnotateRejectsScriptInjection(t *testing.T) {
	srv, fake := setupServer(t)
	ctx := context.Background()
	vec, _ := fake.Embed(ctx, "notes")

	storeBody := storeMultiRequestDTO{
		WitnessedBy:   []string{"alice"},
		SituationType: "conversation",
		Content:       contentDTO{Text: "notes"},
		PrimaryVector: vec,
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/multi/store", storeBody, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored storeResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))

	annotateBody := annotateRequestDTO{
		AnnotatorID: "alice",
		Content:     `<script>alert(1)</script>`,
	}
	rec = doRequest(t, srv.Handler(), http.MethodPost, "/cam/memory/"+stored.MemoryID+"/annotate", annotateBody, testAPIKey)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminStatusRequiresBasicAuthAndAPIKey(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	req.SetBasicAuth("admin", "hunter2")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCuratedAnalyzeSplitsFactFromEphemeral(t *testing.T) {
	srv, _ := setupServer(t)

	body := curateRequestDTO{
		UserInput:     "My name is Christian and I live in Liversedge. It's raining.",
		AgentResponse: "Nice to meet you, Christian.",
		WitnessedBy:   []string{"christian", "claude"},
		SituationType: "conversation",
	}
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/cam/curated/analyze", body, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp curateResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Decisions, 2)
	assert.Empty(t, resp.StoredMemoryIDs)
}

func TestRateLimitReturns429(t *testing.T) {
	srv, _ := setupServer(t)
	srv.limiter = authrate.New(authrate.Config{PerMinute: 1, PerHour: 100, BlockDuration: time.Minute})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/cam/memory/mem-doesnotexist", nil, testAPIKey)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/cam/memory/mem-doesnotexist", nil, testAPIKey)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
