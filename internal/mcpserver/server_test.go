package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/store/redisrecord"
)

const testDim = 16

func setupServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	s, err := redisrecord.New(context.Background(), redisrecord.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fake := embedder.NewFake(testDim)
	eng := engine.New(s, fake)
	return New(eng, fake, WithDefaultAgentID("alice"))
}

func call(t *testing.T, srv *Server, name string, args interface{}) *MCPToolCallResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	require.NoError(t, err)
	var rawArgs map[string]interface{}
	require.NoError(t, json.Unmarshal(argsJSON, &rawArgs))

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "tools/call",
		ID:      "1",
		Params:  MCPToolCallParams{Name: name, Arguments: rawArgs},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	resp := srv.HandleRequest(context.Background(), raw)
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPToolCallResult
	require.NoError(t, json.Unmarshal(data, &result))
	return &result
}

func TestInitializeAdvertisesToolsCapability(t *testing.T) {
	srv := setupServer(t)
	resp := srv.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"initialize","id":1}`))
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPInitializeResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.NotNil(t, result.Capabilities.Tools)
	assert.Equal(t, "engram", result.ServerInfo.Name)
}

func TestToolsListReturnsSixTools(t *testing.T) {
	srv := setupServer(t)
	resp := srv.HandleRequest(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result MCPToolsListResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Tools, 6)
}

func TestStoreThenGetMemoryRoundTrips(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()

	storeResult := call(t, srv, "store_memory", storeMemoryArgs{Content: "alice likes tea", AgentID: "alice"})
	require.False(t, storeResult.IsError)
	assert.Contains(t, storeResult.Content[0].Text, "✅")

	// Extract the memory ID from the success text ("✅ stored memory mem-...").
	fields := strings.Fields(storeResult.Content[0].Text)
	memoryID := fields[len(fields)-1]

	getResult := call(t, srv, "get_memory", getMemoryArgs{MemoryID: memoryID, RequestingEntity: "alice"})
	require.False(t, getResult.IsError)
	assert.Contains(t, getResult.Content[0].Text, "alice likes tea")

	// bob was never a witness; the access predicate denies the read.
	deniedResult := call(t, srv, "get_memory", getMemoryArgs{MemoryID: memoryID, RequestingEntity: "bob"})
	assert.True(t, deniedResult.IsError)

	_ = ctx
}

func TestRetrieveMemoriesFindsStoredMemory(t *testing.T) {
	srv := setupServer(t)

	call(t, srv, "store_memory", storeMemoryArgs{Content: "the capybara is the largest rodent", AgentID: "alice"})

	topK := 3
	result := call(t, srv, "retrieve_memories", retrieveMemoriesArgs{Query: "the capybara is the largest rodent", RequestingEntity: "alice", TopK: &topK})
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "capybara")
}

// TestRetrieveMemoriesExplicitTopKZeroReturnsEmpty covers the same
// omitted-vs-explicit-zero distinction as the HTTP surface: an explicit
// top_k: 0 must not fall back to defaultRetrieveTopK.
func TestRetrieveMemoriesExplicitTopKZeroReturnsEmpty(t *testing.T) {
	srv := setupServer(t)

	call(t, srv, "store_memory", storeMemoryArgs{Content: "the capybara is the largest rodent", AgentID: "alice"})

	zero := 0
	result := call(t, srv, "retrieve_memories", retrieveMemoriesArgs{Query: "the capybara is the largest rodent", RequestingEntity: "alice", TopK: &zero})
	require.False(t, result.IsError)
	assert.NotContains(t, result.Content[0].Text, "capybara")
}

func TestUnifiedMemoryToolDispatchesByKeyword(t *testing.T) {
	srv := setupServer(t)

	stored := call(t, srv, "memory", memoryArgs{Request: "Remember that the user likes minimal UI design", RequestingEntity: "alice"})
	require.False(t, stored.IsError)
	assert.Contains(t, stored.Content[0].Text, "✅")

	retrieved := call(t, srv, "memory", memoryArgs{Request: "What do I know about the user's UI preferences?", RequestingEntity: "alice"})
	require.False(t, retrieved.IsError)
	assert.Contains(t, retrieved.Content[0].Text, "minimal UI design")

	ambiguous := call(t, srv, "memory", memoryArgs{Request: "tell me something", RequestingEntity: "alice"})
	assert.False(t, ambiguous.IsError)
	assert.Contains(t, ambiguous.Content[0].Text, "not sure whether")
}

func TestListRecentMemoriesOrdersNewestFirst(t *testing.T) {
	srv := setupServer(t)

	call(t, srv, "store_memory", storeMemoryArgs{Content: "first memory", AgentID: "alice"})
	call(t, srv, "store_memory", storeMemoryArgs{Content: "second memory", AgentID: "alice"})

	result := call(t, srv, "list_recent_memories", listRecentMemoriesArgs{RequestingEntity: "alice", Limit: 10})
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "2 most recent memories")
}

func TestGetMemoryStatsCountsByType(t *testing.T) {
	srv := setupServer(t)

	call(t, srv, "store_memory", storeMemoryArgs{Content: "alice likes tea", AgentID: "alice", MemoryType: "preference"})

	result := call(t, srv, "get_memory_stats", getMemoryStatsArgs{EntityID: "alice"})
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "1 memories witnessed by alice")
	assert.Contains(t, result.Content[0].Text, "preference: 1")
}
