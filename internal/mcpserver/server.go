package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/engramerr"
	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

// Server implements the C10 Model Context Protocol surface over the C5
// engine, sharing the same underlying memory engine as C9 (spec §1: "both
// implementing identical semantics over the same core").
type Server struct {
	engine         *engine.Engine
	embedder       embedder.Client
	defaultAgentID string
}

// Option configures a Server, following the functional-options idiom the
// teacher's own MCP server uses for optional collaborators.
type Option func(*Server)

// WithDefaultAgentID sets the entity ID used when a tool call omits
// agent_id/requesting_entity, so a single-identity MCP client (the common
// case: one agent process talking to one Engram server) does not have to
// repeat its own ID on every call.
func WithDefaultAgentID(id string) Option {
	return func(s *Server) { s.defaultAgentID = id }
}

// New constructs a Server over eng and emb.
func New(eng *engine.Engine, emb embedder.Client, opts ...Option) *Server {
	s := &Server{engine: eng, embedder: emb, defaultAgentID: "default-agent"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP implements the HTTP transport for /mcp/ (spec §4.8: "JSON-RPC
// 2.0 over HTTP POST at /mcp/").
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	resp := s.HandleRequest(r.Context(), body)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleRequest processes one JSON-RPC 2.0 request and returns the response
// envelope (shared by the HTTP transport and, were a stdio transport added
// later, any line-delimited one).
func (s *Server) HandleRequest(ctx context.Context, raw []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errResponse(nil, ErrCodeParseError, "parse error: "+err.Error())
	}
	if req.JSONRPC != "2.0" {
		return errResponse(req.ID, ErrCodeInvalidRequest, "jsonrpc must be \"2.0\"")
	}

	switch req.Method {
	case "initialize":
		return okResponse(req.ID, MCPInitializeResult{
			ProtocolVersion: "2024-11-05",
			Capabilities:    MCPServerCapabilities{Tools: &MCPToolsCapability{}},
			ServerInfo:      MCPServerInfo{Name: "engram", Version: "1.0.0"},
		})
	case "initialized", "notifications/initialized":
		// Notifications carry no response per JSON-RPC 2.0; the HTTP
		// transport still needs an envelope to write, so reply with an
		// empty result rather than leaving the connection hanging.
		return okResponse(req.ID, struct{}{})
	case "tools/list":
		return okResponse(req.ID, MCPToolsListResult{Tools: s.catalogue()})
	case "tools/call":
		return s.handleToolsCall(ctx, req.ID, req.Params)
	default:
		return errResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func okResponse(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errResponse(id interface{}, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &JSONRPCError{Code: code, Message: message}}
}

// handleToolsCall dispatches a tools/call request to the named tool and
// wraps the outcome in the MCP content envelope. A tool error never fails
// the JSON-RPC envelope itself — it is reported as isError content (spec
// §4.8, §7: "tool error with message").
func (s *Server) handleToolsCall(ctx context.Context, id interface{}, params interface{}) *JSONRPCResponse {
	raw, err := json.Marshal(params)
	if err != nil {
		return errResponse(id, ErrCodeInvalidParams, "invalid params")
	}
	var call MCPToolCallParams
	if err := json.Unmarshal(raw, &call); err != nil {
		return errResponse(id, ErrCodeInvalidParams, "invalid params")
	}

	argsJSON, _ := json.Marshal(call.Arguments)

	var result *MCPToolCallResult
	switch call.Name {
	case "store_memory":
		result = s.toolStoreMemory(ctx, argsJSON)
	case "retrieve_memories":
		result = s.toolRetrieveMemories(ctx, argsJSON)
	case "get_memory":
		result = s.toolGetMemory(ctx, argsJSON)
	case "list_recent_memories":
		result = s.toolListRecentMemories(ctx, argsJSON)
	case "get_memory_stats":
		result = s.toolGetMemoryStats(ctx, argsJSON)
	case "memory":
		result = s.toolMemory(ctx, argsJSON)
	default:
		result = errorResult(fmt.Sprintf("unknown tool: %s", call.Name))
	}
	return okResponse(id, result)
}

// catalogue returns the six tools spec §4.8 names, each described the way
// the teacher's buildToolsList documents its own tools: a short
// description plus a JSON-Schema inputSchema.
func (s *Server) catalogue() []MCPTool {
	return []MCPTool{
		{
			Name:        "store_memory",
			Description: "Store a new memory, optionally scoped to a set of witnessing entities.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content":        map[string]interface{}{"type": "string", "description": "the memory text"},
					"agent_id":       map[string]interface{}{"type": "string", "description": "single-agent witness; defaults to the server's configured agent"},
					"witnessed_by":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "multi-entity witness set; when set, overrides agent_id"},
					"tags":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"memory_type":    map[string]interface{}{"type": "string"},
					"domain":         map[string]interface{}{"type": "string"},
					"situation_type": map[string]interface{}{"type": "string"},
					"situation_id":   map[string]interface{}{"type": "string"},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        "retrieve_memories",
			Description: "Retrieve memories witnessed by an entity, ranked by semantic similarity to a query.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":                map[string]interface{}{"type": "string"},
					"requesting_entity":    map[string]interface{}{"type": "string", "description": "defaults to the server's configured agent"},
					"top_k":                map[string]interface{}{"type": "integer"},
					"similarity_threshold": map[string]interface{}{"type": "number"},
					"tags":                 map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "get_memory",
			Description: "Fetch one memory by ID, subject to the witness access check.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"memory_id":         map[string]interface{}{"type": "string"},
					"requesting_entity": map[string]interface{}{"type": "string"},
				},
				"required": []string{"memory_id"},
			},
		},
		{
			Name:        "list_recent_memories",
			Description: "List the most recently created memories witnessed by an entity.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"requesting_entity": map[string]interface{}{"type": "string"},
					"limit":             map[string]interface{}{"type": "integer"},
				},
			},
		},
		{
			Name:        "get_memory_stats",
			Description: "Summarise the memories witnessed by an entity: totals and breakdowns by type.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"entity_id": map[string]interface{}{"type": "string"},
				},
			},
		},
		{
			Name:        "memory",
			Description: "Unified natural-language entry point: infers whether to store or retrieve from the wording of the request.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"request":           map[string]interface{}{"type": "string"},
					"requesting_entity": map[string]interface{}{"type": "string"},
				},
				"required": []string{"request"},
			},
		},
	}
}

// --- store_memory ---

type storeMemoryArgs struct {
	Content       string   `json:"content"`
	AgentID       string   `json:"agent_id"`
	WitnessedBy   []string `json:"witnessed_by"`
	Tags          []string `json:"tags"`
	MemoryType    string   `json:"memory_type"`
	Domain        string   `json:"domain"`
	SituationType string   `json:"situation_type"`
	SituationID   string   `json:"situation_id"`
}

func (s *Server) toolStoreMemory(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args storeMemoryArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.Content) == "" {
		return errorResult("content is required")
	}
	agentID := args.AgentID
	if agentID == "" {
		agentID = s.defaultAgentID
	}

	vector, err := s.embedder.Embed(ctx, args.Content)
	if err != nil {
		return errorResult("embedding failed: " + describeErr(err))
	}

	memoryType := types.MemoryType(args.MemoryType)
	now := time.Now().UTC()

	if len(args.WitnessedBy) == 0 {
		result, err := s.engine.StoreSingle(ctx, engine.StoreSingleRequest{
			Content:       types.Content{Text: args.Content},
			PrimaryVector: vector,
			TimestampRaw:  now.Format(time.RFC3339),
			Metadata: types.Metadata{
				Timestamp:  now,
				MemoryType: memoryType,
				AgentID:    agentID,
				Domain:     args.Domain,
			},
			Tags:          args.Tags,
			SituationType: types.SituationType(args.SituationType),
		})
		if err != nil {
			return errorResult(describeErr(err))
		}
		return textResult(fmt.Sprintf("✅ stored memory %s", result.MemoryID))
	}

	situationType := types.SituationType(args.SituationType)
	if situationType == "" {
		situationType = types.SituationConversation
	}
	result, err := s.engine.StoreMulti(ctx, engine.StoreMultiRequest{
		WitnessedBy:   args.WitnessedBy,
		SituationType: situationType,
		SituationID:   args.SituationID,
		Content:       types.Content{Text: args.Content},
		PrimaryVector: vector,
		TimestampRaw:  now.Format(time.RFC3339),
		Metadata: types.Metadata{
			Timestamp:  now,
			MemoryType: memoryType,
			Domain:     args.Domain,
		},
		Tags: args.Tags,
	})
	if err != nil {
		return errorResult(describeErr(err))
	}
	return textResult(fmt.Sprintf("✅ stored memory %s (witnessed by %s)", result.MemoryID, strings.Join(args.WitnessedBy, ", ")))
}

// --- retrieve_memories ---

// defaultRetrieveTopK is the retrieve_memories tool's own default, distinct
// from the HTTP surface's defaultTopK (spec has no single mandated default
// for this MCP-only tool shape).
const defaultRetrieveTopK = 5

type retrieveMemoriesArgs struct {
	Query               string   `json:"query"`
	RequestingEntity    string   `json:"requesting_entity"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	Tags                []string `json:"tags"`
}

func (s *Server) toolRetrieveMemories(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args retrieveMemoriesArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("query is required")
	}
	entity := args.RequestingEntity
	if entity == "" {
		entity = s.defaultAgentID
	}

	vector, err := s.embedder.Embed(ctx, args.Query)
	if err != nil {
		return errorResult("embedding failed: " + describeErr(err))
	}

	// A missing top_k falls back to defaultRetrieveTopK; an explicit top_k: 0
	// is passed through untranslated so retrieve() returns an empty result
	// (spec §4.2), matching the HTTP surface's omitted-vs-zero distinction.
	topK := defaultRetrieveTopK
	if args.TopK != nil {
		topK = *args.TopK
	}

	result, err := s.engine.RetrieveMulti(ctx, engine.RetrieveRequest{
		ResonanceVectors: []engine.ResonanceVector{{Vector: vector, Weight: 1}},
		TagsInclude:      args.Tags,
		Retrieval:        engine.RetrievalOptions{TopK: topK, SimilarityThreshold: args.SimilarityThreshold},
		RequestingEntity: entity,
	})
	if err != nil {
		return errorResult(describeErr(err))
	}
	if len(result.Memories) == 0 {
		return textResult("no matching memories found")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "found %d memories:\n", len(result.Memories))
	for _, m := range result.Memories {
		fmt.Fprintf(&b, "- [%s] (similarity %.2f) %s\n", m.MemoryID, m.SimilarityScore, m.ContentPreview)
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}

// --- get_memory ---

type getMemoryArgs struct {
	MemoryID         string `json:"memory_id"`
	RequestingEntity string `json:"requesting_entity"`
}

func (s *Server) toolGetMemory(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args getMemoryArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if args.MemoryID == "" {
		return errorResult("memory_id is required")
	}
	entity := args.RequestingEntity
	if entity == "" {
		entity = s.defaultAgentID
	}

	memory, err := s.engine.Get(ctx, args.MemoryID, entity)
	if err != nil {
		return errorResult(describeErr(err))
	}

	data, err := json.MarshalIndent(memory, "", "  ")
	if err != nil {
		return errorResult("failed to format memory: " + err.Error())
	}
	return textResult(string(data))
}

// --- list_recent_memories ---

type listRecentMemoriesArgs struct {
	RequestingEntity string `json:"requesting_entity"`
	Limit            int    `json:"limit"`
}

func (s *Server) toolListRecentMemories(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args listRecentMemoriesArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	entity := args.RequestingEntity
	if entity == "" {
		entity = s.defaultAgentID
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	ids, err := s.engine.Store.ScanByEntity(ctx, entity)
	if err != nil {
		return errorResult(describeErr(err))
	}

	memories := make([]*types.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := s.engine.Store.Get(ctx, id)
		if err != nil {
			continue
		}
		memories = append(memories, m)
	}
	sort.Slice(memories, func(i, j int) bool { return memories[i].CreatedAt.After(memories[j].CreatedAt) })
	if len(memories) > limit {
		memories = memories[:limit]
	}

	if len(memories) == 0 {
		return textResult("no memories found")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d most recent memories for %s:\n", len(memories), entity)
	for _, m := range memories {
		fmt.Fprintf(&b, "- [%s] (%s) %s\n", m.MemoryID, m.CreatedAt.Format(time.RFC3339), contentPreview(m.Content.Text))
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}

// --- get_memory_stats ---

type getMemoryStatsArgs struct {
	EntityID string `json:"entity_id"`
}

func (s *Server) toolGetMemoryStats(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args getMemoryStatsArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	entity := args.EntityID
	if entity == "" {
		entity = s.defaultAgentID
	}

	ids, err := s.engine.Store.ScanByEntity(ctx, entity)
	if err != nil {
		return errorResult(describeErr(err))
	}

	byType := map[types.MemoryType]int{}
	var oldest, newest time.Time
	for _, id := range ids {
		m, err := s.engine.Store.Get(ctx, id)
		if err != nil {
			continue
		}
		byType[m.Metadata.MemoryType]++
		if oldest.IsZero() || m.CreatedAt.Before(oldest) {
			oldest = m.CreatedAt
		}
		if m.CreatedAt.After(newest) {
			newest = m.CreatedAt
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d memories witnessed by %s\n", len(ids), entity)
	for t, count := range byType {
		fmt.Fprintf(&b, "- %s: %d\n", t, count)
	}
	if !oldest.IsZero() {
		fmt.Fprintf(&b, "oldest: %s, newest: %s\n", oldest.Format(time.RFC3339), newest.Format(time.RFC3339))
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}

// --- memory (unified tool) ---

// storeKeywords and retrieveKeywords implement the unified "memory" tool's
// dispatch heuristic (spec §4.8, §9 open question: "source returns a
// disambiguation prompt; preserve that behaviour"). Matching is
// case-insensitive literal substring containment, mirroring the source's
// simple keyword rule rather than inventing an intent classifier.
var storeKeywords = []string{"remember", "save", "store", "note that", "keep in mind"}
var retrieveKeywords = []string{"what do", "recall", "find", "search", "do you know", "have we", "did we"}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

type memoryArgs struct {
	Request          string `json:"request"`
	RequestingEntity string `json:"requesting_entity"`
}

func (s *Server) toolMemory(ctx context.Context, argsJSON []byte) *MCPToolCallResult {
	var args memoryArgs
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if strings.TrimSpace(args.Request) == "" {
		return errorResult("request is required")
	}

	lower := strings.ToLower(args.Request)
	hasStore := containsAny(lower, storeKeywords)
	hasRetrieve := containsAny(lower, retrieveKeywords)

	switch {
	case hasStore && !hasRetrieve:
		argsJSON, _ := json.Marshal(storeMemoryArgs{Content: args.Request, AgentID: args.RequestingEntity})
		return s.toolStoreMemory(ctx, argsJSON)
	case hasRetrieve && !hasStore:
		argsJSON, _ := json.Marshal(retrieveMemoriesArgs{Query: args.Request, RequestingEntity: args.RequestingEntity})
		return s.toolRetrieveMemories(ctx, argsJSON)
	default:
		return textResult("I'm not sure whether to store or retrieve a memory for that request. " +
			"Try rephrasing with a clearer verb, e.g. \"remember that ...\" to store or \"what do I know about ...\" to retrieve.")
	}
}

func contentPreview(text string) string {
	const maxLen = 200
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}

func describeErr(err error) string {
	if e, ok := engramerr.As(err); ok {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return err.Error()
}
