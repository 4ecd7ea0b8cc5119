// Package httpapi implements the C9 HTTP surface: a thin façade that
// parses a request, validates it, calls the C5 engine, C6 curation
// pipeline, or C7 scheduler, and maps the result or error onto the wire
// (spec §4.7, §6.1). Route registration, middleware chaining, and the
// graceful-shutdown lifecycle follow the teacher's internal/server/server.go
// (http.NewServeMux, a security-headers wrapper, rate-limit-then-headers
// ordering, net.Listen + background Serve, context-driven Shutdown with a
// bounded timeout).
package httpapi

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/authrate"
	"github.com/Foundation42/entrained.ai-engram/internal/curation"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/scheduler"
)

// Config configures the C9 surface: the API key and admin credentials it
// enforces, and the rate-limit thresholds it applies (spec §4.6, §6.1).
type Config struct {
	Addr          string
	APIKey        string
	AuthEnabled   bool
	AdminUser     string
	AdminPassword string

	CommentMaxBytes int
	RequestMaxBytes int

	RateLimit authrate.Config
}

// Server wires the C5/C6/C7 collaborators behind the HTTP routes of spec
// §6.1.
type Server struct {
	cfg       Config
	engine    *engine.Engine
	curation  *curation.Pipeline
	embedder  embedder.Client
	scheduler *scheduler.Scheduler

	apiKey  authrate.APIKeyCheck
	limiter *authrate.Limiter

	httpServer *http.Server

	// extraRoutes holds handlers registered via Mount before Handler is
	// first called — e.g. cmd/engram-server's C10 MCP endpoint — so a
	// single process can serve both transports from one listener (spec
	// §6.1 lists "/mcp/" in the same route table as the REST surface).
	extraRoutes map[string]http.Handler
}

// New constructs a Server. sched may be nil if the process does not run the
// cleanup scheduler in-process (the admin status/flush endpoints degrade to
// reporting store-only information in that case).
func New(cfg Config, eng *engine.Engine, pipeline *curation.Pipeline, emb embedder.Client, sched *scheduler.Scheduler) *Server {
	return &Server{
		cfg:         cfg,
		engine:      eng,
		curation:    pipeline,
		embedder:    emb,
		scheduler:   sched,
		apiKey:      authrate.APIKeyCheck{Want: cfg.APIKey},
		limiter:     authrate.New(cfg.RateLimit),
		extraRoutes: make(map[string]http.Handler),
	}
}

// securityHeadersMiddleware adds the same conservative header set the
// teacher applies to every response (internal/server/server.go).
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Handler builds the full routed, middleware-wrapped handler without
// starting a listener; exposed separately from Start so tests can drive it
// with httptest.Server/httptest.NewRequest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	camMux := http.NewServeMux()
	camMux.HandleFunc("POST /cam/store", s.handleStoreSingle)
	camMux.HandleFunc("POST /cam/retrieve", s.handleRetrieveSingle)
	camMux.HandleFunc("GET /cam/memory/{id}", s.handleGetMemory)
	camMux.HandleFunc("POST /cam/memory/{id}/annotate", s.handleAnnotate)
	camMux.HandleFunc("GET /cam/memory/{id}/annotations", s.handleListAnnotations)
	camMux.HandleFunc("POST /cam/multi/store", s.handleStoreMulti)
	camMux.HandleFunc("POST /cam/multi/retrieve", s.handleRetrieveMulti)
	camMux.HandleFunc("GET /cam/multi/memory/{id}", s.handleGetMemoryMulti)
	camMux.HandleFunc("GET /cam/multi/situations/{entity_id}", s.handleSituationsFor)
	camMux.HandleFunc("POST /cam/curated/analyze", s.handleCuratedAnalyze)
	camMux.HandleFunc("POST /cam/curated/store", s.handleCuratedStore)
	camMux.HandleFunc("POST /cam/curated/retrieve", s.handleCuratedRetrieve)
	camMux.HandleFunc("GET /cam/curated/stats/{entity_id}", s.handleCuratedStats)

	mux.Handle("/cam/", s.requireAPIKey(s.limitRequestBody(camMux)))

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST /api/v1/admin/flush/memories", s.handleAdminFlush)
	adminMux.HandleFunc("POST /api/v1/admin/recreate/indexes", s.handleAdminRecreateIndexes)
	adminMux.HandleFunc("GET /api/v1/admin/status", s.handleAdminStatus)
	mux.Handle("/api/v1/admin/", s.requireAPIKey(s.requireAdminBasicAuth(adminMux)))

	mux.HandleFunc("GET /health", s.handleHealth)

	// Routes registered via Mount — e.g. cmd/engram-server's C10 MCP
	// endpoint at /mcp/ — are mounted directly on the top-level mux,
	// outside the /cam/ API-key gate: the MCP JSON-RPC surface does its
	// own per-call auth at the tool level, not at the transport level.
	for pattern, h := range s.extraRoutes {
		mux.Handle(pattern, h)
	}

	handler := s.rateLimitMiddleware(mux)
	handler = securityHeadersMiddleware(handler)
	return handler
}

// Mount registers handler at pattern on the top-level mux Handler builds,
// so a caller (cmd/engram-server) can attach C10's /mcp/ endpoint without
// internal/httpapi importing internal/mcpserver (transports depend on the
// engine, not on each other). Must be called before Handler or Start.
func (s *Server) Mount(pattern string, handler http.Handler) {
	s.extraRoutes[pattern] = handler
}

// Start begins serving on cfg.Addr in the background and returns the actual
// listening address. Shutdown is triggered when ctx is cancelled, mirroring
// the teacher's Start (net.Listen + background Serve + a goroutine waiting
// on ctx.Done before calling Shutdown with a bounded timeout).
func (s *Server) Start(ctx context.Context) (string, error) {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("httpapi: listen on %s: %w", s.cfg.Addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("httpapi: server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("httpapi: shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}
