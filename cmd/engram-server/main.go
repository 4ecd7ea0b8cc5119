// Command engram-server is the process entrypoint: it wires config → store
// → engine → curation pipeline → cleanup scheduler → the HTTP (C9) and MCP
// (C10) transports over that one shared core, then serves until signalled
// to stop (spec §2, §6.1; teacher shape from cmd/memento-web/main.go's
// config-then-store-then-engine-then-server wiring and signal-driven
// graceful shutdown).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Foundation42/entrained.ai-engram/internal/authrate"
	"github.com/Foundation42/entrained.ai-engram/internal/config"
	"github.com/Foundation42/entrained.ai-engram/internal/curation"
	"github.com/Foundation42/entrained.ai-engram/internal/curator"
	"github.com/Foundation42/entrained.ai-engram/internal/embedder"
	"github.com/Foundation42/entrained.ai-engram/internal/engine"
	"github.com/Foundation42/entrained.ai-engram/internal/httpapi"
	"github.com/Foundation42/entrained.ai-engram/internal/mcpserver"
	"github.com/Foundation42/entrained.ai-engram/internal/scheduler"
	"github.com/Foundation42/entrained.ai-engram/internal/store/redisrecord"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("engram-server: failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordStore, err := redisrecord.New(ctx, redisrecord.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("engram-server: failed to connect to the record store: %v", err)
	}
	defer recordStore.Close()

	embedderClient, err := embedder.New(cfg.Embedder, cfg.Vector.Dimension)
	if err != nil {
		log.Fatalf("engram-server: failed to build embedder: %v", err)
	}
	curatorClient, err := curator.New(cfg.Curator)
	if err != nil {
		log.Fatalf("engram-server: failed to build curator: %v", err)
	}

	eng := engine.New(recordStore, embedderClient)
	pipeline := curation.New(curatorClient, curator.NewTemplate(""), eng, embedderClient)

	journal, err := scheduler.OpenJournal(cfg.Cleanup.JournalDBPath)
	if err != nil {
		log.Fatalf("engram-server: failed to open cleanup journal: %v", err)
	}
	defer journal.Close()

	sched, err := scheduler.New(recordStore, journal, scheduler.Config{
		DailyCron:   cfg.Cleanup.DailyCron,
		WeeklyCron:  cfg.Cleanup.WeeklyCron,
		MonthlyCron: cfg.Cleanup.MonthlyCron,
	}, eng)
	if err != nil {
		log.Fatalf("engram-server: failed to build cleanup scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	httpServer := httpapi.New(httpapi.Config{
		Addr:            cfg.Server.Addr,
		APIKey:          cfg.Security.APIKey,
		AuthEnabled:     cfg.Security.AuthEnabled,
		AdminUser:       cfg.Security.AdminUser,
		AdminPassword:   cfg.Security.AdminPassword,
		CommentMaxBytes: cfg.Security.CommentMaxBytes,
		RequestMaxBytes: cfg.Security.RequestMaxBytes,
		RateLimit: authrate.Config{
			PerMinute:     cfg.RateLimit.PerMinute,
			PerHour:       cfg.RateLimit.PerHour,
			BlockDuration: time.Duration(cfg.RateLimit.BlockSeconds) * time.Second,
		},
	}, eng, pipeline, embedderClient, sched)

	// Mount the C10 MCP transport alongside C9's routes on the same listener,
	// as spec §6.1 requires ("/mcp/" listed in the same HTTP surface table),
	// without internal/httpapi importing internal/mcpserver (see
	// httpapi.Server.Mount's doc comment).
	mcpServer := mcpserver.New(eng, embedderClient, mcpserver.WithDefaultAgentID(os.Getenv("ENGRAM_MCP_DEFAULT_AGENT_ID")))
	httpServer.Mount("/mcp/", mcpServer)

	addr, err := httpServer.Start(ctx)
	if err != nil {
		log.Fatalf("engram-server: failed to start HTTP/MCP server: %v", err)
	}
	log.Printf("engram-server: listening on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("engram-server: shutting down gracefully...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
