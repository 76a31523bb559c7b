package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mesen-mcp/backend/internal/config"
	"github.com/mesen-mcp/backend/internal/core"
	"github.com/mesen-mcp/backend/internal/health"
	"github.com/mesen-mcp/backend/internal/mock"
	"github.com/mesen-mcp/backend/internal/statsview"
	"github.com/mesen-mcp/backend/internal/stream"
	"github.com/mesen-mcp/backend/internal/tools"
	"github.com/mesen-mcp/backend/internal/ws"
)

const version = "0.4.0"

func main() {
	mockMode := flag.Bool("mock", false, "Run against a built-in mock machine instead of a live emulator")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override HTTP server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No config at %s, using defaults", *configPath)
			cfg = config.Default()
		} else {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var target core.Core
	if *mockMode {
		log.Println("Starting in mock mode")
		machine := mock.NewMachine()
		go machine.Run(ctx)
		target = machine
	} else {
		log.Printf("Connecting to debugger core at %s", cfg.Core.Addr)
		remote, err := core.DialRemote(cfg.Core.Addr, cfg.Core.DialTimeout, cfg.Core.CallTimeout)
		if err != nil {
			log.Fatalf("Core connection failed: %v", err)
		}
		defer remote.Close()
		target = remote
	}

	guard := core.NewGuard(target, cfg.Core.LockTimeout)
	sampler := stream.New(cfg.Streaming, guard)
	checker := health.NewChecker(cfg.Core.ProcessHints)

	statusFn := func() ws.StatusPayload {
		payload := ws.StatusPayload{Stats: sampler.Stats()}
		if info, ok := checker.Find(); ok {
			payload.Process = &info
		}
		return payload
	}

	feed := ws.NewFeed(cfg.Server.FeedThrottle, cfg.Server.StatusInterval, 0, statusFn)
	sampler.SetNotify(feed.QueueRecords)

	httpServer := ws.NewServer(feed, sampler, statusFn, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	mux := http.NewServeMux()
	httpServer.SetupRoutes(mux)

	if statsview.Available() {
		statsview.Launch(os.Stderr)
	}

	go func() {
		if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	s := mcpserver.NewMCPServer(
		"mesen-debugger",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	tools.Register(s, tools.Deps{
		Guard:   guard,
		Sampler: sampler,
		Health:  checker,
		Version: version,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		sampler.Stop()
		feed.Stop()
		cancel()
		os.Exit(0)
	}()

	// stdout carries the MCP protocol; all logging stays on stderr.
	log.Println("MCP server ready on stdio")
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
