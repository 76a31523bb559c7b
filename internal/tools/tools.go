// Package tools implements the MCP tool surface: debugger queries, control
// operations, and the streaming feed management calls. Every tool is a
// struct with a Definition and a Handle method registered on the mcp-go
// server; control and query tools reach the core through the shared guard.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mesen-mcp/backend/internal/core"
	"github.com/mesen-mcp/backend/internal/health"
	"github.com/mesen-mcp/backend/internal/stream"
)

// Deps carries the shared collaborators injected into every tool.
type Deps struct {
	Guard   *core.Guard
	Sampler *stream.Sampler
	Health  *health.Checker
	Version string
}

type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Register adds the full tool set to the server.
func Register(s *server.MCPServer, d Deps) {
	for _, t := range []tool{
		NewStatusTool(d),
		NewCPUStateTool(d),
		NewPPUStateTool(d),
		NewMemoryReadTool(d),
		NewMemoryWriteTool(d),
		NewDisassemblyTool(d),
		NewTraceTailTool(d),
		NewDebugEventsTool(d),
		NewSetBreakpointsTool(d),
		NewStepTool(d),
		NewResumeTool(d),
		NewPauseTool(d),
		NewStartStreamingTool(d),
		NewStopStreamingTool(d),
		NewSubscribeTraceTool(d),
		NewSubscribeEventsTool(d),
		NewSubscribeMemoryTool(d),
		NewUnsubscribeMemoryTool(d),
		NewGetChangesTool(d),
		NewStreamingStatusTool(d),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// jsonResult renders v as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a failed operation to the client without failing the
// protocol call itself.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// clamp bounds a count parameter to [1, max], mapping zero to def.
func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// parseAddress converts a numeric tool argument to a memory address.
func parseAddress(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: negative address %d", core.ErrInvalidParam, v)
	}
	return uint32(v), nil
}
