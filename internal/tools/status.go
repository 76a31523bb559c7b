package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
	"github.com/mesen-mcp/backend/internal/health"
)

// StatusTool reports core liveness, version, and the emulator process.
type StatusTool struct {
	d Deps
}

func NewStatusTool(d Deps) *StatusTool { return &StatusTool{d: d} }

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("debugger_status",
		mcp.WithDescription("Report whether the debugger core is reachable, emulation state, core version, and the emulator process if found."),
	)
}

func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out struct {
		DebuggerRunning  bool                `json:"debugger_running"`
		EmulationRunning bool                `json:"emulation_running"`
		EmulationPaused  bool                `json:"emulation_paused"`
		ExecutionStopped bool                `json:"execution_stopped"`
		CoreVersion      string              `json:"core_version"`
		ServerVersion    string              `json:"server_version"`
		Process          *health.ProcessInfo `json:"process,omitempty"`
	}
	out.ServerVersion = t.d.Version

	err := t.d.Guard.Do(func(c core.Core) error {
		out.DebuggerRunning = c.DebuggerRunning()
		out.EmulationRunning = c.EmulationRunning()
		out.EmulationPaused = c.EmulationPaused()
		out.ExecutionStopped = c.ExecutionStopped()
		out.CoreVersion = c.Version()
		return nil
	})
	if err != nil {
		return toolError(err)
	}

	if t.d.Health != nil {
		if p, ok := t.d.Health.Find(); ok {
			out.Process = &p
		}
	}
	return jsonResult(out)
}
