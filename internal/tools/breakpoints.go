package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

// SetBreakpointsTool replaces the core's breakpoint list.
type SetBreakpointsTool struct {
	d Deps
}

func NewSetBreakpointsTool(d Deps) *SetBreakpointsTool { return &SetBreakpointsTool{d: d} }

func (t *SetBreakpointsTool) Definition() mcp.Tool {
	return mcp.NewTool("set_breakpoints",
		mcp.WithDescription("Replace the active breakpoint list. Pass an empty array to clear all breakpoints."),
		mcp.WithArray("breakpoints", mcp.Required(),
			mcp.Description(`Breakpoint objects: {"id", "cpu_type", "memory_type", "type" (Execute/Read/Write/Forbid), "address", "end_address", "enabled", "condition"}.`),
		),
	)
}

// breakpointArg mirrors core.Breakpoint with string enums left unvalidated
// so parse errors can name the offending entry.
type breakpointArg struct {
	ID         int    `json:"id"`
	CPUType    string `json:"cpu_type"`
	MemoryType string `json:"memory_type"`
	Type       string `json:"type"`
	Address    uint32 `json:"address"`
	EndAddress uint32 `json:"end_address"`
	Enabled    *bool  `json:"enabled"`
	Condition  string `json:"condition"`
}

func (t *SetBreakpointsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetArguments()["breakpoints"]
	if raw == nil {
		return toolError(fmt.Errorf("%w: breakpoints is required", core.ErrInvalidParam))
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return toolError(fmt.Errorf("%w: breakpoints: %v", core.ErrInvalidParam, err))
	}
	var args []breakpointArg
	if err := json.Unmarshal(encoded, &args); err != nil {
		return toolError(fmt.Errorf("%w: breakpoints must be an array of objects", core.ErrInvalidParam))
	}

	bps := make([]core.Breakpoint, 0, len(args))
	for i, a := range args {
		bp, err := parseBreakpoint(a)
		if err != nil {
			return toolError(fmt.Errorf("breakpoint %d: %w", i, err))
		}
		bps = append(bps, bp)
	}

	err = t.d.Guard.Do(func(c core.Core) error {
		return c.SetBreakpoints(bps)
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("installed %d breakpoints", len(bps))), nil
}

func parseBreakpoint(a breakpointArg) (core.Breakpoint, error) {
	cpu, err := core.ParseCPUType(a.CPUType)
	if err != nil {
		return core.Breakpoint{}, err
	}
	mt, err := core.ParseMemoryType(a.MemoryType)
	if err != nil {
		return core.Breakpoint{}, err
	}
	bt, err := core.ParseBreakpointType(a.Type)
	if err != nil {
		return core.Breakpoint{}, err
	}
	end := a.EndAddress
	if end == 0 {
		end = a.Address
	}
	if end < a.Address {
		return core.Breakpoint{}, fmt.Errorf("%w: end_address 0x%X before address 0x%X", core.ErrInvalidParam, end, a.Address)
	}
	enabled := true
	if a.Enabled != nil {
		enabled = *a.Enabled
	}
	return core.Breakpoint{
		ID:         a.ID,
		CPU:        cpu,
		MemoryType: mt,
		Type:       bt,
		StartAddr:  a.Address,
		EndAddr:    end,
		Enabled:    enabled,
		Condition:  a.Condition,
	}, nil
}
