package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

// CPUStateTool returns a register snapshot for the selected CPU.
type CPUStateTool struct {
	d Deps
}

func NewCPUStateTool(d Deps) *CPUStateTool { return &CPUStateTool{d: d} }

func (t *CPUStateTool) Definition() mcp.Tool {
	return mcp.NewTool("get_cpu_state",
		mcp.WithDescription("Read the current CPU registers, flags, and cycle count."),
		mcp.WithString("cpu_type",
			mcp.Description("CPU to inspect: Snes, Nes, or Gameboy. Defaults to the main CPU."),
		),
	)
}

func (t *CPUStateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cpu, err := core.ParseCPUType(req.GetString("cpu_type", ""))
	if err != nil {
		return toolError(err)
	}

	var state core.CPUState
	err = t.d.Guard.Do(func(c core.Core) error {
		var err error
		state, err = c.CPUState(cpu)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(state)
}

// PPUStateTool returns the video chip position counters.
type PPUStateTool struct {
	d Deps
}

func NewPPUStateTool(d Deps) *PPUStateTool { return &PPUStateTool{d: d} }

func (t *PPUStateTool) Definition() mcp.Tool {
	return mcp.NewTool("get_ppu_state",
		mcp.WithDescription("Read the current PPU scanline, cycle, and frame count."),
		mcp.WithString("cpu_type",
			mcp.Description("Console whose PPU to inspect. Defaults to the main console."),
		),
	)
}

func (t *PPUStateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cpu, err := core.ParseCPUType(req.GetString("cpu_type", ""))
	if err != nil {
		return toolError(err)
	}

	var state core.PPUState
	err = t.d.Guard.Do(func(c core.Core) error {
		var err error
		state, err = c.PPUState(cpu)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(state)
}
