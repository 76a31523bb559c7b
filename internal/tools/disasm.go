package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

// DisassemblyTool decodes instructions starting at an address.
type DisassemblyTool struct {
	d Deps
}

func NewDisassemblyTool(d Deps) *DisassemblyTool { return &DisassemblyTool{d: d} }

func (t *DisassemblyTool) Definition() mcp.Tool {
	return mcp.NewTool("get_disassembly",
		mcp.WithDescription("Disassemble instructions starting at an address."),
		mcp.WithNumber("address", mcp.Required(),
			mcp.Description("Address of the first instruction."),
		),
		mcp.WithNumber("count",
			mcp.Description("Instructions to decode, 1-256. Defaults to 32."),
		),
	)
}

func (t *DisassemblyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawAddr, err := req.RequireInt("address")
	if err != nil {
		return toolError(err)
	}
	addr, err := parseAddress(rawAddr)
	if err != nil {
		return toolError(err)
	}
	count := clamp(req.GetInt("count", 32), 32, 256)

	var lines []core.DisasmLine
	err = t.d.Guard.Do(func(c core.Core) error {
		var err error
		lines, err = c.Disassemble(addr, count)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(struct {
		Address uint32            `json:"address"`
		Lines   []core.DisasmLine `json:"lines"`
	}{addr, lines})
}
