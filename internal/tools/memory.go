package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

const maxReadLength = 4096

// MemoryReadTool reads a byte range from a named memory region.
type MemoryReadTool struct {
	d Deps
}

func NewMemoryReadTool(d Deps) *MemoryReadTool { return &MemoryReadTool{d: d} }

func (t *MemoryReadTool) Definition() mcp.Tool {
	return mcp.NewTool("get_memory_range",
		mcp.WithDescription("Read up to 4096 bytes from a memory region."),
		mcp.WithString("memory_type", mcp.Required(),
			mcp.Description("Region name, e.g. SnesWorkRam, NesInternalRam, GbWorkRam."),
		),
		mcp.WithNumber("address", mcp.Required(),
			mcp.Description("Start address within the region."),
		),
		mcp.WithNumber("length",
			mcp.Description("Bytes to read, 1-4096. Defaults to 256."),
		),
	)
}

func (t *MemoryReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mt, err := core.ParseMemoryType(req.GetString("memory_type", ""))
	if err != nil {
		return toolError(err)
	}
	rawAddr, err := req.RequireInt("address")
	if err != nil {
		return toolError(err)
	}
	addr, err := parseAddress(rawAddr)
	if err != nil {
		return toolError(err)
	}
	length := clamp(req.GetInt("length", 256), 256, maxReadLength)

	var data []byte
	err = t.d.Guard.Do(func(c core.Core) error {
		var err error
		data, err = c.ReadMemory(mt, addr, length)
		return err
	})
	if err != nil {
		return toolError(err)
	}

	return jsonResult(struct {
		MemoryType core.MemoryType `json:"memory_type"`
		Address    uint32          `json:"address"`
		Length     int             `json:"length"`
		Data       []byte          `json:"data"`
	}{mt, addr, len(data), data})
}

// MemoryWriteTool writes bytes into a memory region.
type MemoryWriteTool struct {
	d Deps
}

func NewMemoryWriteTool(d Deps) *MemoryWriteTool { return &MemoryWriteTool{d: d} }

func (t *MemoryWriteTool) Definition() mcp.Tool {
	return mcp.NewTool("set_memory",
		mcp.WithDescription("Write a sequence of byte values into a memory region."),
		mcp.WithString("memory_type", mcp.Required(),
			mcp.Description("Region name, e.g. SnesWorkRam."),
		),
		mcp.WithNumber("address", mcp.Required(),
			mcp.Description("Start address within the region."),
		),
		mcp.WithArray("values", mcp.Required(),
			mcp.Description("Byte values (0-255) to write, in order."),
		),
	)
}

func (t *MemoryWriteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mt, err := core.ParseMemoryType(req.GetString("memory_type", ""))
	if err != nil {
		return toolError(err)
	}
	rawAddr, err := req.RequireInt("address")
	if err != nil {
		return toolError(err)
	}
	addr, err := parseAddress(rawAddr)
	if err != nil {
		return toolError(err)
	}

	data, err := byteValues(req.GetArguments()["values"])
	if err != nil {
		return toolError(err)
	}

	err = t.d.Guard.Do(func(c core.Core) error {
		return c.WriteMemory(mt, addr, data)
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("wrote %d bytes to %s at 0x%X", len(data), mt, addr)), nil
}

// byteValues converts the raw JSON argument into a byte slice, rejecting
// values outside 0-255.
func byteValues(raw any) ([]byte, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: values is required", core.ErrInvalidParam)
	}
	var nums []json.Number
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: values: %v", core.ErrInvalidParam, err)
	}
	if err := json.Unmarshal(encoded, &nums); err != nil {
		return nil, fmt.Errorf("%w: values must be an array of numbers", core.ErrInvalidParam)
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("%w: values is empty", core.ErrInvalidParam)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		v, err := n.Int64()
		if err != nil || v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: value %s at index %d is not a byte", core.ErrInvalidParam, n, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}
