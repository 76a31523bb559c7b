package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

const maxHistoryFetch = 1000

// TraceTailTool returns the most recent lines of the execution trace.
type TraceTailTool struct {
	d Deps
}

func NewTraceTailTool(d Deps) *TraceTailTool { return &TraceTailTool{d: d} }

func (t *TraceTailTool) Definition() mcp.Tool {
	return mcp.NewTool("get_trace_tail",
		mcp.WithDescription("Fetch the most recent execution trace lines."),
		mcp.WithNumber("count",
			mcp.Description("Lines to return, 1-1000. Defaults to 100."),
		),
	)
}

func (t *TraceTailTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := clamp(req.GetInt("count", 100), 100, maxHistoryFetch)

	var (
		total   uint64
		entries []core.TraceEntry
	)
	err := t.d.Guard.Do(func(c core.Core) error {
		var err error
		total, err = c.TraceLen()
		if err != nil {
			return err
		}
		offset := uint64(0)
		if total > uint64(count) {
			offset = total - uint64(count)
		}
		entries, err = c.TraceSlice(offset, count)
		return err
	})
	if err != nil {
		return toolError(err)
	}

	return jsonResult(struct {
		TotalLines uint64            `json:"total_lines"`
		Entries    []core.TraceEntry `json:"entries"`
	}{total, entries})
}

// DebugEventsTool returns the most recent debug events.
type DebugEventsTool struct {
	d Deps
}

func NewDebugEventsTool(d Deps) *DebugEventsTool { return &DebugEventsTool{d: d} }

func (t *DebugEventsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_debug_events",
		mcp.WithDescription("Fetch the most recent debug events (breakpoints, NMI/IRQ, DMA)."),
		mcp.WithNumber("count",
			mcp.Description("Events to return, 1-1000. Defaults to 100."),
		),
	)
}

func (t *DebugEventsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count := clamp(req.GetInt("count", 100), 100, maxHistoryFetch)

	var (
		total  uint64
		events []core.DebugEvent
	)
	err := t.d.Guard.Do(func(c core.Core) error {
		var err error
		total, err = c.EventsLen()
		if err != nil {
			return err
		}
		offset := uint64(0)
		if total > uint64(count) {
			offset = total - uint64(count)
		}
		events, err = c.EventsSlice(offset, count)
		return err
	})
	if err != nil {
		return toolError(err)
	}

	return jsonResult(struct {
		TotalEvents uint64            `json:"total_events"`
		Events      []core.DebugEvent `json:"events"`
	}{total, events})
}
