package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
	"github.com/mesen-mcp/backend/internal/stream"
)

// StartStreamingTool launches the background sampler.
type StartStreamingTool struct {
	d Deps
}

func NewStartStreamingTool(d Deps) *StartStreamingTool { return &StartStreamingTool{d: d} }

func (t *StartStreamingTool) Definition() mcp.Tool {
	return mcp.NewTool("start_streaming",
		mcp.WithDescription("Start the background change sampler. Idempotent."),
	)
}

func (t *StartStreamingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.d.Sampler.Start()
	return mcp.NewToolResultText("streaming started"), nil
}

// StopStreamingTool halts the sampler and discards all feed state.
type StopStreamingTool struct {
	d Deps
}

func NewStopStreamingTool(d Deps) *StopStreamingTool { return &StopStreamingTool{d: d} }

func (t *StopStreamingTool) Definition() mcp.Tool {
	return mcp.NewTool("stop_streaming",
		mcp.WithDescription("Stop the sampler, clearing all subscriptions and buffered changes. Idempotent."),
	)
}

func (t *StopStreamingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.d.Sampler.Stop()
	return mcp.NewToolResultText("streaming stopped"), nil
}

// SubscribeTraceTool enables the execution trace feed.
type SubscribeTraceTool struct {
	d Deps
}

func NewSubscribeTraceTool(d Deps) *SubscribeTraceTool { return &SubscribeTraceTool{d: d} }

func (t *SubscribeTraceTool) Definition() mcp.Tool {
	return mcp.NewTool("subscribe_trace",
		mcp.WithDescription("Subscribe to new execution trace lines. Re-subscribing replaces the line cap."),
		mcp.WithNumber("max_lines_per_poll",
			mcp.Description("Upper bound on trace lines per poll. Defaults to the server's batch cap."),
		),
	)
}

func (t *SubscribeTraceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.d.Sampler.SubscribeTrace(req.GetInt("max_lines_per_poll", 0)); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText("trace feed subscribed"), nil
}

// SubscribeEventsTool enables the debug event feed.
type SubscribeEventsTool struct {
	d Deps
}

func NewSubscribeEventsTool(d Deps) *SubscribeEventsTool { return &SubscribeEventsTool{d: d} }

func (t *SubscribeEventsTool) Definition() mcp.Tool {
	return mcp.NewTool("subscribe_events",
		mcp.WithDescription("Subscribe to new debug events."),
	)
}

func (t *SubscribeEventsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.d.Sampler.SubscribeEvents(); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText("events feed subscribed"), nil
}

// SubscribeMemoryTool adds a watch on a memory range.
type SubscribeMemoryTool struct {
	d Deps
}

func NewSubscribeMemoryTool(d Deps) *SubscribeMemoryTool { return &SubscribeMemoryTool{d: d} }

func (t *SubscribeMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("subscribe_memory",
		mcp.WithDescription("Watch a memory range for changes. Re-subscribing the same region+address resets its baseline."),
		mcp.WithString("memory_type", mcp.Required(),
			mcp.Description("Region name, e.g. SnesWorkRam."),
		),
		mcp.WithNumber("address", mcp.Required(),
			mcp.Description("Start address of the watched range."),
		),
		mcp.WithNumber("length",
			mcp.Description("Bytes to watch, 1-256. Defaults to 16."),
		),
	)
}

func (t *SubscribeMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	length := req.GetInt("length", 16)

	if err := t.d.Sampler.SubscribeMemory(mt, addr, length); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("watching %s 0x%X+%d", mt, addr, length)), nil
}

// UnsubscribeMemoryTool removes all watches at an address.
type UnsubscribeMemoryTool struct {
	d Deps
}

func NewUnsubscribeMemoryTool(d Deps) *UnsubscribeMemoryTool { return &UnsubscribeMemoryTool{d: d} }

func (t *UnsubscribeMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("unsubscribe_memory",
		mcp.WithDescription("Remove every memory watch at an address, across all regions."),
		mcp.WithNumber("address", mcp.Required(),
			mcp.Description("Watched address to remove."),
		),
	)
}

func (t *UnsubscribeMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawAddr, err := req.RequireInt("address")
	if err != nil {
		return toolError(err)
	}
	addr, err := parseAddress(rawAddr)
	if err != nil {
		return toolError(err)
	}
	n := t.d.Sampler.UnsubscribeMemory(addr)
	return mcp.NewToolResultText(fmt.Sprintf("removed %d watches at 0x%X", n, addr)), nil
}

// GetChangesTool drains buffered change records.
type GetChangesTool struct {
	d Deps
}

func NewGetChangesTool(d Deps) *GetChangesTool { return &GetChangesTool{d: d} }

func (t *GetChangesTool) Definition() mcp.Tool {
	return mcp.NewTool("get_changes",
		mcp.WithDescription("Drain buffered change records, oldest first. Gaps in seq indicate dropped records."),
		mcp.WithNumber("max_count",
			mcp.Description("Records to return, 1-1000. Defaults to 100."),
		),
	)
}

func (t *GetChangesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := t.d.Sampler.GetChanges(req.GetInt("max_count", 0))
	if records == nil {
		records = []stream.Record{}
	}
	return jsonResult(struct {
		Count   int             `json:"count"`
		Records []stream.Record `json:"records"`
	}{len(records), records})
}

// StreamingStatusTool reports the sampler state machine and statistics.
type StreamingStatusTool struct {
	d Deps
}

func NewStreamingStatusTool(d Deps) *StreamingStatusTool { return &StreamingStatusTool{d: d} }

func (t *StreamingStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_streaming_status",
		mcp.WithDescription("Report sampler state, totals, queue depth, per-feed backoff, and active subscriptions."),
	)
}

func (t *StreamingStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.d.Sampler.Stats())
}
