package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesen-mcp/backend/internal/core"
)

// PauseTool halts emulation.
type PauseTool struct {
	d Deps
}

func NewPauseTool(d Deps) *PauseTool { return &PauseTool{d: d} }

func (t *PauseTool) Definition() mcp.Tool {
	return mcp.NewTool("pause",
		mcp.WithDescription("Pause emulation."),
	)
}

func (t *PauseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.d.Guard.Do(func(c core.Core) error { return c.Pause() }); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText("paused"), nil
}

// ResumeTool resumes emulation after a pause or breakpoint stop.
type ResumeTool struct {
	d Deps
}

func NewResumeTool(d Deps) *ResumeTool { return &ResumeTool{d: d} }

func (t *ResumeTool) Definition() mcp.Tool {
	return mcp.NewTool("resume",
		mcp.WithDescription("Resume emulation after a pause or a debugger stop."),
	)
}

func (t *ResumeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := t.d.Guard.Do(func(c core.Core) error {
		if c.ExecutionStopped() {
			return c.ResumeExecution()
		}
		return c.Resume()
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText("resumed"), nil
}

// StepTool advances execution by a number of steps at a chosen granularity.
type StepTool struct {
	d Deps
}

func NewStepTool(d Deps) *StepTool { return &StepTool{d: d} }

func (t *StepTool) Definition() mcp.Tool {
	return mcp.NewTool("step",
		mcp.WithDescription("Step execution: instructions, CPU cycles, PPU scanlines, or frames."),
		mcp.WithString("cpu_type",
			mcp.Description("CPU to step. Defaults to the main CPU."),
		),
		mcp.WithString("step_type",
			mcp.Description("Step, StepOver, StepOut, CpuCycleStep, PpuStep, PpuScanline, or PpuFrame. Defaults to Step."),
		),
		mcp.WithNumber("count",
			mcp.Description("Steps to take, 1-1000. Defaults to 1."),
		),
	)
}

func (t *StepTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cpu, err := core.ParseCPUType(req.GetString("cpu_type", ""))
	if err != nil {
		return toolError(err)
	}
	st, err := core.ParseStepType(req.GetString("step_type", ""))
	if err != nil {
		return toolError(err)
	}
	count := clamp(req.GetInt("count", 1), 1, 1000)

	err = t.d.Guard.Do(func(c core.Core) error {
		return c.Step(cpu, st, count)
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(struct {
		CPU      core.CPUType  `json:"cpu_type"`
		StepType core.StepType `json:"step_type"`
		Count    int           `json:"count"`
	}{cpu, st, count})
}
