package core

import "fmt"

// MemoryType identifies a memory region in the emulated machine. Values
// mirror the core's region table; only the regions the bridge exposes are
// listed here.
type MemoryType string

const (
	// SNES regions
	SnesMemory    MemoryType = "SnesMemory"
	SnesPrgRom    MemoryType = "SnesPrgRom"
	SnesWorkRam   MemoryType = "SnesWorkRam"
	SnesSaveRam   MemoryType = "SnesSaveRam"
	SnesVideoRam  MemoryType = "SnesVideoRam"
	SnesSpriteRam MemoryType = "SnesSpriteRam"
	SnesCgRam     MemoryType = "SnesCgRam"

	// NES regions
	NesMemory      MemoryType = "NesMemory"
	NesPrgRom      MemoryType = "NesPrgRom"
	NesInternalRam MemoryType = "NesInternalRam"
	NesWorkRam     MemoryType = "NesWorkRam"
	NesSaveRam     MemoryType = "NesSaveRam"
	NesChrRom      MemoryType = "NesChrRom"
	NesChrRam      MemoryType = "NesChrRam"
	NesPaletteRam  MemoryType = "NesPaletteRam"

	// Gameboy regions
	GbMemory   MemoryType = "GbMemory"
	GbPrgRom   MemoryType = "GbPrgRom"
	GbWorkRam  MemoryType = "GbWorkRam"
	GbCartRam  MemoryType = "GbCartRam"
	GbVideoRam MemoryType = "GbVideoRam"
)

var memoryTypes = map[MemoryType]bool{
	SnesMemory: true, SnesPrgRom: true, SnesWorkRam: true, SnesSaveRam: true,
	SnesVideoRam: true, SnesSpriteRam: true, SnesCgRam: true,
	NesMemory: true, NesPrgRom: true, NesInternalRam: true, NesWorkRam: true,
	NesSaveRam: true, NesChrRom: true, NesChrRam: true, NesPaletteRam: true,
	GbMemory: true, GbPrgRom: true, GbWorkRam: true, GbCartRam: true,
	GbVideoRam: true,
}

// ParseMemoryType validates a region name from client input.
func ParseMemoryType(s string) (MemoryType, error) {
	mt := MemoryType(s)
	if !memoryTypes[mt] {
		return "", fmt.Errorf("%w: memory type %q", ErrUnknownRegion, s)
	}
	return mt, nil
}

// CPUType identifies which CPU of the machine a query targets.
type CPUType string

const (
	CPUSnes    CPUType = "Snes"
	CPUNes     CPUType = "Nes"
	CPUGameboy CPUType = "Gameboy"
)

// ParseCPUType validates a CPU name from client input. Empty input selects
// the machine's main CPU.
func ParseCPUType(s string) (CPUType, error) {
	switch CPUType(s) {
	case "":
		return CPUSnes, nil
	case CPUSnes, CPUNes, CPUGameboy:
		return CPUType(s), nil
	}
	return "", fmt.Errorf("%w: cpu type %q", ErrInvalidParam, s)
}

// StepType selects the granularity of a step command.
type StepType string

const (
	StepInstruction StepType = "Step"
	StepOver        StepType = "StepOver"
	StepOut         StepType = "StepOut"
	StepCPUCycle    StepType = "CpuCycleStep"
	StepPpu         StepType = "PpuStep"
	StepPpuScanline StepType = "PpuScanline"
	StepPpuFrame    StepType = "PpuFrame"
)

var stepTypes = map[StepType]bool{
	StepInstruction: true, StepOver: true, StepOut: true, StepCPUCycle: true,
	StepPpu: true, StepPpuScanline: true, StepPpuFrame: true,
}

// ParseStepType validates a step type from client input. Empty input means
// a single-instruction step.
func ParseStepType(s string) (StepType, error) {
	if s == "" {
		return StepInstruction, nil
	}
	st := StepType(s)
	if !stepTypes[st] {
		return "", fmt.Errorf("%w: step type %q", ErrInvalidParam, s)
	}
	return st, nil
}

// BreakpointType selects what kind of access triggers a breakpoint.
type BreakpointType string

const (
	BreakExecute BreakpointType = "Execute"
	BreakRead    BreakpointType = "Read"
	BreakWrite   BreakpointType = "Write"
	BreakForbid  BreakpointType = "Forbid"
)

// ParseBreakpointType validates a breakpoint type from client input.
func ParseBreakpointType(s string) (BreakpointType, error) {
	switch BreakpointType(s) {
	case "":
		return BreakExecute, nil
	case BreakExecute, BreakRead, BreakWrite, BreakForbid:
		return BreakpointType(s), nil
	}
	return "", fmt.Errorf("%w: breakpoint type %q", ErrInvalidParam, s)
}

// TraceEntry is one line of the core's append-only execution trace.
type TraceEntry struct {
	PC    uint32 `json:"pc"`
	Bytes []byte `json:"bytes"`
	Text  string `json:"text"`
}

// DebugEvent is one entry of the core's append-only debug event history.
// BreakpointID and DMAChannel are -1 when not applicable.
type DebugEvent struct {
	Type         string `json:"type"`
	PC           uint32 `json:"pc"`
	Scanline     int    `json:"scanline"`
	Cycle        int    `json:"cycle"`
	BreakpointID int    `json:"breakpoint_id"`
	DMAChannel   int    `json:"dma_channel"`
}

// CPUState is a console-agnostic register snapshot. Registers and Flags
// carry the console-specific names (a/x/y/sp for 6502-family, a..l for
// Gameboy) so one shape serves every CPU type.
type CPUState struct {
	CPU        CPUType           `json:"cpu_type"`
	PC         uint32            `json:"pc"`
	CycleCount uint64            `json:"cycle_count"`
	Registers  map[string]uint32 `json:"registers"`
	Flags      map[string]bool   `json:"flags"`
}

// PPUState is a simplified video-chip snapshot.
type PPUState struct {
	CPU        CPUType `json:"cpu_type"`
	Scanline   int     `json:"scanline"`
	Cycle      int     `json:"cycle"`
	FrameCount uint64  `json:"frame_count"`
}

// DisasmLine is one decoded instruction from the disassembler.
type DisasmLine struct {
	Address uint32 `json:"address"`
	Bytes   []byte `json:"bytes"`
	Text    string `json:"text"`
}

// Breakpoint describes one breakpoint to install on the core.
type Breakpoint struct {
	ID         int            `json:"id"`
	CPU        CPUType        `json:"cpu_type"`
	MemoryType MemoryType     `json:"memory_type"`
	Type       BreakpointType `json:"type"`
	StartAddr  uint32         `json:"address"`
	EndAddr    uint32         `json:"end_address"`
	Enabled    bool           `json:"enabled"`
	Condition  string         `json:"condition,omitempty"`
}
