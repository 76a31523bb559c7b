// Package core defines the capability surface of the emulator's debugger
// core and the serialized access discipline for reaching it.
//
// The core itself lives in another process (or, in mock mode, in
// internal/mock). It has no concurrency guarantees of its own, so every
// caller, the background sampler and the synchronous control tools alike,
// goes through a single Guard with a bounded acquisition timeout.
package core

// Core is the abstract debugger capability consumed by the rest of the
// server. Trace and event histories are append-only from the caller's point
// of view except across a machine reset, which may truncate them; memory is
// mutable in place.
type Core interface {
	// Liveness
	DebuggerRunning() bool
	EmulationRunning() bool
	EmulationPaused() bool
	ExecutionStopped() bool
	Version() string

	// Trace history
	TraceLen() (uint64, error)
	TraceSlice(offset uint64, count int) ([]TraceEntry, error)

	// Debug event history
	EventsLen() (uint64, error)
	EventsSlice(offset uint64, count int) ([]DebugEvent, error)

	// Memory
	MemorySize(mt MemoryType) (uint32, error)
	ReadMemory(mt MemoryType, addr uint32, length int) ([]byte, error)
	WriteMemory(mt MemoryType, addr uint32, data []byte) error

	// State queries
	CPUState(cpu CPUType) (CPUState, error)
	PPUState(cpu CPUType) (PPUState, error)
	Disassemble(addr uint32, count int) ([]DisasmLine, error)

	// Control
	Pause() error
	Resume() error
	ResumeExecution() error
	Step(cpu CPUType, st StepType, count int) error
	SetBreakpoints(bps []Breakpoint) error
}
