// Package mock provides a self-contained stand-in for a live emulator core
// so the server can run without an attached emulator. The machine executes a
// synthetic program: it appends trace lines, raises frame events, and
// mutates work RAM counters, which gives the streaming feeds realistic data.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mesen-mcp/backend/internal/core"
)

var opcodes = []struct {
	text string
	size int
}{
	{"LDA", 3}, {"STA", 3}, {"LDX", 2}, {"STX", 3}, {"ADC", 2},
	{"CMP", 2}, {"BNE", 2}, {"JSR", 3}, {"RTS", 1}, {"NOP", 1},
	{"INC", 3}, {"DEX", 1}, {"PHA", 1}, {"PLA", 1}, {"SEP", 2},
}

const (
	resetVector     = 0x8000
	cyclesPerStep   = 6
	stepsPerFrame   = 120
	scanlinesPerFrm = 262
	cyclesPerLine   = 341
)

type Machine struct {
	mu     sync.Mutex
	paused bool

	pc     uint32
	cycles uint64
	frame  uint64
	steps  uint64

	trace  []core.TraceEntry
	events []core.DebugEvent
	mem    map[core.MemoryType][]byte
	breaks []core.Breakpoint

	rng *rand.Rand
}

func NewMachine() *Machine {
	m := &Machine{
		pc:  resetVector,
		mem: make(map[core.MemoryType][]byte),
		rng: rand.New(rand.NewSource(1)),
	}
	m.mem[core.SnesWorkRam] = make([]byte, 0x20000)
	m.mem[core.SnesVideoRam] = make([]byte, 0x10000)
	m.mem[core.SnesSaveRam] = make([]byte, 0x8000)
	m.mem[core.SnesSpriteRam] = make([]byte, 0x220)
	m.mem[core.SnesCgRam] = make([]byte, 0x200)

	rom := make([]byte, 0x8000)
	m.rng.Read(rom)
	m.mem[core.SnesPrgRom] = rom
	return m
}

// Run drives the machine in real time until ctx is cancelled. While paused,
// ticks pass without executing.
func (m *Machine) Run(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			if !m.paused {
				m.advance(24)
			}
			m.mu.Unlock()
		}
	}
}

// Advance executes steps instructions regardless of pause state. Used by
// Step and by tests that need deterministic progress.
func (m *Machine) Advance(steps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(steps)
}

// advance must be called with mu held.
func (m *Machine) advance(steps int) {
	rom := m.mem[core.SnesPrgRom]
	work := m.mem[core.SnesWorkRam]
	for i := 0; i < steps; i++ {
		op := opcodes[int(rom[m.pc-resetVector])%len(opcodes)]
		raw := make([]byte, op.size)
		copy(raw, rom[m.pc-resetVector:])

		text := op.text
		if op.size > 1 {
			operand := uint32(raw[1])
			if op.size == 3 {
				operand |= uint32(raw[2]) << 8
			}
			text = fmt.Sprintf("%s $%04X", op.text, operand)
		}
		m.trace = append(m.trace, core.TraceEntry{PC: m.pc, Bytes: raw, Text: text})

		m.pc += uint32(op.size)
		if m.pc-resetVector >= uint32(len(rom))-4 {
			m.pc = resetVector
		}
		m.cycles += cyclesPerStep
		m.steps++

		if m.steps%stepsPerFrame == 0 {
			m.frame++
			m.events = append(m.events, core.DebugEvent{
				Type: "Nmi", PC: m.pc, Scanline: 241, Cycle: 2,
				BreakpointID: -1, DMAChannel: -1,
			})
			// frame counter visible to memory watches
			work[0] = byte(m.frame)
			work[1] = byte(m.frame >> 8)
			work[m.rng.Intn(0x100)+0x100] = byte(m.rng.Intn(256))
		}

		if bp, ok := m.breakpointAt(m.pc); ok {
			m.events = append(m.events, core.DebugEvent{
				Type: "Breakpoint", PC: m.pc,
				Scanline: m.scanline(), Cycle: m.dotCycle(),
				BreakpointID: bp.ID, DMAChannel: -1,
			})
			m.paused = true
			return
		}
	}
}

func (m *Machine) breakpointAt(pc uint32) (core.Breakpoint, bool) {
	for _, bp := range m.breaks {
		if bp.Enabled && bp.Type == core.BreakExecute && pc >= bp.StartAddr && pc <= bp.EndAddr {
			return bp, true
		}
	}
	return core.Breakpoint{}, false
}

// Reset clears the execution history and restarts the program. Feeds with
// cursors past the truncated history observe a discontinuity.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = nil
	m.events = nil
	m.pc = resetVector
	m.cycles = 0
	m.frame = 0
	m.steps = 0
}

func (m *Machine) scanline() int {
	return int(m.cycles/cyclesPerLine) % scanlinesPerFrm
}

func (m *Machine) dotCycle() int {
	return int(m.cycles % cyclesPerLine)
}

func (m *Machine) DebuggerRunning() bool  { return true }
func (m *Machine) EmulationRunning() bool { return true }

func (m *Machine) EmulationPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Machine) ExecutionStopped() bool { return m.EmulationPaused() }

func (m *Machine) Version() string { return "mock-2.1.0" }

func (m *Machine) TraceLen() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.trace)), nil
}

func (m *Machine) TraceSlice(offset uint64, count int) ([]core.TraceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset > uint64(len(m.trace)) {
		return nil, fmt.Errorf("%w: trace offset %d past length %d", core.ErrOutOfBounds, offset, len(m.trace))
	}
	end := offset + uint64(count)
	if end > uint64(len(m.trace)) {
		end = uint64(len(m.trace))
	}
	out := make([]core.TraceEntry, end-offset)
	copy(out, m.trace[offset:end])
	return out, nil
}

func (m *Machine) EventsLen() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.events)), nil
}

func (m *Machine) EventsSlice(offset uint64, count int) ([]core.DebugEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset > uint64(len(m.events)) {
		return nil, fmt.Errorf("%w: events offset %d past length %d", core.ErrOutOfBounds, offset, len(m.events))
	}
	end := offset + uint64(count)
	if end > uint64(len(m.events)) {
		end = uint64(len(m.events))
	}
	out := make([]core.DebugEvent, end-offset)
	copy(out, m.events[offset:end])
	return out, nil
}

func (m *Machine) region(mt core.MemoryType) ([]byte, error) {
	data, ok := m.mem[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownRegion, mt)
	}
	return data, nil
}

func (m *Machine) MemorySize(mt core.MemoryType) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.region(mt)
	if err != nil {
		return 0, err
	}
	return uint32(len(data)), nil
}

func (m *Machine) ReadMemory(mt core.MemoryType, addr uint32, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.region(mt)
	if err != nil {
		return nil, err
	}
	if uint64(addr)+uint64(length) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %s 0x%X+%d", core.ErrOutOfBounds, mt, addr, length)
	}
	out := make([]byte, length)
	copy(out, data[addr:])
	return out, nil
}

func (m *Machine) WriteMemory(mt core.MemoryType, addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	region, err := m.region(mt)
	if err != nil {
		return err
	}
	if uint64(addr)+uint64(len(data)) > uint64(len(region)) {
		return fmt.Errorf("%w: %s 0x%X+%d", core.ErrOutOfBounds, mt, addr, len(data))
	}
	copy(region[addr:], data)
	return nil
}

func (m *Machine) CPUState(cpu core.CPUType) (core.CPUState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.CPUState{
		CPU:        cpu,
		PC:         m.pc,
		CycleCount: m.cycles,
		Registers: map[string]uint32{
			"a":  uint32(m.cycles % 0x10000),
			"x":  uint32(m.steps % 0x100),
			"y":  uint32(m.frame % 0x100),
			"sp": 0x1FF,
		},
		Flags: map[string]bool{
			"n": m.cycles%3 == 0,
			"z": m.steps%7 == 0,
			"c": false,
			"v": false,
		},
	}, nil
}

func (m *Machine) PPUState(cpu core.CPUType) (core.PPUState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.PPUState{
		CPU:        cpu,
		Scanline:   m.scanline(),
		Cycle:      m.dotCycle(),
		FrameCount: m.frame,
	}, nil
}

func (m *Machine) Disassemble(addr uint32, count int) ([]core.DisasmLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rom := m.mem[core.SnesPrgRom]
	if addr < resetVector || addr >= resetVector+uint32(len(rom)) {
		return nil, fmt.Errorf("%w: 0x%X outside program memory", core.ErrOutOfBounds, addr)
	}
	out := make([]core.DisasmLine, 0, count)
	pc := addr
	for len(out) < count && pc-resetVector < uint32(len(rom))-4 {
		op := opcodes[int(rom[pc-resetVector])%len(opcodes)]
		raw := make([]byte, op.size)
		copy(raw, rom[pc-resetVector:])
		text := op.text
		if op.size > 1 {
			operand := uint32(raw[1])
			if op.size == 3 {
				operand |= uint32(raw[2]) << 8
			}
			text = fmt.Sprintf("%s $%04X", op.text, operand)
		}
		out = append(out, core.DisasmLine{Address: pc, Bytes: raw, Text: text})
		pc += uint32(op.size)
	}
	return out, nil
}

func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

func (m *Machine) ResumeExecution() error { return m.Resume() }

func (m *Machine) Step(cpu core.CPUType, st core.StepType, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := count
	switch st {
	case core.StepPpuScanline:
		steps = count * (stepsPerFrame / 4)
	case core.StepPpuFrame:
		steps = count * stepsPerFrame
	}
	m.advance(steps)
	m.paused = true
	return nil
}

func (m *Machine) SetBreakpoints(bps []core.Breakpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaks = append([]core.Breakpoint(nil), bps...)
	return nil
}
