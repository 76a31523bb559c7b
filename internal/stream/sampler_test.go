package stream

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mesen-mcp/backend/internal/config"
	"github.com/mesen-mcp/backend/internal/core"
)

// fakeCore is an in-memory debugger core the tests mutate between ticks.
type fakeCore struct {
	mu     sync.Mutex
	down   bool
	trace  []core.TraceEntry
	events []core.DebugEvent
	mem    map[core.MemoryType][]byte
}

func newFakeCore() *fakeCore {
	return &fakeCore{mem: make(map[core.MemoryType][]byte)}
}

func (f *fakeCore) addTrace(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.trace = append(f.trace, core.TraceEntry{PC: uint32(len(f.trace)), Text: "NOP"})
	}
}

func (f *fakeCore) resetTrace(keep int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = f.trace[:keep]
}

func (f *fakeCore) poke(mt core.MemoryType, addr uint32, b byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mem[mt][addr] = b
}

func (f *fakeCore) DebuggerRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.down
}

func (f *fakeCore) EmulationRunning() bool { return true }
func (f *fakeCore) EmulationPaused() bool  { return false }
func (f *fakeCore) ExecutionStopped() bool { return false }
func (f *fakeCore) Version() string        { return "test" }

func (f *fakeCore) TraceLen() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.trace)), nil
}

func (f *fakeCore) TraceSlice(offset uint64, count int) ([]core.TraceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := offset + uint64(count)
	if end > uint64(len(f.trace)) {
		end = uint64(len(f.trace))
	}
	out := make([]core.TraceEntry, end-offset)
	copy(out, f.trace[offset:end])
	return out, nil
}

func (f *fakeCore) EventsLen() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.events)), nil
}

func (f *fakeCore) EventsSlice(offset uint64, count int) ([]core.DebugEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := offset + uint64(count)
	if end > uint64(len(f.events)) {
		end = uint64(len(f.events))
	}
	out := make([]core.DebugEvent, end-offset)
	copy(out, f.events[offset:end])
	return out, nil
}

func (f *fakeCore) MemorySize(mt core.MemoryType) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.mem[mt]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownRegion, mt)
	}
	return uint32(len(data)), nil
}

func (f *fakeCore) ReadMemory(mt core.MemoryType, addr uint32, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.mem[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownRegion, mt)
	}
	out := make([]byte, length)
	copy(out, data[addr:uint64(addr)+uint64(length)])
	return out, nil
}

func (f *fakeCore) WriteMemory(mt core.MemoryType, addr uint32, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.mem[mt][addr:], data)
	return nil
}

func (f *fakeCore) CPUState(cpu core.CPUType) (core.CPUState, error) {
	return core.CPUState{CPU: cpu}, nil
}

func (f *fakeCore) PPUState(cpu core.CPUType) (core.PPUState, error) {
	return core.PPUState{CPU: cpu}, nil
}

func (f *fakeCore) Disassemble(addr uint32, count int) ([]core.DisasmLine, error) {
	return nil, nil
}

func (f *fakeCore) Pause() error                                { return nil }
func (f *fakeCore) Resume() error                               { return nil }
func (f *fakeCore) ResumeExecution() error                      { return nil }
func (f *fakeCore) Step(core.CPUType, core.StepType, int) error { return nil }
func (f *fakeCore) SetBreakpoints([]core.Breakpoint) error      { return nil }

func testStreamingConfig() config.StreamingConfig {
	return config.StreamingConfig{
		PollingRateHz:          10,
		MaxQueueSize:           1000,
		MaxTraceLinesPerSecond: 500, // 50 lines per tick
		MaxEventsPerSecond:     100,
		MaxMemoryChangesPerSec: 50,
		MaxBatchPerPoll:        500,
		MaxWatchLength:         256,
		BackoffThreshold:       3,
		BackoffFactor:          2,
		BackoffMaxMultiplier:   8,
	}
}

func newTestSampler(t *testing.T, fake *fakeCore) *Sampler {
	t.Helper()
	guard := core.NewGuard(fake, time.Second)
	return New(testStreamingConfig(), guard)
}

// ticks are driven directly with a widely spaced clock so per-feed backoff
// never makes a feed miss a test tick.
func tickTimes(n int) []time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Minute)
	}
	return out
}

func TestMemoryDeltaEmittedOnChange(t *testing.T) {
	fake := newFakeCore()
	fake.mem[core.SnesWorkRam] = make([]byte, 0x200)
	fake.mem[core.SnesWorkRam][0x100] = 100

	s := newTestSampler(t, fake)
	if err := s.SubscribeMemory(core.SnesWorkRam, 0x100, 16); err != nil {
		t.Fatalf("SubscribeMemory: %v", err)
	}

	ts := tickTimes(4)
	s.tick(ts[0]) // baseline
	if got := s.GetChanges(10); len(got) != 0 {
		t.Fatalf("baseline tick emitted %d records, want 0", len(got))
	}

	fake.poke(core.SnesWorkRam, 0x100, 95)
	s.tick(ts[1])

	got := s.GetChanges(10)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	d := got[0].Memory
	if d == nil {
		t.Fatal("record has no memory delta")
	}
	if d.OldData[0] != 100 || d.NewData[0] != 95 {
		t.Errorf("delta bytes = %d→%d, want 100→95", d.OldData[0], d.NewData[0])
	}
	if d.MemoryType != core.SnesWorkRam || d.Address != 0x100 || d.Length != 16 {
		t.Errorf("delta target = %s/0x%X/%d", d.MemoryType, d.Address, d.Length)
	}

	// unchanged reads never emit
	s.tick(ts[2])
	s.tick(ts[3])
	if got := s.GetChanges(10); len(got) != 0 {
		t.Errorf("unchanged ticks emitted %d records, want 0", len(got))
	}
}

func TestTracePartialAdmission(t *testing.T) {
	fake := newFakeCore()
	fake.addTrace(200)

	s := newTestSampler(t, fake)
	if err := s.SubscribeTrace(0); err != nil {
		t.Fatalf("SubscribeTrace: %v", err)
	}

	var all []core.TraceEntry
	var lastSeq uint64
	for _, now := range tickTimes(10) {
		s.tick(now)
		for _, r := range s.GetChanges(1000) {
			if r.Seq <= lastSeq {
				t.Fatalf("seq not increasing: %d after %d", r.Seq, lastSeq)
			}
			lastSeq = r.Seq
			all = append(all, r.Trace.Entries...)
		}
		if len(all) >= 200 {
			break
		}
	}

	if len(all) != 200 {
		t.Fatalf("delivered %d entries, want 200", len(all))
	}
	for i, e := range all {
		if e.PC != uint32(i) {
			t.Fatalf("entry %d has PC %d: lost or duplicated lines", i, e.PC)
		}
	}

	// budget is 50/tick, so the first tick admits exactly 50
	st := s.Stats()
	if st.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4 batches of 50", st.TotalRecords)
	}
}

func TestTraceDiscontinuityResetsCursor(t *testing.T) {
	fake := newFakeCore()
	fake.addTrace(40)

	s := newTestSampler(t, fake)
	if err := s.SubscribeTrace(0); err != nil {
		t.Fatalf("SubscribeTrace: %v", err)
	}

	ts := tickTimes(3)
	s.tick(ts[0])
	if got := s.GetChanges(1000); len(got) != 1 || len(got[0].Trace.Entries) != 40 {
		t.Fatalf("initial tick: got %v", got)
	}

	// core reset truncates the history below the cursor
	fake.resetTrace(10)
	s.tick(ts[1])
	if got := s.GetChanges(1000); len(got) != 0 {
		t.Fatalf("discontinuity tick emitted %d records, want 0 (no backfill)", len(got))
	}

	// next tick re-reads from offset zero
	s.tick(ts[2])
	got := s.GetChanges(1000)
	if len(got) != 1 || len(got[0].Trace.Entries) != 10 {
		t.Fatalf("post-reset tick: got %v", got)
	}
	if got[0].Trace.Entries[0].PC != 0 {
		t.Errorf("post-reset delta starts at PC %d, want 0", got[0].Trace.Entries[0].PC)
	}
}

func TestResubscribeEstablishesFreshBaseline(t *testing.T) {
	fake := newFakeCore()
	fake.mem[core.NesWorkRam] = make([]byte, 0x100)
	fake.mem[core.NesWorkRam][0x40] = 1

	s := newTestSampler(t, fake)
	if err := s.SubscribeMemory(core.NesWorkRam, 0x40, 4); err != nil {
		t.Fatalf("SubscribeMemory: %v", err)
	}

	ts := tickTimes(4)
	s.tick(ts[0]) // baseline = 1

	fake.poke(core.NesWorkRam, 0x40, 2)
	if n := s.UnsubscribeMemory(0x40); n != 1 {
		t.Fatalf("UnsubscribeMemory removed %d feeds, want 1", n)
	}
	if subs := s.Stats().Subscriptions; len(subs) != 0 {
		t.Fatalf("subscriptions after unsubscribe = %v", subs)
	}

	if err := s.SubscribeMemory(core.NesWorkRam, 0x40, 4); err != nil {
		t.Fatalf("re-SubscribeMemory: %v", err)
	}
	s.tick(ts[1]) // fresh baseline = 2, must not diff against the old snapshot
	if got := s.GetChanges(10); len(got) != 0 {
		t.Fatalf("first tick after resubscribe emitted %d records, want 0", len(got))
	}

	fake.poke(core.NesWorkRam, 0x40, 3)
	s.tick(ts[2])
	got := s.GetChanges(10)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if d := got[0].Memory; d.OldData[0] != 2 || d.NewData[0] != 3 {
		t.Errorf("delta bytes = %d→%d, want 2→3", d.OldData[0], d.NewData[0])
	}
}

func TestUnsubscribeMemoryRemovesAllRegionsAtAddress(t *testing.T) {
	fake := newFakeCore()
	fake.mem[core.SnesWorkRam] = make([]byte, 0x200)
	fake.mem[core.SnesVideoRam] = make([]byte, 0x200)

	s := newTestSampler(t, fake)
	if err := s.SubscribeMemory(core.SnesWorkRam, 0x80, 8); err != nil {
		t.Fatal(err)
	}
	if err := s.SubscribeMemory(core.SnesVideoRam, 0x80, 8); err != nil {
		t.Fatal(err)
	}

	if n := s.UnsubscribeMemory(0x80); n != 2 {
		t.Errorf("UnsubscribeMemory removed %d feeds, want 2", n)
	}
	if n := s.UnsubscribeMemory(0x80); n != 0 {
		t.Errorf("repeat UnsubscribeMemory removed %d feeds, want 0", n)
	}
}

func TestSubscribeMemoryValidation(t *testing.T) {
	fake := newFakeCore()
	fake.mem[core.SnesWorkRam] = make([]byte, 0x100)
	s := newTestSampler(t, fake)

	if err := s.SubscribeMemory(core.SnesWorkRam, 0, 0); !errors.Is(err, core.ErrInvalidParam) {
		t.Errorf("length 0: err = %v, want ErrInvalidParam", err)
	}
	if err := s.SubscribeMemory(core.SnesWorkRam, 0, 300); !errors.Is(err, core.ErrInvalidParam) {
		t.Errorf("length 300: err = %v, want ErrInvalidParam", err)
	}
	if err := s.SubscribeMemory(core.SnesWorkRam, 0xF8, 16); !errors.Is(err, core.ErrOutOfBounds) {
		t.Errorf("range past end: err = %v, want ErrOutOfBounds", err)
	}
	if err := s.SubscribeMemory(core.SnesWorkRam, 0xF8, 8); err != nil {
		t.Errorf("range at end: err = %v, want nil", err)
	}
}

func TestCoreUnavailableSkipsFeedQuietly(t *testing.T) {
	fake := newFakeCore()
	fake.addTrace(10)

	s := newTestSampler(t, fake)
	if err := s.SubscribeTrace(0); err != nil {
		t.Fatal(err)
	}

	fake.mu.Lock()
	fake.down = true
	fake.mu.Unlock()

	ts := tickTimes(2)
	s.tick(ts[0])
	if got := s.GetChanges(10); len(got) != 0 {
		t.Fatalf("unavailable core emitted %d records", len(got))
	}

	fake.mu.Lock()
	fake.down = false
	fake.mu.Unlock()

	s.tick(ts[1])
	if got := s.GetChanges(10); len(got) != 1 {
		t.Fatalf("recovered core emitted %d records, want 1", len(got))
	}
}

func TestStartStopIdempotent(t *testing.T) {
	fake := newFakeCore()
	s := newTestSampler(t, fake)

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("sampler not running after Start")
	}
	if err := s.SubscribeEvents(); err != nil {
		t.Fatal(err)
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("sampler still running after Stop")
	}

	st := s.Stats()
	if len(st.Subscriptions) != 0 {
		t.Errorf("subscriptions after stop = %v, want none", st.Subscriptions)
	}
	if st.QueueSize != 0 {
		t.Errorf("queue size after stop = %d, want 0", st.QueueSize)
	}
}

func TestNotifyTapSeesEnqueuedRecords(t *testing.T) {
	fake := newFakeCore()
	fake.addTrace(5)

	s := newTestSampler(t, fake)
	var tapped []Record
	s.SetNotify(func(rs []Record) { tapped = append(tapped, rs...) })
	if err := s.SubscribeTrace(0); err != nil {
		t.Fatal(err)
	}

	s.tick(tickTimes(1)[0])
	if len(tapped) != 1 {
		t.Fatalf("tap saw %d records, want 1", len(tapped))
	}
	if tapped[0].Seq == 0 {
		t.Error("tapped record has no sequence number assigned")
	}
	// the tap does not drain the queue
	if got := s.GetChanges(10); len(got) != 1 {
		t.Errorf("queue had %d records after tap, want 1", len(got))
	}
}
