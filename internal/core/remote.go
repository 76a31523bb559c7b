package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Remote is a Core implementation that talks to an emulator-side bridge
// script over TCP. The protocol is one JSON object per line in each
// direction: a request carries "op" plus op-specific parameters, the
// response carries "ok" and either the result fields or "error".
//
// Calls are serialized on the connection and bounded by a per-call
// deadline. Liveness queries swallow transport errors and report false;
// the streaming engine treats an unreachable core as unavailable, not as a
// fault.
type Remote struct {
	mu      sync.Mutex
	conn    net.Conn
	rd      *bufio.Reader
	addr    string
	timeout time.Duration
}

// DialRemote connects to the emulator bridge at addr. callTimeout bounds
// every individual request/response exchange.
func DialRemote(addr string, dialTimeout, callTimeout time.Duration) (*Remote, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing core bridge %s: %w", addr, err)
	}
	return &Remote{
		conn:    conn,
		rd:      bufio.NewReader(conn),
		addr:    addr,
		timeout: callTimeout,
	}, nil
}

// Close tears down the bridge connection.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.Close()
}

type remoteResponse struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// call performs one request/response exchange. out may be nil for ops with
// no result payload.
func (r *Remote) call(op string, params map[string]any, out any) error {
	req := map[string]any{"op": op}
	for k, v := range params {
		req[k] = v
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", op, err)
	}
	payload = append(payload, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := time.Now().Add(r.timeout)
	if err := r.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := r.conn.Write(payload); err != nil {
		return fmt.Errorf("%s: writing request: %w", op, err)
	}

	line, err := r.rd.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}
	var resp remoteResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	if !resp.OK {
		return fmt.Errorf("%s: bridge error: %s", op, resp.Error)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%s: decoding result: %w", op, err)
		}
	}
	return nil
}

// boolQuery runs a liveness op, reporting false on any transport error.
func (r *Remote) boolQuery(op string) bool {
	var v struct {
		Value bool `json:"value"`
	}
	if err := r.call(op, nil, &v); err != nil {
		return false
	}
	return v.Value
}

func (r *Remote) DebuggerRunning() bool { return r.boolQuery("debugger_running") }

func (r *Remote) EmulationRunning() bool { return r.boolQuery("emulation_running") }

func (r *Remote) EmulationPaused() bool { return r.boolQuery("emulation_paused") }

func (r *Remote) ExecutionStopped() bool { return r.boolQuery("execution_stopped") }

func (r *Remote) Version() string {
	var v struct {
		Version string `json:"version"`
	}
	if err := r.call("version", nil, &v); err != nil {
		return ""
	}
	return v.Version
}

func (r *Remote) TraceLen() (uint64, error) {
	var v struct {
		Length uint64 `json:"length"`
	}
	if err := r.call("trace_len", nil, &v); err != nil {
		return 0, err
	}
	return v.Length, nil
}

func (r *Remote) TraceSlice(offset uint64, count int) ([]TraceEntry, error) {
	var v struct {
		Entries []TraceEntry `json:"entries"`
	}
	params := map[string]any{"offset": offset, "count": count}
	if err := r.call("trace_slice", params, &v); err != nil {
		return nil, err
	}
	return v.Entries, nil
}

func (r *Remote) EventsLen() (uint64, error) {
	var v struct {
		Length uint64 `json:"length"`
	}
	if err := r.call("events_len", nil, &v); err != nil {
		return 0, err
	}
	return v.Length, nil
}

func (r *Remote) EventsSlice(offset uint64, count int) ([]DebugEvent, error) {
	var v struct {
		Events []DebugEvent `json:"events"`
	}
	params := map[string]any{"offset": offset, "count": count}
	if err := r.call("events_slice", params, &v); err != nil {
		return nil, err
	}
	return v.Events, nil
}

func (r *Remote) MemorySize(mt MemoryType) (uint32, error) {
	var v struct {
		Size uint32 `json:"size"`
	}
	if err := r.call("memory_size", map[string]any{"memory_type": mt}, &v); err != nil {
		return 0, err
	}
	return v.Size, nil
}

func (r *Remote) ReadMemory(mt MemoryType, addr uint32, length int) ([]byte, error) {
	var v struct {
		Data []byte `json:"data"`
	}
	params := map[string]any{"memory_type": mt, "address": addr, "length": length}
	if err := r.call("read_memory", params, &v); err != nil {
		return nil, err
	}
	return v.Data, nil
}

func (r *Remote) WriteMemory(mt MemoryType, addr uint32, data []byte) error {
	params := map[string]any{"memory_type": mt, "address": addr, "data": data}
	return r.call("write_memory", params, nil)
}

func (r *Remote) CPUState(cpu CPUType) (CPUState, error) {
	var v CPUState
	if err := r.call("cpu_state", map[string]any{"cpu_type": cpu}, &v); err != nil {
		return CPUState{}, err
	}
	return v, nil
}

func (r *Remote) PPUState(cpu CPUType) (PPUState, error) {
	var v PPUState
	if err := r.call("ppu_state", map[string]any{"cpu_type": cpu}, &v); err != nil {
		return PPUState{}, err
	}
	return v, nil
}

func (r *Remote) Disassemble(addr uint32, count int) ([]DisasmLine, error) {
	var v struct {
		Lines []DisasmLine `json:"lines"`
	}
	params := map[string]any{"address": addr, "count": count}
	if err := r.call("disassemble", params, &v); err != nil {
		return nil, err
	}
	return v.Lines, nil
}

func (r *Remote) Pause() error  { return r.call("pause", nil, nil) }
func (r *Remote) Resume() error { return r.call("resume", nil, nil) }

func (r *Remote) ResumeExecution() error { return r.call("resume_execution", nil, nil) }

func (r *Remote) Step(cpu CPUType, st StepType, count int) error {
	params := map[string]any{"cpu_type": cpu, "step_type": st, "count": count}
	return r.call("step", params, nil)
}

func (r *Remote) SetBreakpoints(bps []Breakpoint) error {
	return r.call("set_breakpoints", map[string]any{"breakpoints": bps}, nil)
}
