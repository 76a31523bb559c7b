// Package health locates the emulator process on the local machine and
// reports basic resource usage for status output. Discovery is by name
// hint, since the emulator is launched by the user, not by this server.
package health

import (
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo describes the discovered emulator process.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	StartedAt  int64   `json:"started_at_ms"`
}

// Checker scans the process table for a process matching one of the name
// hints. Scans are cached briefly so status polling stays cheap.
type Checker struct {
	hints []string

	mu       sync.Mutex
	cached   *ProcessInfo
	lastScan time.Time
}

const scanInterval = 5 * time.Second

func NewChecker(hints []string) *Checker {
	return &Checker{hints: hints}
}

// Find returns the emulator process info, or ok=false when no matching
// process is running.
func (c *Checker) Find() (ProcessInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastScan) < scanInterval {
		if c.cached == nil {
			return ProcessInfo{}, false
		}
		return *c.cached, true
	}
	c.lastScan = time.Now()
	c.cached = nil

	procs, err := process.Processes()
	if err != nil {
		return ProcessInfo{}, false
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !matchesHint(name, c.hints) {
			continue
		}
		info := ProcessInfo{PID: p.Pid, Name: name}
		if cpu, err := p.CPUPercent(); err == nil {
			info.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			info.RSSBytes = mem.RSS
		}
		if created, err := p.CreateTime(); err == nil {
			info.StartedAt = created
		}
		c.cached = &info
		return info, true
	}
	return ProcessInfo{}, false
}

// matchesHint reports whether a process name contains any hint,
// case-insensitively.
func matchesHint(name string, hints []string) bool {
	lower := strings.ToLower(name)
	for _, h := range hints {
		if h == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
