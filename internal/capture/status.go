package capture

import (
	"context"
	"fmt"
	"strconv"
	"time"

	psproc "github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is the resource usage of a live capture process.
type ProcessStats struct {
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Started    time.Time `json:"started"`
	Cmdline    string    `json:"cmdline"`
}

// Status describes the capture process of a host.
type Status struct {
	Owner    string        `json:"owner,omitempty"`
	Running  bool          `json:"running"`
	PID      string        `json:"pid,omitempty"`
	Settings Snapshot      `json:"settings"`
	Process  *ProcessStats `json:"process,omitempty"`
}

// Status reports whether capture is running, with the settings the next
// start would use and, when running, the process' resource usage. Missing
// resource usage is not an error.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	host, err := s.bound("status")
	if err != nil {
		return Status{}, err
	}
	settings := NewSettings(host.Prefs)

	owner, err := s.owner(ctx, host, settings)
	if err != nil {
		return Status{Settings: settings.Snapshot()}, err
	}
	st := Status{Owner: owner, Settings: settings.Snapshot()}

	rec, live, err := s.live(ctx, owner)
	if err != nil {
		return st, err
	}
	if !live {
		return st, nil
	}
	st.Running, st.PID = true, rec.PID

	stats, err := s.config.Stats(ctx, rec.PID)
	if err != nil {
		s.logger().Debug(logTag, "no resource usage for pid "+rec.PID, err)
		return st, nil
	}
	st.Process = stats
	return st, nil
}

// processStats looks pid up with gopsutil.
func processStats(ctx context.Context, pid string) (*ProcessStats, error) {
	n, err := strconv.ParseInt(pid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid pid %q: %w", pid, err)
	}
	p, err := psproc.NewProcessWithContext(ctx, int32(n))
	if err != nil {
		return nil, err
	}

	stats := &ProcessStats{}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil {
		stats.Started = time.UnixMilli(ms)
	}
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		stats.Cmdline = cmdline
	}
	return stats, nil
}
