package workers

import (
	"context"
	"log/slog"
	"os"
	"post-it/contract"
	"post-it/domain"
	"time"

	"github.com/shirou/gopsutil/process"
)

// PresenceCounter is the read side of the registry used for reporting.
type PresenceCounter interface {
	Count() (users, sessions int)
}

var _ contract.Worker = (*PresenceReporterWorker)(nil)

// PresenceReporterWorker periodically logs how many users and sessions are live,
// together with the process footprint.
type PresenceReporterWorker struct {
	log      *slog.Logger
	counter  PresenceCounter
	interval time.Duration
}

func NewPresenceReporterWorker(log *slog.Logger, counter PresenceCounter, interval time.Duration) *PresenceReporterWorker {
	return &PresenceReporterWorker{log: log, counter: counter, interval: interval}
}

func (w *PresenceReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			users, sessions := w.counter.Count()
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
			}
			w.log.Info("Presence report",
				"users", users,
				"sessions", sessions,
				"pid", domain.PID(p.Pid),
				"status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, domain.PidStatus, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, domain.UNKNOWN, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, domain.UNKNOWN, err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, domain.UNKNOWN, err
	}
	return memInfo.RSS, cpuPercent, domain.ToStatus(status), nil
}
