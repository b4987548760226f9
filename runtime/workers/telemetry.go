package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-grid/runtime"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs a snapshot of the live chat topology
// (channels, subscribers) together with the process's own resource usage.
type TelemetryWorker struct {
	log      *slog.Logger
	registry *runtime.Registry
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, registry *runtime.Registry, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, registry: registry, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			subscribers := 0
			for _, count := range w.registry.Snapshot() {
				subscribers += count
			}

			rss, cpu := selfStats(p)
			w.log.Info("Chat topology snapshot",
				"channels", w.registry.Len(),
				"subscribers", subscribers,
				"rss_bytes", rss,
				"cpu_percent", cpu)
		}
	}
}

// selfStats retrieves memory and CPU usage of the current process.
// Telemetry is best effort: a probe failure yields zeros, never an error.
func selfStats(p *process.Process) (uint64, float64) {
	var rss uint64
	if memInfo, err := p.MemoryInfo(); err == nil {
		rss = memInfo.RSS
	}
	var cpu float64
	if percent, err := p.CPUPercent(); err == nil {
		cpu = percent
	}
	return rss, cpu
}
