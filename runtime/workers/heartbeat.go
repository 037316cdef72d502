package workers

import (
	"chatsphere/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// PresenceStats reports live connections and online users.
type PresenceStats func() (connections int, onlineUsers int)

// HeartbeatWorker samples the server's own process every interval,
// publishes it as gauges and logs a one-line summary.
type HeartbeatWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	stats    PresenceStats
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, metrics *observability.Metrics,
	stats PresenceStats, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, metrics: metrics, stats: stats, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
		return
	}
	w.metrics.ProcessRSSBytes.Set(float64(rss))
	w.metrics.ProcessCPUPercent.Set(cpu)

	connections, online := w.stats()
	w.log.Debug("Heartbeat",
		"connections", connections,
		"online_users", online,
		"rss_bytes", rss,
		"cpu_percent", cpu)
}

// selfStats retrieves resident memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpu, nil
}
