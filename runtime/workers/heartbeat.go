package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"polyglot-chat/observability"
)

// HeartbeatWorker periodically logs the client's own health: process
// memory and CPU next to the chat counters. Purely local, there is no
// reporting endpoint.
type HeartbeatWorker struct {
	log      *slog.Logger
	stats    *observability.ClientStats
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, stats *observability.ClientStats, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, stats: stats, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			s := w.stats.GetLatest()
			w.log.Info("Heartbeat",
				"ram_bytes", rss,
				"cpu_percent", cpu,
				"messages_in", s.MessagesIn,
				"messages_out", s.MessagesOut,
				"reconnects", s.Reconnects,
				"dropped_events", s.DroppedEvents,
				"translation_hits", s.TranslationHits,
				"translation_requests", s.TranslationRequests,
				"typing_events", s.TypingEvents,
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
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
