// Package worker runs the periodic maintenance sweep: expired listings and
// offers, overdue loans, due trade agreements and stale cooldown rows.
package worker

import (
	"context"
	"log/slog"
	"time"

	"econbot/bank"
	"econbot/economy"
	"econbot/market"
	"econbot/metrics"
)

// Task is one sweep step. Run reports how many records it touched.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

type Worker struct {
	interval time.Duration
	tasks    []Task
	log      *slog.Logger
	metrics  *metrics.Collector
}

func New(interval time.Duration, logger *slog.Logger, m *metrics.Collector, tasks ...Task) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{interval: interval, tasks: tasks, log: logger, metrics: m}
}

// Standard is the production task list
func Standard(mkt *market.Service, bk *bank.Service, gate *economy.CooldownGate) []Task {
	return []Task{
		{Name: "expire_listings", Run: mkt.ExpireListings},
		{Name: "expire_offers", Run: mkt.ExpireOffers},
		{Name: "run_agreements", Run: func(ctx context.Context) (int, error) {
			res, err := mkt.RunDueAgreements(ctx)
			return res.Delivered + res.Suspended, err
		}},
		{Name: "default_loans", Run: func(ctx context.Context) (int, error) {
			return bk.DefaultOverdue(ctx, bank.DefaultGrace)
		}},
		{Name: "purge_cooldowns", Run: func(ctx context.Context) (int, error) {
			n, err := gate.PurgeExpired(ctx)
			return int(n), err
		}},
	}
}

// RunOnce runs every task once. A failing task is logged and the rest still
// run.
func (w *Worker) RunOnce(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(w.tasks))
	for _, t := range w.tasks {
		if ctx.Err() != nil {
			return counts
		}
		n, err := t.Run(ctx)
		if err != nil {
			w.log.Error("sweep task failed", slog.String("task", t.Name), slog.Any("error", err))
			continue
		}
		counts[t.Name] = n
		w.metrics.AddSweep(t.Name, n)
		if n > 0 {
			w.log.Info("sweep task", slog.String("task", t.Name), slog.Int("items", n))
		}
	}
	return counts
}

// Run sweeps every interval until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("worker started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutdown")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}
