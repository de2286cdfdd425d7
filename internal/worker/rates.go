package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/forex/internal/rates"
)

// RateRefresher refreshes the market rate cache.
type RateRefresher interface {
	Refresh(ctx context.Context) (rates.Snapshot, error)
}

// RateWorker periodically refreshes market rates.
type RateWorker struct {
	refresher RateRefresher
	interval  time.Duration
}

// NewRateWorker creates a new RateWorker.
func NewRateWorker(refresher RateRefresher, interval time.Duration) *RateWorker {
	return &RateWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Run starts the rate worker loop. It blocks until the context is cancelled.
func (w *RateWorker) Run(ctx context.Context) {
	slog.Info("RateWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refresh(ctx, "initial refresh")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RateWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "refresh")
		}
	}
}

func (w *RateWorker) refresh(ctx context.Context, what string) {
	snap, err := w.refresher.Refresh(ctx)
	if err != nil {
		slog.Error("RateWorker: "+what+" failed", "error", err)
		return
	}
	slog.Info("RateWorker: "+what+" completed", "source", snap.Source, "live", snap.Live, "currencies", len(snap.Rates))
}
