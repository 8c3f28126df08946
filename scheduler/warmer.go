package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WarmJob refreshes one cached dataset.
type WarmJob struct {
	Name string
	Run  func(ctx context.Context) error
}

// Warmer runs its jobs at start and then on a fixed interval, so requests
// rarely pay for a cold exchange-rate table or region list.
type Warmer struct {
	jobs     []WarmJob
	interval time.Duration
	timeout  time.Duration
	recorder RunRecorder
	logger   *slog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewWarmer(interval time.Duration, recorder RunRecorder, logger *slog.Logger, jobs ...WarmJob) *Warmer {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Warmer{
		jobs:     jobs,
		interval: interval,
		timeout:  30 * time.Second,
		recorder: recorder,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start starts the warm loop
func (w *Warmer) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info("🔄 Starting cache warmer", "interval", w.interval, "jobs", len(w.jobs))

	go func() {
		defer close(w.done)
		w.RunOnce()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.RunOnce()
			case <-w.stopChan:
				return
			}
		}
	}()
}

// RunOnce runs every job once, logging failures.
func (w *Warmer) RunOnce() {
	for _, job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := job.Run(ctx)
		cancel()

		if w.recorder != nil {
			w.recorder.Refresh(job.Name, err)
		}
		if err != nil {
			w.logger.Warn("❌ Warm job failed", "job", job.Name, "error", err)
			continue
		}
		w.logger.Debug("Warm job finished", "job", job.Name)
	}
}

// Stop stops the loop and waits for it to exit.
func (w *Warmer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.started.Load() {
			<-w.done
		}
		w.logger.Info("🛑 Cache warmer stopped")
	})
}
