package worker

import (
	"context"
	"log/slog"
	"time"
)

// Handle controls a scheduled task. Stop cancels the schedule and waits for
// any in-flight run to return, so a consumed handle never fires again.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the schedule. Safe on a nil handle and safe to call twice.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

// Schedule runs fn once immediately and then on every interval tick until the
// returned handle is stopped. Run errors are logged, not propagated; the
// schedule keeps going.
func Schedule(name string, interval time.Duration, fn func(ctx context.Context) error) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		slog.Info("scheduler: starting", "task", name, "interval", interval)

		run := func() {
			if err := fn(ctx); err != nil {
				slog.Error("scheduler: run failed", "task", name, "error", err)
			}
		}
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("scheduler: stopping", "task", name)
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return h
}
