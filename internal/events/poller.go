package events

import (
	"context"
	"time"

	"confide/internal/observability"
)

// Poller re-derives state on a fixed interval. The push path is a latency
// optimization; the poll is the correctness backstop, so consumers run it
// whether or not events arrive.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller returns a Poller that invokes fn every interval once started.
func NewPoller(interval time.Duration, fn func(ctx context.Context)) *Poller {
	return &Poller{interval: interval, fn: fn}
}

// Start begins polling. The first reconciliation runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.run(ctx)
			}
		}
	}()
}

func (p *Poller) run(ctx context.Context) {
	observability.PollReconciliations.Inc()
	p.fn(ctx)
}

// Stop halts polling and waits for the in-flight reconciliation to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
		p.cancel = nil
	}
}
