package license

import (
	"context"
	"sync"
	"time"
)

// Scheduler drives the periodic background revalidation. It is a single
// recurring timer: Arm is idempotent, so concurrent validation successes
// never start a second ticker. It is armed only after the first successful
// online validation, and never in development mode.
type Scheduler struct {
	interval time.Duration
	run      func(ctx context.Context)

	mu     sync.Mutex
	armed  bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates an unarmed scheduler that invokes run every interval
// once armed.
func NewScheduler(interval time.Duration, run func(ctx context.Context)) *Scheduler {
	return &Scheduler{interval: interval, run: run}
}

// Arm starts the recurring timer. Calling Arm on an armed scheduler is a
// no-op.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.armed = true

	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Armed reports whether the timer is running.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Stop cancels the timer and waits for an in-flight tick to return. Safe to
// call on an unarmed scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.armed = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
}
