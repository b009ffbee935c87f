package capture

import (
	"context"
	"sync"
	"time"
)

// DefaultCadence is the fixed interval between scheduled frame captures
// when no cadence is configured. It doubles as the de facto retry interval
// for failed captures and classifications.
const DefaultCadence = 3 * time.Second

// Scheduler fires a tick function at a fixed cadence. Every tick runs in
// its own goroutine, so a slow or failed tick never delays or skips the
// following triggers; if a tick is still in flight when the next one fires,
// the two race independently — no queueing or coalescing.
type Scheduler struct {
	cadence time.Duration
	tick    func(ctx context.Context)
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler driving tick every cadence. A
// non-positive cadence falls back to DefaultCadence.
func NewScheduler(cadence time.Duration, tick func(ctx context.Context)) *Scheduler {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Scheduler{cadence: cadence, tick: tick}
}

// Run blocks, firing ticks until ctx is cancelled, then waits for in-flight
// ticks to finish before returning. Cancellation is the only exit path, so
// callers can release their video source right after Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.tick(ctx)
			}()
		}
	}
}
