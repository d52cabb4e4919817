package ops

import (
	"context"
	"sync"
	"time"
)

// TickKind identifies which timer fired.
type TickKind int

const (
	TickDrift TickKind = iota
	TickElapsed
)

func (k TickKind) String() string {
	if k == TickElapsed {
		return "elapsed"
	}
	return "drift"
}

// Tick is posted to the event loop when a timer fires. Gen identifies the
// elapsed task instance so ticks from a stopped task can be dropped.
type Tick struct {
	Kind TickKind
	Gen  uint64
}

// Scheduler owns the drift and elapsed timers. Timers never mutate state
// themselves; they hand ticks to emit, which posts them to the event loop.
type Scheduler struct {
	driftEvery   time.Duration
	elapsedEvery time.Duration
	emit         func(Tick)

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	elapsedCancel context.CancelFunc
	gen           uint64
	wg            sync.WaitGroup
}

// NewScheduler creates a scheduler. The elapsed timer always runs at one
// second.
func NewScheduler(driftEvery time.Duration, emit func(Tick)) *Scheduler {
	return &Scheduler{driftEvery: driftEvery, elapsedEvery: time.Second, emit: emit}
}

// Start launches the drift task. The scheduler stops when ctx is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if s.driftEvery > 0 {
		s.spawn(s.ctx, s.driftEvery, Tick{Kind: TickDrift})
	}
}

// SyncPhase starts the elapsed task when leaving Monitoring and stops it on
// return. A running task is left alone so the count carries across
// Validating to Responding.
func (s *Scheduler) SyncPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	running := s.elapsedCancel != nil
	switch {
	case p == Monitoring && running:
		s.elapsedCancel()
		s.elapsedCancel = nil
		s.gen++
	case p != Monitoring && !running:
		s.gen++
		var ctx context.Context
		ctx, s.elapsedCancel = context.WithCancel(s.ctx)
		s.spawn(ctx, s.elapsedEvery, Tick{Kind: TickElapsed, Gen: s.gen})
	}
}

// Fresh reports whether t came from a task that is still running.
func (s *Scheduler) Fresh(t Tick) bool {
	if t.Kind != TickElapsed {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedCancel != nil && t.Gen == s.gen
}

// ElapsedRunning reports whether the elapsed task is active.
func (s *Scheduler) ElapsedRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedCancel != nil
}

// Stop cancels every task and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.elapsedCancel = nil
	s.gen++
	s.mu.Unlock()
	s.wg.Wait()
}

// spawn must be called with s.mu held.
func (s *Scheduler) spawn(ctx context.Context, every time.Duration, t Tick) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				s.emit(t)
			}
		}
	}()
}
