package stream

import (
	"sync"
	"time"
)

// Scheduler calls a tick function on a fixed interval from its own
// goroutine. The tick function returns false to halt the scheduler for
// good.
//
// Stop is idempotent and may be called from inside the tick function. No
// tick begins after Stop returns; a tick already running when Stop is
// called from another goroutine runs to completion.
type Scheduler struct {
	interval time.Duration
	tick     func() bool

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
}

// NewScheduler returns a Scheduler that runs tick every interval once
// started.
func NewScheduler(interval time.Duration, tick func() bool) *Scheduler {
	return &Scheduler{
		interval: interval,
		tick:     tick,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the timer goroutine. Calls after the first, or after Stop,
// do nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.loop()
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
}

// Started reports whether Start has launched the timer goroutine.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stopped reports whether the scheduler has been stopped.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.fire() {
				return
			}
		}
	}
}

// fire runs one tick unless the scheduler was stopped in the meantime.
func (s *Scheduler) fire() bool {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return false
	}
	if !s.tick() {
		s.Stop()
		return false
	}
	return true
}
