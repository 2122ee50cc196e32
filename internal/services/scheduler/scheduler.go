// Package scheduler drives periodic refreshes plus one-shot retries.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler fires a callback on a fixed interval and, independently, once
// after a retry delay. At most one retry is outstanding at a time.
type Scheduler struct {
	fire       func()
	stopChan   chan struct{}
	retryTimer *time.Timer
	interval   time.Duration
	mu         sync.Mutex
	wg         sync.WaitGroup
	running    bool
}

// New creates a stopped scheduler that calls fire on every tick.
func New(fire func()) *Scheduler {
	return &Scheduler{fire: fire}
}

// Start begins firing every interval. Any previous ticker is stopped first,
// so changing the interval is a full restart. A pending retry is left armed.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	s.stopTickerLocked()
	stop := make(chan struct{})
	s.stopChan = stop
	s.interval = interval
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.poll(interval, stop)
}

func (s *Scheduler) poll(interval time.Duration, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire()
		case <-stop:
			return
		}
	}
}

// ScheduleRetry arms a one-shot fire after delay, replacing any pending one.
func (s *Scheduler) ScheduleRetry(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.retryTimer == t {
			s.retryTimer = nil
		}
		s.mu.Unlock()
		s.fire()
	})
	s.retryTimer = t
}

// RetryPending reports whether a one-shot retry is armed.
func (s *Scheduler) RetryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryTimer != nil
}

// Running reports whether the interval ticker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the current tick interval, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.interval
}

// Stop cancels the ticker and any pending retry. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopTickerLocked()
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()
}

// Close stops the scheduler and waits for the ticker goroutine to exit.
func (s *Scheduler) Close() error {
	s.Stop()
	s.wg.Wait()
	return nil
}

func (s *Scheduler) stopTickerLocked() {
	if s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
	s.running = false
	s.interval = 0
}
