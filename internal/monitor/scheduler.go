package monitor

import (
	"sync"
	"time"
)

// Scheduler delivers the ticks that start poll cycles after the first one.
type Scheduler interface {
	C() <-chan time.Time
	Stop()
}

// SchedulerFactory builds the scheduler for a given interval.
type SchedulerFactory func(interval time.Duration) Scheduler

type tickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler returns a scheduler backed by time.Ticker.
func NewTickerScheduler(interval time.Duration) Scheduler {
	return &tickerScheduler{ticker: time.NewTicker(interval)}
}

func (s *tickerScheduler) C() <-chan time.Time { return s.ticker.C }
func (s *tickerScheduler) Stop()               { s.ticker.Stop() }

// ManualScheduler ticks only when Tick is called.
type ManualScheduler struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

// NewManualScheduler creates a scheduler driven by Tick.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

// Factory returns a SchedulerFactory that always yields s.
func (s *ManualScheduler) Factory() SchedulerFactory {
	return func(time.Duration) Scheduler { return s }
}

// Tick delivers one tick and blocks until the loop receives it. It reports
// false if the scheduler was stopped first.
func (s *ManualScheduler) Tick() bool {
	select {
	case s.ch <- time.Now():
		return true
	case <-s.stopped:
		return false
	}
}

func (s *ManualScheduler) C() <-chan time.Time { return s.ch }

func (s *ManualScheduler) Stop() {
	s.once.Do(func() { close(s.stopped) })
}
