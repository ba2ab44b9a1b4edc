// Package monitor polls the health endpoints of the configured targets and
// hands every result to a sink.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"healthboard/internal/logger"
	"healthboard/internal/models"
)

// DefaultInterval is used when New receives a non-positive interval.
const DefaultInterval = 10 * time.Second

const maxBodyBytes = 4 << 20

var (
	// ErrRequestTimeout is reported when a poll exceeds the request timeout.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrBodyTooLarge is reported when a health body exceeds the read limit.
	ErrBodyTooLarge = errors.New("health body too large")
)

// Sink receives poll results. Apply reports whether the result was applied.
type Sink interface {
	Apply(res models.PollResult) bool
}

// Recorder observes polling activity.
type Recorder interface {
	ObserveCycle()
	ObservePoll(res models.PollResult)
	ObserveReconcile(applied bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCycle()                 {}
func (noopRecorder) ObservePoll(models.PollResult) {}
func (noopRecorder) ObserveReconcile(bool)         {}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithHTTPClient sets the client used for health requests.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Monitor) {
		if c != nil {
			m.client = c
		}
	}
}

// WithRequestTimeout bounds each health request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithScheduler replaces the ticker that drives cycles after the first.
func WithScheduler(f SchedulerFactory) Option {
	return func(m *Monitor) {
		if f != nil {
			m.newScheduler = f
		}
	}
}

// Monitor periodically polls targets and delivers reports to a sink.
type Monitor struct {
	interval     time.Duration
	targets      []models.Target
	sink         Sink
	client       *http.Client
	timeout      time.Duration
	log          logger.Logger
	rec          Recorder
	newScheduler SchedulerFactory

	seq      atomic.Uint64
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a monitor for the given targets and interval.
func New(interval time.Duration, targets []models.Target, sink Sink, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{
		interval:     interval,
		targets:      append([]models.Target(nil), targets...),
		sink:         sink,
		client:       &http.Client{},
		log:          logger.Discard(),
		rec:          noopRecorder{},
		newScheduler: NewTickerScheduler,
		ctx:          ctx,
		cancel:       cancel,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the delay between cycles.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Targets returns a copy of the polled targets in configuration order.
func (m *Monitor) Targets() []models.Target {
	return append([]models.Target(nil), m.targets...)
}

// Start launches the polling loop in a goroutine. The first cycle runs
// immediately. Calling Start more than once has no effect.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.run()
	})
}

// Stop ends the loop, cancels in-flight requests and waits until no further
// results will be delivered.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		close(m.stopCh)
	})
	if m.started.Load() {
		<-m.doneCh
	}
	m.inflight.Wait()
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	m.log.Info(m.ctx, "monitor started",
		logger.Int("targets", len(m.targets)),
		logger.String("interval", m.interval.String()))

	m.PollAll(m.ctx)

	sched := m.newScheduler(m.interval)
	defer sched.Stop()

	for {
		select {
		case <-sched.C():
			m.PollAll(m.ctx)
		case <-m.stopCh:
			m.log.Info(context.Background(), "monitor stopped")
			return
		}
	}
}

// Cycle is one round of polls, one per target.
type Cycle struct {
	ID        string
	Seq       uint64
	StartedAt time.Time

	wg      sync.WaitGroup
	results []models.PollResult
}

// Wait blocks until every poll of the cycle finished and returns the
// results in target order.
func (c *Cycle) Wait() []models.PollResult {
	c.wg.Wait()
	return append([]models.PollResult(nil), c.results...)
}

// PollAll starts a cycle that polls every target concurrently and returns
// without waiting. A slow or failing target never holds back the others,
// and cycles are never skipped because an earlier one is still running.
func (m *Monitor) PollAll(ctx context.Context) *Cycle {
	c := &Cycle{
		ID:        uuid.NewString(),
		Seq:       m.seq.Add(1),
		StartedAt: time.Now().UTC(),
		results:   make([]models.PollResult, len(m.targets)),
	}
	m.rec.ObserveCycle()
	m.log.Debug(ctx, "poll cycle started",
		logger.String("cycle_id", c.ID),
		logger.Uint64("seq", c.Seq))

	for i, target := range m.targets {
		c.wg.Add(1)
		m.inflight.Add(1)
		go func(i int, target models.Target) {
			defer m.inflight.Done()
			defer c.wg.Done()
			c.results[i] = m.poll(ctx, c, target)
		}(i, target)
	}
	return c
}

func (m *Monitor) poll(ctx context.Context, c *Cycle, target models.Target) models.PollResult {
	res := m.Fetch(ctx, target)
	res.Seq = c.Seq
	res.CycleID = c.ID

	if ctx.Err() != nil {
		m.log.Debug(ctx, "poll abandoned",
			logger.String("target", target.Name),
			logger.String("cycle_id", c.ID))
		return res
	}
	m.rec.ObservePoll(res)
	if m.sink == nil {
		return res
	}
	applied := m.sink.Apply(res)
	m.rec.ObserveReconcile(applied)
	if !applied {
		m.log.Debug(ctx, "stale result dropped",
			logger.String("target", target.Name),
			logger.Uint64("seq", c.Seq))
	}
	return res
}

// Fetch polls one target. It never fails: transport errors, timeouts and
// bodies that are not health reports all yield a synthesized DOWN report
// with Err set.
func (m *Monitor) Fetch(ctx context.Context, target models.Target) models.PollResult {
	start := time.Now()
	report, code, err := m.fetch(ctx, target)
	res := models.PollResult{
		Target:     target.Name,
		ObservedAt: time.Now().UTC(),
		Latency:    time.Since(start),
		Report:     report,
		Err:        err,
	}
	if err != nil {
		res.Report = models.FailureReport(err.Error())
		if ctx.Err() == nil {
			m.log.Warn(ctx, "health poll failed",
				logger.String("target", target.Name),
				logger.String("url", target.URL),
				logger.Int("status_code", code),
				logger.Error(err))
		}
		return res
	}
	m.log.Debug(ctx, "health poll",
		logger.String("target", target.Name),
		logger.String("status", string(report.Status)),
		logger.Int("status_code", code),
		logger.Int("components", len(report.Components)))
	return res
}

func (m *Monitor) fetch(ctx context.Context, target models.Target) (models.StatusReport, int, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return models.StatusReport{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.StatusReport{}, 0, ErrRequestTimeout
		}
		return models.StatusReport{}, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.StatusReport{}, resp.StatusCode, ErrRequestTimeout
		}
		return models.StatusReport{}, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return models.StatusReport{}, resp.StatusCode, ErrBodyTooLarge
	}

	// Actuator answers 503 with a full report when the service is DOWN, so
	// the body is parsed whatever the status code.
	report, err := models.ParseReport(body)
	if err != nil {
		return models.StatusReport{}, resp.StatusCode, fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)
	}
	return report, resp.StatusCode, nil
}
