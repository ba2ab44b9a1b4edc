package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// ServiceUptime summarises health of a monitored service since start.
type ServiceUptime struct {
	Name          string  `json:"name" yaml:"name"`
	UptimePercent float64 `json:"uptime_percent" yaml:"uptime_percent"`
	TotalChecks   int     `json:"total_checks" yaml:"total_checks"`
	Passing       int     `json:"passing" yaml:"passing"`
	Failing       int     `json:"failing" yaml:"failing"`
	LastState     string  `json:"last_state,omitempty" yaml:"last_state,omitempty"`
	LastUpdated   string  `json:"last_updated,omitempty" yaml:"last_updated,omitempty"`
}

type uptimeAcc struct {
	passing   int
	failing   int
	lastState string
	lastTime  time.Time
}

// UptimeTracker tallies passing and failing polls per target in memory.
type UptimeTracker struct {
	mu    sync.RWMutex
	state map[string]*uptimeAcc
}

// NewUptimeTracker creates an empty tracker.
func NewUptimeTracker() *UptimeTracker {
	return &UptimeTracker{state: make(map[string]*uptimeAcc)}
}

// Record adds one poll outcome for target.
func (u *UptimeTracker) Record(target string, up bool, state string, at time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	acc := u.state[target]
	if acc == nil {
		acc = &uptimeAcc{}
		u.state[target] = acc
	}
	if up {
		acc.passing++
	} else {
		acc.failing++
	}
	if state != "" {
		acc.lastState = state
		acc.lastTime = at
	}
}

// Get returns the summary for a single target.
func (u *UptimeTracker) Get(target string) (ServiceUptime, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	acc, ok := u.state[target]
	if !ok {
		return ServiceUptime{}, false
	}
	return summarise(target, acc), true
}

// Snapshot returns summaries for all targets, sorted by name.
func (u *UptimeTracker) Snapshot() []ServiceUptime {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if len(u.state) == 0 {
		return nil
	}
	keys := make([]string, 0, len(u.state))
	for k := range u.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]ServiceUptime, 0, len(keys))
	for _, name := range keys {
		results = append(results, summarise(name, u.state[name]))
	}
	return results
}

func summarise(name string, data *uptimeAcc) ServiceUptime {
	total := data.passing + data.failing
	uptime := 0.0
	if total > 0 {
		uptime = float64(data.passing) / float64(total) * 100
	}
	result := ServiceUptime{
		Name:          name,
		UptimePercent: round2(uptime),
		TotalChecks:   total,
		Passing:       data.passing,
		Failing:       data.failing,
		LastState:     data.lastState,
	}
	if !data.lastTime.IsZero() {
		result.LastUpdated = data.lastTime.UTC().Format(time.RFC3339)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
