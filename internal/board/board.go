// Package board holds the dashboard view model: one persistent node per
// monitored target, reconciled in place as poll results arrive.
//
// A Board is safe for concurrent use. Reconciliations are serialized, so
// each one runs to completion before the next starts; readers work on deep
// copies returned by Snapshot and Service.
package board

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"healthboard/internal/models"
)

// Status classes and placeholders rendered on cards.
const (
	ClassUp   = "status-up"
	ClassDown = "status-down"

	NoComponentsMessage = "no components found"
	NoDetailsMessage    = "no details available"

	DefaultDiskSpaceComponent = "diskSpace"
)

// ComponentNode is the card of one component of a service.
type ComponentNode struct {
	Name        string   `json:"name" yaml:"name"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty"`
	StatusClass string   `json:"status_class,omitempty" yaml:"status_class,omitempty"`
	Details     string   `json:"details,omitempty" yaml:"details,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Chart       *PieData `json:"chart,omitempty" yaml:"chart,omitempty"`
	ChartMarkup string   `json:"-" yaml:"-"`
}

// ServiceNode is the persistent card of one monitored target.
type ServiceNode struct {
	Name        string          `json:"name" yaml:"name"`
	Status      string          `json:"status" yaml:"status"`
	StatusClass string          `json:"status_class" yaml:"status_class"`
	Components  []ComponentNode `json:"components,omitempty" yaml:"components,omitempty"`
	Placeholder string          `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Cycle       uint64          `json:"cycle" yaml:"cycle"`
	CycleID     string          `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
	Version     uint64          `json:"version" yaml:"version"`
}

// Up reports whether the service status is UP.
func (n ServiceNode) Up() bool {
	return n.StatusClass == ClassUp
}

// Option configures a Board.
type Option func(*Board)

// WithDiskSpaceComponent sets the component name rendered with a usage chart.
func WithDiskSpaceComponent(name string) Option {
	return func(b *Board) {
		if name != "" {
			b.diskComponent = name
		}
	}
}

// WithChartRenderer sets the renderer called once per disk-space component
// per reconciliation.
func WithChartRenderer(r ChartRenderer) Option {
	return func(b *Board) {
		b.charts = r
	}
}

// Board owns the service nodes, keyed by target name.
type Board struct {
	diskComponent string
	charts        ChartRenderer

	mu      sync.RWMutex
	nodes   map[string]*ServiceNode
	order   []string
	version uint64

	subMu     sync.Mutex
	subs      map[int]chan struct{}
	nextSubID int
}

// New creates an empty board.
func New(opts ...Option) *Board {
	b := &Board{
		diskComponent: DefaultDiskSpaceComponent,
		nodes:         make(map[string]*ServiceNode),
		subs:          make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Reconcile applies report to the node of target, creating the node on
// first use.
func (b *Board) Reconcile(target string, report models.StatusReport) {
	b.Apply(models.PollResult{
		Target:     target,
		Report:     report,
		ObservedAt: time.Now().UTC(),
	})
}

// Apply reconciles a poll result. Results carrying a cycle sequence older
// than the one already applied to the target are dropped; Apply reports
// whether the result was applied.
func (b *Board) Apply(res models.PollResult) bool {
	b.mu.Lock()
	node, ok := b.nodes[res.Target]
	if ok && res.Seq != 0 && res.Seq < node.Cycle {
		b.mu.Unlock()
		return false
	}
	if !ok {
		node = &ServiceNode{Name: res.Target}
		b.nodes[res.Target] = node
		b.order = append(b.order, res.Target)
	}

	b.version++
	node.Version = b.version
	if res.Seq != 0 {
		node.Cycle = res.Seq
	}
	node.CycleID = res.CycleID
	node.UpdatedAt = res.ObservedAt

	node.Status = string(res.Report.Status)
	node.StatusClass = statusClass(res.Report.Status)
	node.Components = b.buildComponents(res.Report.Components)
	if len(node.Components) == 0 {
		node.Placeholder = NoComponentsMessage
	} else {
		node.Placeholder = ""
	}
	b.mu.Unlock()

	b.notify()
	return true
}

func (b *Board) buildComponents(components map[string]models.ComponentReport) []ComponentNode {
	if len(components) == 0 {
		return nil
	}
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make([]ComponentNode, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, b.buildComponent(name, components[name]))
	}
	return nodes
}

func (b *Board) buildComponent(name string, report models.ComponentReport) ComponentNode {
	node := ComponentNode{Name: name}
	if report.Status != "" {
		node.Status = string(report.Status)
		node.StatusClass = statusClass(report.Status)
	}
	if report.Details == nil {
		node.Placeholder = NoDetailsMessage
		return node
	}

	node.Details = FormatDetails(report.Details)
	if name == b.diskComponent {
		if data, ok := DiskUsage(report.Details); ok {
			node.Chart = &data
			if b.charts != nil {
				node.ChartMarkup = b.charts.Pie(data)
			}
		}
	}
	return node
}

// FormatDetails pretty-prints details as two-space indented JSON.
func FormatDetails(details map[string]any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(details); err != nil {
		return NoDetailsMessage
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func statusClass(s models.Status) string {
	if s.IsUp() {
		return ClassUp
	}
	return ClassDown
}

// Snapshot returns copies of all service nodes in creation order.
func (b *Board) Snapshot() []ServiceNode {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ServiceNode, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, copyNode(b.nodes[name]))
	}
	return out
}

// Service returns a copy of the node for target.
func (b *Board) Service(target string) (ServiceNode, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	node, ok := b.nodes[target]
	if !ok {
		return ServiceNode{}, false
	}
	return copyNode(node), true
}

// Version returns the number of reconciliations applied so far.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Len returns the number of service nodes.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

func copyNode(n *ServiceNode) ServiceNode {
	out := *n
	if n.Components != nil {
		out.Components = make([]ComponentNode, len(n.Components))
		for i, c := range n.Components {
			out.Components[i] = c
			if c.Chart != nil {
				chart := PieData{
					Labels: append([]string(nil), c.Chart.Labels...),
					Values: append([]float64(nil), c.Chart.Values...),
				}
				out.Components[i].Chart = &chart
			}
		}
	}
	return out
}

// Subscribe returns a channel signalled after every applied reconciliation
// and a function that cancels the subscription. Signals coalesce: a slow
// reader sees one pending signal, then compares node versions to find
// what changed.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.subMu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
		})
	}
}

func (b *Board) notify() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
