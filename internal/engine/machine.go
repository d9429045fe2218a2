// Package engine implements the machine runtime: the event queue, the
// serialization lock, the dispatcher, and the transition executor. Events
// are applied strictly in submission order; one goroutine drains the queue
// and holds the machine's lock for the full duration of each dispatched
// event, so concurrent Apply calls never overlap and re-entrant
// submissions from inside guards, effects, or entry/exit callbacks are
// appended behind the event that produced them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/arnevik/hfsmx/internal/analyzer"
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// ErrStopped is returned through handles for events that were still queued
// when the machine shut down.
var ErrStopped = errors.New("hfsmx: machine stopped")

// ErrQueueFull is returned through handles when the event queue is at
// capacity and the caller's context expired before space freed up.
var ErrQueueFull = errors.New("hfsmx: event queue full")

// ExportFormat selects a diagram dialect for Machine.Export.
type ExportFormat string

const (
	FormatDOT     ExportFormat = "dot"
	FormatMermaid ExportFormat = "mermaid"
	FormatSMCat   ExportFormat = "smcat"
)

// Exporter renders a graph plus its active configuration as diagram text.
// Declared here (and implemented elsewhere) so the runtime stays free of
// format-specific code.
type Exporter interface {
	Render(g *graph.Graph, active mind.StateOfMind, format ExportFormat) (string, error)
}

// pending pairs a queued event with its completion handle.
type pending struct {
	event  primitives.Event
	handle *Handle
}

// Machine is one runtime instance. Thread-safe for concurrent Apply from
// multiple goroutines; reads (IsIn, StateOfMind, Snapshot) never block
// behind queued events, only behind the in-flight dispatch step.
type Machine struct {
	graph *graph.Graph

	mu          sync.RWMutex // held for the full duration of one dispatched event
	currentMind mind.StateOfMind
	seq         uint64

	queue    chan *pending
	done     chan struct{}
	stopOnce sync.Once

	subMu       sync.Mutex
	subscribers map[int]chan mind.StateOfMind
	nextSub     int

	production bool
	queueSize  int
	exporter   Exporter
}

// New freezes g into a running Machine: in non-production mode the static
// analyzer must pass first, then the initial configuration is entered
// (invoking OnEnter top-down with an empty peer kind) and the event loop
// goroutine starts.
func New(g *graph.Graph, opts ...Option) (*Machine, error) {
	m := &Machine{
		graph:       g,
		done:        make(chan struct{}),
		subscribers: make(map[int]chan mind.StateOfMind),
		queueSize:   1024,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = make(chan *pending, m.queueSize)

	if !m.production {
		if err := analyzer.Analyze(g); err != nil {
			return nil, err
		}
	}

	m.currentMind = mind.New(m.enterInitial()...)

	go m.interpret()
	return m, nil
}

// enterInitial activates the configured initial leaf, fanning out to
// sibling regions wherever the initial leaf sits under a concurrent
// ancestor, and fires OnEnter top-down along every activated path.
func (m *Machine) enterInitial() []mind.StatePath {
	leaves := []*graph.StateNode{m.graph.InitialLeaf()}
	for _, a := range m.graph.InitialLeaf().Ancestors() {
		if a.ChildrenMode != graph.ModeConcurrent {
			continue
		}
		for _, region := range a.OrderedChildren() {
			covered := false
			for _, l := range leaves {
				if region.IsAncestorOf(l) {
					covered = true
					break
				}
			}
			if !covered {
				leaves = append(leaves, graph.DescendLeaves(region)...)
			}
		}
	}

	entered := map[*graph.StateNode]bool{}
	paths := make([]mind.StatePath, 0, len(leaves))
	for _, leaf := range leaves {
		path := pathOf(leaf)
		paths = append(paths, path)
		for _, n := range chainOf(leaf) {
			if entered[n] {
				continue
			}
			entered[n] = true
			if n.OnEnter != nil {
				n.OnEnter("", primitives.Event{})
			}
		}
	}
	return paths
}

// interpret is the event loop goroutine: one event at a time, in FIFO
// order, until Stop. Remaining queued events fail their handles on
// shutdown rather than hanging their waiters.
func (m *Machine) interpret() {
	for {
		select {
		case p := <-m.queue:
			m.processEvent(p)
		case <-m.done:
			for {
				select {
				case p := <-m.queue:
					p.handle.fail(ErrStopped)
				default:
					return
				}
			}
		}
	}
}

// Apply enqueues e and returns a handle the caller awaits for the
// post-event StateOfMind. Events are dispatched in Apply order; callers
// inside a guard, effect, or entry/exit callback may Apply freely — the
// submission lands behind the event currently being dispatched.
func (m *Machine) Apply(ctx context.Context, e primitives.Event) *Handle {
	h := newHandle()
	select {
	case <-m.done:
		h.fail(ErrStopped)
		return h
	default:
	}
	p := &pending{event: e, handle: h}
	// Blocks only when the queue is at capacity.
	select {
	case m.queue <- p:
	case <-m.done:
		h.fail(ErrStopped)
	case <-ctx.Done():
		h.fail(fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err()))
	}
	return h
}

// IsIn reports whether any active path contains kind — the current leaf or
// any of its ancestors, in any region. Unknown kinds report false; in
// non-production mode they are also logged.
func (m *Machine) IsIn(kind primitives.StateKind) bool {
	if _, ok := m.graph.Lookup(kind); !ok {
		if !m.production {
			log.Printf("hfsmx: IsIn query for unknown state %q", kind)
		}
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMind.Contains(kind)
}

// StateOfMind returns the active configuration.
func (m *Machine) StateOfMind() mind.StateOfMind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMind
}

// Snapshot returns the active configuration alongside a monotonically
// increasing sequence number, incremented once per dispatched event, for
// correlating observations against logs.
func (m *Machine) Snapshot() (mind.StateOfMind, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMind, m.seq
}

// Graph returns the frozen state tree.
func (m *Machine) Graph() *graph.Graph {
	return m.graph
}

// Analyze re-runs the static analyzer and reports whether the graph is
// valid. Findings go to the log.
func (m *Machine) Analyze() bool {
	return analyzer.Analyze(m.graph) == nil
}

// Subscribe registers a listener for every StateOfMind produced by a
// dispatched event. The returned cancel func detaches the listener and
// closes the channel. Slow subscribers drop updates rather than stalling
// dispatch.
func (m *Machine) Subscribe() (<-chan mind.StateOfMind, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan mind.StateOfMind, 16)
	m.subscribers[id] = ch
	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans the new configuration out to subscribers, non-blocking.
func (m *Machine) publish(s mind.StateOfMind) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Export renders the graph with the current active configuration in the
// given format and writes it to path.
func (m *Machine) Export(ctx context.Context, path string, format ExportFormat) error {
	if m.exporter == nil {
		return errors.New("hfsmx: no exporter configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	text, err := m.exporter.Render(m.graph, m.StateOfMind(), format)
	if err != nil {
		return fmt.Errorf("hfsmx: export %s: %w", format, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("hfsmx: export %s: %w", format, err)
	}
	return nil
}

// Stop shuts the event loop down. Safe to call multiple times; events
// still queued fail their handles with ErrStopped.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// chainOf returns leaf's chain top-level-first, excluding the virtual
// root.
func chainOf(leaf *graph.StateNode) []*graph.StateNode {
	anc := leaf.Ancestors()
	chain := make([]*graph.StateNode, 0, len(anc)-1)
	for i := len(anc) - 2; i >= 0; i-- {
		chain = append(chain, anc[i])
	}
	return chain
}

// pathOf returns leaf's root-to-leaf StatePath.
func pathOf(leaf *graph.StateNode) mind.StatePath {
	chain := chainOf(leaf)
	path := make(mind.StatePath, len(chain))
	for i, n := range chain {
		path[i] = n.Kind
	}
	return path
}
