package engine

import (
	"fmt"
	"log"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// processEvent dispatches one event and completes its handle. A failed
// event never mutates the configuration: dispatch either commits and
// resolves, or fails and restores currentMind to its pre-event value.
func (m *Machine) processEvent(p *pending) {
	current, err := m.dispatch(p.event)
	if err != nil {
		p.handle.fail(err)
		return
	}
	m.publish(current)
	p.handle.resolve(current)
}

// dispatch runs one full event under the machine lock: snapshot the
// active leaves, select a transition for each (guard-evaluated, walking
// ancestors on no-op), execute it, and return the new configuration. The
// lock is held across every guard, effect, and entry/exit callback the
// event triggers. A callback panic fails the event instead of killing the
// event loop.
func (m *Machine) dispatch(e primitives.Event) (s mind.StateOfMind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prior := m.currentMind
	defer func() {
		if r := recover(); r != nil {
			m.currentMind = prior
			err = fmt.Errorf("hfsmx: callback panic on event %q: %v", e.Kind, r)
		}
	}()

	snapshot := m.currentMind.Paths()

	if !m.triggerable(snapshot, e.Kind) {
		from := ""
		if len(snapshot) > 0 {
			from = string(snapshot[0].Leaf())
		}
		invalid := &hfsmerr.InvalidTransitionError{From: from, Event: string(e.Kind)}
		if !m.production {
			return mind.StateOfMind{}, invalid
		}
		log.Printf("hfsmx: suppressed: %v", invalid)
		m.seq++
		return m.currentMind, nil
	}

	for _, path := range snapshot {
		// An earlier transition in this same dispatch step (a join
		// gathering several regions, or an exit of a shared ancestor)
		// may have consumed this path already.
		if !m.currentMind.HasPath(path) {
			continue
		}
		leaf, ok := m.graph.Lookup(path.Leaf())
		if !ok {
			continue
		}
		def := m.selectTransition(leaf, e)
		if def.IsNoOp() {
			continue
		}
		m.executeTransition(def, e)
	}

	m.seq++
	return m.currentMind, nil
}

// triggerable is the preflight check: some ancestor (inclusive) of some
// active leaf must carry any transition for this event kind, otherwise
// the event is invalid for the whole configuration.
func (m *Machine) triggerable(snapshot []mind.StatePath, kind primitives.EventKind) bool {
	for _, path := range snapshot {
		leaf, ok := m.graph.Lookup(path.Leaf())
		if !ok {
			continue
		}
		for _, a := range leaf.Ancestors() {
			if len(a.Transitions[kind]) > 0 {
				return true
			}
		}
	}
	return false
}

// selectTransition walks the (node, trigger) lists from leaf upward and
// returns the first definition whose guard is absent or passes. A join
// definition whose sibling regions are not all parked at their declared
// sources does not match yet and is skipped. The virtual root terminates
// the walk with the no-op sentinel.
func (m *Machine) selectTransition(leaf *graph.StateNode, e primitives.Event) *graph.TransitionDefinition {
	for node := leaf; ; node = node.Parent {
		for _, def := range node.Transitions[e.Kind] {
			if def.Variant == graph.VariantJoin && !m.joinSatisfied(def) {
				continue
			}
			if def.Guard == nil || def.Guard(e) {
				return def
			}
		}
		if node.IsVirtualRoot() {
			return graph.NoOp
		}
	}
}

// joinSatisfied reports whether every declared join source is the active
// leaf of its region.
func (m *Machine) joinSatisfied(def *graph.TransitionDefinition) bool {
	for _, src := range def.Sources {
		active := false
		for _, path := range m.currentMind.Paths() {
			if path.Leaf() == src.Kind {
				active = true
				break
			}
		}
		if !active {
			return false
		}
	}
	return true
}
