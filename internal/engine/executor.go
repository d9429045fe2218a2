package engine

import (
	"log"
	"sort"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// executeTransition commits one selected transition: exit phase (deepest
// node first), side effect exactly once, enter phase (shallowest node
// first), active-configuration swap, then observer notification once per
// target. Callers hold the machine lock.
func (m *Machine) executeTransition(def *graph.TransitionDefinition, e primitives.Event) {
	sources := def.AllSources()
	targets := def.Targets

	scope := make([]*graph.StateNode, 0, len(sources)+len(targets))
	scope = append(scope, sources...)
	scope = append(scope, targets...)
	lca := graph.LCA(scope...)

	// Exit phase: every active path passing under the LCA through a node
	// related to a source leaves the configuration; shared ancestors exit
	// once, after every descendant of theirs has exited.
	var removed []mind.StatePath
	var exitSet []*graph.StateNode
	seen := map[*graph.StateNode]bool{}
	for _, path := range m.currentMind.Paths() {
		if !m.pathExits(path, lca, sources) {
			continue
		}
		removed = append(removed, path)
		leaf, ok := m.graph.Lookup(path.Leaf())
		if !ok {
			continue
		}
		for n := leaf; n != lca && !n.IsVirtualRoot(); n = n.Parent {
			if !seen[n] {
				seen[n] = true
				exitSet = append(exitSet, n)
			}
		}
	}
	sortByDepthDescending(exitSet)

	exitPeer := primitives.StateKind("")
	if len(targets) > 0 {
		exitPeer = targets[0].Kind
	}
	for _, n := range exitSet {
		if n.OnExit != nil {
			n.OnExit(exitPeer, e)
		}
	}
	m.currentMind = m.currentMind.Without(removed...)

	// Side effect: exactly once, even for forks and joins.
	if def.Effect != nil {
		def.Effect(e)
	}

	// Enter phase: descend from the LCA toward each target, extending
	// abstract targets to their default leaves (fanning out across
	// concurrent regions). Nodes shared between targets enter once,
	// shallowest first.
	enterPeer := primitives.StateKind("")
	if len(sources) > 0 {
		enterPeer = sources[0].Kind
	}
	entered := map[*graph.StateNode]bool{}
	var added []mind.StatePath
	for _, target := range targets {
		for _, leaf := range graph.DescendLeaves(target) {
			for _, n := range chainOf(leaf) {
				if entered[n] || !lca.IsAncestorOf(n) || n == lca {
					continue
				}
				entered[n] = true
				if n.OnEnter != nil {
					n.OnEnter(enterPeer, e)
				}
			}
			path := pathOf(leaf)
			if !m.currentMind.HasPath(path) && !containsPath(added, path) {
				added = append(added, path)
			}
		}
	}
	m.currentMind = m.currentMind.With(added...)

	// Observer notification: one per target, with the source for that
	// branch. Observer panics are isolated; they never fail the event.
	for _, target := range targets {
		for _, obs := range m.graph.Observers() {
			notifyObserver(obs, enterPeer, e, target.Kind)
		}
	}
}

func notifyObserver(obs graph.Observer, from primitives.StateKind, e primitives.Event, to primitives.StateKind) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("hfsmx: observer panic on %s --%s--> %s: %v", from, e.Kind, to, r)
		}
	}()
	obs(from, e, to)
}

// pathExits reports whether path must leave the configuration for a
// transition scoped at lca: it passes through a node strictly below lca
// that is an ancestor or descendant of some source.
func (m *Machine) pathExits(path mind.StatePath, lca *graph.StateNode, sources []*graph.StateNode) bool {
	leaf, ok := m.graph.Lookup(path.Leaf())
	if !ok {
		return false
	}
	for n := leaf; n != lca && !n.IsVirtualRoot(); n = n.Parent {
		if !lca.IsAncestorOf(n) {
			continue
		}
		for _, src := range sources {
			if n.IsAncestorOf(src) || src.IsAncestorOf(n) {
				return true
			}
		}
	}
	return false
}

func containsPath(paths []mind.StatePath, p mind.StatePath) bool {
	for _, existing := range paths {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}

// sortByDepthDescending orders nodes deepest-first so exits run leaf-up
// even when several paths share ancestors.
func sortByDepthDescending(nodes []*graph.StateNode) {
	depth := func(n *graph.StateNode) int {
		return len(n.Ancestors())
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return depth(nodes[i]) > depth(nodes[j])
	})
}
