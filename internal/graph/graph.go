package graph

import (
	"fmt"

	"github.com/arnevik/hfsmx/internal/primitives"
)

// Observer is invoked once per executed sub-transition target with the
// source node for that branch, the event, and the target.
type Observer func(from primitives.StateKind, e primitives.Event, to primitives.StateKind)

// Graph is the frozen, immutable state tree plus its flat index, built once
// at machine construction and shared read-only for the machine's lifetime.
type Graph struct {
	root      *StateNode
	index     map[primitives.StateKind]*StateNode
	initial   *StateNode
	observers []Observer
}

// New freezes a constructed tree into a Graph. root must be the sentinel
// produced by NewRoot, index must map every non-root kind reachable from
// root to its node (the builder maintains this incrementally to catch
// duplicate registrations as they happen), and initialKind must resolve to
// a leaf. New will NOT perform leftmost descent; the caller resolves the
// configured initial leaf before calling New.
func New(root *StateNode, index map[primitives.StateKind]*StateNode, initialKind primitives.StateKind, observers []Observer) (*Graph, error) {
	if !root.IsVirtualRoot() {
		return nil, fmt.Errorf("hfsmx: graph root must be the virtual root sentinel")
	}

	initial, ok := index[initialKind]
	if !ok {
		return nil, fmt.Errorf("hfsmx: initial state %q is not a registered state", initialKind)
	}
	if !initial.IsLeaf() {
		return nil, fmt.Errorf("hfsmx: initial state %q is not a leaf", initialKind)
	}

	return &Graph{
		root:      root,
		index:     index,
		initial:   initial,
		observers: observers,
	}, nil
}

// Lookup resolves a kind to its node in O(1).
func (g *Graph) Lookup(kind primitives.StateKind) (*StateNode, bool) {
	n, ok := g.index[kind]
	return n, ok
}

// TopLevelNodes returns the virtual root's immediate children, in
// authoring order.
func (g *Graph) TopLevelNodes() []*StateNode {
	return g.root.OrderedChildren()
}

// InitialLeaf returns the configured initial leaf state.
func (g *Graph) InitialLeaf() *StateNode {
	return g.initial
}

// Root returns the virtual root.
func (g *Graph) Root() *StateNode {
	return g.root
}

// Observers returns the registered global transition observers.
func (g *Graph) Observers() []Observer {
	return g.observers
}

// AllNodes returns every non-root node in the graph, in index iteration
// order (unordered); used by the analyzer for reachability sweeps where
// order doesn't matter.
func (g *Graph) AllNodes() []*StateNode {
	nodes := make([]*StateNode, 0, len(g.index))
	for _, n := range g.index {
		nodes = append(nodes, n)
	}
	return nodes
}
