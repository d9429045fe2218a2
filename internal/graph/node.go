// Package graph holds the frozen, immutable state tree: StateNode,
// TransitionDefinition, and the flat-indexed Graph that wraps them. Nodes
// and transitions are built once (by the builder or by compiling a
// configio.MachineConfig) and never mutated again for the machine's
// lifetime.
package graph

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/arnevik/hfsmx/internal/primitives"
)

// ChildrenMode classifies how a node's children relate to each other.
type ChildrenMode int

const (
	// ModeLeaf means the node has no children.
	ModeLeaf ChildrenMode = iota
	// ModeNested means children are mutually exclusive (only one active
	// at a time).
	ModeNested
	// ModeConcurrent means all children are active simultaneously
	// whenever the parent is active.
	ModeConcurrent
)

func (m ChildrenMode) String() string {
	switch m {
	case ModeNested:
		return "nested"
	case ModeConcurrent:
		return "concurrent"
	default:
		return "leaf"
	}
}

// Callback is an entry/exit action: (otherKind, event) -> (). otherKind is
// the kind of the node on the other side of the transition that caused this
// callback to fire (the transition's source for OnEnter, its target for
// OnExit), or the empty StateKind when the machine itself is starting up.
type Callback func(other primitives.StateKind, e primitives.Event)

// StateNode is one node in the frozen state tree.
type StateNode struct {
	Kind         primitives.StateKind
	Parent       *StateNode
	Children     *orderedmap.OrderedMap[primitives.StateKind, *StateNode]
	ChildrenMode ChildrenMode
	Transitions  map[primitives.EventKind][]*TransitionDefinition
	OnEnter      Callback
	OnExit       Callback
}

// NewNode creates a detached node for the given kind. Used by the builder
// while constructing a tree; callers are responsible for wiring Parent and
// adding it to its parent's Children before the graph is frozen.
func NewNode(kind primitives.StateKind) *StateNode {
	return &StateNode{
		Kind:        kind,
		Children:    orderedmap.New[primitives.StateKind, *StateNode](),
		Transitions: make(map[primitives.EventKind][]*TransitionDefinition),
	}
}

// NewRoot builds the sentinel virtual root whose Parent is itself, the
// termination marker for upward walks described in the design notes.
func NewRoot() *StateNode {
	root := NewNode("")
	root.Parent = root
	root.ChildrenMode = ModeNested
	return root
}

// IsVirtualRoot reports whether n is the sentinel self-referencing root.
func (n *StateNode) IsVirtualRoot() bool {
	return n.Parent == n
}

// IsLeaf reports whether n has no children.
func (n *StateNode) IsLeaf() bool {
	return n.Children.Len() == 0
}

// IsAbstract reports whether n cannot be a direct transition target: it has
// children, or it is the virtual root.
func (n *StateNode) IsAbstract() bool {
	return !n.IsLeaf() || n.IsVirtualRoot()
}

// IsTerminal reports whether no outgoing transition exists from n nor any
// of its ancestors; inherited transitions count toward being non-terminal.
func (n *StateNode) IsTerminal() bool {
	for cur := n; ; cur = cur.Parent {
		for _, defs := range cur.Transitions {
			if len(defs) > 0 {
				return false
			}
		}
		if cur.IsVirtualRoot() {
			return true
		}
	}
}

// Ancestors returns the chain from n up to and including the virtual root,
// leaf-first (n, n.Parent, ..., root).
func (n *StateNode) Ancestors() []*StateNode {
	var chain []*StateNode
	for cur := n; ; cur = cur.Parent {
		chain = append(chain, cur)
		if cur.IsVirtualRoot() {
			break
		}
	}
	return chain
}

// IsAncestorOf reports whether n is an ancestor of (or equal to) other.
func (n *StateNode) IsAncestorOf(other *StateNode) bool {
	for cur := other; ; cur = cur.Parent {
		if cur == n {
			return true
		}
		if cur.IsVirtualRoot() {
			return cur == n
		}
	}
}

// FirstChild returns the first child in authoring order, or nil if n is a
// leaf. Used for leftmost-leaf default descent.
func (n *StateNode) FirstChild() *StateNode {
	pair := n.Children.Oldest()
	if pair == nil {
		return nil
	}
	return pair.Value
}

// OrderedChildren returns n's children in authoring order.
func (n *StateNode) OrderedChildren() []*StateNode {
	children := make([]*StateNode, 0, n.Children.Len())
	for pair := n.Children.Oldest(); pair != nil; pair = pair.Next() {
		children = append(children, pair.Value)
	}
	return children
}

// LCA returns the deepest node that is an ancestor of (or equal to) every
// node in nodes. Panics if nodes is empty; callers always pass at least one
// source and one target.
func LCA(nodes ...*StateNode) *StateNode {
	if len(nodes) == 0 {
		panic("graph: LCA requires at least one node")
	}
	common := reverseChain(nodes[0])
	for _, n := range nodes[1:] {
		common = commonPrefix(common, reverseChain(n))
	}
	return common[len(common)-1]
}

// reverseChain returns n's ancestor chain root-first (virtual root, ...,
// n), the reverse of Ancestors.
func reverseChain(n *StateNode) []*StateNode {
	chain := n.Ancestors()
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// DescendLeaves resolves the leaf(s) reached by entering n: n itself if
// it's already a leaf, the leftmost descendant leaf if n is nested, or one
// leaf per branch if n (or any node on the way down) is concurrent.
func DescendLeaves(n *StateNode) []*StateNode {
	switch n.ChildrenMode {
	case ModeLeaf:
		return []*StateNode{n}
	case ModeConcurrent:
		var leaves []*StateNode
		for _, child := range n.OrderedChildren() {
			leaves = append(leaves, DescendLeaves(child)...)
		}
		return leaves
	default: // ModeNested
		return DescendLeaves(n.FirstChild())
	}
}

// commonPrefix returns the longest shared prefix of two root-first chains.
func commonPrefix(a, b []*StateNode) []*StateNode {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
