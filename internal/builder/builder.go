// Package builder is the declarative authoring surface: a fluent
// GraphBuilder/StateBuilder pair that accumulates states, transitions,
// forks, joins, and callbacks, then freezes them into a graph.Graph.
// Transition targets may be named before they are registered; resolution
// is deferred to Build.
package builder

import (
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// TransitionOption customizes one transition registration.
type TransitionOption func(*transitionSettings)

type transitionSettings struct {
	guard  graph.Guard
	effect graph.Effect
	label  string
}

// WithGuard gates the transition on a predicate over the event.
func WithGuard(g graph.Guard) TransitionOption {
	return func(s *transitionSettings) { s.guard = g }
}

// WithEffect attaches a side effect, invoked exactly once per executed
// transition.
func WithEffect(fx graph.Effect) TransitionOption {
	return func(s *transitionSettings) { s.effect = fx }
}

// WithLabel names the transition for diagram rendering only.
func WithLabel(label string) TransitionOption {
	return func(s *transitionSettings) { s.label = label }
}

type pendingTransition struct {
	variant graph.Variant
	source  *graph.StateNode
	trigger primitives.EventKind
	targets []primitives.StateKind
	guard   graph.Guard
	effect  graph.Effect
	label   string
}

// GraphBuilder accumulates a state tree under the virtual root.
type GraphBuilder struct {
	root      *graph.StateNode
	index     map[primitives.StateKind]*graph.StateNode
	initial   primitives.StateKind
	observers []graph.Observer
	pending   []*pendingTransition
	issues    *hfsmerr.InvalidStateMachineError
	errs      []error
}

// New creates an empty GraphBuilder.
func New() *GraphBuilder {
	return &GraphBuilder{
		root:   graph.NewRoot(),
		index:  make(map[primitives.StateKind]*graph.StateNode),
		issues: &hfsmerr.InvalidStateMachineError{},
	}
}

// Initial declares the machine's initial leaf state. When never called,
// Build defaults to the first registered top-level state, descended to its
// leftmost leaf.
func (b *GraphBuilder) Initial(kind primitives.StateKind) *GraphBuilder {
	b.initial = kind
	return b
}

// Observe registers a global transition observer, invoked once per
// executed sub-transition target.
func (b *GraphBuilder) Observe(obs graph.Observer) *GraphBuilder {
	b.observers = append(b.observers, obs)
	return b
}

// State registers a top-level state and returns its builder.
func (b *GraphBuilder) State(kind primitives.StateKind) *StateBuilder {
	node := b.register(kind, b.root, graph.ModeNested)
	return &StateBuilder{b: b, node: node}
}

// register creates kind under parent, recording a duplicate-registration
// issue instead of overwriting when the kind already exists. mode is what
// parent's ChildrenMode must become for this child to make sense.
func (b *GraphBuilder) register(kind primitives.StateKind, parent *graph.StateNode, mode graph.ChildrenMode) *graph.StateNode {
	node := graph.NewNode(kind)
	if _, exists := b.index[kind]; exists {
		b.issues.Add(hfsmerr.CodeDuplicateState, string(kind), "state registered twice")
		return node
	}
	if parent.Children.Len() > 0 && parent.ChildrenMode != mode {
		b.issues.Add(hfsmerr.CodeDuplicateState, string(parent.Kind), "state mixes nested and concurrent children")
		return node
	}
	node.Parent = parent
	parent.ChildrenMode = mode
	parent.Children.Set(kind, node)
	b.index[kind] = node
	return node
}

// queue appends a pending transition, enforcing that a guardless entry is
// the last registered for its (state, trigger) pair.
func (b *GraphBuilder) queue(p *pendingTransition) {
	for i := len(b.pending) - 1; i >= 0; i-- {
		prev := b.pending[i]
		if prev.source != p.source || prev.trigger != p.trigger {
			continue
		}
		if prev.guard == nil {
			b.errs = append(b.errs, &hfsmerr.NullChoiceError{
				State:   string(p.source.Kind),
				Trigger: string(p.trigger),
			})
		}
		break
	}
	b.pending = append(b.pending, p)
}

// StateBuilder configures one registered state.
type StateBuilder struct {
	b    *GraphBuilder
	node *graph.StateNode
}

// Kind returns the state this builder configures.
func (sb *StateBuilder) Kind() primitives.StateKind {
	return sb.node.Kind
}

// Nested registers a mutually-exclusive child state.
func (sb *StateBuilder) Nested(kind primitives.StateKind) *StateBuilder {
	node := sb.b.register(kind, sb.node, graph.ModeNested)
	return &StateBuilder{b: sb.b, node: node}
}

// Concurrent registers an orthogonal region child; all Concurrent children
// of a state are simultaneously active whenever it is entered.
func (sb *StateBuilder) Concurrent(kind primitives.StateKind) *StateBuilder {
	node := sb.b.register(kind, sb.node, graph.ModeConcurrent)
	return &StateBuilder{b: sb.b, node: node}
}

// Up returns the parent state's builder, or sb itself at top level.
func (sb *StateBuilder) Up() *StateBuilder {
	if sb.node.Parent == nil || sb.node.Parent.IsVirtualRoot() {
		return sb
	}
	return &StateBuilder{b: sb.b, node: sb.node.Parent}
}

// On registers a plain transition from this state to target when trigger
// arrives.
func (sb *StateBuilder) On(trigger primitives.EventKind, target primitives.StateKind, opts ...TransitionOption) *StateBuilder {
	s := settings(opts)
	sb.b.queue(&pendingTransition{
		variant: graph.VariantPlain,
		source:  sb.node,
		trigger: trigger,
		targets: []primitives.StateKind{target},
		guard:   s.guard,
		effect:  s.effect,
		label:   s.label,
	})
	return sb
}

// OnFork registers a fork from this state into two or more targets, each
// expected to lie in a distinct concurrent region of a common ancestor.
func (sb *StateBuilder) OnFork(trigger primitives.EventKind, targets []primitives.StateKind, opts ...TransitionOption) *StateBuilder {
	s := settings(opts)
	sb.b.queue(&pendingTransition{
		variant: graph.VariantFork,
		source:  sb.node,
		trigger: trigger,
		targets: targets,
		guard:   s.guard,
		effect:  s.effect,
		label:   s.label,
	})
	return sb
}

// OnJoin declares this state as one join source for trigger. Joins
// declared with the same trigger and target across sibling concurrent
// regions merge into a single transition that fires only once every
// region has reached its declared source.
func (sb *StateBuilder) OnJoin(trigger primitives.EventKind, target primitives.StateKind, opts ...TransitionOption) *StateBuilder {
	s := settings(opts)
	sb.b.queue(&pendingTransition{
		variant: graph.VariantJoin,
		source:  sb.node,
		trigger: trigger,
		targets: []primitives.StateKind{target},
		guard:   s.guard,
		effect:  s.effect,
		label:   s.label,
	})
	return sb
}

// OnEnter sets the state's entry callback.
func (sb *StateBuilder) OnEnter(cb graph.Callback) *StateBuilder {
	sb.node.OnEnter = cb
	return sb
}

// OnExit sets the state's exit callback.
func (sb *StateBuilder) OnExit(cb graph.Callback) *StateBuilder {
	sb.node.OnExit = cb
	return sb
}

func settings(opts []TransitionOption) transitionSettings {
	var s transitionSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
