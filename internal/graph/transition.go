package graph

import "github.com/arnevik/hfsmx/internal/primitives"

// Guard is a pure predicate over the triggering event. The engine treats it
// as opaque; the user may close over external state.
type Guard func(e primitives.Event) bool

// Effect is a transition's side effect, invoked exactly once per executed
// transition regardless of how many targets it has.
type Effect func(e primitives.Event)

// Variant tags the four TransitionDefinition shapes.
type Variant int

const (
	// VariantPlain has exactly one source and one target.
	VariantPlain Variant = iota
	// VariantFork has one source and two or more targets, each in a
	// distinct concurrent region of a common ancestor.
	VariantFork
	// VariantJoin has one target and one source per concurrent sibling;
	// it fires only once every sibling has reached its declared source.
	VariantJoin
	// VariantNoOp is synthesized by the selection algorithm, never
	// authored directly and never stored in a node's Transitions map.
	VariantNoOp
)

// TransitionDefinition describes one possible transition, as authored by
// the builder (or compiled from a declarative configio.MachineConfig).
type TransitionDefinition struct {
	Variant Variant
	Trigger primitives.EventKind

	// Source is the node that owns this registration for Plain/Fork.
	// Sources holds one entry per concurrent sibling for Join; Source is
	// left nil in that case.
	Source  *StateNode
	Sources []*StateNode

	Guard  Guard
	Effect Effect

	// Targets holds exactly one entry for Plain/Join, two or more for
	// Fork.
	Targets []*StateNode

	// Label is an optional human-readable name surfaced only by the
	// export package's diagram rendering; it never affects dispatch.
	Label string
}

// NoOp is the sentinel returned by the selection algorithm when nothing at
// a given node matches; it carries no targets and executes nothing.
var NoOp = &TransitionDefinition{Variant: VariantNoOp}

// IsNoOp reports whether t is the synthesized no-op sentinel.
func (t *TransitionDefinition) IsNoOp() bool {
	return t == nil || t.Variant == VariantNoOp
}

// AllSources returns every source node this definition fires from: Source
// for Plain/Fork, Sources for Join.
func (t *TransitionDefinition) AllSources() []*StateNode {
	if t.Variant == VariantJoin {
		return t.Sources
	}
	if t.Source == nil {
		return nil
	}
	return []*StateNode{t.Source}
}
