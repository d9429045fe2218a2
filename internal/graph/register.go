package graph

import (
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// AddTransition registers def under trigger on n, enforcing the authoring
// rule: within a single (node, trigger) list, at most one
// entry may be guardless, and if present it must be the last. The check is
// a single comparison because it also catches a second guardless entry,
// which would necessarily be appended after the first.
func (n *StateNode) AddTransition(trigger primitives.EventKind, def *TransitionDefinition) error {
	existing := n.Transitions[trigger]
	if len(existing) > 0 && existing[len(existing)-1].Guard == nil {
		return &hfsmerr.NullChoiceError{State: string(n.Kind), Trigger: string(trigger)}
	}
	n.Transitions[trigger] = append(existing, def)
	return nil
}
