// Package mind defines StateOfMind, the machine's active configuration: a
// set of root-to-leaf StatePaths, plural because orthogonal regions let
// more than one be active at once.
package mind

import "github.com/arnevik/hfsmx/internal/primitives"

// StatePath is an ordered sequence of kinds from the virtual root's first
// real descendant down to a leaf.
type StatePath []primitives.StateKind

// Equal reports structural equality.
func (p StatePath) Equal(other StatePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Contains reports whether kind appears anywhere in the path.
func (p StatePath) Contains(kind primitives.StateKind) bool {
	for _, k := range p {
		if k == kind {
			return true
		}
	}
	return false
}

// Leaf returns the path's final (deepest) kind, or "" for an empty path.
func (p StatePath) Leaf() primitives.StateKind {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// StateOfMind is the set of currently active paths. It is an immutable
// value: every dispatched event produces a new StateOfMind rather than
// mutating one in place.
type StateOfMind struct {
	paths []StatePath
}

// New builds a StateOfMind from the given paths.
func New(paths ...StatePath) StateOfMind {
	cp := make([]StatePath, len(paths))
	copy(cp, paths)
	return StateOfMind{paths: cp}
}

// Paths returns the active paths.
func (s StateOfMind) Paths() []StatePath {
	return s.paths
}

// Contains reports whether any active path includes kind — equivalently,
// whether kind is the current leaf or an ancestor of it for some region.
func (s StateOfMind) Contains(kind primitives.StateKind) bool {
	for _, p := range s.paths {
		if p.Contains(kind) {
			return true
		}
	}
	return false
}

// HasPath reports whether target is one of the currently active paths
// (structural equality), used by the engine to detect a path already
// consumed by an earlier transition within the same dispatch step.
func (s StateOfMind) HasPath(target StatePath) bool {
	for _, p := range s.paths {
		if p.Equal(target) {
			return true
		}
	}
	return false
}

// Without returns a copy of s with every path equal to any of remove
// dropped.
func (s StateOfMind) Without(remove ...StatePath) StateOfMind {
	out := make([]StatePath, 0, len(s.paths))
	for _, p := range s.paths {
		drop := false
		for _, r := range remove {
			if p.Equal(r) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, p)
		}
	}
	return StateOfMind{paths: out}
}

// With returns a copy of s with the given paths appended.
func (s StateOfMind) With(add ...StatePath) StateOfMind {
	out := make([]StatePath, len(s.paths), len(s.paths)+len(add))
	copy(out, s.paths)
	out = append(out, add...)
	return StateOfMind{paths: out}
}
