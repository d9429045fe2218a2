// Package primitives defines the opaque marker notions used to tag
// user-provided state and event values, per the type-tag indexing design
// note: the graph keys purely on these stable tags rather than reflecting
// over the user's own state/event types.
package primitives

// StateKind tags a user state. Two states are the same node iff their kinds
// are equal; kinds are unique across an entire graph.
type StateKind string

// EventKind tags a user event. Transitions are keyed by EventKind.
type EventKind string
