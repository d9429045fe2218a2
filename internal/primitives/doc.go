// Package primitives provides the foundational, dependency-free building
// blocks for the statechart engine: the opaque state/event tags, the event
// value type, and the thread-safe extended-state store shared by guards and
// effects.
//
// This package uses only the Go standard library: it sits beneath every
// other internal package and must stay free of anything that could create
// an import cycle.
package primitives
