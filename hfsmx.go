// Package hfsmx is a library for building and executing hierarchical
// finite state machines in the style of UML 2 state diagrams: nested
// states, orthogonal regions, guarded transitions, fork/join
// pseudostates, entry/exit actions, side effects, and serialized event
// application with queuing.
//
// Clients declare a machine through the fluent builder (or a YAML
// config), then drive it by applying events:
//
//	m, err := hfsmx.New(func(b *hfsmx.GraphBuilder) {
//		b.State("Solid").On("Melted", "Liquid")
//		b.State("Liquid").On("Vaporized", "Gas")
//		b.State("Gas")
//	})
//	...
//	som, err := m.Apply(ctx, hfsmx.NewEvent("Melted", nil)).Wait(ctx)
package hfsmx

import (
	"context"

	"github.com/arnevik/hfsmx/internal/builder"
	"github.com/arnevik/hfsmx/internal/configio"
	"github.com/arnevik/hfsmx/internal/engine"
	"github.com/arnevik/hfsmx/internal/export"
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// Core vocabulary, aliased from the internal packages so callers never
// import them directly.
type (
	// StateKind tags a user state; kinds are unique across a graph.
	StateKind = primitives.StateKind
	// EventKind tags a user event; transitions are keyed by it.
	EventKind = primitives.EventKind
	// Event is one occurrence applied to a machine.
	Event = primitives.Event
	// Context is optional thread-safe extended state for user callbacks.
	Context = primitives.Context

	// StatePath is a root-to-leaf chain of kinds.
	StatePath = mind.StatePath
	// StateOfMind is the active configuration: the set of occupied paths.
	StateOfMind = mind.StateOfMind

	// Guard gates a transition on the triggering event.
	Guard = graph.Guard
	// Effect is a transition side effect, run exactly once per firing.
	Effect = graph.Effect
	// Callback is an entry/exit action.
	Callback = graph.Callback
	// Observer sees every executed sub-transition as (from, event, to).
	Observer = graph.Observer

	// Machine is a running state machine instance.
	Machine = engine.Machine
	// Handle is the per-event completion future returned by Apply.
	Handle = engine.Handle
	// Option configures a Machine at construction.
	Option = engine.Option
	// ExportFormat selects a diagram dialect for Machine.Export.
	ExportFormat = engine.ExportFormat

	// GraphBuilder is the declarative authoring surface.
	GraphBuilder = builder.GraphBuilder
	// StateBuilder configures one registered state.
	StateBuilder = builder.StateBuilder
	// TransitionOption customizes a transition registration.
	TransitionOption = builder.TransitionOption

	// MachineConfig is the YAML-serializable authoring form.
	MachineConfig = configio.MachineConfig
	// Bindings resolves config-referenced guard/effect/callback names.
	Bindings = configio.Bindings
)

// Diagram dialects accepted by Machine.Export.
const (
	FormatDOT     = engine.FormatDOT
	FormatMermaid = engine.FormatMermaid
	FormatSMCat   = engine.FormatSMCat
)

// Machine construction options.
var (
	WithProductionMode = engine.WithProductionMode
	WithQueueSize      = engine.WithQueueSize
	WithExporter       = engine.WithExporter
)

// Transition registration options.
var (
	WithGuard  = builder.WithGuard
	WithEffect = builder.WithEffect
	WithLabel  = builder.WithLabel
)

// Error kinds, matched with errors.Is.
var (
	ErrUnknownState         = hfsmerr.ErrUnknownState
	ErrInvalidTransition    = hfsmerr.ErrInvalidTransition
	ErrNullChoiceMustBeLast = hfsmerr.ErrNullChoiceMustBeLast
	ErrInvalidStateMachine  = hfsmerr.ErrInvalidStateMachine
	ErrStopped              = engine.ErrStopped
)

// NewEvent constructs an Event.
func NewEvent(kind EventKind, data any) Event {
	return primitives.NewEvent(kind, data)
}

// NewContext creates empty extended state.
func NewContext() *Context {
	return primitives.NewContext()
}

// New builds a graph through build and starts a Machine over it. In
// non-production mode the static analyzer must pass or no machine is
// returned. The stock diagram renderer is wired in; WithExporter
// overrides it.
func New(build func(*GraphBuilder), opts ...Option) (*Machine, error) {
	gb := builder.New()
	build(gb)
	g, err := gb.Build()
	if err != nil {
		return nil, err
	}
	return newMachine(g, opts)
}

// NewFromConfig compiles a declarative config against bindings and starts
// a Machine over the result.
func NewFromConfig(cfg *MachineConfig, b Bindings, opts ...Option) (*Machine, error) {
	g, err := configio.Compile(cfg, b)
	if err != nil {
		return nil, err
	}
	return newMachine(g, opts)
}

// NewFromYAML parses a YAML machine document and starts a Machine over it.
func NewFromYAML(ctx context.Context, data []byte, b Bindings, opts ...Option) (*Machine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := configio.LoadYAML(data)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, b, opts...)
}

// LoadConfigYAML parses and validates a machine document without starting
// a machine.
func LoadConfigYAML(data []byte) (*MachineConfig, error) {
	return configio.LoadYAML(data)
}

// DescribeConfig reverses a running machine's graph into its declarative
// form, suitable for MachineConfig.DumpYAML.
func DescribeConfig(id string, m *Machine) *MachineConfig {
	return configio.Describe(id, m.Graph())
}

func newMachine(g *graph.Graph, opts []Option) (*Machine, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, engine.WithExporter(export.NewRenderer()))
	all = append(all, opts...)
	return engine.New(g, all...)
}
