package configio

import (
	"fmt"
	"sort"

	"github.com/arnevik/hfsmx/internal/builder"
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// Bindings resolves the names a MachineConfig references to executable
// guards, effects, and entry/exit callbacks. A referenced name missing
// from its table fails compilation.
type Bindings struct {
	Guards    map[string]graph.Guard
	Effects   map[string]graph.Effect
	Callbacks map[string]graph.Callback
}

// Compile turns a validated config into a frozen graph via the builder, so
// a YAML-authored machine passes through exactly the same registration
// rules and analyzer checks as a fluently-built one.
func Compile(cfg *MachineConfig, b Bindings) (*graph.Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gb := builder.New()
	if cfg.Initial != "" {
		gb.Initial(primitives.StateKind(cfg.Initial))
	}
	for i := range cfg.States {
		sb := gb.State(primitives.StateKind(cfg.States[i].Kind))
		if err := compileState(sb, &cfg.States[i], b); err != nil {
			return nil, err
		}
	}
	return gb.Build()
}

func compileState(sb *builder.StateBuilder, s *StateConfig, b Bindings) error {
	if s.Enter != "" {
		cb, ok := b.Callbacks[s.Enter]
		if !ok {
			return fmt.Errorf("configio: state %q: unbound enter callback %q", s.Kind, s.Enter)
		}
		sb.OnEnter(cb)
	}
	if s.Exit != "" {
		cb, ok := b.Callbacks[s.Exit]
		if !ok {
			return fmt.Errorf("configio: state %q: unbound exit callback %q", s.Kind, s.Exit)
		}
		sb.OnExit(cb)
	}

	for i := range s.On {
		if err := compileTransition(sb, s.Kind, &s.On[i], b); err != nil {
			return err
		}
	}

	for i := range s.Children {
		child := &s.Children[i]
		var cb *builder.StateBuilder
		if s.Concurrent {
			cb = sb.Concurrent(primitives.StateKind(child.Kind))
		} else {
			cb = sb.Nested(primitives.StateKind(child.Kind))
		}
		if err := compileState(cb, child, b); err != nil {
			return err
		}
	}
	return nil
}

func compileTransition(sb *builder.StateBuilder, state string, t *TransitionConfig, b Bindings) error {
	var opts []builder.TransitionOption
	if t.Guard != "" {
		g, ok := b.Guards[t.Guard]
		if !ok {
			return fmt.Errorf("configio: state %q event %q: unbound guard %q", state, t.Event, t.Guard)
		}
		opts = append(opts, builder.WithGuard(g))
	}
	if t.Effect != "" {
		fx, ok := b.Effects[t.Effect]
		if !ok {
			return fmt.Errorf("configio: state %q event %q: unbound effect %q", state, t.Event, t.Effect)
		}
		opts = append(opts, builder.WithEffect(fx))
	}
	if t.Label != "" {
		opts = append(opts, builder.WithLabel(t.Label))
	}

	trigger := primitives.EventKind(t.Event)
	switch {
	case len(t.Targets) > 0:
		targets := make([]primitives.StateKind, len(t.Targets))
		for i, kind := range t.Targets {
			targets[i] = primitives.StateKind(kind)
		}
		sb.OnFork(trigger, targets, opts...)
	case t.Join:
		sb.OnJoin(trigger, primitives.StateKind(t.Target), opts...)
	default:
		sb.On(trigger, primitives.StateKind(t.Target), opts...)
	}
	return nil
}

// Describe reverses an already-frozen graph into its declarative form,
// suitable for DumpYAML. Function-valued guards, effects, and callbacks
// have no names to recover, so their slots are always left empty; an
// authored transition label is carried over in the Label field.
func Describe(id string, g *graph.Graph) *MachineConfig {
	cfg := &MachineConfig{
		ID:      id,
		Initial: string(g.InitialLeaf().Kind),
	}
	for _, top := range g.TopLevelNodes() {
		cfg.States = append(cfg.States, describeState(top))
	}
	return cfg
}

func describeState(n *graph.StateNode) StateConfig {
	s := StateConfig{
		Kind:       string(n.Kind),
		Concurrent: n.ChildrenMode == graph.ModeConcurrent,
	}
	seenJoin := map[*graph.TransitionDefinition]bool{}
	for _, kind := range orderedTriggers(n) {
		for _, def := range n.Transitions[kind] {
			t := TransitionConfig{Event: string(kind), Label: def.Label}
			switch def.Variant {
			case graph.VariantFork:
				for _, target := range def.Targets {
					t.Targets = append(t.Targets, string(target.Kind))
				}
			case graph.VariantJoin:
				if seenJoin[def] {
					continue
				}
				seenJoin[def] = true
				t.Join = true
				t.Target = string(def.Targets[0].Kind)
			default:
				t.Target = string(def.Targets[0].Kind)
			}
			s.On = append(s.On, t)
		}
	}
	for _, child := range n.OrderedChildren() {
		s.Children = append(s.Children, describeState(child))
	}
	return s
}

// orderedTriggers returns n's trigger kinds sorted for deterministic
// output; the map itself has no stable iteration order.
func orderedTriggers(n *graph.StateNode) []primitives.EventKind {
	kinds := make([]primitives.EventKind, 0, len(n.Transitions))
	for kind := range n.Transitions {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
