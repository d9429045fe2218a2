package builder

import (
	"fmt"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// Build resolves every deferred target reference, merges join declarations,
// resolves the initial leaf, and freezes the accumulated tree into a
// graph.Graph. Registration-order errors (guardless-not-last) surface
// first; structural issues (duplicates, unknown targets, non-leaf initial)
// are accumulated and returned together.
func (b *GraphBuilder) Build() (*graph.Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	joinDefs := make(map[string]*graph.TransitionDefinition)
	joinSources := b.groupJoinSources()

	for _, p := range b.pending {
		// A source whose registration was rejected (duplicate kind, mixed
		// child modes) is detached; its issue is already recorded.
		if p.source.Parent == nil {
			continue
		}
		targets, ok := b.resolveTargets(p)
		if !ok {
			continue
		}
		def, ok := b.materialize(p, targets, joinDefs, joinSources)
		if !ok {
			continue
		}
		if err := p.source.AddTransition(p.trigger, def); err != nil {
			return nil, err
		}
	}

	initial, err := b.resolveInitial()
	if err != nil {
		return nil, err
	}

	if b.issues.HasIssues() {
		return nil, b.issues
	}

	return graph.New(b.root, b.index, initial, b.observers)
}

// groupJoinSources collects, per join group, every source node declared
// for it, in authoring order.
func (b *GraphBuilder) groupJoinSources() map[string][]*graph.StateNode {
	groups := make(map[string][]*graph.StateNode)
	for _, p := range b.pending {
		if p.variant != graph.VariantJoin {
			continue
		}
		groups[joinKey(p)] = append(groups[joinKey(p)], p.source)
	}
	return groups
}

// joinKey identifies the join group a declaration belongs to: same
// trigger, same target, under the same concurrent ancestor.
func joinKey(p *pendingTransition) string {
	ancestor := primitives.StateKind("")
	for _, a := range p.source.Ancestors() {
		if a.ChildrenMode == graph.ModeConcurrent {
			ancestor = a.Kind
			break
		}
	}
	return fmt.Sprintf("%s\x00%s\x00%s", p.trigger, p.targets[0], ancestor)
}

func (b *GraphBuilder) resolveTargets(p *pendingTransition) ([]*graph.StateNode, bool) {
	if p.variant == graph.VariantFork && len(p.targets) < 2 {
		b.issues.Add(hfsmerr.CodeForkRegionConflict, string(p.source.Kind), "fork must name at least two targets")
		return nil, false
	}
	targets := make([]*graph.StateNode, 0, len(p.targets))
	resolved := true
	for _, kind := range p.targets {
		node, ok := b.index[kind]
		if !ok {
			b.issues.Add(hfsmerr.CodeUnknownTarget, string(kind), "transition from %q targets unregistered state %q", p.source.Kind, kind)
			resolved = false
			continue
		}
		targets = append(targets, node)
	}
	return targets, resolved
}

// materialize turns a pending declaration into its TransitionDefinition.
// Join declarations of the same group share one definition, registered on
// every declared source; the first declaration's guard, effect, and label
// win.
func (b *GraphBuilder) materialize(p *pendingTransition, targets []*graph.StateNode, joinDefs map[string]*graph.TransitionDefinition, joinSources map[string][]*graph.StateNode) (*graph.TransitionDefinition, bool) {
	if p.variant != graph.VariantJoin {
		return &graph.TransitionDefinition{
			Variant: p.variant,
			Trigger: p.trigger,
			Source:  p.source,
			Guard:   p.guard,
			Effect:  p.effect,
			Targets: targets,
			Label:   p.label,
		}, true
	}

	key := joinKey(p)
	if def, ok := joinDefs[key]; ok {
		return def, true
	}
	def := &graph.TransitionDefinition{
		Variant: graph.VariantJoin,
		Trigger: p.trigger,
		Sources: joinSources[key],
		Guard:   p.guard,
		Effect:  p.effect,
		Targets: targets,
		Label:   p.label,
	}
	joinDefs[key] = def
	return def, true
}

// resolveInitial applies the default (first registered top-level state,
// descended to its leftmost leaf) when no initial was declared, and
// validates a declared one.
func (b *GraphBuilder) resolveInitial() (primitives.StateKind, error) {
	if b.initial == "" {
		top := b.root.FirstChild()
		if top == nil {
			b.issues.Add(hfsmerr.CodeInitialNotLeaf, "", "graph has no states")
			return "", nil
		}
		return graph.DescendLeaves(top)[0].Kind, nil
	}

	node, ok := b.index[b.initial]
	if !ok {
		return "", &hfsmerr.UnknownStateError{Kind: string(b.initial)}
	}
	if !node.IsLeaf() {
		b.issues.Add(hfsmerr.CodeInitialNotLeaf, string(b.initial), "initial state must be a leaf")
	}
	return b.initial, nil
}
