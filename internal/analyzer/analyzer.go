// Package analyzer implements the static validator that runs once at
// machine construction, in non-production mode. It reports every issue it
// finds rather than stopping at the first.
package analyzer

import (
	"log"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
)

// Analyze runs every structural check against g and returns the aggregated
// error (nil if the graph is valid). Every issue found is also logged, so a
// failed construction leaves a trail even when the caller discards the
// error detail.
func Analyze(g *graph.Graph) error {
	result := &hfsmerr.InvalidStateMachineError{}

	checkInitialIsLeaf(g, result)
	checkReachability(g, result)
	checkNoAbstractTargets(g, result)
	checkForkRegions(g, result)
	checkJoinCoverage(g, result)

	if !result.HasIssues() {
		return nil
	}
	for _, issue := range result.Issues {
		log.Printf("hfsmx: analyzer: %s", issue.String())
	}
	return result
}

func checkInitialIsLeaf(g *graph.Graph, result *hfsmerr.InvalidStateMachineError) {
	initial := g.InitialLeaf()
	if initial == nil {
		result.Add(hfsmerr.CodeInitialNotLeaf, "", "graph has no initial state")
		return
	}
	if !initial.IsLeaf() {
		result.Add(hfsmerr.CodeInitialNotLeaf, string(initial.Kind), "initial state must be a leaf")
	}
}

// checkReachability marks every leaf reachable from the initial leaf by
// following transitions (including ones defined on ancestors, which apply
// to every descendant leaf through ancestor fallback) and flags any
// registered leaf never reached.
func checkReachability(g *graph.Graph, result *hfsmerr.InvalidStateMachineError) {
	initial := g.InitialLeaf()
	if initial == nil {
		return
	}

	reachable := map[*graph.StateNode]bool{}
	markAncestors := func(n *graph.StateNode) {
		for _, a := range n.Ancestors() {
			reachable[a] = true
		}
	}

	queue := []*graph.StateNode{initial}
	markAncestors(initial)

	for len(queue) > 0 {
		leaf := queue[0]
		queue = queue[1:]

		for _, ancestor := range leaf.Ancestors() {
			for _, defs := range ancestor.Transitions {
				for _, def := range defs {
					for _, target := range def.Targets {
						for _, entered := range graph.DescendLeaves(target) {
							if reachable[entered] {
								continue
							}
							markAncestors(entered)
							queue = append(queue, entered)
						}
					}
				}
			}
		}
	}

	for _, n := range g.AllNodes() {
		if n.IsLeaf() && !reachable[n] {
			result.Add(hfsmerr.CodeUnreachableState, string(n.Kind), "state is not reachable from the initial state")
		}
	}
}

// checkNoAbstractTargets enforces that no Plain or Join transition targets
// an abstract state directly. Fork targets are exempt: a fork target is a
// whole concurrent region, and entering it descends to its leftmost leaf
// (or fans out to all of its leaves), so an abstract fork target is the
// normal case, not an error.
func checkNoAbstractTargets(g *graph.Graph, result *hfsmerr.InvalidStateMachineError) {
	for _, n := range g.AllNodes() {
		for _, defs := range n.Transitions {
			for _, def := range defs {
				if def.Variant == graph.VariantFork {
					continue
				}
				for _, target := range def.Targets {
					if target.IsAbstract() {
						result.Add(hfsmerr.CodeAbstractTarget, string(target.Kind), "transition from %q targets abstract state %q directly", n.Kind, target.Kind)
					}
				}
			}
		}
	}
}

func checkForkRegions(g *graph.Graph, result *hfsmerr.InvalidStateMachineError) {
	for _, n := range g.AllNodes() {
		for _, defs := range n.Transitions {
			for _, def := range defs {
				if def.Variant != graph.VariantFork {
					continue
				}
				validateForkRegions(def, result)
			}
		}
	}
}

func validateForkRegions(def *graph.TransitionDefinition, result *hfsmerr.InvalidStateMachineError) {
	if len(def.Targets) < 2 {
		result.Add(hfsmerr.CodeForkRegionConflict, string(def.Source.Kind), "fork must have at least two targets")
		return
	}

	ancestor := graph.LCA(def.Targets...)
	if ancestor.ChildrenMode != graph.ModeConcurrent {
		result.Add(hfsmerr.CodeForkRegionConflict, string(def.Source.Kind), "fork targets share ancestor %q which is not concurrent", ancestor.Kind)
		return
	}

	seen := map[*graph.StateNode]bool{}
	for _, target := range def.Targets {
		region := regionUnder(ancestor, target)
		if region == nil {
			result.Add(hfsmerr.CodeForkRegionConflict, string(def.Source.Kind), "fork target %q is not under the common concurrent ancestor %q", target.Kind, ancestor.Kind)
			continue
		}
		if seen[region] {
			result.Add(hfsmerr.CodeForkRegionConflict, string(def.Source.Kind), "two fork targets land in the same concurrent region %q", region.Kind)
		}
		seen[region] = true
	}
}

// regionUnder returns the immediate child of ancestor that is on the path
// to target, or nil if target is not a descendant of ancestor.
func regionUnder(ancestor, target *graph.StateNode) *graph.StateNode {
	for cur := target; ; cur = cur.Parent {
		if cur.Parent == ancestor {
			return cur
		}
		if cur.IsVirtualRoot() {
			return nil
		}
	}
}

func checkJoinCoverage(g *graph.Graph, result *hfsmerr.InvalidStateMachineError) {
	for _, n := range g.AllNodes() {
		for _, defs := range n.Transitions {
			for _, def := range defs {
				if def.Variant != graph.VariantJoin {
					continue
				}
				validateJoinCoverage(def, result)
			}
		}
	}
}

func validateJoinCoverage(def *graph.TransitionDefinition, result *hfsmerr.InvalidStateMachineError) {
	if len(def.Sources) == 0 {
		result.Add(hfsmerr.CodeJoinCoverage, "", "join has no sources")
		return
	}

	ancestor := nearestConcurrentAncestor(def.Sources[0])
	if ancestor == nil {
		result.Add(hfsmerr.CodeJoinCoverage, string(def.Sources[0].Kind), "join source has no concurrent ancestor to join across")
		return
	}

	covered := map[*graph.StateNode]bool{}
	for _, src := range def.Sources {
		region := regionUnder(ancestor, src)
		if region == nil {
			result.Add(hfsmerr.CodeJoinCoverage, string(src.Kind), "join source is not under the concurrent region %q", ancestor.Kind)
			continue
		}
		if covered[region] {
			result.Add(hfsmerr.CodeJoinCoverage, string(region.Kind), "two join sources cover the same concurrent region %q", region.Kind)
		}
		covered[region] = true
	}
	for _, sibling := range ancestor.OrderedChildren() {
		if !covered[sibling] {
			result.Add(hfsmerr.CodeJoinCoverage, string(sibling.Kind), "concurrent region %q is not covered by the join", sibling.Kind)
		}
	}
}

// nearestConcurrentAncestor walks up from n (inclusive) to the closest
// ancestor whose children are concurrent regions, or nil if none exists.
func nearestConcurrentAncestor(n *graph.StateNode) *graph.StateNode {
	for _, a := range n.Ancestors() {
		if a.ChildrenMode == graph.ModeConcurrent {
			return a
		}
	}
	return nil
}
