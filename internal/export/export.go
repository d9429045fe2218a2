// Package export renders a frozen graph plus its active configuration as
// human-readable diagram text in Graphviz DOT, Mermaid, or
// state-machine-cat syntax. It implements engine.Exporter so the runtime
// never sees format-specific code.
package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/arnevik/hfsmx/internal/engine"
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

// Renderer is the stock Exporter implementation.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces diagram text for g in the given format, highlighting the
// active configuration where the dialect supports it.
func (r *Renderer) Render(g *graph.Graph, active mind.StateOfMind, format engine.ExportFormat) (string, error) {
	switch format {
	case engine.FormatDOT:
		return renderDOT(g, active), nil
	case engine.FormatMermaid:
		return renderMermaid(g), nil
	case engine.FormatSMCat:
		return renderSMCat(g), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// edge is one rendered transition arrow. Forks and joins contribute one
// edge per source-target pair.
type edge struct {
	from, to primitives.StateKind
	label    string
}

// collectEdges walks every node's transition lists and flattens them to
// arrows, labelled with the trigger plus any authored label. The result is
// sorted for deterministic output; joins are deduplicated by their shared
// definition.
func collectEdges(g *graph.Graph) []edge {
	var edges []edge
	seen := map[*graph.TransitionDefinition]bool{}
	for _, n := range g.AllNodes() {
		for kind, defs := range n.Transitions {
			for _, def := range defs {
				if seen[def] {
					continue
				}
				seen[def] = true
				label := string(kind)
				if def.Label != "" {
					label += " / " + def.Label
				} else if def.Guard != nil {
					label += " [guarded]"
				}
				for _, src := range def.AllSources() {
					for _, target := range def.Targets {
						edges = append(edges, edge{from: src.Kind, to: target.Kind, label: label})
					}
				}
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		if edges[i].to != edges[j].to {
			return edges[i].to < edges[j].to
		}
		return edges[i].label < edges[j].label
	})
	return edges
}

// renderDOT generates Graphviz DOT source: composite states become
// clusters, active states are filled.
func renderDOT(g *graph.Graph, active mind.StateOfMind) string {
	var buf bytes.Buffer
	buf.WriteString("digraph statechart {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, fontsize=10, style=rounded];\n")
	buf.WriteString("  edge [fontsize=9];\n")

	for _, top := range g.TopLevelNodes() {
		renderDOTState(&buf, top, active, "  ")
	}
	for _, e := range collectEdges(g) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.from, e.to, e.label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func renderDOTState(buf *bytes.Buffer, n *graph.StateNode, active mind.StateOfMind, indent string) {
	if n.IsLeaf() {
		style := ""
		if active.Contains(n.Kind) {
			style = " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, n.Kind, n.Kind, style)
		return
	}
	fmt.Fprintf(buf, "%ssubgraph \"cluster_%s\" {\n", indent, n.Kind)
	fmt.Fprintf(buf, "%s  label=\"%s (%s)\";\n", indent, n.Kind, n.ChildrenMode)
	if active.Contains(n.Kind) {
		fmt.Fprintf(buf, "%s  style=filled; fillcolor=lightyellow;\n", indent)
	}
	for _, child := range n.OrderedChildren() {
		renderDOTState(buf, child, active, indent+"  ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// renderMermaid generates a Mermaid stateDiagram-v2 document. Composite
// states nest; Mermaid has no cluster highlight, so the active
// configuration is not marked.
func renderMermaid(g *graph.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&buf, "    [*] --> %s\n", g.InitialLeaf().Kind)
	for _, top := range g.TopLevelNodes() {
		renderMermaidState(&buf, top, "    ")
	}
	for _, e := range collectEdges(g) {
		fmt.Fprintf(&buf, "    %s --> %s : %s\n", e.from, e.to, e.label)
	}
	return buf.String()
}

func renderMermaidState(buf *bytes.Buffer, n *graph.StateNode, indent string) {
	if n.IsLeaf() {
		fmt.Fprintf(buf, "%sstate %s\n", indent, n.Kind)
		return
	}
	fmt.Fprintf(buf, "%sstate %s {\n", indent, n.Kind)
	for i, child := range n.OrderedChildren() {
		if n.ChildrenMode == graph.ModeConcurrent && i > 0 {
			fmt.Fprintf(buf, "%s    --\n", indent)
		}
		renderMermaidState(buf, child, indent+"    ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// renderSMCat generates state-machine-cat source: nesting in braces,
// concurrent regions separated by |, transitions last.
func renderSMCat(g *graph.Graph) string {
	var buf bytes.Buffer
	tops := g.TopLevelNodes()
	for i, top := range tops {
		renderSMCatState(&buf, top, "")
		if i < len(tops)-1 {
			buf.WriteString(",\n")
		} else {
			buf.WriteString(";\n")
		}
	}
	buf.WriteString("\n")
	for _, e := range collectEdges(g) {
		fmt.Fprintf(&buf, "%s => %s: %s;\n", e.from, e.to, e.label)
	}
	return buf.String()
}

func renderSMCatState(buf *bytes.Buffer, n *graph.StateNode, indent string) {
	fmt.Fprintf(buf, "%s%s", indent, n.Kind)
	if n.IsLeaf() {
		return
	}
	sep := ",\n"
	if n.ChildrenMode == graph.ModeConcurrent {
		sep = "\n" + indent + "  |\n"
	}
	buf.WriteString(" {\n")
	children := n.OrderedChildren()
	for i, child := range children {
		renderSMCatState(buf, child, indent+"  ")
		if i < len(children)-1 {
			buf.WriteString(sep)
		} else {
			buf.WriteString("\n")
		}
	}
	fmt.Fprintf(buf, "%s}", indent)
}
