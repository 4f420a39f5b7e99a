package graph

import (
	"fmt"
	"strings"
)

const (
	startFill = "#90EE90"
	endFill   = "#FFB6C1"
	entryFill = "#87CEEB"
)

// MermaidOptions tunes DrawMermaidWithOptions.
type MermaidOptions struct {
	// Direction is the flowchart direction, "TD" when empty.
	Direction string
	// Descriptions labels each node with its description when it has one.
	Descriptions bool
}

// Exporter renders a graph as text.
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter returns an exporter for g.
func NewExporter[S any](g *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: g}
}

// DrawMermaid renders the compiled graph as a Mermaid flowchart.
func (r *StateRunnable[S]) DrawMermaid() string {
	return NewExporter(r.graph).DrawMermaid()
}

// DrawMermaid renders a top-down flowchart.
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{})
}

// DrawMermaidWithOptions renders the graph. Static edges are solid and
// conditional targets dotted. A conditional edge without declared targets
// points to a "?" placeholder.
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	g := ge.graph
	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	var b mermaid
	b.line("flowchart %s", opts.Direction)

	if g.entryPoint != "" {
		b.terminal("START", startFill)
	}
	for _, name := range g.order {
		label := name
		if opts.Descriptions && g.nodes[name].Description != "" {
			label = name + ": " + g.nodes[name].Description
		}
		b.line("    %s[%q]", name, label)
	}
	if ge.referencesEnd() {
		b.terminal(END, endFill)
	}

	if g.entryPoint != "" {
		b.edge("START", "-->", g.entryPoint)
	}
	for _, e := range g.edges {
		b.edge(e.From, "-->", e.To)
	}
	for _, from := range g.order {
		ce, ok := g.conditionalEdges[from]
		switch {
		case !ok:
		case len(ce.targets) == 0:
			b.edge(from, "-.->", from+"_condition((?))")
			b.line("    style %s_condition fill:#FFFFE0,stroke:#333,stroke-dasharray: 5 5", from)
		default:
			for _, to := range ce.targets {
				b.edge(from, "-.->", to)
			}
		}
	}

	if g.entryPoint != "" {
		b.line("    style %s fill:%s", g.entryPoint, entryFill)
	}
	return b.String()
}

func (ge *Exporter[S]) referencesEnd() bool {
	for _, name := range ge.graph.order {
		for _, to := range ge.graph.successors(name) {
			if to == END {
				return true
			}
		}
	}
	return false
}

type mermaid struct {
	strings.Builder
}

func (m *mermaid) line(format string, args ...any) {
	fmt.Fprintf(m, format, args...)
	m.WriteByte('\n')
}

func (m *mermaid) terminal(name, fill string) {
	m.line("    %s([%q])", name, name)
	m.line("    style %s fill:%s", name, fill)
}

func (m *mermaid) edge(from, arrow, to string) {
	m.line("    %s %s %s", from, arrow, to)
}
