package graph

import (
	"context"
	"fmt"
	"slices"
)

// StateGraph represents a state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// order keeps node names in insertion order for stable output
	order []string

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges contains a map between "From" node, while "To" node is derived based on the condition
	conditionalEdges map[string]conditionalEdge[S]

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// Schema defines how node updates are merged into the state
	Schema Schema[S]
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
// Adding a node under an existing name replaces it.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	if _, ok := g.nodes[name]; !ok {
		g.order = append(g.order, name)
	}
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// targets optionally lists every node the condition can return; Compile checks
// them and DrawMermaid draws them.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string, targets ...string) {
	g.conditionalEdges[from] = conditionalEdge[S]{
		condition: condition,
		targets:   targets,
	}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema Schema[S]) {
	g.Schema = schema
}

// Nodes returns the nodes in the order they were added.
func (g *StateGraph[S]) Nodes() []Node[S] {
	out := make([]Node[S], 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Compile validates the graph and returns a StateRunnable instance.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("entry point: %w: %s", ErrNodeNotFound, g.entryPoint)
	}

	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: %w: %s", edge.From, edge.To, ErrNodeNotFound, edge.From)
		}
		if !g.isTarget(edge.To) {
			return nil, fmt.Errorf("edge %s -> %s: %w: %s", edge.From, edge.To, ErrNodeNotFound, edge.To)
		}
	}

	for from, ce := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edge from %s: %w: %s", from, ErrNodeNotFound, from)
		}
		for _, to := range ce.targets {
			if !g.isTarget(to) {
				return nil, fmt.Errorf("conditional edge from %s: %w: %s", from, ErrNodeNotFound, to)
			}
		}
	}

	return &StateRunnable[S]{
		graph:  g,
		tracer: defaultTracer(),
	}, nil
}

func (g *StateGraph[S]) isTarget(name string) bool {
	if name == END {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

// successors lists the static and declared conditional targets of a node.
func (g *StateGraph[S]) successors(from string) []string {
	var out []string
	for _, edge := range g.edges {
		if edge.From == from && !slices.Contains(out, edge.To) {
			out = append(out, edge.To)
		}
	}
	if ce, ok := g.conditionalEdges[from]; ok {
		for _, to := range ce.targets {
			if !slices.Contains(out, to) {
				out = append(out, to)
			}
		}
	}
	return out
}
