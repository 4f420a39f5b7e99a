// Package graph is the state graph engine that runs the Autonix graphs.
//
// A StateGraph[S] holds named nodes that take the current state and return an
// update. Edges connect nodes statically; a conditional edge picks the next node
// at runtime. Compiling the graph validates its wiring and yields a
// StateRunnable[S] that executes one node per step until it reaches END.
//
// When a Schema is set, each node result is merged into the running state
// through Schema.Update, otherwise the result replaces the state. A runnable
// with a checkpointer restores the latest state of Config.ThreadID before the
// run and stores a checkpoint after every step.
//
// Example:
//
//	g := graph.NewStateGraph[Counter]()
//	g.AddNode("inc", "increment", func(ctx context.Context, s Counter) (Counter, error) {
//		s.N++
//		return s, nil
//	})
//	g.AddConditionalEdge("inc", func(ctx context.Context, s Counter) string {
//		if s.N < 3 {
//			return "inc"
//		}
//		return graph.END
//	}, "inc", graph.END)
//	g.SetEntryPoint("inc")
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	out, err := runnable.Invoke(ctx, Counter{})
package graph
