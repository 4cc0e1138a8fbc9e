package workflow

import (
	"context"
	"log/slog"
	"time"
)

// Engine drives a graph over an execution state. One goroutine per frontier
// node; deltas arrive on a channel and are folded strictly in arrival
// order, which is the order ActiveAgents and Actions reflect.
type Engine struct {
	graph *Graph
}

// NewEngine creates an engine for one graph.
func NewEngine(graph *Graph) (*Engine, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &Engine{graph: graph}, nil
}

type nodeResult struct {
	name  string
	delta *Delta
	err   error
}

// Run executes the graph to completion, mutating and returning state. On a
// node failure the error is recorded into the state, already-committed
// deltas are preserved, and a *Error is returned with the partial state.
func (e *Engine) Run(ctx context.Context, state *State) (*State, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	indegree := e.graph.indegrees()
	total := len(e.graph.agents)
	// Buffered to node count so late finishers never block after an abort.
	results := make(chan nodeResult, total)

	launch := func(name string) {
		agent := e.graph.agents[name]
		go func() {
			delta, err := agent.Execute(runCtx, state)
			results <- nodeResult{name: name, delta: delta, err: err}
		}()
	}

	for _, name := range e.graph.order {
		if indegree[name] == 0 {
			launch(name)
		}
	}

	committed := 0
	for committed < total {
		var res nodeResult
		select {
		case res = <-results:
		case <-ctx.Done():
			e.fail(state, ctx.Err().Error())
			return state, &Error{Node: "", Err: ctx.Err()}
		}
		if res.err != nil {
			slog.Error("Workflow node failed",
				"workflow_id", state.WorkflowID, "node", res.name, "error", res.err)
			e.fail(state, res.err.Error())
			return state, &Error{Node: res.name, Err: res.err}
		}

		apply(state, res.delta)
		committed++

		for _, next := range e.graph.edges[res.name] {
			indegree[next]--
			if indegree[next] == 0 {
				launch(next)
			}
		}
	}

	now := time.Now()
	state.FinishedAt = &now
	return state, nil
}

// Dispatch runs the graph for the background path. Same semantics as Run;
// the split mirrors the two caller surfaces.
func (e *Engine) Dispatch(ctx context.Context, state *State) (*State, error) {
	return e.Run(ctx, state)
}

func (e *Engine) fail(state *State, msg string) {
	state.ErrorMessage = msg
	state.ExceptionCount++
	now := time.Now()
	state.FinishedAt = &now
}
