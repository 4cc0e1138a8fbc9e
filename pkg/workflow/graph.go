package workflow

import (
	"context"
	"fmt"
)

// Agent is one graph node: it reads the state and returns a partial delta.
// Implementations must not mutate the state and must include their own name
// in the delta's ActiveAgents.
type Agent interface {
	Name() string
	Execute(ctx context.Context, state *State) (*Delta, error)
}

// Graph is a declared DAG of agent nodes.
type Graph struct {
	agents map[string]Agent
	edges  map[string][]string
	order  []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		agents: make(map[string]Agent),
		edges:  make(map[string][]string),
	}
}

// AddNode registers an agent node.
func (g *Graph) AddNode(a Agent) *Graph {
	name := a.Name()
	if _, exists := g.agents[name]; !exists {
		g.order = append(g.order, name)
	}
	g.agents[name] = a
	return g
}

// AddEdge declares that to runs only after from has committed its delta.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = append(g.edges[from], to)
	return g
}

// Validate checks that every edge references a registered node and that the
// graph has at least one entry node.
func (g *Graph) Validate() error {
	if len(g.agents) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	for from, tos := range g.edges {
		if _, ok := g.agents[from]; !ok {
			return fmt.Errorf("edge from unknown node %q", from)
		}
		for _, to := range tos {
			if _, ok := g.agents[to]; !ok {
				return fmt.Errorf("edge to unknown node %q", to)
			}
		}
	}
	// Kahn's algorithm: every node must be reachable through satisfied
	// edges, otherwise the driver would stall.
	indegree := g.indegrees()
	var queue []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	processed := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		processed++
		for _, to := range g.edges[name] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	if processed != len(g.agents) {
		return fmt.Errorf("graph contains a cycle or unreachable node")
	}
	return nil
}

func (g *Graph) indegrees() map[string]int {
	indegree := make(map[string]int, len(g.agents))
	for name := range g.agents {
		indegree[name] = 0
	}
	for _, tos := range g.edges {
		for _, to := range tos {
			indegree[to]++
		}
	}
	return indegree
}

// Conversation workflow node names.
const (
	NodeSentiment = "sentiment"
	NodeIntent    = "intent"
	NodeSales     = "sales"
)

// NewChatGraph builds the core conversation topology. Parallel mode fans
// sentiment and intent out from START and joins them at sales; sequential
// mode chains them.
func NewChatGraph(sentiment, intent, sales Agent, parallel bool) *Graph {
	g := NewGraph().AddNode(sentiment).AddNode(intent).AddNode(sales)
	if parallel {
		g.AddEdge(sentiment.Name(), sales.Name())
		g.AddEdge(intent.Name(), sales.Name())
	} else {
		g.AddEdge(sentiment.Name(), intent.Name())
		g.AddEdge(intent.Name(), sales.Name())
	}
	return g
}
