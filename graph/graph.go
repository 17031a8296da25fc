// Package graph implements the sequential state machine both planning flows
// run on: one active node at a time, explicit edges, condition nodes for
// branching, and a per-node visit bound to keep loops finite.
package graph

import (
	"context"
	"fmt"
)

// End is the terminal target. An edge to End finishes the run.
const End = "END"

// State represents the execution state passed between nodes
type State map[string]any

// NodeFunc is the function executed by a node
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc evaluates a condition and returns a routing key for NextMap
type ConditionFunc func(context.Context, State) (string, error)

// Node represents a node in the execution graph
type Node struct {
	Name      string
	Execute   NodeFunc
	Condition ConditionFunc     // set for condition nodes instead of Execute
	Next      string            // outgoing edge for plain nodes
	NextMap   map[string]string // condition result -> next node
}

// Graph represents an execution flow
type Graph struct {
	nodes     map[string]*Node
	startNode string
	maxVisits int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 25,
	}
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	if node.Condition == nil && node.Execute == nil {
		panic(fmt.Sprintf("node %s must have an Execute or Condition function", node.Name))
	}
	g.nodes[node.Name] = node
}

// SetStartNode sets the entry node
func (g *Graph) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetMaxVisits sets the maximum number of visits to a single node
func (g *Graph) SetMaxVisits(maxVisits int) {
	if maxVisits > 0 {
		g.maxVisits = maxVisits
	}
}

// Execute runs the graph from the start node until an edge reaches End.
// Exactly one node is active at any time; condition nodes pick the next node
// through NextMap, plain nodes follow their single edge. Revisiting a node
// more than maxVisits times aborts the run.
func (g *Graph) Execute(ctx context.Context, initialState State) (State, error) {
	if g.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}

	state := initialState
	if state == nil {
		state = make(State)
	}

	visited := make(map[string]int)
	current := g.startNode

	for current != End {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, exists := g.nodes[current]
		if !exists {
			return nil, fmt.Errorf("node %s not found", current)
		}

		visited[current]++
		if visited[current] > g.maxVisits {
			return nil, fmt.Errorf("infinite loop detected at node %s", current)
		}

		if node.Condition != nil {
			result, err := node.Condition(ctx, state)
			if err != nil {
				return nil, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
			}
			next, ok := node.NextMap[result]
			if !ok {
				return nil, fmt.Errorf("no route for result %q at node %s", result, node.Name)
			}
			current = next
			continue
		}

		next, err := node.Execute(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("error executing node %s: %w", node.Name, err)
		}
		if next != nil {
			state = next
		}
		if node.Next == "" {
			return nil, fmt.Errorf("no next node specified for node %s", node.Name)
		}
		current = node.Next
	}

	return state, nil
}

// Builder helps build graphs fluently
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new graph builder
func NewBuilder() *Builder {
	return &Builder{graph: NewGraph()}
}

// AddNode adds a plain node
func (b *Builder) AddNode(name string, execute NodeFunc) *Builder {
	b.graph.AddNode(&Node{Name: name, Execute: execute})
	return b
}

// AddConditionNode adds a condition node with its routing table
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, nextMap map[string]string) *Builder {
	b.graph.AddNode(&Node{Name: name, Condition: condition, NextMap: nextMap})
	return b
}

// AddEdge connects a plain node to its successor
func (b *Builder) AddEdge(from, to string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	node.Next = to
	return b
}

// SetStart sets the start node
func (b *Builder) SetStart(name string) *Builder {
	b.graph.SetStartNode(name)
	return b
}

// SetMaxVisits sets the maximum number of visits to a node
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.graph.SetMaxVisits(maxVisits)
	return b
}

// Build returns the constructed graph
func (b *Builder) Build() *Graph {
	return b.graph
}
