package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph()
	if g == nil {
		t.Errorf("NewGraph returned nil")
	}
}

func TestAddNodeEmptyName(t *testing.T) {
	g := NewGraph()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected function to panic, but it did not")
		}
	}()

	g.AddNode(&Node{Name: "", Execute: passthrough})
}

func TestAddNodeDuplicate(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "dup_node", Execute: passthrough})

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected function to panic, but it did not")
		}
	}()
	g.AddNode(&Node{Name: "dup_node", Execute: passthrough})
}

func TestExecuteLinearFlow(t *testing.T) {
	var order []string
	record := func(name string) NodeFunc {
		return func(_ context.Context, s State) (State, error) {
			order = append(order, name)
			return s, nil
		}
	}

	g := NewBuilder().
		AddNode("first", record("first")).
		AddNode("second", record("second")).
		AddNode("third", record("third")).
		AddEdge("first", "second").
		AddEdge("second", "third").
		AddEdge("third", End).
		SetStart("first").
		Build()

	if _, err := g.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	got := strings.Join(order, ",")
	if got != "first,second,third" {
		t.Errorf("execution order = %q, want first,second,third", got)
	}
}

func TestExecuteConditionRouting(t *testing.T) {
	visited := make(map[string]bool)
	mark := func(name string) NodeFunc {
		return func(_ context.Context, s State) (State, error) {
			visited[name] = true
			return s, nil
		}
	}

	g := NewBuilder().
		AddNode("start", mark("start")).
		AddNode("left", mark("left")).
		AddNode("right", mark("right")).
		AddConditionNode("route", func(_ context.Context, s State) (string, error) {
			if s["go_left"] == true {
				return "left", nil
			}
			return "right", nil
		}, map[string]string{"left": "left", "right": "right"}).
		AddEdge("start", "route").
		AddEdge("left", End).
		AddEdge("right", End).
		SetStart("start").
		Build()

	if _, err := g.Execute(context.Background(), State{"go_left": true}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !visited["left"] || visited["right"] {
		t.Errorf("condition routed wrong: visited=%v", visited)
	}
}

func TestExecuteConditionMissingRoute(t *testing.T) {
	g := NewBuilder().
		AddConditionNode("route", func(context.Context, State) (string, error) {
			return "unknown", nil
		}, map[string]string{"known": End}).
		SetStart("route").
		Build()

	_, err := g.Execute(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error for missing route")
	}
	if !strings.Contains(err.Error(), "no route") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecuteLoopBound(t *testing.T) {
	g := NewBuilder().
		AddNode("spin", passthrough).
		AddEdge("spin", "spin").
		SetStart("spin").
		SetMaxVisits(5).
		Build()

	_, err := g.Execute(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected infinite loop error")
	}
	if !strings.Contains(err.Error(), "infinite loop") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecuteNodeError(t *testing.T) {
	g := NewBuilder().
		AddNode("boom", func(context.Context, State) (State, error) {
			return nil, fmt.Errorf("broken")
		}).
		AddEdge("boom", End).
		SetStart("boom").
		Build()

	_, err := g.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("expected wrapped node error, got %v", err)
	}
}

func TestExecuteNoStartNode(t *testing.T) {
	g := NewGraph()
	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Errorf("expected error when start node is not set")
	}
}

func TestExecuteContextCancelled(t *testing.T) {
	g := NewBuilder().
		AddNode("step", passthrough).
		AddEdge("step", End).
		SetStart("step").
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Execute(ctx, nil); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func passthrough(_ context.Context, s State) (State, error) {
	return s, nil
}
