// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{name: "empty graph"},
		{name: "single node", nodes: []string{"A"}, want: []string{"A"}},
		{name: "linear chain", edges: [][2]string{{"A", "B"}, {"B", "C"}}, want: []string{"A", "B", "C"}},
		{
			name:  "diamond",
			edges: [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
			want:  []string{"A", "B", "C", "D"},
		},
		{
			name:  "disconnected",
			nodes: []string{"C", "D"},
			edges: [][2]string{{"A", "B"}},
			want:  []string{"C", "D", "A", "B"},
		},
		{name: "duplicate edges", edges: [][2]string{{"A", "B"}, {"A", "B"}}, want: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			order, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(order, tt.want) {
				t.Errorf("order = %v, want %v", order, tt.want)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	g := New()
	// core <- ui <- app, core <- api <- app, docs standalone
	g.AddNode("core")
	g.AddNode("docs")
	g.AddEdge("core", "ui")
	g.AddEdge("core", "api")
	g.AddEdge("ui", "app")
	g.AddEdge("api", "app")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"core", "docs"}, {"ui", "api"}, {"app"}}
	if !slices.EqualFunc(levels, want, slices.Equal[[]string]) {
		t.Errorf("levels = %v, want %v", levels, want)
	}
	if g.Len() != 5 {
		t.Errorf("Len() = %d, want 5", g.Len())
	}
}

func TestCycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		edges     [][2]string
		wantCycle []string
	}{
		{"self loop", [][2]string{{"A", "A"}}, []string{"A"}},
		{"two nodes", [][2]string{{"A", "B"}, {"B", "A"}}, []string{"A", "B"}},
		{"three nodes", [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}}, []string{"A", "B", "C"}},
		{"downstream of cycle", [][2]string{{"root", "A"}, {"A", "B"}, {"B", "A"}, {"B", "leaf"}}, []string{"A", "B", "leaf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			_, err := g.TopologicalSort()
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("expected ErrCycle, got %v", err)
			}
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected *CycleError, got %T", err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.wantCycle) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.wantCycle)
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()
	err := &CycleError{Cycle: []string{"A", "B", "C"}}
	expected := "dependency cycle detected among: A, B, C"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
