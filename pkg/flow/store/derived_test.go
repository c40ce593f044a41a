package store

import (
	"testing"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
)

func TestVisibleNodesParentChain(t *testing.T) {
	s := newTestStore(t, Options{})
	child := nodeAt("child", 5, 5)
	child.ParentID = "parent"
	grandchild := nodeAt("grandchild", 1, 1)
	grandchild.ParentID = "child"
	s.SetNodes([]*flow.Node{nodeAt("parent", 10, 10), child, grandchild})

	vis := s.VisibleNodes()
	byID := make(map[string]*flow.Node)
	for _, n := range vis {
		byID[n.ID] = n
	}

	tests := []struct {
		id   string
		want flow.XYPosition
	}{
		{"parent", flow.XYPosition{X: 10, Y: 10}},
		{"child", flow.XYPosition{X: 15, Y: 15}},
		{"grandchild", flow.XYPosition{X: 16, Y: 16}},
	}
	for _, tt := range tests {
		if got := byID[tt.id].AbsolutePosition; got != tt.want {
			t.Errorf("%s absolute = %+v, want %+v", tt.id, got, tt.want)
		}
	}
}

func TestVisibleNodesDanglingParent(t *testing.T) {
	s := newTestStore(t, Options{})
	orphan := nodeAt("orphan", 5, 5)
	orphan.ParentID = "ghost"
	s.SetNodes([]*flow.Node{orphan})

	vis := s.VisibleNodes()
	if len(vis) != 1 {
		t.Fatal("node with dangling parent must not be dropped")
	}
	if got := vis[0].AbsolutePosition; got != (flow.XYPosition{X: 5, Y: 5}) {
		t.Errorf("absolute = %+v, want own position as top-level", got)
	}
}

func TestVisibleNodesOriginOffset(t *testing.T) {
	s := newTestStore(t, Options{NodeOrigin: flow.XYPosition{X: 0.5, Y: 0.5}})
	s.SetNodes([]*flow.Node{nodeAt("a", 100, 100), nodeAt("b", 0, 0)})
	measure(s, "a", 40, 20)

	vis := s.VisibleNodes()
	if got := vis[0].AbsolutePosition; got != (flow.XYPosition{X: 80, Y: 90}) {
		t.Errorf("centered origin absolute = %+v, want {80 90}", got)
	}
	// Unmeasured nodes have no size to offset by.
	if got := vis[1].AbsolutePosition; got != (flow.XYPosition{}) {
		t.Errorf("unmeasured node absolute = %+v, want origin-free position", got)
	}
}

func TestVisibleNodesIdentityStability(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 10, 10)})

	first := s.VisibleNodes()

	s.UpdateNodePositions([]flow.NodeDrag{
		{ID: "a", Position: flow.XYPosition{X: 5}, AbsolutePosition: flow.XYPosition{X: 5}},
	}, true)

	second := s.VisibleNodes()
	if second[0] == first[0] {
		t.Error("moved node should project to a fresh object")
	}
	if second[1] != first[1] {
		t.Error("unmoved node must keep projection identity")
	}
}

func edgeFixture(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 200, 0)})
	measure(s, "a", 100, 40,
		flow.Handle{ID: "out", Type: flow.HandleSource, Position: flow.Right, X: 100, Y: 20})
	measure(s, "b", 100, 40,
		flow.Handle{ID: "in", Type: flow.HandleTarget, Position: flow.Left, X: 0, Y: 20})
	return s
}

func TestVisibleEdgesLayout(t *testing.T) {
	s := edgeFixture(t)
	if err := s.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "b", SourceHandle: "out", TargetHandle: "in"}); err != nil {
		t.Fatal(err)
	}

	edges := s.VisibleEdges()
	if len(edges) != 1 {
		t.Fatalf("visible edges = %d, want 1", len(edges))
	}
	e := edges[0]
	if e.SourceX != 100 || e.SourceY != 20 {
		t.Errorf("source anchor = (%g, %g), want (100, 20)", e.SourceX, e.SourceY)
	}
	if e.TargetX != 200 || e.TargetY != 20 {
		t.Errorf("target anchor = (%g, %g), want (200, 20)", e.TargetX, e.TargetY)
	}
	if e.SourcePosition != flow.Right || e.TargetPosition != flow.Left {
		t.Errorf("sides = %s/%s", e.SourcePosition, e.TargetPosition)
	}
}

func TestVisibleEdgesDefaultHandleResolution(t *testing.T) {
	s := edgeFixture(t)
	// No handle ids: first handle of each role.
	if err := s.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "b"}); err != nil {
		t.Fatal(err)
	}
	if len(s.VisibleEdges()) != 1 {
		t.Error("edge with empty handle ids should resolve to the first handle of each role")
	}
}

func TestVisibleEdgesMissingHandleExcluded(t *testing.T) {
	s := edgeFixture(t)
	if err := s.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "b", SourceHandle: "nope"}); err != nil {
		t.Fatal(err)
	}
	if got := s.VisibleEdges(); len(got) != 0 {
		t.Fatalf("edge with missing named handle should be excluded, got %d", len(got))
	}

	// The handle appears with a later measurement: the edge joins the
	// projection without any re-add.
	s.UpdateNodeDimensions(map[string]flow.Measurement{
		"a": {
			Dimensions: flow.Dimensions{Width: 100, Height: 40},
			Handles: []flow.Handle{
				{ID: "out", Type: flow.HandleSource, Position: flow.Right, X: 100, Y: 20},
				{ID: "nope", Type: flow.HandleSource, Position: flow.Bottom, X: 50, Y: 40},
			},
			Force: true,
		},
	})
	if got := s.VisibleEdges(); len(got) != 1 {
		t.Errorf("edge should appear once its handle exists, got %d", len(got))
	}
}

func TestVisibleEdgesUnknownEndpointExcluded(t *testing.T) {
	s := edgeFixture(t)
	if err := s.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "ghost"}); err != nil {
		t.Fatal(err)
	}
	if len(s.VisibleEdges()) != 0 {
		t.Error("edge to an unknown node must be silently excluded")
	}
}

func TestVisibleEdgesIdentityStability(t *testing.T) {
	s := edgeFixture(t)
	s.SetNodes(append(s.Nodes(), nodeAt("c", 400, 0)))
	measure(s, "c", 100, 40, flow.Handle{ID: "in", Type: flow.HandleTarget, X: 0, Y: 20})
	if err := s.AddEdge(&flow.Edge{ID: "ab", Source: "a", Target: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEdge(&flow.Edge{ID: "ac", Source: "a", Target: "c"}); err != nil {
		t.Fatal(err)
	}

	first := s.VisibleEdges()

	// Moving c reroutes ac but leaves ab untouched.
	s.UpdateNodePositions([]flow.NodeDrag{
		{ID: "c", Position: flow.XYPosition{X: 500}, AbsolutePosition: flow.XYPosition{X: 500}},
	}, false)

	second := s.VisibleEdges()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("visible edges = %d then %d, want 2", len(first), len(second))
	}
	if second[0] != first[0] {
		t.Error("unaffected edge layout must keep identity")
	}
	if second[1] == first[1] {
		t.Error("rerouted edge should get a fresh layout")
	}
}

func TestConnectionLineGeometry(t *testing.T) {
	s := edgeFixture(t)

	s.StartConnection(flow.ConnectionEnd{NodeID: "a", HandleID: "out", Type: flow.HandleSource}, flow.XYPosition{X: 150, Y: 30})

	line := s.ConnectionLine()
	if line == nil {
		t.Fatal("active gesture should produce a line")
	}
	if line.FromX != 100 || line.FromY != 20 {
		t.Errorf("from = (%g, %g), want the source anchor", line.FromX, line.FromY)
	}
	if line.ToX != 150 || line.ToY != 30 {
		t.Errorf("to = (%g, %g), want the pointer", line.ToX, line.ToY)
	}
	if line.Status != flow.ConnectionIdle {
		t.Errorf("status = %s, want idle", line.Status)
	}

	// Hovering a resolvable handle snaps the end and validates.
	s.UpdateConnection(flow.XYPosition{X: 199, Y: 19}, &flow.ConnectionEnd{NodeID: "b", HandleID: "in", Type: flow.HandleTarget})
	line = s.ConnectionLine()
	if line.ToX != 200 || line.ToY != 20 {
		t.Errorf("to = (%g, %g), want the target anchor", line.ToX, line.ToY)
	}
	if line.Status != flow.ConnectionValid {
		t.Errorf("status = %s, want valid", line.Status)
	}

	s.CancelConnection()
	if s.ConnectionLine() != nil {
		t.Error("cancelled gesture should clear the line")
	}
}

func TestConnectionLineInvalidStatus(t *testing.T) {
	s := newTestStore(t, Options{
		IsValidConnection: func(flow.Connection) bool { return false },
	})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 200, 0)})
	measure(s, "a", 100, 40, flow.Handle{ID: "out", Type: flow.HandleSource, X: 100, Y: 20})
	measure(s, "b", 100, 40, flow.Handle{ID: "in", Type: flow.HandleTarget, X: 0, Y: 20})

	s.StartConnection(flow.ConnectionEnd{NodeID: "a", HandleID: "out", Type: flow.HandleSource}, flow.XYPosition{})
	s.UpdateConnection(flow.XYPosition{}, &flow.ConnectionEnd{NodeID: "b", HandleID: "in", Type: flow.HandleTarget})

	if got := s.ConnectionLine().Status; got != flow.ConnectionInvalid {
		t.Errorf("status = %s, want invalid", got)
	}
}

func TestMarkersDeduplicated(t *testing.T) {
	s := newTestStore(t, Options{})
	arrow := &flow.EdgeMarker{Type: flow.MarkerArrowClosed, Color: "#222"}
	for _, id := range []string{"e1", "e2"} {
		if err := s.AddEdge(&flow.Edge{ID: id, Source: "a", Target: "b", MarkerEnd: arrow}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddEdge(&flow.Edge{ID: "e3", Source: "a", Target: "b",
		MarkerStart: &flow.EdgeMarker{Type: flow.MarkerArrow}}); err != nil {
		t.Fatal(err)
	}

	markers := s.Markers()
	if len(markers) != 2 {
		t.Fatalf("markers = %d, want 2 (shared definition deduplicated)", len(markers))
	}
	if markers[0].ID >= markers[1].ID {
		t.Error("markers should be sorted by id")
	}
}

func TestChangeSubscriberSeesFreshProjections(t *testing.T) {
	s := newTestStore(t, Options{})

	var seen []float64
	s.OnNodesChange(func() {
		vis := s.VisibleNodes()
		if len(vis) > 0 {
			seen = append(seen, vis[0].AbsolutePosition.X)
		}
	})

	for i := 1; i <= 200; i++ {
		s.SetNodes([]*flow.Node{nodeAt("a", float64(i), 0)})
		if got := seen[len(seen)-1]; got != float64(i) {
			t.Fatalf("iteration %d: subscriber observed x=%g, want %g", i, got, float64(i))
		}
	}
}

func TestChangeSubscriberSeesFreshEdgeLayout(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 100, 0)})
	measure(s, "a", 10, 10, flow.Handle{ID: "out", Type: flow.HandleSource, X: 10, Y: 5})
	measure(s, "b", 10, 10, flow.Handle{ID: "in", Type: flow.HandleTarget, X: 0, Y: 5})
	if err := s.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "b"}); err != nil {
		t.Fatal(err)
	}

	var fromX []float64
	s.OnNodesChange(func() {
		layouts := s.VisibleEdges()
		if len(layouts) == 1 {
			fromX = append(fromX, layouts[0].SourceX)
		}
	})

	for i := 1; i <= 50; i++ {
		x := float64(i * 10)
		s.UpdateNodePositions([]flow.NodeDrag{{
			ID:               "a",
			Position:         flow.XYPosition{X: x},
			AbsolutePosition: flow.XYPosition{X: x},
		}}, true)
		if got := fromX[len(fromX)-1]; got != x+10 {
			t.Fatalf("iteration %d: subscriber observed source anchor x=%g, want %g", i, got, x+10)
		}
	}
}
