package store

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return New(opts)
}

// nodeAt builds a plain node for tests.
func nodeAt(id string, x, y float64) *flow.Node {
	return &flow.Node{ID: id, Position: flow.XYPosition{X: x, Y: y}}
}

// measure reports a DOM box for one node.
func measure(s *Store, id string, w, h float64, handles ...flow.Handle) {
	s.UpdateNodeDimensions(map[string]flow.Measurement{
		id: {Dimensions: flow.Dimensions{Width: w, Height: h}, Handles: handles},
	})
}

func nodeIDs(nodes []*flow.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	s := newTestStore(t, Options{})

	if got := s.MinZoom(); got != DefaultMinZoom {
		t.Errorf("MinZoom = %g, want %g", got, DefaultMinZoom)
	}
	if got := s.MaxZoom(); got != DefaultMaxZoom {
		t.Errorf("MaxZoom = %g, want %g", got, DefaultMaxZoom)
	}
	if got := s.Viewport(); got != (flow.Viewport{Zoom: 1}) {
		t.Errorf("Viewport = %+v, want identity", got)
	}
	if len(s.Nodes()) != 0 || len(s.Edges()) != 0 {
		t.Error("new store should start empty")
	}
	if _, ok := s.NodeTypes()["default"]; !ok {
		t.Error("built-in node types missing from registry")
	}
	if _, ok := s.EdgeTypes()["bezier"]; !ok {
		t.Error("built-in edge types missing from registry")
	}
}

func TestSetNodesLookup(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 10, 10)})

	n, ok := s.NodeByID("b")
	if !ok || n.Position.X != 10 {
		t.Fatalf("NodeByID(b) = %+v, %v", n, ok)
	}
	if _, ok := s.NodeByID("missing"); ok {
		t.Error("NodeByID should miss for unknown id")
	}

	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0)})
	if _, ok := s.NodeByID("b"); ok {
		t.Error("lookup should drop nodes removed by SetNodes")
	}
}

func TestSetNodesDuplicateIDKeepsFirst(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 1, 0), nodeAt("a", 2, 0)})

	n, ok := s.NodeByID("a")
	if !ok {
		t.Fatal("node a missing")
	}
	if n.Position.X != 1 {
		t.Errorf("lookup kept position %g, want the first occurrence", n.Position.X)
	}
}

func TestRevisionAdvancesOnMutation(t *testing.T) {
	s := newTestStore(t, Options{})
	before := s.Revision()

	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0)})
	if s.Revision() == before {
		t.Error("SetNodes should advance the revision")
	}

	mid := s.Revision()
	s.Viewport() // reads do not advance
	if s.Revision() != mid {
		t.Error("reads must not advance the revision")
	}
}

func TestResetRestoresConstructionState(t *testing.T) {
	s := newTestStore(t, Options{MinZoom: 0.25})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0)})
	if err := s.AddEdge(&flow.Edge{Source: "a", Target: "b"}); err != nil {
		t.Fatal(err)
	}
	s.SetViewport(flow.Viewport{X: 50, Y: 50, Zoom: 1.5})
	s.SetMultiSelectionActive(true)
	if err := s.SetMinZoom(0.75); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if len(s.Nodes()) != 0 || len(s.Edges()) != 0 {
		t.Error("Reset should clear the graph")
	}
	if got := s.Viewport(); got != (flow.Viewport{Zoom: 1}) {
		t.Errorf("Reset viewport = %+v, want identity", got)
	}
	if s.MultiSelectionActive() {
		t.Error("Reset should clear interaction flags")
	}
	if got := s.MinZoom(); got != 0.25 {
		t.Errorf("Reset MinZoom = %g, want the constructed 0.25", got)
	}
}

func TestOnChangeCoalescesAcrossBatch(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 0, 0)})

	calls := 0
	unsub := s.OnNodesChange(func() { calls++ })
	defer unsub()

	// A drag update batches the node and dragging cells; the node
	// subscriber fires once.
	s.UpdateNodePositions([]flow.NodeDrag{
		{ID: "a", Position: flow.XYPosition{X: 5}, AbsolutePosition: flow.XYPosition{X: 5}},
	}, true)

	if calls != 1 {
		t.Errorf("subscriber fired %d times, want 1", calls)
	}
}

func TestConnectionGesture(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 100, 0)})

	s.StartConnection(flow.ConnectionEnd{NodeID: "a", HandleID: "out", Type: flow.HandleSource}, flow.XYPosition{X: 10, Y: 10})
	if s.Connection() == nil {
		t.Fatal("gesture should be active after StartConnection")
	}

	s.UpdateConnection(flow.XYPosition{X: 90, Y: 5}, &flow.ConnectionEnd{NodeID: "b", HandleID: "in", Type: flow.HandleTarget})

	e, err := s.FinishConnection()
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("FinishConnection should create an edge")
	}
	if e.Source != "a" || e.Target != "b" || e.SourceHandle != "out" || e.TargetHandle != "in" {
		t.Errorf("edge endpoints = %+v", e)
	}
	if s.Connection() != nil {
		t.Error("gesture should end after FinishConnection")
	}
	if len(s.Edges()) != 1 {
		t.Errorf("edge count = %d, want 1", len(s.Edges()))
	}
}

func TestFinishConnectionNormalizesTargetStart(t *testing.T) {
	s := newTestStore(t, Options{})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 100, 0)})

	// Gesture starts on b's target handle and ends on a's source handle.
	s.StartConnection(flow.ConnectionEnd{NodeID: "b", HandleID: "in", Type: flow.HandleTarget}, flow.XYPosition{})
	s.UpdateConnection(flow.XYPosition{}, &flow.ConnectionEnd{NodeID: "a", HandleID: "out", Type: flow.HandleSource})

	e, err := s.FinishConnection()
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != "a" || e.Target != "b" {
		t.Errorf("edge not normalized: source=%q target=%q", e.Source, e.Target)
	}
}

func TestFinishConnectionWithoutTarget(t *testing.T) {
	s := newTestStore(t, Options{})
	s.StartConnection(flow.ConnectionEnd{NodeID: "a", Type: flow.HandleSource}, flow.XYPosition{})

	e, err := s.FinishConnection()
	if err != nil || e != nil {
		t.Fatalf("dangling gesture should end silently, got %v, %v", e, err)
	}
	if len(s.Edges()) != 0 {
		t.Error("no edge should be created without a prospective end")
	}
}

func TestFinishConnectionRespectsValidator(t *testing.T) {
	s := newTestStore(t, Options{
		IsValidConnection: func(c flow.Connection) bool { return c.Target != "b" },
	})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 100, 0)})

	s.StartConnection(flow.ConnectionEnd{NodeID: "a", Type: flow.HandleSource}, flow.XYPosition{})
	s.UpdateConnection(flow.XYPosition{}, &flow.ConnectionEnd{NodeID: "b", Type: flow.HandleTarget})

	e, err := s.FinishConnection()
	if err != nil {
		t.Fatal(err)
	}
	if e != nil || len(s.Edges()) != 0 {
		t.Error("validator rejection should drop the connection silently")
	}
}
