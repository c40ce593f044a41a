package export

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/JimmyLeeSnow/xyflow/pkg/cache"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

func exportFixture(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(store.Options{Logger: log.New(io.Discard)})
	st.SetNodes([]*flow.Node{
		{ID: "input", Type: "source", Position: flow.XYPosition{X: 0, Y: 0}},
		{ID: "transform", Position: flow.XYPosition{X: 200, Y: 0}},
		{ID: "output", Position: flow.XYPosition{X: 400, Y: 0}},
	})
	st.SetEdges([]*flow.Edge{
		{ID: "e1", Source: "input", Target: "transform"},
		{ID: "e2", Source: "transform", Target: "output"},
	})
	return st
}

func TestToDOT(t *testing.T) {
	st := exportFixture(t)
	dot := ToDOT(st, Options{})

	for _, want := range []string{
		"digraph flow {",
		`"input"`,
		`"input" -> "transform";`,
		`"transform" -> "output";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "type: source") {
		t.Errorf("plain export leaked detail labels:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	st := exportFixture(t)
	dot := ToDOT(st, Options{Detailed: true})

	if !strings.Contains(dot, "type: source") {
		t.Errorf("detailed export missing type label:\n%s", dot)
	}
	if !strings.Contains(dot, "x: 200, y: 0") {
		t.Errorf("detailed export missing position label:\n%s", dot)
	}
}

func TestToDOTSelectedSubset(t *testing.T) {
	st := exportFixture(t)
	st.AddSelectedNodes([]string{"input", "transform"})

	dot := ToDOT(st, Options{Selected: true})
	if strings.Contains(dot, `"output"`) {
		t.Errorf("unselected node exported:\n%s", dot)
	}
	if !strings.Contains(dot, `"input" -> "transform";`) {
		t.Errorf("edge between selected nodes missing:\n%s", dot)
	}
	if strings.Contains(dot, `-> "output"`) {
		t.Errorf("edge to excluded node exported:\n%s", dot)
	}
}

func TestToDOTNestedNodeUsesAbsolutePosition(t *testing.T) {
	st := store.New(store.Options{Logger: log.New(io.Discard)})
	st.SetNodes([]*flow.Node{
		{ID: "group", Position: flow.XYPosition{X: 100, Y: 100}},
		{ID: "child", ParentID: "group", Position: flow.XYPosition{X: 10, Y: 20}},
	})

	dot := ToDOT(st, Options{Detailed: true})
	if !strings.Contains(dot, "x: 110, y: 120") {
		t.Errorf("nested node not exported with absolute position:\n%s", dot)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "dot", want: FormatDOT},
		{in: "SVG", want: FormatSVG},
		{in: "png", want: FormatPNG},
		{in: "pdf", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestRenderDOTPassthrough(t *testing.T) {
	dot := ToDOT(exportFixture(t), Options{})
	out, err := Render(context.Background(), dot, FormatDOT)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(out) != dot {
		t.Error("DOT passthrough altered the source")
	}
}

func TestServiceMemoizesByRevision(t *testing.T) {
	st := exportFixture(t)
	mem := cache.NewMemoryCache()
	svc := NewService(st, mem, Options{})

	first, err := svc.Export(context.Background(), FormatDOT)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	key := cache.ExportKey(st.Revision(), string(FormatDOT))
	if _, hit, _ := mem.Get(context.Background(), key); !hit {
		t.Fatal("artifact not cached")
	}

	second, err := svc.Export(context.Background(), FormatDOT)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(first) != string(second) {
		t.Error("cached export differs")
	}

	st.SetNodes([]*flow.Node{{ID: "solo"}})
	third, err := svc.Export(context.Background(), FormatDOT)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(third), `"solo"`) {
		t.Errorf("export after mutation is stale:\n%s", third)
	}
}
