package session

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

func TestNewSession(t *testing.T) {
	a := New("one", 0)
	b := New("two", time.Hour)

	if a.ID == "" || a.ID == b.ID {
		t.Error("sessions need unique generated ids")
	}
	if a.IsExpired() || b.IsExpired() {
		t.Error("fresh sessions must not be expired")
	}
	if got := a.ExpiresAt.Sub(a.CreatedAt); got != DefaultTTL {
		t.Errorf("zero ttl = %v, want DefaultTTL", got)
	}
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	src := store.New(store.Options{Logger: log.New(io.Discard)})
	src.SetNodes([]*flow.Node{
		{ID: "a", Position: flow.XYPosition{X: 1, Y: 2}},
		{ID: "b", Position: flow.XYPosition{X: 3, Y: 4}, ParentID: "a"},
	})
	if err := src.AddEdge(&flow.Edge{ID: "e", Source: "a", Target: "b"}); err != nil {
		t.Fatal(err)
	}
	src.SetViewport(flow.Viewport{X: 10, Y: 20, Zoom: 1.5})

	sess := New("round trip", time.Hour)
	sess.Capture(src)

	dst := store.New(store.Options{Logger: log.New(io.Discard)})
	sess.Restore(dst)

	if len(dst.Nodes()) != 2 || len(dst.Edges()) != 1 {
		t.Fatalf("restored %d nodes, %d edges", len(dst.Nodes()), len(dst.Edges()))
	}
	if _, ok := dst.NodeByID("b"); !ok {
		t.Error("restored store should index restored nodes")
	}
	if got := dst.Viewport(); got != (flow.Viewport{X: 10, Y: 20, Zoom: 1.5}) {
		t.Errorf("restored viewport = %+v", got)
	}
}

// backend lifecycle shared by the local stores.
func runStoreTests(t *testing.T, backend Store) {
	t.Helper()
	ctx := context.Background()

	sess := New("lifecycle", time.Hour)
	sess.Document.Nodes = []*flow.Node{{ID: "a"}}
	if err := backend.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := backend.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "lifecycle" || len(got.Document.Nodes) != 1 {
		t.Errorf("loaded session = %+v", got)
	}

	ids, err := backend.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(ids, sess.ID) {
		t.Errorf("List = %v, missing %s", ids, sess.ID)
	}

	if err := backend.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := backend.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := backend.Delete(ctx, sess.ID); err != nil {
		t.Error("deleting an unknown id must not error:", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	backend, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runStoreTests(t, backend)
}

func TestExpiredSession(t *testing.T) {
	ctx := context.Background()
	for name, backend := range map[string]Store{
		"memory": NewMemoryStore(),
		"file":   mustFileStore(t),
	} {
		t.Run(name, func(t *testing.T) {
			sess := New("stale", time.Hour)
			sess.ExpiresAt = time.Now().Add(-time.Minute)
			if err := backend.Set(ctx, sess); err != nil {
				t.Fatal(err)
			}

			if _, err := backend.Get(ctx, sess.ID); !errors.Is(err, ErrExpired) {
				t.Errorf("Get expired = %v, want ErrExpired", err)
			}

			if err := backend.Cleanup(ctx); err != nil {
				t.Fatal(err)
			}
			if _, err := backend.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after cleanup = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	sess := New("isolated", time.Hour)
	if err := backend.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not leak into the store.
	sess.Name = "changed"

	got, err := backend.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "isolated" {
		t.Errorf("stored name = %q, want the value at Set time", got.Name)
	}
}

func mustFileStore(t *testing.T) *FileStore {
	t.Helper()
	backend, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return backend
}
