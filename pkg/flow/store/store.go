package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/observability"
	"github.com/JimmyLeeSnow/xyflow/pkg/reactive"
)

// Default zoom bounds and fit-view padding, matching typical editor
// defaults.
const (
	DefaultMinZoom        = 0.5
	DefaultMaxZoom        = 2.0
	DefaultFitViewPadding = 0.1
)

// BeforeDeleteFunc filters or vetoes a pending deletion. It receives the
// candidate sets and returns the elements that should actually be
// removed. Returning an error vetoes the whole deletion. The function
// may block (confirmation prompt, network check); the pipeline waits for
// it without holding any store state.
type BeforeDeleteFunc func(ctx context.Context, nodes []*flow.Node, edges []*flow.Edge) ([]*flow.Node, []*flow.Edge, error)

// OnDeleteFunc is notified after a deletion completes, with the sets
// that were actually removed.
type OnDeleteFunc func(nodes []*flow.Node, edges []*flow.Edge)

// Options configures a Store. The zero value is usable: all policies
// default to permissive, bounds to the package defaults.
type Options struct {
	MinZoom float64 // default DefaultMinZoom
	MaxZoom float64 // default DefaultMaxZoom

	// TranslateExtent bounds panning. The zero value means unbounded.
	TranslateExtent flow.CoordinateExtent

	// NodeOrigin shifts every node's anchor point as a fraction of its
	// measured size: {0,0} anchors at the top-left, {0.5,0.5} centers.
	NodeOrigin flow.XYPosition

	SnapGrid flow.SnapGrid

	FitViewPadding float64 // default DefaultFitViewPadding

	// AllowSelfLoops permits edges whose source and target node are the
	// same. Off by default; see Connect.
	AllowSelfLoops bool

	// NodeTypes and EdgeTypes are merged over the built-in registries.
	NodeTypes flow.NodeTypes
	EdgeTypes flow.EdgeTypes

	// IsValidConnection vets a prospective connection during a
	// drag-to-connect gesture. Nil accepts everything.
	IsValidConnection func(flow.Connection) bool

	// BeforeDelete and OnDelete are the deletion pipeline's host hooks.
	BeforeDelete BeforeDeleteFunc
	OnDelete     OnDeleteFunc

	// Logger receives id-mismatch warnings and pipeline diagnostics.
	// Defaults to log.Default().
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MinZoom == 0 {
		o.MinZoom = DefaultMinZoom
	}
	if o.MaxZoom == 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.TranslateExtent == (flow.CoordinateExtent{}) {
		o.TranslateExtent = flow.InfiniteExtent()
	}
	if o.FitViewPadding == 0 {
		o.FitViewPadding = DefaultFitViewPadding
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Store is the reactive state container for one editor instance.
// Construct it with New and pass the handle explicitly to everything
// that needs it; there is no ambient instance lookup.
type Store struct {
	opts Options
	log  *log.Logger

	// Graph state cells. Created once; values replaced copy-on-write.
	nodes      *reactive.Cell[[]*flow.Node]
	edges      *reactive.Cell[[]*flow.Edge]
	viewport   *reactive.Cell[flow.Viewport]
	dimensions *reactive.Cell[flow.Dimensions]
	nodeTypes  *reactive.Cell[flow.NodeTypes]
	edgeTypes  *reactive.Cell[flow.EdgeTypes]
	nodeOrigin *reactive.Cell[flow.XYPosition]

	// Interaction state cells.
	dragging             *reactive.Cell[bool]
	multiSelectionActive *reactive.Cell[bool]
	deleteKeyPressed     *reactive.Cell[bool]
	selectionRect        *reactive.Cell[*flow.SelectionRect]
	connection           *reactive.Cell[*flow.PendingConnection]
	minZoom              *reactive.Cell[float64]
	maxZoom              *reactive.Cell[float64]
	translateExtent      *reactive.Cell[flow.CoordinateExtent]
	snapGrid             *reactive.Cell[flow.SnapGrid]
	fitView              *reactive.Cell[fitViewState]

	// Derived projections.
	visibleNodes   *reactive.Derived[[]*flow.Node]
	visibleEdges   *reactive.Derived[[]*flow.EdgeLayout]
	connectionLine *reactive.Derived[*flow.ConnectionLine]
	markers        *reactive.Derived[[]flow.MarkerProps]

	// mu guards the store-owned indexes and the engine reference.
	mu           sync.RWMutex
	lookup       map[string]*flow.Node       // id -> current node
	handleBounds map[string]*flow.HandleBounds // id -> measured handles
	visCache     map[string]visEntry
	edgeCache    map[string]edgeEntry
	panZoom      PanZoom

	revision atomic.Uint64
}

// New creates a store with the given options. The graph starts empty;
// push initial content with SetNodes and SetEdges.
func New(opts Options) *Store {
	opts = opts.withDefaults()

	s := &Store{
		opts:         opts,
		log:          opts.Logger,
		lookup:       make(map[string]*flow.Node),
		handleBounds: make(map[string]*flow.HandleBounds),
		visCache:     make(map[string]visEntry),
		edgeCache:    make(map[string]edgeEntry),
	}

	s.nodes = reactive.NewCell[[]*flow.Node](nil)
	s.edges = reactive.NewCell[[]*flow.Edge](nil)
	s.viewport = reactive.NewCell(flow.Viewport{Zoom: 1})
	s.dimensions = reactive.NewCell(flow.Dimensions{})
	s.nodeTypes = reactive.NewCell(flow.MergeNodeTypes(opts.NodeTypes))
	s.edgeTypes = reactive.NewCell(flow.MergeEdgeTypes(opts.EdgeTypes))
	s.nodeOrigin = reactive.NewCell(opts.NodeOrigin)

	s.dragging = reactive.NewCell(false)
	s.multiSelectionActive = reactive.NewCell(false)
	s.deleteKeyPressed = reactive.NewCell(false)
	s.selectionRect = reactive.NewCell[*flow.SelectionRect](nil)
	s.connection = reactive.NewCell[*flow.PendingConnection](nil)
	s.minZoom = reactive.NewCell(opts.MinZoom)
	s.maxZoom = reactive.NewCell(opts.MaxZoom)
	s.translateExtent = reactive.NewCell(opts.TranslateExtent)
	s.snapGrid = reactive.NewCell(opts.SnapGrid)
	s.fitView = reactive.NewCell(fitViewState{})

	s.visibleNodes = reactive.Derive(s.computeVisibleNodes, s.nodes, s.nodeOrigin)
	s.visibleEdges = reactive.Derive(s.computeVisibleEdges, s.visibleNodes, s.edges)
	s.connectionLine = reactive.Derive(s.computeConnectionLine, s.connection, s.nodes)
	s.markers = reactive.Derive(s.computeMarkers, s.edges)

	// The deletion pipeline is driven by the delete-intent flag. The
	// BeforeDelete hook may block, so the pipeline runs on its own
	// goroutine and must not stall other interactions.
	s.deleteKeyPressed.Subscribe(func() {
		if !s.deleteKeyPressed.Get() {
			return
		}
		go func() {
			if _, _, err := s.DeleteSelected(context.Background()); err != nil {
				s.log.Warn("deletion pipeline aborted", "err", err)
			}
		}()
	})

	return s
}

// Reset restores the graph and interaction cells to their construction
// state. The current fit-view phase is intentionally left untouched: a
// fit already performed for this editor session stays performed.
func (s *Store) Reset() {
	reactive.RunBatch(func() {
		s.setNodesLocked("reset", nil)
		s.setEdges("reset", nil)
		s.viewport.Set(flow.Viewport{Zoom: 1})
		s.nodeTypes.Set(flow.MergeNodeTypes(s.opts.NodeTypes))
		s.edgeTypes.Set(flow.MergeEdgeTypes(s.opts.EdgeTypes))
		s.nodeOrigin.Set(s.opts.NodeOrigin)
		s.dragging.Set(false)
		s.multiSelectionActive.Set(false)
		s.deleteKeyPressed.Set(false)
		s.selectionRect.Set(nil)
		s.connection.Set(nil)
		s.minZoom.Set(s.opts.MinZoom)
		s.maxZoom.Set(s.opts.MaxZoom)
		s.translateExtent.Set(s.opts.TranslateExtent)
		s.snapGrid.Set(s.opts.SnapGrid)
	})
}

// Revision increments on every graph mutation. Consumers use it as a
// cheap cache key for derived artifacts (snapshot encoding, exports).
func (s *Store) Revision() uint64 { return s.revision.Load() }

// =============================================================================
// Graph state accessors
// =============================================================================

// Nodes returns the current node collection. The slice and its elements
// must be treated as immutable; mutate through store operations only.
func (s *Store) Nodes() []*flow.Node { return s.nodes.Get() }

// Edges returns the current edge collection, immutable like Nodes.
func (s *Store) Edges() []*flow.Edge { return s.edges.Get() }

// NodeByID returns the node with the given id from the lookup index.
func (s *Store) NodeByID(id string) (*flow.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.lookup[id]
	return n, ok
}

// EdgeByID returns the edge with the given id.
func (s *Store) EdgeByID(id string) (*flow.Edge, bool) {
	for _, e := range s.edges.Get() {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// SetNodes replaces the node collection. Nodes that disappeared lose
// their measured handle bounds.
func (s *Store) SetNodes(nodes []*flow.Node) {
	s.setNodesLocked("setNodes", nodes)
}

// SetEdges replaces the edge collection.
func (s *Store) SetEdges(edges []*flow.Edge) {
	s.setEdges("setEdges", edges)
}

// setNodesLocked installs a new node slice and rebuilds the lookup
// index. Every node mutation funnels through here; the index is owned
// exclusively by the store.
func (s *Store) setNodesLocked(op string, nodes []*flow.Node) {
	s.mu.Lock()
	lookup := make(map[string]*flow.Node, len(nodes))
	for _, n := range nodes {
		if _, dup := lookup[n.ID]; dup {
			s.log.Warn("duplicate node id, keeping first", "id", n.ID)
			continue
		}
		lookup[n.ID] = n
	}
	for id := range s.handleBounds {
		if _, ok := lookup[id]; !ok {
			delete(s.handleBounds, id)
		}
	}
	s.lookup = lookup
	s.mu.Unlock()

	s.revision.Add(1)
	s.nodes.Set(nodes)
	observability.Store().OnMutation(op, len(nodes), len(s.edges.Get()))
}

func (s *Store) setEdges(op string, edges []*flow.Edge) {
	s.revision.Add(1)
	s.edges.Set(edges)
	observability.Store().OnMutation(op, len(s.nodes.Get()), len(edges))
}

// SetNodeTypes merges a user-supplied partial registry over the built-in
// defaults and atomically replaces the current registry.
func (s *Store) SetNodeTypes(types flow.NodeTypes) {
	s.nodeTypes.Set(flow.MergeNodeTypes(types))
}

// SetEdgeTypes merges a user-supplied partial registry over the built-in
// defaults and atomically replaces the current registry.
func (s *Store) SetEdgeTypes(types flow.EdgeTypes) {
	s.edgeTypes.Set(flow.MergeEdgeTypes(types))
}

// NodeTypes returns the current node type registry.
func (s *Store) NodeTypes() flow.NodeTypes { return s.nodeTypes.Get() }

// EdgeTypes returns the current edge type registry.
func (s *Store) EdgeTypes() flow.EdgeTypes { return s.edgeTypes.Get() }

// Viewport returns the current pan/zoom transform.
func (s *Store) Viewport() flow.Viewport { return s.viewport.Get() }

// SetViewport installs a transform reported by the pan/zoom engine,
// clamped to the store's zoom bounds and translate extent.
func (s *Store) SetViewport(vp flow.Viewport) {
	s.viewport.Set(s.clampViewport(vp))
}

// Dimensions returns the measured size of the editor container.
func (s *Store) Dimensions() flow.Dimensions { return s.dimensions.Get() }

// SetDimensions records the editor container's size, used by fit-view.
func (s *Store) SetDimensions(d flow.Dimensions) { s.dimensions.Set(d) }

// NodeOrigin returns the current node origin offset.
func (s *Store) NodeOrigin() flow.XYPosition { return s.nodeOrigin.Get() }

// SetNodeOrigin changes the node origin offset; visible nodes recompute.
func (s *Store) SetNodeOrigin(origin flow.XYPosition) { s.nodeOrigin.Set(origin) }

// =============================================================================
// Interaction state accessors
// =============================================================================

// Dragging reports whether a node drag gesture is active.
func (s *Store) Dragging() bool { return s.dragging.Get() }

// SetDragging records drag gesture activity.
func (s *Store) SetDragging(v bool) { s.dragging.Set(v) }

// MultiSelectionActive reports whether the multi-select modifier is held.
func (s *Store) MultiSelectionActive() bool { return s.multiSelectionActive.Get() }

// SetMultiSelectionActive records the multi-select modifier state.
func (s *Store) SetMultiSelectionActive(v bool) { s.multiSelectionActive.Set(v) }

// SetDeleteKeyPressed records the delete-intent flag. The transition to
// true triggers the deletion pipeline asynchronously.
func (s *Store) SetDeleteKeyPressed(v bool) { s.deleteKeyPressed.Set(v) }

// DeleteKeyPressed reports the delete-intent flag.
func (s *Store) DeleteKeyPressed() bool { return s.deleteKeyPressed.Get() }

// SelectionRect returns the active box-selection rectangle, nil when no
// box-selection gesture is in progress.
func (s *Store) SelectionRect() *flow.SelectionRect { return s.selectionRect.Get() }

// SetSelectionRect installs or clears (nil) the box-selection rectangle.
func (s *Store) SetSelectionRect(r *flow.SelectionRect) { s.selectionRect.Set(r) }

// SnapGrid returns the snap grid configuration.
func (s *Store) SnapGrid() flow.SnapGrid { return s.snapGrid.Get() }

// SetSnapGrid replaces the snap grid configuration.
func (s *Store) SetSnapGrid(g flow.SnapGrid) { s.snapGrid.Set(g) }

// MinZoom returns the lower zoom bound.
func (s *Store) MinZoom() float64 { return s.minZoom.Get() }

// MaxZoom returns the upper zoom bound.
func (s *Store) MaxZoom() float64 { return s.maxZoom.Get() }

// TranslateExtent returns the pan bound in flow coordinates.
func (s *Store) TranslateExtent() flow.CoordinateExtent { return s.translateExtent.Get() }

// =============================================================================
// Connection gesture
// =============================================================================

// StartConnection begins a drag-to-connect gesture from the given
// handle. A gesture already in progress is replaced.
func (s *Store) StartConnection(from flow.ConnectionEnd, pos flow.XYPosition) {
	s.connection.Set(&flow.PendingConnection{From: from, Position: pos})
}

// UpdateConnection moves the gesture's pointer position and sets or
// clears the prospective end handle. No-op when no gesture is active.
func (s *Store) UpdateConnection(pos flow.XYPosition, to *flow.ConnectionEnd) {
	c := s.connection.Get()
	if c == nil {
		s.log.Warn("updateConnection without an active gesture")
		return
	}
	next := *c
	next.Position = pos
	next.To = to
	s.connection.Set(&next)
}

// CancelConnection ends the gesture without creating an edge.
func (s *Store) CancelConnection() {
	s.connection.Set(nil)
}

// FinishConnection ends the gesture. If a prospective end handle is set
// and the connection passes validation, the corresponding edge is added
// and returned.
func (s *Store) FinishConnection() (*flow.Edge, error) {
	c := s.connection.Get()
	if c == nil {
		return nil, nil
	}
	s.connection.Set(nil)
	if c.To == nil {
		return nil, nil
	}
	conn := c.Describe()
	if !s.connectionValid(conn) {
		return nil, nil
	}
	return s.Connect(conn)
}

// Connection returns the live connection-in-progress record, nil when
// no gesture is active.
func (s *Store) Connection() *flow.PendingConnection { return s.connection.Get() }

func (s *Store) connectionValid(c flow.Connection) bool {
	if s.opts.IsValidConnection == nil {
		return true
	}
	return s.opts.IsValidConnection(c)
}

// =============================================================================
// Change subscriptions (read-only surface for the rendering layer)
// =============================================================================

// OnNodesChange runs fn after every node collection change.
func (s *Store) OnNodesChange(fn func()) (unsubscribe func()) {
	return s.nodes.Subscribe(fn)
}

// OnEdgesChange runs fn after every edge collection change.
func (s *Store) OnEdgesChange(fn func()) (unsubscribe func()) {
	return s.edges.Subscribe(fn)
}

// OnViewportChange runs fn after every viewport transform change.
func (s *Store) OnViewportChange(fn func()) (unsubscribe func()) {
	return s.viewport.Subscribe(fn)
}

// OnChange runs fn after any change that affects rendering: graph
// topology, viewport, or transient gesture state. Used by the sync
// server to know when to broadcast.
func (s *Store) OnChange(fn func()) (unsubscribe func()) {
	subs := []func(){
		s.nodes.Subscribe(fn),
		s.edges.Subscribe(fn),
		s.viewport.Subscribe(fn),
		s.connection.Subscribe(fn),
		s.selectionRect.Subscribe(fn),
	}
	return func() {
		for _, unsub := range subs {
			unsub()
		}
	}
}
