package store

import (
	"sort"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
)

// VisibleNodes returns the nodes with absolute positions resolved
// through parent nesting and the node origin offset. Nodes with a
// dangling ParentID are treated as top-level rather than dropped.
//
// Identity is preserved where possible: a node whose resolved geometry
// did not change since the last recompute is returned as the same
// object, so consumers can diff by pointer.
func (s *Store) VisibleNodes() []*flow.Node { return s.visibleNodes.Get() }

// VisibleEdges returns the renderable edge layouts. An edge appears
// only when both endpoint nodes exist and both handles resolve to
// measured geometry; everything else is silently excluded.
func (s *Store) VisibleEdges() []*flow.EdgeLayout { return s.visibleEdges.Get() }

// ConnectionLine returns the geometry of the connection-in-progress,
// nil when no gesture is active or its start handle cannot be resolved.
func (s *Store) ConnectionLine() *flow.ConnectionLine { return s.connectionLine.Get() }

// Markers returns the deduplicated arrowhead marker definitions needed
// by the current edge collection, sorted by id for deterministic output.
func (s *Store) Markers() []flow.MarkerProps { return s.markers.Get() }

// OnVisibleNodesChange runs fn when the visible-nodes projection is
// invalidated.
func (s *Store) OnVisibleNodesChange(fn func()) (unsubscribe func()) {
	return s.visibleNodes.Subscribe(fn)
}

// OnVisibleEdgesChange runs fn when the visible-edges projection is
// invalidated.
func (s *Store) OnVisibleEdgesChange(fn func()) (unsubscribe func()) {
	return s.visibleEdges.Subscribe(fn)
}

// visEntry caches one projected node so unchanged nodes keep identity
// across recomputes.
type visEntry struct {
	raw *flow.Node
	abs flow.XYPosition
	out *flow.Node
}

func (s *Store) computeVisibleNodes() []*flow.Node {
	nodes := s.nodes.Get()
	origin := s.nodeOrigin.Get()

	byID := make(map[string]*flow.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	// Absolute positions memoized per pass, so siblings sharing an
	// ancestor walk the chain once.
	memo := make(map[string]flow.XYPosition, len(nodes))
	var resolve func(n *flow.Node, visiting map[string]bool) flow.XYPosition
	resolve = func(n *flow.Node, visiting map[string]bool) flow.XYPosition {
		if abs, ok := memo[n.ID]; ok {
			return abs
		}
		abs := n.Position
		if n.ParentID != "" {
			if p, ok := byID[n.ParentID]; ok && !visiting[p.ID] {
				visiting[n.ID] = true
				abs = resolve(p, visiting).Add(n.Position)
				delete(visiting, n.ID)
			}
			// Dangling parent: the node stands at its own relative
			// position, top-level.
		}
		if n.Measured != nil {
			abs.X -= origin.X * n.Measured.Width
			abs.Y -= origin.Y * n.Measured.Height
		}
		memo[n.ID] = abs
		return abs
	}
	for _, n := range nodes {
		resolve(n, make(map[string]bool))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*flow.Node, len(nodes))
	next := make(map[string]visEntry, len(nodes))
	for i, n := range nodes {
		abs := memo[n.ID]
		switch prev, ok := s.visCache[n.ID]; {
		case ok && prev.raw == n && prev.abs == abs:
			out[i] = prev.out
		case n.AbsolutePosition == abs:
			out[i] = n
		default:
			c := *n
			c.AbsolutePosition = abs
			out[i] = &c
		}
		next[n.ID] = visEntry{raw: n, abs: abs, out: out[i]}
	}
	s.visCache = next
	return out
}

// edgeEntry caches one edge layout so unchanged edges keep identity
// across recomputes.
type edgeEntry struct {
	raw *flow.Edge
	geo edgeGeometry
	out *flow.EdgeLayout
}

type edgeGeometry struct {
	sx, sy, tx, ty float64
	sp, tp         flow.Position
}

func (s *Store) computeVisibleEdges() []*flow.EdgeLayout {
	vnodes := s.visibleNodes.Get()
	byID := make(map[string]*flow.Node, len(vnodes))
	for _, n := range vnodes {
		byID[n.ID] = n
	}
	edges := s.edges.Get()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*flow.EdgeLayout, 0, len(edges))
	next := make(map[string]edgeEntry, len(edges))
	for _, e := range edges {
		sn, sok := byID[e.Source]
		tn, tok := byID[e.Target]
		if !sok || !tok {
			continue
		}
		sh, ok := resolveHandle(s.handleBounds[e.Source].ByRole(flow.HandleSource), e.SourceHandle)
		if !ok {
			continue
		}
		th, ok := resolveHandle(s.handleBounds[e.Target].ByRole(flow.HandleTarget), e.TargetHandle)
		if !ok {
			continue
		}

		sAnchor := flow.HandleAnchor(sn, sh)
		tAnchor := flow.HandleAnchor(tn, th)
		geo := edgeGeometry{
			sx: sAnchor.X, sy: sAnchor.Y,
			tx: tAnchor.X, ty: tAnchor.Y,
			sp: handleSide(sh, flow.Bottom),
			tp: handleSide(th, flow.Top),
		}

		if prev, ok := s.edgeCache[e.ID]; ok && prev.raw == e && prev.geo == geo {
			out = append(out, prev.out)
			next[e.ID] = prev
			continue
		}
		layout := &flow.EdgeLayout{
			Edge:           *e,
			SourceX:        geo.sx,
			SourceY:        geo.sy,
			TargetX:        geo.tx,
			TargetY:        geo.ty,
			SourcePosition: geo.sp,
			TargetPosition: geo.tp,
		}
		out = append(out, layout)
		next[e.ID] = edgeEntry{raw: e, geo: geo, out: layout}
	}
	s.edgeCache = next
	return out
}

// resolveHandle picks the handle an edge end attaches to: the exact id
// when one is named, otherwise the first handle of the role. A named
// handle that does not exist resolves to nothing - the edge is excluded
// until a dimension update provides it.
func resolveHandle(handles []flow.Handle, id string) (flow.Handle, bool) {
	if id == "" {
		if len(handles) == 0 {
			return flow.Handle{}, false
		}
		return handles[0], true
	}
	for _, h := range handles {
		if h.ID == id {
			return h, true
		}
	}
	return flow.Handle{}, false
}

func handleSide(h flow.Handle, fallback flow.Position) flow.Position {
	if h.Position == "" {
		return fallback
	}
	return h.Position
}

func (s *Store) computeConnectionLine() *flow.ConnectionLine {
	c := s.connection.Get()
	if c == nil {
		return nil
	}

	fromNode, ok := s.visibleNodeByID(c.From.NodeID)
	if !ok {
		return nil
	}
	s.mu.RLock()
	fromHandle, ok := resolveHandle(s.handleBounds[c.From.NodeID].ByRole(c.From.Type), c.From.HandleID)
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	fromDefault, toDefault := flow.Bottom, flow.Top
	if c.From.Type == flow.HandleTarget {
		fromDefault, toDefault = flow.Top, flow.Bottom
	}

	from := flow.HandleAnchor(fromNode, fromHandle)
	line := &flow.ConnectionLine{
		FromX:        from.X,
		FromY:        from.Y,
		ToX:          c.Position.X,
		ToY:          c.Position.Y,
		FromPosition: handleSide(fromHandle, fromDefault),
		ToPosition:   toDefault,
		Status:       flow.ConnectionIdle,
	}

	if c.To == nil {
		return line
	}
	toNode, ok := s.visibleNodeByID(c.To.NodeID)
	if !ok {
		return line
	}
	s.mu.RLock()
	toHandle, ok := resolveHandle(s.handleBounds[c.To.NodeID].ByRole(c.To.Type), c.To.HandleID)
	s.mu.RUnlock()
	if !ok {
		return line
	}

	to := flow.HandleAnchor(toNode, toHandle)
	line.ToX = to.X
	line.ToY = to.Y
	line.ToPosition = handleSide(toHandle, toDefault)
	if s.connectionValid(c.Describe()) {
		line.Status = flow.ConnectionValid
	} else {
		line.Status = flow.ConnectionInvalid
	}
	return line
}

func (s *Store) visibleNodeByID(id string) (*flow.Node, bool) {
	for _, n := range s.visibleNodes.Get() {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

func (s *Store) computeMarkers() []flow.MarkerProps {
	seen := make(map[string]bool)
	var out []flow.MarkerProps
	add := func(m *flow.EdgeMarker) {
		if m == nil {
			return
		}
		id := m.ID()
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, flow.MarkerProps{ID: id, EdgeMarker: *m})
	}
	for _, e := range s.edges.Get() {
		add(e.MarkerStart)
		add(e.MarkerEnd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
