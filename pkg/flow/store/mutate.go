package store

import (
	"slices"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/reactive"
)

// Connect builds an edge from a connection descriptor and appends it.
// The edge id is derived deterministically from the endpoints
// (Connection.EdgeID). Connections whose source and target node are
// identical are rejected with ErrCodeInvalidConnection unless the store
// was constructed with AllowSelfLoops.
//
// Connect never deduplicates: connecting the same endpoints twice
// produces two edge records with the same id. Hosts that want dedup
// check EdgeByID first.
func (s *Store) Connect(c flow.Connection) (*flow.Edge, error) {
	e := &flow.Edge{
		ID:           c.EdgeID(),
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
	if err := s.AddEdge(e); err != nil {
		return nil, err
	}
	return e, nil
}

// AddEdge validates and appends an edge record. An empty id is filled in
// from the endpoints. The edge collection is replaced with a new slice;
// existing edge objects keep their identity.
//
// Unknown endpoint node ids are accepted: the edge simply stays out of
// VisibleEdges until both endpoints exist with known geometry.
func (s *Store) AddEdge(e *flow.Edge) error {
	if err := errors.ValidateConnection(e.Source, e.Target, e.SourceHandle, e.TargetHandle); err != nil {
		return err
	}
	if e.Source == e.Target && !s.opts.AllowSelfLoops {
		return errors.New(errors.ErrCodeInvalidConnection,
			"self connections are not allowed (node %q)", e.Source)
	}
	if e.ID == "" {
		e.ID = flow.Connection{
			Source: e.Source, Target: e.Target,
			SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle,
		}.EdgeID()
	}

	cur := s.edges.Get()
	next := make([]*flow.Edge, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, e)
	s.setEdges("addEdge", next)
	return nil
}

// UpdateNodePositions applies drag deltas. Every node with an entry in
// drags gets a fresh object with the new position, absolute position,
// and dragging flag; all other nodes keep their identity. This runs at
// pointer-move frequency, so the only allocations are the new slice and
// the changed node objects.
func (s *Store) UpdateNodePositions(drags []flow.NodeDrag, dragging bool) {
	if len(drags) == 0 {
		return
	}
	byID := make(map[string]flow.NodeDrag, len(drags))
	for _, d := range drags {
		byID[d.ID] = d
	}

	cur := s.nodes.Get()
	next := make([]*flow.Node, len(cur))
	changed := false
	for i, n := range cur {
		d, ok := byID[n.ID]
		if !ok {
			next[i] = n
			continue
		}
		delete(byID, n.ID)
		c := *n
		c.Position = d.Position
		c.AbsolutePosition = d.AbsolutePosition
		c.Dragging = dragging
		next[i] = &c
		changed = true
	}
	for id := range byID {
		s.log.Warn("cannot drag node: unknown id", "id", id)
	}
	if !changed {
		return
	}

	reactive.RunBatch(func() {
		s.setNodesLocked("updateNodePositions", next)
		s.dragging.Set(dragging)
	})
}

// UpdateNodeDimensions applies freshly measured DOM boxes. A node is
// updated only when its measured size differs from the stored size or
// the measurement is forced; unaffected nodes keep their identity. The
// handle-bounds cache is rebuilt for every updated node.
//
// If a fit-view was scheduled before node geometry was known, it is
// retried once measurements land; a successful fit clears the schedule.
func (s *Store) UpdateNodeDimensions(measurements map[string]flow.Measurement) {
	if len(measurements) == 0 {
		return
	}

	cur := s.nodes.Get()
	next := make([]*flow.Node, len(cur))
	changed := false

	s.mu.Lock()
	for i, n := range cur {
		m, ok := measurements[n.ID]
		if !ok || (!m.Force && n.Measured != nil && *n.Measured == m.Dimensions) {
			next[i] = n
			continue
		}
		c := *n
		dims := m.Dimensions
		c.Measured = &dims
		next[i] = &c
		s.handleBounds[n.ID] = groupHandles(m.Handles)
		changed = true
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.setNodesLocked("updateNodeDimensions", next)

	// Fit-view scheduled before geometry existed: retry now.
	if s.fitView.Get().phase == FitViewScheduled {
		s.retryScheduledFitView()
	}
}

// groupHandles splits measured handles by role, preserving order so
// "first handle of the role" stays deterministic.
func groupHandles(handles []flow.Handle) *flow.HandleBounds {
	hb := &flow.HandleBounds{}
	for _, h := range handles {
		if h.Type == flow.HandleSource {
			hb.Source = append(hb.Source, h)
		} else {
			hb.Target = append(hb.Target, h)
		}
	}
	return hb
}

// HandleBoundsFor returns the measured handle bounds for a node, nil
// when the node has not been measured yet.
func (s *Store) HandleBoundsFor(id string) *flow.HandleBounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handleBounds[id]
}

// RemoveEdges removes the edges with the given ids, bypassing the
// deletion pipeline (no hooks, no expansion). Unknown ids warn.
func (s *Store) RemoveEdges(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	cur := s.edges.Get()
	next := slices.DeleteFunc(slices.Clone(cur), func(e *flow.Edge) bool {
		if drop[e.ID] {
			delete(drop, e.ID)
			return true
		}
		return false
	})
	for id := range drop {
		s.log.Warn("cannot remove edge: unknown id", "id", id)
	}
	if len(next) != len(cur) {
		s.setEdges("removeEdges", next)
	}
}
