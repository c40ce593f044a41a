package store

import (
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/reactive"
)

// AddSelectedNodes selects the given nodes. With the multi-select
// modifier held the ids are OR-ed into the existing selection; otherwise
// the node selection becomes exactly ids and any edge selection is
// cleared, so only one selection domain is active at a time.
// Unknown ids log a warning and are skipped.
func (s *Store) AddSelectedNodes(ids []string) {
	s.warnUnknownNodes(ids)
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	multi := s.multiSelectionActive.Get()
	reactive.RunBatch(func() {
		s.applyNodeSelection(func(n *flow.Node) bool {
			if multi {
				return n.Selected || want[n.ID]
			}
			return want[n.ID]
		})
		if !multi {
			s.applyEdgeSelection(func(*flow.Edge) bool { return false })
		}
	})
}

// AddSelectedEdges selects the given edges, with the same multi-select
// semantics as AddSelectedNodes (selecting edges clears node selection
// unless the modifier is held).
func (s *Store) AddSelectedEdges(ids []string) {
	s.warnUnknownEdges(ids)
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	multi := s.multiSelectionActive.Get()
	reactive.RunBatch(func() {
		s.applyEdgeSelection(func(e *flow.Edge) bool {
			if multi {
				return e.Selected || want[e.ID]
			}
			return want[e.ID]
		})
		if !multi {
			s.applyNodeSelection(func(*flow.Node) bool { return false })
		}
	})
}

// UnselectNodesAndEdges clears the selected flag on the given nodes and
// edges; nil means all of that kind. Cells are only updated when at
// least one element actually changed, so an already-clear selection
// causes no downstream recomputation.
func (s *Store) UnselectNodesAndEdges(nodeIDs, edgeIDs []string) {
	nodeSet := idSet(nodeIDs)
	edgeSet := idSet(edgeIDs)

	reactive.RunBatch(func() {
		s.applyNodeSelection(func(n *flow.Node) bool {
			if nodeSet != nil && !nodeSet[n.ID] {
				return n.Selected
			}
			return false
		})
		s.applyEdgeSelection(func(e *flow.Edge) bool {
			if edgeSet != nil && !edgeSet[e.ID] {
				return e.Selected
			}
			return false
		})
	})
}

// HandleNodeSelection implements click-style selection for one node:
// an unselected node becomes the (sole or added) selection; clicking an
// already-selected node unselects it only when the multi-select
// modifier is held.
func (s *Store) HandleNodeSelection(id string) {
	n, ok := s.NodeByID(id)
	if !ok {
		s.log.Warn("cannot select node: unknown id", "id", id)
		return
	}
	switch {
	case !n.Selected:
		s.AddSelectedNodes([]string{id})
	case s.multiSelectionActive.Get():
		s.UnselectNodesAndEdges([]string{id}, nil)
	default:
		// Click on an already-selected node keeps the selection.
	}
}

// SelectedNodes returns the currently selected nodes in collection order.
func (s *Store) SelectedNodes() []*flow.Node {
	var out []*flow.Node
	for _, n := range s.nodes.Get() {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// SelectedEdges returns the currently selected edges in collection order.
func (s *Store) SelectedEdges() []*flow.Edge {
	var out []*flow.Edge
	for _, e := range s.edges.Get() {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// applyNodeSelection rewrites the node collection so each node's
// Selected flag equals want(node). Changed nodes get fresh objects;
// untouched nodes keep identity; the cell updates only on real change.
func (s *Store) applyNodeSelection(want func(*flow.Node) bool) {
	cur := s.nodes.Get()
	next := make([]*flow.Node, len(cur))
	changed := false
	for i, n := range cur {
		sel := want(n)
		if n.Selected == sel {
			next[i] = n
			continue
		}
		c := *n
		c.Selected = sel
		next[i] = &c
		changed = true
	}
	if changed {
		s.setNodesLocked("selectNodes", next)
	}
}

func (s *Store) applyEdgeSelection(want func(*flow.Edge) bool) {
	cur := s.edges.Get()
	next := make([]*flow.Edge, len(cur))
	changed := false
	for i, e := range cur {
		sel := want(e)
		if e.Selected == sel {
			next[i] = e
			continue
		}
		c := *e
		c.Selected = sel
		next[i] = &c
		changed = true
	}
	if changed {
		s.setEdges("selectEdges", next)
	}
}

func idSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *Store) warnUnknownNodes(ids []string) {
	for _, id := range ids {
		if _, ok := s.NodeByID(id); !ok {
			s.log.Warn("cannot select node: unknown id", "id", id)
		}
	}
}

func (s *Store) warnUnknownEdges(ids []string) {
	known := make(map[string]bool)
	for _, e := range s.edges.Get() {
		known[e.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			s.log.Warn("cannot select edge: unknown id", "id", id)
		}
	}
}
