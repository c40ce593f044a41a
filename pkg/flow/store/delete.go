package store

import (
	"context"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/observability"
	"github.com/JimmyLeeSnow/xyflow/pkg/reactive"
)

// DeleteSelected runs the deletion pipeline for the current selection:
//
//  1. Collect selected, deletable nodes and edges.
//  2. Expand transitively: deletable descendants (via ParentID) of a
//     removed node are removed too; edges touching any removed node are
//     removed.
//  3. Let the BeforeDelete hook filter or veto the candidate sets. The
//     hook may block; no store state is held while it runs, and the
//     result is applied against whatever state is current afterwards.
//  4. Remove the final sets and notify OnDelete.
//
// Returns the sets actually removed. A veto (hook error) aborts with
// that error wrapped; an empty candidate set is a silent no-op.
func (s *Store) DeleteSelected(ctx context.Context) ([]*flow.Node, []*flow.Edge, error) {
	return s.DeleteElements(ctx, s.SelectedNodes(), s.SelectedEdges())
}

// DeleteElements runs the deletion pipeline for explicit seed sets,
// with the same expansion and hook semantics as DeleteSelected.
func (s *Store) DeleteElements(ctx context.Context, seedNodes []*flow.Node, seedEdges []*flow.Edge) ([]*flow.Node, []*flow.Edge, error) {
	candNodes, candEdges := s.expandCandidates(seedNodes, seedEdges)
	if len(candNodes) == 0 && len(candEdges) == 0 {
		return nil, nil, nil
	}

	if hook := s.opts.BeforeDelete; hook != nil {
		var err error
		candNodes, candEdges, err = hook(ctx, candNodes, candEdges)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "deletion vetoed by before-delete hook")
		}
		if len(candNodes) == 0 && len(candEdges) == 0 {
			return nil, nil, nil
		}
	}

	// Apply by id against the current state. The hook may have run for
	// a while; elements that disappeared in the meantime are simply not
	// part of the removed sets (last write wins, no isolation).
	removeNodes := make(map[string]bool, len(candNodes))
	for _, n := range candNodes {
		removeNodes[n.ID] = true
	}
	removeEdges := make(map[string]bool, len(candEdges))
	for _, e := range candEdges {
		removeEdges[e.ID] = true
	}

	var removedNodes []*flow.Node
	var removedEdges []*flow.Edge
	reactive.RunBatch(func() {
		curNodes := s.nodes.Get()
		nextNodes := make([]*flow.Node, 0, len(curNodes))
		for _, n := range curNodes {
			if removeNodes[n.ID] {
				removedNodes = append(removedNodes, n)
			} else {
				nextNodes = append(nextNodes, n)
			}
		}

		curEdges := s.edges.Get()
		nextEdges := make([]*flow.Edge, 0, len(curEdges))
		for _, e := range curEdges {
			// Edges referencing a removed node go too, even when the
			// hook saw an older edge set. Non-deletable edges survive
			// their endpoints and drop out of the visible projection
			// instead.
			if removeEdges[e.ID] || ((removeNodes[e.Source] || removeNodes[e.Target]) && e.IsDeletable()) {
				removedEdges = append(removedEdges, e)
			} else {
				nextEdges = append(nextEdges, e)
			}
		}

		if len(removedNodes) > 0 {
			s.setNodesLocked("delete", nextNodes)
		}
		if len(removedEdges) > 0 {
			s.setEdges("delete", nextEdges)
		}
	})

	if len(removedNodes) == 0 && len(removedEdges) == 0 {
		return nil, nil, nil
	}

	observability.Store().OnDelete(len(removedNodes), len(removedEdges))
	if s.opts.OnDelete != nil {
		s.opts.OnDelete(removedNodes, removedEdges)
	}
	return removedNodes, removedEdges, nil
}

// expandCandidates computes the transitive removal sets: deletable seed
// elements, deletable descendants of removed nodes, and edges touching
// any removed node.
func (s *Store) expandCandidates(seedNodes []*flow.Node, seedEdges []*flow.Edge) ([]*flow.Node, []*flow.Edge) {
	nodes := s.nodes.Get()

	removed := make(map[string]bool, len(seedNodes))
	for _, n := range seedNodes {
		if n.IsDeletable() {
			removed[n.ID] = true
		}
	}

	// Descendant expansion. A node joins the set when any ancestor in
	// its parent chain is already removed and the node itself is
	// deletable. Iterate until stable so chains resolve regardless of
	// collection order.
	for {
		grew := false
		for _, n := range nodes {
			if removed[n.ID] || !n.IsDeletable() || n.ParentID == "" {
				continue
			}
			if removed[n.ParentID] {
				removed[n.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	var candNodes []*flow.Node
	for _, n := range nodes {
		if removed[n.ID] {
			candNodes = append(candNodes, n)
		}
	}

	seedEdgeIDs := make(map[string]bool, len(seedEdges))
	for _, e := range seedEdges {
		if e.IsDeletable() {
			seedEdgeIDs[e.ID] = true
		}
	}
	var candEdges []*flow.Edge
	for _, e := range s.edges.Get() {
		switch {
		case seedEdgeIDs[e.ID]:
			candEdges = append(candEdges, e)
		case (removed[e.Source] || removed[e.Target]) && e.IsDeletable():
			candEdges = append(candEdges, e)
		}
	}
	return candNodes, candEdges
}
