// Package flow defines the data model for node-and-edge diagrams: nodes
// with parent nesting and measured dimensions, edges between named handles,
// the pan/zoom viewport, transient interaction records (selection
// rectangle, connection-in-progress), arrowhead markers, and the geometry
// helpers shared by the store's derived projections.
//
// The types here are plain values with JSON tags for wire transport. All
// reactive behavior lives in flow/store; all rendering is out of scope.
//
// # Coordinate spaces
//
// Node positions are expressed in flow coordinates, relative to the
// node's parent when ParentID is set. The viewport transform maps flow
// coordinates to screen coordinates:
//
//	screen = flow*zoom + pan
//
// ScreenToFlow and FlowToScreen convert between the two.
package flow
