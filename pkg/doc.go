// Package pkg provides the core libraries for xyflow, a headless
// node-and-edge diagram editor.
//
// # Overview
//
// xyflow keeps the full state of a flow diagram in a reactive store and
// derives everything a renderer needs from it. The pkg directory is
// organized into these areas:
//
//  1. [reactive] - Cells and derived values with batched invalidation
//  2. [flow] - Graph domain types (nodes, edges, handles, viewport)
//  3. [flow/store] - The reactive editor store and its operations
//  4. [flow/panzoom] - A headless pan/zoom engine for the store
//  5. [session] - Saved-session persistence (memory, file, redis, mongo)
//  6. [cache] - Revision-keyed artifact caching for snapshots and exports
//  7. [server] - HTTP and WebSocket API over one store
//  8. [export] - Graphviz DOT, SVG, and PNG export
//  9. [config] - TOML configuration with live reload
//
// # Architecture
//
// The typical data flow through xyflow:
//
//	mutations (HTTP API, CLI, host application)
//	         ↓
//	    [flow/store] cells (nodes, edges, viewport, interaction)
//	         ↓
//	    derived projections (visible nodes, edge layouts, markers)
//	         ↓
//	    snapshots pushed to WebSocket clients / exported via Graphviz
//
// # Quick Start
//
// Create a store, add a graph, and read the derived layout:
//
//	import (
//	    "github.com/JimmyLeeSnow/xyflow/pkg/flow"
//	    "github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
//	)
//
//	st := store.New(store.Options{})
//	st.SetNodes([]*flow.Node{
//	    {ID: "a", Position: flow.XYPosition{X: 0, Y: 0}},
//	    {ID: "b", Position: flow.XYPosition{X: 200, Y: 0}},
//	})
//	edge, err := st.Connect(flow.Connection{Source: "a", Target: "b"})
//	layouts := st.VisibleEdges()
//
// [reactive]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/reactive
// [flow]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/flow
// [flow/store]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/flow/store
// [flow/panzoom]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/flow/panzoom
// [session]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/session
// [cache]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/cache
// [server]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/server
// [export]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/export
// [config]: https://pkg.go.dev/github.com/JimmyLeeSnow/xyflow/pkg/config
package pkg
