// Package store implements the central reactive state layer for a flow
// diagram editor: the single source of truth for graph topology, viewport
// transform, and interaction state, plus the derived projections that turn
// raw state into renderable geometry.
//
// # Model
//
// A Store owns one reactive cell per piece of state (nodes, edges,
// viewport, registries, interaction flags, transient gesture records) and
// four derived projections:
//
//   - VisibleNodes: nodes with absolute positions resolved through parent
//     nesting and the node origin offset
//   - VisibleEdges: edges with endpoint handles resolved to concrete
//     coordinates; edges with missing endpoints or handles are excluded
//   - ConnectionLine: geometry and validity of a drag-to-connect gesture
//   - Markers: deduplicated arrowhead definitions for the current edges
//
// All collection mutations are copy-on-write: a mutation produces a new
// slice with fresh objects for changed elements and the same pointers for
// unchanged ones, so consumers can diff by identity.
//
// # Concurrency
//
// Mutations are expected from a single goroutine (the UI event loop).
// The exception is the deletion pipeline: its BeforeDelete hook may block
// (confirmation prompt, network check), so the delete-key trigger runs the
// pipeline on its own goroutine and applies the result against whatever
// state is current when the hook resolves. There is no transactional
// isolation; last write wins on the shared cells.
//
// # Errors
//
// Malformed graph references (dangling edge endpoints, missing handles,
// unresolvable parents) are never errors: the projections silently exclude
// or default them, since transient inconsistency is normal during
// interactive editing. Operations naming a specific id that does not
// exist log a warning and no-op. Hard errors are reserved for usage
// mistakes, reported as pkg/errors codes.
package store
