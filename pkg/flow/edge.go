package flow

import (
	"fmt"
	"strings"
)

// Edge is a directed connection between two node handles. SourceHandle
// and TargetHandle are optional; when empty, the first handle of the
// matching role on the endpoint node is used.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Type         string `json:"type,omitempty"`
	Data         any    `json:"data,omitempty"`

	Selected bool `json:"selected,omitempty"`

	// Deletable defaults to true when nil. Use IsDeletable.
	Deletable *bool `json:"deletable,omitempty"`

	MarkerStart *EdgeMarker `json:"markerStart,omitempty"`
	MarkerEnd   *EdgeMarker `json:"markerEnd,omitempty"`
}

// IsDeletable reports whether the edge may be removed by the deletion
// pipeline. Unset means deletable.
func (e *Edge) IsDeletable() bool {
	return e.Deletable == nil || *e.Deletable
}

// Connection describes a prospective edge between two handles, before an
// edge record exists.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// EdgeID returns the deterministic id assigned to edges created from a
// connection descriptor without an explicit id.
func (c Connection) EdgeID() string {
	return fmt.Sprintf("xy-edge__%s%s-%s%s", c.Source, c.SourceHandle, c.Target, c.TargetHandle)
}

// EdgeLayout is the renderable form of an edge produced by the
// visible-edges projection: the edge plus resolved endpoint geometry.
// The coordinate fields are derived per recompute and never persisted.
type EdgeLayout struct {
	Edge
	SourceX        float64  `json:"sourceX"`
	SourceY        float64  `json:"sourceY"`
	TargetX        float64  `json:"targetX"`
	TargetY        float64  `json:"targetY"`
	SourcePosition Position `json:"sourcePosition"`
	TargetPosition Position `json:"targetPosition"`
}

// ConnectionStatus is the validity of a connection-in-progress.
type ConnectionStatus string

const (
	// ConnectionIdle means no prospective target handle is under the pointer.
	ConnectionIdle ConnectionStatus = "idle"
	// ConnectionValid means the validation predicate accepts the connection.
	ConnectionValid ConnectionStatus = "valid"
	// ConnectionInvalid means the validation predicate rejects the connection.
	ConnectionInvalid ConnectionStatus = "invalid"
)

// ConnectionEnd identifies one end of a drag-to-connect gesture.
type ConnectionEnd struct {
	NodeID   string     `json:"nodeId"`
	HandleID string     `json:"handleId,omitempty"`
	Type     HandleType `json:"type"`
}

// PendingConnection is the transient record of a drag-to-connect
// gesture. It exists only between gesture start and end/cancel; the
// store cell holds nil otherwise. To is set while the pointer hovers a
// prospective handle. Position is the live pointer position in flow
// coordinates.
type PendingConnection struct {
	From     ConnectionEnd  `json:"from"`
	To       *ConnectionEnd `json:"to,omitempty"`
	Position XYPosition     `json:"position"`
}

// Describe converts the gesture into a connection descriptor. Gestures
// may start from either a source or a target handle; the descriptor is
// normalized so Source always names the source-role end. Returns the
// zero Connection when no prospective end handle is set.
func (p *PendingConnection) Describe() Connection {
	if p == nil || p.To == nil {
		return Connection{}
	}
	if p.From.Type == HandleTarget {
		return Connection{
			Source:       p.To.NodeID,
			SourceHandle: p.To.HandleID,
			Target:       p.From.NodeID,
			TargetHandle: p.From.HandleID,
		}
	}
	return Connection{
		Source:       p.From.NodeID,
		SourceHandle: p.From.HandleID,
		Target:       p.To.NodeID,
		TargetHandle: p.To.HandleID,
	}
}

// ConnectionLine is the derived geometry of a connection-in-progress,
// consumed by the floating connection line renderer.
type ConnectionLine struct {
	FromX        float64          `json:"fromX"`
	FromY        float64          `json:"fromY"`
	ToX          float64          `json:"toX"`
	ToY          float64          `json:"toY"`
	FromPosition Position         `json:"fromPosition"`
	ToPosition   Position         `json:"toPosition"`
	Status       ConnectionStatus `json:"status"`
}

// MarkerType selects an arrowhead shape.
type MarkerType string

const (
	// MarkerArrow is an open arrowhead.
	MarkerArrow MarkerType = "arrow"
	// MarkerArrowClosed is a filled arrowhead.
	MarkerArrowClosed MarkerType = "arrowclosed"
)

// EdgeMarker describes an arrowhead attached to an edge end.
type EdgeMarker struct {
	Type        MarkerType `json:"type"`
	Color       string     `json:"color,omitempty"`
	Width       float64    `json:"width,omitempty"`
	Height      float64    `json:"height,omitempty"`
	StrokeWidth float64    `json:"strokeWidth,omitempty"`
}

// ID returns the deterministic marker definition id. Edges sharing a
// visually identical marker resolve to the same id, so one definition
// serves all of them.
func (m EdgeMarker) ID() string {
	parts := []string{
		"xy-marker",
		string(m.Type),
		m.Color,
		fmt.Sprintf("%gx%g", m.Width, m.Height),
		fmt.Sprintf("%g", m.StrokeWidth),
	}
	return strings.Join(parts, "__")
}

// MarkerProps is a marker definition needed by the current edge set,
// keyed by its deterministic id.
type MarkerProps struct {
	ID string `json:"id"`
	EdgeMarker
}
