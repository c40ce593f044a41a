package flow

// HandleType distinguishes the two roles a handle can play. Edges run
// from a source-role handle to a target-role handle.
type HandleType string

const (
	// HandleSource marks a handle edges may start from.
	HandleSource HandleType = "source"
	// HandleTarget marks a handle edges may end at.
	HandleTarget HandleType = "target"
)

// Handle is a named connection point on a node's boundary. Its rectangle
// is expressed relative to the node's top-left corner and comes from DOM
// measurement, so a handle has no geometry until its node is measured.
type Handle struct {
	ID       string     `json:"id"`
	Type     HandleType `json:"type"`
	Position Position   `json:"position"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
}

// HandleBounds caches a node's measured handle rectangles by role.
// It is owned by the store and invalidated on dimension updates.
type HandleBounds struct {
	Source []Handle `json:"source,omitempty"`
	Target []Handle `json:"target,omitempty"`
}

// ByRole returns the handles of the given role.
func (hb *HandleBounds) ByRole(t HandleType) []Handle {
	if hb == nil {
		return nil
	}
	if t == HandleSource {
		return hb.Source
	}
	return hb.Target
}

// Node is a positioned, typed element in the flow graph.
//
// Position is relative to the parent node when ParentID is set.
// AbsolutePosition is derived by the visible-nodes projection (parent
// chain walk plus origin offset) and is not an input field. Measured is
// nil until the rendering layer reports the node's DOM box.
type Node struct {
	ID       string     `json:"id"`
	Type     string     `json:"type,omitempty"`
	Position XYPosition `json:"position"`
	Data     any        `json:"data,omitempty"`

	// ParentID nests this node inside another node. Positions of
	// children are relative to the parent's top-left corner.
	ParentID string `json:"parentId,omitempty"`

	Selected bool `json:"selected,omitempty"`
	Dragging bool `json:"dragging,omitempty"`

	// Deletable defaults to true when nil. Use IsDeletable.
	Deletable *bool `json:"deletable,omitempty"`

	// Measured holds the last reported DOM dimensions, nil until known.
	Measured *Dimensions `json:"measured,omitempty"`

	// AbsolutePosition is derived output only (see VisibleNodes).
	AbsolutePosition XYPosition `json:"absolutePosition"`
}

// IsDeletable reports whether the node may be removed by the deletion
// pipeline. Unset means deletable.
func (n *Node) IsDeletable() bool {
	return n.Deletable == nil || *n.Deletable
}

// Rect returns the node's absolute bounding rectangle. Nodes without
// measured dimensions produce a zero-size rectangle at their position.
func (n *Node) Rect() Rect {
	r := Rect{X: n.AbsolutePosition.X, Y: n.AbsolutePosition.Y}
	if n.Measured != nil {
		r.Width = n.Measured.Width
		r.Height = n.Measured.Height
	}
	return r
}

// Bool returns a pointer to b, for the optional flag fields.
func Bool(b bool) *bool { return &b }

// NodeDrag carries one node's new position during a pointer-drag
// gesture. AbsolutePosition is supplied by the drag layer, which tracks
// it incrementally rather than re-walking parent chains per frame.
type NodeDrag struct {
	ID               string
	Position         XYPosition
	AbsolutePosition XYPosition
}

// Measurement is a freshly measured DOM box for one node, with the
// handle rectangles found inside it. Force applies the update even when
// the measured size equals the stored size, which re-captures handle
// bounds after handles are added or removed at constant node size.
type Measurement struct {
	Dimensions
	Handles []Handle
	Force   bool
}

// NodesBounds returns the bounding rectangle of the given nodes, using
// absolute positions and measured dimensions. Unmeasured nodes count as
// points. Returns ok=false when nodes is empty.
func NodesBounds(nodes []Node) (Rect, bool) {
	if len(nodes) == 0 {
		return Rect{}, false
	}
	r := nodes[0].Rect()
	for i := 1; i < len(nodes); i++ {
		r = r.Union(nodes[i].Rect())
	}
	return r, true
}

// ViewportForBounds computes the transform that frames bounds inside a
// viewport of the given size, zoomed as far in as fits, clamped to
// [minZoom, maxZoom]. Padding is a fraction of the viewport reserved as
// margin (0.1 = 10% on each axis).
func ViewportForBounds(bounds Rect, width, height, minZoom, maxZoom, padding float64) Viewport {
	if bounds.Width <= 0 || bounds.Height <= 0 || width <= 0 || height <= 0 {
		return Viewport{Zoom: clamp(1, minZoom, maxZoom)}
	}
	xZoom := width / (bounds.Width * (1 + padding))
	yZoom := height / (bounds.Height * (1 + padding))
	zoom := clamp(min(xZoom, yZoom), minZoom, maxZoom)

	c := bounds.Center()
	return Viewport{
		X:    width/2 - c.X*zoom,
		Y:    height/2 - c.Y*zoom,
		Zoom: zoom,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HandleAnchor returns the absolute point edges attach to: the center of
// the handle rectangle, offset by the node's absolute position.
func HandleAnchor(n *Node, h Handle) XYPosition {
	return XYPosition{
		X: n.AbsolutePosition.X + h.X + h.Width/2,
		Y: n.AbsolutePosition.Y + h.Y + h.Height/2,
	}
}
