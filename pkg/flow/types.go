package flow

import "math"

// XYPosition is a point in flow or screen coordinates.
type XYPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p XYPosition) Add(q XYPosition) XYPosition {
	return XYPosition{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p translated by -q.
func (p XYPosition) Sub(q XYPosition) XYPosition {
	return XYPosition{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dimensions is a measured width/height pair.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle in flow coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	x2 := math.Max(r.X+r.Width, o.X+o.Width)
	y2 := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// Intersects reports whether r and o overlap (touching edges count).
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && r.X+r.Width >= o.X &&
		r.Y <= o.Y+o.Height && r.Y+r.Height >= o.Y
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y &&
		o.X+o.Width <= r.X+r.Width && o.Y+o.Height <= r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() XYPosition {
	return XYPosition{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Position identifies a side of a node, used for handle placement and
// edge path orientation.
type Position string

// Node sides.
const (
	Top    Position = "top"
	Right  Position = "right"
	Bottom Position = "bottom"
	Left   Position = "left"
)

// Viewport is the pan/zoom transform applied to the flow canvas.
// Zoom is bounded by the store's [minZoom, maxZoom]; X and Y are bounded
// by the translate extent.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// ScreenToFlow converts a screen-space point to flow coordinates under
// the given viewport transform.
func ScreenToFlow(p XYPosition, vp Viewport) XYPosition {
	return XYPosition{X: (p.X - vp.X) / vp.Zoom, Y: (p.Y - vp.Y) / vp.Zoom}
}

// FlowToScreen converts a flow-space point to screen coordinates under
// the given viewport transform.
func FlowToScreen(p XYPosition, vp Viewport) XYPosition {
	return XYPosition{X: p.X*vp.Zoom + vp.X, Y: p.Y*vp.Zoom + vp.Y}
}

// CoordinateExtent bounds panning in flow coordinates.
type CoordinateExtent struct {
	Min XYPosition `json:"min"`
	Max XYPosition `json:"max"`
}

// InfiniteExtent is an extent that allows unbounded panning.
func InfiniteExtent() CoordinateExtent {
	return CoordinateExtent{
		Min: XYPosition{X: math.Inf(-1), Y: math.Inf(-1)},
		Max: XYPosition{X: math.Inf(1), Y: math.Inf(1)},
	}
}

// Clamp restricts p to the extent.
func (e CoordinateExtent) Clamp(p XYPosition) XYPosition {
	return XYPosition{
		X: math.Min(e.Max.X, math.Max(e.Min.X, p.X)),
		Y: math.Min(e.Max.Y, math.Max(e.Min.Y, p.Y)),
	}
}

// SnapGrid configures position snapping during drags.
// The zero value disables snapping.
type SnapGrid struct {
	Enabled bool    `json:"enabled"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Snap rounds p to the nearest grid intersection. Returns p unchanged
// when snapping is disabled or the grid spacing is zero.
func (g SnapGrid) Snap(p XYPosition) XYPosition {
	if !g.Enabled || g.X == 0 || g.Y == 0 {
		return p
	}
	return XYPosition{
		X: math.Round(p.X/g.X) * g.X,
		Y: math.Round(p.Y/g.Y) * g.Y,
	}
}

// SelectionMode controls which nodes a selection rectangle captures.
type SelectionMode string

const (
	// SelectionModePartial captures nodes that intersect the rectangle.
	SelectionModePartial SelectionMode = "partial"
	// SelectionModeFull captures only nodes fully contained in the rectangle.
	SelectionModeFull SelectionMode = "full"
)

// SelectionRect is the transient box-selection rectangle. It exists only
// while a box-selection gesture is active; the store cell holds nil
// otherwise. Start is the anchor corner where the gesture began.
type SelectionRect struct {
	Rect
	Start XYPosition    `json:"start"`
	Mode  SelectionMode `json:"mode"`
}
