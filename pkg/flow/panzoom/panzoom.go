// Package panzoom provides a headless pan/zoom engine implementing
// store.PanZoom. It is the default engine for hosts without a native
// gesture layer (servers, tests, terminal UIs): transforms apply
// synchronously and animation durations are ignored.
package panzoom

import (
	"math"
	"sync"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

// Options configures an Engine. Zero values fall back to the store
// defaults for zoom bounds and an unbounded translate extent.
type Options struct {
	MinZoom float64
	MaxZoom float64
	Extent  flow.CoordinateExtent

	// Dimensions is the viewport size zoom operations center on. When
	// zero, ScaleBy zooms about the canvas origin instead.
	Dimensions flow.Dimensions

	// OnChange is invoked after every transform change with the new
	// viewport. Hosts typically wire this to Store.SetViewport.
	OnChange func(flow.Viewport)
}

// Engine is a synchronous pan/zoom transform holder. All methods are
// safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	viewport flow.Viewport
	minZoom  float64
	maxZoom  float64
	extent   flow.CoordinateExtent
	dims     flow.Dimensions
	onChange func(flow.Viewport)
}

// New creates an engine at the identity transform.
func New(opts Options) *Engine {
	if opts.MinZoom == 0 {
		opts.MinZoom = store.DefaultMinZoom
	}
	if opts.MaxZoom == 0 {
		opts.MaxZoom = store.DefaultMaxZoom
	}
	if opts.Extent == (flow.CoordinateExtent{}) {
		opts.Extent = flow.InfiniteExtent()
	}
	return &Engine{
		viewport: flow.Viewport{Zoom: 1},
		minZoom:  opts.MinZoom,
		maxZoom:  opts.MaxZoom,
		extent:   opts.Extent,
		dims:     opts.Dimensions,
		onChange: opts.OnChange,
	}
}

// SetDimensions updates the viewport size zoom operations center on.
func (e *Engine) SetDimensions(d flow.Dimensions) {
	e.mu.Lock()
	e.dims = d
	e.mu.Unlock()
}

// ScaleBy multiplies the zoom by factor, keeping the flow point under
// the viewport center fixed.
func (e *Engine) ScaleBy(factor float64, _ store.ZoomOptions) {
	e.mu.Lock()
	vp := e.viewport
	zoom := e.clampZoom(vp.Zoom * factor)
	if zoom == vp.Zoom {
		e.mu.Unlock()
		return
	}

	if e.dims.Width > 0 && e.dims.Height > 0 {
		cx, cy := e.dims.Width/2, e.dims.Height/2
		// Flow point under the center stays under the center.
		fx := (cx - vp.X) / vp.Zoom
		fy := (cy - vp.Y) / vp.Zoom
		vp.X = cx - fx*zoom
		vp.Y = cy - fy*zoom
	}
	vp.Zoom = zoom
	e.apply(vp)
}

// SetViewport applies an absolute transform, clamped to the engine
// limits.
func (e *Engine) SetViewport(vp flow.Viewport, _ store.ZoomOptions) {
	e.mu.Lock()
	vp.Zoom = e.clampZoom(vp.Zoom)
	e.apply(vp)
}

// SetScaleExtent replaces the zoom bounds and re-clamps the transform.
func (e *Engine) SetScaleExtent(minZoom, maxZoom float64) {
	e.mu.Lock()
	e.minZoom, e.maxZoom = minZoom, maxZoom
	vp := e.viewport
	vp.Zoom = e.clampZoom(vp.Zoom)
	e.apply(vp)
}

// SetTranslateExtent replaces the pan bounds and re-clamps the
// transform.
func (e *Engine) SetTranslateExtent(extent flow.CoordinateExtent) {
	e.mu.Lock()
	e.extent = extent
	e.apply(e.viewport)
}

// Viewport reports the current transform.
func (e *Engine) Viewport() flow.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

func (e *Engine) clampZoom(z float64) float64 {
	return math.Min(e.maxZoom, math.Max(e.minZoom, z))
}

// apply clamps the pan, stores the transform, and fires OnChange when
// it actually moved. Called with e.mu held; releases it before the
// callback so the callback may call back into the engine.
func (e *Engine) apply(vp flow.Viewport) {
	vp = e.clampPan(vp)
	changed := vp != e.viewport
	e.viewport = vp
	onChange := e.onChange
	e.mu.Unlock()
	if changed && onChange != nil {
		onChange(vp)
	}
}

func (e *Engine) clampPan(vp flow.Viewport) flow.Viewport {
	if e.dims.Width <= 0 || e.dims.Height <= 0 {
		return vp
	}
	ext := e.extent
	if math.IsInf(ext.Min.X, -1) && math.IsInf(ext.Max.X, 1) &&
		math.IsInf(ext.Min.Y, -1) && math.IsInf(ext.Max.Y, 1) {
		return vp
	}

	minX := e.dims.Width - ext.Max.X*vp.Zoom
	maxX := -ext.Min.X * vp.Zoom
	if minX <= maxX {
		vp.X = math.Min(maxX, math.Max(minX, vp.X))
	}
	minY := e.dims.Height - ext.Max.Y*vp.Zoom
	maxY := -ext.Min.Y * vp.Zoom
	if minY <= maxY {
		vp.Y = math.Min(maxY, math.Max(minY, vp.Y))
	}
	return vp
}
