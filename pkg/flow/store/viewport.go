package store

import (
	"math"
	"time"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/observability"
)

// zoomFactor is the step applied by ZoomIn and ZoomOut.
const zoomFactor = 1.2

// ZoomOptions tunes a single viewport operation. Duration is advisory:
// engines that animate honor it, others apply immediately.
type ZoomOptions struct {
	Duration time.Duration
}

// PanZoom is the externally supplied pan/zoom engine. It owns gesture
// handling and animation; the store delegates programmatic viewport
// operations to it and mirrors the resulting transform. The engine is
// optional - absent until DOM attachment completes - so every operation
// that needs it degrades explicitly when it is missing.
type PanZoom interface {
	// ScaleBy multiplies the current zoom by factor, clamped to the
	// engine's scale extent.
	ScaleBy(factor float64, opts ZoomOptions)

	// SetViewport applies an absolute transform.
	SetViewport(vp flow.Viewport, opts ZoomOptions)

	// SetScaleExtent sets the zoom bounds enforced for gestures.
	SetScaleExtent(minZoom, maxZoom float64)

	// SetTranslateExtent sets the pan bounds enforced for gestures.
	SetTranslateExtent(extent flow.CoordinateExtent)

	// Viewport reports the engine's live transform.
	Viewport() flow.Viewport
}

// FitViewOptions tunes a FitView call. Zero values inherit the store's
// configuration.
type FitViewOptions struct {
	// Nodes restricts the fit to the given node ids; empty fits all.
	Nodes []string `json:"nodes,omitempty"`

	// Padding is the margin fraction, default the store's FitViewPadding.
	Padding float64 `json:"padding,omitempty"`

	// MinZoom and MaxZoom override the store bounds for this call only.
	MinZoom float64 `json:"minZoom,omitempty"`
	MaxZoom float64 `json:"maxZoom,omitempty"`

	Duration time.Duration `json:"duration,omitempty"`

	// WaitForInit accepts the request even when no pan/zoom engine is
	// attached yet, scheduling it for retry once geometry is known.
	WaitForInit bool `json:"waitForInit,omitempty"`
}

// FitViewPhase is the fit-view-on-init state machine.
type FitViewPhase int

const (
	// FitViewNotRequested means no fit-view has been queued.
	FitViewNotRequested FitViewPhase = iota
	// FitViewScheduled means a fit-view waits for node geometry.
	FitViewScheduled
	// FitViewDone means the queued fit-view has been applied. Terminal
	// for the session; Reset does not revisit it.
	FitViewDone
)

type fitViewState struct {
	phase FitViewPhase
	opts  FitViewOptions
}

// FitViewPhase returns the current fit-view-on-init phase.
func (s *Store) FitViewPhase() FitViewPhase { return s.fitView.Get().phase }

// AttachPanZoom connects the external pan/zoom engine and pushes the
// store's current zoom bounds and translate extent to it, so gestures
// and programmatic operations share the same limits.
func (s *Store) AttachPanZoom(pz PanZoom) {
	s.mu.Lock()
	s.panZoom = pz
	s.mu.Unlock()
	if pz != nil {
		pz.SetScaleExtent(s.minZoom.Get(), s.maxZoom.Get())
		pz.SetTranslateExtent(s.translateExtent.Get())
	}
}

func (s *Store) engine() PanZoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panZoom
}

// ZoomIn multiplies the zoom by the fixed step factor, delegated to the
// engine, which clamps and optionally animates.
func (s *Store) ZoomIn(opts ZoomOptions) error {
	pz := s.engine()
	if pz == nil {
		return errors.New(errors.ErrCodeEngineNotAttached, "zoom in requires an attached pan/zoom engine")
	}
	pz.ScaleBy(zoomFactor, opts)
	return nil
}

// ZoomOut divides the zoom by the fixed step factor.
func (s *Store) ZoomOut(opts ZoomOptions) error {
	pz := s.engine()
	if pz == nil {
		return errors.New(errors.ErrCodeEngineNotAttached, "zoom out requires an attached pan/zoom engine")
	}
	pz.ScaleBy(1/zoomFactor, opts)
	return nil
}

// SetMinZoom updates the lower zoom bound in the store and the engine.
func (s *Store) SetMinZoom(z float64) error {
	if z <= 0 || z > s.maxZoom.Get() {
		return errors.New(errors.ErrCodeInvalidViewport, "minZoom %g out of range (0, maxZoom=%g]", z, s.maxZoom.Get())
	}
	s.minZoom.Set(z)
	if pz := s.engine(); pz != nil {
		pz.SetScaleExtent(z, s.maxZoom.Get())
	}
	return nil
}

// SetMaxZoom updates the upper zoom bound in the store and the engine.
func (s *Store) SetMaxZoom(z float64) error {
	if z < s.minZoom.Get() {
		return errors.New(errors.ErrCodeInvalidViewport, "maxZoom %g below minZoom %g", z, s.minZoom.Get())
	}
	s.maxZoom.Set(z)
	if pz := s.engine(); pz != nil {
		pz.SetScaleExtent(s.minZoom.Get(), z)
	}
	return nil
}

// SetTranslateExtent updates the pan bounds in the store and the engine.
func (s *Store) SetTranslateExtent(e flow.CoordinateExtent) {
	s.translateExtent.Set(e)
	if pz := s.engine(); pz != nil {
		pz.SetTranslateExtent(e)
	}
}

// FitView computes a transform framing the given (or all) nodes and
// applies it through the engine. When the engine is missing or no node
// has known geometry yet, the request is scheduled for retry by the
// dimension-update pipeline and FitView returns true optimistically; a
// missing engine without WaitForInit returns false. The scheduled
// request fires at most once (phase machine: NotRequested, Scheduled,
// Done).
func (s *Store) FitView(opts FitViewOptions) bool {
	pz := s.engine()
	if pz == nil && !opts.WaitForInit {
		return false
	}

	if pz == nil || !s.canFit(opts) {
		if s.fitView.Get().phase == FitViewDone {
			return false
		}
		s.fitView.Set(fitViewState{phase: FitViewScheduled, opts: opts})
		observability.Store().OnFitView(true)
		return true
	}

	ok := s.applyFitView(pz, opts)
	observability.Store().OnFitView(false)
	return ok
}

// retryScheduledFitView is called by UpdateNodeDimensions once fresh
// geometry lands. A successful fit moves the machine to Done.
func (s *Store) retryScheduledFitView() {
	st := s.fitView.Get()
	if st.phase != FitViewScheduled {
		return
	}
	pz := s.engine()
	if pz == nil || !s.canFit(st.opts) {
		return
	}
	if s.applyFitView(pz, st.opts) {
		s.fitView.Set(fitViewState{phase: FitViewDone})
	}
}

func (s *Store) canFit(opts FitViewOptions) bool {
	dims := s.dimensions.Get()
	if dims.Width <= 0 || dims.Height <= 0 {
		return false
	}
	return len(s.fitTargets(opts)) > 0
}

// fitTargets returns the measured nodes the fit should frame.
func (s *Store) fitTargets(opts FitViewOptions) []*flow.Node {
	subset := idSet(opts.Nodes)
	var out []*flow.Node
	for _, n := range s.visibleNodes.Get() {
		if n.Measured == nil {
			continue
		}
		if subset != nil && !subset[n.ID] {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (s *Store) applyFitView(pz PanZoom, opts FitViewOptions) bool {
	targets := s.fitTargets(opts)
	bounds, ok := flow.NodesBounds(nodesValues(targets))
	if !ok {
		return false
	}

	dims := s.dimensions.Get()
	minZoom := opts.MinZoom
	if minZoom == 0 {
		minZoom = s.minZoom.Get()
	}
	maxZoom := opts.MaxZoom
	if maxZoom == 0 {
		maxZoom = s.maxZoom.Get()
	}
	padding := opts.Padding
	if padding == 0 {
		padding = s.opts.FitViewPadding
	}

	vp := flow.ViewportForBounds(bounds, dims.Width, dims.Height, minZoom, maxZoom, padding)
	pz.SetViewport(vp, ZoomOptions{Duration: opts.Duration})
	s.viewport.Set(s.clampViewport(vp))
	return true
}

// PanBy translates the viewport by delta, clamped by the translate
// extent at the current zoom. Reports whether the transform changed.
func (s *Store) PanBy(delta flow.XYPosition) bool {
	vp := s.viewport.Get()
	next := s.clampViewport(flow.Viewport{X: vp.X + delta.X, Y: vp.Y + delta.Y, Zoom: vp.Zoom})
	if next == vp {
		return false
	}
	if pz := s.engine(); pz != nil {
		pz.SetViewport(next, ZoomOptions{})
	}
	s.viewport.Set(next)
	return true
}

// clampViewport bounds the transform by the zoom limits and, when the
// container size is known, by the translate extent.
func (s *Store) clampViewport(vp flow.Viewport) flow.Viewport {
	minZ, maxZ := s.minZoom.Get(), s.maxZoom.Get()
	vp.Zoom = math.Min(maxZ, math.Max(minZ, vp.Zoom))

	e := s.translateExtent.Get()
	dims := s.dimensions.Get()
	if math.IsInf(e.Min.X, -1) && math.IsInf(e.Max.X, 1) &&
		math.IsInf(e.Min.Y, -1) && math.IsInf(e.Max.Y, 1) {
		return vp
	}

	// The visible flow region [(-x)/zoom, (width-x)/zoom] must stay
	// inside the extent; solved for x and y.
	minX := dims.Width - e.Max.X*vp.Zoom
	maxX := -e.Min.X * vp.Zoom
	if minX <= maxX {
		vp.X = math.Min(maxX, math.Max(minX, vp.X))
	}
	minY := dims.Height - e.Max.Y*vp.Zoom
	maxY := -e.Min.Y * vp.Zoom
	if minY <= maxY {
		vp.Y = math.Min(maxY, math.Max(minY, vp.Y))
	}
	return vp
}

func nodesValues(nodes []*flow.Node) []flow.Node {
	out := make([]flow.Node, len(nodes))
	for i, n := range nodes {
		out[i] = *n
	}
	return out
}
