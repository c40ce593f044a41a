package store

import (
	"math"
	"testing"

	"github.com/JimmyLeeSnow/xyflow/pkg/errors"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
)

// fakePanZoom records engine calls for assertions.
type fakePanZoom struct {
	viewport     flow.Viewport
	setViewports []flow.Viewport
	scaleCalls   []float64
	minZoom      float64
	maxZoom      float64
	extent       flow.CoordinateExtent
}

func (f *fakePanZoom) ScaleBy(factor float64, _ ZoomOptions) {
	f.scaleCalls = append(f.scaleCalls, factor)
}

func (f *fakePanZoom) SetViewport(vp flow.Viewport, _ ZoomOptions) {
	f.viewport = vp
	f.setViewports = append(f.setViewports, vp)
}

func (f *fakePanZoom) SetScaleExtent(minZoom, maxZoom float64) {
	f.minZoom, f.maxZoom = minZoom, maxZoom
}

func (f *fakePanZoom) SetTranslateExtent(e flow.CoordinateExtent) { f.extent = e }

func (f *fakePanZoom) Viewport() flow.Viewport { return f.viewport }

func TestAttachPanZoomPushesLimits(t *testing.T) {
	s := newTestStore(t, Options{MinZoom: 0.1, MaxZoom: 4})
	pz := &fakePanZoom{}

	s.AttachPanZoom(pz)

	if pz.minZoom != 0.1 || pz.maxZoom != 4 {
		t.Errorf("engine scale extent = [%g, %g]", pz.minZoom, pz.maxZoom)
	}
	if !math.IsInf(pz.extent.Max.X, 1) {
		t.Error("engine should receive the translate extent")
	}
}

func TestZoomRequiresEngine(t *testing.T) {
	s := newTestStore(t, Options{})

	if err := s.ZoomIn(ZoomOptions{}); errors.GetCode(err) != errors.ErrCodeEngineNotAttached {
		t.Errorf("ZoomIn without engine = %v", err)
	}
	if err := s.ZoomOut(ZoomOptions{}); errors.GetCode(err) != errors.ErrCodeEngineNotAttached {
		t.Errorf("ZoomOut without engine = %v", err)
	}
}

func TestZoomDelegatesToEngine(t *testing.T) {
	s := newTestStore(t, Options{})
	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)

	if err := s.ZoomIn(ZoomOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.ZoomOut(ZoomOptions{}); err != nil {
		t.Fatal(err)
	}

	if len(pz.scaleCalls) != 2 {
		t.Fatalf("scale calls = %d, want 2", len(pz.scaleCalls))
	}
	if pz.scaleCalls[0] != zoomFactor || pz.scaleCalls[1] != 1/zoomFactor {
		t.Errorf("scale factors = %v", pz.scaleCalls)
	}
}

func TestSetZoomBoundsValidation(t *testing.T) {
	s := newTestStore(t, Options{}) // bounds [0.5, 2]

	if err := s.SetMinZoom(3); errors.GetCode(err) != errors.ErrCodeInvalidViewport {
		t.Errorf("SetMinZoom above max = %v", err)
	}
	if err := s.SetMaxZoom(0.2); errors.GetCode(err) != errors.ErrCodeInvalidViewport {
		t.Errorf("SetMaxZoom below min = %v", err)
	}

	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)
	if err := s.SetMinZoom(0.25); err != nil {
		t.Fatal(err)
	}
	if pz.minZoom != 0.25 {
		t.Error("engine should follow zoom bound updates")
	}
}

func TestSetViewportClampsZoom(t *testing.T) {
	s := newTestStore(t, Options{}) // bounds [0.5, 2]

	s.SetViewport(flow.Viewport{Zoom: 10})
	if got := s.Viewport().Zoom; got != 2 {
		t.Errorf("zoom = %g, want clamped to 2", got)
	}

	s.SetViewport(flow.Viewport{Zoom: 0.01})
	if got := s.Viewport().Zoom; got != 0.5 {
		t.Errorf("zoom = %g, want clamped to 0.5", got)
	}
}

func TestPanByUnbounded(t *testing.T) {
	s := newTestStore(t, Options{})

	if !s.PanBy(flow.XYPosition{X: 5, Y: -3}) {
		t.Fatal("PanBy should report a change")
	}
	if got := s.Viewport(); got.X != 5 || got.Y != -3 {
		t.Errorf("viewport = %+v", got)
	}
	if s.PanBy(flow.XYPosition{}) {
		t.Error("zero delta should report no change")
	}
}

func TestPanByClampedByExtent(t *testing.T) {
	s := newTestStore(t, Options{
		TranslateExtent: flow.CoordinateExtent{
			Min: flow.XYPosition{X: 0, Y: 0},
			Max: flow.XYPosition{X: 1000, Y: 1000},
		},
	})
	s.SetDimensions(flow.Dimensions{Width: 500, Height: 500})

	// At zoom 1 the legal X range is [-500, 0]; panning right from 0
	// hits the bound immediately.
	if s.PanBy(flow.XYPosition{X: 100}) {
		t.Error("pan beyond the extent should be a no-op")
	}
	if !s.PanBy(flow.XYPosition{X: -200}) {
		t.Fatal("pan inside the extent should apply")
	}
	if got := s.Viewport().X; got != -200 {
		t.Errorf("viewport X = %g, want -200", got)
	}
	// Overshooting clamps to the far bound.
	s.PanBy(flow.XYPosition{X: -10000})
	if got := s.Viewport().X; got != -500 {
		t.Errorf("viewport X = %g, want clamped -500", got)
	}
}

func TestFitViewImmediate(t *testing.T) {
	s := newTestStore(t, Options{})
	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)
	s.SetDimensions(flow.Dimensions{Width: 1000, Height: 500})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("b", 300, 100)})
	measure(s, "a", 100, 50)
	measure(s, "b", 100, 50)

	if !s.FitView(FitViewOptions{}) {
		t.Fatal("FitView with engine and geometry should succeed")
	}
	if len(pz.setViewports) != 1 {
		t.Fatalf("engine received %d viewports, want 1", len(pz.setViewports))
	}
	vp := pz.setViewports[0]
	if vp.Zoom < s.MinZoom() || vp.Zoom > s.MaxZoom() {
		t.Errorf("fitted zoom %g outside bounds", vp.Zoom)
	}
	// The store mirrors the engine transform.
	if s.Viewport() != s.clampViewport(vp) {
		t.Error("store viewport should mirror the applied transform")
	}
}

func TestFitViewWithoutEngine(t *testing.T) {
	s := newTestStore(t, Options{})

	if s.FitView(FitViewOptions{}) {
		t.Error("no engine and no WaitForInit should refuse")
	}
	if got := s.FitViewPhase(); got != FitViewNotRequested {
		t.Errorf("phase = %v, want NotRequested", got)
	}

	if !s.FitView(FitViewOptions{WaitForInit: true}) {
		t.Error("WaitForInit should accept the request optimistically")
	}
	if got := s.FitViewPhase(); got != FitViewScheduled {
		t.Errorf("phase = %v, want Scheduled", got)
	}
}

func TestFitViewDeferredFiresOnceOnMeasurement(t *testing.T) {
	s := newTestStore(t, Options{})
	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)
	s.SetDimensions(flow.Dimensions{Width: 1000, Height: 500})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0)})

	// No geometry yet: the request parks in the schedule.
	if !s.FitView(FitViewOptions{WaitForInit: true}) {
		t.Fatal("request should be accepted")
	}
	if len(pz.setViewports) != 0 {
		t.Fatal("fit must not run before geometry exists")
	}

	measure(s, "a", 100, 50)

	if got := s.FitViewPhase(); got != FitViewDone {
		t.Fatalf("phase = %v, want Done after measurement", got)
	}
	if len(pz.setViewports) != 1 {
		t.Fatalf("engine received %d viewports, want exactly 1", len(pz.setViewports))
	}

	// Further measurements must not re-fire the parked request.
	measure(s, "a", 120, 60)
	if len(pz.setViewports) != 1 {
		t.Error("scheduled fit ran more than once")
	}
}

func TestFitViewSubset(t *testing.T) {
	s := newTestStore(t, Options{})
	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)
	s.SetDimensions(flow.Dimensions{Width: 1000, Height: 1000})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0), nodeAt("far", 100000, 0)})
	measure(s, "a", 100, 100)
	measure(s, "far", 100, 100)

	if !s.FitView(FitViewOptions{Nodes: []string{"a"}}) {
		t.Fatal("subset fit should succeed")
	}
	// Fitting only node a frames [0, 100]: max zoom wins.
	if got := pz.viewport.Zoom; got != s.MaxZoom() {
		t.Errorf("subset zoom = %g, want max zoom %g", got, s.MaxZoom())
	}
}

func TestResetLeavesFitViewPhase(t *testing.T) {
	s := newTestStore(t, Options{})
	pz := &fakePanZoom{}
	s.AttachPanZoom(pz)
	s.SetDimensions(flow.Dimensions{Width: 1000, Height: 500})
	s.SetNodes([]*flow.Node{nodeAt("a", 0, 0)})
	s.FitView(FitViewOptions{WaitForInit: true})
	measure(s, "a", 100, 50)
	if s.FitViewPhase() != FitViewDone {
		t.Fatal("fit should have completed")
	}

	s.Reset()

	if got := s.FitViewPhase(); got != FitViewDone {
		t.Errorf("phase after Reset = %v, want Done (fit stays performed)", got)
	}
}
