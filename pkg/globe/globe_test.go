package globe

import (
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	mode      Mode
	camera    Vec3
	highlight int
	pixel     color.RGBA

	renders      int
	pickUpdates  int
	mapUpdates   int
	resizes      int
	pickModes    []Mode
	animated     []Vec3
	lastMapTotal int
}

func (r *fakeRenderer) SetCamera(d, h, v float64) { r.camera = Vec3{d, h, v} }
func (r *fakeRenderer) SetMode(m Mode)            { r.mode = m }
func (r *fakeRenderer) Mode() Mode                { return r.mode }
func (r *fakeRenderer) Render(*Scene)             { r.renders++ }
func (r *fakeRenderer) UpdatePicking(*Scene) {
	r.pickUpdates++
	r.pickModes = append(r.pickModes, r.mode)
}
func (r *fakeRenderer) UpdateMap(s *Scene) {
	r.mapUpdates++
	r.lastMapTotal = s.Countries.Total()
}
func (r *fakeRenderer) Pixel(int, int) color.RGBA { return r.pixel }
func (r *fakeRenderer) SetHighlight(i int)        { r.highlight = i }
func (r *fakeRenderer) Resize()                   { r.resizes++ }
func (r *fakeRenderer) Animate(pos Vec3)          { r.animated = append(r.animated, pos) }

type fakeTooltip struct {
	visible bool
	text    string
	x, y    int
}

func (t *fakeTooltip) Show(text string, x, y int) {
	t.visible, t.text, t.x, t.y = true, text, x, y
}
func (t *fakeTooltip) Hide() { t.visible = false }

type harness struct {
	globe    *Globe
	renderer *fakeRenderer
	tooltip  *fakeTooltip
	timers   *Timers
	clock    *manualClock
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	timers, clock := newTestTimers()
	r := &fakeRenderer{highlight: -1}
	tt := &fakeTooltip{}
	return &harness{
		globe:    New(r, tt, timers, opts),
		renderer: r,
		tooltip:  tt,
		timers:   timers,
		clock:    clock,
	}
}

func (h *harness) settle() {
	for i := 0; i < 10; i++ {
		h.clock.advance(h.timers, 100*time.Millisecond)
	}
}

func TestGlobeAddMarker(t *testing.T) {
	h := newHarness(t, Options{})
	mapsBefore := h.renderer.mapUpdates

	id := h.globe.AddMarker("US", 40.7, -74, "nyc")
	assert.Equal(t, 0, id)
	assert.True(t, h.globe.HasMarkers())
	assert.Equal(t, 1, h.globe.Countries().CountOf("US"))
	assert.Equal(t, 1, h.renderer.pickUpdates)
	assert.Equal(t, mapsBefore+1, h.renderer.mapUpdates)
	assert.Equal(t, 1, h.renderer.lastMapTotal)
	require.Len(t, h.renderer.animated, 1)

	// Longitude is shifted by the default offset of 10 degrees.
	lat, lon := Geographic(h.globe.Markers().Position(id))
	assert.InDelta(t, 40.7, lat, 1e-9)
	assert.InDelta(t, -84, lon, 1e-9)
	assert.InDelta(t, 200, h.globe.Markers().Position(id).Len(), 1e-9)

	// The picking pass runs in pick mode and restores the previous mode.
	assert.Equal(t, []Mode{PickMode}, h.renderer.pickModes)
	assert.Equal(t, MapMode, h.renderer.Mode())
}

func TestGlobeAddMarkerThrottled(t *testing.T) {
	h := newHarness(t, Options{})
	for i := 0; i < 50; i++ {
		h.globe.AddMarker("DE", 52, 13, "")
	}
	assert.Equal(t, 1, h.renderer.pickUpdates)

	h.settle()
	assert.Equal(t, 2, h.renderer.pickUpdates)
	assert.Equal(t, 50, h.renderer.lastMapTotal)
}

func TestGlobeOverflowDecrementsCountry(t *testing.T) {
	h := newHarness(t, Options{Capacity: 2})
	h.globe.AddMarker("A1", 0, 0, "L1")
	h.globe.AddMarker("FR", 0, 0, "L2")
	id := h.globe.AddMarker("GB", 0, 0, "L3")

	c := h.globe.Countries()
	assert.Equal(t, 0, id)
	assert.Equal(t, 0, c.CountOf("A1"))
	assert.Equal(t, 1, c.CountOf("FR"))
	assert.Equal(t, 1, c.CountOf("GB"))
	assert.Equal(t, 2, c.Total())
}

func TestGlobeRemoveMarker(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.globe.AddMarker("NL", 52.4, 4.9, "ams")
	h.globe.RemoveMarker(id)

	assert.False(t, h.globe.HasMarkers())
	assert.Equal(t, 0, h.globe.Countries().CountOf("NL"))

	// Removing twice does not go negative or touch other countries.
	h.globe.AddMarker("BE", 50.8, 4.4, "bru")
	h.globe.RemoveMarker(id)
	assert.Equal(t, 1, h.globe.Countries().Total())
}

func TestGlobeReset(t *testing.T) {
	h := newHarness(t, Options{Capacity: 3})
	h.globe.AddMarker("US", 0, 0, "")
	h.globe.AddMarker("US", 0, 0, "")
	h.globe.Reset()

	assert.False(t, h.globe.HasMarkers())
	assert.Equal(t, 0, h.globe.Markers().Len())
	assert.Equal(t, 2, h.globe.AddMarker("CA", 0, 0, ""))
}

func TestGlobeToggleView(t *testing.T) {
	h := newHarness(t, Options{})
	assert.Equal(t, MapMode, h.globe.Mode())
	h.globe.ToggleView()
	assert.Equal(t, HeatMode, h.globe.Mode())
	h.globe.ToggleView()
	assert.Equal(t, MapMode, h.globe.Mode())

	h.renderer.SetMode(PickMode)
	h.globe.ToggleView()
	assert.Equal(t, HeatMode, h.globe.Mode())
}

func TestGlobeFrameConverges(t *testing.T) {
	h := newHarness(t, Options{})
	for i := 0; i < 400; i++ {
		h.globe.Frame()
	}
	assert.Equal(t, 400, h.renderer.renders)
	assert.InDelta(t, 1000, h.renderer.camera.X, 1e-6)
	assert.InDelta(t, math.Pi/2*1.3, h.renderer.camera.Y, 1e-6)
	assert.InDelta(t, math.Pi/2*0.25, h.renderer.camera.Z, 1e-6)

	// The camera passed through the settling band, which refreshes picking.
	assert.GreaterOrEqual(t, h.renderer.pickUpdates, 1)
}

func TestGlobeFrameNoPickWhileMoving(t *testing.T) {
	h := newHarness(t, Options{})
	h.globe.Frame()
	assert.Equal(t, 0, h.renderer.pickUpdates)
}

func TestGlobeFrameNoPickOnceSettled(t *testing.T) {
	t.Run("at rest", func(t *testing.T) {
		cur := Vec3{500, 1, 0.5}
		h := newHarness(t, Options{Camera: PositionOptions{Current: &cur, Target: &cur}})
		require.Zero(t, h.globe.CameraError())
		for i := 0; i < 50; i++ {
			h.globe.Frame()
			h.clock.advance(h.timers, 100*time.Millisecond)
		}
		assert.Equal(t, 0, h.renderer.pickUpdates)
	})

	t.Run("after converging", func(t *testing.T) {
		h := newHarness(t, Options{})
		for i := 0; i < 400; i++ {
			h.globe.Frame()
		}
		h.settle()
		require.Less(t, h.globe.CameraError(), 1e-6)

		before := h.renderer.pickUpdates
		for i := 0; i < 50; i++ {
			h.globe.Frame()
			h.clock.advance(h.timers, 100*time.Millisecond)
		}
		assert.Equal(t, before, h.renderer.pickUpdates)
	})
}

func TestGlobeZoomAndRotate(t *testing.T) {
	cur := Vec3{500, 0, 0}
	h := newHarness(t, Options{Camera: PositionOptions{Current: &cur, Target: &cur}})

	h.tooltip.visible = true
	h.globe.Zoom(100)
	assert.False(t, h.tooltip.visible)
	assert.Equal(t, 400.0, h.globe.position.Target().X)

	h.globe.Rotate(1e-6, -1e-6)
	assert.InDelta(t, 0.25, h.globe.position.Target().Y, 1e-12)
	assert.InDelta(t, -0.25, h.globe.position.Target().Z, 1e-12)

	h.globe.Wheel(1)
	assert.InDelta(t, 400-84, h.globe.position.Target().X, 1e-9)

	// Zoom is clamped to the default limits.
	h.globe.Zoom(10000)
	assert.Equal(t, 250.0, h.globe.position.Target().X)
}

func TestGlobeDrag(t *testing.T) {
	cur := Vec3{1000, 0, 0}
	h := newHarness(t, Options{Camera: PositionOptions{Current: &cur, Target: &cur}})

	h.globe.MouseDown(100, 100)
	assert.True(t, h.globe.Dragging())

	// Zoom and rotate are ignored while dragging.
	h.globe.Zoom(100)
	h.globe.Rotate(1, 1)
	assert.Equal(t, cur, h.globe.position.Target())

	h.globe.MouseMove(50, 120, 50, 120)
	// (0, -50+100, 120-100) * 5e-9 * 1000^2
	target := h.globe.position.Target()
	assert.InDelta(t, 0.25, target.Y, 1e-9)
	assert.InDelta(t, 0.1, target.Z, 1e-9)

	h.globe.MouseUp()
	assert.False(t, h.globe.Dragging())

	h.globe.MouseDown(0, 0)
	h.globe.MouseOut()
	assert.False(t, h.globe.Dragging())
}

func TestGlobeHoverLabels(t *testing.T) {
	h := newHarness(t, Options{
		MarkerLabel: func(label string) string { return "marker " + label },
	})
	id := h.globe.AddMarker("DE", 52.5, 13.4, "berlin")
	h.globe.AddMarker("DE", 48.1, 11.6, "munich")
	h.globe.AddMarker("FR", 48.9, 2.4, "paris")

	c, _ := EncodeMarker(id)
	h.renderer.pixel = c
	h.globe.MouseMove(10, 20, 110, 120)
	assert.True(t, h.tooltip.visible)
	assert.Equal(t, "marker berlin", h.tooltip.text)
	assert.Equal(t, 110, h.tooltip.x)
	assert.Equal(t, 120, h.tooltip.y)

	de, _ := CountryIndex("DE")
	c, _ = EncodeCountry(de)
	h.renderer.pixel = c
	h.globe.MouseMove(10, 20, 10, 20)
	assert.Equal(t, "CC: DE Markers: 2 of 3 total", h.tooltip.text)
	assert.Equal(t, de, h.renderer.highlight)

	h.renderer.pixel = color.RGBA{}
	h.globe.MouseMove(10, 20, 10, 20)
	assert.False(t, h.tooltip.visible)
	assert.Equal(t, -1, h.renderer.highlight)
}

func TestGlobeResize(t *testing.T) {
	h := newHarness(t, Options{})
	h.globe.Resize()
	assert.Equal(t, 1, h.renderer.resizes)
	assert.Equal(t, 1, h.renderer.pickUpdates)
}
