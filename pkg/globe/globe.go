package globe

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Picking is refreshed only while the camera is settling: below the
	// lower bound the remaining motion is float noise, above the upper
	// bound the globe still moves too fast for a refresh to stay valid.
	pickErrorLow  = 1e-6
	pickErrorHigh = 1e-4
)

// Options configures a Globe. Zero values take the defaults listed.
type Options struct {
	// Capacity of the marker ring. Default 10000.
	Capacity int
	// Radius of the globe in scene units. Default 200.
	Radius float64
	// LongitudeOffset is subtracted from every marker longitude so markers
	// line up with the map texture. Default 10.
	LongitudeOffset *float64
	// MarkerScale multiplies Radius for marker placement. Default 1.
	MarkerScale float64

	PickInterval time.Duration // default 300ms
	MapInterval  time.Duration // default 100ms

	// Camera overrides the default camera. Nil fields keep the defaults.
	Camera PositionOptions
	// DragDamp scales mouse drag distance into angles. Default 5e-9.
	DragDamp float64

	Aggregator AggregatorOptions

	// MarkerLabel formats a marker label for the tooltip.
	MarkerLabel func(label string) string
	// CountryLabel formats the tooltip shown over a country.
	CountryLabel func(cc string, count, total int) string

	Logger *zerolog.Logger
}

// DefaultCamera returns the camera the globe starts with: far away, easing
// in to distance 1000 above the north Atlantic.
func DefaultCamera() PositionOptions {
	const halfPi = math.Pi / 2
	inf := math.Inf(1)
	return PositionOptions{
		Current:    &Vec3{10000, 0, 0},
		Target:     &Vec3{1000, halfPi * 1.3, halfPi * 0.25},
		Weights:    &Vec3{0.3, 0.1, 0.1},
		LowerLimit: &Vec3{250, -inf, -halfPi},
		UpperLimit: &Vec3{1000, inf, halfPi},
	}
}

func defaultCountryLabel(cc string, count, total int) string {
	return fmt.Sprintf("CC: %s Markers: %d of %d total", cc, count, total)
}

func (o *Options) setDefaults() {
	if o.Capacity == 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Radius == 0 {
		o.Radius = 200
	}
	if o.LongitudeOffset == nil {
		offset := 10.0
		o.LongitudeOffset = &offset
	}
	if o.MarkerScale == 0 {
		o.MarkerScale = 1
	}
	if o.PickInterval == 0 {
		o.PickInterval = 300 * time.Millisecond
	}
	if o.MapInterval == 0 {
		o.MapInterval = 100 * time.Millisecond
	}
	cam := DefaultCamera()
	if o.Camera.Current == nil {
		o.Camera.Current = cam.Current
	}
	if o.Camera.Target == nil {
		o.Camera.Target = cam.Target
	}
	if o.Camera.Weights == nil {
		o.Camera.Weights = cam.Weights
	}
	if o.Camera.LowerLimit == nil {
		o.Camera.LowerLimit = cam.LowerLimit
	}
	if o.Camera.UpperLimit == nil {
		o.Camera.UpperLimit = cam.UpperLimit
	}
	if o.DragDamp == 0 {
		o.DragDamp = 5e-9
	}
	if o.MarkerLabel == nil {
		o.MarkerLabel = func(label string) string { return label }
	}
	if o.CountryLabel == nil {
		o.CountryLabel = defaultCountryLabel
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

// Globe wires user gestures and marker updates to the camera, the marker
// ring and the country table, and schedules renderer refreshes.
type Globe struct {
	opts     Options
	logger   zerolog.Logger
	renderer Renderer
	tooltip  Tooltip

	position  *Position
	markers   *MarkerRegistry
	countries *CountryAggregator
	scene     *Scene

	pickUpdate *Throttler
	mapUpdate  *Throttler

	mouseDown bool
}

// New builds a Globe drawing through r. Throttled refreshes are timed by
// sched, which must run its callbacks on the frame loop goroutine.
func New(r Renderer, tooltip Tooltip, sched Scheduler, opts Options) *Globe {
	opts.setDefaults()
	g := &Globe{
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "globe").Logger(),
		renderer:  r,
		tooltip:   tooltip,
		markers:   NewMarkerRegistry(opts.Capacity),
		countries: NewCountryAggregator(opts.Aggregator),
	}
	g.position = NewPosition(opts.Camera, g.logger)
	g.scene = &Scene{Markers: g.markers, Countries: g.countries, Radius: opts.Radius}
	g.pickUpdate = NewThrottler(opts.PickInterval, sched)
	g.mapUpdate = NewThrottler(opts.MapInterval, sched)

	g.renderer.UpdateMap(g.scene)
	g.logger.Debug().
		Int("capacity", g.markers.Capacity()).
		Float64("radius", opts.Radius).
		Msg("globe ready")
	return g
}

func (g *Globe) refreshPicking() {
	previous := g.renderer.Mode()
	g.renderer.SetMode(PickMode)
	g.renderer.UpdatePicking(g.scene)
	g.renderer.SetMode(previous)
}

func (g *Globe) refreshMap() {
	g.renderer.UpdateMap(g.scene)
}

func (g *Globe) scheduleRefresh() {
	g.pickUpdate.Execute(g.refreshPicking)
	g.mapUpdate.Execute(g.refreshMap)
}

// Frame advances the camera one step and renders. Call it once per frame.
func (g *Globe) Frame() {
	if e := g.position.Error(); e > pickErrorLow && e < pickErrorHigh {
		g.pickUpdate.Execute(g.refreshPicking)
	}
	pos := g.position.DoStep()
	g.renderer.SetCamera(pos.X, pos.Y, pos.Z)
	g.renderer.Render(g.scene)
}

// AddMarker places a marker and returns its handle. When the ring is full
// the oldest marker is evicted and its country decremented.
func (g *Globe) AddMarker(cc string, lat, lon float64, label string) int {
	radius := g.opts.Radius * g.opts.MarkerScale
	id := g.markers.Add(cc, lat, lon-*g.opts.LongitudeOffset, radius, label, g.countries.Decrement)
	g.countries.Increment(cc)
	if a, ok := g.renderer.(Animator); ok {
		a.Animate(g.markers.Position(id))
	}
	g.scheduleRefresh()
	return id
}

// RemoveMarker frees a marker handle. Handles that are not live are ignored.
func (g *Globe) RemoveMarker(id int) {
	cc, ok := g.markers.CountryCode(id)
	if !ok {
		return
	}
	g.markers.Remove(id)
	g.countries.Decrement(cc)
	g.scheduleRefresh()
}

// Reset removes every marker and clears the country counts.
func (g *Globe) Reset() {
	g.countries.Reset()
	g.markers.Reset()
	g.scheduleRefresh()
}

// ToggleView switches between the heat view and the map view.
func (g *Globe) ToggleView() {
	if g.renderer.Mode() == HeatMode {
		g.renderer.SetMode(MapMode)
	} else {
		g.renderer.SetMode(HeatMode)
	}
}

// Zoom moves the camera delta units closer. It is ignored while dragging.
func (g *Globe) Zoom(delta float64) {
	g.tooltip.Hide()
	if !g.mouseDown {
		g.position.AdjustTarget(Vec3{-delta, 0, 0})
	}
}

// Rotate turns the camera. It is ignored while dragging.
func (g *Globe) Rotate(horizontal, vertical float64) {
	g.tooltip.Hide()
	if !g.mouseDown {
		g.position.AdjustTarget(Vec3{0, horizontal, vertical})
	}
}

func (g *Globe) Resize() {
	g.renderer.Resize()
	g.pickUpdate.Execute(g.refreshPicking)
}

// wheelStep is the zoom distance of one wheel notch.
const wheelStep = 120 * 0.7

// Wheel zooms by a number of wheel notches, positive towards the globe.
func (g *Globe) Wheel(notches float64) {
	g.Zoom(notches * wheelStep)
}

// MouseDown starts a drag at window coordinates (x, y).
func (g *Globe) MouseDown(x, y int) {
	g.mouseDown = true
	g.position.Store(Vec3{0, -float64(x), float64(y)})
	g.tooltip.Hide()
}

func (g *Globe) MouseUp() {
	g.mouseDown = false
}

// MouseOut ends any drag and hides the tooltip.
func (g *Globe) MouseOut() {
	g.tooltip.Hide()
	g.mouseDown = false
}

// MouseMove drags the globe while the button is held. Otherwise it updates
// the hover tooltip from the pick buffer at (x, y) and shows it at
// (screenX, screenY).
func (g *Globe) MouseMove(x, y, screenX, screenY int) {
	if g.mouseDown {
		g.tooltip.Hide()
		g.position.AdjustTargetRelative(Vec3{0, -float64(x), float64(y)}, g.opts.DragDamp)
		return
	}
	g.setLabel(x, y, screenX, screenY)
	g.mapUpdate.Execute(g.refreshMap)
}

func (g *Globe) setLabel(x, y, screenX, screenY int) {
	hit := Decode(g.renderer.Pixel(x, y))
	switch hit.Kind {
	case MarkerHit:
		g.tooltip.Show(g.opts.MarkerLabel(g.markers.Label(hit.Marker)), screenX, screenY)
	case CountryHit:
		label := g.opts.CountryLabel(
			g.countries.Code(hit.Country),
			g.countries.Count(hit.Country),
			g.countries.Total(),
		)
		g.renderer.SetHighlight(hit.Country)
		g.tooltip.Show(label, screenX, screenY)
	default:
		g.tooltip.Hide()
		g.renderer.SetHighlight(-1)
	}
}

// Pick decodes the entity under window coordinates (x, y).
func (g *Globe) Pick(x, y int) Hit {
	return Decode(g.renderer.Pixel(x, y))
}

func (g *Globe) HasMarkers() bool              { return g.countries.HasMarkers() }
func (g *Globe) Mode() Mode                    { return g.renderer.Mode() }
func (g *Globe) Dragging() bool                { return g.mouseDown }
func (g *Globe) Camera() Vec3                  { return g.position.Current() }
func (g *Globe) CameraError() float64          { return g.position.Error() }
func (g *Globe) Countries() *CountryAggregator { return g.countries }
func (g *Globe) Markers() *MarkerRegistry      { return g.markers }
