// Package viewer runs the globe in an ebiten window. Markers arrive on a
// channel and are drained on the frame loop, which owns all globe state.
package viewer

import (
	"bytes"
	"image"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/feed"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"github.com/sudorandom/bgp-globe/pkg/sphere"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	drainPerFrame    = 20
	drainBacklog     = 100
	backlogWatermark = 1000

	// per frame at distance 1000, scaled by the camera distance squared
	rotateStep = 2e-8
	zoomStep   = 20
)

type Config struct {
	Globe  globe.Options
	Render sphere.Options
	// Scale divides the window size into the render resolution. Default 1.
	Scale float64
	// CaptureDir receives PNG captures taken with the P key. Empty
	// disables capturing.
	CaptureDir string
	// TopCountries is the number of rows in the activity overlay. Zero
	// hides the overlay.
	TopCountries int
	// Done ends the game loop when closed.
	Done   <-chan struct{}
	Logger zerolog.Logger
}

// Viewer implements ebiten.Game.
type Viewer struct {
	cfg      Config
	logger   zerolog.Logger
	globe    *globe.Globe
	renderer *sphere.Renderer
	timers   *globe.Timers
	tooltip  *Tooltip
	markers  <-chan sources.Marker
	placer   *feed.Placer

	canvas     *ebiten.Image
	fontSource *text.GoTextFaceSource
	monoSource *text.GoTextFaceSource

	width, height int
	layoutW       int
	layoutH       int
	cursor        image.Point
	cursorIn      bool
}

// New builds a Viewer over world fed by markers. The channel may be nil
// when markers are added through Globe directly.
func New(world *sphere.WorldMap, markers <-chan sources.Marker, cfg Config) *Viewer {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Globe.Logger == nil {
		cfg.Globe.Logger = &cfg.Logger
	}
	if cfg.Render.Logger == nil {
		cfg.Render.Logger = &cfg.Logger
	}
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))

	v := &Viewer{
		cfg:        cfg,
		logger:     cfg.Logger.With().Str("component", "viewer").Logger(),
		renderer:   sphere.New(world, cfg.Render),
		timers:     globe.NewTimers(nil),
		tooltip:    &Tooltip{},
		markers:    markers,
		fontSource: s,
		monoSource: m,
	}
	v.width, v.height = v.renderer.Size()
	v.layoutW, v.layoutH = v.width, v.height
	v.globe = globe.New(v.renderer, v.tooltip, v.timers, cfg.Globe)
	v.placer = feed.NewPlacer(v.globe)
	return v
}

func (v *Viewer) Globe() *globe.Globe        { return v.globe }
func (v *Viewer) Renderer() *sphere.Renderer { return v.renderer }

func (v *Viewer) Update() error {
	select {
	case <-v.cfg.Done:
		return ebiten.Termination
	default:
	}
	now := time.Now()
	v.applyLayout()
	v.timers.Run(now)
	v.drain()
	v.handleMouse()
	v.handleKeys(now)
	v.globe.Frame()
	return nil
}

// drain moves queued markers onto the globe, more per frame when the
// queue backs up.
func (v *Viewer) drain() {
	if v.markers == nil {
		return
	}
	limit := drainPerFrame
	if len(v.markers) > backlogWatermark {
		limit = drainBacklog
	}
	for i := 0; i < limit; i++ {
		select {
		case m, ok := <-v.markers:
			if !ok {
				v.markers = nil
				return
			}
			v.placer.Apply(m)
		default:
			return
		}
	}
}

func (v *Viewer) handleMouse() {
	x, y := ebiten.CursorPosition()
	if x < 0 || y < 0 || x >= v.width || y >= v.height {
		if v.cursorIn {
			v.cursorIn = false
			v.globe.MouseOut()
		}
		return
	}
	v.cursorIn = true
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		v.globe.MouseDown(x, y)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		v.globe.MouseUp()
	}
	if p := image.Pt(x, y); p != v.cursor {
		v.cursor = p
		v.globe.MouseMove(x, y, x, y)
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		v.globe.Wheel(dy)
	}
}

func (v *Viewer) handleKeys(now time.Time) {
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		v.globe.ToggleView()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.placer.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		v.capture(now)
	}

	var h, vert float64
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		h += rotateStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		h -= rotateStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		vert += rotateStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		vert -= rotateStep
	}
	if h != 0 || vert != 0 {
		v.globe.Rotate(h, vert)
	}
	if ebiten.IsKeyPressed(ebiten.KeyEqual) || ebiten.IsKeyPressed(ebiten.KeyKPAdd) {
		v.globe.Zoom(zoomStep)
	}
	if ebiten.IsKeyPressed(ebiten.KeyMinus) || ebiten.IsKeyPressed(ebiten.KeyKPSubtract) {
		v.globe.Zoom(-zoomStep)
	}
}

func (v *Viewer) capture(now time.Time) {
	if v.cfg.CaptureDir == "" {
		return
	}
	path := filepath.Join(v.cfg.CaptureDir, sphere.CaptureName(v.globe.Mode().String(), now))
	if err := sphere.SavePNG(path, v.renderer.Frame()); err != nil {
		v.logger.Error().Err(err).Msg("capture failed")
		return
	}
	v.logger.Info().Str("path", path).Msg("frame captured")
}

// Layout maps the window to the render resolution. The new size is applied
// on the next Update.
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	v.layoutW, v.layoutH = renderSize(outsideWidth, outsideHeight, v.cfg.Scale)
	return v.layoutW, v.layoutH
}

func (v *Viewer) applyLayout() {
	if v.layoutW == v.width && v.layoutH == v.height {
		return
	}
	v.width, v.height = v.layoutW, v.layoutH
	v.renderer.SetSize(v.width, v.height)
	v.globe.Resize()
	v.logger.Debug().Int("width", v.width).Int("height", v.height).Msg("resized")
}

func renderSize(w, h int, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	return max(int(float64(w)/scale), 1), max(int(float64(h)/scale), 1)
}
