package sphere

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"golang.org/x/sync/errgroup"
)

var (
	Background  = color.RGBA{255, 255, 255, 255}
	Ocean       = color.RGBA{181, 205, 230, 255}
	HeatLand    = color.RGBA{242, 242, 242, 255}
	Atmosphere  = color.RGBA{196, 212, 236, 255}
	CircleColor = color.RGBA{204, 0, 0, 255}
	HoverColor  = [3]float64{0.8, 0.8, 0.9}
)

const borderShade = 0.6

type Options struct {
	Width, Height int
	// LongitudeOffset must match the offset markers are placed with.
	LongitudeOffset float64
	FOV, Near, Far  float64

	MarkerSize int // pixels
	HeatSize   int // pixels
	// HeatAmount is the heat one marker adds at its center.
	HeatAmount float64

	PulseSize     int // pixels
	PulseDuration time.Duration
	MaxPulses     int

	AtmosphereScale float64
	Workers         int

	Now    func() time.Time
	Logger *zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Width:           1280,
		Height:          720,
		LongitudeOffset: 10,
		FOV:             30,
		Near:            1,
		Far:             10000,
		MarkerSize:      15,
		HeatSize:        10,
		HeatAmount:      0.05,
		PulseSize:       40,
		PulseDuration:   time.Second,
		MaxPulses:       100,
		AtmosphereScale: 1.15,
		Workers:         runtime.NumCPU(),
		Now:             time.Now,
	}
}

type traceKey struct {
	pos    globe.Vec3
	w, h   int
	radius float64
}

type baseKey struct {
	mode        globe.Mode
	trace, maps uint64
}

type pulse struct {
	pos   globe.Vec3
	start time.Time
}

// Renderer implements globe.Renderer and globe.Animator on the CPU.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
	world  *WorldMap
	cam    *Camera

	mode      globe.Mode
	highlight int
	radius    float64

	width, height      int
	pendingW, pendingH int

	// per pixel world texel, or -1 where the ray misses the globe
	texels   []int32
	glow     []float32
	traced   traceKey
	traceGen uint64

	// map state captured by UpdateMap
	mapColors    [globe.CountryCount]color.RGBA
	mapHighlight int
	mapGen       uint64
	markers      []globe.Vec3

	base    *image.RGBA
	baseFor baseKey
	frame   *image.RGBA
	heat    []float32
	pick    *globe.PickBuffer

	pulses    []pulse
	nextPulse int
}

func New(world *WorldMap, opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.FOV <= 0 {
		opts.FOV = def.FOV
	}
	if opts.Near <= 0 {
		opts.Near = def.Near
	}
	if opts.Far <= 0 {
		opts.Far = def.Far
	}
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = def.MarkerSize
	}
	if opts.HeatSize <= 0 {
		opts.HeatSize = def.HeatSize
	}
	if opts.HeatAmount <= 0 {
		opts.HeatAmount = def.HeatAmount
	}
	if opts.PulseSize <= 0 {
		opts.PulseSize = def.PulseSize
	}
	if opts.PulseDuration <= 0 {
		opts.PulseDuration = def.PulseDuration
	}
	if opts.MaxPulses <= 0 {
		opts.MaxPulses = def.MaxPulses
	}
	if opts.AtmosphereScale < 1 {
		opts.AtmosphereScale = def.AtmosphereScale
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if world == nil {
		world = NewWorldMap(2, 1)
	}

	r := &Renderer{
		opts:         opts,
		logger:       opts.Logger.With().Str("component", "sphere").Logger(),
		world:        world,
		cam:          NewCamera(opts.Width, opts.Height, opts.FOV, opts.Near, opts.Far),
		highlight:    -1,
		mapHighlight: -1,
		radius:       200,
		pendingW:     opts.Width,
		pendingH:     opts.Height,
		pulses:       make([]pulse, opts.MaxPulses),
	}
	for i := range r.mapColors {
		r.mapColors[i] = Background
	}
	r.Resize()
	return r
}

// SetSize records a new output size. It takes effect on Resize.
func (r *Renderer) SetSize(w, h int) {
	r.pendingW, r.pendingH = max(w, 1), max(h, 1)
}

func (r *Renderer) Resize() {
	if r.frame != nil && r.pendingW == r.width && r.pendingH == r.height {
		return
	}
	r.width, r.height = r.pendingW, r.pendingH
	n := r.width * r.height
	r.texels = make([]int32, n)
	r.glow = make([]float32, n)
	r.heat = make([]float32, n)
	r.base = image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	r.frame = image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	r.pick = globe.NewPickBuffer(r.width, r.height)
	r.cam.SetSize(r.width, r.height)
	r.traced = traceKey{}
	r.baseFor = baseKey{}
	r.logger.Debug().Int("width", r.width).Int("height", r.height).Msg("resized")
}

func (r *Renderer) Size() (int, int)        { return r.width, r.height }
func (r *Renderer) Frame() *image.RGBA      { return r.frame }
func (r *Renderer) Pick() *globe.PickBuffer { return r.pick }
func (r *Renderer) Camera() *Camera         { return r.cam }

func (r *Renderer) SetCamera(distance, horizontal, vertical float64) {
	r.cam.SetPosition(distance, horizontal, vertical)
}

func (r *Renderer) SetMode(m globe.Mode) { r.mode = m }
func (r *Renderer) Mode() globe.Mode     { return r.mode }

// SetHighlight selects the hovered country. It shows after the next
// UpdateMap.
func (r *Renderer) SetHighlight(index int) { r.highlight = index }

func (r *Renderer) Pixel(x, y int) color.RGBA { return r.pick.At(x, y) }

// UpdateMap captures the country colors, the highlight and the marker
// positions used by subsequent renders.
func (r *Renderer) UpdateMap(s *globe.Scene) {
	for i := range r.mapColors {
		r.mapColors[i] = s.Countries.Color(i)
	}
	r.mapHighlight = r.highlight
	r.markers = r.markers[:0]
	s.Markers.Each(func(_ int, pos globe.Vec3) {
		r.markers = append(r.markers, pos)
	})
	r.mapGen++
}

func (r *Renderer) Animate(pos globe.Vec3) {
	r.pulses[r.nextPulse] = pulse{pos: pos, start: r.opts.Now()}
	r.nextPulse = (r.nextPulse + 1) % len(r.pulses)
}

// Render draws the current mode into Frame. Pick mode is never drawn to
// the frame.
func (r *Renderer) Render(s *globe.Scene) {
	if r.mode == globe.PickMode {
		return
	}
	r.trace(s.Radius)
	r.paintBase()
	copy(r.frame.Pix, r.base.Pix)
	switch r.mode {
	case globe.MapMode:
		r.drawMarkers()
		r.drawPulses()
	case globe.HeatMode:
		r.drawHeat()
	}
}

// UpdatePicking renders the identity pass: country slots in the red
// channel of land, marker identities over visible markers, transparent
// everywhere else.
func (r *Renderer) UpdatePicking(s *globe.Scene) {
	r.trace(s.Radius)
	w := r.width
	r.parallelRows(r.height, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			var c color.RGBA
			if t := r.texels[i]; t >= 0 {
				c, _ = globe.EncodeCountry(int(r.world.Index[t]))
			}
			off := i * 4
			r.pick.Pix[off], r.pick.Pix[off+1], r.pick.Pix[off+2], r.pick.Pix[off+3] = c.R, c.G, c.B, c.A
		}
	})

	half := r.opts.MarkerSize / 2
	skipped := 0
	s.Markers.Each(func(id int, pos globe.Vec3) {
		if !r.cam.Visible(pos, s.Radius) {
			return
		}
		px, py, ok := r.cam.Project(pos)
		if !ok {
			return
		}
		c, ok := globe.EncodeMarker(id)
		if !ok {
			skipped++
			return
		}
		cx, cy := int(px), int(py)
		for y := cy - half; y <= cy+half; y++ {
			for x := cx - half; x <= cx+half; x++ {
				r.pick.Set(x, y, c)
			}
		}
	})
	if skipped > 0 {
		r.logger.Debug().Int("markers", skipped).Msg("markers beyond pickable identity range")
	}
}

func (r *Renderer) parallelRows(h int, fn func(y int)) {
	workers := r.opts.Workers
	band := (h + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < h; start += band {
		lo, hi := start, min(start+band, h)
		g.Go(func() error {
			for y := lo; y < hi; y++ {
				fn(y)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// trace casts one ray per pixel when the camera, size or radius changed.
func (r *Renderer) trace(radius float64) {
	if radius <= 0 {
		radius = r.radius
	}
	r.radius = radius
	key := traceKey{pos: r.cam.Position(), w: r.width, h: r.height, radius: radius}
	if key == r.traced {
		return
	}
	atmosphere := radius * r.opts.AtmosphereScale
	offset := r.opts.LongitudeOffset
	origin := r.cam.Position()
	w := r.width
	r.parallelRows(r.height, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			dir := r.cam.Ray(x, y)
			if t, hit := r.cam.IntersectSphere(dir, radius); hit {
				lat, lon := globe.Geographic(origin.Add(dir.Scale(t)))
				r.texels[i] = int32(r.world.Texel(lat, lon+offset))
				r.glow[i] = 0
				continue
			}
			r.texels[i] = -1
			r.glow[i] = 0
			if dot(origin, dir) < 0 {
				if d := r.cam.Closest(dir); d < atmosphere {
					r.glow[i] = float32(1 - (d-radius)/(atmosphere-radius))
				}
			}
		}
	})
	r.traced = key
	r.traceGen++
}

func (r *Renderer) paintBase() {
	key := baseKey{mode: r.mode, trace: r.traceGen, maps: r.mapGen}
	if key == r.baseFor {
		return
	}
	w := r.width
	r.parallelRows(r.height, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			var c color.RGBA
			if t := r.texels[i]; t < 0 {
				c = mix(Background, Atmosphere, float64(r.glow[i]))
			} else {
				c = r.surface(int(t))
			}
			off := i * 4
			r.base.Pix[off], r.base.Pix[off+1], r.base.Pix[off+2], r.base.Pix[off+3] = c.R, c.G, c.B, 255
		}
	})
	r.baseFor = key
}

func (r *Renderer) surface(texel int) color.RGBA {
	idx := r.world.Index[texel]
	var c color.RGBA
	switch {
	case idx == NoCountry:
		c = Ocean
	case r.mode == globe.HeatMode:
		c = HeatLand
	default:
		c = r.mapColors[idx]
		if int(idx) == r.mapHighlight {
			c = tint(c, HoverColor[0], HoverColor[1], HoverColor[2])
		}
	}
	if r.world.Border[texel] {
		c = tint(c, borderShade, borderShade, borderShade)
	}
	return c
}

func (r *Renderer) drawMarkers() {
	radius := float64(r.opts.MarkerSize) / 2
	for _, pos := range r.markers {
		if !r.cam.Visible(pos, r.radius) {
			continue
		}
		if x, y, ok := r.cam.Project(pos); ok {
			fillCircle(r.frame, x, y, radius, CircleColor, 0.85)
		}
	}
}

func (r *Renderer) drawPulses() {
	now := r.opts.Now()
	maxRadius := float64(r.opts.PulseSize) / 2
	for _, p := range r.pulses {
		if p.start.IsZero() {
			continue
		}
		progress := float64(now.Sub(p.start)) / float64(r.opts.PulseDuration)
		if progress < 0 || progress >= 1 {
			continue
		}
		if !r.cam.Visible(p.pos, r.radius) {
			continue
		}
		if x, y, ok := r.cam.Project(p.pos); ok {
			strokeCircle(r.frame, x, y, 3+progress*(maxRadius-3), 2, CircleColor, 1-progress)
		}
	}
}

func (r *Renderer) drawHeat() {
	clear(r.heat)
	radius := float64(r.opts.HeatSize) / 2
	amount := float32(r.opts.HeatAmount)
	for _, pos := range r.markers {
		if !r.cam.Visible(pos, r.radius) {
			continue
		}
		cx, cy, ok := r.cam.Project(pos)
		if !ok {
			continue
		}
		for y := int(cy - radius); y <= int(cy+radius); y++ {
			if y < 0 || y >= r.height {
				continue
			}
			for x := int(cx - radius); x <= int(cx+radius); x++ {
				if x < 0 || x >= r.width {
					continue
				}
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / radius
				if d < 1 {
					r.heat[y*r.width+x] += amount * float32(1-d)
				}
			}
		}
	}
	for i, h := range r.heat {
		if h <= 0 {
			continue
		}
		c := HeatColor(float64(h))
		off := i * 4
		r.frame.Pix[off], r.frame.Pix[off+1], r.frame.Pix[off+2] = c.R, c.G, c.B
	}
}
