package sphere

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudorandom/bgp-globe/pkg/globe"
)

// wholeWorld covers every raster cell with one country.
func wholeWorld(t *testing.T, cc string) *WorldMap {
	t.Helper()
	idx, ok := globe.CountryIndex(cc)
	require.True(t, ok)
	m := NewWorldMap(72, 36)
	m.FillPolygon([][][]float64{{{-180, -90}, {180, -90}, {180, 90}, {-180, 90}, {-180, -90}}}, uint8(idx))
	m.computeBorders()
	return m
}

type testScene struct {
	scene *globe.Scene
	now   time.Time
}

func newTestRenderer(t *testing.T, world *WorldMap) (*Renderer, *testScene) {
	t.Helper()
	ts := &testScene{
		scene: &globe.Scene{
			Markers:   globe.NewMarkerRegistry(16),
			Countries: globe.NewCountryAggregator(globe.AggregatorOptions{}),
			Radius:    200,
		},
		now: time.Unix(1700000000, 0),
	}
	r := New(world, Options{
		Width:   64,
		Height:  64,
		Workers: 3,
		Now:     func() time.Time { return ts.now },
	})
	// Looking at latitude 0, longitude -90 from distance 1000.
	r.SetCamera(1000, 0, 0)
	return r, ts
}

func TestRendererPicking(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	de, _ := globe.CountryIndex("DE")

	r.UpdatePicking(ts.scene)
	assert.Equal(t, globe.Hit{Kind: globe.CountryHit, Country: de}, globe.Decode(r.Pixel(32, 32)))
	assert.Equal(t, globe.NoHit, globe.Decode(r.Pixel(0, 0)).Kind, "space")
	assert.Equal(t, globe.NoHit, globe.Decode(r.Pixel(-1, 500)).Kind, "out of range")

	id := ts.scene.Markers.Add("DE", 0, -90, 200, "center", nil)
	hidden := ts.scene.Markers.Add("DE", 0, 90, 200, "far side", nil)
	r.UpdatePicking(ts.scene)

	assert.Equal(t, globe.Hit{Kind: globe.MarkerHit, Marker: id}, globe.Decode(r.Pixel(32, 32)))
	assert.Equal(t, globe.Hit{Kind: globe.MarkerHit, Marker: id}, globe.Decode(r.Pixel(38, 26)))
	assert.Equal(t, globe.CountryHit, globe.Decode(r.Pixel(45, 32)).Kind)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if h := globe.Decode(r.Pixel(x, y)); h.Kind == globe.MarkerHit && h.Marker == hidden {
				t.Fatalf("hidden marker is pickable at (%d, %d)", x, y)
			}
		}
	}
}

func TestRendererOceanIsNotPickable(t *testing.T) {
	r, ts := newTestRenderer(t, NewWorldMap(72, 36))
	r.UpdatePicking(ts.scene)
	assert.Equal(t, color.RGBA{}, r.Pixel(32, 32))
}

func TestRendererMapMode(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	de, _ := globe.CountryIndex("DE")

	r.Render(ts.scene)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, r.Frame().RGBAAt(32, 32), "empty table paints land white")
	assert.Equal(t, Background, r.Frame().RGBAAt(0, 0))

	r.SetHighlight(de)
	r.Render(ts.scene)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, r.Frame().RGBAAt(32, 32), "highlight waits for UpdateMap")

	r.UpdateMap(ts.scene)
	r.Render(ts.scene)
	assert.Equal(t, color.RGBA{204, 204, 230, 255}, r.Frame().RGBAAt(32, 32))

	ts.scene.Markers.Add("DE", 0, -90, 200, "", nil)
	ts.scene.Countries.Increment("DE")
	r.SetHighlight(-1)
	r.UpdateMap(ts.scene)
	r.Render(ts.scene)
	c := r.Frame().RGBAAt(32, 32)
	assert.Greater(t, int(c.R)-int(c.G), 100, "marker drawn over the country: %v", c)
}

func TestRendererPulse(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	r.Animate(globe.Cartesian(0, -90, 200))

	ts.now = ts.now.Add(500 * time.Millisecond)
	r.Render(ts.scene)
	ring := r.Frame().RGBAAt(43, 32)
	assert.Greater(t, int(ring.R)-int(ring.G), 50, "ring is tinted: %v", ring)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, r.Frame().RGBAAt(32, 32), "ring is hollow")

	ts.now = ts.now.Add(time.Second)
	r.Render(ts.scene)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, r.Frame().RGBAAt(43, 32), "pulse expired")
}

func TestRendererHeatMode(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	r.SetMode(globe.HeatMode)
	r.Render(ts.scene)
	assert.Equal(t, HeatLand, r.Frame().RGBAAt(32, 32))

	for i := 0; i < 10; i++ {
		ts.scene.Markers.Add("DE", 0, -90, 200, "", nil)
	}
	r.UpdateMap(ts.scene)
	r.Render(ts.scene)
	hot := r.Frame().RGBAAt(32, 32)
	assert.NotEqual(t, HeatLand, hot)
	assert.Less(t, hot.B, HeatLand.B)
	assert.Equal(t, HeatLand, r.Frame().RGBAAt(50, 32), "heat stays local")
}

func TestRendererPickModeDoesNotDraw(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	r.Render(ts.scene)
	before := append([]byte(nil), r.Frame().Pix...)

	r.SetMode(globe.PickMode)
	r.SetCamera(400, 1, 0.5)
	r.Render(ts.scene)
	assert.Equal(t, before, r.Frame().Pix)
}

func TestRendererResize(t *testing.T) {
	r, ts := newTestRenderer(t, wholeWorld(t, "DE"))
	r.SetSize(32, 16)
	w, h := r.Size()
	assert.Equal(t, 64, w, "size applies on Resize")
	assert.Equal(t, 64, h)

	r.Resize()
	r.Render(ts.scene)
	r.UpdatePicking(ts.scene)
	assert.Equal(t, 32, r.Frame().Bounds().Dx())
	assert.Equal(t, 16, r.Frame().Bounds().Dy())
	assert.Equal(t, 32, r.Pick().Width)
	assert.Equal(t, globe.CountryHit, globe.Decode(r.Pixel(16, 8)).Kind)
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, heatGradient[0].c, HeatColor(-1))
	assert.Equal(t, heatGradient[0].c, HeatColor(0))
	assert.Equal(t, heatGradient[len(heatGradient)-1].c, HeatColor(3))
	assert.Equal(t, heatGradient[2].c, HeatColor(0.5))
}

func TestRendererWithGlobe(t *testing.T) {
	world := wholeWorld(t, "FR")
	r := New(world, Options{Width: 64, Height: 64, Workers: 2})
	timers := globe.NewTimers(time.Now)
	cam := globe.Vec3{X: 1000, Y: 0, Z: 0}
	g := globe.New(r, nopTooltip{}, timers, globe.Options{
		Camera: globe.PositionOptions{Current: &cam, Target: &cam},
	})
	g.Frame()

	// Markers are shifted by the longitude offset; the renderer samples the
	// raster shifted back, so a marker sits on the country it was given.
	id := g.AddMarker("FR", 0, -80, "paris-ish")
	assert.Equal(t, globe.Hit{Kind: globe.MarkerHit, Marker: id}, g.Pick(32, 32))
	assert.Equal(t, globe.MapMode, r.Mode())
}

type nopTooltip struct{}

func (nopTooltip) Show(string, int, int) {}
func (nopTooltip) Hide()                 {}
