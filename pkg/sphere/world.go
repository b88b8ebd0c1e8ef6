// Package sphere is a software renderer for the globe. It ray casts an
// equirectangular country raster onto a sphere and draws markers, heat and
// identity passes into plain RGBA buffers.
package sphere

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/utils"
)

// Raster values for cells without a country. Both are padding slots of the
// country table, so neither decodes as a country when picked.
const (
	NoCountry      = globe.CountryCount - 1 // ocean
	UnassignedLand = globe.CountryCount - 2 // land whose code is not in the table
)

var ErrNoFeatures = errors.New("geojson has no polygon features")

// WorldMap is an equirectangular raster of country table slots covering
// longitude [-180,180) left to right and latitude [90,-90] top to bottom.
type WorldMap struct {
	Width, Height int
	Index         []uint8
	Border        []bool
}

// NewWorldMap returns an all ocean raster.
func NewWorldMap(w, h int) *WorldMap {
	m := &WorldMap{
		Width:  w,
		Height: h,
		Index:  make([]uint8, w*h),
		Border: make([]bool, w*h),
	}
	for i := range m.Index {
		m.Index[i] = NoCountry
	}
	return m
}

// country code properties in order of preference
var codeProperties = []string{"ISO_A2_EH", "iso_a2_eh", "ISO_A2", "iso_a2", "iso_3166_1_alpha_2"}

func featureCode(f *geojson.Feature) string {
	for _, key := range codeProperties {
		cc := strings.ToUpper(f.PropertyMustString(key, ""))
		if len(cc) == 2 {
			return cc
		}
	}
	if id, ok := f.ID.(string); ok && len(id) == 2 {
		return strings.ToUpper(id)
	}
	return ""
}

// LoadWorldMap rasterizes the polygon features of a GeoJSON feature
// collection. Features without a known two letter code are drawn as
// land without a country.
func LoadWorldMap(data []byte, w, h int) (*WorldMap, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse world geojson: %w", err)
	}
	m := NewWorldMap(w, h)
	drawn := 0
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		idx := uint8(UnassignedLand)
		if i, ok := globe.CountryIndex(featureCode(f)); ok {
			idx = uint8(i)
		}
		if f.Geometry.IsPolygon() {
			m.FillPolygon(f.Geometry.Polygon, idx)
			drawn++
		} else if f.Geometry.IsMultiPolygon() {
			for _, poly := range f.Geometry.MultiPolygon {
				m.FillPolygon(poly, idx)
			}
			drawn++
		}
	}
	if drawn == 0 {
		return nil, ErrNoFeatures
	}
	m.computeBorders()
	return m, nil
}

// LoadWorldMapFile rasterizes a GeoJSON file.
func LoadWorldMapFile(path string, w, h int) (*WorldMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadWorldMapReader(f, w, h)
}

func LoadWorldMapReader(r io.Reader, w, h int) (*WorldMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read world geojson: %w", err)
	}
	return LoadWorldMap(data, w, h)
}

// FetchWorldMap rasterizes GeoJSON downloaded from url through the
// download cache.
func FetchWorldMap(ctx context.Context, url, cacheDir string, w, h int) (*WorldMap, error) {
	r, err := utils.GetCachedReader(ctx, url, cacheDir, "[WORLD]")
	if err != nil {
		return nil, fmt.Errorf("fetch world geojson: %w", err)
	}
	defer r.Close()
	return LoadWorldMapReader(r, w, h)
}

func (m *WorldMap) project(lat, lon float64) (x, y float64) {
	x = (lon + 180) / 360 * float64(m.Width)
	y = (90 - lat) / 180 * float64(m.Height)
	return x, y
}

// FillPolygon fills the interior of a polygon given as GeoJSON rings of
// [lon, lat] points using the even-odd rule.
func (m *WorldMap) FillPolygon(rings [][][]float64, idx uint8) {
	if len(rings) == 0 {
		return
	}
	type point struct{ x, y float64 }
	projected := make([][]point, len(rings))
	minY, maxY := float64(m.Height), 0.0
	for i, ring := range rings {
		projected[i] = make([]point, len(ring))
		for j, p := range ring {
			if len(p) < 2 {
				continue
			}
			x, y := m.project(p[1], p[0])
			projected[i][j] = point{x, y}
			minY = math.Min(minY, y)
			maxY = math.Max(maxY, y)
		}
	}
	var nodes []int
	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= m.Height {
			continue
		}
		nodes = nodes[:0]
		fy := float64(y) + 0.5
		for _, ring := range projected {
			for i := range ring {
				j := (i + 1) % len(ring)
				if (ring[i].y < fy && ring[j].y >= fy) || (ring[j].y < fy && ring[i].y >= fy) {
					nodeX := ring[i].x + (fy-ring[i].y)/(ring[j].y-ring[i].y)*(ring[j].x-ring[i].x)
					nodes = append(nodes, int(math.Round(nodeX)))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i+1 < len(nodes); i += 2 {
			xs, xe := max(nodes[i], 0), min(nodes[i+1], m.Width)
			row := y * m.Width
			for x := xs; x < xe; x++ {
				m.Index[row+x] = idx
			}
		}
	}
}

func (m *WorldMap) computeBorders() {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			c := m.Index[i]
			if right := y*m.Width + (x+1)%m.Width; m.Index[right] != c {
				m.Border[i], m.Border[right] = true, true
			}
			if below := i + m.Width; y+1 < m.Height && m.Index[below] != c {
				m.Border[i], m.Border[below] = true, true
			}
		}
	}
}

// Texel returns the raster offset for a geographic coordinate.
func (m *WorldMap) Texel(lat, lon float64) int {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	x := int(lon / 360 * float64(m.Width))
	y := int((90 - lat) / 180 * float64(m.Height))
	x = min(max(x, 0), m.Width-1)
	y = min(max(y, 0), m.Height-1)
	return y*m.Width + x
}

// IndexAt returns the country slot at a geographic coordinate.
func (m *WorldMap) IndexAt(lat, lon float64) uint8 {
	return m.Index[m.Texel(lat, lon)]
}

// Land reports whether the raster cell belongs to any polygon.
func (m *WorldMap) Land(texel int) bool {
	return m.Index[texel] != NoCountry
}

func (m *WorldMap) texelCoords(i int) (lat, lon float64) {
	x, y := i%m.Width, i/m.Width
	lon = (float64(x)+0.5)/float64(m.Width)*360 - 180
	lat = 90 - (float64(y)+0.5)/float64(m.Height)*180
	return lat, lon
}

// Centroids returns a representative point for every country drawn on the
// raster, keyed by country code. The point is the mean of the country's
// cells, moved to the nearest cell of that country when the mean falls
// outside it. Longitudes are averaged on the circle.
func (m *WorldMap) Centroids() map[string][2]float64 {
	type acc struct {
		lat, sin, cos float64
		n             int
	}
	var sums [globe.CountryCount]acc
	for i, idx := range m.Index {
		if idx == NoCountry || idx == UnassignedLand {
			continue
		}
		lat, lon := m.texelCoords(i)
		rad := lon * math.Pi / 180
		a := &sums[idx]
		a.lat += lat
		a.sin += math.Sin(rad)
		a.cos += math.Cos(rad)
		a.n++
	}

	out := make(map[string][2]float64)
	for idx, a := range sums {
		if a.n == 0 || globe.CountryCodes[idx] == globe.Padding {
			continue
		}
		lat := a.lat / float64(a.n)
		lon := math.Atan2(a.sin, a.cos) * 180 / math.Pi
		if int(m.IndexAt(lat, lon)) != idx {
			lat, lon = m.nearest(uint8(idx), lat, lon)
		}
		out[globe.CountryCodes[idx]] = [2]float64{lat, lon}
	}
	return out
}

// nearest returns the center of the cell of country idx closest to
// (lat, lon) by raster distance with horizontal wrap.
func (m *WorldMap) nearest(idx uint8, lat, lon float64) (float64, float64) {
	cx, cy := m.project(lat, lon)
	best, bestDist := -1, math.Inf(1)
	for i, v := range m.Index {
		if v != idx {
			continue
		}
		dx := math.Abs(float64(i%m.Width) + 0.5 - cx)
		dx = math.Min(dx, float64(m.Width)-dx)
		dy := float64(i/m.Width) + 0.5 - cy
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.texelCoords(best)
}
