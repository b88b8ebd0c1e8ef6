package globe

import (
	"image/color"
	"math"
	"sort"
	"strings"
)

// Interpolator maps a country's share of all markers to a brightness in
// [0,1] for its green and blue channels.
type Interpolator func(ratio float64) float64

// CubeRootFalloff is the default Interpolator. It drops steeply for small
// shares so a country with one marker is clearly tinted.
func CubeRootFalloff(ratio float64) float64 {
	return 1 - math.Cbrt(ratio)
}

type AggregatorOptions struct {
	// MaxSaturation is the channel ceiling. Zero means 255; other values
	// are clamped to [0,255].
	MaxSaturation int
	Interpolate   Interpolator
}

// CountryAggregator counts live markers per country and keeps a color per
// table slot derived from each country's share of the total.
type CountryAggregator struct {
	maxSaturation float64
	interpolate   Interpolator

	counts  map[string]int
	total   int
	colors  [CountryCount]color.RGBA
	version uint64
}

func NewCountryAggregator(opts AggregatorOptions) *CountryAggregator {
	maxSat := opts.MaxSaturation
	if maxSat == 0 {
		maxSat = 255
	}
	maxSat = min(max(maxSat, 0), 255)
	interp := opts.Interpolate
	if interp == nil {
		interp = CubeRootFalloff
	}
	a := &CountryAggregator{
		maxSaturation: float64(maxSat),
		interpolate:   interp,
		counts:        make(map[string]int),
	}
	a.recompute()
	return a
}

func (a *CountryAggregator) Increment(cc string) {
	a.counts[strings.ToUpper(cc)]++
	a.total++
	a.recompute()
}

// Decrement lowers the country's count. Countries already at zero are left
// alone.
func (a *CountryAggregator) Decrement(cc string) {
	cc = strings.ToUpper(cc)
	if a.counts[cc] == 0 {
		return
	}
	a.counts[cc]--
	if a.counts[cc] == 0 {
		delete(a.counts, cc)
	}
	a.total--
	a.recompute()
}

func (a *CountryAggregator) Reset() {
	clear(a.counts)
	a.total = 0
	a.recompute()
}

func (a *CountryAggregator) recompute() {
	m := a.maxSaturation
	for i, cc := range CountryCodes {
		if a.total == 0 {
			a.colors[i] = color.RGBA{uint8(m), uint8(m), uint8(m), 255}
			continue
		}
		ratio := float64(a.counts[cc]) / float64(a.total)
		v := uint8(min(max(a.interpolate(ratio), 0), 1) * m)
		a.colors[i] = color.RGBA{uint8(m), v, v, 255}
	}
	a.version++
}

// Color returns the derived color of table slot i.
func (a *CountryAggregator) Color(i int) color.RGBA {
	if i < 0 || i >= CountryCount {
		return color.RGBA{}
	}
	return a.colors[i]
}

// Texture returns the color table as packed RGB triples in slot order.
func (a *CountryAggregator) Texture() []byte {
	out := make([]byte, 0, CountryCount*3)
	for _, c := range a.colors {
		out = append(out, c.R, c.G, c.B)
	}
	return out
}

// Code returns the country code of table slot i.
func (a *CountryAggregator) Code(i int) string {
	if i < 0 || i >= CountryCount {
		return ""
	}
	return CountryCodes[i]
}

// Count returns the marker count of table slot i.
func (a *CountryAggregator) Count(i int) int {
	cc := a.Code(i)
	if cc == "" || cc == Padding {
		return 0
	}
	return a.counts[cc]
}

func (a *CountryAggregator) CountOf(cc string) int { return a.counts[strings.ToUpper(cc)] }
func (a *CountryAggregator) Total() int            { return a.total }
func (a *CountryAggregator) HasMarkers() bool      { return a.total > 0 }

// Version changes every time the color table is recomputed.
func (a *CountryAggregator) Version() uint64 { return a.version }

// CountryTally pairs a country code with its marker count.
type CountryTally struct {
	Code  string
	Count int
}

// Top returns up to n countries with the most markers, busiest first.
func (a *CountryAggregator) Top(n int) []CountryTally {
	out := make([]CountryTally, 0, len(a.counts))
	for cc, c := range a.counts {
		out = append(out, CountryTally{Code: cc, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
