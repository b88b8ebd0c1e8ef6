package main

import (
	"bytes"
	"image/color"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"github.com/sudorandom/bgp-globe/pkg/sphere"
)

func testWorld(t *testing.T) *sphere.WorldMap {
	t.Helper()
	world := sphere.NewWorldMap(72, 36)
	us, ok := globe.CountryIndex("US")
	require.True(t, ok)
	world.FillPolygon([][][]float64{{{-180, -90}, {180, -90}, {180, 90}, {-180, 90}}}, uint8(us))
	return world
}

func marker(cc, prefix string, kind sources.EventKind) sources.Marker {
	return sources.Marker{CC: cc, Lat: 10, Lon: 20, Kind: kind, Prefix: netip.MustParsePrefix(prefix), Label: prefix}
}

func TestSnapshotCollectAndRender(t *testing.T) {
	render := sphere.DefaultOptions()
	render.Width, render.Height, render.Workers = 48, 32, 2
	s := newSnapshot(testWorld(t), render, globe.Options{Capacity: 100}, zerolog.Nop())

	markers := make(chan sources.Marker, 8)
	markers <- marker("US", "192.0.2.0/24", sources.Discovery)
	markers <- marker("US", "198.51.100.0/24", sources.PathChange)
	markers <- marker("NL", "203.0.113.0/24", sources.Discovery)
	markers <- marker("US", "192.0.2.0/24", sources.Withdrawal)
	close(markers)

	stops := 0
	s.collect(markers, 2, func() { stops++ })
	assert.Equal(t, 1, stops)
	assert.Equal(t, 3, s.placer.Added)
	assert.Equal(t, 1, s.placer.Withdrawn)
	assert.Equal(t, 1, s.globe.Countries().CountOf("US"))

	s.settle(60)
	assert.Less(t, s.globe.CameraError(), 1e-3)

	frame := s.renderer.Frame()
	var painted bool
	for i := 0; i < len(frame.Pix); i += 4 {
		c := color.RGBA{frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2], frame.Pix[i+3]}
		if c != sphere.Background {
			painted = true
			break
		}
	}
	assert.True(t, painted, "the globe is drawn")

	path := filepath.Join(t.TempDir(), "out", "snap.png")
	require.NoError(t, sphere.SavePNG(path, frame))
}

func TestReport(t *testing.T) {
	agg := globe.NewCountryAggregator(globe.AggregatorOptions{})
	agg.Increment("US")
	agg.Increment("US")
	agg.Increment("NL")
	agg.Increment("BR")
	agg.Increment("DE")

	var buf bytes.Buffer
	require.NoError(t, report(&buf, agg, 3))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "COUNTRY")
	assert.Contains(t, lines[1], "US")
	assert.Contains(t, lines[1], "40.0%")
	assert.Contains(t, lines[2], "BR", "ties break by code")
	assert.Contains(t, lines[3], "DE")
}
