package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"github.com/sudorandom/bgp-globe/pkg/sphere"
)

// Flags are the feed command line flags shared by the binaries.
type Flags struct {
	CacheDir     string        `default:"data/cache" type:"path" env:"GLOBE_CACHE_DIR" help:"Download cache directory. Empty disables caching."`
	PrefixDB     string        `name:"prefix-db" default:"data/prefixes" type:"path" help:"Prefix database directory. Empty keeps it in memory."`
	GeoIP        string        `name:"geoip" type:"path" env:"GLOBE_GEOIP" help:"MaxMind City database consulted before registry data."`
	Geofeed      []string      `help:"Geofeed URLs layered over registry data."`
	GoogleCloud  bool          `name:"google-cloud" default:"true" negatable:"" help:"Layer the Google Cloud geofeed over registry data."`
	Reload       bool          `help:"Refetch registry data even when the prefix database is populated."`
	NoRegistries bool          `help:"Skip the RIR delegated files."`
	Jitter       float64       `default:"1.5" help:"Scatter country placed markers by up to this many degrees."`
	Demo         bool          `help:"Use a synthetic feed instead of RIS Live."`
	DemoInterval time.Duration `default:"50ms" help:"Time between synthetic events."`
	RISURL       string        `name:"ris-url" help:"RIS Live websocket URL."`
	Include      []string      `help:"Only show events whose label contains one of these keywords."`
	Exclude      []string      `help:"Hide events whose label contains one of these keywords."`
	ASNNames     bool          `name:"asn-names" default:"true" negatable:"" help:"Label markers with AS names."`
	Cities       bool          `default:"true" negatable:"" help:"Place markers at weighted city hubs instead of country centroids."`

	World    string `type:"path" help:"GeoJSON world map. Downloaded when empty."`
	MapWidth int    `default:"2048" help:"Width of the country raster."`
}

func (f Flags) Options(logger zerolog.Logger) Options {
	geofeeds := f.Geofeed
	if f.GoogleCloud {
		geofeeds = append([]string{sources.GoogleGeofeedURL}, geofeeds...)
	}
	return Options{
		CacheDir:       f.CacheDir,
		DBPath:         f.PrefixDB,
		GeoIP:          f.GeoIP,
		Geofeeds:       geofeeds,
		Reload:         f.Reload,
		SkipRegistries: f.NoRegistries,
		Jitter:         f.Jitter,
		Demo:           f.Demo,
		DemoInterval:   f.DemoInterval,
		RISURL:         f.RISURL,
		Include:        f.Include,
		Exclude:        f.Exclude,
		ASNNames:       f.ASNNames,
		Cities:         f.Cities,
		Logger:         logger,
	}
}

// LoadWorld rasterizes the world map file, or the default Natural Earth
// countries when no file is set.
func (f Flags) LoadWorld(ctx context.Context) (*sphere.WorldMap, error) {
	w := max(f.MapWidth, 2)
	if f.World != "" {
		return sphere.LoadWorldMapFile(f.World, w, w/2)
	}
	return sphere.FetchWorldMap(ctx, sources.WorldGeoJSONURL, f.CacheDir, w, w/2)
}
