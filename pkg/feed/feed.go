// Package feed assembles the marker feed used by the binaries: prefix
// geolocation, AS names, keyword filtering and the event source.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/logging"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// CacheDir holds downloaded registry files. Empty streams every fetch.
	CacheDir string
	// DBPath is the prefix database directory. Empty keeps it in memory.
	DBPath string
	// GeoIP is an optional MaxMind City database consulted first.
	GeoIP string
	// Geofeeds are RFC 8805 feeds layered over the registry data.
	Geofeeds []string
	// Reload refetches registry data even when the database has ranges.
	Reload bool
	// SkipRegistries disables the RIR delegated files.
	SkipRegistries bool
	// Jitter scatters country placed markers by up to this many degrees.
	Jitter float64

	Demo         bool
	DemoInterval time.Duration
	RISURL       string
	// Prefix narrows the RIS Live subscription.
	Prefix netip.Prefix

	Include, Exclude []string
	ASNNames         bool
	// Cities places country located markers at weighted city hubs.
	Cities bool

	// Buffer is the capacity of the internal event channel. Default 1024.
	Buffer int
	Logger zerolog.Logger
}

// Feed owns the databases behind a running marker feed.
type Feed struct {
	opts    Options
	logger  zerolog.Logger
	db      *sources.PrefixDB
	geo     *sources.GeoIP
	locator sources.Locator
	names   *sources.ASNNames
}

var errStop = errors.New("stop")

// Open loads the geolocation data. Countries are placed at centroids,
// usually taken from the rendered world map.
func Open(ctx context.Context, opts Options, centroids map[string][2]float64) (*Feed, error) {
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	if opts.DemoInterval <= 0 {
		opts.DemoInterval = 50 * time.Millisecond
	}
	f := &Feed{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "feed").Logger(),
		names:  sources.NewASNNames(),
	}
	ctx = f.logger.WithContext(ctx)

	db, err := sources.OpenPrefixDB(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open prefix db: %w", err)
	}
	f.db = db

	if err := f.loadRanges(ctx); err != nil {
		f.Close()
		return nil, err
	}

	var chain sources.Chain
	if opts.GeoIP != "" {
		geo, err := sources.OpenGeoIP(opts.GeoIP)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open geoip: %w", err)
		}
		f.geo = geo
		chain = append(chain, geo)
	}
	chain = append(chain, &sources.CountryLocator{
		DB:        db,
		Centroids: centroids,
		Hubs:      f.loadHubs(ctx),
		Jitter:    opts.Jitter,
		Logger:    f.logger,
	})
	f.locator = chain

	if opts.ASNNames {
		if err := f.names.Load(ctx, opts.CacheDir); err != nil {
			f.logger.Warn().Err(err).Msg("AS names unavailable")
		} else {
			f.logger.Info().Int("count", f.names.Len()).Msg("loaded AS names")
		}
	}
	return f, nil
}

func (f *Feed) loadRanges(ctx context.Context) error {
	if !f.opts.Reload && f.hasRanges() {
		f.logger.Info().Msg("using stored prefix ranges")
		return nil
	}
	if !f.opts.SkipRegistries {
		n, err := sources.LoadRIRs(ctx, f.db, f.opts.CacheDir)
		if err != nil {
			return fmt.Errorf("load registries: %w", err)
		}
		f.logger.Info().Int("blocks", n).Msg("stored registry ranges")
	}
	for _, url := range f.opts.Geofeeds {
		n, err := sources.LoadGeofeed(ctx, f.db, url, f.opts.CacheDir)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", url).Msg("geofeed skipped")
			continue
		}
		f.logger.Info().Int("entries", n).Str("url", url).Msg("stored geofeed ranges")
	}
	return nil
}

func (f *Feed) loadHubs(ctx context.Context) sources.CityHubs {
	if !f.opts.Cities {
		return nil
	}
	cities, err := sources.FetchCityDominance(ctx, f.opts.CacheDir)
	if err != nil {
		f.logger.Warn().Err(err).Msg("city hubs unavailable; using country centroids")
		return nil
	}
	hubs := sources.NewCityHubs(cities)
	f.logger.Info().Int("cities", len(cities)).Int("countries", len(hubs)).Msg("loaded city hubs")
	return hubs
}

func (f *Feed) hasRanges() bool {
	found := false
	err := f.db.ForEachRange(func(netip.Prefix, []byte) error {
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		f.logger.Warn().Err(err).Msg("scanning prefix db")
	}
	return found
}

func (f *Feed) Locator() sources.Locator { return f.locator }

// Pipeline returns the event to marker conversion stage.
func (f *Feed) Pipeline() *sources.Pipeline {
	return &sources.Pipeline{
		Locator: f.locator,
		Names:   f.names,
		Filter:  sources.NewFilter(f.opts.Include, f.opts.Exclude),
		Logger:  logging.Sampled(f.logger),
	}
}

type eventSource interface {
	Run(ctx context.Context, out chan<- sources.Event) error
}

func (f *Feed) source() eventSource {
	if f.opts.Demo {
		return sources.NewDemo(f.opts.DemoInterval, f.logger)
	}
	ris := sources.NewRISLive(f.db, f.logger)
	if f.opts.RISURL != "" {
		ris.URL = f.opts.RISURL
	}
	ris.Prefix = f.opts.Prefix
	return ris
}

// Run streams markers into out until ctx is done. It does not close out.
func (f *Feed) Run(ctx context.Context, out chan<- sources.Marker) error {
	events := make(chan sources.Event, f.opts.Buffer)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return f.source().Run(gctx, events)
	})
	g.Go(func() error {
		return f.Pipeline().Run(gctx, events, out)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (f *Feed) Close() error {
	var errs []error
	if f.geo != nil {
		errs = append(errs, f.geo.Close())
	}
	if f.db != nil {
		errs = append(errs, f.db.Close())
	}
	return errors.Join(errs...)
}
