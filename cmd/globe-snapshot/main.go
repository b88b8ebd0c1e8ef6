// Command globe-snapshot collects markers for a while and renders the globe
// to a PNG without opening a window.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/feed"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/logging"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"github.com/sudorandom/bgp-globe/pkg/sphere"
)

type CLI struct {
	Config kong.ConfigFlag `help:"Load flag values from a JSON file." placeholder:"FILE"`
	Log    logging.Flags   `embed:"" prefix:"log-"`
	Feed   feed.Flags      `embed:""`

	Out        string        `short:"o" type:"path" help:"PNG to write. Defaults to a timestamped file in --capture-dir."`
	CaptureDir string        `default:"data/captures" type:"path" help:"Directory for timestamped snapshots."`
	Duration   time.Duration `default:"10s" help:"How long to collect markers."`
	Max        int           `help:"Stop collecting after this many markers. Zero means no limit."`
	Mode       string        `default:"map" enum:"map,heat" help:"View to render (map, heat)."`
	Width      int           `default:"1280" help:"Image width."`
	Height     int           `default:"720" help:"Image height."`
	Workers    int           `help:"Render workers. Zero uses every CPU."`
	Capacity   int           `default:"10000" help:"Maximum markers on the globe."`
	Frames     int           `default:"120" help:"Camera frames simulated before capturing."`
	Top        int           `default:"10" help:"Countries listed in the report."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("globe-snapshot"),
		kong.Description("Render collected BGP activity on the globe to a PNG."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "globe.json", "~/.config/bgp-globe/globe.json"),
	)
	ctx.FatalIfErrorf(run(&cli))
}

func run(cli *CLI) error {
	logger, closer, err := logging.New(cli.Log.Options())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	world, err := cli.Feed.LoadWorld(ctx)
	if err != nil {
		return fmt.Errorf("load world map: %w", err)
	}
	f, err := feed.Open(ctx, cli.Feed.Options(logger), world.Centroids())
	if err != nil {
		return err
	}
	defer f.Close()

	render := sphere.DefaultOptions()
	render.Width, render.Height = cli.Width, cli.Height
	if cli.Workers > 0 {
		render.Workers = cli.Workers
	}
	s := newSnapshot(world, render, globe.Options{Capacity: cli.Capacity}, logger)

	collectCtx, cancel := context.WithTimeout(ctx, cli.Duration)
	defer cancel()
	markers := make(chan sources.Marker, 1024)
	go func() {
		defer close(markers)
		if err := f.Run(collectCtx, markers); err != nil {
			logger.Error().Err(err).Msg("feed stopped")
		}
	}()
	logger.Info().Dur("duration", cli.Duration).Msg("collecting markers")
	s.collect(markers, cli.Max, cancel)
	if ctx.Err() != nil {
		logger.Warn().Msg("interrupted")
		return nil
	}

	if cli.Mode == globe.HeatMode.String() {
		s.globe.ToggleView()
	}
	s.settle(cli.Frames)

	path := cli.Out
	if path == "" {
		path = filepath.Join(cli.CaptureDir, sphere.CaptureName(cli.Mode, time.Now()))
	}
	if err := sphere.SavePNG(path, s.renderer.Frame()); err != nil {
		return err
	}
	logger.Info().
		Str("path", path).
		Int("markers", s.globe.Markers().Len()).
		Int("withdrawn", s.placer.Withdrawn).
		Msg("snapshot written")
	return report(os.Stdout, s.globe.Countries(), cli.Top)
}

type nopTooltip struct{}

func (nopTooltip) Show(string, int, int) {}
func (nopTooltip) Hide()                 {}

// snapshot drives a globe on a simulated clock so throttled refreshes and
// camera easing run without a frame loop.
type snapshot struct {
	clock    time.Time
	timers   *globe.Timers
	renderer *sphere.Renderer
	globe    *globe.Globe
	placer   *feed.Placer
}

const frameTime = time.Second / 30

func newSnapshot(world *sphere.WorldMap, render sphere.Options, opts globe.Options, logger zerolog.Logger) *snapshot {
	s := &snapshot{clock: time.Now()}
	now := func() time.Time { return s.clock }
	render.Now = now
	render.Logger = &logger
	opts.Logger = &logger
	s.timers = globe.NewTimers(now)
	s.renderer = sphere.New(world, render)
	s.globe = globe.New(s.renderer, nopTooltip{}, s.timers, opts)
	s.placer = feed.NewPlacer(s.globe)
	return s
}

// collect applies markers until the channel closes, calling stop once
// limit markers were added.
func (s *snapshot) collect(markers <-chan sources.Marker, limit int, stop func()) {
	for m := range markers {
		s.placer.Apply(m)
		if limit > 0 && s.placer.Added == limit {
			stop()
		}
	}
}

func (s *snapshot) settle(frames int) {
	for i := 0; i < frames; i++ {
		s.clock = s.clock.Add(frameTime)
		s.timers.Run(s.clock)
		s.globe.Frame()
	}
	// flush refreshes still waiting on their throttle
	s.clock = s.clock.Add(time.Second)
	s.timers.Run(s.clock)
	s.globe.Frame()
}

func report(w io.Writer, agg *globe.CountryAggregator, n int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "COUNTRY\tCODE\tMARKERS\tSHARE\t\n")
	total := max(agg.Total(), 1)
	for _, t := range agg.Top(n) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\t\n", globe.CountryName(t.Code), t.Code, t.Count, 100*float64(t.Count)/float64(total))
	}
	return tw.Flush()
}
