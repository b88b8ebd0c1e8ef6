package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"
	"github.com/sudorandom/bgp-globe/pkg/feed"
	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/logging"
	"github.com/sudorandom/bgp-globe/pkg/sources"
	"github.com/sudorandom/bgp-globe/pkg/sphere"
	"github.com/sudorandom/bgp-globe/pkg/viewer"
)

type CLI struct {
	Config kong.ConfigFlag `help:"Load flag values from a JSON file." placeholder:"FILE"`
	Log    logging.Flags   `embed:"" prefix:"log-"`
	Feed   feed.Flags      `embed:""`

	Width      int     `default:"1280" help:"Initial window width."`
	Height     int     `default:"720" help:"Initial window height."`
	Scale      float64 `default:"1" help:"Window pixels per rendered pixel."`
	TPS        int     `default:"30" help:"Frames per second."`
	Workers    int     `help:"Render workers. Zero uses every CPU."`
	Capacity   int     `default:"10000" help:"Maximum markers on the globe."`
	Top        int     `default:"8" help:"Countries listed in the activity overlay. Zero hides it."`
	CaptureDir string  `default:"data/captures" type:"path" help:"Directory for frames captured with P."`
	Heat       bool    `help:"Start in the heat view."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("globe-viewer"),
		kong.Description("Live BGP activity on an interactive globe."),
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

	markers := make(chan sources.Marker, 4096)
	go func() {
		if err := f.Run(ctx, markers); err != nil {
			logger.Error().Err(err).Msg("feed stopped")
		}
	}()

	render := sphere.DefaultOptions()
	render.Width, render.Height = cli.Width, cli.Height
	if cli.Workers > 0 {
		render.Workers = cli.Workers
	}
	v := viewer.New(world, markers, viewer.Config{
		Globe:        globe.Options{Capacity: cli.Capacity},
		Render:       render,
		Scale:        cli.Scale,
		CaptureDir:   cli.CaptureDir,
		TopCountries: cli.Top,
		Done:         ctx.Done(),
		Logger:       logger,
	})
	if cli.Heat {
		v.Globe().ToggleView()
	}

	ebiten.SetTPS(cli.TPS)
	ebiten.SetWindowSize(cli.Width, cli.Height)
	ebiten.SetWindowTitle("BGP Globe")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	logger.Info().Int("width", cli.Width).Int("height", cli.Height).Msg("starting viewer")
	return ebiten.RunGame(v)
}
