// Command globe-watch follows the located BGP events for one prefix, or
// for everything, and prints a refreshing summary.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sudorandom/bgp-globe/pkg/feed"
	"github.com/sudorandom/bgp-globe/pkg/logging"
	"github.com/sudorandom/bgp-globe/pkg/sources"
)

type CLI struct {
	Config kong.ConfigFlag `help:"Load flag values from a JSON file." placeholder:"FILE"`
	Log    logging.Flags   `embed:"" prefix:"log-"`
	Feed   feed.Flags      `embed:""`

	Prefix  string        `arg:"" optional:"" help:"Prefix to watch, including more and less specific routes."`
	Timeout time.Duration `help:"How long to run before exiting. Zero runs until interrupted."`
	Events  bool          `help:"Print every event instead of the refreshing report."`
	Top     int           `default:"5" help:"Rows in the country and prefix tables."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("globe-watch"),
		kong.Description("Watch located BGP events in the terminal."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "globe.json", "~/.config/bgp-globe/globe.json"),
	)
	ctx.FatalIfErrorf(run(&cli))
}

func run(cli *CLI) error {
	var prefix netip.Prefix
	if cli.Prefix != "" {
		p, err := netip.ParsePrefix(cli.Prefix)
		if err != nil {
			return fmt.Errorf("parse prefix: %w", err)
		}
		prefix = p.Masked()
	}

	logger, closer, err := logging.New(cli.Log.Options())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}
	ctx = logger.WithContext(ctx)

	world, err := cli.Feed.LoadWorld(ctx)
	if err != nil {
		return fmt.Errorf("load world map: %w", err)
	}
	opts := cli.Feed.Options(logger)
	opts.Prefix = prefix
	f, err := feed.Open(ctx, opts, world.Centroids())
	if err != nil {
		return err
	}
	defer f.Close()

	markers := make(chan sources.Marker, 1024)
	go func() {
		defer close(markers)
		if err := f.Run(ctx, markers); err != nil {
			logger.Error().Err(err).Msg("feed stopped")
		}
	}()
	logger.Info().Stringer("prefix", prefix).Msg("watching")

	stats := NewStats(time.Now())
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case m, ok := <-markers:
			if !ok {
				if !cli.Events {
					stats.Report(os.Stdout, time.Now(), cli.Top)
				}
				return nil
			}
			stats.Record(m)
			if cli.Events {
				fmt.Printf("%s %s %.2f,%.2f %s\n", time.Now().Format(time.TimeOnly), m.CC, m.Lat, m.Lon, m.Label)
			}
		case now := <-ticker.C:
			if !cli.Events {
				fmt.Printf("\033[H\033[2J")
				stats.Report(os.Stdout, now, cli.Top)
			}
		}
	}
}
