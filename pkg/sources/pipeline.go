// Package sources feeds the globe: BGP updates from RIS Live or a demo
// generator, geolocated through MaxMind or RIR country ranges, labelled
// with AS names and filtered by keyword.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNotLocated = errors.New("address not located")
	ErrFiltered   = errors.New("label filtered")
)

// Marker is a geolocated event ready for the globe.
type Marker struct {
	CC       string
	Lat, Lon float64
	Label    string
	Kind     EventKind
	Prefix   netip.Prefix
}

// Label formats an event as "<kind> <prefix> AS<n> <name>". Unknown parts
// are left out.
func Label(ev Event, asName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ev.Kind, ev.Prefix)
	if ev.OriginASN != 0 {
		fmt.Fprintf(&b, " AS%d", ev.OriginASN)
	}
	if asName != "" {
		b.WriteString(" ")
		b.WriteString(asName)
	}
	return b.String()
}

// Pipeline turns events into markers.
type Pipeline struct {
	Locator Locator
	Names   *ASNNames
	Filter  *Filter
	Logger  zerolog.Logger
}

// Convert locates ev by its network address and labels it.
func (p *Pipeline) Convert(ev Event) (Marker, error) {
	loc, ok := p.Locator.Locate(ev.Prefix.Addr())
	if !ok {
		return Marker{}, ErrNotLocated
	}
	name, _ := p.Names.Name(ev.OriginASN)
	label := Label(ev, name)
	// Withdrawals carry no path to match on and skip the filter.
	if ev.Kind != Withdrawal && !p.Filter.Accept(label) {
		return Marker{}, ErrFiltered
	}
	return Marker{
		CC:     loc.CC,
		Lat:    loc.Lat,
		Lon:    loc.Lon,
		Label:  label,
		Kind:   ev.Kind,
		Prefix: ev.Prefix,
	}, nil
}

// Run converts events until the channel closes or ctx is done. Events
// that cannot be located or are filtered out are dropped.
func (p *Pipeline) Run(ctx context.Context, events <-chan Event, out chan<- Marker) error {
	var located, dropped int
	defer func() {
		p.Logger.Debug().Int("located", located).Int("dropped", dropped).Msg("pipeline stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m, err := p.Convert(ev)
			if err != nil {
				dropped++
				p.Logger.Trace().Err(err).Stringer("prefix", ev.Prefix).Msg("dropped event")
				continue
			}
			located++
			select {
			case out <- m:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
