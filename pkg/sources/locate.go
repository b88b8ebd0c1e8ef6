package sources

import (
	"net/netip"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

// Location is where an address is drawn on the globe.
type Location struct {
	CC       string
	Lat, Lon float64
}

type Locator interface {
	Locate(addr netip.Addr) (Location, bool)
}

// Chain asks each locator in turn and returns the first answer.
type Chain []Locator

func (c Chain) Locate(addr netip.Addr) (Location, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if loc, ok := l.Locate(addr); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// CountryLocator places addresses in the country their longest matching
// range in a PrefixDB is assigned to: at a city drawn from Hubs by weight
// when the country has any, otherwise at its centroid. Either point is
// scattered by up to Jitter degrees so neighbouring prefixes do not stack.
type CountryLocator struct {
	DB        *PrefixDB
	Centroids map[string][2]float64
	Hubs      CityHubs
	Jitter    float64
	Logger    zerolog.Logger
}

func (c *CountryLocator) Locate(addr netip.Addr) (Location, bool) {
	val, _, err := c.DB.Lookup(addr)
	if err != nil {
		c.Logger.Debug().Err(err).Stringer("addr", addr).Msg("range lookup failed")
		return Location{}, false
	}
	if len(val) != 2 {
		return Location{}, false
	}
	cc := string(val)
	var lat, lon float64
	if hub, ok := c.Hubs.Pick(cc, cityKey(addr.AsSlice())); ok {
		lat, lon = hub.Lat, hub.Lon
	} else if centroid, ok := c.Centroids[cc]; ok {
		lat, lon = centroid[0], centroid[1]
	} else {
		return Location{}, false
	}
	dLat, dLon := jitter(addr, c.Jitter)
	return Location{CC: cc, Lat: lat + dLat, Lon: lon + dLon}, true
}

// jitter derives a stable offset in [-scale/2, scale/2) for each axis from
// the address.
func jitter(addr netip.Addr, scale float64) (float64, float64) {
	if scale == 0 {
		return 0, 0
	}
	b := addr.AsSlice()
	h := xxhash.Sum64(b)
	x := float64(h&0xFFFFFFFF)/(1<<32) - 0.5
	y := float64(h>>32)/(1<<32) - 0.5
	return x * scale, y * scale
}
