package sources

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/maxminddb-golang"
)

const (
	geoCacheLimit = 100000
	geoCacheEvict = 20000
)

type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// GeoIP locates addresses with a MaxMind city database.
type GeoIP struct {
	reader *maxminddb.Reader

	mu    sync.Mutex
	cache map[netip.Addr]geoEntry
}

type geoEntry struct {
	loc Location
	ok  bool
}

func OpenGeoIP(path string) (*GeoIP, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return newGeoIP(r), nil
}

func GeoIPFromBytes(data []byte) (*GeoIP, error) {
	r, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load geoip database: %w", err)
	}
	return newGeoIP(r), nil
}

func newGeoIP(r *maxminddb.Reader) *GeoIP {
	return &GeoIP{reader: r, cache: make(map[netip.Addr]geoEntry)}
}

func (g *GeoIP) Close() error {
	return g.reader.Close()
}

// Locate returns the database location of addr. Addresses without both a
// country and coordinates are not located.
func (g *GeoIP) Locate(addr netip.Addr) (Location, bool) {
	addr = addr.Unmap()
	g.mu.Lock()
	if e, ok := g.cache[addr]; ok {
		g.mu.Unlock()
		return e.loc, e.ok
	}
	g.mu.Unlock()

	var rec geoRecord
	entry := geoEntry{}
	if err := g.reader.Lookup(net.IP(addr.AsSlice()), &rec); err == nil {
		entry.loc, entry.ok = recordLocation(rec)
	}

	g.mu.Lock()
	if len(g.cache) > geoCacheLimit {
		count := 0
		for k := range g.cache {
			delete(g.cache, k)
			count++
			if count > geoCacheEvict {
				break
			}
		}
	}
	g.cache[addr] = entry
	g.mu.Unlock()
	return entry.loc, entry.ok
}

func recordLocation(rec geoRecord) (Location, bool) {
	cc := rec.Country.ISOCode
	if cc == "" {
		cc = rec.RegisteredCountry.ISOCode
	}
	lat, lon := rec.Location.Latitude, rec.Location.Longitude
	if cc == "" || (lat == 0 && lon == 0) {
		return Location{}, false
	}
	return Location{CC: strings.ToUpper(cc), Lat: lat, Lon: lon}, true
}
