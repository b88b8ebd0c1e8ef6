package sources

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/sudorandom/bgp-globe/pkg/utils"
)

type GeofeedEntry struct {
	Prefix  netip.Prefix
	Country string
	Region  string
	City    string
}

// ParseGeofeed reads an RFC 8805 geofeed:
// prefix,country_code,region_code,city_name,postal_code
func ParseGeofeed(r io.Reader) ([]GeofeedEntry, error) {
	var entries []GeofeedEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		record, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil || len(record) < 4 {
			continue
		}
		prefix, err := netip.ParsePrefix(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		entries = append(entries, GeofeedEntry{
			Prefix:  prefix,
			Country: strings.ToUpper(strings.TrimSpace(record[1])),
			Region:  record[2],
			City:    record[3],
		})
	}
	return entries, scanner.Err()
}

// GeofeedAllocations keeps the IPv4 entries that name a country.
func GeofeedAllocations(entries []GeofeedEntry) []Allocation {
	out := make([]Allocation, 0, len(entries))
	for _, e := range entries {
		if len(e.Country) != 2 || !e.Prefix.Addr().Is4() {
			continue
		}
		out = append(out, Allocation{Prefix: e.Prefix.Masked(), CC: e.Country})
	}
	return out
}

// LoadGeofeed fetches a geofeed and stores its country ranges in db.
func LoadGeofeed(ctx context.Context, db *PrefixDB, url, cacheDir string) (int, error) {
	r, err := utils.GetCachedReader(ctx, url, cacheDir, "[geofeed]")
	if err != nil {
		return 0, fmt.Errorf("fetch geofeed: %w", err)
	}
	defer r.Close()
	entries, err := ParseGeofeed(r)
	if err != nil {
		return 0, fmt.Errorf("parse geofeed: %w", err)
	}
	allocs := GeofeedAllocations(entries)
	return len(allocs), LoadAllocations(db, allocs)
}
