package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/sudorandom/bgp-globe/pkg/utils"
)

// CityDominance is one city of the yearly city dominance dataset, weighted
// by the address space it serves.
type CityDominance struct {
	Country             string
	Coordinates         []float64 // lon, lat
	LogicalDominanceIPs float64   `json:"logical_dominance_ips"`
}

// FetchCityDominance downloads the latest year of the city dominance
// dataset. The year index is always fetched fresh; the data is cached.
func FetchCityDominance(ctx context.Context, cacheDir string) ([]CityDominance, error) {
	meta, err := utils.GetCachedReader(ctx, CityDominanceMetaURL, "", "[cities]")
	if err != nil {
		return nil, fmt.Errorf("fetch city index: %w", err)
	}
	defer meta.Close()
	var index struct {
		MaxYear int `json:"max_year"`
	}
	if err := json.NewDecoder(meta).Decode(&index); err != nil {
		return nil, fmt.Errorf("decode city index: %w", err)
	}

	r, err := utils.GetCachedReader(ctx, fmt.Sprintf(CityDominanceDataURL, index.MaxYear), cacheDir, "[cities]")
	if err != nil {
		return nil, fmt.Errorf("fetch cities: %w", err)
	}
	defer r.Close()
	return ReadCityDominance(r)
}

func ReadCityDominance(r io.Reader) ([]CityDominance, error) {
	var cities []CityDominance
	if err := json.NewDecoder(r).Decode(&cities); err != nil {
		return nil, fmt.Errorf("decode cities: %w", err)
	}
	return cities, nil
}

type CityHub struct {
	Lat, Lon         float64
	CumulativeWeight float64
}

// CityHubs lists each country's cities with running weight totals so a
// uniform draw lands on a city in proportion to its weight.
type CityHubs map[string][]CityHub

func NewCityHubs(cities []CityDominance) CityHubs {
	hubs := make(CityHubs)
	for _, c := range cities {
		if len(c.Coordinates) < 2 {
			continue
		}
		cc := strings.ToUpper(c.Country)
		weight := c.LogicalDominanceIPs
		if weight <= 0 {
			weight = 1
		}
		list := hubs[cc]
		last := 0.0
		if len(list) > 0 {
			last = list[len(list)-1].CumulativeWeight
		}
		hubs[cc] = append(list, CityHub{
			Lat:              c.Coordinates[1],
			Lon:              c.Coordinates[0],
			CumulativeWeight: last + weight,
		})
	}
	return hubs
}

// Pick chooses a city of cc from a uniformly distributed key.
func (h CityHubs) Pick(cc string, key uint64) (CityHub, bool) {
	list := h[cc]
	if len(list) == 0 {
		return CityHub{}, false
	}
	r := float64(key>>11) / (1 << 53) * list[len(list)-1].CumulativeWeight
	i := sort.Search(len(list), func(i int) bool { return list[i].CumulativeWeight > r })
	return list[min(i, len(list)-1)], true
}

// cityKey hashes an address independently of the jitter hash.
func cityKey(b []byte) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte("city"))
	_, _ = d.Write(b)
	return d.Sum64()
}
