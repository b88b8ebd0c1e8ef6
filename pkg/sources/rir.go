package sources

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sudorandom/bgp-globe/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var RIRURLs = map[string]string{
	"APNIC":   APNICDelegatedURL,
	"RIPE":    RIPEDelegatedURL,
	"AFRINIC": AFRINICDelegatedURL,
	"LACNIC":  LACNICDelegatedURL,
	"ARIN":    ARINDelegatedURL,
}

func GetRIRReader(ctx context.Context, name, cacheDir string) (io.ReadCloser, error) {
	url, ok := RIRURLs[name]
	if !ok {
		return nil, fmt.Errorf("unknown RIR: %s", name)
	}
	return utils.GetCachedReader(ctx, url, cacheDir, "[RIR-"+name+"]")
}

// Allocation is one CIDR block of a delegated range.
type Allocation struct {
	Prefix netip.Prefix
	CC     string
}

// ParseDelegated reads an RIR delegated statistics file and returns its
// IPv4 allocations split into CIDR blocks. Header, summary and malformed
// lines are skipped.
func ParseDelegated(r io.Reader) ([]Allocation, error) {
	var out []Allocation
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// registry|cc|type|start|value|date|status[|extensions]
		parts := strings.Split(line, "|")
		if len(parts) < 7 || parts[2] != "ipv4" || len(parts[1]) != 2 {
			continue
		}
		if status := parts[6]; status != "allocated" && status != "assigned" {
			continue
		}
		start, err := netip.ParseAddr(parts[3])
		if err != nil || !start.Is4() {
			continue
		}
		count, err := strconv.ParseUint(parts[4], 10, 32)
		if err != nil || count == 0 {
			continue
		}
		cc := strings.ToUpper(parts[1])
		for _, p := range rangeToPrefixes(start, uint32(count)) {
			out = append(out, Allocation{Prefix: p, CC: cc})
		}
	}
	return out, scanner.Err()
}

// rangeToPrefixes covers count addresses starting at start with the
// fewest CIDR blocks.
func rangeToPrefixes(start netip.Addr, count uint32) []netip.Prefix {
	a := start.As4()
	cur := uint64(binary.BigEndian.Uint32(a[:]))
	end := cur + uint64(count)
	if end > 1<<32 {
		end = 1 << 32
	}
	var out []netip.Prefix
	for cur < end {
		size := 32
		if cur != 0 {
			size = bits.TrailingZeros32(uint32(cur))
		}
		for size > 0 && cur+(uint64(1)<<size) > end {
			size--
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(cur))
		out = append(out, netip.PrefixFrom(netip.AddrFrom4(b), 32-size))
		cur += uint64(1) << size
	}
	return out
}

// LoadAllocations stores allocations as country code ranges in db.
func LoadAllocations(db *PrefixDB, allocs []Allocation) error {
	const batchSize = 10000
	batch := make(map[netip.Prefix][]byte, batchSize)
	for _, a := range allocs {
		batch[a.Prefix] = []byte(a.CC)
		if len(batch) >= batchSize {
			if err := db.BatchInsert(batch); err != nil {
				return err
			}
			clear(batch)
		}
	}
	return db.BatchInsert(batch)
}

// LoadRIRs fetches every registry's delegated file in parallel and stores
// the allocations in db. Registries that cannot be fetched are skipped.
// It returns the number of blocks stored.
func LoadRIRs(ctx context.Context, db *PrefixDB, cacheDir string) (int, error) {
	logger := zerolog.Ctx(ctx)
	var (
		mu  sync.Mutex
		all []Allocation
	)
	g, gctx := errgroup.WithContext(ctx)
	for name := range RIRURLs {
		g.Go(func() error {
			r, err := GetRIRReader(gctx, name, cacheDir)
			if err != nil {
				logger.Warn().Err(err).Str("rir", name).Msg("fetching delegated file")
				return nil
			}
			defer r.Close()
			allocs, err := ParseDelegated(r)
			if err != nil {
				logger.Warn().Err(err).Str("rir", name).Msg("parsing delegated file")
				return nil
			}
			mu.Lock()
			all = append(all, allocs...)
			mu.Unlock()
			logger.Info().Str("rir", name).Int("blocks", len(allocs)).Msg("loaded delegations")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(all), LoadAllocations(db, all)
}
