package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sudorandom/bgp-globe/pkg/utils"
)

// ASNNames maps AS numbers to organisation names.
type ASNNames struct {
	names map[uint32]string
}

func NewASNNames() *ASNNames {
	return &ASNNames{names: make(map[uint32]string)}
}

// Load fetches the APNIC autnums table through the download cache.
func (m *ASNNames) Load(ctx context.Context, cacheDir string) error {
	r, err := utils.GetCachedReader(ctx, ASNNamesURL, cacheDir, "[ASN]")
	if err != nil {
		return fmt.Errorf("fetch ASN names: %w", err)
	}
	defer r.Close()
	return m.Read(r)
}

// Read parses lines of the form "AS<n> <name>" (or "<n> <name>").
func (m *ASNNames) Read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		asn, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "AS"), 10, 32)
		if err != nil {
			continue
		}
		m.names[uint32(asn)] = strings.Join(parts[1:], " ")
	}
	return scanner.Err()
}

func (m *ASNNames) Name(asn uint32) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.names[asn]
	return name, ok
}

func (m *ASNNames) Len() int { return len(m.names) }
