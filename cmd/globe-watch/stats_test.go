package main

import (
	"bytes"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudorandom/bgp-globe/pkg/sources"
)

func record(s *Stats, kind sources.EventKind, cc, prefix string, n int) {
	for i := 0; i < n; i++ {
		s.Record(sources.Marker{CC: cc, Kind: kind, Prefix: netip.MustParsePrefix(prefix)})
	}
}

func TestStatsAnalyze(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		fill func(s *Stats)
		want []string
	}{
		{"quiet", func(s *Stats) {
			record(s, sources.PathChange, "NL", "192.0.2.0/24", 3)
		}, nil},
		{"link flap", func(s *Stats) {
			record(s, sources.PathChange, "NL", "192.0.2.0/24", 10)
			record(s, sources.Withdrawal, "NL", "192.0.2.0/24", 10)
		}, []string{"Link flap (high ratio of withdrawals)"}},
		{"path hunting", func(s *Stats) {
			record(s, sources.Gossip, "NL", "192.0.2.0/24", 20)
		}, []string{"Path hunting (repeated announcements of the same prefixes)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStats(start)
			tt.fill(s)
			assert.Equal(t, tt.want, s.analyze(start.Add(time.Minute)))
		})
	}

	s := NewStats(start)
	record(s, sources.Discovery, "US", "198.51.100.0/24", 300)
	assert.Equal(t, []string{
		"New prefixes appearing quickly",
		"BGP babbling (excessive update rate)",
	}, s.analyze(start.Add(time.Minute)))
}

func TestStatsReport(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStats(start)
	record(s, sources.Discovery, "NL", "192.0.2.0/24", 2)
	record(s, sources.Withdrawal, "DE", "198.51.100.0/24", 1)

	var buf bytes.Buffer
	s.Report(&buf, start.Add(10*time.Second), 1)
	out := buf.String()
	assert.Contains(t, out, "running for 10.0s")
	assert.Contains(t, out, "new           2 (0.20/s)")
	assert.Contains(t, out, "total         3 (0.30/s)")
	assert.Contains(t, out, "Routing appears stable")
	assert.Contains(t, out, "192.0.2.0/24")
	assert.NotContains(t, out, "198.51.100.0/24", "only the busiest prefix is listed")
}
