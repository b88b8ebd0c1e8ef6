package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/sources"
)

// Stats tallies located markers for the watch report.
type Stats struct {
	Kinds     map[sources.EventKind]int
	Countries map[string]int
	Prefixes  map[string]int
	Total     int
	StartTime time.Time
}

func NewStats(start time.Time) *Stats {
	return &Stats{
		Kinds:     make(map[sources.EventKind]int),
		Countries: make(map[string]int),
		Prefixes:  make(map[string]int),
		StartTime: start,
	}
}

func (s *Stats) Record(m sources.Marker) {
	s.Total++
	s.Kinds[m.Kind]++
	s.Countries[m.CC]++
	s.Prefixes[m.Prefix.String()]++
}

func (s *Stats) announcements() int {
	return s.Kinds[sources.Discovery] + s.Kinds[sources.PathChange] + s.Kinds[sources.Gossip]
}

// analyze names routing patterns suggested by the counts.
func (s *Stats) analyze(now time.Time) []string {
	var results []string
	elapsed := max(now.Sub(s.StartTime).Seconds(), 1)
	rate := float64(s.Total) / elapsed
	withdrawals := s.Kinds[sources.Withdrawal]

	if withdrawals > 5 && float64(s.announcements())/float64(withdrawals) < 2.5 {
		results = append(results, "Link flap (high ratio of withdrawals)")
	}
	if s.Kinds[sources.Gossip] > 10 && s.Kinds[sources.Gossip] > s.Total/2 {
		results = append(results, "Path hunting (repeated announcements of the same prefixes)")
	}
	if s.Kinds[sources.Discovery] > 10 && float64(s.Kinds[sources.Discovery])/elapsed > 0.5 {
		results = append(results, "New prefixes appearing quickly")
	}
	if rate > 2 {
		results = append(results, "BGP babbling (excessive update rate)")
	}
	return results
}

type tally struct {
	Key   string
	Count int
}

func top(m map[string]int, n int) []tally {
	out := make([]tally, 0, len(m))
	for k, c := range m {
		out = append(out, tally{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Stats) Report(w io.Writer, now time.Time, n int) {
	elapsed := max(now.Sub(s.StartTime).Seconds(), 1)
	fmt.Fprintf(w, "BGP Prefix Watch (running for %.1fs)\n", now.Sub(s.StartTime).Seconds())
	fmt.Fprintf(w, "--------------------------------------------------\n")
	for _, k := range []sources.EventKind{sources.Discovery, sources.PathChange, sources.Gossip, sources.Withdrawal} {
		fmt.Fprintf(w, "%-8s %6d (%.2f/s)\n", k, s.Kinds[k], float64(s.Kinds[k])/elapsed)
	}
	fmt.Fprintf(w, "%-8s %6d (%.2f/s)\n", "total", s.Total, float64(s.Total)/elapsed)
	fmt.Fprintf(w, "--------------------------------------------------\n")

	fmt.Fprintf(w, "LIKELY CONCLUSIONS:\n")
	conclusions := s.analyze(now)
	if len(conclusions) == 0 {
		fmt.Fprintf(w, "  - Routing appears stable\n")
	}
	for _, c := range conclusions {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	fmt.Fprintf(w, "--------------------------------------------------\n")

	if countries := top(s.Countries, n); len(countries) > 0 {
		fmt.Fprintf(w, "Top countries:\n")
		for _, t := range countries {
			fmt.Fprintf(w, "  %-24s %d\n", globe.CountryName(t.Key), t.Count)
		}
	}
	if prefixes := top(s.Prefixes, n); len(prefixes) > 0 {
		fmt.Fprintf(w, "Busiest prefixes:\n")
		for _, t := range prefixes {
			fmt.Fprintf(w, "  %-24s %d\n", t.Key, t.Count)
		}
	}
}
