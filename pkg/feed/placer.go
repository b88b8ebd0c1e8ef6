package feed

import (
	"net/netip"

	"github.com/sudorandom/bgp-globe/pkg/globe"
	"github.com/sudorandom/bgp-globe/pkg/sources"
)

type markerRef struct {
	id    int
	label string
}

// Placer puts markers on a globe. A withdrawal removes the latest marker
// shown for its prefix instead of adding one.
type Placer struct {
	globe *globe.Globe
	// Handles go stale when the ring evicts or reuses them, so every read
	// checks the registry.
	refs map[netip.Prefix]markerRef

	Added     int
	Withdrawn int
}

func NewPlacer(g *globe.Globe) *Placer {
	return &Placer{globe: g, refs: make(map[netip.Prefix]markerRef)}
}

func (p *Placer) Apply(m sources.Marker) {
	if m.Kind == sources.Withdrawal {
		if id, ok := p.take(m.Prefix); ok {
			p.globe.RemoveMarker(id)
			p.Withdrawn++
		}
		return
	}
	id := p.globe.AddMarker(m.CC, m.Lat, m.Lon, m.Label)
	p.put(m.Prefix, id, m.Label)
	p.Added++
}

func (p *Placer) live(ref markerRef) bool {
	reg := p.globe.Markers()
	return reg.InUse(ref.id) && reg.Label(ref.id) == ref.label
}

func (p *Placer) take(prefix netip.Prefix) (int, bool) {
	ref, ok := p.refs[prefix]
	if !ok {
		return 0, false
	}
	delete(p.refs, prefix)
	return ref.id, p.live(ref)
}

func (p *Placer) put(prefix netip.Prefix, id int, label string) {
	p.refs[prefix] = markerRef{id: id, label: label}
	if len(p.refs) > 2*p.globe.Markers().Capacity() {
		for prefix, ref := range p.refs {
			if !p.live(ref) {
				delete(p.refs, prefix)
			}
		}
	}
}

// Reset clears the globe and forgets every prefix.
func (p *Placer) Reset() {
	p.globe.Reset()
	clear(p.refs)
}

// Tracked reports how many prefixes are remembered.
func (p *Placer) Tracked() int { return len(p.refs) }
