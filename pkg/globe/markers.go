package globe

import "math"

const (
	// DefaultCapacity is the marker ring size used when none is configured.
	DefaultCapacity = 10000
	// MaxCapacity is the largest ring whose identities fit in 24 bits.
	MaxCapacity = 1 << 24
)

var unused = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}

// Cartesian converts a geographic coordinate in degrees into the renderer
// frame: y points at the north pole, longitude 0 lies on +x and longitude
// 90 on -z.
func Cartesian(lat, lon, r float64) Vec3 {
	theta := lat * math.Pi / 180
	phi := lon * math.Pi / 180
	return Vec3{
		X: r * math.Cos(phi) * math.Cos(theta),
		Y: r * math.Sin(theta),
		Z: -r * math.Sin(phi) * math.Cos(theta),
	}
}

// Geographic is the inverse of Cartesian. The radius is ignored.
func Geographic(v Vec3) (lat, lon float64) {
	r := v.Len()
	if r == 0 {
		return 0, 0
	}
	lat = math.Asin(v.Y/r) * 180 / math.Pi
	lon = math.Atan2(-v.Z, v.X) * 180 / math.Pi
	return lat, lon
}

// MarkerRegistry is a fixed size ring of marker slots. A slot's index is the
// marker identity handed to callers and encoded into the picking pass.
type MarkerRegistry struct {
	positions []Vec3
	labels    []string
	countries []string
	cursor    int
	live      int
}

// NewMarkerRegistry returns a ring of the given capacity, clamped to
// [1, MaxCapacity].
func NewMarkerRegistry(capacity int) *MarkerRegistry {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	m := &MarkerRegistry{
		positions: make([]Vec3, capacity),
		labels:    make([]string, capacity),
		countries: make([]string, capacity),
	}
	for i := range m.positions {
		m.positions[i] = unused
	}
	return m
}

// Add stores a marker in the next slot and returns its identity. When that
// slot is occupied, onOverflow receives the occupant's country code before
// it is overwritten.
func (m *MarkerRegistry) Add(cc string, lat, lon, radius float64, label string, onOverflow func(cc string)) int {
	id := m.cursor
	if m.positions[id] != unused {
		if onOverflow != nil {
			onOverflow(m.countries[id])
		}
		m.live--
	}
	m.positions[id] = Cartesian(lat, lon, radius)
	m.labels[id] = label
	m.countries[id] = cc
	m.live++
	m.cursor = (m.cursor + 1) % len(m.positions)
	return id
}

// Remove frees the slot. The label is kept until the slot is reused.
func (m *MarkerRegistry) Remove(id int) {
	if !m.valid(id) {
		return
	}
	if m.positions[id] != unused {
		m.live--
	}
	m.positions[id] = unused
	m.countries[id] = ""
}

// Reset frees every slot. The cursor keeps its place, so the next Add
// continues where the ring left off.
func (m *MarkerRegistry) Reset() {
	for i := range m.positions {
		m.positions[i] = unused
		m.countries[i] = ""
	}
	m.live = 0
}

func (m *MarkerRegistry) Label(id int) string {
	if !m.valid(id) {
		return ""
	}
	return m.labels[id]
}

// CountryCode returns the country of a live marker.
func (m *MarkerRegistry) CountryCode(id int) (string, bool) {
	if !m.InUse(id) {
		return "", false
	}
	return m.countries[id], true
}

// Position returns the marker's renderer frame position, or the unused
// sentinel (+Inf on every axis).
func (m *MarkerRegistry) Position(id int) Vec3 {
	if !m.valid(id) {
		return unused
	}
	return m.positions[id]
}

func (m *MarkerRegistry) InUse(id int) bool {
	return m.valid(id) && m.positions[id] != unused
}

// Each calls fn for every live marker in identity order.
func (m *MarkerRegistry) Each(fn func(id int, pos Vec3)) {
	for id, pos := range m.positions {
		if pos != unused {
			fn(id, pos)
		}
	}
}

func (m *MarkerRegistry) Capacity() int { return len(m.positions) }
func (m *MarkerRegistry) Len() int      { return m.live }
func (m *MarkerRegistry) Cursor() int   { return m.cursor }

func (m *MarkerRegistry) valid(id int) bool {
	return id >= 0 && id < len(m.positions)
}
