package globe

import "image/color"

type Mode int

const (
	MapMode Mode = iota
	HeatMode
	PickMode
)

func (m Mode) String() string {
	switch m {
	case MapMode:
		return "map"
	case HeatMode:
		return "heat"
	case PickMode:
		return "pick"
	}
	return "unknown"
}

// Scene is the state a renderer draws from. It is owned by the Globe and
// must only be read during renderer calls.
type Scene struct {
	Markers   *MarkerRegistry
	Countries *CountryAggregator
	Radius    float64
}

// Renderer draws the globe. All methods are called from the frame loop.
type Renderer interface {
	// SetCamera places the camera at distance from the origin at the given
	// horizontal and vertical angles.
	SetCamera(distance, horizontal, vertical float64)
	SetMode(m Mode)
	Mode() Mode
	Render(s *Scene)
	// UpdatePicking renders the current mode's identity pass into the
	// buffer sampled by Pixel.
	UpdatePicking(s *Scene)
	// UpdateMap refreshes the country color lookup from s.Countries.
	UpdateMap(s *Scene)
	Pixel(x, y int) color.RGBA
	// SetHighlight marks a country slot as hovered; -1 clears it.
	SetHighlight(index int)
	Resize()
}

// Tooltip shows hover text near the cursor.
type Tooltip interface {
	Show(text string, x, y int)
	Hide()
}

// Animator is implemented by renderers that pulse new markers.
type Animator interface {
	Animate(pos Vec3)
}
