package sphere

import (
	"math"

	"github.com/sudorandom/bgp-globe/pkg/globe"
)

func dot(a, b globe.Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func cross(a, b globe.Vec3) globe.Vec3 {
	return globe.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func normalize(v globe.Vec3) globe.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Camera is a perspective camera that always looks at the origin.
type Camera struct {
	width, height int
	fov           float64 // vertical, degrees
	near, far     float64

	pos                globe.Vec3
	forward, right, up globe.Vec3
	tanHalfFOV, aspect float64
}

func NewCamera(w, h int, fov, near, far float64) *Camera {
	c := &Camera{fov: fov, near: near, far: far}
	c.SetSize(w, h)
	c.SetPosition(1000, 0, 0)
	return c
}

func (c *Camera) SetSize(w, h int) {
	c.width, c.height = max(w, 1), max(h, 1)
	c.aspect = float64(c.width) / float64(c.height)
	c.tanHalfFOV = math.Tan(c.fov * math.Pi / 360)
}

// SetPosition places the camera on a sphere of the given radius around the
// origin. The horizontal angle turns around the y axis starting at +z, the
// vertical angle lifts towards +y.
func (c *Camera) SetPosition(distance, horizontal, vertical float64) {
	c.pos = globe.Vec3{
		X: distance * math.Sin(horizontal) * math.Cos(vertical),
		Y: distance * math.Sin(vertical),
		Z: distance * math.Cos(horizontal) * math.Cos(vertical),
	}
	c.forward = normalize(c.pos.Scale(-1))
	right := cross(c.forward, globe.Vec3{Y: 1})
	if right.Len() < 1e-9 {
		// Looking straight along the y axis: keep the horizontal heading.
		right = globe.Vec3{X: math.Cos(horizontal), Z: -math.Sin(horizontal)}
	}
	c.right = normalize(right)
	c.up = cross(c.right, c.forward)
}

func (c *Camera) Position() globe.Vec3 { return c.pos }

// Ray returns the normalized view direction through the center of pixel
// (px, py).
func (c *Camera) Ray(px, py int) globe.Vec3 {
	nx := (2*(float64(px)+0.5)/float64(c.width) - 1) * c.tanHalfFOV * c.aspect
	ny := (1 - 2*(float64(py)+0.5)/float64(c.height)) * c.tanHalfFOV
	return normalize(c.forward.Add(c.right.Scale(nx)).Add(c.up.Scale(ny)))
}

// Project maps a point to pixel coordinates. ok is false for points behind
// the camera or outside the depth range.
func (c *Camera) Project(p globe.Vec3) (x, y float64, ok bool) {
	d := p.Sub(c.pos)
	z := dot(d, c.forward)
	if z < c.near || z > c.far {
		return 0, 0, false
	}
	nx := dot(d, c.right) / (z * c.tanHalfFOV * c.aspect)
	ny := dot(d, c.up) / (z * c.tanHalfFOV)
	x = (nx + 1) / 2 * float64(c.width)
	y = (1 - ny) / 2 * float64(c.height)
	return x, y, true
}

// IntersectSphere returns the distance along a normalized ray from the
// camera to the first hit on a sphere of radius r at the origin.
func (c *Camera) IntersectSphere(dir globe.Vec3, r float64) (float64, bool) {
	b := dot(c.pos, dir)
	disc := b*b - (dot(c.pos, c.pos) - r*r)
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Closest returns how near a normalized ray from the camera passes to the
// origin.
func (c *Camera) Closest(dir globe.Vec3) float64 {
	b := dot(c.pos, dir)
	return math.Sqrt(math.Max(dot(c.pos, c.pos)-b*b, 0))
}

// Visible reports whether p is in front of the camera and not hidden behind
// a sphere of radius r.
func (c *Camera) Visible(p globe.Vec3, r float64) bool {
	d := p.Sub(c.pos)
	dist := d.Len()
	if dist == 0 || dot(d, c.forward) < c.near {
		return false
	}
	t, hit := c.IntersectSphere(d.Scale(1/dist), r)
	return !hit || t >= dist-1e-3*r
}
