// Package globe holds the interaction core of the BGP globe: camera motion,
// the marker ring, per-country aggregation, the picking protocol and the
// throttled refresh scheduling that ties them to a renderer.
package globe

import (
	"math"

	"github.com/rs/zerolog"
)

// Vec3 is a three component vector. For camera positions X is the radial
// distance, Y the horizontal angle and Z the vertical angle.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) clamp(lo, hi Vec3) Vec3 {
	return Vec3{
		math.Min(math.Max(v.X, lo.X), hi.X),
		math.Min(math.Max(v.Y, lo.Y), hi.Y),
		math.Min(math.Max(v.Z, lo.Z), hi.Z),
	}
}

// PositionOptions configures a Position. Nil fields take their defaults:
// zero for Current and Target, unbounded limits and unit weights.
type PositionOptions struct {
	Current    *Vec3
	Target     *Vec3
	LowerLimit *Vec3
	UpperLimit *Vec3
	Weights    *Vec3
}

// Position moves a current value towards a clamped target by a fixed
// fraction of the remaining distance per step.
type Position struct {
	current    Vec3
	target     Vec3
	stored     Vec3
	lastTarget Vec3
	lower      Vec3
	upper      Vec3
	weights    Vec3
	difference Vec3
}

// NewPosition builds a Position. A weight vector with any component outside
// (0,1] is replaced by all ones.
func NewPosition(opts PositionOptions, logger zerolog.Logger) *Position {
	p := &Position{
		lower:   Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
		upper:   Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		weights: Vec3{1, 1, 1},
	}
	if opts.Current != nil {
		p.current = *opts.Current
	}
	if opts.Target != nil {
		p.target = *opts.Target
	}
	if opts.LowerLimit != nil {
		p.lower = *opts.LowerLimit
	}
	if opts.UpperLimit != nil {
		p.upper = *opts.UpperLimit
	}
	if opts.Weights != nil {
		w := *opts.Weights
		if validWeight(w.X) && validWeight(w.Y) && validWeight(w.Z) {
			p.weights = w
		} else {
			logger.Warn().
				Float64("x", w.X).Float64("y", w.Y).Float64("z", w.Z).
				Msg("position weights must be in (0,1]; using ones")
		}
	}

	p.target = p.target.clamp(p.lower, p.upper)
	p.stored = p.current
	p.lastTarget = p.target
	p.difference = p.target.Sub(p.current)
	return p
}

func validWeight(w float64) bool {
	return w > 0 && w <= 1
}

// zoomDamp scales angular motion by the square of the current radius so a
// drag of fixed size rotates less the closer the camera is to the surface.
func (p *Position) zoomDamp() Vec3 {
	r2 := p.current.X * p.current.X
	return Vec3{1, r2, r2}
}

// AdjustTarget adds the damped delta to the target.
func (p *Position) AdjustTarget(delta Vec3) {
	p.target = p.target.Add(delta.Mul(p.zoomDamp())).clamp(p.lower, p.upper)
}

// Store records the origin of a relative gesture.
func (p *Position) Store(pos Vec3) {
	p.lastTarget = p.target
	p.stored = pos
}

// AdjustTargetRelative sets the target to the stored target plus the damped
// distance between pos and the stored origin. A damp of zero or less is
// treated as one.
func (p *Position) AdjustTargetRelative(pos Vec3, damp float64) {
	if damp <= 0 {
		damp = 1
	}
	vec := pos.Sub(p.stored).Scale(damp).Mul(p.zoomDamp())
	p.target = p.lastTarget.Add(vec).clamp(p.lower, p.upper)
}

// DoStep advances current one step towards target and returns it.
func (p *Position) DoStep() Vec3 {
	p.current = p.current.Add(p.target.Sub(p.current).Mul(p.weights))
	p.difference = p.target.Sub(p.current)
	return p.current
}

// Error is the remaining distance relative to the target magnitude. Targets
// shorter than one are measured absolutely.
func (p *Position) Error() float64 {
	return p.difference.Len() / math.Max(p.target.Len(), 1)
}

func (p *Position) Current() Vec3 { return p.current }
func (p *Position) Target() Vec3  { return p.target }
