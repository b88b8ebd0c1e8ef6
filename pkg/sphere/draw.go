package sphere

import (
	"image"
	"image/color"
	"math"
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// mix blends from a towards b by t in [0,1].
func mix(a, b color.RGBA, t float64) color.RGBA {
	t = clamp01(t)
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}

// tint multiplies each channel by its factor.
func tint(c color.RGBA, r, g, b float64) color.RGBA {
	return color.RGBA{
		R: uint8(math.Round(float64(c.R) * clamp01(r))),
		G: uint8(math.Round(float64(c.G) * clamp01(g))),
		B: uint8(math.Round(float64(c.B) * clamp01(b))),
		A: c.A,
	}
}

func blend(img *image.RGBA, x, y int, c color.RGBA, alpha float64) {
	if !(image.Point{x, y}.In(img.Rect)) || alpha <= 0 {
		return
	}
	off := img.PixOffset(x, y)
	dst := color.RGBA{img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3]}
	out := mix(dst, c, alpha)
	img.Pix[off], img.Pix[off+1], img.Pix[off+2] = out.R, out.G, out.B
}

// fillCircle draws an antialiased disc.
func fillCircle(img *image.RGBA, cx, cy, radius float64, c color.RGBA, alpha float64) {
	for y := int(math.Floor(cy - radius - 1)); y <= int(math.Ceil(cy+radius+1)); y++ {
		for x := int(math.Floor(cx - radius - 1)); x <= int(math.Ceil(cx+radius+1)); x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			blend(img, x, y, c, alpha*clamp01(radius-d+0.5))
		}
	}
}

// strokeCircle draws an antialiased ring of the given width.
func strokeCircle(img *image.RGBA, cx, cy, radius, width float64, c color.RGBA, alpha float64) {
	outer := radius + width
	for y := int(math.Floor(cy - outer - 1)); y <= int(math.Ceil(cy+outer+1)); y++ {
		for x := int(math.Floor(cx - outer - 1)); x <= int(math.Ceil(cx+outer+1)); x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			blend(img, x, y, c, alpha*clamp01(width/2-math.Abs(d-radius)+0.5))
		}
	}
}

type gradientStop struct {
	at float64
	c  color.RGBA
}

var heatGradient = []gradientStop{
	{0, color.RGBA{255, 255, 204, 255}},
	{0.25, color.RGBA{254, 217, 118, 255}},
	{0.5, color.RGBA{253, 141, 60, 255}},
	{0.75, color.RGBA{227, 26, 28, 255}},
	{1, color.RGBA{128, 0, 38, 255}},
}

// HeatColor maps accumulated heat in [0,1] onto the heat gradient.
func HeatColor(h float64) color.RGBA {
	h = clamp01(h)
	for i := 1; i < len(heatGradient); i++ {
		lo, hi := heatGradient[i-1], heatGradient[i]
		if h <= hi.at {
			return mix(lo.c, hi.c, (h-lo.at)/(hi.at-lo.at))
		}
	}
	return heatGradient[len(heatGradient)-1].c
}
