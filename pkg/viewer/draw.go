package viewer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sudorandom/bgp-globe/pkg/globe"
)

var (
	boxFill   = color.RGBA{0, 0, 0, 100}
	boxStroke = color.RGBA{36, 42, 53, 255}
	accent    = color.RGBA{204, 0, 0, 255}
)

const (
	fontSize       = 14.0
	tooltipPadding = 6.0
	tooltipOffset  = 14
	overlayMargin  = 16.0
	maxNameLen     = 18
)

// Tooltip holds the hover text. The Viewer draws it each frame.
type Tooltip struct {
	Text    string
	X, Y    int
	Visible bool
}

func (t *Tooltip) Show(text string, x, y int) {
	t.Text, t.X, t.Y, t.Visible = text, x, y, true
}

func (t *Tooltip) Hide() { t.Visible = false }

func (v *Viewer) Draw(screen *ebiten.Image) {
	frame := v.renderer.Frame()
	if v.canvas == nil || v.canvas.Bounds() != frame.Bounds() {
		if v.canvas != nil {
			v.canvas.Deallocate()
		}
		v.canvas = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	v.canvas.WritePixels(frame.Pix)
	screen.DrawImage(v.canvas, nil)

	if v.cfg.TopCountries > 0 {
		v.drawOverlay(screen)
	}
	if v.tooltip.Visible && v.tooltip.Text != "" {
		v.drawTooltip(screen)
	}
}

func (v *Viewer) drawTooltip(screen *ebiten.Image) {
	face := &text.GoTextFace{Source: v.fontSource, Size: fontSize}
	tw, th := text.Measure(v.tooltip.Text, face, 0)
	box := tooltipRect(v.tooltip.X, v.tooltip.Y, tw+2*tooltipPadding, th+2*tooltipPadding, screen.Bounds())

	vector.DrawFilledRect(screen, float32(box.Min.X), float32(box.Min.Y), float32(box.Dx()), float32(box.Dy()), color.RGBA{255, 255, 255, 230}, false)
	vector.StrokeRect(screen, float32(box.Min.X), float32(box.Min.Y), float32(box.Dx()), float32(box.Dy()), 1, boxStroke, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(box.Min.X)+tooltipPadding, float64(box.Min.Y)+tooltipPadding)
	op.ColorScale.Scale(0, 0, 0, 1)
	text.Draw(screen, v.tooltip.Text, face, op)
}

// tooltipRect places a w by h box below and right of the cursor, flipped
// to the other side when it would leave bounds.
func tooltipRect(x, y int, w, h float64, bounds image.Rectangle) image.Rectangle {
	iw, ih := int(w+0.5), int(h+0.5)
	left, top := x+tooltipOffset, y+tooltipOffset
	if left+iw > bounds.Max.X {
		left = x - tooltipOffset - iw
	}
	if top+ih > bounds.Max.Y {
		top = y - tooltipOffset - ih
	}
	left = max(left, bounds.Min.X)
	top = max(top, bounds.Min.Y)
	return image.Rect(left, top, left+iw, top+ih)
}

func (v *Viewer) drawOverlay(screen *ebiten.Image) {
	lines := overlayLines(v.globe.Countries(), v.cfg.TopCountries)
	title := fmt.Sprintf("%s VIEW  %d markers  %d withdrawn",
		titleMode(v.globe.Mode()), v.globe.Markers().Len(), v.placer.Withdrawn)

	face := &text.GoTextFace{Source: v.monoSource, Size: fontSize}
	titleFace := &text.GoTextFace{Source: v.fontSource, Size: fontSize * 0.8}
	lineH := fontSize * 1.4
	boxW := 300.0
	boxH := lineH*float64(len(lines)+1) + 2*tooltipPadding

	x, y := overlayMargin, overlayMargin
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), boxFill, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), 1, boxStroke, false)
	vector.DrawFilledRect(screen, float32(x), float32(y), 4, float32(lineH), accent, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(x+10, y+tooltipPadding)
	op.ColorScale.Scale(0, 0, 0, 0.7)
	text.Draw(screen, title, titleFace, op)

	for i, line := range lines {
		ty := y + tooltipPadding + lineH*float64(i+1)
		nameOp := &text.DrawOptions{}
		nameOp.GeoM.Translate(x+10, ty)
		nameOp.ColorScale.Scale(0, 0, 0, 0.8)
		text.Draw(screen, line.Name, face, nameOp)

		tw, _ := text.Measure(line.Count, face, 0)
		countOp := &text.DrawOptions{}
		countOp.GeoM.Translate(x+boxW-tw-10, ty)
		countOp.ColorScale.Scale(0, 0, 0, 0.6)
		text.Draw(screen, line.Count, face, countOp)
	}
}

type overlayLine struct {
	Name, Count string
}

// overlayLines lists the n busiest countries by display name with their
// share of all markers.
func overlayLines(agg *globe.CountryAggregator, n int) []overlayLine {
	total := agg.Total()
	var out []overlayLine
	for _, t := range agg.Top(n) {
		if t.Count == 0 {
			continue
		}
		out = append(out, overlayLine{
			Name:  shortName(globe.CountryName(t.Code)),
			Count: fmt.Sprintf("%d %3.0f%%", t.Count, 100*float64(t.Count)/float64(max(total, 1))),
		})
	}
	return out
}

func shortName(name string) string {
	if len(name) > maxNameLen {
		return name[:maxNameLen-3] + "..."
	}
	return name
}

func titleMode(m globe.Mode) string {
	if m == globe.HeatMode {
		return "HEAT"
	}
	return "MAP"
}
