package globe

import "image/color"

type HitKind int

const (
	NoHit HitKind = iota
	MarkerHit
	CountryHit
)

func (k HitKind) String() string {
	switch k {
	case MarkerHit:
		return "marker"
	case CountryHit:
		return "country"
	}
	return "none"
}

// Hit is the decoded entity under a pick buffer pixel.
type Hit struct {
	Kind    HitKind
	Marker  int
	Country int
}

// Decode turns a pick buffer color into a Hit. Opaque pixels with a zero red
// channel carry a marker identity in big-endian RGB; opaque pixels with red
// in (0,254) carry a country slot. Everything else is background.
func Decode(c color.RGBA) Hit {
	if c.A != 255 {
		return Hit{Kind: NoHit}
	}
	if c.R == 0 {
		id := int(c.R)<<16 | int(c.G)<<8 | int(c.B)
		return Hit{Kind: MarkerHit, Marker: id}
	}
	if c.R < 254 {
		return Hit{Kind: CountryHit, Country: int(c.R)}
	}
	return Hit{Kind: NoHit}
}

// EncodeMarker returns the pick color for a marker identity. Identities that
// need a non-zero red byte would decode as countries and are rejected.
func EncodeMarker(id int) (color.RGBA, bool) {
	if id < 0 || id > 0xFFFF {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(id >> 16), G: uint8(id >> 8), B: uint8(id), A: 255}, true
}

// EncodeCountry returns the pick color for a country table slot.
func EncodeCountry(index int) (color.RGBA, bool) {
	if index <= 0 || index >= 254 {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(index), A: 255}, true
}

// PickBuffer is an RGBA identity image with row 0 at the top.
type PickBuffer struct {
	Width, Height int
	Pix           []byte
}

func NewPickBuffer(w, h int) *PickBuffer {
	return &PickBuffer{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// At returns the color at (x, y). Out of range reads are background.
func (b *PickBuffer) At(x, y int) color.RGBA {
	if b == nil || x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	off := (y*b.Width + x) * 4
	return color.RGBA{b.Pix[off], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3]}
}

func (b *PickBuffer) Set(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	off := (y*b.Width + x) * 4
	b.Pix[off], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3] = c.R, c.G, c.B, c.A
}

func (b *PickBuffer) Clear() {
	clear(b.Pix)
}
