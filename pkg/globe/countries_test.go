package globe

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryCodesTable(t *testing.T) {
	tests := []struct {
		code  string
		index int
	}{
		{"A1", 0},
		{"A2", 1},
		{"O1", 2},
		{"AD", 3},
		{"AP", 11},
		{"DE", 60},
		{"EU", 73},
		{"US", 237},
		{"ZW", 253},
	}
	for _, tt := range tests {
		got, ok := CountryIndex(tt.code)
		if !ok || got != tt.index {
			t.Errorf("CountryIndex(%q) = %d, %v; want %d, true", tt.code, got, ok, tt.index)
		}
		if CountryCodes[tt.index] != tt.code {
			t.Errorf("CountryCodes[%d] = %q; want %q", tt.index, CountryCodes[tt.index], tt.code)
		}
	}

	assert.Equal(t, Padding, CountryCodes[254])
	assert.Equal(t, Padding, CountryCodes[255])
	_, ok := CountryIndex(Padding)
	assert.False(t, ok)

	got, ok := CountryIndex("us")
	assert.True(t, ok)
	assert.Equal(t, 237, got)
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code, want string
	}{
		{"A1", "Anonymous Proxy"},
		{"EU", "Europe"},
		{"ZZ", "ZZ"},
	}
	for _, tt := range tests {
		if got := CountryName(tt.code); got != tt.want {
			t.Errorf("CountryName(%q) = %q; want %q", tt.code, got, tt.want)
		}
	}
	assert.NotEqual(t, "DE", CountryName("DE"))
}

func TestCountryAggregatorCounts(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	a.Increment("US")
	a.Increment("DE")
	a.Decrement("US")

	us, _ := CountryIndex("US")
	de, _ := CountryIndex("DE")
	assert.Equal(t, 1, a.Total())
	assert.Equal(t, 0, a.Count(us))
	assert.Equal(t, 1, a.Count(de))
	assert.True(t, a.HasMarkers())
}

func TestCountryAggregatorDecrementAtZero(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	a.Increment("FR")
	v := a.Version()

	a.Decrement("GB")
	assert.Equal(t, 1, a.Total())
	assert.Equal(t, v, a.Version(), "no-op decrement recomputed colors")

	a.Decrement("FR")
	a.Decrement("FR")
	assert.Equal(t, 0, a.Total())
	assert.Equal(t, 0, a.CountOf("FR"))
	assert.False(t, a.HasMarkers())
}

func TestCountryAggregatorUnknownCodes(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	a.Increment("XX")
	a.Increment("US")

	assert.Equal(t, 2, a.Total())
	assert.Equal(t, 1, a.CountOf("XX"))

	sum := 0
	for i := 0; i < CountryCount; i++ {
		sum += a.Count(i)
	}
	sum += a.CountOf("XX")
	assert.Equal(t, a.Total(), sum)
}

func TestCountryAggregatorColors(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{MaxSaturation: 255})
	us, _ := CountryIndex("US")
	de, _ := CountryIndex("DE")

	white := color.RGBA{255, 255, 255, 255}
	assert.Equal(t, white, a.Color(us))

	a.Increment("US")
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, a.Color(us))
	assert.Equal(t, white, a.Color(de))

	// 1 of 8 markers: 1 - cbrt(1/8) = 0.5
	for i := 0; i < 7; i++ {
		a.Increment("DE")
	}
	assert.Equal(t, color.RGBA{255, 127, 127, 255}, a.Color(us))

	a.Reset()
	assert.Equal(t, white, a.Color(us))
	assert.Equal(t, 0, a.Total())
}

func TestCountryAggregatorMaxSaturation(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{0, 255},
		{-20, 0},
		{128, 128},
		{1000, 255},
	}
	for _, tt := range tests {
		a := NewCountryAggregator(AggregatorOptions{MaxSaturation: tt.in})
		if got := a.Color(10).R; got != tt.want {
			t.Errorf("MaxSaturation %d: red = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestCountryAggregatorInterpolatorClamped(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{
		Interpolate: func(ratio float64) float64 { return 3 - 5*ratio },
	})
	a.Increment("JP")
	a.Increment("KR")
	a.Increment("KR")
	a.Increment("KR")

	jp, _ := CountryIndex("JP")
	kr, _ := CountryIndex("KR")
	cn, _ := CountryIndex("CN")
	assert.Equal(t, uint8(255), a.Color(jp).G) // 3 - 1.25 clamps to 1
	assert.Equal(t, uint8(0), a.Color(kr).G)   // 3 - 3.75 clamps to 0
	assert.Equal(t, uint8(255), a.Color(cn).G)
}

func TestCountryAggregatorTexture(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	a.Increment("BR")
	tex := a.Texture()
	require.Len(t, tex, CountryCount*3)

	br, _ := CountryIndex("BR")
	assert.Equal(t, []byte{255, 0, 0}, tex[br*3:br*3+3])
	assert.Equal(t, []byte{255, 255, 255}, tex[0:3])
}

func TestCountryAggregatorTop(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	for _, cc := range []string{"US", "DE", "US", "NL", "DE", "US"} {
		a.Increment(cc)
	}
	assert.Equal(t, []CountryTally{{"US", 3}, {"DE", 2}}, a.Top(2))
	assert.Len(t, a.Top(10), 3)
}

func TestCountryAggregatorCaseInsensitive(t *testing.T) {
	a := NewCountryAggregator(AggregatorOptions{})
	a.Increment("us")
	a.Increment("US")
	assert.Equal(t, 2, a.CountOf("Us"))

	us, _ := CountryIndex("US")
	assert.Equal(t, 2, a.Count(us))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, a.Color(us))

	a.Decrement("uS")
	assert.Equal(t, 1, a.CountOf("US"))
	assert.Equal(t, 1, a.Total())
}
