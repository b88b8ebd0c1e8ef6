package sphere

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "globe-20240309-140507-heat.png", CaptureName("heat", ts))
}

func TestSavePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(3, 1, color.RGBA{R: 200, A: 255})

	path := filepath.Join(t.TempDir(), "nested", "dir", "frame.png")
	require.NoError(t, SavePNG(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())
	r, _, _, a := got.At(3, 1).RGBA()
	assert.Equal(t, uint32(200*0x101), r)
	assert.Equal(t, uint32(0xffff), a)
}

func TestSavePNGBadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	err := SavePNG(filepath.Join(blocker, "frame.png"), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}
