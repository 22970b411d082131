package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImageToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(3, 4, 13, 10))
	for y := 4; y < 10; y++ {
		for x := 3; x < 13; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 99, A: 255})
		}
	}

	img, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Width)
	assert.Equal(t, 6, img.Height)
	c0, c1, c2 := img.At(2, 1)
	assert.Equal(t, [3]uint8{5, 5, 99}, [3]uint8{c0, c1, c2})

	back := img.ToNRGBA()
	assert.Equal(t, color.NRGBA{R: 5, G: 5, B: 99, A: 255}, back.NRGBAAt(2, 1))
}

func TestToNRGBAFromBGR(t *testing.T) {
	img, err := New(2, 1, 3)
	require.NoError(t, err)
	img.Set(0, 0, 1, 2, 3)
	img.Order = OrderBGR
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 255}, img.ToNRGBA().NRGBAAt(0, 0))
}

func TestPacked(t *testing.T) {
	img, err := New(4, 4, 4)
	require.NoError(t, err)
	img.Set(1, 1, 10, 20, 30)
	view, err := img.Sub(1, 1, 2, 2)
	require.NoError(t, err)

	rgb := view.Packed(nil, OrderRGB)
	assert.Len(t, rgb, 12)
	assert.Equal(t, []byte{10, 20, 30}, rgb[:3])

	bgr := view.Packed(make([]byte, 64), OrderBGR)
	assert.Len(t, bgr, 12)
	assert.Equal(t, []byte{30, 20, 10}, bgr[:3])
}
