package transform

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/images/kernels"
)

// patterned returns an image whose pixels are all distinct enough to detect
// movement: c0 encodes x, c1 encodes y, c2 mixes both.
func patterned(t *testing.T, w, h int) *images.Image {
	t.Helper()
	img, err := images.New(w, h, 3)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, uint8(x*5), uint8(y*3), uint8((x*7+y*11)%256))
		}
	}
	return img
}

func pixels(img *images.Image, r images.Rect) [][3]uint8 {
	var out [][3]uint8
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			c0, c1, c2 := img.At(x, y)
			out = append(out, [3]uint8{c0, c1, c2})
		}
	}
	return out
}

func sorted(px [][3]uint8) [][3]uint8 {
	out := append([][3]uint8(nil), px...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return out
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("pixelate, blur,,Scramble")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Pixelate, Blur, Scramble}, kinds)

	kinds, err = ParseKinds("")
	require.NoError(t, err)
	assert.Empty(t, kinds)

	_, err = ParseKinds("pixelate,sharpen")
	assert.Error(t, err)

	for k := range kindNames {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestPixelateFlatBlocks(t *testing.T) {
	img := patterned(t, 50, 50)
	src := img.Clone()
	r := images.Rect{X: 5, Y: 5, W: 40, H: 40}

	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Pixelate},
		Options: Options{BlockScale: 0.25},
	}))

	for by := 0; by < 4; by++ {
		for bx := 0; bx < 4; bx++ {
			block := images.Rect{X: r.X + bx*10, Y: r.Y + by*10, W: 10, H: 10}
			var sum [3]int
			for _, p := range pixels(src, block) {
				sum[0] += int(p[0])
				sum[1] += int(p[1])
				sum[2] += int(p[2])
			}
			got := pixels(img, block)
			for _, p := range got {
				require.Equal(t, got[0], p, "block (%d,%d) is not flat", bx, by)
			}
			for c := 0; c < 3; c++ {
				assert.InDelta(t, float64(sum[c])/100, float64(got[0][c]), 0.5)
			}
		}
	}

	// Outside the rect is untouched.
	assert.Equal(t, pixels(src, images.Rect{W: 50, H: 5}), pixels(img, images.Rect{W: 50, H: 5}))
}

func TestPixelatePartialEdgeBlock(t *testing.T) {
	img := patterned(t, 30, 30)
	r := images.Rect{W: 23, H: 20}
	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Pixelate},
		Options: Options{BlockScale: 0.5},
	}))

	// Block size 10: the last column of blocks is 3 pixels wide and flat.
	edge := pixels(img, images.Rect{X: 20, Y: 0, W: 3, H: 10})
	for _, p := range edge {
		assert.Equal(t, edge[0], p)
	}
}

func TestPixelateSmallBlockIsNoop(t *testing.T) {
	img := patterned(t, 20, 20)
	src := img.Clone()
	require.NoError(t, Apply(img, []images.Rect{{W: 8, H: 8}}, Request{
		Kinds:   []Kind{Pixelate},
		Options: Options{BlockScale: 0.2},
	}))
	assert.Equal(t, src.Pix, img.Pix)
}

func TestScramblePermutes(t *testing.T) {
	img := patterned(t, 32, 32)
	src := img.Clone()
	r := images.Rect{X: 3, Y: 4, W: 17, H: 9}

	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Scramble},
		Options: Options{Seed: 42},
	}))

	before, after := pixels(src, r), pixels(img, r)
	assert.NotEqual(t, before, after)
	assert.Equal(t, sorted(before), sorted(after))

	// Same seed, same permutation.
	again := src.Clone()
	require.NoError(t, Apply(again, []images.Rect{r}, Request{
		Kinds:   []Kind{Scramble},
		Options: Options{Seed: 42},
	}))
	assert.Equal(t, img.Pix, again.Pix)
}

func TestScrambleMovesEveryPixelInEvenRegion(t *testing.T) {
	img, err := images.New(6, 4, 3)
	require.NoError(t, err)
	for i := 0; i < 24; i++ {
		img.Set(i%6, i/6, uint8(i), uint8(i), uint8(i))
	}
	require.NoError(t, Apply(img, []images.Rect{img.Bounds()}, Request{
		Kinds:   []Kind{Scramble},
		Options: Options{Seed: 7},
	}))
	for i := 0; i < 24; i++ {
		c, _, _ := img.At(i%6, i/6)
		assert.NotEqual(t, uint8(i), c, "pixel %d was not swapped", i)
	}
}

func TestTextureStretch(t *testing.T) {
	tex, err := images.New(2, 2, 3)
	require.NoError(t, err)
	tex.Set(0, 0, 10, 0, 0)
	tex.Set(1, 0, 20, 0, 0)
	tex.Set(0, 1, 30, 0, 0)
	tex.Set(1, 1, 40, 0, 0)

	img := patterned(t, 10, 10)
	require.NoError(t, Apply(img, []images.Rect{{X: 2, Y: 2, W: 4, H: 6}}, Request{
		Kinds:   []Kind{Texture},
		Options: Options{Texture: tex},
	}))

	want := map[[2]int]uint8{
		{2, 2}: 10, {3, 4}: 10, {4, 2}: 20, {5, 4}: 20,
		{2, 5}: 30, {3, 7}: 30, {4, 5}: 40, {5, 7}: 40,
	}
	for p, v := range want {
		c, _, _ := img.At(p[0], p[1])
		assert.Equal(t, v, c, "pixel %v", p)
	}
}

func TestTextureChannelOrder(t *testing.T) {
	tex, err := images.New(1, 1, 3)
	require.NoError(t, err)
	tex.Set(0, 0, 1, 2, 3)

	img, err := images.New(4, 4, 3)
	require.NoError(t, err)
	img.Order = images.OrderBGR
	require.NoError(t, Apply(img, []images.Rect{{W: 4, H: 4}}, Request{
		Kinds:   []Kind{Texture},
		Options: Options{Texture: tex},
	}))
	c0, c1, c2 := img.At(3, 3)
	assert.Equal(t, [3]uint8{3, 2, 1}, [3]uint8{c0, c1, c2})
}

func TestTextureRequiresImage(t *testing.T) {
	img := patterned(t, 10, 10)
	err := Apply(img, []images.Rect{{W: 4, H: 4}}, Request{Kinds: []Kind{Texture}})
	assert.Error(t, err)
}

func TestBlackout(t *testing.T) {
	img := patterned(t, 20, 20)
	r := images.Rect{X: 2, Y: 3, W: 5, H: 4}
	require.NoError(t, Apply(img, []images.Rect{r}, Request{Kinds: []Kind{Blackout}}))
	for _, p := range pixels(img, r) {
		assert.Equal(t, [3]uint8{}, p)
	}

	img = patterned(t, 20, 20)
	src := img.Clone()
	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Blackout},
		Options: Options{Opacity: 0.5},
	}))
	before, after := pixels(src, r), pixels(img, r)
	for i := range before {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, float64(before[i][c])/2, float64(after[i][c]), 0.5)
		}
	}
}

func TestOutline(t *testing.T) {
	img, err := images.New(10, 10, 3)
	require.NoError(t, err)
	r := images.Rect{X: 2, Y: 2, W: 5, H: 4}
	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Outline},
		Options: Options{Color: [3]uint8{255, 0, 0}},
	}))

	c0, _, _ := img.At(2, 2)
	assert.Equal(t, uint8(255), c0)
	c0, _, _ = img.At(6, 5)
	assert.Equal(t, uint8(255), c0)
	c0, _, _ = img.At(4, 3)
	assert.Equal(t, uint8(0), c0, "interior must stay unfilled")
	c0, _, _ = img.At(7, 2)
	assert.Equal(t, uint8(0), c0, "outside the rect")
}

func TestBlurStaysInsideRect(t *testing.T) {
	img := patterned(t, 40, 40)
	src := img.Clone()
	r := images.Rect{X: 10, Y: 10, W: 20, H: 20}

	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds:   []Kind{Blur},
		Options: Options{Sigma: 3, Border: kernels.BorderMirror, Pool: &kernels.Pool{}},
	}))

	assert.NotEqual(t, pixels(src, r), pixels(img, r))
	assert.Equal(t, pixels(src, images.Rect{W: 40, H: 10}), pixels(img, images.Rect{W: 40, H: 10}))
	assert.Equal(t, pixels(src, images.Rect{X: 30, Y: 10, W: 10, H: 20}), pixels(img, images.Rect{X: 30, Y: 10, W: 10, H: 20}))
}

func TestApplyClipsAndSkips(t *testing.T) {
	img := patterned(t, 10, 10)
	rects := []images.Rect{
		{X: -5, Y: -5, W: 8, H: 8},
		{X: 20, Y: 20, W: 5, H: 5},
	}
	require.NoError(t, Apply(img, rects, Request{Kinds: []Kind{Blackout}}))
	for _, p := range pixels(img, images.Rect{W: 3, H: 3}) {
		assert.Equal(t, [3]uint8{}, p)
	}
	c0, _, _ := img.At(3, 3)
	assert.NotZero(t, c0)
}

func TestApplyOrder(t *testing.T) {
	img := patterned(t, 20, 20)
	r := images.Rect{W: 20, H: 20}
	require.NoError(t, Apply(img, []images.Rect{r}, Request{
		Kinds: []Kind{Blackout, Outline},
	}))
	c0, c1, c2 := img.At(0, 0)
	assert.Equal(t, [3]uint8{0, 255, 0}, [3]uint8{c0, c1, c2})
	c0, c1, c2 = img.At(10, 10)
	assert.Equal(t, [3]uint8{}, [3]uint8{c0, c1, c2})
}
