package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(w, h, ch int, v float32) []float32 {
	buf := make([]float32, w*h*ch)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func noise(w, h, ch int) []float32 {
	buf := make([]float32, w*h*ch)
	seed := uint32(7)
	for i := range buf {
		seed = seed*1664525 + 1013904223
		buf[i] = float32(seed >> 24)
	}
	return buf
}

func TestBoxRadii(t *testing.T) {
	assert.Equal(t, []int{1, 1, 2}, BoxRadii(2, 3))
	assert.Len(t, BoxRadii(5, 4), 4)
	assert.Len(t, BoxRadii(1, 0), 1)

	// Radii grow with sigma.
	small := BoxRadii(1, 3)
	large := BoxRadii(8, 3)
	for i := range small {
		assert.LessOrEqual(t, small[i], large[i])
	}
}

func TestMapCoord(t *testing.T) {
	tests := []struct {
		name   string
		i, n   int
		border Border
		want   int
	}{
		{"inside", 3, 5, BorderCrop, 3},
		{"extend low", -2, 5, BorderExtend, 0},
		{"extend high", 7, 5, BorderExtend, 4},
		{"mirror low", -1, 5, BorderMirror, 0},
		{"mirror low 2", -2, 5, BorderMirror, 1},
		{"mirror high", 5, 5, BorderMirror, 4},
		{"mirror high 2", 6, 5, BorderMirror, 3},
		{"mirror single", -3, 1, BorderMirror, 0},
		{"wrap low", -1, 5, BorderWrap, 4},
		{"wrap high", 6, 5, BorderWrap, 1},
		{"crop low", -1, 5, BorderCrop, -1},
		{"crop high", 5, 5, BorderCrop, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapCoord(tt.i, tt.n, tt.border))
		})
	}
}

func TestParseBorder(t *testing.T) {
	for _, b := range []Border{BorderExtend, BorderMirror, BorderWrap, BorderCrop} {
		got, err := ParseBorder(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseBorder("reflect101")
	assert.Error(t, err)
}

func TestGaussianBlurFlatStaysFlat(t *testing.T) {
	for _, border := range []Border{BorderExtend, BorderMirror, BorderWrap} {
		t.Run(border.String(), func(t *testing.T) {
			buf := flat(17, 11, 3, 120)
			require.NoError(t, GaussianBlur(buf, 17, 11, 3, Options{Sigma: 3, Border: border}))
			for i, v := range buf {
				require.InDelta(t, 120, v, 1e-3, "index %d", i)
			}
		})
	}
}

func TestGaussianBlurCropDarkensEdges(t *testing.T) {
	const w, h = 24, 24
	buf := flat(w, h, 1, 100)
	require.NoError(t, GaussianBlur(buf, w, h, 1, Options{Sigma: 2, Border: BorderCrop}))

	center := buf[(h/2)*w+w/2]
	corner := buf[0]
	assert.InDelta(t, 100, center, 1e-3)
	assert.Less(t, corner, center)
}

func TestGaussianBlurWrapConservesMass(t *testing.T) {
	const w, h = 32, 20
	buf := noise(w, h, 1)
	var before float64
	for _, v := range buf {
		before += float64(v)
	}
	require.NoError(t, GaussianBlur(buf, w, h, 1, Options{Sigma: 2.5, Border: BorderWrap}))
	var after float64
	for _, v := range buf {
		after += float64(v)
	}
	assert.InEpsilon(t, before, after, 1e-3)
}

func TestGaussianBlurSmooths(t *testing.T) {
	const w, h = 40, 40
	buf := noise(w, h, 1)
	variance := func(b []float32) float64 {
		var mean, v float64
		for _, x := range b {
			mean += float64(x)
		}
		mean /= float64(len(b))
		for _, x := range b {
			d := float64(x) - mean
			v += d * d
		}
		return v / float64(len(b))
	}
	before := variance(buf)
	require.NoError(t, GaussianBlur(buf, w, h, 1, Options{Sigma: 3}))
	assert.Less(t, variance(buf), before/4)
}

func TestGaussianBlurParallelMatchesSerial(t *testing.T) {
	const w, h, ch = 300, 120, 3
	serial := noise(w, h, ch)
	parallel := append([]float32(nil), serial...)
	pool := &Pool{}

	require.NoError(t, GaussianBlur(serial, w, h, ch, Options{Sigma: 4, Border: BorderMirror}))
	require.NoError(t, GaussianBlur(parallel, w, h, ch, Options{Sigma: 4, Border: BorderMirror, Pool: pool, Parallel: true}))
	assert.Equal(t, serial, parallel)
}

func TestGaussianBlurNoSigmaIsNoop(t *testing.T) {
	buf := noise(8, 8, 3)
	want := append([]float32(nil), buf...)
	require.NoError(t, GaussianBlur(buf, 8, 8, 3, Options{}))
	assert.Equal(t, want, buf)
}

func TestGaussianBlurRejectsBadGeometry(t *testing.T) {
	assert.Error(t, GaussianBlur(make([]float32, 10), 0, 4, 1, Options{Sigma: 1}))
	assert.Error(t, GaussianBlur(make([]float32, 10), 4, 4, 1, Options{Sigma: 1}))
}

func TestPoolReuse(t *testing.T) {
	var p Pool
	a := p.Get(64)
	assert.Len(t, a, 64)
	p.Put(a)
	b := p.Get(32)
	assert.Len(t, b, 32)

	var nilPool *Pool
	assert.Len(t, nilPool.Get(5), 5)
	nilPool.Put(b)
}
