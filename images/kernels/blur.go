// Package kernels - separable box-blur kernels used to approximate a Gaussian
// blur over censored regions.
package kernels

import (
	"strings"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Border defines how sampling behaves outside the blurred buffer.
//   - Extend: repeats edge pixels.
//   - Mirror: reflects coordinates without repeating the edge.
//   - Wrap: tiles the buffer.
//   - Crop: skips out-of-range samples; they contribute zero.
type Border int

const (
	BorderExtend Border = iota
	BorderMirror
	BorderWrap
	BorderCrop
)

// DefaultPasses is the number of box passes used to approximate a Gaussian.
const DefaultPasses = 3

// String implements fmt.Stringer.
func (b Border) String() string {
	switch b {
	case BorderMirror:
		return "mirror"
	case BorderWrap:
		return "wrap"
	case BorderCrop:
		return "crop"
	default:
		return "extend"
	}
}

// ParseBorder parses a border policy name.
func ParseBorder(s string) (Border, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "extend", "clamp":
		return BorderExtend, nil
	case "mirror":
		return BorderMirror, nil
	case "wrap":
		return BorderWrap, nil
	case "crop", "skip":
		return BorderCrop, nil
	default:
		return BorderExtend, errors.Errorf("unknown border policy %q", s)
	}
}

// Options configures the blur call.
type Options struct {
	Sigma    float32 // Standard deviation of the approximated Gaussian.
	Passes   int     // Number of box passes (default 3).
	Border   Border  // Out-of-range sampling policy.
	Pool     *Pool   // Optional buffer pool for the intermediate buffer.
	Parallel bool    // Split rows/columns across goroutines.
}

// Pool lets callers reuse intermediate float buffers across regions and frames.
type Pool struct {
	f32 sync.Pool // *[]float32
}

// Get returns a buffer of length n. Contents are unspecified.
func (p *Pool) Get(n int) []float32 {
	if p == nil {
		return make([]float32, n)
	}
	if v := p.f32.Get(); v != nil {
		buf := *(v.(*[]float32))
		if cap(buf) >= n {
			return buf[:n]
		}
	}
	return make([]float32, n)
}

// Put returns a buffer to the pool.
func (p *Pool) Put(buf []float32) {
	if p == nil || buf == nil {
		return
	}
	p.f32.Put(&buf)
}

// BoxRadii computes the radii of passes box filters whose successive
// application approximates a Gaussian of the given sigma (Ivan Kutskir's
// derivation of the ideal box widths).
//
// Arguments:
//   - sigma: The Gaussian standard deviation.
//   - passes: The number of boxes.
//
// Returns:
//   - []int: One radius per pass; box width is 2*r+1.
func BoxRadii(sigma float32, passes int) []int {
	if passes < 1 {
		passes = 1
	}
	n := float32(passes)
	wIdeal := math32.Sqrt(12*sigma*sigma/n + 1)
	wl := int(math32.Floor(wIdeal))
	if wl%2 == 0 {
		wl--
	}
	wu := wl + 2

	fwl := float32(wl)
	mIdeal := (12*sigma*sigma - n*fwl*fwl - 4*n*fwl - 3*n) / (-4*fwl - 4)
	m := int(mIdeal + 0.5)

	radii := make([]int, passes)
	for i := range radii {
		w := wu
		if i < m {
			w = wl
		}
		radii[i] = max((w-1)/2, 0)
	}
	return radii
}

// mapCoord maps index i into [0, n) according to the border policy. It
// returns -1 for samples the Crop policy skips.
// For Mirror: ... -2,-1,0,1,2, ... -> 1,0,0,1,2, ... (no duplication at edges).
func mapCoord(i, n int, border Border) int {
	if i >= 0 && i < n {
		return i
	}
	switch border {
	case BorderMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case BorderWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case BorderCrop:
		return -1
	default:
		if i < 0 {
			return 0
		}
		return n - 1
	}
}

// GaussianBlur blurs an interleaved float buffer of w×h pixels with ch
// channels in place.
//
// Each pass is a horizontal sliding-window box sum followed by a vertical one,
// so the cost per pixel is O(1) regardless of the radius.
//
// Arguments:
//   - buf: Pixel data, len(buf) == w*h*ch.
//   - w, h, ch: Buffer geometry.
//   - opt: Blur options.
//
// Returns:
//   - error: An error if the geometry does not match the buffer.
func GaussianBlur(buf []float32, w, h, ch int, opt Options) error {
	if w <= 0 || h <= 0 || ch <= 0 {
		return errors.Errorf("invalid blur geometry %dx%dx%d", w, h, ch)
	}
	if len(buf) != w*h*ch {
		return errors.Errorf("blur buffer has %d values, geometry needs %d", len(buf), w*h*ch)
	}
	if opt.Sigma <= 0 {
		return nil
	}
	passes := opt.Passes
	if passes < 1 {
		passes = DefaultPasses
	}

	tmp := opt.Pool.Get(len(buf))
	defer opt.Pool.Put(tmp)

	for _, r := range BoxRadii(opt.Sigma, passes) {
		if r == 0 {
			continue
		}
		boxBlurH(buf, tmp, w, h, ch, r, opt.Border, opt.Parallel)
		boxBlurV(tmp, buf, w, h, ch, r, opt.Border, opt.Parallel)
	}
	return nil
}

// boxBlurH applies a horizontal box blur of radius r from in to out.
// The sliding window means we:
//   - Compute an initial sum for x in [-r .. +r], respecting the border.
//   - For each step to the right, subtract the sample leaving on the left
//     and add the sample entering on the right.
func boxBlurH(in, out []float32, w, h, ch, r int, border Border, parallel bool) {
	iarr := 1 / float32(r+r+1)
	rowTask := func(y int) {
		row := y * w
		sample := func(x, c int) float32 {
			xm := mapCoord(x, w, border)
			if xm < 0 {
				return 0
			}
			return in[(row+xm)*ch+c]
		}
		for c := 0; c < ch; c++ {
			var acc float32
			for dx := -r; dx <= r; dx++ {
				acc += sample(dx, c)
			}
			for x := 0; x < w; x++ {
				out[(row+x)*ch+c] = acc * iarr
				acc += sample(x+r+1, c) - sample(x-r, c)
			}
		}
	}
	run(h, parallel, rowTask)
}

// boxBlurV mirrors the horizontal pass along columns.
func boxBlurV(in, out []float32, w, h, ch, r int, border Border, parallel bool) {
	iarr := 1 / float32(r+r+1)
	colTask := func(x int) {
		sample := func(y, c int) float32 {
			ym := mapCoord(y, h, border)
			if ym < 0 {
				return 0
			}
			return in[(ym*w+x)*ch+c]
		}
		for c := 0; c < ch; c++ {
			var acc float32
			for dy := -r; dy <= r; dy++ {
				acc += sample(dy, c)
			}
			for y := 0; y < h; y++ {
				out[(y*w+x)*ch+c] = acc * iarr
				acc += sample(y+r+1, c) - sample(y-r, c)
			}
		}
	}
	run(w, parallel, colTask)
}

// run calls task for every index in [0, n), split into chunks across
// goroutines when parallel is set.
func run(n int, parallel bool, task func(i int)) {
	if !parallel || n < 4 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}

	chunk := chooseChunk(n)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// chooseChunk picks a work chunk size that balances overhead and cache locality.
func chooseChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}
