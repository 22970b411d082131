// Package images - Lanczos downscaling ahead of detection.
package images

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

const (
	// DefaultLanczosRadius is the kernel support a used by the pipeline.
	DefaultLanczosRadius = 2
	// DefaultLanczosSamples is the resolution of the kernel lookup table.
	DefaultLanczosSamples = 1024
)

// Lanczos is a quantized Lanczos kernel. Evaluating sinc(x)·sinc(x/a) per
// sample is the dominant cost of a naive resampler, so the kernel is tabulated
// once over [0, a] and looked up by distance.
type Lanczos struct {
	a       int
	samples int
	lut     []float32
}

// NewLanczos precomputes a kernel lookup table.
//
// Arguments:
//   - a: The kernel radius (support window), typically 1–3.
//   - samples: Number of table entries covering [0, a].
//
// Returns:
//   - *Lanczos: The kernel.
func NewLanczos(a, samples int) *Lanczos {
	if a < 1 {
		a = DefaultLanczosRadius
	}
	if samples < 2 {
		samples = DefaultLanczosSamples
	}
	k := &Lanczos{a: a, samples: samples, lut: make([]float32, samples)}
	fa := float32(a)
	for i := range k.lut {
		x := float32(i) * fa / float32(samples-1)
		k.lut[i] = lanczos(x, fa)
	}
	return k
}

// lanczos evaluates sinc(x)·sinc(x/a) on [0, a].
func lanczos(x, a float32) float32 {
	if x == 0 {
		return 1
	}
	if x >= a {
		return 0
	}
	pix := math32.Pi * x
	return (math32.Sin(pix) / pix) * (math32.Sin(pix/a) / (pix / a))
}

// Radius returns the kernel support a.
func (k *Lanczos) Radius() int {
	return k.a
}

// Weight returns the tabulated kernel value at distance d.
func (k *Lanczos) Weight(d float32) float32 {
	d = math32.Abs(d)
	fa := float32(k.a)
	if d >= fa {
		return 0
	}
	i := int(d/fa*float32(k.samples-1) + 0.5)
	return k.lut[i]
}

// Scale records how an image was resized so detections can be mapped back.
type Scale struct {
	SrcWidth, SrcHeight int
	DstWidth, DstHeight int
}

// Identity reports whether no resize happened.
func (s Scale) Identity() bool {
	return s.SrcWidth == s.DstWidth && s.SrcHeight == s.DstHeight
}

// Factor is the inverse scale along the dominant (longer) source axis.
func (s Scale) Factor() float64 {
	if s.SrcWidth >= s.SrcHeight {
		return float64(s.SrcWidth) / float64(s.DstWidth)
	}
	return float64(s.SrcHeight) / float64(s.DstHeight)
}

// Rect maps a rectangle found in the downscaled image back to source
// resolution. x, y, w and h are rounded independently, which can drift by a
// pixel; the result is clipped to the source bounds.
func (s Scale) Rect(r Rect) Rect {
	if s.Identity() {
		return r
	}
	f := s.Factor()
	out := Rect{
		X:          int(math.Round(float64(r.X) * f)),
		Y:          int(math.Round(float64(r.Y) * f)),
		W:          int(math.Round(float64(r.W) * f)),
		H:          int(math.Round(float64(r.H) * f)),
		Confidence: r.Confidence,
	}
	return out.Clip(s.SrcWidth, s.SrcHeight)
}

// Rects maps every rectangle in rs back to source resolution in place.
func (s Scale) Rects(rs []Rect) {
	if s.Identity() {
		return
	}
	for i := range rs {
		rs[i] = s.Rect(rs[i])
	}
}

// TargetSize returns the size of img after fitting its longer side to maxDim
// with the aspect ratio preserved. Images already within maxDim are unchanged.
func TargetSize(width, height, maxDim int) (int, int) {
	if maxDim <= 0 || (width <= maxDim && height <= maxDim) {
		return width, height
	}
	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDim) / float64(width)))
		return maxDim, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDim) / float64(height)))
	return max(w, 1), maxDim
}

// Downscale shrinks img so that neither side exceeds maxDim.
//
// Each output pixel maps to the source coordinate (o+0.5)/scale-0.5; every
// source pixel within [-a, +a] of it contributes with weight L(dx)·L(dy).
// Samples beyond the border are clamped to the edge pixel, the sum is
// normalized by the total weight and each channel is rounded to nearest.
//
// Arguments:
//   - img: The source image (3 or more channels; only the first three are resampled).
//   - maxDim: The largest allowed width or height.
//
// Returns:
//   - *Image: A tightly packed 3-channel image, or img itself when no resize is needed.
//   - Scale: The applied scale, used to map detections back.
//   - error: An error if img is invalid.
func (k *Lanczos) Downscale(img *Image, maxDim int) (*Image, Scale, error) {
	if err := img.Validate(); err != nil {
		return nil, Scale{}, errors.Wrap(err, "input validation failed")
	}

	dw, dh := TargetSize(img.Width, img.Height, maxDim)
	scale := Scale{SrcWidth: img.Width, SrcHeight: img.Height, DstWidth: dw, DstHeight: dh}
	if scale.Identity() {
		return img, scale, nil
	}

	dst, err := New(dw, dh, 3)
	if err != nil {
		return nil, scale, err
	}
	dst.Order = img.Order

	sx := float32(dw) / float32(img.Width)
	sy := float32(dh) / float32(img.Height)
	a := k.a

	Parallel(dh, func(start, end int) {
		for oy := start; oy < end; oy++ {
			cy := (float32(oy)+0.5)/sy - 0.5
			iy := int(math32.Floor(cy))
			for ox := 0; ox < dw; ox++ {
				cx := (float32(ox)+0.5)/sx - 0.5
				ix := int(math32.Floor(cx))

				var sum0, sum1, sum2, total float32
				for j := iy - a; j <= iy+a+1; j++ {
					wy := k.Weight(cy - float32(j))
					if wy == 0 {
						continue
					}
					yy := min(max(j, 0), img.Height-1)
					row := yy * img.Step
					for i := ix - a; i <= ix+a+1; i++ {
						w := wy * k.Weight(cx-float32(i))
						if w == 0 {
							continue
						}
						xx := min(max(i, 0), img.Width-1)
						p := row + xx*img.Channels
						sum0 += w * float32(img.Pix[p])
						sum1 += w * float32(img.Pix[p+1])
						sum2 += w * float32(img.Pix[p+2])
						total += w
					}
				}

				o := oy*dst.Step + ox*3
				if total == 0 {
					p := min(max(iy, 0), img.Height-1)*img.Step + min(max(ix, 0), img.Width-1)*img.Channels
					copy(dst.Pix[o:o+3], img.Pix[p:p+3])
					continue
				}
				dst.Pix[o] = clampByte(sum0 / total)
				dst.Pix[o+1] = clampByte(sum1 / total)
				dst.Pix[o+2] = clampByte(sum2 / total)
			}
		}
	})

	return dst, scale, nil
}

// clampByte rounds v to the nearest integer in [0, 255].
func clampByte(v float32) uint8 {
	v = math32.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
