package images

import (
	"image"
	"image/draw"
)

// FromImage copies any image.Image into a tightly packed 3-channel RGB Image.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	dst, err := New(b.Dx(), b.Dy(), 3)
	if err != nil {
		return nil, err
	}

	nrgba, ok := src.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)
		b = nrgba.Bounds()
	}

	Parallel(dst.Height, func(start, end int) {
		for y := start; y < end; y++ {
			s := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			d := y * dst.Step
			for x := 0; x < dst.Width; x++ {
				dst.Pix[d] = nrgba.Pix[s]
				dst.Pix[d+1] = nrgba.Pix[s+1]
				dst.Pix[d+2] = nrgba.Pix[s+2]
				s += 4
				d += 3
			}
		}
	})
	return dst, nil
}

// ToNRGBA copies m into a new opaque *image.NRGBA, converting BGR to RGB.
func (m *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	r, b := 0, 2
	if m.Order == OrderBGR {
		r, b = 2, 0
	}
	Parallel(m.Height, func(start, end int) {
		for y := start; y < end; y++ {
			s := y * m.Step
			d := y * out.Stride
			for x := 0; x < m.Width; x++ {
				out.Pix[d] = m.Pix[s+r]
				out.Pix[d+1] = m.Pix[s+1]
				out.Pix[d+2] = m.Pix[s+b]
				out.Pix[d+3] = 0xff
				s += m.Channels
				d += 4
			}
		}
	})
	return out
}

// Packed copies m into a tightly packed 3-channel buffer in the requested
// order. dst is reused when it is large enough.
func (m *Image) Packed(dst []byte, order ChannelOrder) []byte {
	n := m.Width * m.Height * 3
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	swap := order != m.Order
	d := 0
	for y := 0; y < m.Height; y++ {
		s := y * m.Step
		for x := 0; x < m.Width; x++ {
			c0, c1, c2 := m.Pix[s], m.Pix[s+1], m.Pix[s+2]
			if swap {
				c0, c2 = c2, c0
			}
			dst[d], dst[d+1], dst[d+2] = c0, c1, c2
			s += m.Channels
			d += 3
		}
	}
	return dst
}
