// Package images - pixel buffers, detection rectangles and resampling used by the
// censoring pipeline.
package images

import (
	"github.com/pkg/errors"
)

// ChannelOrder describes the byte order of the first three channels of a pixel.
type ChannelOrder int

const (
	// OrderRGB is the order the detector expects.
	OrderRGB ChannelOrder = iota
	// OrderBGR is the native order of OpenCV buffers.
	OrderBGR
)

// String implements fmt.Stringer.
func (o ChannelOrder) String() string {
	if o == OrderBGR {
		return "bgr"
	}
	return "rgb"
}

// Image is a row-major interleaved pixel buffer.
//
// An Image either owns Pix or is a view into a parent buffer created by Sub, in
// which case SubX/SubY hold the view's origin inside the parent.
type Image struct {
	// Pix holds the pixels. Pixel (x, y) starts at y*Step + x*Channels.
	Pix []byte
	// Width of the image in pixels.
	Width int
	// Height of the image in pixels.
	Height int
	// Channels is the number of bytes per pixel (>= 3).
	Channels int
	// Step is the row stride in bytes.
	Step int
	// Order of the colour channels.
	Order ChannelOrder
	// SubX is the x origin inside the parent image when this is a view.
	SubX int
	// SubY is the y origin inside the parent image when this is a view.
	SubY int
}

// New allocates a zeroed image with a tightly packed stride.
//
// Arguments:
//   - width: Width in pixels.
//   - height: Height in pixels.
//   - channels: Bytes per pixel, at least 3.
//
// Returns:
//   - *Image: The new image.
//   - error: An error if the geometry is invalid.
func New(width, height, channels int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	if channels < 3 {
		return nil, errors.Errorf("not enough channels on image: %d", channels)
	}
	return &Image{
		Pix:      make([]byte, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
		Step:     width * channels,
	}, nil
}

// FromPix wraps an existing tightly packed buffer without copying it.
func FromPix(pix []byte, width, height, channels int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	if channels < 3 {
		return nil, errors.Errorf("not enough channels on image: %d", channels)
	}
	if len(pix) < width*height*channels {
		return nil, errors.Errorf("buffer too small: has %d, needs %d", len(pix), width*height*channels)
	}
	return &Image{
		Pix:      pix,
		Width:    width,
		Height:   height,
		Channels: channels,
		Step:     width * channels,
	}, nil
}

// Validate checks that the buffer covers the declared geometry.
func (m *Image) Validate() error {
	if m == nil {
		return errors.New("image is nil")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return errors.Errorf("invalid dimensions: width=%d, height=%d", m.Width, m.Height)
	}
	if m.Channels < 3 {
		return errors.Errorf("not enough channels on image: %d", m.Channels)
	}
	if m.Step < m.Width*m.Channels {
		return errors.Errorf("row stride %d shorter than row %d", m.Step, m.Width*m.Channels)
	}
	if need := (m.Height-1)*m.Step + m.Width*m.Channels; len(m.Pix) < need {
		return errors.Errorf("buffer too small: has %d, needs %d", len(m.Pix), need)
	}
	return nil
}

// Offset returns the index of pixel (x, y) in Pix.
func (m *Image) Offset(x, y int) int {
	return y*m.Step + x*m.Channels
}

// Bounds returns the full-image rectangle.
func (m *Image) Bounds() Rect {
	return Rect{W: m.Width, H: m.Height}
}

// Sub returns a non-owning view of the w×h region at (x, y). The view shares
// Pix and Step with m; SubX/SubY are set relative to the root image.
func (m *Image) Sub(x, y, w, h int) (*Image, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > m.Width || y+h > m.Height {
		return nil, errors.Errorf("sub-region (%d,%d %dx%d) outside %dx%d image", x, y, w, h, m.Width, m.Height)
	}
	start := m.Offset(x, y)
	end := start + (h-1)*m.Step + w*m.Channels
	return &Image{
		Pix:      m.Pix[start:end:end],
		Width:    w,
		Height:   h,
		Channels: m.Channels,
		Step:     m.Step,
		Order:    m.Order,
		SubX:     m.SubX + x,
		SubY:     m.SubY + y,
	}, nil
}

// Clone returns a tightly packed deep copy.
func (m *Image) Clone() *Image {
	out := &Image{
		Pix:      make([]byte, m.Width*m.Height*m.Channels),
		Width:    m.Width,
		Height:   m.Height,
		Channels: m.Channels,
		Step:     m.Width * m.Channels,
		Order:    m.Order,
	}
	row := m.Width * m.Channels
	for y := 0; y < m.Height; y++ {
		copy(out.Pix[y*out.Step:y*out.Step+row], m.Pix[y*m.Step:y*m.Step+row])
	}
	return out
}

// At returns the first three channels of pixel (x, y).
func (m *Image) At(x, y int) (c0, c1, c2 uint8) {
	i := m.Offset(x, y)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// Set writes the first three channels of pixel (x, y).
func (m *Image) Set(x, y int, c0, c1, c2 uint8) {
	i := m.Offset(x, y)
	m.Pix[i] = c0
	m.Pix[i+1] = c1
	m.Pix[i+2] = c2
}

// ReverseChannels swaps the first and third channel of every pixel in place and
// flips Order. It converts BGR buffers to RGB and back.
func ReverseChannels(m *Image) {
	n := m.Channels
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Step : y*m.Step+m.Width*n]
		for i := 0; i < len(row); i += n {
			row[i], row[i+2] = row[i+2], row[i]
		}
	}
	if m.Order == OrderBGR {
		m.Order = OrderRGB
	} else {
		m.Order = OrderBGR
	}
}
