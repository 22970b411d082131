// Package detector - the face detector boundary.
//
// Detectors are black boxes: they receive one tile and a fixed-size scratch
// buffer and answer with a packed native result,
//
//	uint32  count                  (little endian)
//	[count] record of 16 × int16   (confidence, x, y, w, h, 11 unused)
//
// in tile-local coordinates. A nil result means no detections.
package detector

import (
	"context"
	"encoding/binary"

	"github.com/nvr-ai/go-censor/images"
	"github.com/pkg/errors"
)

const (
	// ScratchSize is the working memory every detector call receives.
	ScratchSize = 0x9000
	// RecordFields is the number of int16 values per native record.
	RecordFields = 16
	// RecordSize is the byte size of one native record.
	RecordSize = RecordFields * 2
	// HeaderSize is the byte size of the leading count.
	HeaderSize = 4
	// MaxRecords is how many records fit in a scratch buffer.
	MaxRecords = (ScratchSize - HeaderSize) / RecordSize
)

// ErrTruncated is returned when a native buffer is shorter than its count claims.
var ErrTruncated = errors.New("native result truncated")

// Detector finds faces in one tile.
type Detector interface {
	// Detect runs the detector on tile. The tile may be a view into a larger
	// buffer: rows are tile.Step bytes apart. scratch is ScratchSize bytes of
	// zeroed working memory owned by the caller for the duration of the call.
	// The returned buffer may alias scratch.
	Detect(ctx context.Context, tile *images.Image, scratch []byte) ([]byte, error)
}

// Func adapts a function to the Detector interface.
type Func func(ctx context.Context, tile *images.Image, scratch []byte) ([]byte, error)

// Detect implements Detector.
func (f Func) Detect(ctx context.Context, tile *images.Image, scratch []byte) ([]byte, error) {
	return f(ctx, tile, scratch)
}

// EncodeNative packs rects into dst using the native layout.
//
// Arguments:
//   - dst: Destination buffer, usually the scratch buffer of the call.
//   - rects: Detections in tile-local coordinates. Values outside int16 are saturated.
//
// Returns:
//   - []byte: dst[:HeaderSize+len(rects)*RecordSize].
//   - error: An error if dst is too small.
func EncodeNative(dst []byte, rects []images.Rect) ([]byte, error) {
	n := HeaderSize + len(rects)*RecordSize
	if len(dst) < n {
		return nil, errors.Errorf("native buffer too small: has %d, needs %d for %d records", len(dst), n, len(rects))
	}
	out := dst[:n]
	clear(out)
	binary.LittleEndian.PutUint32(out, uint32(len(rects)))
	for i, r := range rects {
		p := out[HeaderSize+i*RecordSize:]
		putInt16(p[0:], r.Confidence)
		putInt16(p[2:], r.X)
		putInt16(p[4:], r.Y)
		putInt16(p[6:], r.W)
		putInt16(p[8:], r.H)
	}
	return out, nil
}

// ParseNative decodes a native buffer. A nil or empty buffer is zero detections.
func ParseNative(buf []byte) ([]images.Rect, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < HeaderSize {
		return nil, errors.Wrapf(ErrTruncated, "header needs %d bytes, has %d", HeaderSize, len(buf))
	}
	count := int(binary.LittleEndian.Uint32(buf))
	if need := HeaderSize + count*RecordSize; count < 0 || len(buf) < need {
		return nil, errors.Wrapf(ErrTruncated, "%d records need %d bytes, has %d", count, need, len(buf))
	}

	rects := make([]images.Rect, count)
	for i := range rects {
		p := buf[HeaderSize+i*RecordSize:]
		rects[i] = images.Rect{
			Confidence: getInt16(p[0:]),
			X:          getInt16(p[2:]),
			Y:          getInt16(p[4:]),
			W:          getInt16(p[6:]),
			H:          getInt16(p[8:]),
		}
	}
	return rects, nil
}

func putInt16(p []byte, v int) {
	v = min(max(v, -1<<15), 1<<15-1)
	binary.LittleEndian.PutUint16(p, uint16(int16(v)))
}

func getInt16(p []byte) int {
	return int(int16(binary.LittleEndian.Uint16(p)))
}
