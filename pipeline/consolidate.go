package pipeline

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-censor/images"
)

// DefaultMaxRects bounds the number of detections kept for one frame.
const DefaultMaxRects = 1024

// ErrRectOverflow is returned when a frame yields more detections than the
// configured capacity.
var ErrRectOverflow = errors.New("detection capacity exceeded")

// Consolidate merges tile-local detections into one full-image list.
//
// Tiles are visited in index order; tiles that were never started are skipped.
// For every rect:
//   - drop it when its confidence is below threshold,
//   - translate it by the tile origin,
//   - drop it when the origin lies at or past the right or bottom edge,
//   - move negative origins to zero,
//   - clip it so that X+W <= w-1 and Y+H <= h-1.
//
// Arguments:
//   - results: The executor's output for one pass.
//   - w, h: Size of the image the tiles were cut from.
//   - threshold: Minimum confidence to keep.
//   - capacity: Maximum number of rects; 0 selects DefaultMaxRects.
//
// Returns:
//   - []images.Rect: Full-image detections.
//   - error: ErrRectOverflow when more than capacity rects survive.
func Consolidate(results []TileResult, w, h, threshold, capacity int) ([]images.Rect, error) {
	if capacity <= 0 {
		capacity = DefaultMaxRects
	}

	var out []images.Rect
	for _, res := range results {
		if !res.Started {
			continue
		}
		for _, r := range res.Rects {
			if r.Confidence < threshold {
				continue
			}
			r.X += res.Tile.X
			r.Y += res.Tile.Y
			if r.X >= w || r.Y >= h {
				continue
			}
			if r.X < 0 {
				r.W += r.X
				r.X = 0
			}
			if r.Y < 0 {
				r.H += r.Y
				r.Y = 0
			}
			if r.X+r.W > w-1 {
				r.W = w - 1 - r.X
			}
			if r.Y+r.H > h-1 {
				r.H = h - 1 - r.Y
			}
			if r.W <= 0 || r.H <= 0 {
				continue
			}
			if len(out) == capacity {
				return nil, errors.Wrapf(ErrRectOverflow, "more than %d detections", capacity)
			}
			out = append(out, r)
		}
	}
	return out, nil
}
