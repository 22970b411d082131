// Package tiling splits an image into a grid of tiles, one per detection worker.
package tiling

import (
	"github.com/pkg/errors"
)

// grid is a (short, long) split of a thread count.
type grid struct {
	short, long int
}

// grids balances a thread count into a near-square grid. The long side is laid
// along the image's longer axis.
var grids = map[int]grid{
	1:  {1, 1},
	2:  {1, 2},
	3:  {1, 3},
	4:  {2, 2},
	5:  {1, 5},
	6:  {2, 3},
	7:  {1, 7},
	8:  {2, 4},
	9:  {3, 3},
	10: {2, 5},
	11: {1, 11},
	12: {3, 4},
	13: {1, 13},
	14: {2, 7},
	15: {3, 5},
	16: {4, 4},
}

// MaxTableThreads is the largest thread count with a balanced grid entry.
const MaxTableThreads = 16

// Grid returns the rows and columns used for threads workers on a w×h image.
// Counts outside the table become a single row (landscape) or a single column
// (portrait) of length threads.
func Grid(threads, w, h int) (rows, cols int) {
	if threads < 1 {
		threads = 1
	}
	horiz := w >= h
	g, ok := grids[threads]
	if !ok {
		g = grid{1, threads}
	}
	if horiz {
		return g.short, g.long
	}
	return g.long, g.short
}

// Tile is one worker's sub-region of the image.
type Tile struct {
	// Index is the row-major position of the tile in the grid.
	Index int
	// Col and Row locate the tile in the grid.
	Col, Row int
	// X and Y are the pixel origin of the tile, including any padding.
	X, Y int
	// Width and Height are the clamped pixel size of the tile.
	Width, Height int
}

// Offset returns the byte offset of the tile's origin in a tightly packed
// parent buffer of the given width and channel count.
func (t Tile) Offset(imageWidth, channels int) int {
	return (t.Y*imageWidth + t.X) * channels
}

// Layout is the tiling of one image for one detection pass.
type Layout struct {
	ImageWidth, ImageHeight int
	Rows, Cols              int
	// TileWidth and TileHeight are the nominal ceil(w/cols) × ceil(h/rows) size.
	TileWidth, TileHeight int
	// Padding is the overlap added on interior tile edges.
	Padding int
	Tiles   []Tile
}

// NewLayout computes the tiles for threads workers on a w×h image.
//
// Tiles are assigned row-major. The last row and column are clamped to the
// image so no tile reaches past the parent buffer; a tile left with no pixels
// by ceil rounding is dropped. Padding extends each tile into its neighbours
// (never past the image border) so faces cut by a tile seam are still seen
// whole by one worker.
//
// Arguments:
//   - w: Image width in pixels.
//   - h: Image height in pixels.
//   - threads: Number of workers, at least 1.
//   - padding: Overlap in pixels, 0 to disable.
//
// Returns:
//   - Layout: The tiling.
//   - error: An error if the image is empty.
func NewLayout(w, h, threads, padding int) (Layout, error) {
	if w <= 0 || h <= 0 {
		return Layout{}, errors.Errorf("invalid dimensions: width=%d, height=%d", w, h)
	}
	if padding < 0 {
		return Layout{}, errors.Errorf("negative tile padding %d", padding)
	}

	rows, cols := Grid(threads, w, h)
	// More tiles than pixels along an axis would leave empty tiles only.
	rows = min(rows, h)
	cols = min(cols, w)

	l := Layout{
		ImageWidth:  w,
		ImageHeight: h,
		Rows:        rows,
		Cols:        cols,
		TileWidth:   ceilDiv(w, cols),
		TileHeight:  ceilDiv(h, rows),
		Padding:     padding,
		Tiles:       make([]Tile, 0, rows*cols),
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0 := col * l.TileWidth
			y0 := row * l.TileHeight
			if x0 >= w || y0 >= h {
				continue
			}
			x1 := min(x0+l.TileWidth, w)
			y1 := min(y0+l.TileHeight, h)

			x0 = max(x0-padding, 0)
			y0 = max(y0-padding, 0)
			x1 = min(x1+padding, w)
			y1 = min(y1+padding, h)

			l.Tiles = append(l.Tiles, Tile{
				Index:  len(l.Tiles),
				Col:    col,
				Row:    row,
				X:      x0,
				Y:      y0,
				Width:  x1 - x0,
				Height: y1 - y0,
			})
		}
	}

	return l, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
