// Package images - detection rectangles
package images

import "fmt"

// Rect is a detection in the coordinate space of the image it was found in.
type Rect struct {
	X, Y, W, H int
	// Confidence is the detector score, 0..100 for the bundled detectors.
	Confidence int
}

// String implements fmt.Stringer.
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d conf=%d)", r.X, r.Y, r.W, r.H, r.Confidence)
}

// Area returns W*H.
func (r Rect) Area() int {
	return r.W * r.H
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Clip returns r clipped to the w×h image so that X+W <= w and Y+H <= h.
// Negative origins are moved to zero and the size reduced accordingly.
func (r Rect) Clip(w, h int) Rect {
	if r.X < 0 {
		r.W += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.H += r.Y
		r.Y = 0
	}
	if r.X+r.W > w {
		r.W = w - r.X
	}
	if r.Y+r.H > h {
		r.H = h - r.Y
	}
	r.W = max(r.W, 0)
	r.H = max(r.H, 0)
	return r
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
// IoU = Area of Intersection / Area of Union
//
// The intersection uses exclusive bounds clamped at zero:
//
//	inter_w = max(0, min(ax+aw, bx+bw) - max(ax, bx))
//
// and likewise for the height. The union follows inclusion-exclusion:
//
//	Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// When the union is zero the IoU is defined as 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
//
// Example Usage:
// ```go
//
//	a := Rect{X: 0, Y: 0, W: 10, H: 10}
//	b := Rect{X: 5, Y: 5, W: 10, H: 10}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	interW := max(0, min(r.X+r.W, o.X+o.W)-max(r.X, o.X))
	interH := max(0, min(r.Y+r.H, o.Y+o.H)-max(r.Y, o.Y))
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	// Cast to float32 to ensure floating-point division.
	return float32(interArea) / float32(unionArea)
}
