package transform

import "github.com/nvr-ai/go-censor/images"

// blackout blends black over r. An opacity of 1 replaces the pixels.
func blackout(img *images.Image, r images.Rect, opacity float32) {
	keep := 1 - opacity
	for y := r.Y; y < r.Y+r.H; y++ {
		i := img.Offset(r.X, y)
		for x := 0; x < r.W; x++ {
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = uint8(float32(img.Pix[i+c])*keep + 0.5)
			}
			i += img.Channels
		}
	}
}

// pixelate replaces each block of r with its mean colour. The block side is
// scale times the shorter rect side; blocks of one pixel or less leave r
// untouched. Partial blocks at the right and bottom edges are averaged over
// the pixels they cover.
func pixelate(img *images.Image, r images.Rect, scale float32) {
	block := int(float32(min(r.W, r.H)) * scale)
	if block <= 1 {
		return
	}
	for by := r.Y; by < r.Y+r.H; by += block {
		bh := min(block, r.Y+r.H-by)
		for bx := r.X; bx < r.X+r.W; bx += block {
			bw := min(block, r.X+r.W-bx)

			var sum [3]int
			for y := by; y < by+bh; y++ {
				i := img.Offset(bx, y)
				for x := 0; x < bw; x++ {
					sum[0] += int(img.Pix[i])
					sum[1] += int(img.Pix[i+1])
					sum[2] += int(img.Pix[i+2])
					i += img.Channels
				}
			}
			n := bw * bh
			mean := [3]uint8{
				uint8((sum[0] + n/2) / n),
				uint8((sum[1] + n/2) / n),
				uint8((sum[2] + n/2) / n),
			}
			for y := by; y < by+bh; y++ {
				i := img.Offset(bx, y)
				for x := 0; x < bw; x++ {
					img.Pix[i], img.Pix[i+1], img.Pix[i+2] = mean[0], mean[1], mean[2]
					i += img.Channels
				}
			}
		}
	}
}

// outline draws a one pixel rectangle border along the inside of r.
func outline(img *images.Image, r images.Rect, rgb [3]uint8) {
	c := rgbIndex(img, rgb)
	x1, y1 := r.X+r.W-1, r.Y+r.H-1
	for x := r.X; x <= x1; x++ {
		img.Set(x, r.Y, c[0], c[1], c[2])
		img.Set(x, y1, c[0], c[1], c[2])
	}
	for y := r.Y; y <= y1; y++ {
		img.Set(r.X, y, c[0], c[1], c[2])
		img.Set(x1, y, c[0], c[1], c[2])
	}
}
