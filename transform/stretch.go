package transform

import "github.com/nvr-ai/go-censor/images"

// stretch resamples tex over r with nearest-neighbour sampling. The x and y
// ratios are computed independently so the texture fills r exactly.
func stretch(img *images.Image, r images.Rect, tex *images.Image) {
	swap := tex.Order != img.Order
	for y := 0; y < r.H; y++ {
		ty := y * tex.Height / r.H
		d := img.Offset(r.X, r.Y+y)
		for x := 0; x < r.W; x++ {
			tx := x * tex.Width / r.W
			s := tex.Offset(tx, ty)
			c0, c1, c2 := tex.Pix[s], tex.Pix[s+1], tex.Pix[s+2]
			if swap {
				c0, c2 = c2, c0
			}
			img.Pix[d], img.Pix[d+1], img.Pix[d+2] = c0, c1, c2
			d += img.Channels
		}
	}
}
