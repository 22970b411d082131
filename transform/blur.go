package transform

import (
	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/images/kernels"
)

// blur runs the box-blur Gaussian approximation over the colour channels of r.
func blur(img *images.Image, r images.Rect, opt Options) error {
	sigma := opt.Sigma
	if sigma <= 0 {
		sigma = max(float32(min(r.W, r.H))*DefaultSigmaFraction, 1)
	}

	buf := opt.Pool.Get(r.W * r.H * 3)
	defer opt.Pool.Put(buf)

	k := 0
	for y := r.Y; y < r.Y+r.H; y++ {
		i := img.Offset(r.X, y)
		for x := 0; x < r.W; x++ {
			buf[k], buf[k+1], buf[k+2] = float32(img.Pix[i]), float32(img.Pix[i+1]), float32(img.Pix[i+2])
			k += 3
			i += img.Channels
		}
	}

	err := kernels.GaussianBlur(buf, r.W, r.H, 3, kernels.Options{
		Sigma:    sigma,
		Passes:   opt.Passes,
		Border:   opt.Border,
		Pool:     opt.Pool,
		Parallel: r.W*r.H >= 1<<16,
	})
	if err != nil {
		return err
	}

	k = 0
	for y := r.Y; y < r.Y+r.H; y++ {
		i := img.Offset(r.X, y)
		for x := 0; x < r.W; x++ {
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = toByte(buf[k+c])
			}
			k += 3
			i += img.Channels
		}
	}
	return nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
