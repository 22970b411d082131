package transform

import (
	"math/rand/v2"

	"github.com/nvr-ai/go-censor/images"
)

// scramble permutes the pixels of r. Positions are drawn two at a time,
// uniformly from those not yet swapped, and their colours exchanged until at
// most one position is left.
func scramble(img *images.Image, r images.Rect, rng *rand.Rand) {
	n := r.W * r.H
	if n < 2 {
		return
	}
	pool := make([]int32, n)
	for i := range pool {
		pool[i] = int32(i)
	}
	take := func() int {
		j := rng.IntN(len(pool))
		p := pool[j]
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		return int(p)
	}
	offset := func(p int) int {
		return img.Offset(r.X+p%r.W, r.Y+p/r.W)
	}
	for len(pool) > 1 {
		a, b := offset(take()), offset(take())
		for c := 0; c < 3; c++ {
			img.Pix[a+c], img.Pix[b+c] = img.Pix[b+c], img.Pix[a+c]
		}
	}
}
