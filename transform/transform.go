// Package transform implements the censoring operators applied to the final
// detection rectangles.
package transform

import (
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/images/kernels"
)

// Kind names a censoring operator.
type Kind int

const (
	Blackout Kind = iota
	Pixelate
	Scramble
	Texture
	Blur
	Outline
)

var kindNames = map[Kind]string{
	Blackout: "blackout",
	Pixelate: "pixelate",
	Scramble: "scramble",
	Texture:  "texture",
	Blur:     "blur",
	Outline:  "outline",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind parses a single operator name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown transform %q", s)
}

// ParseKinds parses a comma separated list such as "pixelate,blur". Empty
// entries are ignored; order is preserved.
func ParseKinds(list string) ([]Kind, error) {
	var kinds []Kind
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

const (
	DefaultBlockScale    = 0.2
	DefaultSigmaFraction = 0.15
)

// Options tunes the operators. Zero values select the defaults.
type Options struct {
	// Opacity of the blackout fill in (0, 1]; 0 means fully opaque.
	Opacity float32
	// BlockScale is the pixelate block size as a fraction of the shorter rect side.
	BlockScale float32
	// Seed makes scramble deterministic when non-zero.
	Seed uint64
	// Texture is stretched over each rect by the Texture operator.
	Texture *images.Image
	// Sigma of the blur. 0 derives it from the rect size.
	Sigma float32
	// Passes is the number of box blur passes.
	Passes int
	// Border is the blur's out-of-range sampling policy.
	Border kernels.Border
	// Color of the outline overlay, in RGB order.
	Color [3]uint8
	// Pool recycles blur buffers across calls.
	Pool *kernels.Pool
}

// Request is an ordered list of operators with their options.
type Request struct {
	Kinds   []Kind
	Options Options
}

func (o Options) normalized() Options {
	if o.Opacity <= 0 || o.Opacity > 1 {
		o.Opacity = 1
	}
	if o.BlockScale <= 0 {
		o.BlockScale = DefaultBlockScale
	}
	if o.Passes <= 0 {
		o.Passes = kernels.DefaultPasses
	}
	if o.Color == ([3]uint8{}) {
		o.Color = [3]uint8{0, 255, 0}
	}
	return o
}

// Apply runs every operator of req, in order, over every rect. Rects are
// clipped to the image first; empty rects are skipped. img is mutated in place.
//
// Arguments:
//   - img: The image to censor.
//   - rects: Regions in img's coordinate space.
//   - req: Operators and options.
//
// Returns:
//   - error: An error if the image is invalid or an operator cannot run.
func Apply(img *images.Image, rects []images.Rect, req Request) error {
	if err := img.Validate(); err != nil {
		return errors.Wrap(err, "invalid image")
	}
	opt := req.Options.normalized()

	clipped := make([]images.Rect, 0, len(rects))
	for _, r := range rects {
		if c := r.Clip(img.Width, img.Height); !c.Empty() {
			clipped = append(clipped, c)
		}
	}
	if len(clipped) == 0 {
		return nil
	}

	var rng *rand.Rand
	for _, k := range req.Kinds {
		for _, r := range clipped {
			switch k {
			case Blackout:
				blackout(img, r, opt.Opacity)
			case Pixelate:
				pixelate(img, r, opt.BlockScale)
			case Scramble:
				if rng == nil {
					rng = newRand(opt.Seed)
				}
				scramble(img, r, rng)
			case Texture:
				if opt.Texture == nil {
					return errors.New("texture transform requires a texture image")
				}
				stretch(img, r, opt.Texture)
			case Blur:
				if err := blur(img, r, opt); err != nil {
					return errors.Wrapf(err, "blur %s", r)
				}
			case Outline:
				outline(img, r, opt.Color)
			default:
				return errors.Errorf("unsupported transform %d", k)
			}
		}
	}
	return nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// rgbIndex maps an RGB colour onto img's channel order.
func rgbIndex(img *images.Image, c [3]uint8) [3]uint8 {
	if img.Order == images.OrderBGR {
		return [3]uint8{c[2], c[1], c[0]}
	}
	return c
}
