package codec

import (
	"bufio"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-censor/images"
)

// Imaging is a pure Go codec. JPEGs are rotated according to their EXIF
// orientation on load. WebP goes through chai2010/webp.
type Imaging struct {
	Quality int
}

// Load implements Codec.
func (c *Imaging) Load(path string) (*images.Image, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if format == FormatWebP {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open image")
		}
		defer f.Close()
		src, err := webp.Decode(bufio.NewReader(f))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
		return images.FromImage(src)
	}

	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return images.FromImage(src)
}

// Write implements Codec.
func (c *Imaging) Write(path string, img *images.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := img.Validate(); err != nil {
		return errors.Wrap(err, "invalid image")
	}
	quality := c.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	nrgba := img.ToNRGBA()

	if format == FormatWebP {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "failed to create image")
		}
		w := bufio.NewWriter(f)
		if err := webp.Encode(w, nrgba, &webp.Options{Quality: float32(quality)}); err != nil {
			f.Close()
			return errors.Wrapf(err, "failed to encode %s", path)
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return errors.Wrapf(err, "failed to write %s", path)
		}
		return f.Close()
	}

	if err := imaging.Save(nrgba, path, imaging.JPEGQuality(quality)); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
