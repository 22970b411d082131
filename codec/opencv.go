package codec

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-censor/images"
)

// OpenCV decodes and encodes through gocv. Loaded images keep OpenCV's BGR
// channel order.
type OpenCV struct {
	Quality int
}

// Load implements Codec.
func (c *OpenCV) Load(path string) (*images.Image, error) {
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.Errorf("failed to decode %s", path)
	}
	img, err := MatToImage(mat)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert %s", path)
	}
	return img, nil
}

// Write implements Codec.
func (c *OpenCV) Write(path string, img *images.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	mat, err := ImageToMat(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	quality := c.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	var ok bool
	switch format {
	case FormatJPEG:
		ok = gocv.IMWriteWithParams(path, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	case FormatWebP:
		ok = gocv.IMWriteWithParams(path, mat, []int{int(gocv.IMWriteWebpQuality), quality})
	default:
		ok = gocv.IMWrite(path, mat)
	}
	if !ok {
		return errors.Errorf("failed to encode %s", path)
	}
	return nil
}

// MatToImage copies a CV_8UC3 Mat into a BGR Image.
func MatToImage(mat gocv.Mat) (*images.Image, error) {
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, errors.Errorf("expected 8-bit 3-channel mat, got type %d", mat.Type())
	}
	img, err := images.FromPix(mat.ToBytes(), mat.Cols(), mat.Rows(), 3)
	if err != nil {
		return nil, err
	}
	img.Order = images.OrderBGR
	return img, nil
}

// ImageToMat copies img into a new BGR Mat. The caller closes it.
func ImageToMat(img *images.Image) (gocv.Mat, error) {
	if err := img.Validate(); err != nil {
		return gocv.NewMat(), errors.Wrap(err, "invalid image")
	}
	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Packed(nil, images.OrderBGR))
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "failed to create mat")
	}
	return mat, nil
}
