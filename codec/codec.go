// Package codec - reading and writing still images.
package codec

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-censor/images"
)

// Format represents supported image formats.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ErrUnsupportedFormat is returned for file extensions no codec handles.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Extensions lists the file extensions recognised as images.
var Extensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tif", ".tiff"}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Ext(path))
}

// Codec loads and stores images.
type Codec interface {
	// Load decodes the file at path.
	Load(path string) (*images.Image, error)
	// Write encodes img to path; the format follows the extension.
	Write(path string, img *images.Image) error
}

// DefaultQuality is the lossy encoding quality.
const DefaultQuality = 90

// New returns the codec registered under name: "imaging" or "opencv".
func New(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "imaging":
		return &Imaging{Quality: DefaultQuality}, nil
	case "opencv", "gocv":
		return &OpenCV{Quality: DefaultQuality}, nil
	}
	return nil, errors.Errorf("unknown codec %q", name)
}
