// Package yunet - a face detector backed by OpenCV's YuNet model
// (cv::FaceDetectorYN) through gocv.
package yunet

import (
	"context"
	"image"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/images"
)

// faceColumns is the width of a YuNet result row:
// x, y, w, h, 5 landmark pairs, score.
const faceColumns = 15

// Config configures the YuNet detector.
type Config struct {
	// ModelPath is the face_detection_yunet .onnx file.
	ModelPath string
	// ScoreThreshold drops faces below this score (0..1).
	ScoreThreshold float32
	// NMSThreshold is YuNet's internal suppression threshold.
	NMSThreshold float32
	// TopK bounds candidates before NMS.
	TopK int
	// Instances is the number of model copies, one per concurrent tile.
	Instances int
}

// DefaultConfig returns YuNet's reference settings.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:      modelPath,
		ScoreThreshold: 0.6,
		NMSThreshold:   0.3,
		TopK:           5000,
		Instances:      1,
	}
}

type instance struct {
	net   gocv.FaceDetectorYN
	size  image.Point
	buf   []byte
	faces gocv.Mat
}

// Detector hands each concurrent call its own FaceDetectorYN, which is not
// safe for concurrent use.
type Detector struct {
	pool chan *instance
	all  []*instance
}

// New loads cfg.Instances copies of the model.
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model not found at %s", cfg.ModelPath)
	}
	if cfg.Instances < 1 {
		cfg.Instances = 1
	}

	d := &Detector{pool: make(chan *instance, cfg.Instances)}
	for i := 0; i < cfg.Instances; i++ {
		size := image.Pt(320, 320)
		net := gocv.NewFaceDetectorYNWithParams(cfg.ModelPath, "", size,
			cfg.ScoreThreshold, cfg.NMSThreshold, cfg.TopK, 0, 0)
		inst := &instance{net: net, size: size, faces: gocv.NewMat()}
		d.all = append(d.all, inst)
		d.pool <- inst
	}
	return d, nil
}

// Detect implements detector.Detector.
func (d *Detector) Detect(ctx context.Context, tile *images.Image, scratch []byte) ([]byte, error) {
	var inst *instance
	select {
	case inst = <-d.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { d.pool <- inst }()

	inst.buf = tile.Packed(inst.buf, images.OrderBGR)
	mat, err := gocv.NewMatFromBytes(tile.Height, tile.Width, gocv.MatTypeCV8UC3, inst.buf)
	if err != nil {
		return nil, errors.Wrap(err, "tile to mat")
	}
	defer mat.Close()

	if size := image.Pt(tile.Width, tile.Height); size != inst.size {
		inst.net.SetInputSize(size)
		inst.size = size
	}
	inst.net.Detect(mat, &inst.faces)

	rows := inst.faces.Rows()
	if rows == 0 || inst.faces.Cols() < faceColumns {
		return nil, nil
	}
	rects := make([]images.Rect, 0, min(rows, detector.MaxRecords))
	row := make([]float32, faceColumns)
	for i := 0; i < rows && len(rects) < detector.MaxRecords; i++ {
		for c := range row {
			row[c] = inst.faces.GetFloatAt(i, c)
		}
		if r := decodeRow(row).Clip(tile.Width, tile.Height); !r.Empty() {
			rects = append(rects, r)
		}
	}
	if len(rects) == 0 {
		return nil, nil
	}
	return detector.EncodeNative(scratch, rects)
}

// Close releases every model copy.
func (d *Detector) Close() {
	for _, inst := range d.all {
		inst.net.Close()
		inst.faces.Close()
	}
	d.all = nil
}

// decodeRow converts one YuNet row to a rect with a 0..100 score.
func decodeRow(row []float32) images.Rect {
	return images.Rect{
		X:          int(row[0]),
		Y:          int(row[1]),
		W:          int(row[2] + 0.5),
		H:          int(row[3] + 0.5),
		Confidence: int(row[faceColumns-1]*100 + 0.5),
	}
}
