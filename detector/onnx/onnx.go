// Package onnx - a face detector backed by ONNX Runtime.
//
// The model is expected to be a single-class YOLO style face detector with an
// NCHW float input of InputSize×InputSize RGB pixels scaled to [0, 1] and an
// output of shape [1, Fields, Anchors] whose first five rows are
// (cx, cy, w, h, score) in input pixel space. Extra rows (landmarks) are ignored.
package onnx

import (
	"context"
	"image"
	"os"
	"runtime"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/postprocess"
)

// Config configures the ONNX detector.
type Config struct {
	// ModelPath is the .onnx file.
	ModelPath string
	// LibraryPath is the onnxruntime shared library. Empty uses SharedLibPath().
	LibraryPath string
	// InputSize is the square model input side.
	InputSize int
	// InputName and OutputName are the graph tensor names.
	InputName  string
	OutputName string
	// Fields and Anchors describe the output shape [1, Fields, Anchors].
	Fields  int
	Anchors int
	// ScoreThreshold drops raw detections below this score (0..1).
	ScoreThreshold float32
	// IoUThreshold is used for per-tile NMS of raw anchors.
	IoUThreshold float32
	// IntraOpThreads bounds onnxruntime's own parallelism; 0 lets it decide.
	IntraOpThreads int
}

// DefaultConfig returns the settings of a 640×640 YOLOv8-face export.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:      modelPath,
		InputSize:      640,
		InputName:      "images",
		OutputName:     "output0",
		Fields:         20,
		Anchors:        8400,
		ScoreThreshold: 0.25,
		IoUThreshold:   0.45,
		IntraOpThreads: 1,
	}
}

// SharedLibPath returns the conventional location of the onnxruntime library
// for this platform, honouring ONNXRUNTIME_LIB when set.
func SharedLibPath() (string, error) {
	if p := os.Getenv("ONNXRUNTIME_LIB"); p != "" {
		return p, nil
	}
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll", nil
	case "darwin":
		return "third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so", nil
		}
		return "third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if _, err := os.Stat(libPath); err != nil {
			envErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return envErr
}

// Detector runs one ONNX session. Calls are serialized because the session
// binds a single pair of input and output tensors.
type Detector struct {
	cfg     Config
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// New loads the model and binds its tensors.
//
// Arguments:
//   - cfg: Model and runtime settings.
//
// Returns:
//   - *Detector: The detector; Close it when done.
//   - error: An error if the runtime or the model cannot be loaded.
func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 || cfg.Fields < 5 || cfg.Anchors <= 0 {
		return nil, errors.Errorf("invalid model geometry: input=%d fields=%d anchors=%d", cfg.InputSize, cfg.Fields, cfg.Anchors)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model not found at %s", cfg.ModelPath)
	}
	lib := cfg.LibraryPath
	if lib == "" {
		var err error
		if lib, err = SharedLibPath(); err != nil {
			return nil, err
		}
	}
	if err := initEnvironment(lib); err != nil {
		return nil, err
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Fields), int64(cfg.Anchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Detector{cfg: cfg, session: session, input: input, output: output}, nil
}

// Detect implements detector.Detector.
func (d *Detector) Detect(ctx context.Context, tile *images.Image, scratch []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, errors.New("detector is closed")
	}

	if err := fillInput(tile, d.input.GetData(), d.cfg.InputSize); err != nil {
		return nil, err
	}
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	rects := decodeOutput(d.output.GetData(), d.cfg, tile.Width, tile.Height)
	if len(rects) == 0 {
		return nil, nil
	}
	if len(rects) > detector.MaxRecords {
		rects = rects[:detector.MaxRecords]
	}
	return detector.EncodeNative(scratch, rects)
}

// Close releases the session and its tensors.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
}

// fillInput resizes tile to size×size and writes it as planar RGB in [0, 1].
func fillInput(tile *images.Image, data []float32, size int) error {
	plane := size * size
	if len(data) < plane*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(data), plane*3)
	}
	red := data[0:plane]
	green := data[plane : plane*2]
	blue := data[plane*2 : plane*3]

	var img image.Image = tile.ToNRGBA()
	if tile.Width != size || tile.Height != size {
		img = resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	}

	i := 0
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < size; y++ {
			p := nrgba.PixOffset(nrgba.Rect.Min.X, nrgba.Rect.Min.Y+y)
			for x := 0; x < size; x++ {
				red[i] = float32(nrgba.Pix[p]) / 255
				green[i] = float32(nrgba.Pix[p+1]) / 255
				blue[i] = float32(nrgba.Pix[p+2]) / 255
				p += 4
				i++
			}
		}
		return nil
	}

	b := img.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255
			green[i] = float32(g>>8) / 255
			blue[i] = float32(bl>>8) / 255
			i++
		}
	}
	return nil
}

// decodeOutput turns raw anchors into tile-local rects with 0..100 scores.
func decodeOutput(out []float32, cfg Config, tileW, tileH int) []images.Rect {
	n := cfg.Anchors
	if len(out) < 5*n {
		return nil
	}
	sx := float32(tileW) / float32(cfg.InputSize)
	sy := float32(tileH) / float32(cfg.InputSize)

	var rects []images.Rect
	for i := 0; i < n; i++ {
		score := out[4*n+i]
		if score < cfg.ScoreThreshold {
			continue
		}
		cx, cy, w, h := out[i], out[n+i], out[2*n+i], out[3*n+i]
		r := images.Rect{
			X:          int((cx - w/2) * sx),
			Y:          int((cy - h/2) * sy),
			W:          int(w*sx + 0.5),
			H:          int(h*sy + 0.5),
			Confidence: int(score*100 + 0.5),
		}
		if r = r.Clip(tileW, tileH); r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return postprocess.ApplyNMS(rects, &postprocess.NMSConfig{IoUThreshold: cfg.IoUThreshold})
}
