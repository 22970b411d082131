package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-censor/codec"
	"github.com/nvr-ai/go-censor/config"
	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/detector/onnx"
	"github.com/nvr-ai/go-censor/detector/yunet"
	"github.com/nvr-ai/go-censor/images/kernels"
	"github.com/nvr-ai/go-censor/pipeline"
	"github.com/nvr-ai/go-censor/profiler"
	"github.com/nvr-ai/go-censor/transform"
	"github.com/nvr-ai/go-censor/util"
	"github.com/nvr-ai/go-censor/video"
)

// InputType represents the type of input being processed.
type InputType int

const (
	InputImage InputType = iota
	InputVideo
	InputDirectory
)

var supportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// detectInputType classifies path by whether it is a directory and by its
// extension.
func detectInputType(path string) (InputType, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "input not found")
	}
	if info.IsDir() {
		return InputDirectory, nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range supportedVideoExtensions {
		if ext == v {
			return InputVideo, nil
		}
	}
	if _, err := codec.FormatFromPath(path); err != nil {
		return 0, err
	}
	return InputImage, nil
}

// newDetector loads the detector selected by cfg. One model instance is
// created per thread where the backend needs it.
func newDetector(cfg config.Config) (detector.Detector, func(), error) {
	switch cfg.Detector {
	case "onnx":
		oc := onnx.DefaultConfig(cfg.Model)
		oc.LibraryPath = cfg.OnnxLib
		d, err := onnx.New(oc)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		yc := yunet.DefaultConfig(cfg.Model)
		yc.Instances = cfg.Threads
		d, err := yunet.New(yc)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
}

type app struct {
	cfg   config.Config
	log   *logrus.Entry
	codec codec.Codec
	pipe  *pipeline.Pipeline
	req   transform.Request
	watch *profiler.Stopwatch
}

func newApp(cfg config.Config, log *logrus.Entry, det detector.Detector) (*app, error) {
	c, err := codec.New(cfg.Codec)
	if err != nil {
		return nil, err
	}

	kinds, err := transform.ParseKinds(cfg.Transforms)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		kinds = append(kinds, transform.Outline)
	}
	border, err := kernels.ParseBorder(cfg.Border)
	if err != nil {
		return nil, err
	}
	req := transform.Request{
		Kinds: kinds,
		Options: transform.Options{
			BlockScale: float32(cfg.BlockScale),
			Seed:       cfg.Seed,
			Sigma:      float32(cfg.Sigma),
			Border:     border,
			Pool:       &kernels.Pool{},
		},
	}
	if cfg.Texture != "" {
		if req.Options.Texture, err = c.Load(cfg.Texture); err != nil {
			return nil, errors.Wrap(err, "failed to load texture")
		}
	}

	var watch *profiler.Stopwatch
	if cfg.Debug {
		watch = profiler.NewStopwatch()
	}
	pipe, err := pipeline.New(det, pipeline.Options{
		Confidence:   cfg.Confidence,
		IoUThreshold: float32(cfg.NMS),
		Threads:      cfg.Threads,
		Downscale:    cfg.Downscale,
		MaxDim:       cfg.MaxDim,
		Padding:      cfg.Padding,
		MaxRects:     pipeline.DefaultMaxRects,
	}, log, watch)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, codec: c, pipe: pipe, req: req, watch: watch}, nil
}

// Close releases the pipeline.
func (a *app) Close() {
	if a.pipe != nil {
		a.pipe.Close()
		a.pipe = nil
	}
}

// Run processes the configured input and returns the number of files written.
func (a *app) Run(ctx context.Context) (int, error) {
	kind, err := detectInputType(a.cfg.Input)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(a.cfg.Output, 0o755); err != nil {
		return 0, errors.Wrap(err, "failed to create output directory")
	}
	defer a.watch.Report(a.log)

	switch kind {
	case InputDirectory:
		return a.processDir(ctx, a.cfg.Input)
	case InputVideo:
		if err := a.processVideo(ctx, a.cfg.Input); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		if err := a.processImage(ctx, a.cfg.Input); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

func (a *app) outputPath(in string) string {
	return filepath.Join(a.cfg.Output, filepath.Base(in))
}

func (a *app) processImage(ctx context.Context, in string) error {
	done := a.watch.StartOperation("load")
	img, err := a.codec.Load(in)
	if err != nil {
		return err
	}
	done()

	rects, err := a.pipe.Process(ctx, img, a.req)
	if err != nil {
		return errors.Wrapf(err, "failed to censor %s", in)
	}

	out := a.outputPath(in)
	done = a.watch.StartOperation("write")
	if err := a.codec.Write(out, img); err != nil {
		return err
	}
	done()

	a.log.WithFields(logrus.Fields{
		"input":  in,
		"output": out,
		"faces":  len(rects),
	}).Info("image censored")
	return nil
}

// processDir censors every image in dir. A failing image is logged and
// skipped.
func (a *app) processDir(ctx context.Context, dir string) (int, error) {
	files, err := util.ListImageFiles(dir, codec.Extensions)
	if err != nil {
		return 0, err
	}
	produced := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return produced, err
		}
		if err := a.processImage(ctx, f.Path); err != nil {
			a.log.WithFields(logrus.Fields{
				"input": f.Path,
				"error": err,
			}).Warn("skipping image")
			continue
		}
		produced++
	}
	return produced, nil
}

func (a *app) processVideo(ctx context.Context, in string) error {
	done := a.watch.StartOperation("decode")
	v, err := video.Decode(in, a.cfg.MaxFrames)
	if err != nil {
		return err
	}
	done()

	faces := 0
	for i, frame := range v.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		rects, err := a.pipe.Process(ctx, frame, a.req)
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		faces += len(rects)
	}

	out := a.outputPath(in)
	done = a.watch.StartOperation("encode")
	if err := video.Encode(out, v, a.cfg.FourCC); err != nil {
		return err
	}
	done()

	a.log.WithFields(logrus.Fields{
		"input":  in,
		"output": out,
		"frames": len(v.Frames),
		"faces":  faces,
	}).Info("video censored")
	return nil
}
