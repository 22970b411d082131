// Command censor detects faces in images, image folders and videos and
// censors them.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-censor/config"
	"github.com/nvr-ai/go-censor/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	flag.StringVar(&cfg.Input, "input", cfg.Input, "Image, video or directory of images to censor")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "Output directory")
	flag.StringVar(&cfg.Transforms, "transforms", cfg.Transforms, "Comma separated transforms: blackout,pixelate,scramble,texture,blur")
	flag.IntVar(&cfg.Confidence, "confidence", cfg.Confidence, "Minimum detection confidence (0-100)")
	flag.Float64Var(&cfg.NMS, "nms", cfg.NMS, "NMS IoU threshold")
	flag.IntVar(&cfg.Threads, "threads", cfg.Threads, "Number of detection threads (tiles)")
	flag.BoolVar(&cfg.Downscale, "downscale", cfg.Downscale, "Downscale large frames before detection")
	flag.IntVar(&cfg.MaxDim, "max-dim", cfg.MaxDim, "Longest side of the detection frame when downscaling")
	flag.IntVar(&cfg.Padding, "padding", cfg.Padding, "Tile overlap in pixels")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Outline detections and log stage timings")
	flag.StringVar(&cfg.Texture, "texture", cfg.Texture, "Texture image for the texture transform")
	flag.Float64Var(&cfg.BlockScale, "block-scale", cfg.BlockScale, "Pixelate block size as a fraction of the face size")
	flag.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Scramble seed (0 for random)")
	flag.Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "Blur sigma (0 derives it from the face size)")
	flag.StringVar(&cfg.Border, "border", cfg.Border, "Blur border policy: extend, mirror, wrap or crop")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "Face detector: yunet or onnx")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Detector model file")
	flag.StringVar(&cfg.OnnxLib, "onnx-lib", cfg.OnnxLib, "onnxruntime shared library (onnx detector)")
	flag.StringVar(&cfg.Codec, "codec", cfg.Codec, "Image codec: imaging or opencv")
	flag.IntVar(&cfg.MaxFrames, "max-frames", cfg.MaxFrames, "Maximum number of video frames")
	flag.StringVar(&cfg.FourCC, "fourcc", cfg.FourCC, "Video output FourCC")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write logs to this rotated file")
	flag.Parse()

	if cfg.Debug && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create logger")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	entry, _ := logger.WithRunID(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	det, closeDet, err := newDetector(cfg)
	if err != nil {
		entry.WithError(err).Fatal("failed to load detector")
	}
	defer closeDet()

	a, err := newApp(cfg, entry, det)
	if err != nil {
		entry.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	produced, err := a.Run(ctx)
	if err != nil {
		entry.WithError(err).Error("censoring failed")
	}
	if err != nil || produced == 0 {
		stop()
		a.Close()
		closeDet()
		os.Exit(1)
	}
	entry.WithField("outputs", produced).Info("done")
}
