package pipeline

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-censor/arena"
	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/postprocess"
	"github.com/nvr-ai/go-censor/profiler"
	"github.com/nvr-ai/go-censor/tiling"
	"github.com/nvr-ai/go-censor/transform"
)

// Options configures a Pipeline.
type Options struct {
	// Confidence is the minimum detector score (0..100) kept by consolidation.
	Confidence int
	// IoUThreshold is the NMS overlap above which the weaker rect is dropped.
	IoUThreshold float32
	// Threads is the number of concurrent tile workers and the tiling grid size.
	Threads int
	// Downscale shrinks frames whose longer side exceeds MaxDim before detection.
	Downscale bool
	MaxDim    int
	// Padding is the tile overlap in pixels.
	Padding int
	// MaxRects caps detections per frame.
	MaxRects int
	// ArenaLimit caps each tile arena in bytes; 0 means unbounded.
	ArenaLimit int
}

// DefaultOptions returns the settings used by the CLI when no flag is given.
func DefaultOptions() Options {
	return Options{
		Confidence:   80,
		IoUThreshold: postprocess.DefaultIoUThreshold,
		Threads:      runtime.NumCPU(),
		Downscale:    true,
		MaxDim:       640,
		MaxRects:     DefaultMaxRects,
	}
}

// Pipeline detects faces in frames and censors them. A Pipeline processes one
// frame at a time; its tile arenas are reused from frame to frame.
type Pipeline struct {
	opts    Options
	exec    *Executor
	lanczos *images.Lanczos
	log     logrus.FieldLogger
	watch   *profiler.Stopwatch
}

// New creates a pipeline around det.
//
// Arguments:
//   - det: The face detector.
//   - opts: Pipeline settings.
//   - log: Logger for diagnostics; nil uses the logrus standard logger.
//   - watch: Optional stage stopwatch; may be nil.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: An error if the settings are invalid.
func New(det detector.Detector, opts Options, log logrus.FieldLogger, watch *profiler.Stopwatch) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.Downscale && opts.MaxDim <= 0 {
		return nil, errors.Errorf("invalid max dimension %d", opts.MaxDim)
	}
	if opts.IoUThreshold < 0 || opts.IoUThreshold > 1 {
		return nil, errors.Errorf("IoU threshold %.2f outside [0, 1]", opts.IoUThreshold)
	}

	execOpts := []ExecutorOption{WithLogger(log)}
	if opts.ArenaLimit > 0 {
		execOpts = append(execOpts, WithArenaOptions(arena.WithLimit(opts.ArenaLimit)))
	}
	exec, err := NewExecutor(det, opts.Threads, execOpts...)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		opts:    opts,
		exec:    exec,
		lanczos: images.NewLanczos(images.DefaultLanczosRadius, images.DefaultLanczosSamples),
		log:     log,
		watch:   watch,
	}, nil
}

// Executor exposes the tile executor, mainly for inspection.
func (p *Pipeline) Executor() *Executor {
	return p.exec
}

// Close releases the tile arenas.
func (p *Pipeline) Close() {
	p.exec.Close()
}

// Detect returns the faces of img in img's own coordinate space.
//
// The frame is downscaled when enabled, converted to RGB if it is BGR, split
// into tiles and run through the executor. Tile detections are consolidated,
// de-duplicated with NMS and mapped back to the source resolution. img is
// left as it was found.
func (p *Pipeline) Detect(ctx context.Context, img *images.Image) ([]images.Rect, error) {
	if err := img.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame")
	}

	work := img
	scale := images.Scale{SrcWidth: img.Width, SrcHeight: img.Height, DstWidth: img.Width, DstHeight: img.Height}
	if p.opts.Downscale {
		done := p.watch.StartOperation("downscale")
		var err error
		work, scale, err = p.lanczos.Downscale(img, p.opts.MaxDim)
		if err != nil {
			return nil, errors.Wrap(err, "downscale")
		}
		done()
	}

	if work.Order == images.OrderBGR {
		images.ReverseChannels(work)
		if work == img {
			defer images.ReverseChannels(img)
		}
	}

	layout, err := tiling.NewLayout(work.Width, work.Height, p.opts.Threads, p.opts.Padding)
	if err != nil {
		return nil, errors.Wrap(err, "tiling")
	}

	done := p.watch.StartOperation("detect")
	results, err := p.exec.Run(ctx, work, layout)
	if err != nil {
		return nil, errors.Wrap(err, "detection pass")
	}
	done()

	done = p.watch.StartOperation("consolidate")
	rects, err := Consolidate(results, work.Width, work.Height, p.opts.Confidence, p.opts.MaxRects)
	if err != nil {
		return nil, err
	}
	rects = postprocess.ApplyNMS(rects, &postprocess.NMSConfig{IoUThreshold: p.opts.IoUThreshold})
	scale.Rects(rects)
	done()

	p.log.WithFields(logrus.Fields{
		"width":  img.Width,
		"height": img.Height,
		"scale":  scale.Factor(),
		"tiles":  len(layout.Tiles),
		"faces":  len(rects),
	}).Debug("frame detected")

	return rects, nil
}

// Process detects faces in img and applies req to them in place.
//
// Arguments:
//   - ctx: Cancels the detection pass.
//   - img: The frame to censor.
//   - req: Transforms to apply to every detection.
//
// Returns:
//   - []images.Rect: The detections that were censored.
//   - error: Any detection or transform error.
func (p *Pipeline) Process(ctx context.Context, img *images.Image, req transform.Request) ([]images.Rect, error) {
	rects, err := p.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(rects) == 0 || len(req.Kinds) == 0 {
		return rects, nil
	}

	done := p.watch.StartOperation("transform")
	defer done()
	if err := transform.Apply(img, rects, req); err != nil {
		return nil, errors.Wrap(err, "transform")
	}
	return rects, nil
}
