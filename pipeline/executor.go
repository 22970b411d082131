// Package pipeline - parallel tiled detection, consolidation and censoring.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-censor/arena"
	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/images"
	"github.com/nvr-ai/go-censor/tiling"
)

// State is the phase of a detection pass.
type State int32

const (
	Idle State = iota
	Dispatching
	Running
	Joined
	Collected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Dispatching:
		return "dispatching"
	case Running:
		return "running"
	case Joined:
		return "joined"
	case Collected:
		return "collected"
	default:
		return "idle"
	}
}

// ErrBusy is returned when Run is called while another pass is in flight.
var ErrBusy = errors.New("executor already running a pass")

// TileResult is what one worker produced for one tile.
type TileResult struct {
	Tile tiling.Tile
	// Rects are tile-local detections.
	Rects []images.Rect
	// Started is false when the tile's worker was never dispatched.
	Started bool
}

// Executor runs a detector over the tiles of a layout with a bounded number of
// concurrent workers. Each tile slot owns an arena that backs the detector's
// scratch memory and is rewound at the start of the next pass, so a stream of
// frames reuses the same memory.
type Executor struct {
	detector  detector.Detector
	threads   int
	arenaSize int
	arenaOpts []arena.Option
	log       logrus.FieldLogger

	mu     sync.Mutex
	state  atomic.Int32
	arenas []*arena.Arena
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(log logrus.FieldLogger) ExecutorOption {
	return func(e *Executor) {
		e.log = log
	}
}

// WithArenaSize sets the initial capacity of each tile arena.
func WithArenaSize(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.arenaSize = n
		}
	}
}

// WithArenaOptions forwards options to every tile arena (growth, limit).
func WithArenaOptions(opts ...arena.Option) ExecutorOption {
	return func(e *Executor) {
		e.arenaOpts = append(e.arenaOpts, opts...)
	}
}

// NewExecutor creates an executor running at most threads workers at a time.
func NewExecutor(det detector.Detector, threads int, opts ...ExecutorOption) (*Executor, error) {
	if det == nil {
		return nil, errors.New("detector is nil")
	}
	if threads < 1 {
		return nil, errors.Errorf("invalid thread count %d", threads)
	}
	e := &Executor{
		detector:  det,
		threads:   threads,
		arenaSize: detector.ScratchSize,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns the phase of the current or last pass.
func (e *Executor) State() State {
	return State(e.state.Load())
}

func (e *Executor) setState(s State) {
	e.state.Store(int32(s))
}

// Run executes one detection pass over img.
//
// Every tile gets a scratch buffer of detector.ScratchSize bytes from its own
// arena and a worker on an errgroup limited to the executor's thread count. A
// tile that cannot be dispatched is logged and left with Started == false; the
// pass continues with the remaining tiles. Arena exhaustion and detector errors
// fail the pass once all started workers have been joined.
//
// Arguments:
//   - ctx: Cancels in-flight detector calls.
//   - img: The (possibly downscaled) frame, in the detector's channel order.
//   - layout: Tiling of img.
//
// Returns:
//   - []TileResult: One entry per layout tile, in tile index order.
//   - error: The first fatal error of the pass.
func (e *Executor) Run(ctx context.Context, img *images.Image, layout tiling.Layout) ([]TileResult, error) {
	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()

	if err := img.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame")
	}

	// Workers of the previous pass have all exited; their memory is free.
	for _, a := range e.arenas {
		a.Reset()
	}

	e.setState(Dispatching)
	results := make([]TileResult, len(layout.Tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads)

	var dispatchErr error
	started := 0
	for i, tile := range layout.Tiles {
		results[i].Tile = tile

		view, err := img.Sub(tile.X, tile.Y, tile.Width, tile.Height)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"tile":  tile.Index,
				"error": err,
			}).Warn("tile dispatch failed, skipping")
			continue
		}

		a, err := e.arena(i)
		if err != nil {
			dispatchErr = err
			break
		}
		scratch, err := a.Alloc(detector.ScratchSize)
		if err != nil {
			dispatchErr = errors.Wrapf(err, "tile %d scratch", tile.Index)
			break
		}

		results[i].Started = true
		started++
		res := &results[i]
		g.Go(func() error {
			buf, err := e.detector.Detect(gctx, view, scratch)
			if err != nil {
				return errors.Wrapf(err, "detect tile %d", res.Tile.Index)
			}
			rects, err := detector.ParseNative(buf)
			if err != nil {
				return errors.Wrapf(err, "parse tile %d", res.Tile.Index)
			}
			res.Rects = rects
			return nil
		})
	}
	e.setState(Running)

	err := g.Wait()
	e.setState(Joined)
	e.log.WithFields(logrus.Fields{
		"tiles":   len(layout.Tiles),
		"started": started,
	}).Debug("detection pass joined")

	if dispatchErr != nil {
		return nil, dispatchErr
	}
	if err != nil {
		return nil, err
	}
	e.setState(Collected)
	return results, nil
}

// arena returns the arena of tile slot i, creating it on first use.
func (e *Executor) arena(i int) (*arena.Arena, error) {
	for len(e.arenas) <= i {
		a, err := arena.New(e.arenaSize, e.arenaOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "create tile arena")
		}
		e.arenas = append(e.arenas, a)
	}
	return e.arenas[i], nil
}

// Arenas returns the number of tile arenas currently held.
func (e *Executor) Arenas() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.arenas)
}

// Close releases every arena. The executor must not be used afterwards.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.arenas {
		a.Destroy()
	}
	e.arenas = nil
	e.setState(Idle)
}
