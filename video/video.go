// Package video - frame-by-frame decode and encode of video files.
package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-censor/codec"
	"github.com/nvr-ai/go-censor/images"
)

// DefaultMaxFrames bounds how many frames Decode keeps in memory.
const DefaultMaxFrames = 1000

// DefaultFourCC is the codec used by Encode when none is given.
const DefaultFourCC = "mp4v"

// ErrFrameLimit is returned when a video has more frames than allowed.
var ErrFrameLimit = errors.New("video exceeds frame limit")

// Video is a decoded clip. Frames are BGR, as decoded by OpenCV.
type Video struct {
	Frames []*images.Image
	Width  int
	Height int
	FPS    float64
}

// Decode reads every frame of the file at path.
//
// Arguments:
//   - path: The video file.
//   - maxFrames: Upper bound on the number of frames; 0 selects DefaultMaxFrames.
//
// Returns:
//   - *Video: The decoded frames.
//   - error: ErrFrameLimit when the clip is longer than maxFrames, or an I/O error.
func Decode(path string, maxFrames int) (*Video, error) {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer vc.Close()

	v := &Video{FPS: vc.Get(gocv.VideoCaptureFPS)}
	mat := gocv.NewMat()
	defer mat.Close()

	for vc.Read(&mat) {
		if mat.Empty() {
			break
		}
		if len(v.Frames) == maxFrames {
			return nil, errors.Wrapf(ErrFrameLimit, "%s has more than %d frames", path, maxFrames)
		}
		frame, err := codec.MatToImage(mat)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", len(v.Frames))
		}
		v.Frames = append(v.Frames, frame)
	}
	if len(v.Frames) == 0 {
		return nil, errors.Errorf("no frames decoded from %s", path)
	}

	v.Width, v.Height = v.Frames[0].Width, v.Frames[0].Height
	if v.FPS <= 0 {
		v.FPS = 25
	}
	return v, nil
}

// Encode writes v to path using the given FourCC ("" for DefaultFourCC).
func Encode(path string, v *Video, fourcc string) error {
	if v == nil || len(v.Frames) == 0 {
		return errors.New("no frames to encode")
	}
	if fourcc == "" {
		fourcc = DefaultFourCC
	}

	w, err := gocv.VideoWriterFile(path, fourcc, v.FPS, v.Width, v.Height, true)
	if err != nil {
		return errors.Wrapf(err, "failed to open writer for %s", path)
	}
	defer w.Close()

	for i, frame := range v.Frames {
		if frame.Width != v.Width || frame.Height != v.Height {
			return errors.Errorf("frame %d is %dx%d, video is %dx%d", i, frame.Width, frame.Height, v.Width, v.Height)
		}
		mat, err := codec.ImageToMat(frame)
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		err = w.Write(mat)
		mat.Close()
		if err != nil {
			return errors.Wrapf(err, "failed to write frame %d", i)
		}
	}
	return nil
}
