package video

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-censor/images"
)

func clip(t *testing.T, n, w, h int) *Video {
	t.Helper()
	v := &Video{Width: w, Height: h, FPS: 10}
	for i := 0; i < n; i++ {
		f, err := images.New(w, h, 3)
		require.NoError(t, err)
		f.Order = images.OrderBGR
		for p := 0; p < len(f.Pix); p += 3 {
			f.Pix[p] = uint8(i * 20)
		}
		v.Frames = append(v.Frames, f)
	}
	return v
}

func TestEncodeDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	require.NoError(t, Encode(path, clip(t, 6, 64, 48), "MJPG"))

	v, err := Decode(path, 0)
	require.NoError(t, err)
	assert.Len(t, v.Frames, 6)
	assert.Equal(t, 64, v.Width)
	assert.Equal(t, 48, v.Height)
	assert.InDelta(t, 10, v.FPS, 0.01)
	assert.Equal(t, images.OrderBGR, v.Frames[0].Order)
}

func TestDecodeFrameLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	require.NoError(t, Encode(path, clip(t, 5, 32, 32), "MJPG"))

	_, err := Decode(path, 3)
	assert.ErrorIs(t, err, ErrFrameLimit)
}

func TestEncodeRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.avi")
	assert.Error(t, Encode(path, nil, ""))

	v := clip(t, 2, 32, 32)
	v.Frames[1], _ = images.New(16, 16, 3)
	assert.Error(t, Encode(path, v, "MJPG"))
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.mp4"), 0)
	assert.Error(t, err)
}
