package yunet

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-censor/detector"
	"github.com/nvr-ai/go-censor/images"
)

func TestDecodeRow(t *testing.T) {
	row := make([]float32, faceColumns)
	row[0], row[1], row[2], row[3] = 12.7, 30.2, 40.6, 51.4
	row[faceColumns-1] = 0.934
	assert.Equal(t, images.Rect{X: 12, Y: 30, W: 41, H: 51, Confidence: 93}, decodeRow(row))
}

func TestNewRejectsMissingModel(t *testing.T) {
	_, err := New(DefaultConfig("missing-yunet.onnx"))
	assert.Error(t, err)
}

// TestDetectWithModel runs the real model when YUNET_MODEL points at one.
func TestDetectWithModel(t *testing.T) {
	model := os.Getenv("YUNET_MODEL")
	if model == "" {
		t.Skip("YUNET_MODEL not set")
	}
	cfg := DefaultConfig(model)
	cfg.Instances = 2
	d, err := New(cfg)
	require.NoError(t, err)
	defer d.Close()

	tile, err := images.New(160, 120, 3)
	require.NoError(t, err)
	buf, err := d.Detect(context.Background(), tile, make([]byte, detector.ScratchSize))
	require.NoError(t, err)
	rects, err := detector.ParseNative(buf)
	require.NoError(t, err)
	assert.Empty(t, rects)
}
