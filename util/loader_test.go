package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"frame-10.jpg", "frame-2.PNG", "frame-1.jpeg", "cover.webp", "notes.txt", "abc.png",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	files, err := ListImageFiles(dir, []string{".jpg", ".jpeg", ".png", ".webp"})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"frame-1.jpeg", "frame-2.PNG", "frame-10.jpg", "abc.png", "cover.webp"}, names)
	assert.Equal(t, 10, files[2].Frame)
	assert.Equal(t, -1, files[3].Frame)
}

func TestListImageFilesMissingDir(t *testing.T) {
	_, err := ListImageFiles(filepath.Join(t.TempDir(), "nope"), []string{".jpg"})
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	assert.Equal(t, 42, frameNumber("frame-0042"))
	assert.Equal(t, 7, frameNumber("7"))
	assert.Equal(t, -1, frameNumber("cover"))
	assert.Equal(t, -1, frameNumber(""))
}
