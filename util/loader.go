package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile is one image found in a batch directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the number parsed from the trailing digits of the file name
	// ("frame-0042.jpg" -> 42), or -1 when there are none.
	Frame int
}

// ListImageFiles lists the images directly inside dir.
//
// Arguments:
//   - dir: Directory path containing image files.
//   - exts: Accepted extensions including the dot, matched case-insensitively.
//
// Returns:
//   - []ImageFile: Numbered files first in frame order, then the rest by name.
//   - error: Error if the directory cannot be read.
func ListImageFiles(dir string, exts []string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(e)] = true
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !accept[strings.ToLower(ext)] {
			continue
		}
		files = append(files, ImageFile{
			Path:  filepath.Join(dir, name),
			Frame: frameNumber(strings.TrimSuffix(name, ext)),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})
	return files, nil
}

// frameNumber parses the trailing run of digits of stem.
func frameNumber(stem string) int {
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	if i == len(stem) {
		return -1
	}
	n, err := strconv.Atoi(stem[i:])
	if err != nil {
		return -1
	}
	return n
}
