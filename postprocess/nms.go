// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-censor/images"
)

// DefaultIoUThreshold is the overlap above which the weaker detection is dropped.
const DefaultIoUThreshold = 0.3

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap threshold for suppression.
	IoUThreshold float32
}

// SortByConfidence sorts rects by descending confidence. The sort is stable so
// equal scores keep their original (tile) order.
func SortByConfidence(rects []images.Rect) {
	sort.SliceStable(rects, func(i, j int) bool {
		return rects[i].Confidence > rects[j].Confidence
	})
}

// ApplyNMS sorts rects by confidence and performs greedy pairwise
// Non-Maximum Suppression.
//
// For every pair (i, j), i < j, of rects not yet removed, the later rect is
// removed when their IoU exceeds the threshold. Since the list is sorted, the
// later rect never has a higher confidence, and on a tie the second-indexed one
// goes. This is O(n²), which is fine for the few hundred candidates a frame
// produces.
//
// Arguments:
//   - rects: Candidate detections in full-image coordinates. Sorted in place.
//   - config: NMS configuration.
//
// Returns:
//   - Surviving rects in descending confidence order. If no rects are provided, returns nil.
func ApplyNMS(rects []images.Rect, config *NMSConfig) []images.Rect {
	n := len(rects)
	if n == 0 {
		return nil
	}

	SortByConfidence(rects)

	removed := make([]bool, n)
	filtered := make([]images.Rect, 0, n)

	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}

		anchor := rects[i]
		filtered = append(filtered, anchor)

		for j := i + 1; j < n; j++ {
			if removed[j] {
				continue
			}

			// Suppress if IoU exceeds threshold
			if images.CalculateIoU(anchor, rects[j]) > config.IoUThreshold {
				removed[j] = true
			}
		}
	}

	return filtered
}
