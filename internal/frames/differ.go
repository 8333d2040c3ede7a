package frames

import (
	"fmt"
	"os"
)

// Differ measures how different two frame images are, as a 0..1 ratio.
type Differ interface {
	Diff(prevPath, nextPath string) (float64, error)
}

// ByteDiffer compares the raw encoded bytes of two frames. Extracted frames
// share encoder settings, so byte distance tracks visual change closely
// enough for a keep/drop decision without decoding the images.
type ByteDiffer struct{}

func (ByteDiffer) Diff(prevPath, nextPath string) (float64, error) {
	prev, err := os.ReadFile(prevPath)
	if err != nil {
		return 0, fmt.Errorf("read frame %s: %w", prevPath, err)
	}
	next, err := os.ReadFile(nextPath)
	if err != nil {
		return 0, fmt.Errorf("read frame %s: %w", nextPath, err)
	}

	shorter, longer := len(prev), len(next)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 {
		return 0, nil
	}
	changed := longer - shorter
	for i := 0; i < shorter; i++ {
		if prev[i] != next[i] {
			changed++
		}
	}
	return float64(changed) / float64(longer), nil
}
