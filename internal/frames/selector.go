package frames

import "math"

// Frame is one extracted video frame with its timestamp in the recording.
type Frame struct {
	Index     int     `json:"index"`
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
}

// Selection reasons, in the order they are evaluated.
const (
	ReasonFirst     = "first"
	ReasonLast      = "last"
	ReasonGesture   = "gesture"
	ReasonAudio     = "audio"
	ReasonPixelDiff = "pixel_diff"
	ReasonTrigger   = "trigger"
)

// Selected pairs a kept frame with the reasons it survived selection.
type Selected struct {
	Frame   Frame    `json:"frame"`
	Reasons []string `json:"reasons"`
}

// Signals carries the per-frame evidence the selector scores. Slices are
// indexed like the frame slice; shorter or nil slices read as no signal.
// TriggerTimes lists recording timestamps of spoken trigger words.
type Signals struct {
	GestureFlags []bool
	AudioLevels  []float64
	TriggerTimes []float64
	Differ       Differ
}

// Selector applies the keep/thin policy. Thresholds mirror the configuration
// section of the same names.
type Selector struct {
	MaxFrames          int
	AudioThreshold     float64
	PixelDiffThreshold float64
	TriggerWindow      float64
}

// Select returns the kept frames in temporal order. The first and last frame
// are always kept. When more frames qualify than MaxFrames allows, the kept
// set is thinned to evenly spaced picks with the endpoints preserved, so the
// same input always yields the same output.
func (s Selector) Select(all []Frame, sig Signals) ([]Selected, error) {
	if len(all) == 0 {
		return nil, nil
	}

	kept := make([]Selected, 0, len(all))
	lastKeptPath := ""
	for i, frame := range all {
		var reasons []string
		if i == 0 {
			reasons = append(reasons, ReasonFirst)
		}
		if i == len(all)-1 {
			reasons = append(reasons, ReasonLast)
		}
		if i < len(sig.GestureFlags) && sig.GestureFlags[i] {
			reasons = append(reasons, ReasonGesture)
		}
		if i < len(sig.AudioLevels) && sig.AudioLevels[i] > s.AudioThreshold {
			reasons = append(reasons, ReasonAudio)
		}
		if sig.Differ != nil && lastKeptPath != "" {
			ratio, err := sig.Differ.Diff(lastKeptPath, frame.Path)
			if err != nil {
				return nil, err
			}
			if ratio > s.PixelDiffThreshold {
				reasons = append(reasons, ReasonPixelDiff)
			}
		}
		if s.nearTrigger(frame.Timestamp, sig.TriggerTimes) {
			reasons = append(reasons, ReasonTrigger)
		}
		if len(reasons) > 0 {
			kept = append(kept, Selected{Frame: frame, Reasons: reasons})
			lastKeptPath = frame.Path
		}
	}

	if s.MaxFrames > 0 && len(kept) > s.MaxFrames {
		kept = thin(kept, s.MaxFrames)
	}
	return kept, nil
}

func (s Selector) nearTrigger(ts float64, triggers []float64) bool {
	if s.TriggerWindow <= 0 {
		return false
	}
	for _, t := range triggers {
		if math.Abs(ts-t) <= s.TriggerWindow {
			return true
		}
	}
	return false
}

// thin reduces kept to max entries by evenly spaced index picks over the kept
// list. Endpoints map to themselves, so first and last always survive.
func thin(kept []Selected, max int) []Selected {
	if max >= len(kept) {
		return kept
	}
	if max == 1 {
		return kept[:1]
	}
	out := make([]Selected, 0, max)
	prev := -1
	for i := 0; i < max; i++ {
		pos := int(math.Round(float64(i) * float64(len(kept)-1) / float64(max-1)))
		if pos == prev {
			continue
		}
		out = append(out, kept[pos])
		prev = pos
	}
	return out
}
