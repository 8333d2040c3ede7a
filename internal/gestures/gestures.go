package gestures

import "context"

// Point is a pixel position, origin top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is the raw per-frame output of the pointing detector. Width and
// Height are the webcam frame dimensions the coordinates refer to.
type Detection struct {
	Pointing   bool    `json:"pointing"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Detector runs pointing detection over extracted frames. Implementations
// return one detection per input path, in order.
type Detector interface {
	Detect(ctx context.Context, framePaths []string) ([]Detection, error)
}

// Event is one confirmed pointing gesture: where the reviewer pointed on the
// reference screenshot, and when.
type Event struct {
	Timestamp  float64 `json:"timestamp"`
	Webcam     Point   `json:"webcam_position"`
	Screenshot Point   `json:"screenshot_position"`
	Confidence float64 `json:"confidence"`
	FramePath  string  `json:"frame_path"`
}

// Mapper translates webcam coordinates onto the reference screenshot.
type Mapper struct {
	ScreenshotW int
	ScreenshotH int
}

// Map scales a detection's webcam position into screenshot space and clamps
// it to the screenshot bounds. Detections from a zero-sized webcam frame map
// to the origin.
func (m Mapper) Map(d Detection) Point {
	if d.Width <= 0 || d.Height <= 0 || m.ScreenshotW <= 0 || m.ScreenshotH <= 0 {
		return Point{}
	}
	p := Point{
		X: d.X * m.ScreenshotW / d.Width,
		Y: d.Y * m.ScreenshotH / d.Height,
	}
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > m.ScreenshotW-1 {
		p.X = m.ScreenshotW - 1
	}
	if p.Y > m.ScreenshotH-1 {
		p.Y = m.ScreenshotH - 1
	}
	return p
}

// Events builds gesture events from detections over selected frames. Frames
// without a pointing detection, or below minConfidence, produce no event.
func (m Mapper) Events(detections []Detection, timestamps []float64, framePaths []string, minConfidence float64) []Event {
	var events []Event
	for i, d := range detections {
		if !d.Pointing || d.Confidence < minConfidence {
			continue
		}
		ev := Event{
			Webcam:     Point{X: d.X, Y: d.Y},
			Screenshot: m.Map(d),
			Confidence: d.Confidence,
		}
		if i < len(timestamps) {
			ev.Timestamp = timestamps[i]
		}
		if i < len(framePaths) {
			ev.FramePath = framePaths[i]
		}
		events = append(events, ev)
	}
	return events
}
