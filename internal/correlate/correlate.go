package correlate

import (
	"math"
	"sort"
	"strings"

	"screenreview/internal/gestures"
	"screenreview/internal/regionocr"
	"screenreview/internal/triggers"
)

// Annotation is one entry of the final screen document. Pointer fields are
// null in the JSON artifact when the branch that produces them had nothing
// to contribute.
type Annotation struct {
	Index       int             `json:"index"`
	Timestamp   *float64        `json:"timestamp"`
	Position    *gestures.Point `json:"position"`
	OCRText     *string         `json:"ocr_text"`
	SpokenText  *string         `json:"spoken_text"`
	TriggerType *string         `json:"trigger_type"`
	RegionImage *string         `json:"region_image"`
}

// Annotations merges gestures and transcript segments within the tolerance
// window. Every gesture yields one annotation; every segment not claimed by
// a gesture yields one more. The result is ordered by timestamp with untimed
// entries last, then numbered from one. The merge is pure, so rerunning it
// over the same inputs reproduces the same document.
func Annotations(events []gestures.Event, regions []regionocr.Region, segments []triggers.AnnotatedSegment, toleranceSeconds float64) []Annotation {
	regionByIndex := make(map[int]regionocr.Region, len(regions))
	for _, r := range regions {
		regionByIndex[r.Index] = r
	}

	matched := make([]bool, len(segments))
	var out []Annotation

	for i, ev := range events {
		ann := Annotation{
			Timestamp: ptr(ev.Timestamp),
			Position:  ptr(ev.Screenshot),
		}
		if region, ok := regionByIndex[i]; ok {
			if text := regionText(region); text != "" {
				ann.OCRText = ptr(text)
			}
			if region.ImagePath != "" {
				ann.RegionImage = ptr(region.ImagePath)
			}
		}
		if j := bestSegment(ev.Timestamp, segments, toleranceSeconds); j >= 0 {
			matched[j] = true
			fillSegment(&ann, segments[j])
		}
		out = append(out, ann)
	}

	for j, seg := range segments {
		if matched[j] {
			continue
		}
		ann := Annotation{}
		if seg.Timed() {
			ann.Timestamp = ptr(seg.Start)
		}
		fillSegment(&ann, seg)
		out = append(out, ann)
	}

	sort.SliceStable(out, func(a, b int) bool {
		ta, tb := out[a].Timestamp, out[b].Timestamp
		switch {
		case ta == nil:
			return false
		case tb == nil:
			return true
		default:
			return *ta < *tb
		}
	})
	for i := range out {
		out[i].Index = i + 1
	}
	return out
}

// bestSegment picks the segment whose span, widened by the tolerance on both
// sides, contains ts. Ties go to the smallest midpoint distance, then to the
// earliest start. Returns -1 when nothing is in range.
func bestSegment(ts float64, segments []triggers.AnnotatedSegment, tolerance float64) int {
	best := -1
	bestDist := math.Inf(1)
	for j, seg := range segments {
		if !seg.Timed() {
			continue
		}
		if ts < seg.Start-tolerance || ts > seg.End+tolerance {
			continue
		}
		dist := math.Abs((seg.Start+seg.End)/2 - ts)
		if dist < bestDist || (dist == bestDist && best >= 0 && seg.Start < segments[best].Start) {
			best = j
			bestDist = dist
		}
	}
	return best
}

func fillSegment(ann *Annotation, seg triggers.AnnotatedSegment) {
	if text := strings.TrimSpace(seg.Text); text != "" {
		ann.SpokenText = ptr(text)
	}
	if seg.Primary != "" {
		ann.TriggerType = ptr(seg.Primary)
	}
}

func regionText(region regionocr.Region) string {
	parts := make([]string, 0, len(region.Results))
	for _, r := range region.Results {
		if text := strings.TrimSpace(r.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func ptr[T any](v T) *T {
	return &v
}
