package correlate

import (
	"reflect"
	"testing"

	"screenreview/internal/gestures"
	"screenreview/internal/regionocr"
	"screenreview/internal/transcribe"
	"screenreview/internal/triggers"
)

func seg(start, end float64, text, primary string) triggers.AnnotatedSegment {
	s := triggers.AnnotatedSegment{Segment: transcribe.Segment{Start: start, End: end, Text: text}}
	if primary != "" {
		s.Primary = primary
		s.Matches = []triggers.Match{{Category: primary, Keyword: primary}}
	}
	return s
}

func TestAnnotationsGestureMatchesSegment(t *testing.T) {
	events := []gestures.Event{{Timestamp: 5.2, Screenshot: gestures.Point{X: 400, Y: 300}}}
	regions := []regionocr.Region{{
		Index:     0,
		ImagePath: "region_000.png",
		Results:   []regionocr.Result{{Text: "Submit"}},
	}}
	segments := []triggers.AnnotatedSegment{seg(4.0, 6.0, "Der Button ist kaputt", "bug")}

	anns := Annotations(events, regions, segments, 2.0)
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	a := anns[0]
	if a.Index != 1 {
		t.Fatalf("index = %d, want 1", a.Index)
	}
	if a.Timestamp == nil || *a.Timestamp != 5.2 {
		t.Fatalf("timestamp = %v", a.Timestamp)
	}
	if a.Position == nil || *a.Position != (gestures.Point{X: 400, Y: 300}) {
		t.Fatalf("position = %v", a.Position)
	}
	if a.OCRText == nil || *a.OCRText != "Submit" {
		t.Fatalf("ocr_text = %v", a.OCRText)
	}
	if a.SpokenText == nil || *a.SpokenText != "Der Button ist kaputt" {
		t.Fatalf("spoken_text = %v", a.SpokenText)
	}
	if a.TriggerType == nil || *a.TriggerType != "bug" {
		t.Fatalf("trigger_type = %v", a.TriggerType)
	}
	if a.RegionImage == nil || *a.RegionImage != "region_000.png" {
		t.Fatalf("region_image = %v", a.RegionImage)
	}
}

func TestAnnotationsToleranceWindowIsInclusive(t *testing.T) {
	segments := []triggers.AnnotatedSegment{seg(4.0, 6.0, "text", "")}

	// 2.0s before segment start is still in range, 2.01s is not.
	in := Annotations([]gestures.Event{{Timestamp: 2.0}}, nil, segments, 2.0)
	if in[0].SpokenText == nil {
		t.Fatal("gesture at exact tolerance boundary did not match")
	}
	out := Annotations([]gestures.Event{{Timestamp: 1.99}}, nil, segments, 2.0)
	if out[0].SpokenText != nil {
		t.Fatal("gesture outside tolerance matched")
	}
}

func TestAnnotationsTieBreaksByMidpointThenStart(t *testing.T) {
	segments := []triggers.AnnotatedSegment{
		seg(0.0, 4.0, "far midpoint", ""),
		seg(4.0, 6.0, "near midpoint", ""),
	}
	anns := Annotations([]gestures.Event{{Timestamp: 4.5}}, nil, segments, 2.0)
	// Gesture annotation sorts after the unmatched segment at 0.0.
	var gesture *Annotation
	for i := range anns {
		if anns[i].Position != nil {
			gesture = &anns[i]
		}
	}
	if gesture == nil || gesture.SpokenText == nil || *gesture.SpokenText != "near midpoint" {
		t.Fatalf("midpoint tie-break failed: %+v", gesture)
	}

	// Equal midpoint distance prefers the earlier start.
	equal := []triggers.AnnotatedSegment{
		seg(6.0, 8.0, "later", ""),
		seg(2.0, 4.0, "earlier", ""),
	}
	anns = Annotations([]gestures.Event{{Timestamp: 5.0}}, nil, equal, 2.0)
	for i := range anns {
		if anns[i].Position != nil && (anns[i].SpokenText == nil || *anns[i].SpokenText != "earlier") {
			t.Fatalf("start tie-break failed: %+v", anns[i])
		}
	}
}

func TestAnnotationsUnmatchedSegmentsPreserved(t *testing.T) {
	events := []gestures.Event{{Timestamp: 1.0, Screenshot: gestures.Point{X: 10, Y: 10}}}
	segments := []triggers.AnnotatedSegment{
		seg(0.5, 1.5, "matched", ""),
		seg(20.0, 22.0, "orphan remark", "remove"),
	}
	anns := Annotations(events, nil, segments, 2.0)
	if len(anns) != 2 {
		t.Fatalf("got %d annotations, want 2", len(anns))
	}
	orphan := anns[1]
	if orphan.Position != nil || orphan.OCRText != nil {
		t.Fatalf("orphan annotation carries gesture fields: %+v", orphan)
	}
	if orphan.Timestamp == nil || *orphan.Timestamp != 20.0 {
		t.Fatalf("orphan timestamp = %v", orphan.Timestamp)
	}
	if orphan.TriggerType == nil || *orphan.TriggerType != "remove" {
		t.Fatalf("orphan trigger = %v", orphan.TriggerType)
	}
}

func TestAnnotationsUntimedSegmentsSortLast(t *testing.T) {
	segments := []triggers.AnnotatedSegment{
		seg(0, 0, "no timing information", ""),
		seg(3.0, 4.0, "timed", ""),
	}
	anns := Annotations(nil, nil, segments, 2.0)
	if len(anns) != 2 {
		t.Fatalf("got %d annotations, want 2", len(anns))
	}
	if anns[0].Timestamp == nil || anns[1].Timestamp != nil {
		t.Fatalf("untimed annotation not sorted last: %+v", anns)
	}
	if anns[0].Index != 1 || anns[1].Index != 2 {
		t.Fatalf("indexes not sequential: %+v", anns)
	}
}

func TestAnnotationsDeterministic(t *testing.T) {
	events := []gestures.Event{
		{Timestamp: 5.0, Screenshot: gestures.Point{X: 1, Y: 1}},
		{Timestamp: 2.0, Screenshot: gestures.Point{X: 2, Y: 2}},
	}
	segments := []triggers.AnnotatedSegment{
		seg(1.0, 3.0, "a", "bug"),
		seg(4.0, 6.0, "b", "ok"),
		seg(10.0, 11.0, "c", ""),
	}
	first := Annotations(events, nil, segments, 2.0)
	second := Annotations(events, nil, segments, 2.0)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same inputs produced different documents")
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Timestamp != nil && first[i].Timestamp != nil && *first[i-1].Timestamp > *first[i].Timestamp {
			t.Fatalf("annotations out of order: %+v", first)
		}
	}
}
