package triggers

import (
	"testing"

	"screenreview/internal/transcribe"
)

func TestClassifyMatchesGermanAndEnglish(t *testing.T) {
	c := NewClassifier(nil)
	tests := []struct {
		text string
		want string
	}{
		{"Der Button ist kaputt", "bug"},
		{"this is broken", "bug"},
		{"Das Logo bitte größer machen", "resize"},
		{"passt so", "ok"},
		{"Den Banner bitte entfernen", "remove"},
		{"nur beschreibender text ohne schluesselwoerter", ""},
	}
	for _, tc := range tests {
		matches := c.Classify(tc.text)
		if tc.want == "" {
			if len(matches) != 0 {
				t.Fatalf("Classify(%q) = %v, want none", tc.text, matches)
			}
			continue
		}
		if len(matches) == 0 || matches[0].Category != tc.want {
			t.Fatalf("Classify(%q) = %v, want primary %q", tc.text, matches, tc.want)
		}
	}
}

func TestClassifyPriorityRanking(t *testing.T) {
	c := NewClassifier(nil)
	matches := c.Classify("das ist okay aber der button ist kaputt")
	if len(matches) < 2 {
		t.Fatalf("expected multiple matches, got %v", matches)
	}
	if matches[0].Category != "bug" {
		t.Fatalf("primary = %q, want bug over ok", matches[0].Category)
	}
}

func TestClassifyWordBoundaries(t *testing.T) {
	c := NewClassifier(nil)
	// "okay" inside a longer word must not match.
	if matches := c.Classify("das Karaokayfest beginnt"); len(matches) != 0 {
		t.Fatalf("substring matched across word boundary: %v", matches)
	}
	if matches := c.Classify("Fehler!"); len(matches) == 0 || matches[0].Category != "bug" {
		t.Fatalf("punctuation boundary not recognized: %v", matches)
	}
}

func TestClassifyCaseFolding(t *testing.T) {
	c := NewClassifier(nil)
	for _, text := range []string{"FEHLER im Formular", "GRÖSSER bitte"} {
		if matches := c.Classify(text); len(matches) == 0 {
			t.Fatalf("Classify(%q) found no match", text)
		}
	}
}

func TestClassifierOverridesAndCustomCategory(t *testing.T) {
	c := NewClassifier(map[string][]string{
		"bug":  {"explodiert"},
		"a11y": {"kontrast"},
	})
	if matches := c.Classify("alles explodiert hier"); len(matches) == 0 || matches[0].Category != "bug" {
		t.Fatalf("override not applied: %v", matches)
	}
	// Replaced list drops the defaults.
	if matches := c.Classify("der button ist kaputt"); len(matches) != 0 {
		t.Fatalf("default keyword survived override: %v", matches)
	}
	if matches := c.Classify("der kontrast ist zu schwach"); len(matches) == 0 || matches[0].Category != "a11y" {
		t.Fatalf("custom category not matched: %v", matches)
	}
}

func TestAnnotateBuildsEventsAtSegmentStart(t *testing.T) {
	c := NewClassifier(nil)
	segments := []transcribe.Segment{
		{Start: 1.0, End: 2.5, Text: "Der Button ist kaputt"},
		{Start: 3.0, End: 4.0, Text: "sonst alles beschrieben"},
	}
	annotated, events := c.Annotate(segments)
	if len(annotated) != 2 {
		t.Fatalf("got %d annotated segments, want 2", len(annotated))
	}
	if annotated[0].Primary != "bug" {
		t.Fatalf("segment 0 primary = %q", annotated[0].Primary)
	}
	if annotated[1].Primary != "" || len(annotated[1].Matches) != 0 {
		t.Fatalf("segment 1 should have no triggers: %+v", annotated[1])
	}
	if len(events) != 1 || events[0].Time != 1.0 || events[0].Category != "bug" {
		t.Fatalf("unexpected events %v", events)
	}
}
