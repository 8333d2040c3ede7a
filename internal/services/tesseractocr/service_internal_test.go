package tesseractocr

import (
	"context"
	"strings"
	"testing"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t20\t50\t18\t95.1\tJetzt\n" +
	"5\t1\t1\t1\t1\t2\t65\t20\t70\t18\t91.3\tkaufen\n" +
	"5\t1\t1\t1\t2\t1\t10\t50\t40\t16\t88.0\tZurück\n" +
	"5\t1\t1\t1\t2\t2\t55\t50\t30\t16\t-1\t\n"

func TestParseTSVMergesWordsIntoLines(t *testing.T) {
	results := parseTSV(sampleTSV)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	first := results[0]
	if first.Text != "Jetzt kaufen" {
		t.Fatalf("line text = %q", first.Text)
	}
	if first.BBox.X1 != 10 || first.BBox.Y1 != 20 || first.BBox.X2 != 135 || first.BBox.Y2 != 38 {
		t.Fatalf("union bbox = %+v", first.BBox)
	}
	wantConf := (95.1 + 91.3) / 2 / 100
	if diff := first.Confidence - wantConf; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %f, want %f", first.Confidence, wantConf)
	}
	if results[1].Text != "Zurück" {
		t.Fatalf("second line = %q", results[1].Text)
	}
}

func TestParseTSVEmptyOutput(t *testing.T) {
	if results := parseTSV("level\tpage_num\n"); results != nil {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestRecognizePassesLanguages(t *testing.T) {
	s := NewService("tesseract", []string{"deu", "eng"})
	var captured []string
	s.WithOutputRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		captured = args
		return []byte(sampleTSV), nil
	})
	results, err := s.Recognize(context.Background(), "shot.png")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "-l deu+eng") {
		t.Fatalf("language flag missing from args: %q", joined)
	}
}
