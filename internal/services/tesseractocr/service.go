package tesseractocr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"screenreview/internal/regionocr"
	"screenreview/internal/services"
)

// Service runs tesseract in TSV mode and merges word rows into lines.
type Service struct {
	binary       string
	languages    []string
	outputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates an OCR engine. Languages are tesseract codes like
// "deu" and "eng"; an empty list uses tesseract's default.
func NewService(binary string, languages []string) *Service {
	if binary == "" {
		binary = "tesseract"
	}
	return &Service{binary: binary, languages: languages}
}

// WithOutputRunner sets a custom command runner (for testing).
func (s *Service) WithOutputRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.outputRunner = runner
}

// Available verifies the tesseract binary resolves on PATH.
func (s *Service) Available() error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return services.Wrap(services.ErrProviderUnavailable, "ocr", "lookup", s.binary+" not found", err)
	}
	return nil
}

// Recognize runs OCR over one image and returns the recognized lines.
func (s *Service) Recognize(ctx context.Context, imagePath string) ([]regionocr.Result, error) {
	if s.outputRunner == nil {
		if err := s.Available(); err != nil {
			return nil, err
		}
	}

	args := []string{imagePath, "stdout"}
	if len(s.languages) > 0 {
		args = append(args, "-l", strings.Join(s.languages, "+"))
	}
	args = append(args, "tsv")

	output, err := s.output(ctx, s.binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ocr", "recognize", "tesseract failed", err)
	}
	return parseTSV(string(output)), nil
}

// wordRow is one word-level row of tesseract TSV output.
type wordRow struct {
	block, par, line       int
	left, top, width, high int
	conf                   float64
	text                   string
}

// parseTSV merges word rows sharing a block, paragraph, and line into one
// result with the union bounding box and the mean confidence.
func parseTSV(output string) []regionocr.Result {
	var rows []wordRow
	for i, line := range strings.Split(output, "\n") {
		if i == 0 {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			continue
		}
		level, _ := strconv.Atoi(fields[0])
		if level != 5 {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}
		row := wordRow{conf: conf, text: text}
		row.block, _ = strconv.Atoi(fields[2])
		row.par, _ = strconv.Atoi(fields[3])
		row.line, _ = strconv.Atoi(fields[4])
		row.left, _ = strconv.Atoi(fields[6])
		row.top, _ = strconv.Atoi(fields[7])
		row.width, _ = strconv.Atoi(fields[8])
		row.high, _ = strconv.Atoi(fields[9])
		rows = append(rows, row)
	}

	var results []regionocr.Result
	var current []wordRow
	flush := func() {
		if len(current) == 0 {
			return
		}
		results = append(results, mergeLine(current))
		current = current[:0]
	}
	for _, row := range rows {
		if len(current) > 0 {
			prev := current[len(current)-1]
			if prev.block != row.block || prev.par != row.par || prev.line != row.line {
				flush()
			}
		}
		current = append(current, row)
	}
	flush()
	return results
}

func mergeLine(words []wordRow) regionocr.Result {
	box := regionocr.Box{
		X1: words[0].left,
		Y1: words[0].top,
		X2: words[0].left + words[0].width,
		Y2: words[0].top + words[0].high,
	}
	parts := make([]string, 0, len(words))
	var confSum float64
	for _, w := range words {
		parts = append(parts, w.text)
		confSum += w.conf
		if w.left < box.X1 {
			box.X1 = w.left
		}
		if w.top < box.Y1 {
			box.Y1 = w.top
		}
		if w.left+w.width > box.X2 {
			box.X2 = w.left + w.width
		}
		if w.top+w.high > box.Y2 {
			box.Y2 = w.top + w.high
		}
	}
	return regionocr.Result{
		Text:       strings.Join(parts, " "),
		BBox:       box,
		Confidence: confSum / float64(len(words)) / 100,
	}
}

func (s *Service) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.outputRunner != nil {
		return s.outputRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return output, nil
}
