package handtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"screenreview/internal/gestures"
	"screenreview/internal/services"
)

// Service invokes the hand tracking binary. The helper receives frame paths
// as arguments and prints one JSON detection per frame on stdout.
type Service struct {
	binary       string
	outputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a detector around the configured helper binary.
func NewService(binary string) *Service {
	if binary == "" {
		binary = "screenreview-handtrack"
	}
	return &Service{binary: binary}
}

// WithOutputRunner sets a custom command runner (for testing).
func (s *Service) WithOutputRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.outputRunner = runner
}

// Available verifies the helper binary resolves on PATH.
func (s *Service) Available() error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return services.Wrap(services.ErrProviderUnavailable, "gestures", "lookup", s.binary+" not found", err)
	}
	return nil
}

// helperDetection is the helper's per-frame output line.
type helperDetection struct {
	Frame      string  `json:"frame"`
	Pointing   bool    `json:"pointing"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Detect runs detection over the given frames and returns one detection per
// input path, in input order. Frames the helper did not report come back as
// non-pointing detections.
func (s *Service) Detect(ctx context.Context, framePaths []string) ([]gestures.Detection, error) {
	if len(framePaths) == 0 {
		return nil, nil
	}
	if s.outputRunner == nil {
		if err := s.Available(); err != nil {
			return nil, err
		}
	}

	args := append([]string{"--json"}, framePaths...)
	output, err := s.output(ctx, s.binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "gestures", "detect", "hand tracking failed", err)
	}

	var reported []helperDetection
	if err := json.Unmarshal(output, &reported); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "gestures", "detect", "parse hand tracking output", err)
	}
	byFrame := make(map[string]helperDetection, len(reported))
	for _, d := range reported {
		byFrame[d.Frame] = d
	}

	out := make([]gestures.Detection, len(framePaths))
	for i, path := range framePaths {
		if d, ok := byFrame[path]; ok {
			out[i] = gestures.Detection{
				Pointing:   d.Pointing,
				X:          d.X,
				Y:          d.Y,
				Confidence: d.Confidence,
				Width:      d.Width,
				Height:     d.Height,
			}
		}
	}
	return out, nil
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
