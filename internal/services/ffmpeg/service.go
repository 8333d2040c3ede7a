package ffmpeg

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"screenreview/internal/frames"
	"screenreview/internal/services"
)

// PCM decode settings for audio level analysis.
const (
	pcmSampleRate = 8000
	framePattern  = "frame_%05d.png"
)

// Service shells out to ffmpeg and ffprobe.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	commandRunner func(ctx context.Context, name string, args ...string) error
	outputRunner  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a service using the given binary names. Empty names
// fall back to the commands on PATH.
func NewService(ffmpegBinary, ffprobeBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Service{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithOutputRunner sets a custom runner for commands whose stdout is parsed
// (for testing).
func (s *Service) WithOutputRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.outputRunner = runner
}

// Available verifies both binaries resolve on PATH.
func (s *Service) Available() error {
	for _, name := range []string{s.ffmpegBinary, s.ffprobeBinary} {
		if _, err := exec.LookPath(name); err != nil {
			return services.Wrap(services.ErrProviderUnavailable, "extract", "lookup", name+" not found", err)
		}
	}
	return nil
}

// MediaInfo is the subset of probe output the pipeline needs.
type MediaInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
}

// ExtractFrames decodes the recording into numbered PNG frames at the given
// rate and returns them in order with their recording timestamps.
func (s *Service) ExtractFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]frames.Frame, error) {
	if fps <= 0 {
		return nil, services.Wrap(services.ErrValidation, "extract", "frames", "extraction fps must be positive", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "frames", "create frame directory", err)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-start_number", "0",
		"-y",
		filepath.Join(outDir, framePattern),
	}
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "frames", "ffmpeg frame extraction failed", err)
	}

	paths, err := filepath.Glob(filepath.Join(outDir, "frame_*.png"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extract", "frames", "list extracted frames", err)
	}
	sort.Strings(paths)
	out := make([]frames.Frame, len(paths))
	for i, path := range paths {
		out[i] = frames.Frame{Index: i, Path: path, Timestamp: float64(i) / fps}
	}
	return out, nil
}

// Probe returns duration and dimensions of a media file.
func (s *Service) Probe(ctx context.Context, path string) (MediaInfo, error) {
	var info MediaInfo
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	output, err := s.output(ctx, s.ffprobeBinary, args...)
	if err != nil {
		return info, services.Wrap(services.ErrExternalTool, "extract", "probe", "ffprobe failed", err)
	}

	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			Duration  string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return info, services.Wrap(services.ErrExternalTool, "extract", "probe", "parse ffprobe output", err)
	}
	info.DurationSeconds, _ = strconv.ParseFloat(payload.Format.Duration, 64)
	for _, stream := range payload.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
		}
		if info.DurationSeconds == 0 {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				info.DurationSeconds = d
			}
		}
	}
	return info, nil
}

// AudioSamples decodes the audio track to mono 16-bit PCM at a low sample
// rate, enough for amplitude analysis.
func (s *Service) AudioSamples(ctx context.Context, audioPath string) ([]int16, int, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-ac", "1",
		"-ar", strconv.Itoa(pcmSampleRate),
		"-f", "s16le",
		"-",
	}
	output, err := s.output(ctx, s.ffmpegBinary, args...)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "extract", "audio", "ffmpeg pcm decode failed", err)
	}
	samples := make([]int16, len(output)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(output[i*2:]))
	}
	return samples, pcmSampleRate, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
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
