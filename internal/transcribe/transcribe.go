package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"screenreview/internal/logging"
	"screenreview/internal/services"
)

// GapMarker replaces spoken text in exported documents when no transcription
// provider produced a transcript.
const GapMarker = "[transcription unavailable]"

// Segment is one timestamped span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Timed reports whether the segment carries usable timing information.
func (s Segment) Timed() bool {
	return s.End > s.Start
}

// Result is a full transcription of one audio track.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Provider string    `json:"provider"`
}

// Provider transcribes a single audio file.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, language string) (Result, error)
}

// Chain tries providers in order and remembers the first one that works, so
// later screens in the same run skip the probe cost of dead providers.
type Chain struct {
	logger    *slog.Logger
	providers []Provider

	mu     sync.Mutex
	active Provider
}

func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{logger: logger, providers: providers}
}

// Transcribe runs the chain. The cached working provider is tried first; on
// failure the remaining providers are tried in declaration order. When every
// provider fails the chain returns an unavailable error so the caller can
// degrade with a gap marker instead of aborting the screen.
func (c *Chain) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	tried := make(map[string]bool)
	var errs []error

	attempt := func(p Provider) (Result, bool) {
		tried[p.Name()] = true
		result, err := p.Transcribe(ctx, audioPath, language)
		if err == nil {
			c.mu.Lock()
			c.active = p
			c.mu.Unlock()
			result.Provider = p.Name()
			return result, true
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			return Result{}, false
		}
		c.logger.Warn("transcription provider failed",
			logging.String("provider", p.Name()),
			logging.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		c.mu.Lock()
		if c.active == p {
			c.active = nil
		}
		c.mu.Unlock()
		return Result{}, false
	}

	if active != nil {
		if result, ok := attempt(active); ok {
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
	for _, p := range c.providers {
		if tried[p.Name()] {
			continue
		}
		if result, ok := attempt(p); ok {
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
	if len(c.providers) == 0 {
		return Result{}, services.Wrap(services.ErrProviderUnavailable, "transcribe", "chain", "no transcription provider configured", nil)
	}
	return Result{}, services.Wrap(services.ErrProviderUnavailable, "transcribe", "chain", "all transcription providers failed", errors.Join(errs...))
}

// FullText joins segment texts, trimming provider whitespace quirks.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
