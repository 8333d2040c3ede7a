package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable marks a capability that is not installed or reachable.
	// Stages degrade and continue when they see this marker.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderTimeout marks a provider call that exceeded its deadline.
	// Treated identically to ErrProviderUnavailable for that call.
	ErrProviderTimeout = errors.New("provider timeout")
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Degradable reports whether an error should degrade a stage instead of
// failing the whole pipeline. Unavailable and timed-out providers never abort
// sibling branches.
func Degradable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
