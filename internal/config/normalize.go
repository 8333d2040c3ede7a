package config

import "strings"

// normalize expands paths and fills derived defaults after decoding.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.ExtractionDir) == "" {
		c.Paths.ExtractionDir = defaultExtractionDir
	}

	c.Speech.Provider = strings.ToLower(strings.TrimSpace(c.Speech.Provider))
	if c.Speech.Provider == "" {
		c.Speech.Provider = defaultSpeechProvider
	}
	c.Speech.Language = strings.ToLower(strings.TrimSpace(c.Speech.Language))
	if c.Speech.Language == "" {
		c.Speech.Language = defaultSpeechLanguage
	}

	if c.Workflow.MaxConcurrentScreens == 0 {
		c.Workflow.MaxConcurrentScreens = defaultMaxConcurrentScreens
	}
	if c.Workflow.StageTimeoutSeconds == 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Workflow.QueuePollInterval == 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval == 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}

	if c.Correlation.ToleranceSeconds == 0 {
		c.Correlation.ToleranceSeconds = defaultToleranceSeconds
	}
	if c.Gestures.RegionSize == 0 {
		c.Gestures.RegionSize = defaultGestureRegionSize
	}
	if c.Frames.ExtractionTimeout == 0 {
		c.Frames.ExtractionTimeout = defaultExtractionTimeout
	}
	if c.Speech.TimeoutSeconds == 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}
	if c.Analysis.TimeoutSeconds == 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeout
	}
	return nil
}
