package config

const (
	defaultDataDir              = "~/.local/share/screenreview"
	defaultLogDir               = "~/.local/share/screenreview/logs"
	defaultExtractionDir        = ".extraction"
	defaultExtractionFPS        = 1.0
	defaultMaxFramesPerScreen   = 10
	defaultAudioThreshold       = 0.2
	defaultPixelDiffThreshold   = 0.1
	defaultTriggerWindowSeconds = 0.6
	defaultExtractionTimeout    = 300
	defaultGestureBinary        = "screenreview-handtrack"
	defaultGestureSensitivity   = 0.8
	defaultGestureRegionSize    = 200
	defaultOCRBinary            = "tesseract"
	defaultSpeechProvider       = "whisperx"
	defaultSpeechLanguage       = "de"
	defaultWhisperXModel        = "large-v3-turbo"
	defaultCloudBaseURL         = "https://api.openai.com/v1"
	defaultCloudModel           = "gpt-4o-mini-transcribe"
	defaultSpeechTimeout        = 600
	defaultAnalysisBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel        = "meta-llama/llama-3.2-90b-vision-instruct"
	defaultAnalysisTitle        = "ScreenReview Analyzer"
	defaultAnalysisTimeout      = 60
	defaultToleranceSeconds     = 2.0
	defaultBudgetLimitEuro      = 1.0
	defaultWarningAtEuro        = 0.8
	defaultMaxConcurrentScreens = 2
	defaultStageTimeoutSeconds  = 300
	defaultQueuePollInterval    = 2
	defaultErrorRetryInterval   = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			ExtractionDir: defaultExtractionDir,
		},
		Frames: Frames{
			ExtractionFPS:        defaultExtractionFPS,
			MaxPerScreen:         defaultMaxFramesPerScreen,
			AudioThreshold:       defaultAudioThreshold,
			PixelDiffThreshold:   defaultPixelDiffThreshold,
			TriggerWindowSeconds: defaultTriggerWindowSeconds,
			ExtractionTimeout:    defaultExtractionTimeout,
		},
		Gestures: Gestures{
			Enabled:     true,
			Binary:      defaultGestureBinary,
			Sensitivity: defaultGestureSensitivity,
			RegionSize:  defaultGestureRegionSize,
		},
		OCR: OCR{
			Enabled:   true,
			Binary:    defaultOCRBinary,
			Languages: []string{"deu", "eng"},
		},
		Speech: Speech{
			Provider:       defaultSpeechProvider,
			Language:       defaultSpeechLanguage,
			WhisperXModel:  defaultWhisperXModel,
			CloudBaseURL:   defaultCloudBaseURL,
			CloudModel:     defaultCloudModel,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Analysis: Analysis{
			Enabled:        false,
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			Title:          defaultAnalysisTitle,
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Correlation: Correlation{
			ToleranceSeconds: defaultToleranceSeconds,
		},
		Cost: Cost{
			BudgetLimitEuro: defaultBudgetLimitEuro,
			WarningAtEuro:   defaultWarningAtEuro,
			AutoStopAtLimit: true,
		},
		Workflow: Workflow{
			MaxConcurrentScreens: defaultMaxConcurrentScreens,
			StageTimeoutSeconds:  defaultStageTimeoutSeconds,
			QueuePollInterval:    defaultQueuePollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Screens:        true,
			Queue:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
