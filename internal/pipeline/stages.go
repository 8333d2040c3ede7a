package pipeline

// Stage identifies one step of the per-screen pipeline.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageSelect     Stage = "select"
	StageGestures   Stage = "gestures"
	StageOCR        Stage = "ocr"
	StageTranscribe Stage = "transcribe"
	StageTriggers   Stage = "triggers"
	StageCorrelate  Stage = "correlate"
	StageAnalyze    Stage = "analyze"
	StageExport     Stage = "export"
)

// stageOrder fixes the progress numbering reported to the queue.
var stageOrder = []Stage{
	StageExtract,
	StageSelect,
	StageGestures,
	StageOCR,
	StageTranscribe,
	StageTriggers,
	StageCorrelate,
	StageAnalyze,
	StageExport,
}

// StageCount is the number of pipeline stages.
func StageCount() int { return len(stageOrder) }

func stageIndex(stage Stage) int {
	for i, s := range stageOrder {
		if s == stage {
			return i + 1
		}
	}
	return 0
}

// Status is the outcome of one stage.
type Status string

const (
	// StatusSuccess means the stage produced its full output.
	StatusSuccess Status = "success"
	// StatusDegraded means the stage ran but lost part of its output.
	StatusDegraded Status = "degraded"
	// StatusSkipped means the stage did not run, by configuration or
	// because an input it depends on is missing.
	StatusSkipped Status = "skipped"
	// StatusAborted means the screen stopped at this stage.
	StatusAborted Status = "aborted"
)

// StageResult records how one stage ended.
type StageResult struct {
	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Event is one progress notification emitted while a screen is processed.
type Event struct {
	Screen  string
	Stage   Stage
	Index   int
	Total   int
	Status  Status
	Message string
}

// ProgressFunc receives progress events. Implementations must be safe for
// concurrent calls; both branches report while running.
type ProgressFunc func(Event)
