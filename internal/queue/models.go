package queue

import "time"

// Status represents the lifecycle of a queued screen.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Item is one queued screen persisted in SQLite.
type Item struct {
	ID              int64
	SessionDir      string
	Route           string
	Viewport        string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressIndex   int
	ProgressTotal   int
	ProgressMessage string
	CostEuro        float64
	AnnotationCount int
	ReportPath      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Label returns the screen identifier used in logs and events.
func (i Item) Label() string {
	return i.Route + "/" + i.Viewport
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
