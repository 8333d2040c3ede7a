package costs

import (
	"sync"
	"time"
)

// Billing units.
const (
	UnitMinutes = "minutes"
	UnitKTokens = "ktokens"
)

// Price is the metered rate for one model.
type Price struct {
	Unit        string
	PerUnitEuro float64
}

// Euro rates per billing unit. Unlisted models record zero-cost entries so
// the ledger still shows what ran.
var prices = map[string]Price{
	"gpt-4o-mini-transcribe":                   {Unit: UnitMinutes, PerUnitEuro: 0.0028},
	"gpt-4o-transcribe":                        {Unit: UnitMinutes, PerUnitEuro: 0.0056},
	"whisper-1":                                {Unit: UnitMinutes, PerUnitEuro: 0.0056},
	"meta-llama/llama-3.2-90b-vision-instruct": {Unit: UnitKTokens, PerUnitEuro: 0.0008},
	"anthropic/claude-3.5-sonnet":              {Unit: UnitKTokens, PerUnitEuro: 0.0140},
}

// Entry is one recorded provider charge.
type Entry struct {
	Screen   string    `json:"screen"`
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Unit     string    `json:"unit"`
	Units    float64   `json:"units"`
	CostEuro float64   `json:"cost_euro"`
	At       time.Time `json:"at"`
}

// Ledger is the append-only charge log for one run. Safe for concurrent use
// by the worker pool.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	limit   float64
	warnAt  float64
}

// NewLedger creates a ledger with the given budget limit and warning
// threshold in euro. A zero limit disables budget enforcement.
func NewLedger(limitEuro, warnAtEuro float64) *Ledger {
	return &Ledger{limit: limitEuro, warnAt: warnAtEuro}
}

// Record appends a charge and returns the priced entry.
func (l *Ledger) Record(screen, provider, model string, units float64) Entry {
	price := prices[model]
	entry := Entry{
		Screen:   screen,
		Provider: provider,
		Model:    model,
		Unit:     price.Unit,
		Units:    units,
		CostEuro: units * price.PerUnitEuro,
		At:       time.Now().UTC(),
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry
}

// Total returns the run total in euro.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum float64
	for _, e := range l.entries {
		sum += e.CostEuro
	}
	return sum
}

// ScreenTotal returns the spend attributed to one screen.
func (l *Ledger) ScreenTotal(screen string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum float64
	for _, e := range l.entries {
		if e.Screen == screen {
			sum += e.CostEuro
		}
	}
	return sum
}

// Breakdown returns spend per model.
func (l *Ledger) Breakdown() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]float64)
	for _, e := range l.entries {
		out[e.Model] += e.CostEuro
	}
	return out
}

// Entries returns a copy of the charge log.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// OverBudget reports whether the run total reached the configured limit.
func (l *Ledger) OverBudget() bool {
	return l.limit > 0 && l.Total() >= l.limit
}

// ShouldWarn reports whether the run total crossed the warning threshold.
func (l *Ledger) ShouldWarn() bool {
	return l.warnAt > 0 && l.Total() >= l.warnAt
}

// Remaining returns the unspent budget, or zero when no limit is set.
func (l *Ledger) Remaining() float64 {
	if l.limit <= 0 {
		return 0
	}
	if rest := l.limit - l.Total(); rest > 0 {
		return rest
	}
	return 0
}

// Estimate predicts the cost of transcribing audioSeconds of audio with
// speechModel, plus an analysis call when analysisModel is non-empty.
// Analysis prompts for one screen run well under four thousand tokens.
func Estimate(audioSeconds float64, speechModel, analysisModel string) float64 {
	var total float64
	if p, ok := prices[speechModel]; ok && p.Unit == UnitMinutes {
		total += audioSeconds / 60 * p.PerUnitEuro
	}
	if analysisModel != "" {
		if p, ok := prices[analysisModel]; ok && p.Unit == UnitKTokens {
			total += 4 * p.PerUnitEuro
		}
	}
	return total
}
