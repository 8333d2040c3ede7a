package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"screenreview/internal/config"
	"screenreview/internal/costs"
	"screenreview/internal/logging"
	"screenreview/internal/notifications"
	"screenreview/internal/pipeline"
	"screenreview/internal/queue"
	"screenreview/internal/recording"
	"screenreview/internal/services"
)

// ProgressFunc receives pipeline progress for a queued screen, tagged with
// the queue item it belongs to.
type ProgressFunc func(itemID int64, ev pipeline.Event)

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithProgress re-emits pipeline progress events to the given sink.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Manager) {
		m.onProgress = fn
	}
}

// Summary describes one RunUntilDrained pass over the queue.
type Summary struct {
	Processed     int
	Failed        int
	CostEuro      float64
	BudgetStopped bool
}

// Manager coordinates queue processing through a shared pipeline runner.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	notifier   notifications.Service
	ledger     *costs.Ledger
	runner     *pipeline.Runner
	onProgress ProgressFunc

	mu        sync.Mutex
	active    map[string]int64
	processed int
	failed    int
	warned    bool
}

// NewManager wires a manager around the queue store and provider set.
// Logger may be nil.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, ledger *costs.Ledger, notifier notifications.Service, providers pipeline.Providers, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifier,
		ledger:   ledger,
		active:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.runner = pipeline.NewRunner(cfg, logger, providers, ledger, m.handleProgress)
	return m
}

// EnqueueSession scans a session directory and enqueues every screen that has
// a recording. Screens already queued keep their position.
func (m *Manager) EnqueueSession(ctx context.Context, sessionDir string) ([]*queue.Item, error) {
	screens, err := recording.ScanSession(sessionDir)
	if err != nil {
		return nil, err
	}
	items := make([]*queue.Item, 0, len(screens))
	for _, screen := range screens {
		if !screen.HasRecording() {
			m.logger.Warn("screen has no recording, skipping",
				logging.String(logging.FieldScreen, screen.Label()))
			continue
		}
		item, err := m.store.Add(ctx, sessionDir, screen.Route, screen.Viewport)
		if err != nil {
			return items, fmt.Errorf("enqueue %s: %w", screen.Label(), err)
		}
		items = append(items, item)
	}
	return items, nil
}

// RunUntilDrained processes pending screens until the queue is empty, the
// context is cancelled, or the cost budget stops admission. Stale processing
// rows from a previous crashed run are requeued first.
func (m *Manager) RunUntilDrained(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := m.logger.With(logging.String(logging.FieldCorrelationID, runID))

	stale, err := m.store.ResetStale(ctx)
	if err != nil {
		return Summary{}, err
	}
	if stale > 0 {
		logger.Info("requeued stale screens", logging.Int64("count", stale))
	}

	m.mu.Lock()
	m.processed = 0
	m.failed = 0
	m.mu.Unlock()

	workers := m.cfg.Workflow.MaxConcurrentScreens
	if workers < 1 {
		workers = 1
	}

	var budgetStopped bool
	var stopMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				if m.cfg.Cost.AutoStopAtLimit && m.ledger != nil && m.ledger.OverBudget() {
					stopMu.Lock()
					budgetStopped = true
					stopMu.Unlock()
					return
				}
				item, err := m.store.ClaimNextPending(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error("claim pending screen failed", logging.Error(err))
					if !sleepCtx(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second) {
						return
					}
					continue
				}
				if item == nil {
					return
				}
				m.process(ctx, logger, item)
			}
		}()
	}
	wg.Wait()

	m.mu.Lock()
	summary := Summary{Processed: m.processed, Failed: m.failed, BudgetStopped: budgetStopped}
	m.mu.Unlock()
	if m.ledger != nil {
		summary.CostEuro = m.ledger.Total()
	}

	if budgetStopped {
		logger.Warn("stopped before queue drained, cost budget reached",
			logging.Float64("spent_euro", summary.CostEuro),
			logging.Float64("limit_euro", m.cfg.Cost.BudgetLimitEuro))
	}
	if summary.Processed+summary.Failed > 0 {
		if err := m.notifier.NotifyQueueCompleted(ctx, summary.Processed, summary.Failed, summary.CostEuro); err != nil {
			logger.Warn("queue notification failed", logging.Error(err))
		}
	}
	return summary, ctx.Err()
}

func (m *Manager) process(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	label := item.Label()
	logger = logger.With(
		logging.Int64(logging.FieldScreenID, item.ID),
		logging.String(logging.FieldScreen, label))

	m.mu.Lock()
	m.active[label] = item.ID
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.active, label)
		m.mu.Unlock()
	}()

	runCtx := services.WithScreenID(ctx, item.ID)
	runCtx = services.WithScreenLabel(runCtx, label)
	runCtx = services.WithRequestID(runCtx, uuid.NewString())

	screen := recording.Screen{
		Dir:      filepath.Join(item.SessionDir, "routes", item.Route, item.Viewport),
		Project:  filepath.Base(item.SessionDir),
		Route:    item.Route,
		Viewport: item.Viewport,
	}

	logger.Info("processing screen")
	outcome, err := m.runner.Run(runCtx, screen)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		// Finalize with a fresh context so the row does not stay in
		// processing across the shutdown.
		finalize, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if markErr := m.store.MarkCancelled(finalize, item.ID); markErr != nil {
			logger.Error("mark cancelled failed", logging.Error(markErr))
		}
		logger.Info("screen cancelled")
	case err != nil:
		if markErr := m.store.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
			logger.Error("mark failed failed", logging.Error(markErr))
		}
		m.mu.Lock()
		m.failed++
		m.mu.Unlock()
		logger.Error("screen failed", logging.Error(err),
			logging.String(logging.FieldErrorHint, "requeue with `screenreview queue retry`"))
		if notifyErr := m.notifier.NotifyScreenFailed(ctx, label, err.Error()); notifyErr != nil {
			logger.Warn("failure notification failed", logging.Error(notifyErr))
		}
	default:
		if markErr := m.store.MarkCompleted(ctx, item.ID, outcome.CostEuro, len(outcome.Annotations), outcome.ReportPath); markErr != nil {
			logger.Error("mark completed failed", logging.Error(markErr))
		}
		m.mu.Lock()
		m.processed++
		m.mu.Unlock()
		if notifyErr := m.notifier.NotifyScreenCompleted(ctx, label, len(outcome.Annotations), outcome.CostEuro); notifyErr != nil {
			logger.Warn("completion notification failed", logging.Error(notifyErr))
		}
	}
	m.maybeWarnBudget(ctx, logger)
}

// maybeWarnBudget sends the budget warning notification once per run.
func (m *Manager) maybeWarnBudget(ctx context.Context, logger *slog.Logger) {
	if m.ledger == nil || !m.ledger.ShouldWarn() {
		return
	}
	m.mu.Lock()
	already := m.warned
	m.warned = true
	m.mu.Unlock()
	if already {
		return
	}
	if err := m.notifier.NotifyBudgetWarning(ctx, m.ledger.Total(), m.cfg.Cost.BudgetLimitEuro); err != nil {
		logger.Warn("budget notification failed", logging.Error(err))
	}
}

func (m *Manager) handleProgress(ev pipeline.Event) {
	m.mu.Lock()
	id, ok := m.active[ev.Screen]
	m.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.UpdateProgress(ctx, id, string(ev.Stage), ev.Index, ev.Total, ev.Message); err != nil {
		m.logger.Warn("progress update failed", logging.Error(err))
	}
	if m.onProgress != nil {
		m.onProgress(id, ev)
	}
}

// EstimateRemaining projects the cost of still-pending screens from the
// average cost of completed ones. Returns 0 until a screen has completed.
func (m *Manager) EstimateRemaining(ctx context.Context) (float64, error) {
	completed, err := m.store.List(ctx, queue.StatusCompleted)
	if err != nil {
		return 0, err
	}
	if len(completed) == 0 {
		return 0, nil
	}
	var total float64
	for _, item := range completed {
		total += item.CostEuro
	}
	pending, err := m.store.List(ctx, queue.StatusPending, queue.StatusProcessing)
	if err != nil {
		return 0, err
	}
	return total / float64(len(completed)) * float64(len(pending)), nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
