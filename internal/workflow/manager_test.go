package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"screenreview/internal/costs"
	"screenreview/internal/frames"
	"screenreview/internal/pipeline"
	"screenreview/internal/queue"
	"screenreview/internal/services/ffmpeg"
	"screenreview/internal/testsupport"
	"screenreview/internal/workflow"
)

type fakeMedia struct {
	frameCount int
	extractErr error
}

func (f *fakeMedia) ExtractFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]frames.Frame, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	out := make([]frames.Frame, f.frameCount)
	for i := range out {
		path := filepath.Join(outDir, fmt.Sprintf("frame_%05d.png", i))
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			return nil, err
		}
		out[i] = frames.Frame{Index: i, Path: path, Timestamp: float64(i) / fps}
	}
	return out, nil
}

func (f *fakeMedia) Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error) {
	return ffmpeg.MediaInfo{DurationSeconds: 4}, nil
}

func (f *fakeMedia) AudioSamples(ctx context.Context, audioPath string) ([]int16, int, error) {
	return make([]int16, 8000), 8000, nil
}

type recordingNotifier struct {
	mu              sync.Mutex
	screenCompleted int
	screenFailed    int
	queueCompleted  int
	budgetWarnings  int
	errors          int
}

func (n *recordingNotifier) NotifyScreenCompleted(ctx context.Context, screen string, annotations int, costEuro float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.screenCompleted++
	return nil
}

func (n *recordingNotifier) NotifyScreenFailed(ctx context.Context, screen, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.screenFailed++
	return nil
}

func (n *recordingNotifier) NotifyQueueCompleted(ctx context.Context, processed, failed int, totalCostEuro float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queueCompleted++
	return nil
}

func (n *recordingNotifier) NotifyBudgetWarning(ctx context.Context, spentEuro, limitEuro float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.budgetWarnings++
	return nil
}

func (n *recordingNotifier) NotifyError(ctx context.Context, err error, context string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors++
	return nil
}

func (n *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func TestRunUntilDrainedProcessesAllScreens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "session")
	testsupport.WriteScreen(t, sessionDir, "home", "mobile")
	testsupport.WriteScreen(t, sessionDir, "checkout", "desktop")

	notifier := &recordingNotifier{}
	var progressMu sync.Mutex
	progressed := map[int64]bool{}
	manager := workflow.NewManager(cfg, store, nil, costs.NewLedger(0, 0), notifier,
		pipeline.Providers{Media: &fakeMedia{frameCount: 4}},
		workflow.WithProgress(func(itemID int64, ev pipeline.Event) {
			progressMu.Lock()
			progressed[itemID] = true
			progressMu.Unlock()
		}))

	ctx := context.Background()
	items, err := manager.EnqueueSession(ctx, sessionDir)
	if err != nil {
		t.Fatalf("EnqueueSession: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("enqueued %d items, want 2", len(items))
	}

	summary, err := manager.RunUntilDrained(ctx)
	if err != nil {
		t.Fatalf("RunUntilDrained: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	for _, item := range items {
		loaded, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if loaded.Status != queue.StatusCompleted {
			t.Fatalf("item %s status = %s", loaded.Label(), loaded.Status)
		}
		if loaded.ReportPath == "" {
			t.Fatalf("item %s has no report path", loaded.Label())
		}
		if _, err := os.Stat(loaded.ReportPath); err != nil {
			t.Fatalf("report missing: %v", err)
		}
		if !progressed[item.ID] {
			t.Fatalf("no progress events for item %d", item.ID)
		}
	}
	if notifier.screenCompleted != 2 || notifier.queueCompleted != 1 {
		t.Fatalf("notifications = %+v", notifier)
	}
}

func TestRunUntilDrainedMarksExportFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "session")
	screenDir := testsupport.WriteScreen(t, sessionDir, "home", "mobile")
	// A file where the extraction directory should go makes export fail.
	testsupport.WriteFile(t, filepath.Join(screenDir, cfg.Paths.ExtractionDir), []byte("x"))

	notifier := &recordingNotifier{}
	manager := workflow.NewManager(cfg, store, nil, costs.NewLedger(0, 0), notifier,
		pipeline.Providers{Media: &fakeMedia{frameCount: 2}})

	ctx := context.Background()
	items, err := manager.EnqueueSession(ctx, sessionDir)
	if err != nil {
		t.Fatalf("EnqueueSession: %v", err)
	}
	summary, err := manager.RunUntilDrained(ctx)
	if err != nil {
		t.Fatalf("RunUntilDrained: %v", err)
	}
	if summary.Processed != 0 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	loaded, err := store.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusFailed || loaded.ErrorMessage == "" {
		t.Fatalf("failed item = %+v", loaded)
	}
	if notifier.screenFailed != 1 {
		t.Fatalf("screen failure notifications = %d", notifier.screenFailed)
	}
}

func TestRunUntilDrainedStopsAtBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cost.AutoStopAtLimit = true
	cfg.Cost.BudgetLimitEuro = 0.01
	store := testsupport.MustOpenStore(t, cfg)
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "session")
	testsupport.WriteScreen(t, sessionDir, "home", "mobile")

	ledger := costs.NewLedger(0.01, 0.005)
	ledger.Record("earlier/screen", "cloud", "gpt-4o-mini-transcribe", 10)

	manager := workflow.NewManager(cfg, store, nil, ledger, &recordingNotifier{},
		pipeline.Providers{Media: &fakeMedia{frameCount: 2}})

	ctx := context.Background()
	items, err := manager.EnqueueSession(ctx, sessionDir)
	if err != nil {
		t.Fatalf("EnqueueSession: %v", err)
	}
	summary, err := manager.RunUntilDrained(ctx)
	if err != nil {
		t.Fatalf("RunUntilDrained: %v", err)
	}
	if !summary.BudgetStopped {
		t.Fatalf("expected budget stop, summary = %+v", summary)
	}
	if summary.Processed != 0 {
		t.Fatalf("processed %d screens past the budget", summary.Processed)
	}

	loaded, err := store.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusPending {
		t.Fatalf("item status = %s, want pending", loaded.Status)
	}
}

func TestRunUntilDrainedHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "session")
	testsupport.WriteScreen(t, sessionDir, "home", "mobile")

	manager := workflow.NewManager(cfg, store, nil, costs.NewLedger(0, 0), &recordingNotifier{},
		pipeline.Providers{Media: &fakeMedia{frameCount: 2}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := manager.EnqueueSession(context.Background(), sessionDir); err != nil {
		t.Fatalf("EnqueueSession: %v", err)
	}
	summary, err := manager.RunUntilDrained(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestEstimateRemainingAveragesCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, nil, costs.NewLedger(0, 0), &recordingNotifier{},
		pipeline.Providers{Media: &fakeMedia{frameCount: 1}})

	ctx := context.Background()
	done, err := store.Add(ctx, "/s", "a", "mobile")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.MarkCompleted(ctx, done.ID, 0.02, 1, "/r"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	for _, route := range []string{"b", "c"} {
		if _, err := store.Add(ctx, "/s", route, "mobile"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	estimate, err := manager.EstimateRemaining(ctx)
	if err != nil {
		t.Fatalf("EstimateRemaining: %v", err)
	}
	if estimate < 0.0399 || estimate > 0.0401 {
		t.Fatalf("estimate = %f, want ~0.04", estimate)
	}
}
