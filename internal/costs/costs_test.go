package costs

import (
	"math"
	"sync"
	"testing"
)

func TestLedgerTotalsAndBreakdown(t *testing.T) {
	l := NewLedger(1.0, 0.8)
	l.Record("home/mobile", "cloudspeech", "gpt-4o-mini-transcribe", 2.0)
	l.Record("home/desktop", "cloudspeech", "gpt-4o-mini-transcribe", 1.0)
	l.Record("home/mobile", "llm", "meta-llama/llama-3.2-90b-vision-instruct", 3.0)

	wantTotal := 3.0*0.0028 + 3.0*0.0008
	if got := l.Total(); math.Abs(got-wantTotal) > 1e-9 {
		t.Fatalf("Total = %f, want %f", got, wantTotal)
	}
	wantScreen := 2.0*0.0028 + 3.0*0.0008
	if got := l.ScreenTotal("home/mobile"); math.Abs(got-wantScreen) > 1e-9 {
		t.Fatalf("ScreenTotal = %f, want %f", got, wantScreen)
	}
	breakdown := l.Breakdown()
	if len(breakdown) != 2 {
		t.Fatalf("breakdown has %d models, want 2", len(breakdown))
	}
}

func TestLedgerUnknownModelIsFree(t *testing.T) {
	l := NewLedger(1.0, 0.8)
	entry := l.Record("s", "whisperx", "large-v3-turbo", 5.0)
	if entry.CostEuro != 0 {
		t.Fatalf("local model charged %f euro", entry.CostEuro)
	}
	if len(l.Entries()) != 1 {
		t.Fatalf("free entry not recorded")
	}
}

func TestLedgerBudgetThresholds(t *testing.T) {
	l := NewLedger(0.01, 0.005)
	if l.OverBudget() || l.ShouldWarn() {
		t.Fatal("fresh ledger should be under budget")
	}
	// 2 minutes of gpt-4o-mini-transcribe is 0.0056 euro.
	l.Record("s", "cloudspeech", "gpt-4o-mini-transcribe", 2.0)
	if !l.ShouldWarn() {
		t.Fatal("warning threshold not triggered")
	}
	if l.OverBudget() {
		t.Fatal("limit triggered too early")
	}
	l.Record("s", "cloudspeech", "gpt-4o-mini-transcribe", 2.0)
	if !l.OverBudget() {
		t.Fatal("limit not triggered")
	}
	if l.Remaining() != 0 {
		t.Fatalf("Remaining = %f, want 0", l.Remaining())
	}
}

func TestLedgerConcurrentRecord(t *testing.T) {
	l := NewLedger(0, 0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record("s", "cloudspeech", "gpt-4o-mini-transcribe", 1.0)
			}
		}()
	}
	wg.Wait()
	if got := len(l.Entries()); got != 400 {
		t.Fatalf("recorded %d entries, want 400", got)
	}
}

func TestEstimate(t *testing.T) {
	got := Estimate(120, "gpt-4o-mini-transcribe", "")
	if math.Abs(got-2*0.0028) > 1e-9 {
		t.Fatalf("Estimate = %f", got)
	}
	withAnalysis := Estimate(120, "gpt-4o-mini-transcribe", "meta-llama/llama-3.2-90b-vision-instruct")
	if withAnalysis <= got {
		t.Fatal("analysis estimate not added")
	}
}
