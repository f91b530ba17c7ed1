package trial

import (
	"math"
	"testing"
)

func TestConvergenceTrackerDisabled(t *testing.T) {
	tracker := NewConvergenceTracker(DisabledConvergenceConfig())
	for i := 0; i < 100; i++ {
		if tracker.Update(1.0) {
			t.Fatalf("Disabled tracker reported convergence at update %d", i)
		}
	}
	if len(tracker.History()) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(tracker.History()))
	}
}

func TestConvergenceTrackerPatience(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 3, Threshold: 0.01})

	losses := []float64{100, 50, 49.9, 49.8}
	for i, loss := range losses {
		if tracker.Update(loss) {
			t.Fatalf("Converged too early at update %d", i)
		}
	}
	if tracker.StaleCount() != 2 {
		t.Errorf("Expected stale count 2, got %d", tracker.StaleCount())
	}
	if !tracker.Update(49.7) {
		t.Error("Expected convergence after 3 stale updates")
	}
	if tracker.BestLoss() != 49.7 {
		t.Errorf("Expected best loss 49.7, got %f", tracker.BestLoss())
	}
}

func TestConvergenceTrackerImprovementResetsStaleCount(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.1})

	tracker.Update(10)
	tracker.Update(9.9)
	if tracker.StaleCount() != 1 {
		t.Fatalf("Expected stale count 1, got %d", tracker.StaleCount())
	}
	tracker.Update(5)
	if tracker.StaleCount() != 0 {
		t.Errorf("Expected stale count reset to 0, got %d", tracker.StaleCount())
	}
}

func TestConvergenceTrackerNonFiniteLoss(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 2, Threshold: 0.001})

	tracker.Update(1)
	if tracker.Update(math.NaN()) {
		t.Fatal("Converged too early")
	}
	if !tracker.Update(math.Inf(1)) {
		t.Error("Expected non-finite losses to count as stale")
	}
}

func TestConvergenceTrackerNegativeLoss(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Enabled: true, Patience: 1, Threshold: 0.01})

	tracker.Update(-1)
	if tracker.Update(-2) {
		t.Error("Decrease from -1 to -2 should be an improvement")
	}
	if !tracker.Update(-1.5) {
		t.Error("Increase from -2 to -1.5 should be stale")
	}
}

func TestConvergenceTrackerReset(t *testing.T) {
	tracker := NewConvergenceTracker(DefaultConvergenceConfig())
	tracker.Update(3)
	tracker.Update(3)
	tracker.Reset()

	if tracker.StaleCount() != 0 || len(tracker.History()) != 0 {
		t.Errorf("Expected cleared tracker, got stale=%d history=%d", tracker.StaleCount(), len(tracker.History()))
	}
	if !math.IsInf(tracker.BestLoss(), 1) {
		t.Errorf("Expected best loss +Inf after reset, got %f", tracker.BestLoss())
	}
}
