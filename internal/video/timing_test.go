package video

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPlanTiming(t *testing.T) {
	tests := []struct {
		name       string
		narration  float64
		scenes     int
		intro      float64
		outro      float64
		perScene   float64
		degenerate bool
	}{
		{"three scenes over fourteen seconds", 14.0, 3, 2.0, 3.0, 3.0, false},
		{"short narration drops bookends", 6.0, 4, 0, 0, 1.5, true},
		{"exactly the bookend budget is degenerate", 5.0, 2, 0, 0, 2.5, true},
		{"sub-second scenes keep every scene", 6.0, 10, 2.0, 3.0, 0.1, false},
		{"single scene", 20.0, 1, 2.0, 3.0, 15.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanTiming(tt.narration, tt.scenes)
			if err != nil {
				t.Fatalf("PlanTiming: %v", err)
			}
			if plan.SceneCount != tt.scenes {
				t.Errorf("SceneCount = %d, want %d", plan.SceneCount, tt.scenes)
			}
			if !approx(plan.IntroDuration, tt.intro) {
				t.Errorf("IntroDuration = %v, want %v", plan.IntroDuration, tt.intro)
			}
			if !approx(plan.OutroDuration, tt.outro) {
				t.Errorf("OutroDuration = %v, want %v", plan.OutroDuration, tt.outro)
			}
			if !approx(plan.PerSceneDuration, tt.perScene) {
				t.Errorf("PerSceneDuration = %v, want %v", plan.PerSceneDuration, tt.perScene)
			}
			if plan.Degenerate != tt.degenerate {
				t.Errorf("Degenerate = %v, want %v", plan.Degenerate, tt.degenerate)
			}
			if !approx(plan.Total(), tt.narration) {
				t.Errorf("Total = %v, want %v", plan.Total(), tt.narration)
			}
		})
	}
}

func TestPlanTimingDegenerateDividesExactly(t *testing.T) {
	for _, d := range []float64{0.5, 1.0, 3.3, 4.99, 5.0} {
		for n := 1; n <= 7; n++ {
			plan, err := PlanTiming(d, n)
			if err != nil {
				t.Fatalf("PlanTiming(%v, %d): %v", d, n, err)
			}
			if plan.IntroDuration != 0 || plan.OutroDuration != 0 {
				t.Errorf("PlanTiming(%v, %d) kept bookends: %+v", d, n, plan)
			}
			if plan.PerSceneDuration != d/float64(n) {
				t.Errorf("PlanTiming(%v, %d).PerSceneDuration = %v, want %v", d, n, plan.PerSceneDuration, d/float64(n))
			}
		}
	}
}

func TestPlanTimingRejectsBadInput(t *testing.T) {
	if _, err := PlanTiming(10, 0); err == nil {
		t.Error("expected error for zero scenes")
	}
	if _, err := PlanTiming(0, 3); !errors.Is(err, ErrNarrationUnreadable) {
		t.Errorf("expected ErrNarrationUnreadable, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		narration float64
		scenes    int
		realized  float64
		changed   bool
		outro     float64
	}{
		{"no overshoot", 14.0, 3, 9.0, false, 3.0},
		{"within tolerance", 14.0, 3, 9.005, false, 3.0},
		{"undershoot leaves outro", 14.0, 3, 8.5, false, 3.0},
		{"small overshoot shrinks outro", 14.0, 3, 9.5, true, 2.5},
		{"large overshoot floors at one second", 14.0, 3, 12.0, true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanTiming(tt.narration, tt.scenes)
			if err != nil {
				t.Fatalf("PlanTiming: %v", err)
			}
			perScene, intro := plan.PerSceneDuration, plan.IntroDuration

			changed := plan.Reconcile(tt.realized)
			if changed != tt.changed {
				t.Errorf("Reconcile changed = %v, want %v", changed, tt.changed)
			}
			if !approx(plan.OutroDuration, tt.outro) {
				t.Errorf("OutroDuration = %v, want %v", plan.OutroDuration, tt.outro)
			}
			if plan.PerSceneDuration != perScene || plan.IntroDuration != intro {
				t.Errorf("Reconcile touched intro or per-scene: %+v", plan)
			}
			if !approx(plan.MainAvailable, tt.narration-plan.IntroDuration-plan.OutroDuration) {
				t.Errorf("MainAvailable = %v not recomputed", plan.MainAvailable)
			}
		})
	}
}

func TestReconcileIgnoresDegeneratePlan(t *testing.T) {
	plan, _ := PlanTiming(4.0, 2)
	if plan.Reconcile(10.0) {
		t.Error("degenerate plan should not be reconciled")
	}
	if plan.OutroDuration != 0 {
		t.Errorf("OutroDuration = %v, want 0", plan.OutroDuration)
	}
}
