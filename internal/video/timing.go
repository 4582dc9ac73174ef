package video

import "fmt"

// Bookend policy constants, in seconds.
const (
	NominalIntro    = 2.0
	NominalOutro    = 3.0
	MinIntro        = 2.0
	MinOutro        = 1.0
	DurationEpsilon = 0.01
)

// TimingPlan splits the narration length across intro, scenes and outro.
type TimingPlan struct {
	NarrationDuration float64
	SceneCount        int
	IntroDuration     float64
	OutroDuration     float64
	PerSceneDuration  float64
	MainAvailable     float64

	// Degenerate is set when the narration is too short for both bookends.
	// Intro and outro are dropped and the whole narration goes to scenes.
	Degenerate bool
}

// PlanTiming computes the plan for a narration of the given length.
// Scene count is never reduced; per-scene duration absorbs the pressure.
func PlanTiming(narration float64, sceneCount int) (TimingPlan, error) {
	if sceneCount < 1 {
		return TimingPlan{}, fmt.Errorf("scene count must be at least 1, got %d", sceneCount)
	}
	if narration <= 0 {
		return TimingPlan{}, fmt.Errorf("%w: duration %.3fs", ErrNarrationUnreadable, narration)
	}

	plan := TimingPlan{
		NarrationDuration: narration,
		SceneCount:        sceneCount,
		IntroDuration:     NominalIntro,
		OutroDuration:     NominalOutro,
	}

	plan.MainAvailable = narration - NominalIntro - NominalOutro
	if plan.MainAvailable > 0 {
		plan.PerSceneDuration = plan.MainAvailable / float64(sceneCount)
		return plan, nil
	}

	plan.Degenerate = true
	plan.IntroDuration = 0
	plan.OutroDuration = 0
	plan.MainAvailable = narration
	plan.PerSceneDuration = narration / float64(sceneCount)
	return plan, nil
}

// MainSegmentDuration is the planned length of the scene body.
func (p TimingPlan) MainSegmentDuration() float64 {
	return float64(p.SceneCount) * p.PerSceneDuration
}

// Total is intro + scenes + outro.
func (p TimingPlan) Total() float64 {
	return p.IntroDuration + p.MainSegmentDuration() + p.OutroDuration
}

// Reconcile absorbs an overshoot of the realized scene body by shrinking the
// outro, floored at MinOutro. Intro and per-scene duration are left alone.
// It reports whether the outro changed.
func (p *TimingPlan) Reconcile(realizedMain float64) bool {
	if p.Degenerate || p.OutroDuration <= 0 {
		return false
	}

	overshoot := realizedMain - p.MainAvailable
	if overshoot <= DurationEpsilon {
		return false
	}

	outro := p.OutroDuration - overshoot
	if outro < MinOutro {
		outro = MinOutro
	}
	if outro == p.OutroDuration {
		return false
	}

	p.OutroDuration = outro
	p.MainAvailable = p.NarrationDuration - p.IntroDuration - p.OutroDuration
	return true
}
