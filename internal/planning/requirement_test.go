package planning

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/mural/internal/errs"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool { return math.Abs(a-b) <= tolerance }

func mustSensor(t *testing.T, kind SensorType, rates, weights [][]float64, bins []float64) *SensorModel {
	t.Helper()
	s, err := NewSensorModel(0, "test-"+kind.String(), kind, rates, weights, bins)
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	return s
}

func TestPointTargetCollectsWholePoints(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{1}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 10, 5, 5, 1)

	if got := r.GetSecondsPerPoint(s); !approxEqual(got, 1) {
		t.Fatalf("GetSecondsPerPoint = %v, want 1", got)
	}
	if got := r.GetAchievableNumberOfPoints(s, 3.4, -1); got != 3 {
		t.Fatalf("GetAchievableNumberOfPoints(3.4) = %d, want 3", got)
	}
	if got := r.GetAchievableScore(s, 3.4, -1); !approxEqual(got, 6) {
		t.Fatalf("GetAchievableScore(3.4) = %v, want 6", got)
	}
	if got := r.GetAchievableCollectionTime(s, 3.4, -1); !approxEqual(got, 3) {
		t.Fatalf("GetAchievableCollectionTime(3.4) = %v, want 3", got)
	}

	used, err := r.UpdateRemainingScoreAndArea(s, 3.4, -1)
	if err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if !approxEqual(used, 3) {
		t.Fatalf("used = %v, want 3", used)
	}
	if got := r.GetRemainingPoints(-1); got != 2 {
		t.Fatalf("GetRemainingPoints = %d, want 2", got)
	}
	// Only two points remain, so a long budget is capped.
	if got := r.GetAchievableNumberOfPoints(s, 10, -1); got != 2 {
		t.Fatalf("GetAchievableNumberOfPoints(10) = %d, want 2", got)
	}
}

func TestAreaTargetPartialCollection(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 50, 100, 0, 1)

	if got := r.GetRemainingTimeToCollect(s, -1); !approxEqual(got, 10) {
		t.Fatalf("GetRemainingTimeToCollect = %v, want 10", got)
	}
	if got := r.GetAchievableScore(s, 4, -1); !approxEqual(got, 20) {
		t.Fatalf("GetAchievableScore(4) = %v, want 20", got)
	}
	if _, err := r.UpdateRemainingScoreAndArea(s, 4, -1); err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if got := r.GetRemainingArea(-1); !approxEqual(got, 60) {
		t.Fatalf("remaining area = %v, want 60", got)
	}
	if got := r.GetRemainingScore(-1); !approxEqual(got, 30) {
		t.Fatalf("remaining score = %v, want 30", got)
	}

	used, err := r.UpdateRemainingScoreAndArea(s, 100, -1)
	if err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if !approxEqual(used, 6) {
		t.Fatalf("used = %v, want 6", used)
	}
	if r.GetRemainingArea(-1) != 0 || r.GetRemainingScore(-1) != 0 {
		t.Fatalf("remaining = (%v, %v), want zero", r.GetRemainingScore(-1), r.GetRemainingArea(-1))
	}
	if got := r.GetRemainingScoreEfficiency(s, -1); got != 0 {
		t.Fatalf("efficiency of drained requirement = %v, want 0", got)
	}
}

func TestResetRestoresEverySlot(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 50, 100, 0, 3)
	for res := 0; res < 3; res++ {
		if _, err := r.UpdateRemainingScoreAndArea(s, float64(res+1), res); err != nil {
			t.Fatalf("UpdateRemainingScoreAndArea(%d): %v", res, err)
		}
	}
	r.ResetScoreAndArea()
	for res := 0; res < 3; res++ {
		if r.GetRemainingScore(res) != r.Score() || r.GetRemainingArea(res) != r.Area() {
			t.Fatalf("slot %d = (%v, %v), want (%v, %v)", res,
				r.GetRemainingScore(res), r.GetRemainingArea(res), r.Score(), r.Area())
		}
	}
}

func TestResourceAgnosticReadsMinimumButWritesSlotZero(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 50, 100, 0, 2)

	if _, err := r.UpdateRemainingScoreAndArea(s, 4, 1); err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if got := r.GetRemainingArea(-1); !approxEqual(got, 60) {
		t.Fatalf("agnostic remaining area = %v, want 60 (minimum)", got)
	}
	if got := r.GetRemainingArea(0); !approxEqual(got, 100) {
		t.Fatalf("slot 0 area = %v, want 100", got)
	}

	// The agnostic commit sizes itself from the minimum (60 left, 6s to
	// finish) but is written to slot 0.
	if _, err := r.UpdateRemainingScoreAndArea(s, 4, -1); err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if got := r.GetRemainingArea(0); !approxEqual(got, 60) {
		t.Fatalf("slot 0 area = %v, want 60", got)
	}
	if got := r.GetRemainingScore(0); !approxEqual(got, 30) {
		t.Fatalf("slot 0 score = %v, want 30", got)
	}
	if got := r.GetRemainingArea(1); !approxEqual(got, 60) {
		t.Fatalf("slot 1 area = %v, want 60", got)
	}
}

// AddScoreAndArea discards partial collection when a bucket gains a
// contributor. This pins the existing behaviour.
func TestAddScoreAndAreaRestartsRemaining(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 5, 50, 100, 0, 1)
	if _, err := r.UpdateRemainingScoreAndArea(s, 4, -1); err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}

	r.AddScoreAndArea(10, 20, 3)
	if r.Score() != 60 || r.Area() != 120 {
		t.Fatalf("totals = (%v, %v), want (60, 120)", r.Score(), r.Area())
	}
	if r.GetRemainingScore(-1) != 60 || r.GetRemainingArea(-1) != 120 {
		t.Fatalf("remaining = (%v, %v), want full totals", r.GetRemainingScore(-1), r.GetRemainingArea(-1))
	}
	if r.SubPriorityLevel() != 3 {
		t.Fatalf("SubPriorityLevel = %d, want 3", r.SubPriorityLevel())
	}
	r.AddScoreAndArea(1, 1, 9)
	if r.SubPriorityLevel() != 3 {
		t.Fatalf("SubPriorityLevel after less urgent merge = %d, want 3", r.SubPriorityLevel())
	}
}

func TestAddScoreAndAreaAddsOnePoint(t *testing.T) {
	r := NewRequirement(0, 0, 0, 0, 0, 5, 2, 1, 1)
	r.AddScoreAndArea(500, 2, 0)
	if r.NumberOfPoints() != 2 {
		t.Fatalf("NumberOfPoints = %d, want 2", r.NumberOfPoints())
	}
	area := NewRequirement(0, 0, 0, 0, 0, 5, 2, 0, 1)
	area.AddScoreAndArea(5, 2, 0)
	if area.NumberOfPoints() != 0 {
		t.Fatalf("area target gained points: %d", area.NumberOfPoints())
	}
}

func TestResourceWeightScalesReportedScore(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, [][]float64{{2}}, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 50, 100, 0, 1)
	if got := r.GetAchievableScore(s, 4, -1); !approxEqual(got, 40) {
		t.Fatalf("weighted GetAchievableScore = %v, want 40", got)
	}
	if got := r.GetRemainingScoreEfficiency(s, -1); !approxEqual(got, 10) {
		t.Fatalf("weighted efficiency = %v, want 10", got)
	}
	if _, err := r.UpdateRemainingScoreAndArea(s, 4, -1); err != nil {
		t.Fatalf("UpdateRemainingScoreAndArea: %v", err)
	}
	if got := r.GetRemainingScore(-1); !approxEqual(got, 30) {
		t.Fatalf("remaining score = %v, want unweighted 30", got)
	}
}

func TestRequirementRejectsUnknownResource(t *testing.T) {
	s := mustSensor(t, SensorVisible, [][]float64{{10}}, nil, nil)
	r := NewRequirement(0, 0, 0, 0, 0, 50, 100, 0, 2)
	_, err := r.UpdateRemainingScoreAndArea(s, 1, 2)
	if !errors.Is(err, errs.ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
	var oob *errs.OutOfBoundsError
	if !errors.As(err, &oob) || oob.Index != 2 || oob.Bound != 2 {
		t.Fatalf("err = %#v, want index 2 bound 2", err)
	}

	if got := r.GetRemainingScore(2); got != 0 {
		t.Fatalf("GetRemainingScore(2) = %v, want 0", got)
	}
	if got := r.GetRemainingArea(5); got != 0 {
		t.Fatalf("GetRemainingArea(5) = %v, want 0", got)
	}
	if got := r.GetRemainingScoreEfficiency(s, 2); got != 0 {
		t.Fatalf("GetRemainingScoreEfficiency(2) = %v, want 0", got)
	}
	if got := r.GetAchievableScore(s, 10, 2); got != 0 {
		t.Fatalf("GetAchievableScore(2) = %v, want 0", got)
	}
	if got := r.GetRemainingScore(1); got != 50 {
		t.Fatalf("GetRemainingScore(1) = %v, want 50", got)
	}
}
