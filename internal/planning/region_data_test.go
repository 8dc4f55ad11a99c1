package planning

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/model"
)

func threeMissionSensor(t *testing.T) *SensorModel {
	t.Helper()
	return mustSensor(t, SensorVisible, [][]float64{{1}, {1}, {1}}, nil, nil)
}

func testRegion() *model.Region {
	return &model.Region{Number: 12, SubRegion: 3, CountryCode: "AA"}
}

func TestDetermineMVRequirementsIsGreedyByEfficiency(t *testing.T) {
	s := threeMissionSensor(t)
	low := NewRequirement(0, 0, 0, 0, 0, 10, 10, 0, 1)  // 1/s
	high := NewRequirement(0, 1, 0, 0, 0, 30, 10, 0, 1) // 3/s
	mid := NewRequirement(0, 2, 0, 0, 0, 20, 10, 0, 1)  // 2/s
	rd := NewRegionData(testRegion(), s, []*Requirement{low, high, mid})

	selected, total, err := rd.DetermineMVRequirements(15, -1)
	if err != nil {
		t.Fatalf("DetermineMVRequirements: %v", err)
	}
	if len(selected) != 2 || selected[0] != high || selected[1] != mid {
		t.Fatalf("selected = %v, want [high mid]", missions(selected))
	}
	if !approxEqual(total, 40) {
		t.Fatalf("total = %v, want 40", total)
	}

	budget := 15.0
	used := 0.0
	for _, req := range selected {
		used += req.GetAchievableCollectionTime(s, budget-used, -1)
	}
	if used > 15+tolerance {
		t.Fatalf("selection uses %v seconds, budget 15", used)
	}

	prev := selected[0].GetRemainingScoreEfficiency(s, -1)
	for _, req := range selected[1:] {
		eff := req.GetRemainingScoreEfficiency(s, -1)
		if eff > prev {
			t.Fatalf("efficiency %v selected after %v", eff, prev)
		}
		prev = eff
	}
}

func TestDetermineMVRequirementsKeepsInsertionOrderOnTies(t *testing.T) {
	s := threeMissionSensor(t)
	a := NewRequirement(0, 0, 0, 0, 0, 10, 10, 0, 1)
	b := NewRequirement(0, 1, 0, 0, 0, 10, 10, 0, 1)
	c := NewRequirement(0, 2, 0, 0, 0, 10, 10, 0, 1)
	rd := NewRegionData(testRegion(), s, []*Requirement{b, c, a})

	selected, _, err := rd.DetermineMVRequirements(100, -1)
	if err != nil {
		t.Fatalf("DetermineMVRequirements: %v", err)
	}
	if len(selected) != 3 || selected[0] != b || selected[1] != c || selected[2] != a {
		t.Fatalf("selected = %v, want missions [1 2 0]", missions(selected))
	}
}

func TestUpdateMostValuableRequirementsCommitsAndClears(t *testing.T) {
	s := threeMissionSensor(t)
	high := NewRequirement(0, 1, 0, 0, 0, 30, 10, 0, 1)
	mid := NewRequirement(0, 2, 0, 0, 0, 20, 10, 0, 1)
	rd := NewRegionData(testRegion(), s, []*Requirement{mid, high})

	score, err := rd.GetAchievableScore(15, -1)
	if err != nil {
		t.Fatalf("GetAchievableScore: %v", err)
	}
	if !approxEqual(score, 40) {
		t.Fatalf("GetAchievableScore = %v, want 40", score)
	}
	if got := len(rd.MostValuableRequirements(-1)); got != 2 {
		t.Fatalf("most valuable list has %d entries, want 2", got)
	}

	used, err := rd.UpdateMostValuableRequirements(15, -1)
	if err != nil {
		t.Fatalf("UpdateMostValuableRequirements: %v", err)
	}
	if !approxEqual(used, 15) {
		t.Fatalf("used = %v, want 15", used)
	}
	if high.GetRemainingArea(-1) != 0 {
		t.Fatalf("high remaining area = %v, want 0", high.GetRemainingArea(-1))
	}
	if !approxEqual(mid.GetRemainingArea(-1), 5) || !approxEqual(mid.GetRemainingScore(-1), 10) {
		t.Fatalf("mid remaining = (%v, %v), want (10, 5)", mid.GetRemainingScore(-1), mid.GetRemainingArea(-1))
	}
	if rd.MostValuableRequirements(-1) != nil {
		t.Fatalf("most valuable list not cleared")
	}
}

func TestPerResourceSelectionsAreIndependent(t *testing.T) {
	s := threeMissionSensor(t)
	req := NewRequirement(0, 0, 0, 0, 0, 10, 10, 0, 2)
	rd := NewRegionData(testRegion(), s, []*Requirement{req})

	if _, err := rd.GetAchievableScore(5, 1); err != nil {
		t.Fatalf("GetAchievableScore(resource 1): %v", err)
	}
	if _, err := rd.GetAchievableScore(5, -1); err != nil {
		t.Fatalf("GetAchievableScore(agnostic): %v", err)
	}
	if _, err := rd.UpdateMostValuableRequirements(5, 1); err != nil {
		t.Fatalf("UpdateMostValuableRequirements: %v", err)
	}
	if got := req.GetRemainingArea(1); !approxEqual(got, 5) {
		t.Fatalf("resource 1 area = %v, want 5", got)
	}
	if got := req.GetRemainingArea(0); !approxEqual(got, 10) {
		t.Fatalf("resource 0 area = %v, want 10", got)
	}
	if len(rd.MostValuableRequirements(-1)) != 1 {
		t.Fatalf("agnostic list disturbed by resource commit")
	}

	if _, err := rd.GetAchievableScore(5, 2); !errors.Is(err, errs.ErrOutOfBounds) {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestCrisisOnlyRegion(t *testing.T) {
	s := threeMissionSensor(t)
	crisis := &CrisisArea{Score: 7, Multiplier: 2, EndIndex: -1}
	rd := NewRegionData(testRegion(), s, nil, WithCrisisArea(crisis), WithTimeStep(60))

	if !rd.IsCrisisOnly() {
		t.Fatalf("IsCrisisOnly = false, want true")
	}
	score, err := rd.GetAchievableScore(60, -1)
	if err != nil {
		t.Fatalf("GetAchievableScore: %v", err)
	}
	if score != 14 {
		t.Fatalf("crisis score = %v, want 14", score)
	}
	if got := rd.GetTotalAchievableScore(-1); got != score {
		t.Fatalf("GetTotalAchievableScore = %v, want %v", got, score)
	}
	if got := rd.GetTimeToCollect(-1); got != 60 {
		t.Fatalf("GetTimeToCollect = %v, want 60", got)
	}
	used, err := rd.UpdateMostValuableRequirements(60, -1)
	if err != nil || used != 60 {
		t.Fatalf("UpdateMostValuableRequirements = (%v, %v), want (60, nil)", used, err)
	}
}

func TestCrisisMultiplierBoostsRequirements(t *testing.T) {
	s := threeMissionSensor(t)
	req := NewRequirement(0, 0, 0, 0, 0, 10, 10, 0, 1)
	rd := NewRegionData(testRegion(), s, []*Requirement{req}, WithCrisisArea(&CrisisArea{Score: 1, Multiplier: 3}))

	score, err := rd.GetAchievableScore(100, -1)
	if err != nil {
		t.Fatalf("GetAchievableScore: %v", err)
	}
	if !approxEqual(score, 30) {
		t.Fatalf("score = %v, want 30", score)
	}
	if got := rd.GetTotalAchievableScore(-1); !approxEqual(got, 30) {
		t.Fatalf("GetTotalAchievableScore = %v, want 30", got)
	}
}

func TestValidMissionMaskFiltersCandidates(t *testing.T) {
	s := threeMissionSensor(t)
	a := NewRequirement(0, 0, 0, 0, 0, 10, 10, 0, 1)
	b := NewRequirement(0, 1, 0, 0, 0, 90, 10, 0, 1)
	rd := NewRegionData(testRegion(), s, []*Requirement{a, b}, WithValidMissions([]bool{true, false, false}))

	selected, total, err := rd.DetermineMVRequirements(100, -1)
	if err != nil {
		t.Fatalf("DetermineMVRequirements: %v", err)
	}
	if len(selected) != 1 || selected[0] != a || total != 10 {
		t.Fatalf("selected = %v total %v, want mission 0 only", missions(selected), total)
	}
	if got := rd.GetTimeToCollect(-1); got != 10 {
		t.Fatalf("GetTimeToCollect = %v, want 10", got)
	}
}

func TestCrisisAreaWindow(t *testing.T) {
	c := &CrisisArea{StartIndex: 2, EndIndex: 4}
	for ti, want := range map[int]bool{1: false, 2: true, 4: true, 5: false} {
		if got := c.IsActive(ti); got != want {
			t.Fatalf("IsActive(%d) = %v, want %v", ti, got, want)
		}
	}
	var none *CrisisArea
	if none.IsActive(0) || none.ScoreMultiplier() != 1 {
		t.Fatalf("nil crisis area should be inactive with multiplier 1")
	}
}

func missions(reqs []*Requirement) []int {
	out := make([]int, len(reqs))
	for i, r := range reqs {
		out[i] = r.MissionIndex()
	}
	return out
}
