package planning

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/model"
)

// RegionData pairs one region with one sensor for a single time step and
// selects the most valuable requirements collectible within that step.
type RegionData struct {
	region       *model.Region
	sensor       Sensor
	requirements []*Requirement // nil for a crisis-only opportunity

	validMissions []bool
	crisis        *CrisisArea
	timeStep      float64

	mostValuable           []*Requirement
	mostValuableByResource map[int][]*Requirement
}

// RegionDataOption configures optional RegionData state.
type RegionDataOption func(*RegionData)

// WithValidMissions restricts selection to missions flagged true. A nil
// mask allows every mission.
func WithValidMissions(mask []bool) RegionDataOption {
	return func(rd *RegionData) { rd.validMissions = mask }
}

// WithCrisisArea attaches a crisis area to the region.
func WithCrisisArea(c *CrisisArea) RegionDataOption {
	return func(rd *RegionData) { rd.crisis = c }
}

// WithTimeStep sets the seconds in one time step, used for crisis-only
// regions.
func WithTimeStep(seconds float64) RegionDataOption {
	return func(rd *RegionData) { rd.timeStep = seconds }
}

// NewRegionData builds the scheduling context. requirements is copied so
// later bucket re-sorts in the RequirementMap do not disturb it.
func NewRegionData(region *model.Region, sensor Sensor, requirements []*Requirement, opts ...RegionDataOption) *RegionData {
	rd := &RegionData{
		region:                 region,
		sensor:                 sensor,
		mostValuableByResource: make(map[int][]*Requirement),
	}
	if requirements != nil {
		rd.requirements = append([]*Requirement{}, requirements...)
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

func (rd *RegionData) Region() *model.Region        { return rd.region }
func (rd *RegionData) Sensor() Sensor               { return rd.sensor }
func (rd *RegionData) Requirements() []*Requirement { return rd.requirements }
func (rd *RegionData) CrisisArea() *CrisisArea      { return rd.crisis }
func (rd *RegionData) IsCrisisOnly() bool           { return rd.requirements == nil && rd.crisis != nil }

// IsValidMission reports whether requirements of missionIndex may be selected.
func (rd *RegionData) IsValidMission(missionIndex int) bool {
	if rd.validMissions == nil {
		return true
	}
	return missionIndex >= 0 && missionIndex < len(rd.validMissions) && rd.validMissions[missionIndex]
}

// GetTimeToCollect returns the seconds needed to collect everything left
// in the region with this sensor.
func (rd *RegionData) GetTimeToCollect(resourceIndex int) float64 {
	if rd.IsCrisisOnly() {
		return rd.timeStep
	}
	times := make([]float64, 0, len(rd.requirements))
	for _, req := range rd.candidates() {
		times = append(times, req.GetRemainingTimeToCollect(rd.sensor, resourceIndex))
	}
	return floats.Sum(times)
}

// GetTotalAchievableScore returns the weighted remaining score of every
// candidate ignoring the time budget, boosted by any crisis multiplier.
func (rd *RegionData) GetTotalAchievableScore(resourceIndex int) float64 {
	if rd.IsCrisisOnly() {
		return rd.crisisOnlyScore()
	}
	scores := make([]float64, 0, len(rd.requirements))
	for _, req := range rd.candidates() {
		scores = append(scores, req.weight(rd.sensor)*req.GetRemainingScore(resourceIndex))
	}
	return floats.Sum(scores) * rd.crisis.ScoreMultiplier()
}

// crisisOnlyScore is what a region with no requirements is worth.
func (rd *RegionData) crisisOnlyScore() float64 {
	return rd.crisis.Score * rd.crisis.ScoreMultiplier()
}

// DetermineMVRequirements walks the candidates in descending remaining
// score efficiency, taking each one that still yields score while budget
// remains. Ties keep insertion order. The walk never backtracks.
func (rd *RegionData) DetermineMVRequirements(fullTimeStep float64, resourceIndex int) ([]*Requirement, float64, error) {
	scratch := rd.candidates()
	for _, req := range scratch {
		if err := req.ValidateResource(resourceIndex); err != nil {
			return nil, 0, errs.Annotate(err, "RegionData::DetermineMVRequirements")
		}
	}

	efficiency := make(map[*Requirement]float64, len(scratch))
	for _, req := range scratch {
		efficiency[req] = req.GetRemainingScoreEfficiency(rd.sensor, resourceIndex)
	}
	sort.SliceStable(scratch, func(i, j int) bool {
		return efficiency[scratch[i]] > efficiency[scratch[j]]
	})

	var (
		selected []*Requirement
		total    float64
	)
	remainingTTC := fullTimeStep
	for _, req := range scratch {
		if remainingTTC <= 0 {
			break
		}
		score := req.GetAchievableScore(rd.sensor, remainingTTC, resourceIndex)
		if score <= 0 {
			continue
		}
		total += score
		remainingTTC -= req.GetAchievableCollectionTime(rd.sensor, remainingTTC, resourceIndex)
		selected = append(selected, req)
	}
	return selected, total, nil
}

// GetAchievableScore recomputes the most valuable list for resourceIndex
// and returns its score. Crisis-only regions are worth their crisis score
// and need no requirements.
func (rd *RegionData) GetAchievableScore(fullTimeStep float64, resourceIndex int) (float64, error) {
	rd.RemoveMostValuableRequirements(resourceIndex)
	if rd.IsCrisisOnly() {
		return rd.crisisOnlyScore(), nil
	}
	selected, total, err := rd.DetermineMVRequirements(fullTimeStep, resourceIndex)
	if err != nil {
		return 0, errs.Annotate(err, "RegionData::GetAchievableScore")
	}
	rd.setMostValuable(resourceIndex, selected)
	return total * rd.crisis.ScoreMultiplier(), nil
}

// MostValuableRequirements returns the list from the latest selection.
func (rd *RegionData) MostValuableRequirements(resourceIndex int) []*Requirement {
	if resourceIndex < 0 {
		return rd.mostValuable
	}
	return rd.mostValuableByResource[resourceIndex]
}

// UpdateMostValuableRequirements commits the latest selection for
// resourceIndex against a budget of fullTimeStep seconds, then clears it.
// It returns the seconds consumed.
func (rd *RegionData) UpdateMostValuableRequirements(fullTimeStep float64, resourceIndex int) (float64, error) {
	remainingTTC := fullTimeStep
	for _, req := range rd.MostValuableRequirements(resourceIndex) {
		if remainingTTC <= 0 {
			break
		}
		used, err := req.UpdateRemainingScoreAndArea(rd.sensor, remainingTTC, resourceIndex)
		if err != nil {
			return fullTimeStep - remainingTTC, errs.Annotate(err, "RegionData::UpdateMostValuableRequirements")
		}
		remainingTTC -= used
	}
	rd.RemoveMostValuableRequirements(resourceIndex)
	if rd.IsCrisisOnly() {
		return fullTimeStep, nil
	}
	return fullTimeStep - remainingTTC, nil
}

// RemoveMostValuableRequirements clears the selection for resourceIndex.
func (rd *RegionData) RemoveMostValuableRequirements(resourceIndex int) {
	if resourceIndex < 0 {
		rd.mostValuable = nil
		return
	}
	delete(rd.mostValuableByResource, resourceIndex)
}

func (rd *RegionData) setMostValuable(resourceIndex int, list []*Requirement) {
	if resourceIndex < 0 {
		rd.mostValuable = list
		return
	}
	rd.mostValuableByResource[resourceIndex] = list
}

func (rd *RegionData) candidates() []*Requirement {
	out := make([]*Requirement, 0, len(rd.requirements))
	for _, req := range rd.requirements {
		if rd.IsValidMission(req.MissionIndex()) {
			out = append(out, req)
		}
	}
	return out
}
