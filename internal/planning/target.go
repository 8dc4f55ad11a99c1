package planning

import "github.com/signalsfoundry/mural/model"

// Target is one deck target: a set of regions to collect and the
// alternative collection problem sets that would satisfy it.
type Target struct {
	id           string
	deckIndex    int
	missionIndex int
	countryCode  string
	pointTarget  bool
	timeliness   int

	regions     []*TargetRegion
	problemSets []*CollectionProblemSet

	bestAchievable *CollectionProblemSet
	bestScore      float64
}

// NewTarget creates a target for deckIndex and missionIndex.
func NewTarget(id string, deckIndex, missionIndex int, countryCode string, pointTarget bool, timeliness int) *Target {
	return &Target{
		id:           id,
		deckIndex:    deckIndex,
		missionIndex: missionIndex,
		countryCode:  countryCode,
		pointTarget:  pointTarget,
		timeliness:   timeliness,
	}
}

func (t *Target) ID() string                                  { return t.id }
func (t *Target) DeckIndex() int                              { return t.deckIndex }
func (t *Target) MissionIndex() int                           { return t.missionIndex }
func (t *Target) CountryCode() string                         { return t.countryCode }
func (t *Target) IsPointTarget() bool                         { return t.pointTarget }
func (t *Target) Timeliness() int                             { return t.timeliness }
func (t *Target) Regions() []*TargetRegion                    { return t.regions }
func (t *Target) ProblemSets() []*CollectionProblemSet        { return t.problemSets }
func (t *Target) BestAchievableCPS() *CollectionProblemSet    { return t.bestAchievable }
func (t *Target) BestAchievableScore() float64                { return t.bestScore }
func (t *Target) SameTarget(id string, missionIndex int) bool { return t.id == id && t.missionIndex == missionIndex }

// AddRegion adds area (and one point for point targets) to the region,
// creating its TargetRegion on first use. It reports whether the region
// was new to the target.
func (t *Target) AddRegion(region, subRegion int, area float64) (*TargetRegion, bool) {
	full := model.FullRegionNumber(region, subRegion)
	for _, tr := range t.regions {
		if tr.fullRegionNumber == full {
			tr.area += area
			if t.pointTarget {
				tr.points++
			}
			return tr, false
		}
	}
	tr := newTargetRegion(t, full)
	tr.area = area
	if t.pointTarget {
		tr.points = 1
	}
	t.regions = append(t.regions, tr)
	return tr, true
}

// TotalArea sums the area of every region.
func (t *Target) TotalArea() float64 {
	total := 0.0
	for _, tr := range t.regions {
		total += tr.area
	}
	return total
}

// AddProblemSet appends an alternative; the first one added becomes the
// initial best.
func (t *Target) AddProblemSet(cps *CollectionProblemSet) {
	t.problemSets = append(t.problemSets, cps)
	if t.bestAchievable == nil {
		t.bestAchievable = cps
	}
}

// AchievedQuality returns the quality a sensor has reached over the whole
// target: the worst quality among its regions, and false while any region
// has none.
func (t *Target) AchievedQuality(sensor Sensor) (int, bool) {
	if len(t.regions) == 0 {
		return 0, false
	}
	var worst int
	for i, tr := range t.regions {
		q, ok := tr.HighestQuality(sensor.Index())
		if !ok {
			return 0, false
		}
		if i == 0 || sensor.BetterQuality(worst, q) {
			worst = q
		}
	}
	return worst, true
}

// DetermineBestCollectionProblemSet picks the alternative with the highest
// achievable score. When nothing is achievable yet, the alternative with
// the highest potential score is kept so a target always has a best CPS.
func (t *Target) DetermineBestCollectionProblemSet(sensors []Sensor) *CollectionProblemSet {
	if len(t.problemSets) == 0 {
		return nil
	}
	achieved := func(sensorIndex int) (int, bool) {
		if sensorIndex < 0 || sensorIndex >= len(sensors) {
			return 0, false
		}
		return t.AchievedQuality(sensors[sensorIndex])
	}

	var best *CollectionProblemSet
	bestScore := 0.0
	for _, cps := range t.problemSets {
		if s := cps.AchievableScore(sensors, achieved); s > bestScore {
			best, bestScore = cps, s
		}
	}
	if best == nil {
		best = t.problemSets[0]
		for _, cps := range t.problemSets[1:] {
			if cps.PotentialScore() > best.PotentialScore() {
				best = cps
			}
		}
	}
	t.bestAchievable = best
	t.bestScore = bestScore
	return best
}

// ResetAchievement forgets achieved quality for every region.
func (t *Target) ResetAchievement() {
	for _, tr := range t.regions {
		tr.Reset()
	}
	t.bestScore = 0
	if len(t.problemSets) > 0 {
		t.bestAchievable = t.problemSets[0]
	}
}
