package planning

import (
	"math"

	"github.com/signalsfoundry/mural/internal/errs"
)

// pointFitTolerance absorbs floating-point error when counting how many
// whole points fit a time budget.
const pointFitTolerance = 1e-9

// Requirement is one schedulable bucket of collection value for a
// (mission, quality, priority) combination within a region/deck/sensor.
//
// remainingScore and remainingArea hold one slot per collecting resource.
// A negative resource index selects resource-agnostic behaviour: reads take
// the minimum across all slots while commits write slot 0.
type Requirement struct {
	index            int
	sensorIndex      int
	missionIndex     int
	qualityIndex     int
	priorityIndex    int
	subPriorityLevel int
	numberOfPoints   int

	score float64
	area  float64

	remainingScore []float64
	remainingArea  []float64
}

// NewRequirement builds a requirement with remaining value equal to its
// totals in every resource slot. At least one slot is always allocated.
func NewRequirement(sensorIndex, missionIndex, qualityIndex, priorityIndex, subPriority int,
	score, area float64, numberOfPoints, numberOfResources int) *Requirement {
	if numberOfResources < 1 {
		numberOfResources = 1
	}
	r := &Requirement{
		sensorIndex:      sensorIndex,
		missionIndex:     missionIndex,
		qualityIndex:     qualityIndex,
		priorityIndex:    priorityIndex,
		subPriorityLevel: subPriority,
		numberOfPoints:   numberOfPoints,
		score:            score,
		area:             area,
		remainingScore:   make([]float64, numberOfResources),
		remainingArea:    make([]float64, numberOfResources),
	}
	r.ResetScoreAndArea()
	return r
}

func (r *Requirement) Index() int             { return r.index }
func (r *Requirement) SensorIndex() int       { return r.sensorIndex }
func (r *Requirement) MissionIndex() int      { return r.missionIndex }
func (r *Requirement) QualityIndex() int      { return r.qualityIndex }
func (r *Requirement) PriorityIndex() int     { return r.priorityIndex }
func (r *Requirement) SubPriorityLevel() int  { return r.subPriorityLevel }
func (r *Requirement) NumberOfPoints() int    { return r.numberOfPoints }
func (r *Requirement) Score() float64         { return r.score }
func (r *Requirement) Area() float64          { return r.area }
func (r *Requirement) NumberOfResources() int { return len(r.remainingScore) }
func (r *Requirement) IsPointTarget() bool    { return r.numberOfPoints > 0 }

// EqualRequirement reports whether this bucket holds the given triple.
func (r *Requirement) EqualRequirement(missionIndex, qualityIndex, priorityIndex int) bool {
	return r.missionIndex == missionIndex && r.qualityIndex == qualityIndex && r.priorityIndex == priorityIndex
}

// ValidateResource checks a resource index. Negative indices are the
// resource-agnostic selector and always valid.
func (r *Requirement) ValidateResource(resourceIndex int) error {
	if resourceIndex < 0 {
		return nil
	}
	return errs.CheckIndex("Requirement", "ValidateResource", "resource index", resourceIndex, len(r.remainingScore))
}

// AddScoreAndArea merges one more contributor into the bucket. A point
// bucket gains exactly one point. The sub-priority keeps the more urgent
// (lower) level. Remaining values restart from the new totals in every
// slot, discarding any partial collection recorded so far.
func (r *Requirement) AddScoreAndArea(score, area float64, subPriority int) {
	r.score += score
	r.area += area
	if r.numberOfPoints > 0 {
		r.numberOfPoints++
	}
	if subPriority < r.subPriorityLevel {
		r.subPriorityLevel = subPriority
	}
	r.ResetScoreAndArea()
}

// ResetScoreAndArea restores every slot to the full totals.
func (r *Requirement) ResetScoreAndArea() {
	for i := range r.remainingScore {
		r.remainingScore[i] = r.score
		r.remainingArea[i] = r.area
	}
}

// GetRemainingScore returns the unweighted remaining score for the resource,
// or the minimum across resources when resourceIndex is negative. A
// resource this requirement has no slot for has nothing remaining; use
// ValidateResource to report it.
func (r *Requirement) GetRemainingScore(resourceIndex int) float64 {
	return readSlot(r.remainingScore, resourceIndex)
}

// GetRemainingArea mirrors GetRemainingScore for area.
func (r *Requirement) GetRemainingArea(resourceIndex int) float64 {
	return readSlot(r.remainingArea, resourceIndex)
}

// GetRemainingPoints returns how many whole points remain uncollected.
func (r *Requirement) GetRemainingPoints(resourceIndex int) int {
	if r.numberOfPoints <= 0 || r.area <= 0 {
		return 0
	}
	return int(math.Round(float64(r.numberOfPoints) * r.GetRemainingArea(resourceIndex) / r.area))
}

// GetSecondsPerPoint is the dwell time needed for one point.
func (r *Requirement) GetSecondsPerPoint(sensor Sensor) float64 {
	rate := sensor.GetCollectionRate(r.missionIndex, r.qualityIndex)
	if r.numberOfPoints <= 0 || rate <= 0 {
		return 0
	}
	return r.area / (float64(r.numberOfPoints) * rate)
}

// GetRemainingTimeToCollect returns the seconds needed to collect all
// remaining area with this sensor.
func (r *Requirement) GetRemainingTimeToCollect(sensor Sensor, resourceIndex int) float64 {
	rate := sensor.GetCollectionRate(r.missionIndex, r.qualityIndex)
	if rate <= 0 {
		return 0
	}
	return r.GetRemainingArea(resourceIndex) / rate
}

// GetRemainingScoreEfficiency is weighted remaining score per second of
// collection, zero when nothing is left to collect.
func (r *Requirement) GetRemainingScoreEfficiency(sensor Sensor, resourceIndex int) float64 {
	ttc := r.GetRemainingTimeToCollect(sensor, resourceIndex)
	if ttc <= 0 {
		return 0
	}
	return r.weight(sensor) * r.GetRemainingScore(resourceIndex) / ttc
}

func (r *Requirement) GetAchievableCollectionTime(sensor Sensor, maximumSeconds float64, resourceIndex int) float64 {
	return r.achievable(sensor, maximumSeconds, resourceIndex).seconds
}

func (r *Requirement) GetAchievableNumberOfPoints(sensor Sensor, maximumSeconds float64, resourceIndex int) int {
	return r.achievable(sensor, maximumSeconds, resourceIndex).points
}

func (r *Requirement) GetAchievableArea(sensor Sensor, maximumSeconds float64, resourceIndex int) float64 {
	return r.achievable(sensor, maximumSeconds, resourceIndex).area
}

// GetAchievableScore returns the weighted score collectible within
// maximumSeconds.
func (r *Requirement) GetAchievableScore(sensor Sensor, maximumSeconds float64, resourceIndex int) float64 {
	return r.weight(sensor) * r.achievable(sensor, maximumSeconds, resourceIndex).score
}

// UpdateRemainingScoreAndArea commits a collection of up to maximumSeconds
// and returns the seconds actually consumed. A negative resourceIndex
// commits to slot 0.
func (r *Requirement) UpdateRemainingScoreAndArea(sensor Sensor, maximumSeconds float64, resourceIndex int) (float64, error) {
	if err := r.ValidateResource(resourceIndex); err != nil {
		return 0, errs.Annotate(err, "Requirement::UpdateRemainingScoreAndArea")
	}
	c := r.achievable(sensor, maximumSeconds, resourceIndex)
	slot := resourceIndex
	if slot < 0 {
		slot = 0
	}
	r.remainingArea[slot] = math.Max(0, r.remainingArea[slot]-c.area)
	r.remainingScore[slot] = math.Max(0, r.remainingScore[slot]-c.score)
	return c.seconds, nil
}

type collection struct {
	seconds float64
	points  int
	area    float64
	score   float64
}

// achievable is the single policy shared by the getters and the commit.
// Point requirements collect whole points and scale against the original
// totals; area requirements scale the remaining values continuously.
func (r *Requirement) achievable(sensor Sensor, maximumSeconds float64, resourceIndex int) collection {
	rate := sensor.GetCollectionRate(r.missionIndex, r.qualityIndex)
	remainingArea := r.GetRemainingArea(resourceIndex)
	if maximumSeconds <= 0 || rate <= 0 || remainingArea <= 0 {
		return collection{}
	}

	if r.IsPointTarget() {
		spp := r.GetSecondsPerPoint(sensor)
		if spp <= 0 {
			return collection{}
		}
		k := int(math.Floor(maximumSeconds/spp + pointFitTolerance))
		if remaining := r.GetRemainingPoints(resourceIndex); k > remaining {
			k = remaining
		}
		if k <= 0 {
			return collection{}
		}
		frac := float64(k) / float64(r.numberOfPoints)
		return collection{
			seconds: float64(k) * spp,
			points:  k,
			area:    r.area * frac,
			score:   r.score * frac,
		}
	}

	ttc := remainingArea / rate
	remainingScore := r.GetRemainingScore(resourceIndex)
	if maximumSeconds >= ttc {
		return collection{seconds: ttc, area: remainingArea, score: remainingScore}
	}
	frac := maximumSeconds / ttc
	return collection{
		seconds: maximumSeconds,
		area:    remainingArea * frac,
		score:   remainingScore * frac,
	}
}

func (r *Requirement) weight(sensor Sensor) float64 {
	return sensor.GetResourceWeight(r.missionIndex, r.qualityIndex)
}

func readSlot(slots []float64, resourceIndex int) float64 {
	if resourceIndex >= len(slots) {
		return 0
	}
	if resourceIndex >= 0 {
		return slots[resourceIndex]
	}
	least := slots[0]
	for _, v := range slots[1:] {
		least = math.Min(least, v)
	}
	return least
}
