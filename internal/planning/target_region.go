package planning

import "github.com/signalsfoundry/mural/model"

// TargetRegion links a Target to one region it covers and tracks what has
// been achieved there per sensor.
type TargetRegion struct {
	target           *Target
	fullRegionNumber float64
	area             float64
	points           int

	highestQuality map[int]int // sensor index -> best quality index achieved
	collectedArea  map[int]float64
}

func newTargetRegion(target *Target, fullRegionNumber float64) *TargetRegion {
	return &TargetRegion{
		target:           target,
		fullRegionNumber: fullRegionNumber,
		highestQuality:   make(map[int]int),
		collectedArea:    make(map[int]float64),
	}
}

func (tr *TargetRegion) Target() *Target             { return tr.target }
func (tr *TargetRegion) FullRegionNumber() float64   { return tr.fullRegionNumber }
func (tr *TargetRegion) Area() float64               { return tr.area }
func (tr *TargetRegion) NumberOfPoints() int         { return tr.points }
func (tr *TargetRegion) MissionIndex() int           { return tr.target.missionIndex }
func (tr *TargetRegion) RegionLabel() string         { return model.FormatRegionNumber(tr.fullRegionNumber) }
func (tr *TargetRegion) CollectedArea(s int) float64 { return tr.collectedArea[s] }

// SetHighestQuality records qualityIndex for the sensor if it beats what
// has been achieved so far.
func (tr *TargetRegion) SetHighestQuality(sensor Sensor, qualityIndex int) {
	current, ok := tr.highestQuality[sensor.Index()]
	if !ok || sensor.BetterQuality(qualityIndex, current) {
		tr.highestQuality[sensor.Index()] = qualityIndex
	}
}

// HighestQuality returns the best quality index achieved with the sensor.
func (tr *TargetRegion) HighestQuality(sensorIndex int) (int, bool) {
	q, ok := tr.highestQuality[sensorIndex]
	return q, ok
}

// AddCollectedArea accumulates area collected with the sensor, capped at
// the region's share of the target.
func (tr *TargetRegion) AddCollectedArea(sensorIndex int, area float64) {
	total := tr.collectedArea[sensorIndex] + area
	if total > tr.area {
		total = tr.area
	}
	tr.collectedArea[sensorIndex] = total
}

// Reset forgets achieved quality and collected area.
func (tr *TargetRegion) Reset() {
	clear(tr.highestQuality)
	clear(tr.collectedArea)
}
