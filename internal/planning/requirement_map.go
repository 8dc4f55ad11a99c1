package planning

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/iancoleman/orderedmap"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/model"
)

type bucketKey struct {
	deck   int
	sensor int
}

type regionEntry struct {
	fullRegionNumber float64
	buckets          map[bucketKey][]*Requirement
	targetRegions    []*TargetRegion
}

// RequirementMap indexes requirements by (region, deck, sensor) and target
// regions by region. Regions iterate in first-seen order. The map owns every
// Requirement it hands out; indices are stable for the life of the map.
type RequirementMap struct {
	sensors      []Sensor
	regions      *orderedmap.OrderedMap
	requirements []*Requirement
}

// NewRequirementMap builds an empty map for the given sensors, which must
// be ordered by Sensor.Index.
func NewRequirementMap(sensors []Sensor) *RequirementMap {
	return &RequirementMap{
		sensors: sensors,
		regions: orderedmap.New(),
	}
}

// Sensors returns the sensors the map was built for.
func (m *RequirementMap) Sensors() []Sensor { return m.sensors }

// NumberOfRequirements returns how many distinct requirements exist.
func (m *RequirementMap) NumberOfRequirements() int { return len(m.requirements) }

// Requirement returns the requirement with the given index.
func (m *RequirementMap) Requirement(index int) (*Requirement, error) {
	if err := errs.CheckIndex("RequirementMap", "Requirement", "requirement index", index, len(m.requirements)); err != nil {
		return nil, err
	}
	return m.requirements[index], nil
}

// RegionNumbers returns every known full region number in first-seen order.
func (m *RequirementMap) RegionNumbers() []float64 {
	keys := m.regions.Keys()
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.entry(k).fullRegionNumber)
	}
	return out
}

// GetRequirementList returns the bucket for the key, creating the region
// entry if it was not yet known. The returned slice must not be modified.
func (m *RequirementMap) GetRequirementList(fullRegionNumber float64, deckIndex, sensorIndex int) []*Requirement {
	return m.ensure(fullRegionNumber).buckets[bucketKey{deckIndex, sensorIndex}]
}

// LookupRequirementList is GetRequirementList without creation.
func (m *RequirementMap) LookupRequirementList(fullRegionNumber float64, deckIndex, sensorIndex int) ([]*Requirement, bool) {
	v, ok := m.regions.Get(model.FormatRegionNumber(fullRegionNumber))
	if !ok {
		return nil, false
	}
	list, ok := v.(*regionEntry).buckets[bucketKey{deckIndex, sensorIndex}]
	return list, ok && len(list) > 0
}

// RequirementsForSensor gathers the buckets of every deck for one
// region/sensor, preserving deck order.
func (m *RequirementMap) RequirementsForSensor(fullRegionNumber float64, sensorIndex, numberOfDecks int) []*Requirement {
	var out []*Requirement
	for deck := 0; deck < numberOfDecks; deck++ {
		if list, ok := m.LookupRequirementList(fullRegionNumber, deck, sensorIndex); ok {
			out = append(out, list...)
		}
	}
	return out
}

// UpdateRequirementData folds one contribution into the (region, deck,
// sensor) bucket. An existing requirement with the same mission, quality
// and priority absorbs it; otherwise a new requirement is created and the
// bucket is re-sorted by quality.
func (m *RequirementMap) UpdateRequirementData(fullRegionNumber float64, deckIndex, sensorIndex, missionIndex, qualityIndex, priorityIndex, subPriority int,
	score, area float64, numberOfPoints, numberOfDecks, numberOfResources int) (*Requirement, error) {
	const method = "RequirementMap::UpdateRequirementData"
	if err := errs.CheckIndex("RequirementMap", "UpdateRequirementData", "deck index", deckIndex, numberOfDecks); err != nil {
		return nil, err
	}
	if err := errs.CheckIndex("RequirementMap", "UpdateRequirementData", "sensor index", sensorIndex, len(m.sensors)); err != nil {
		return nil, err
	}
	sensor := m.sensors[sensorIndex]
	if err := errs.CheckIndex("RequirementMap", "UpdateRequirementData", "quality index", qualityIndex, sensor.NumberOfQualities()); err != nil {
		return nil, errs.Annotate(err, method)
	}

	entry := m.ensure(fullRegionNumber)
	key := bucketKey{deckIndex, sensorIndex}
	for _, req := range entry.buckets[key] {
		if req.EqualRequirement(missionIndex, qualityIndex, priorityIndex) {
			req.AddScoreAndArea(score, area, subPriority)
			return req, nil
		}
	}

	req := NewRequirement(sensorIndex, missionIndex, qualityIndex, priorityIndex, subPriority, score, area, numberOfPoints, numberOfResources)
	req.index = len(m.requirements)
	m.requirements = append(m.requirements, req)

	bucket := append(entry.buckets[key], req)
	spectral := sensor.IsSpectral()
	sort.SliceStable(bucket, func(i, j int) bool {
		if spectral {
			return bucket[i].qualityIndex > bucket[j].qualityIndex
		}
		return bucket[i].qualityIndex < bucket[j].qualityIndex
	})
	entry.buckets[key] = bucket
	return req, nil
}

// AddTargetRegion records tr under its region.
func (m *RequirementMap) AddTargetRegion(fullRegionNumber float64, tr *TargetRegion) {
	entry := m.ensure(fullRegionNumber)
	entry.targetRegions = append(entry.targetRegions, tr)
}

// TargetRegions returns the target regions recorded for a region.
func (m *RequirementMap) TargetRegions(fullRegionNumber float64) []*TargetRegion {
	v, ok := m.regions.Get(model.FormatRegionNumber(fullRegionNumber))
	if !ok {
		return nil
	}
	return v.(*regionEntry).targetRegions
}

// SetHighestQuality pushes an achieved quality to every target region of
// the region that belongs to missionIndex.
func (m *RequirementMap) SetHighestQuality(fullRegionNumber float64, sensorIndex, qualityIndex, missionIndex int) error {
	if err := errs.CheckIndex("RequirementMap", "SetHighestQuality", "sensor index", sensorIndex, len(m.sensors)); err != nil {
		return err
	}
	sensor := m.sensors[sensorIndex]
	for _, tr := range m.TargetRegions(fullRegionNumber) {
		if tr.MissionIndex() == missionIndex {
			tr.SetHighestQuality(sensor, qualityIndex)
		}
	}
	return nil
}

// ResetScoreAndArea restores every requirement of deckIndex whose sensor
// is flagged in resetSensorMask. A nil mask resets every sensor.
func (m *RequirementMap) ResetScoreAndArea(deckIndex int, resetSensorMask []bool) {
	for _, k := range m.regions.Keys() {
		entry := m.entry(k)
		for key, list := range entry.buckets {
			if key.deck != deckIndex {
				continue
			}
			if resetSensorMask != nil && (key.sensor >= len(resetSensorMask) || !resetSensorMask[key.sensor]) {
				continue
			}
			for _, req := range list {
				req.ResetScoreAndArea()
			}
		}
	}
}

// Walk visits every bucket in region order, then deck, then sensor.
func (m *RequirementMap) Walk(fn func(fullRegionNumber float64, deckIndex, sensorIndex int, list []*Requirement) error) error {
	for _, k := range m.regions.Keys() {
		entry := m.entry(k)
		keys := make([]bucketKey, 0, len(entry.buckets))
		for key := range entry.buckets {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].deck != keys[j].deck {
				return keys[i].deck < keys[j].deck
			}
			return keys[i].sensor < keys[j].sensor
		})
		for _, key := range keys {
			if err := fn(entry.fullRegionNumber, key.deck, key.sensor, entry.buckets[key]); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintRequirements writes one row per requirement.
func (m *RequirementMap) PrintRequirements(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tDECK\tSENSOR\tINDEX\tMISSION\tQUALITY\tPRIORITY\tSUB\tPOINTS\tSCORE\tAREA\tREMAINING_SCORE\tREMAINING_AREA")
	err := m.Walk(func(full float64, deck, sensor int, list []*Requirement) error {
		name := fmt.Sprint(sensor)
		if sensor < len(m.sensors) {
			name = m.sensors[sensor].Name()
		}
		for _, r := range list {
			_, err := fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n",
				model.FormatRegionNumber(full), deck, name, r.index, r.missionIndex+1, r.qualityIndex+1,
				r.priorityIndex+1, r.subPriorityLevel, r.numberOfPoints, r.score, r.area,
				r.GetRemainingScore(-1), r.GetRemainingArea(-1))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

func (m *RequirementMap) ensure(fullRegionNumber float64) *regionEntry {
	key := model.FormatRegionNumber(fullRegionNumber)
	if v, ok := m.regions.Get(key); ok {
		return v.(*regionEntry)
	}
	entry := &regionEntry{
		fullRegionNumber: fullRegionNumber,
		buckets:          make(map[bucketKey][]*Requirement),
	}
	m.regions.Set(key, entry)
	return entry
}

func (m *RequirementMap) entry(key string) *regionEntry {
	v, _ := m.regions.Get(key)
	return v.(*regionEntry)
}
