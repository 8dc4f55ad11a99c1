package planning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalsfoundry/mural/internal/errs"
)

// SensorType identifies the collection phenomenology of a sensor.
type SensorType int

const (
	SensorVisible SensorType = iota
	SensorInfrared
	SensorSAR
	SensorMultispectral
	SensorHyperspectral
	SensorUltraspectral
)

var sensorTypeNames = map[string]SensorType{
	"visible":       SensorVisible,
	"infrared":      SensorInfrared,
	"sar":           SensorSAR,
	"multispectral": SensorMultispectral,
	"hyperspectral": SensorHyperspectral,
	"ultraspectral": SensorUltraspectral,
}

// ParseSensorType maps a configuration string onto a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	if t, ok := sensorTypeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, errs.NewInputError("Sensor", "Parse", fmt.Sprintf("unknown sensor type %q", s))
}

func (t SensorType) String() string {
	for name, v := range sensorTypeNames {
		if v == t {
			return strings.ToUpper(name)
		}
	}
	return "UNKNOWN"
}

// IsSpectral reports GSD-binned sensors, where a lower quality index is better.
func (t SensorType) IsSpectral() bool {
	return t == SensorMultispectral || t == SensorHyperspectral || t == SensorUltraspectral
}

// IsRadar reports radar sensors, which use the radar score coefficients.
func (t SensorType) IsRadar() bool { return t == SensorSAR }

// Sensor is the collaborator the scheduling core queries for collection
// physics. Requirement and RegionData hold no physics of their own.
type Sensor interface {
	Index() int
	Name() string
	IsSpectral() bool
	IsRadar() bool
	NumberOfQualities() int

	// GetCollectionRate returns nmi^2 per second for the mission/quality.
	GetCollectionRate(missionIndex, qualityIndex int) float64
	// GetResourceWeight returns the score multiplier for the mission/quality.
	GetResourceWeight(missionIndex, qualityIndex int) float64

	// QualityIndex maps a deck quality value onto a quality index; false
	// means the value requests no collection.
	QualityIndex(qualityLevel int) (int, bool)
	// BetterQuality reports whether quality index a is strictly better than b.
	BetterQuality(a, b int) bool
}

// SensorModel is the table-driven Sensor used by the planner.
type SensorModel struct {
	index   int
	name    string
	kind    SensorType
	rates   [][]float64 // [mission][quality]
	weights [][]float64 // [mission][quality]

	// qualityBins are ascending GSD upper bounds for spectral sensors.
	qualityBins []float64
}

// NewSensorModel validates and builds a SensorModel. weights may be nil,
// in which case every weight is 1.
func NewSensorModel(index int, name string, kind SensorType, rates, weights [][]float64, qualityBins []float64) (*SensorModel, error) {
	c := errs.NewCollector("SensorModel", "NewSensorModel")
	c.Require(name != "", "sensor name")
	c.Require(len(rates) > 0, fmt.Sprintf("collection rates for sensor %q", name))

	qualities := 0
	for m, row := range rates {
		if m == 0 {
			qualities = len(row)
		}
		if len(row) != qualities {
			c.Addf("sensor %q mission %d has %d quality rates, want %d", name, m, len(row), qualities)
		}
		for q, r := range row {
			if r < 0 {
				c.Addf("sensor %q rate[%d][%d] is negative", name, m, q)
			}
		}
	}
	if weights != nil {
		if len(weights) != len(rates) {
			c.Addf("sensor %q has %d weight rows, want %d", name, len(weights), len(rates))
		}
		for m, row := range weights {
			if len(row) != qualities {
				c.Addf("sensor %q mission %d has %d quality weights, want %d", name, m, len(row), qualities)
			}
		}
	}
	if kind.IsSpectral() {
		if len(qualityBins) != qualities {
			c.Addf("spectral sensor %q has %d quality bins, want %d", name, len(qualityBins), qualities)
		}
		if !sort.Float64sAreSorted(qualityBins) {
			c.Addf("spectral sensor %q quality bins are not ascending", name)
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return &SensorModel{
		index:       index,
		name:        name,
		kind:        kind,
		rates:       rates,
		weights:     weights,
		qualityBins: qualityBins,
	}, nil
}

func (s *SensorModel) Index() int             { return s.index }
func (s *SensorModel) Name() string           { return s.name }
func (s *SensorModel) Type() SensorType       { return s.kind }
func (s *SensorModel) IsSpectral() bool       { return s.kind.IsSpectral() }
func (s *SensorModel) IsRadar() bool          { return s.kind.IsRadar() }
func (s *SensorModel) NumberOfMissions() int  { return len(s.rates) }
func (s *SensorModel) NumberOfQualities() int { return len(s.rates[0]) }

func (s *SensorModel) GetCollectionRate(missionIndex, qualityIndex int) float64 {
	if !s.inTable(missionIndex, qualityIndex) {
		return 0
	}
	return s.rates[missionIndex][qualityIndex]
}

func (s *SensorModel) GetResourceWeight(missionIndex, qualityIndex int) float64 {
	if s.weights == nil {
		return 1
	}
	if !s.inTable(missionIndex, qualityIndex) {
		return 0
	}
	return s.weights[missionIndex][qualityIndex]
}

// QualityIndex maps deck quality onto a quality index. Non-spectral deck
// qualities are 1-based levels; spectral deck qualities are GSD values
// placed into the first bin whose bound they do not exceed.
func (s *SensorModel) QualityIndex(qualityLevel int) (int, bool) {
	if qualityLevel <= 0 {
		return -1, false
	}
	if s.IsSpectral() {
		for i, bound := range s.qualityBins {
			if float64(qualityLevel) <= bound {
				return i, true
			}
		}
		return -1, false
	}
	idx := qualityLevel - 1
	if idx >= s.NumberOfQualities() {
		return -1, false
	}
	return idx, true
}

func (s *SensorModel) BetterQuality(a, b int) bool {
	if s.IsSpectral() {
		return a < b
	}
	return a > b
}

func (s *SensorModel) inTable(missionIndex, qualityIndex int) bool {
	return missionIndex >= 0 && missionIndex < len(s.rates) &&
		qualityIndex >= 0 && qualityIndex < len(s.rates[missionIndex])
}
