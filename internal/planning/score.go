package planning

import (
	"math"
	"strings"

	"github.com/signalsfoundry/mural/internal/errs"
)

// priorityExponentOffset and priorityExponentScale turn a deck priority
// number into the exponent of the priority factor: 9 - p/100.
const (
	priorityExponentOffset = 9.0
	priorityExponentScale  = 100.0
)

// PriorityFactor is coefficient * base^(9 - priorityNumber/100).
type PriorityFactor struct {
	Coefficient float64
	Base        float64
}

// ScoreFactors holds every configured multiplier used to score a deck
// target for one sensor.
type ScoreFactors struct {
	Optical PriorityFactor
	Radar   PriorityFactor

	// CountryFactors maps a country code to its multiplier;
	// DefaultCountryFactor applies to codes not listed.
	CountryFactors       map[string]float64
	DefaultCountryFactor float64

	// TimelinessFactors maps a deck timeliness code to a multiplier. Codes
	// not listed score 1.
	TimelinessFactors map[int]float64
}

// Validate reports every malformed factor at once.
func (f *ScoreFactors) Validate() error {
	c := errs.NewCollector("ScoreFactors", "Validate")
	for name, pf := range map[string]PriorityFactor{"optical": f.Optical, "radar": f.Radar} {
		if pf.Coefficient <= 0 {
			c.Addf("%s priority coefficient must be positive", name)
		}
		if pf.Base <= 0 {
			c.Addf("%s priority exponent base must be positive", name)
		}
	}
	if f.DefaultCountryFactor < 0 {
		c.Addf("default country factor is negative")
	}
	for code, v := range f.CountryFactors {
		if v < 0 {
			c.Addf("country factor for %q is negative", code)
		}
	}
	for code, v := range f.TimelinessFactors {
		if v < 0 {
			c.Addf("timeliness factor for %d is negative", code)
		}
	}
	return c.Err()
}

// CountryFactor returns the multiplier for a country code.
func (f *ScoreFactors) CountryFactor(code string) float64 {
	if v, ok := f.CountryFactors[strings.ToUpper(code)]; ok {
		return v
	}
	return f.DefaultCountryFactor
}

// TimelinessFactor returns the multiplier for a timeliness code.
func (f *ScoreFactors) TimelinessFactor(code int) float64 {
	if v, ok := f.TimelinessFactors[code]; ok {
		return v
	}
	return 1
}

// PriorityFactor returns the nonlinear priority weight for a priority number.
func (f *ScoreFactors) PriorityFactor(priorityNumber int, radar bool) float64 {
	pf := f.Optical
	if radar {
		pf = f.Radar
	}
	exponent := priorityExponentOffset - float64(priorityNumber)/priorityExponentScale
	return pf.Coefficient * math.Pow(pf.Base, exponent)
}

// CalculateSensorScore scores a target for one sensor. When scoreByArea is
// set the score also scales with the target's total area.
func (f *ScoreFactors) CalculateSensorScore(countryCode string, timeliness, priorityNumber int, radar, scoreByArea bool, totalArea float64) float64 {
	score := f.CountryFactor(countryCode)
	if scoreByArea {
		score *= totalArea
	}
	score *= f.TimelinessFactor(timeliness)
	score *= f.PriorityFactor(priorityNumber, radar)
	return score
}

// PriorityIndex decomposes a deck priority number into a priority index
// clamped to [0, numberOfPriorities) and a sub-priority level.
func PriorityIndex(priorityNumber, numberOfPriorities int) (priorityIndex, subPriority int) {
	priorityIndex = priorityNumber/100 - 1
	if priorityIndex < 0 {
		priorityIndex = 0
	}
	if numberOfPriorities > 0 && priorityIndex >= numberOfPriorities {
		priorityIndex = numberOfPriorities - 1
	}
	return priorityIndex, priorityNumber % 100
}
