package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/mural/core"
	"github.com/signalsfoundry/mural/internal/antenna"
	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/planning"
	"github.com/signalsfoundry/mural/internal/scheduler"
	"github.com/signalsfoundry/mural/model"
	"github.com/signalsfoundry/mural/timectrl"
)

func parseEffectivity(s string) (planning.EffectivityPolicy, error) {
	return planning.ParseEffectivityPolicy(s)
}

func parseSensorType(s string) (planning.SensorType, error) {
	return planning.ParseSensorType(s)
}

// TimePiece builds the simulation clock.
func (c *Config) TimePiece() (*timectrl.TimePiece, error) {
	start, err := time.Parse(time.RFC3339, c.Simulation.Start)
	if err != nil {
		return nil, fmt.Errorf("simulation.start: %w", err)
	}
	return timectrl.NewTimePiece(start.UTC(), c.Simulation.SecondsPerTimeStep, c.Simulation.NumberOfTimeSteps)
}

// Sensors builds the sensor models in configuration order.
func (c *Config) Sensors() ([]planning.Sensor, error) {
	out := make([]planning.Sensor, 0, len(c.SensorConfigs))
	for i, s := range c.SensorConfigs {
		kind, err := parseSensorType(s.Type)
		if err != nil {
			return nil, err
		}
		m, err := planning.NewSensorModel(i, s.Name, kind, s.Rates, s.Weights, s.QualityBins)
		if err != nil {
			return nil, errs.Annotate(err, "Config::Sensors")
		}
		out = append(out, m)
	}
	return out, nil
}

// SensorElevation lists each sensor's minimum collection elevation.
func (c *Config) SensorElevation() []float64 {
	out := make([]float64, len(c.SensorConfigs))
	for i, s := range c.SensorConfigs {
		out[i] = s.MinElevationDeg
	}
	return out
}

// ScoreFactors builds the scoring parameters. Country codes are matched
// upper case.
func (c *Config) ScoreFactors() (*planning.ScoreFactors, error) {
	f := &planning.ScoreFactors{
		Optical:              planning.PriorityFactor{Coefficient: c.Scoring.Optical.Coefficient, Base: c.Scoring.Optical.Base},
		Radar:                planning.PriorityFactor{Coefficient: c.Scoring.Radar.Coefficient, Base: c.Scoring.Radar.Base},
		CountryFactors:       make(map[string]float64, len(c.Scoring.CountryFactors)),
		DefaultCountryFactor: c.Scoring.DefaultCountryFactor,
		TimelinessFactors:    make(map[int]float64, len(c.Scoring.TimelinessFactors)),
	}
	for code, v := range c.Scoring.CountryFactors {
		f.CountryFactors[strings.ToUpper(code)] = v
	}
	for code, v := range c.Scoring.TimelinessFactors {
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, errs.NewInputError("Config", "ScoreFactors", fmt.Sprintf("timeliness code %q is not a number", code))
		}
		f.TimelinessFactors[n] = v
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Effectivity builds the deck date filter over the simulation window.
func (c *Config) Effectivity(tp *timectrl.TimePiece) (*planning.Effectivity, error) {
	policy, err := parseEffectivity(c.Simulation.Effectivity)
	if err != nil {
		return nil, err
	}
	end := tp.End()
	if c.Simulation.EffectivityEnd != "" {
		if end, err = time.Parse(time.RFC3339, c.Simulation.EffectivityEnd); err != nil {
			return nil, err
		}
	}
	return &planning.Effectivity{Policy: policy, Start: tp.Start(), End: end}, nil
}

// Environment builds the run-wide planning context.
func (c *Config) Environment(tp *timectrl.TimePiece) (*planning.Environment, error) {
	sensors, err := c.Sensors()
	if err != nil {
		return nil, err
	}
	scoring, err := c.ScoreFactors()
	if err != nil {
		return nil, err
	}
	eff, err := c.Effectivity(tp)
	if err != nil {
		return nil, err
	}
	env := &planning.Environment{
		Sensors:            sensors,
		NumberOfMissions:   c.Missions.Count,
		NumberOfPriorities: c.Priorities,
		NumberOfDecks:      len(c.Decks),
		NumberOfResources:  len(c.userVehicles()),
		Scoring:            scoring,
		Effectivity:        eff,
	}
	return env, env.Validate()
}

// ValidMissions returns the mission mask, or nil when every mission is
// active.
func (c *Config) ValidMissions() []bool {
	if len(c.Missions.Inactive) == 0 {
		return nil
	}
	mask := make([]bool, c.Missions.Count)
	for i := range mask {
		mask[i] = true
	}
	for _, m := range c.Missions.Inactive {
		if m >= 1 && m <= len(mask) {
			mask[m-1] = false
		}
	}
	return mask
}

// DeckSettings builds one settings value per deck, in order.
func (c *Config) DeckSettings() []planning.DeckSettings {
	out := make([]planning.DeckSettings, len(c.Decks))
	for i, d := range c.Decks {
		s := planning.DeckSettings{Index: i, Name: d.Name, ScoreByArea: d.ScoreByArea}
		if len(d.ActiveSensors) > 0 {
			s.ActiveSensors = make([]bool, len(c.SensorConfigs))
			for _, name := range d.ActiveSensors {
				if idx := c.sensorIndex(name); idx >= 0 {
					s.ActiveSensors[idx] = true
				}
			}
		}
		out[i] = s
	}
	return out
}

// Regions builds the collection regions with Earth-fixed centres.
func (c *Config) Regions() []*model.Region {
	out := make([]*model.Region, len(c.RegionConfigs))
	for i, r := range c.RegionConfigs {
		out[i] = &model.Region{
			Number:       r.Number,
			SubRegion:    r.SubRegion,
			CountryCode:  strings.ToUpper(r.Country),
			Center:       core.FromGeodetic(r.LatitudeDeg, r.LongitudeDeg, 0).Coordinates(),
			LatitudeDeg:  r.LatitudeDeg,
			LongitudeDeg: r.LongitudeDeg,
		}
	}
	return out
}

// CrisisAreas builds the configured crisis areas.
func (c *Config) CrisisAreas() []*planning.CrisisArea {
	out := make([]*planning.CrisisArea, len(c.CrisisAreaConfigs))
	for i, ca := range c.CrisisAreaConfigs {
		end := -1
		if ca.EndIndex != nil {
			end = *ca.EndIndex
		}
		out[i] = &planning.CrisisArea{
			FullRegionNumber: model.FullRegionNumber(ca.Region, ca.SubRegion),
			Score:            ca.Score,
			Multiplier:       ca.Multiplier,
			StartIndex:       ca.StartIndex,
			EndIndex:         end,
		}
	}
	return out
}

// Elements builds the constellation elements. User vehicles take resource
// indices in configuration order; every other element has -1.
func (c *Config) Elements() ([]*model.Element, error) {
	out := make([]*model.Element, 0, len(c.ElementConfigs))
	resource := 0
	for _, ec := range c.ElementConfigs {
		kind, err := model.ParseElementType(ec.Type)
		if err != nil {
			return nil, err
		}
		e := &model.Element{
			Designator:    ec.Designator,
			Type:          kind,
			TLELine1:      ec.TLE1,
			TLELine2:      ec.TLE2,
			LatitudeDeg:   ec.LatitudeDeg,
			LongitudeDeg:  ec.LongitudeDeg,
			AltitudeKm:    ec.AltitudeKm,
			ResourceIndex: -1,
		}
		if ec.TLE1 != "" {
			e.MotionSource = model.MotionSourceTLE
		}
		if kind == model.ElementUserVehicle {
			e.ResourceIndex = resource
			resource++
		}
		out = append(out, e)
	}
	return out, nil
}

// Fleet builds the vehicles and receiving antennas with their journeys.
// An antenna designator is "<element>/<antenna name>".
func (c *Config) Fleet() (*scheduler.Fleet, error) {
	elements, err := c.Elements()
	if err != nil {
		return nil, err
	}
	fleet := &scheduler.Fleet{}
	for i, e := range elements {
		ec := c.ElementConfigs[i]
		journey, err := core.JourneyFor(e)
		if err != nil {
			return nil, err
		}
		for _, ac := range ec.Antennas {
			opts, err := antennaOptions(e, ac)
			if err != nil {
				return nil, err
			}
			designator := e.Designator + "/" + ac.Name
			switch e.Type {
			case model.ElementUserVehicle:
				ua, err := antenna.NewUserAntenna(designator, ac.Name, ac.Capacity, e.ResourceIndex, opts...)
				if err != nil {
					return nil, err
				}
				fleet.Vehicles = append(fleet.Vehicles, &scheduler.Vehicle{
					Element: e,
					Journey: journey,
					Antenna: ua,
					Sensors: c.carriedSensors(e.Designator),
				})
			case model.ElementRelaySatellite:
				ra, err := antenna.NewRelayAntenna(designator, ac.Name, ac.Capacity, opts...)
				if err != nil {
					return nil, err
				}
				fleet.Receivers = append(fleet.Receivers, &scheduler.Receiver{Element: e, Journey: journey, Antenna: ra.Antenna})
			case model.ElementGroundStation:
				ga, err := antenna.NewReceiveFacilityAntenna(designator, ac.Name, ac.Capacity, c.facilities(), facilityOf(&ec, ac), ac.StateOfHealth, opts...)
				if err != nil {
					return nil, err
				}
				fleet.Receivers = append(fleet.Receivers, &scheduler.Receiver{
					Element:       e,
					Journey:       journey,
					Antenna:       ga.Antenna,
					StateOfHealth: ga.StateOfHealth(),
				})
			}
		}
	}
	return fleet, nil
}

func antennaOptions(e *model.Element, ac AntennaConfig) ([]antenna.Option, error) {
	defaults := constraintFor(e, ac.Constraints)
	overrides := make(map[string]antenna.Constraint, len(ac.Overrides))
	for _, o := range ac.Overrides {
		overrides[o.Partner] = constraintFor(e, o.Constraint)
	}
	lc, err := antenna.NewLinkConstraints(defaults, overrides)
	if err != nil {
		return nil, errs.Annotate(err, "Config::Fleet")
	}
	opts := []antenna.Option{
		antenna.WithTiming(antenna.Timing{
			PrepSteps:        ac.PrepSteps,
			AcquisitionSteps: ac.AcquisitionSteps,
			DropLinkSteps:    ac.DropLinkSteps,
		}),
		antenna.WithConstraints(lc),
	}
	if len(ac.CapacityPerStep) > 0 {
		opts = append(opts, antenna.WithCapacityPerStep(ac.CapacityPerStep))
	}
	return opts, nil
}

func constraintFor(e *model.Element, cc ConstraintConfig) antenna.Constraint {
	c := antenna.Constraint{MinRangeKm: cc.MinRangeKm, MaxRangeKm: cc.MaxRangeKm}
	switch {
	case cc.MinElevationDeg != nil:
		c.MinElevationDeg = *cc.MinElevationDeg
	case e.Type.IsSpaceBased():
		c.MinElevationDeg = antenna.Unconstrained.MinElevationDeg
	}
	return c
}

// facilities lists the receive facilities; without an explicit list every
// ground station is its own facility.
func (c *Config) facilities() antenna.Facilities {
	if len(c.Facilities) > 0 {
		return antenna.Facilities(c.Facilities)
	}
	var out antenna.Facilities
	for _, e := range c.ElementConfigs {
		if t, err := model.ParseElementType(e.Type); err == nil && t == model.ElementGroundStation {
			out = append(out, e.Designator)
		}
	}
	return out
}

func facilityOf(e *ElementConfig, ac AntennaConfig) string {
	if ac.Facility != "" {
		return ac.Facility
	}
	return e.Designator
}

func (c *Config) userVehicles() []string {
	var out []string
	for _, e := range c.ElementConfigs {
		if isUserVehicle(e.Type) {
			out = append(out, e.Designator)
		}
	}
	return out
}

// carriedSensors lists the sensors a vehicle carries. A sensor without
// carriers is on every vehicle.
func (c *Config) carriedSensors(designator string) []int {
	var out []int
	for i, s := range c.SensorConfigs {
		if len(s.Carriers) == 0 {
			out = append(out, i)
			continue
		}
		for _, carrier := range s.Carriers {
			if carrier == designator {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
