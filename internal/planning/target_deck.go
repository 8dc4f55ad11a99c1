package planning

import (
	"context"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/logging"
	"github.com/signalsfoundry/mural/model"
)

// Environment is the run-wide planning context shared by every deck. It is
// built once from configuration and passed explicitly.
type Environment struct {
	Sensors            []Sensor
	NumberOfMissions   int
	NumberOfPriorities int
	NumberOfDecks      int
	NumberOfResources  int
	Scoring            *ScoreFactors
	Effectivity        *Effectivity
}

// Validate reports every missing or inconsistent environment setting.
func (e *Environment) Validate() error {
	c := errs.NewCollector("Environment", "Validate")
	c.Require(len(e.Sensors) > 0, "sensors")
	c.Require(e.NumberOfMissions > 0, "number of missions")
	c.Require(e.NumberOfPriorities > 0, "number of priorities")
	c.Require(e.NumberOfDecks > 0, "number of decks")
	c.Require(e.Scoring != nil, "score factors")
	c.Require(e.Effectivity != nil, "effectivity")
	for i, s := range e.Sensors {
		if s.Index() != i {
			c.Addf("sensor %q has index %d, want %d", s.Name(), s.Index(), i)
		}
	}
	if e.Scoring != nil {
		c.Merge(e.Scoring.Validate())
	}
	return c.Err()
}

// DeckSettings configures one target deck.
type DeckSettings struct {
	Index int
	Name  string

	// ActiveSensors flags the sensors this deck builds requirements for;
	// nil activates every sensor.
	ActiveSensors []bool
	ScoreByArea   bool
}

func (s DeckSettings) sensorActive(sensorIndex int) bool {
	if s.ActiveSensors == nil {
		return true
	}
	return sensorIndex < len(s.ActiveSensors) && s.ActiveSensors[sensorIndex]
}

// TargetDeckOption configures optional TargetDeck behaviour.
type TargetDeckOption func(*TargetDeck)

// WithDeckLogger sets the logger used while loading.
func WithDeckLogger(l logging.Logger) TargetDeckOption {
	return func(d *TargetDeck) {
		if l != nil {
			d.log = l
		}
	}
}

// TargetDeck turns deck records into Targets and folds their value into a
// RequirementMap.
type TargetDeck struct {
	env      *Environment
	settings DeckSettings
	log      logging.Logger

	targets []*Target
	skipped int
}

// NewTargetDeck validates the deck settings against the environment.
func NewTargetDeck(env *Environment, settings DeckSettings, opts ...TargetDeckOption) (*TargetDeck, error) {
	if err := env.Validate(); err != nil {
		return nil, errs.Annotate(err, "TargetDeck::NewTargetDeck")
	}
	if err := errs.CheckIndex("TargetDeck", "NewTargetDeck", "deck index", settings.Index, env.NumberOfDecks); err != nil {
		return nil, err
	}
	d := &TargetDeck{env: env, settings: settings, log: logging.Noop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(logging.String("deck", settings.Name), logging.Int("deck_index", settings.Index))
	return d, nil
}

func (d *TargetDeck) Settings() DeckSettings { return d.settings }
func (d *TargetDeck) Targets() []*Target     { return d.targets }
func (d *TargetDeck) NumberOfSkipped() int   { return d.skipped }

type sensorQuality struct {
	sensor  Sensor
	level   int
	quality int
}

// RetrieveTargetsAndBuildRequirements loads records in order. Consecutive
// records with the same target ID and mission form one Target, each record
// adding one collection problem set. Records that are not date-effective
// or request no active sensor are skipped and end the current run. Malformed records are collected
// and reported together after the whole deck has been read.
func (d *TargetDeck) RetrieveTargetsAndBuildRequirements(ctx context.Context, records []DeckRecord, reqMap *RequirementMap) error {
	const method = "TargetDeck::RetrieveTargetsAndBuildRequirements"
	c := errs.NewCollector("TargetDeck", "RetrieveTargetsAndBuildRequirements")

	var current *Target
	for i := range records {
		rec := &records[i]
		effective, err := d.env.Effectivity.EffectiveTarget(rec.Status, rec.DateString, rec.DurationDays)
		if err != nil {
			c.Addf("line %d target %s: %v", rec.Line, rec.TargetID, err)
			current = nil
			continue
		}
		if !effective {
			d.skipped++
			current = nil
			continue
		}
		missionIndex := rec.MissionNumber - 1
		if missionIndex < 0 || missionIndex >= d.env.NumberOfMissions {
			c.Addf("line %d target %s: mission number %d not in [1, %d]", rec.Line, rec.TargetID, rec.MissionNumber, d.env.NumberOfMissions)
			current = nil
			continue
		}
		if len(rec.Qualities) != len(d.env.Sensors) {
			c.Addf("line %d target %s: %d qualities for %d sensors", rec.Line, rec.TargetID, len(rec.Qualities), len(d.env.Sensors))
			current = nil
			continue
		}
		requested := d.requestedSensors(rec)
		if len(requested) == 0 {
			d.skipped++
			current = nil
			continue
		}

		if current == nil || !current.SameTarget(rec.TargetID, missionIndex) {
			current = NewTarget(rec.TargetID, d.settings.Index, missionIndex, rec.CountryCode, rec.PointTarget, rec.Timeliness)
			d.targets = append(d.targets, current)
		}
		if err := d.addRecord(current, rec, requested, reqMap); err != nil {
			return errs.Annotate(err, method)
		}
	}

	d.log.Info(ctx, "target deck loaded",
		logging.Int("records", len(records)),
		logging.Int("targets", len(d.targets)),
		logging.Int("skipped", d.skipped),
		logging.Int("requirements", reqMap.NumberOfRequirements()),
	)
	return errs.Annotate(c.Err(), method)
}

func (d *TargetDeck) requestedSensors(rec *DeckRecord) []sensorQuality {
	var out []sensorQuality
	for i, s := range d.env.Sensors {
		if !d.settings.sensorActive(i) || rec.Qualities[i] <= 0 {
			continue
		}
		q, ok := s.QualityIndex(rec.Qualities[i])
		if !ok {
			continue
		}
		out = append(out, sensorQuality{sensor: s, level: rec.Qualities[i], quality: q})
	}
	return out
}

func (d *TargetDeck) addRecord(t *Target, rec *DeckRecord, requested []sensorQuality, reqMap *RequirementMap) error {
	priorityIndex, subPriority := PriorityIndex(rec.PriorityNumber, d.env.NumberOfPriorities)

	recordArea := 0.0
	for _, ra := range rec.Regions {
		if tr, isNew := t.AddRegion(ra.Region, ra.SubRegion, ra.Area); isNew {
			reqMap.AddTargetRegion(tr.FullRegionNumber(), tr)
		}
		recordArea += ra.Area
	}

	cps := NewCollectionProblemSet(len(t.problemSets)+1, rec.Scenario, priorityIndex, subPriority)
	for _, sq := range requested {
		score := d.env.Scoring.CalculateSensorScore(rec.CountryCode, rec.Timeliness, rec.PriorityNumber,
			sq.sensor.IsRadar(), d.settings.ScoreByArea, recordArea)
		cps.AddSensorCollection(SensorCollection{
			SensorIndex:  sq.sensor.Index(),
			QualityLevel: sq.level,
			QualityIndex: sq.quality,
			Score:        score,
		})

		for _, ra := range rec.Regions {
			share := 1 / float64(len(rec.Regions))
			if !rec.PointTarget && recordArea > 0 {
				share = ra.Area / recordArea
			}
			points := 0
			if rec.PointTarget {
				points = 1
			}
			_, err := reqMap.UpdateRequirementData(model.FullRegionNumber(ra.Region, ra.SubRegion), d.settings.Index,
				sq.sensor.Index(), t.missionIndex, sq.quality, priorityIndex, subPriority,
				score*share, ra.Area, points, d.env.NumberOfDecks, d.env.NumberOfResources)
			if err != nil {
				return err
			}
		}
	}
	t.AddProblemSet(cps)
	return nil
}

// DestroyTargetDeck releases every target built by the deck.
func (d *TargetDeck) DestroyTargetDeck() {
	d.targets = nil
	d.skipped = 0
}
