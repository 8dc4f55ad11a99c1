package scheduler

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Pass names a scheduling pass.
type Pass string

const (
	PassRequested Pass = "requested"
	PassAllocated Pass = "allocated"
)

// Selection is the most valuable region/sensor chosen for one vehicle at
// one time step.
type Selection struct {
	Pass         Pass      `yaml:"pass"`
	TimeIndex    int       `yaml:"time_index"`
	Time         time.Time `yaml:"time"`
	Vehicle      string    `yaml:"vehicle"`
	Region       string    `yaml:"region"`
	Sensor       string    `yaml:"sensor"`
	Score        float64   `yaml:"score"`
	Seconds      float64   `yaml:"seconds"`
	Crisis       bool      `yaml:"crisis,omitempty"`
	Requirements []int     `yaml:"requirements,omitempty"`
}

// LinkRun is a contiguous run of allocated steps on one link.
type LinkRun struct {
	Link  string `yaml:"link"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// AntennaAssignment is the best fit slot table of one receiving antenna.
type AntennaAssignment struct {
	Antenna string  `yaml:"antenna"`
	Slots   [][]int `yaml:"slots"`
}

// TargetOutcome reports the best collection problem set of a target after
// the allocated pass.
type TargetOutcome struct {
	ID      string  `yaml:"id"`
	Deck    int     `yaml:"deck"`
	Mission int     `yaml:"mission"`
	BestCPS int     `yaml:"best_cps"`
	Score   float64 `yaml:"score"`
}

// Plan is the result of one scheduling run.
type Plan struct {
	RunID              string    `yaml:"run_id"`
	Start              time.Time `yaml:"start"`
	SecondsPerTimeStep float64   `yaml:"seconds_per_time_step"`
	NumberOfTimeSteps  int       `yaml:"number_of_time_steps"`

	Requested   []Selection         `yaml:"requested"`
	Allocated   []Selection         `yaml:"allocated"`
	Links       []LinkRun           `yaml:"links"`
	Assignments []AntennaAssignment `yaml:"assignments"`
	Targets     []TargetOutcome     `yaml:"targets"`

	// GatedSteps counts vehicle steps skipped in the allocated pass for
	// lack of a mission link.
	GatedSteps int `yaml:"gated_steps"`
}

// RequestedScore sums the requested pass.
func (p *Plan) RequestedScore() float64 { return totalScore(p.Requested) }

// AllocatedScore sums the allocated pass.
func (p *Plan) AllocatedScore() float64 { return totalScore(p.Allocated) }

func totalScore(sel []Selection) float64 {
	scores := make([]float64, len(sel))
	for i, s := range sel {
		scores[i] = s.Score
	}
	return floats.Sum(scores)
}
