package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/mural/core"
	"github.com/signalsfoundry/mural/internal/antenna"
	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/logging"
	"github.com/signalsfoundry/mural/internal/planning"
	"github.com/signalsfoundry/mural/model"
	"github.com/signalsfoundry/mural/timectrl"
)

const tracerName = "github.com/signalsfoundry/mural/internal/scheduler"

// MetricsRecorder receives scheduling measurements. The observability
// package provides a Prometheus implementation.
type MetricsRecorder interface {
	SetRequirements(n int)
	SetTimeStep(timeIndex int)
	ObserveSelection(pass, sensor string, score float64)
	IncLinkAllocation(antenna string)
	IncCapacityRejection(antenna string)
}

type noopMetrics struct{}

func (noopMetrics) SetRequirements(int)                      {}
func (noopMetrics) SetTimeStep(int)                          {}
func (noopMetrics) ObserveSelection(string, string, float64) {}
func (noopMetrics) IncLinkAllocation(string)                 {}
func (noopMetrics) IncCapacityRejection(string)              {}

// Input is everything one scheduling run works on. Requirements must
// already hold every deck's contributions.
type Input struct {
	TimePiece    *timectrl.TimePiece
	Environment  *planning.Environment
	Requirements *planning.RequirementMap
	Decks        []*planning.TargetDeck
	Regions      []*model.Region
	CrisisAreas  []*planning.CrisisArea
	Fleet        *Fleet

	// SensorElevation is the minimum elevation, per sensor, at which a
	// region centre sees the vehicle well enough to collect.
	SensorElevation []float64
	// ValidMissions restricts selection to flagged missions; nil allows all.
	ValidMissions   []bool
	SwitchThreshold int
}

func (in *Input) validate() error {
	c := errs.NewCollector("Scheduler", "New")
	c.Require(in.TimePiece != nil, "time piece")
	c.Require(in.Environment != nil, "environment")
	c.Require(in.Requirements != nil, "requirement map")
	c.Require(in.Fleet != nil, "fleet")
	if in.Environment != nil && len(in.SensorElevation) != len(in.Environment.Sensors) {
		c.Addf("%d sensor elevations for %d sensors", len(in.SensorElevation), len(in.Environment.Sensors))
	}
	if in.Environment != nil && in.Fleet != nil && in.Environment.NumberOfResources != in.Fleet.NumberOfResources() {
		c.Addf("environment has %d resources, fleet has %d vehicles", in.Environment.NumberOfResources, in.Fleet.NumberOfResources())
	}
	if in.Fleet != nil {
		for i, v := range in.Fleet.Vehicles {
			if v.Antenna.ResourceIndex() != i {
				c.Addf("vehicle %s has resource index %d, want %d", v.Element.Designator, v.Antenna.ResourceIndex(), i)
			}
		}
	}
	if in.SwitchThreshold < 0 {
		c.Addf("switch threshold %d is negative", in.SwitchThreshold)
	}
	return c.Err()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the base logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer overrides the tracer used for pass and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.tracer = t
		}
	}
}

// Scheduler drives one planning run: it allocates links within antenna
// capacity, then runs the requested and allocated most valuable region
// passes over every time step.
type Scheduler struct {
	in      Input
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer

	links        []*antenna.Link
	runStart     map[*antenna.Link]int
	windowEnd    map[*antenna.Link][]int
	regionInview [][][][]bool // [vehicle][region][sensor][step]
	crisisByRgn  map[string]*planning.CrisisArea
}

// New validates the input and builds a scheduler.
func New(in Input, opts ...Option) (*Scheduler, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		in:          in,
		log:         logging.Noop(),
		metrics:     noopMetrics{},
		tracer:      otel.Tracer(tracerName),
		runStart:    make(map[*antenna.Link]int),
		windowEnd:   make(map[*antenna.Link][]int),
		crisisByRgn: make(map[string]*planning.CrisisArea),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range in.CrisisAreas {
		s.crisisByRgn[model.FormatRegionNumber(c.FullRegionNumber)] = c
	}
	in.TimePiece.AddListener(func(timeIndex int, _ time.Time) error {
		s.metrics.SetTimeStep(timeIndex)
		return nil
	})
	return s, nil
}

// Run executes the whole run and returns the resulting plan.
func (s *Scheduler) Run(ctx context.Context) (*Plan, error) {
	ctx, runID := logging.EnsureRunID(ctx)
	ctx, log := logging.WithRunLogger(ctx, s.log)
	tp := s.in.TimePiece

	ctx, span := s.tracer.Start(ctx, "Scheduler/Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("time_steps", tp.GetNumberOfTimeSteps()),
		attribute.Int("vehicles", len(s.in.Fleet.Vehicles)),
	))
	defer span.End()

	s.metrics.SetRequirements(s.in.Requirements.NumberOfRequirements())
	log.Info(ctx, "scheduling run started",
		logging.Int("requirements", s.in.Requirements.NumberOfRequirements()),
		logging.Int("vehicles", len(s.in.Fleet.Vehicles)),
		logging.Int("receivers", len(s.in.Fleet.Receivers)),
		logging.Int("time_steps", tp.GetNumberOfTimeSteps()),
	)

	plan := &Plan{
		RunID:              runID,
		Start:              tp.Start(),
		SecondsPerTimeStep: tp.GetSecondsPerTimeStep(),
		NumberOfTimeSteps:  tp.GetNumberOfTimeSteps(),
	}

	s.prepareVisibility()

	if err := s.allocateLinks(ctx, log); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("link allocation: %w", err)
	}

	requested, _, err := s.mvrPass(ctx, log, PassRequested)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("requested pass: %w", err)
	}
	plan.Requested = requested

	for deck := 0; deck < s.in.Environment.NumberOfDecks; deck++ {
		s.in.Requirements.ResetScoreAndArea(deck, nil)
	}
	for _, d := range s.in.Decks {
		for _, t := range d.Targets() {
			t.ResetAchievement()
		}
	}

	allocated, gated, err := s.mvrPass(ctx, log, PassAllocated)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("allocated pass: %w", err)
	}
	plan.Allocated = allocated
	plan.GatedSteps = gated

	plan.Targets = s.targetOutcomes()

	for _, r := range s.in.Fleet.Receivers {
		slots, err := r.Antenna.MakeBestFitAllocatedAssetAssignments(tp.GetNumberOfTimeSteps(), s.in.SwitchThreshold)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("asset assignment for %s: %w", r.Antenna.Designator(), err)
		}
		plan.Assignments = append(plan.Assignments, AntennaAssignment{Antenna: r.Antenna.Designator(), Slots: slots})
	}
	plan.Links = linkRuns(s.links)

	span.SetAttributes(
		attribute.Float64("requested_score", plan.RequestedScore()),
		attribute.Float64("allocated_score", plan.AllocatedScore()),
	)
	log.Info(ctx, "scheduling run finished",
		logging.Float("requested_score", plan.RequestedScore()),
		logging.Float("allocated_score", plan.AllocatedScore()),
		logging.Int("gated_steps", plan.GatedSteps),
		logging.Int("link_runs", len(plan.Links)),
	)
	return plan, nil
}

// Links returns the links built by the last run.
func (s *Scheduler) Links() []*antenna.Link { return s.links }

func (s *Scheduler) prepareVisibility() {
	tp := s.in.TimePiece
	fleet := s.in.Fleet
	s.links = fleet.BuildLinks(tp)
	for _, l := range s.links {
		ends := make([]int, l.NumberOfTimeSteps())
		for i := range ends {
			ends[i] = -1
		}
		for _, w := range l.ContactWindows() {
			for t := w.Start; t <= w.End; t++ {
				ends[t] = w.End
			}
		}
		s.windowEnd[l] = ends
	}

	s.regionInview = make([][][][]bool, len(fleet.Vehicles))
	for vi, v := range fleet.Vehicles {
		s.regionInview[vi] = make([][][]bool, len(s.in.Regions))
		for ri, region := range s.in.Regions {
			center := core.FromCoordinates(region.Center)
			s.regionInview[vi][ri] = make([][]bool, len(s.in.Environment.Sensors))
			for si := range s.in.Environment.Sensors {
				if !v.carries(si) {
					continue
				}
				s.regionInview[vi][ri][si] = core.RegionInview(tp, v.Journey, center, s.in.SensorElevation[si])
			}
		}
	}
}

// allocateLinks walks the time steps granting links in two rounds: links
// that were running at the previous step keep going first, then new
// contacts are granted in designator order while capacity remains.
func (s *Scheduler) allocateLinks(ctx context.Context, log logging.Logger) error {
	ctx, span := s.tracer.Start(ctx, "Scheduler/AllocateLinks")
	defer span.End()

	granted := 0
	err := s.in.TimePiece.Run(ctx, func(ctx context.Context, t int, _ time.Time) error {
		for _, v := range s.in.Fleet.Vehicles {
			for _, l := range v.Antenna.Links() {
				if !l.IsInview(t) || !running(l, t-1) {
					continue
				}
				ok, err := s.grant(ctx, log, v, l, t)
				if err != nil {
					return err
				}
				if ok {
					granted++
				}
			}
		}
		for _, v := range s.in.Fleet.Vehicles {
			for _, l := range v.Antenna.Links() {
				if !l.IsInview(t) || (l.IsAllocated(t) && !l.IsPrepOnly(t)) {
					continue
				}
				if v.Antenna.CheckCapacityFull(t) {
					break
				}
				ok, err := s.grant(ctx, log, v, l, t)
				if err != nil {
					return err
				}
				if ok {
					granted++
				}
			}
		}
		return nil
	})
	span.SetAttributes(attribute.Int("granted_steps", granted))
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Info(ctx, "links allocated", logging.Int("links", len(s.links)), logging.Int("granted_steps", granted))
	return nil
}

// grant allocates l at t on both ends and reports whether it was granted.
// A capacity rejection is recorded and is not an error.
func (s *Scheduler) grant(ctx context.Context, log logging.Logger, v *Vehicle, l *antenna.Link, t int) (bool, error) {
	r := s.in.Fleet.receiverFor(l.GetReceiveDesignator())
	if r == nil {
		return false, fmt.Errorf("link %s has no receiver", l)
	}
	timing := combinedTiming(v.Antenna.Timing(), r.Antenna.Timing())
	if !running(l, t-1) {
		s.runStart[l] = t
	}
	status := s.stepStatus(l, t, timing, r.StateOfHealth)
	err := antenna.AllocateLink(l, t, status, v.Antenna.Antenna, r.Antenna)
	switch {
	case err == nil:
		s.metrics.IncLinkAllocation(r.Antenna.Designator())
	case errors.Is(err, errs.ErrCapacityExceeded):
		s.metrics.IncCapacityRejection(r.Antenna.Designator())
		log.Debug(ctx, "link rejected for capacity", logging.String("link", l.String()), logging.Int("time_index", t))
		return false, nil
	default:
		return false, err
	}
	if s.runStart[l] == t {
		if err := allocatePrep(l, t, timing.PrepSteps, v.Antenna.Antenna, r.Antenna); err != nil {
			return true, err
		}
	}
	return true, nil
}

// stepStatus is the allocation state of l at t given when its run began
// and where its contact window ends.
func (s *Scheduler) stepStatus(l *antenna.Link, t int, timing antenna.Timing, stateOfHealth bool) antenna.AllocationStatus {
	status := antenna.Mission
	if t-s.runStart[l] < timing.AcquisitionSteps {
		status = antenna.Acquisition
	}
	if end := s.windowEnd[l][t]; end >= 0 && end-t < timing.DropLinkSteps {
		status |= antenna.DropLink
	}
	if stateOfHealth {
		status |= antenna.StateOfHealth
	}
	return status
}

// allocatePrep books the prep steps ahead of a new run where both ends
// still have room. Steps that are full are left unprepared.
func allocatePrep(l *antenna.Link, start, prepSteps int, ends ...*antenna.Antenna) error {
	for t := start - prepSteps; t < start; t++ {
		if t < 0 || l.IsAllocated(t) {
			continue
		}
		err := antenna.AllocateLink(l, t, antenna.TransmitPrep|antenna.ReceivePrep, ends...)
		if err != nil && !errors.Is(err, errs.ErrCapacityExceeded) {
			return err
		}
	}
	return nil
}

func running(l *antenna.Link, t int) bool {
	return l.Status(t)&(antenna.Acquisition|antenna.Mission) != 0
}

func combinedTiming(a, b antenna.Timing) antenna.Timing {
	return antenna.Timing{
		PrepSteps:        max(a.PrepSteps, b.PrepSteps),
		AcquisitionSteps: max(a.AcquisitionSteps, b.AcquisitionSteps),
		DropLinkSteps:    max(a.DropLinkSteps, b.DropLinkSteps),
	}
}

// mvrPass selects, for every vehicle at every step, the region and sensor
// with the highest achievable score and commits it. The requested pass is
// resource-agnostic and ungated; the allocated pass works per resource and
// only while the vehicle holds a mission link.
func (s *Scheduler) mvrPass(ctx context.Context, log logging.Logger, pass Pass) ([]Selection, int, error) {
	ctx, span := s.tracer.Start(ctx, "Scheduler/"+string(pass), trace.WithAttributes(attribute.String("pass", string(pass))))
	defer span.End()

	var selections []Selection
	gated := 0
	fullTimeStep := s.in.TimePiece.GetSecondsPerTimeStep()

	err := s.in.TimePiece.Run(ctx, func(ctx context.Context, t int, at time.Time) error {
		ctx, stepSpan := s.tracer.Start(ctx, "Scheduler/Step", trace.WithAttributes(
			attribute.String("pass", string(pass)),
			attribute.Int("time_index", t),
		))
		defer stepSpan.End()

		for vi, v := range s.in.Fleet.Vehicles {
			resource := -1
			if pass == PassAllocated {
				resource = v.Antenna.ResourceIndex()
				if !v.Antenna.HasMissionLink(t) {
					gated++
					continue
				}
			}
			sel, ok, err := s.selectAndCommit(vi, t, fullTimeStep, resource)
			if err != nil {
				stepSpan.RecordError(err)
				return fmt.Errorf("vehicle %s: %w", v.Element.Designator, err)
			}
			if !ok {
				continue
			}
			sel.Pass, sel.TimeIndex, sel.Time, sel.Vehicle = pass, t, at, v.Element.Designator
			selections = append(selections, sel)
			s.metrics.ObserveSelection(string(pass), sel.Sensor, sel.Score)
			log.Debug(ctx, "region selected",
				logging.String("pass", string(pass)),
				logging.Int("time_index", t),
				logging.String("vehicle", sel.Vehicle),
				logging.String("region", sel.Region),
				logging.String("sensor", sel.Sensor),
				logging.Float("score", sel.Score),
			)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if pass == PassAllocated && gated > 0 {
		log.Warn(ctx, "vehicle steps without a mission link", logging.Int("gated_steps", gated))
	}
	span.SetAttributes(attribute.Int("selections", len(selections)), attribute.Int("gated_steps", gated))
	log.Info(ctx, "pass finished",
		logging.String("pass", string(pass)),
		logging.Int("selections", len(selections)),
		logging.Float("score", totalScore(selections)),
	)
	return selections, gated, nil
}

func (s *Scheduler) selectAndCommit(vi, t int, fullTimeStep float64, resource int) (Selection, bool, error) {
	sensors := s.in.Environment.Sensors

	var best *planning.RegionData
	bestScore := 0.0
	for ri, region := range s.in.Regions {
		for si, sensor := range sensors {
			inview := s.regionInview[vi][ri][si]
			if inview == nil || !inview[t] {
				continue
			}
			rd := s.regionData(region, sensor, t)
			score, err := rd.GetAchievableScore(fullTimeStep, resource)
			if err != nil {
				return Selection{}, false, err
			}
			if score > bestScore {
				best, bestScore = rd, score
			}
		}
	}
	if best == nil {
		return Selection{}, false, nil
	}

	chosen := best.MostValuableRequirements(resource)
	beforeScore := make([]float64, len(chosen))
	beforeArea := make([]float64, len(chosen))
	for i, req := range chosen {
		beforeScore[i] = req.GetRemainingScore(resource)
		beforeArea[i] = req.GetRemainingArea(resource)
	}
	used, err := best.UpdateMostValuableRequirements(fullTimeStep, resource)
	if err != nil {
		return Selection{}, false, err
	}

	full := best.Region().FullRegionNumber()
	sel := Selection{
		Region:  model.FormatRegionNumber(full),
		Sensor:  best.Sensor().Name(),
		Score:   bestScore,
		Seconds: used,
		Crisis:  best.CrisisArea() != nil,
	}
	for i, req := range chosen {
		sel.Requirements = append(sel.Requirements, req.Index())
		if resource < 0 || req.GetRemainingScore(resource) >= beforeScore[i] {
			continue
		}
		if err := s.in.Requirements.SetHighestQuality(full, req.SensorIndex(), req.QualityIndex(), req.MissionIndex()); err != nil {
			return Selection{}, false, err
		}
		collected := beforeArea[i] - req.GetRemainingArea(resource)
		for _, tr := range s.in.Requirements.TargetRegions(full) {
			if tr.MissionIndex() == req.MissionIndex() {
				tr.AddCollectedArea(req.SensorIndex(), collected)
			}
		}
	}
	return sel, true, nil
}

// regionData builds the selection context of one region and sensor at t.
// A crisis area is attached only while it is active.
func (s *Scheduler) regionData(region *model.Region, sensor planning.Sensor, t int) *planning.RegionData {
	full := region.FullRegionNumber()
	reqs := s.in.Requirements.RequirementsForSensor(full, sensor.Index(), s.in.Environment.NumberOfDecks)
	opts := []planning.RegionDataOption{
		planning.WithTimeStep(s.in.TimePiece.GetSecondsPerTimeStep()),
	}
	if s.in.ValidMissions != nil {
		opts = append(opts, planning.WithValidMissions(s.in.ValidMissions))
	}
	if c := s.crisisByRgn[model.FormatRegionNumber(full)]; c.IsActive(t) {
		opts = append(opts, planning.WithCrisisArea(c))
	}
	return planning.NewRegionData(region, sensor, reqs, opts...)
}

func (s *Scheduler) targetOutcomes() []TargetOutcome {
	var out []TargetOutcome
	for _, d := range s.in.Decks {
		for _, t := range d.Targets() {
			cps := t.DetermineBestCollectionProblemSet(s.in.Environment.Sensors)
			o := TargetOutcome{ID: t.ID(), Deck: t.DeckIndex(), Mission: t.MissionIndex(), Score: t.BestAchievableScore()}
			if cps != nil {
				o.BestCPS = cps.Number()
			}
			out = append(out, o)
		}
	}
	return out
}

// linkRuns lists the contiguous acquisition/mission runs of every link.
func linkRuns(links []*antenna.Link) []LinkRun {
	var out []LinkRun
	for _, l := range links {
		start := -1
		for t := 0; t <= l.NumberOfTimeSteps(); t++ {
			on := t < l.NumberOfTimeSteps() && running(l, t)
			switch {
			case on && start < 0:
				start = t
			case !on && start >= 0:
				out = append(out, LinkRun{Link: l.String(), Start: start, End: t - 1})
				start = -1
			}
		}
	}
	return out
}
