package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/mural/core"
	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/planning"
)

const testConfig = `
simulation:
  start: "2026-01-10T00:00:00Z"
  seconds_per_time_step: 30
  number_of_time_steps: 20
  effectivity: all_active_targets
scoring:
  country_factors:
    aa: 2.5
  timeliness_factors:
    "1": 4
missions:
  count: 2
  inactive: [2]
priorities: 5
sensors:
  - name: EO
    type: visible
    rates: [[1, 2], [1, 2]]
    min_elevation_deg: 20
  - name: HSI
    type: hyperspectral
    carriers: [USER-2]
    rates: [[1], [1]]
    quality_bins: [10]
    min_elevation_deg: 40
decks:
  - name: main
    file: decks/main.deck
  - name: surge
    file: /abs/surge.deck
    active_sensors: [hsi]
regions:
  - { number: 7, subregion: 2, latitude_deg: 10, longitude_deg: 20, country: aa }
crisis_areas:
  - { region: 7, subregion: 2, score: 100, start_index: 3 }
elements:
  - designator: USER-1
    type: user_vehicle
    latitude_deg: 10
    longitude_deg: 20
    altitude_km: 500
    antennas:
      - { name: KU, capacity: 1 }
  - designator: USER-2
    type: user
    latitude_deg: 0
    longitude_deg: 0
    altitude_km: 600
    antennas:
      - { name: KA, capacity: 1 }
  - designator: TDRS-W
    type: relay_satellite
    latitude_deg: 0
    longitude_deg: -171
    altitude_km: 35786
    antennas:
      - name: SA2
        capacity: 1
        acquisition_steps: 2
  - designator: GRGT
    type: ground_station
    latitude_deg: 13.6
    longitude_deg: 144.9
    antennas:
      - name: G1
        capacity: 2
        state_of_health: true
        constraints:
          min_elevation_deg: 5
        overrides:
          - partner: USER-2
            min_elevation_deg: 12
            max_range_km: 2500
assignment:
  switch_threshold: 3
`

func loadTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadReader(strings.NewReader(testConfig), "yaml", "/etc/mural")
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	return cfg
}

func TestLoadReaderAppliesDefaults(t *testing.T) {
	cfg := loadTestConfig(t)
	if cfg.Scoring.Optical.Base != 2 || cfg.Scoring.Optical.Coefficient != 1 || cfg.Scoring.DefaultCountryFactor != 1 {
		t.Fatalf("scoring defaults = %+v", cfg.Scoring)
	}
	if cfg.Logging.Level != "info" || cfg.Assignment.SwitchThreshold != 3 {
		t.Fatalf("logging %+v assignment %+v", cfg.Logging, cfg.Assignment)
	}
	if got := cfg.LoggerConfig(); got.Level != "info" || got.Format != "text" {
		t.Fatalf("LoggerConfig = %+v", got)
	}
	if got, want := cfg.DeckPath(0), filepath.Join("/etc/mural", "decks/main.deck"); got != want {
		t.Fatalf("DeckPath(0) = %q, want %q", got, want)
	}
	if got := cfg.DeckPath(1); got != "/abs/surge.deck" {
		t.Fatalf("DeckPath(1) = %q, want /abs/surge.deck", got)
	}
}

func TestEnvironmentFromConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	tp, err := cfg.TimePiece()
	if err != nil {
		t.Fatalf("TimePiece: %v", err)
	}
	if tp.GetNumberOfTimeSteps() != 20 || tp.GetSecondsPerTimeStep() != 30 {
		t.Fatalf("time piece = %d steps of %v s", tp.GetNumberOfTimeSteps(), tp.GetSecondsPerTimeStep())
	}
	env, err := cfg.Environment(tp)
	if err != nil {
		t.Fatalf("Environment: %v", err)
	}
	if env.NumberOfResources != 2 || env.NumberOfDecks != 2 || env.NumberOfMissions != 2 || env.NumberOfPriorities != 5 {
		t.Fatalf("environment = %+v", env)
	}
	if env.Effectivity.Policy != planning.AllActiveTargets || !env.Effectivity.End.Equal(tp.End()) {
		t.Fatalf("effectivity = %+v", env.Effectivity)
	}
	if got := env.Scoring.CountryFactor("AA"); got != 2.5 {
		t.Fatalf("CountryFactor(AA) = %v, want 2.5", got)
	}
	if got := env.Scoring.TimelinessFactor(1); got != 4 {
		t.Fatalf("TimelinessFactor(1) = %v, want 4", got)
	}
	if !env.Sensors[1].IsSpectral() || env.Sensors[1].Index() != 1 {
		t.Fatalf("sensor 1 = %s", env.Sensors[1].Name())
	}

	settings := cfg.DeckSettings()
	if settings[0].ActiveSensors != nil {
		t.Fatalf("deck 0 mask = %v, want nil", settings[0].ActiveSensors)
	}
	if want := []bool{false, true}; len(settings[1].ActiveSensors) != 2 || settings[1].ActiveSensors[0] != want[0] || settings[1].ActiveSensors[1] != want[1] {
		t.Fatalf("deck 1 mask = %v, want %v", settings[1].ActiveSensors, want)
	}
	if mask := cfg.ValidMissions(); len(mask) != 2 || !mask[0] || mask[1] {
		t.Fatalf("ValidMissions = %v, want [true false]", mask)
	}
	if got := cfg.SensorElevation(); got[0] != 20 || got[1] != 40 {
		t.Fatalf("SensorElevation = %v", got)
	}
}

func TestRegionsAndCrisisAreasFromConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	regions := cfg.Regions()
	if len(regions) != 1 || regions[0].String() != "7.02" || regions[0].CountryCode != "AA" {
		t.Fatalf("regions = %+v", regions)
	}
	centre := core.FromCoordinates(regions[0].Center)
	if d := centre.Magnitude() - core.EarthRadiusKm; d > 1e-6 || d < -1e-6 {
		t.Fatalf("region centre off the surface by %v km", d)
	}
	crises := cfg.CrisisAreas()
	if len(crises) != 1 || crises[0].EndIndex != -1 || !crises[0].IsActive(19) || crises[0].IsActive(2) {
		t.Fatalf("crisis areas = %+v", crises[0])
	}
}

func TestFleetFromConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	fleet, err := cfg.Fleet()
	if err != nil {
		t.Fatalf("Fleet: %v", err)
	}
	if len(fleet.Vehicles) != 2 || len(fleet.Receivers) != 2 {
		t.Fatalf("fleet = %d vehicles, %d receivers", len(fleet.Vehicles), len(fleet.Receivers))
	}
	u2 := fleet.Vehicles[1]
	if u2.Antenna.Designator() != "USER-2/KA" || u2.Antenna.ResourceIndex() != 1 || u2.Element.ResourceIndex != 1 {
		t.Fatalf("vehicle 2 = %s resource %d", u2.Antenna.Designator(), u2.Antenna.ResourceIndex())
	}
	if got := fleet.Vehicles[0].Sensors; len(got) != 1 || got[0] != 0 {
		t.Fatalf("USER-1 sensors = %v, want [0]", got)
	}
	if got := u2.Sensors; len(got) != 2 {
		t.Fatalf("USER-2 sensors = %v, want [0 1]", got)
	}

	relay := fleet.Receivers[0]
	if relay.Antenna.Designator() != "TDRS-W/SA2" || relay.Antenna.Timing().AcquisitionSteps != 2 || relay.StateOfHealth {
		t.Fatalf("relay = %s %+v", relay.Antenna.Designator(), relay.Antenna.Timing())
	}
	if got := relay.Antenna.Constraints().For("USER-1").MinElevationDeg; got != -90 {
		t.Fatalf("relay default elevation = %v, want -90", got)
	}

	ground := fleet.Receivers[1]
	if !ground.StateOfHealth || ground.Antenna.GetCapacity(0) != 2 {
		t.Fatalf("ground antenna = %+v", ground)
	}
	lc := ground.Antenna.Constraints()
	if lc.For("USER-1").MinElevationDeg != 5 {
		t.Fatalf("ground default = %+v", lc.For("USER-1"))
	}
	if o := lc.For("USER-2"); o.MinElevationDeg != 12 || o.MaxRangeKm != 2500 {
		t.Fatalf("ground override = %+v", o)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	bad := `
simulation:
  start: yesterday
  number_of_time_steps: 0
  effectivity: sometimes
missions:
  count: 1
  inactive: [3]
sensors:
  - name: EO
    type: lidar
    rates: [[1]]
    carriers: [TDRS]
decks:
  - name: main
elements:
  - designator: U1
    type: user_vehicle
    antennas: []
  - designator: TDRS
    type: relay
  - designator: G1
    type: ground
    antennas:
      - { name: A, capacity: 1, facility: NOWHERE }
assignment:
  switch_threshold: -1
`
	_, err := LoadReader(strings.NewReader(bad), "yaml", "")
	if !errors.Is(err, errs.ErrInputData) {
		t.Fatalf("err = %v, want ErrInputData", err)
	}
	var ie *errs.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("err type = %T", err)
	}
	for _, want := range []string{
		"simulation.start",
		"number_of_time_steps",
		"simulation.effectivity",
		"inactive mission 3",
		"lidar",
		"carrier \"TDRS\"",
		"deck 0 (main) has no file",
		"U1 has 0 antennas",
		"unknown facility \"NOWHERE\"",
		"switch_threshold",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err.Error(), want)
		}
	}
	if len(ie.Problems) != 10 {
		t.Fatalf("problems = %d (%q), want 10", len(ie.Problems), ie.Problems)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("MURAL_SIMULATION_NUMBER_OF_TIME_STEPS", "7")
	cfg := loadTestConfig(t)
	if cfg.Simulation.NumberOfTimeSteps != 7 {
		t.Fatalf("number_of_time_steps = %d, want 7", cfg.Simulation.NumberOfTimeSteps)
	}
}

func TestTracerConfigFromFileAndEnvironment(t *testing.T) {
	cfg := loadTestConfig(t)
	tc := cfg.TracerConfig()
	if tc.Enabled || tc.Exporter != "stdout" || tc.ServiceName != "mural-planner" || tc.SampleRatio != 1 {
		t.Fatalf("default TracerConfig = %+v", tc)
	}

	t.Setenv("MURAL_TRACING_ENABLED", "true")
	t.Setenv("MURAL_TRACING_EXPORTER", "OTLP")
	t.Setenv("MURAL_TRACING_ENDPOINT", "collector:4317")
	t.Setenv("MURAL_TRACING_SAMPLE_RATIO", "0.25")
	tc = loadTestConfig(t).TracerConfig()
	if !tc.Enabled || tc.Exporter != "otlp" || tc.Endpoint != "collector:4317" || tc.SampleRatio != 0.25 {
		t.Fatalf("TracerConfig = %+v", tc)
	}

	t.Setenv("MURAL_TRACING_SAMPLE_RATIO", "7")
	_, err := LoadReader(strings.NewReader(testConfig), "yaml", "")
	if !errors.Is(err, errs.ErrInputData) || !strings.Contains(err.Error(), "tracing.sample_ratio") {
		t.Fatalf("err = %v, want a tracing.sample_ratio problem", err)
	}
}

func TestLoadSampleConfiguration(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "planner.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tp, err := cfg.TimePiece()
	if err != nil {
		t.Fatalf("TimePiece: %v", err)
	}
	if _, err := cfg.Environment(tp); err != nil {
		t.Fatalf("Environment: %v", err)
	}
	fleet, err := cfg.Fleet()
	if err != nil {
		t.Fatalf("Fleet: %v", err)
	}
	if len(fleet.Vehicles) != 2 || len(fleet.Receivers) != 3 {
		t.Fatalf("fleet = %d vehicles, %d receivers", len(fleet.Vehicles), len(fleet.Receivers))
	}
	if got := cfg.DeckPath(1); got != filepath.Join("..", "..", "configs", "decks", "surge.deck") {
		t.Fatalf("DeckPath(1) = %q", got)
	}
}
