// Package config loads the planner configuration with viper and builds the
// planning, antenna and scheduling inputs from it.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/logging"
	"github.com/signalsfoundry/mural/internal/observability"
	"github.com/signalsfoundry/mural/model"
)

// EnvPrefix prefixes environment overrides, e.g. MURAL_SIMULATION_START.
const EnvPrefix = "MURAL"

// Config is the full planner configuration.
type Config struct {
	Simulation        SimulationConfig `mapstructure:"simulation"`
	Logging           LoggingConfig    `mapstructure:"logging"`
	Metrics           MetricsConfig    `mapstructure:"metrics"`
	Tracing           TracingConfig    `mapstructure:"tracing"`
	Scoring           ScoringConfig    `mapstructure:"scoring"`
	Missions          MissionsConfig   `mapstructure:"missions"`
	Priorities        int              `mapstructure:"priorities"`
	SensorConfigs     []SensorConfig   `mapstructure:"sensors"`
	Decks             []DeckConfig     `mapstructure:"decks"`
	RegionConfigs     []RegionConfig   `mapstructure:"regions"`
	CrisisAreaConfigs []CrisisConfig   `mapstructure:"crisis_areas"`
	Facilities        []string         `mapstructure:"facilities"`
	ElementConfigs    []ElementConfig  `mapstructure:"elements"`
	Assignment        AssignmentConfig `mapstructure:"assignment"`

	// baseDir resolves relative deck paths.
	baseDir string
}

type SimulationConfig struct {
	Start              string  `mapstructure:"start"`
	SecondsPerTimeStep float64 `mapstructure:"seconds_per_time_step"`
	NumberOfTimeSteps  int     `mapstructure:"number_of_time_steps"`
	Effectivity        string  `mapstructure:"effectivity"`
	// EffectivityEnd overrides the end of the effectivity window (RFC3339).
	EffectivityEnd string `mapstructure:"effectivity_end"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type PriorityConfig struct {
	Coefficient float64 `mapstructure:"coefficient"`
	Base        float64 `mapstructure:"base"`
}

type ScoringConfig struct {
	Optical              PriorityConfig     `mapstructure:"optical"`
	Radar                PriorityConfig     `mapstructure:"radar"`
	CountryFactors       map[string]float64 `mapstructure:"country_factors"`
	DefaultCountryFactor float64            `mapstructure:"default_country_factor"`
	// TimelinessFactors is keyed by the deck timeliness code.
	TimelinessFactors map[string]float64 `mapstructure:"timeliness_factors"`
}

type MissionsConfig struct {
	Count int `mapstructure:"count"`
	// Inactive lists 1-based mission numbers excluded from selection.
	Inactive []int `mapstructure:"inactive"`
}

type SensorConfig struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
	// Carriers names the user vehicles carrying the sensor; empty means all.
	Carriers        []string    `mapstructure:"carriers"`
	Rates           [][]float64 `mapstructure:"rates"`
	Weights         [][]float64 `mapstructure:"weights"`
	QualityBins     []float64   `mapstructure:"quality_bins"`
	MinElevationDeg float64     `mapstructure:"min_elevation_deg"`
}

type DeckConfig struct {
	Name          string   `mapstructure:"name"`
	File          string   `mapstructure:"file"`
	ActiveSensors []string `mapstructure:"active_sensors"`
	ScoreByArea   bool     `mapstructure:"score_by_area"`
}

type RegionConfig struct {
	Number       int     `mapstructure:"number"`
	SubRegion    int     `mapstructure:"subregion"`
	LatitudeDeg  float64 `mapstructure:"latitude_deg"`
	LongitudeDeg float64 `mapstructure:"longitude_deg"`
	Country      string  `mapstructure:"country"`
}

type CrisisConfig struct {
	Region     int     `mapstructure:"region"`
	SubRegion  int     `mapstructure:"subregion"`
	Score      float64 `mapstructure:"score"`
	Multiplier float64 `mapstructure:"multiplier"`
	StartIndex int     `mapstructure:"start_index"`
	// EndIndex is inclusive; unset leaves the crisis open-ended.
	EndIndex *int `mapstructure:"end_index"`
}

type ConstraintConfig struct {
	// MinElevationDeg unset defaults to -90 for space-based elements and 0
	// for ground stations.
	MinElevationDeg *float64 `mapstructure:"min_elevation_deg"`
	MinRangeKm      float64  `mapstructure:"min_range_km"`
	MaxRangeKm      float64  `mapstructure:"max_range_km"`
}

type OverrideConfig struct {
	Partner    string           `mapstructure:"partner"`
	Constraint ConstraintConfig `mapstructure:",squash"`
}

type AntennaConfig struct {
	Name             string           `mapstructure:"name"`
	Capacity         int              `mapstructure:"capacity"`
	CapacityPerStep  []int            `mapstructure:"capacity_per_step"`
	PrepSteps        int              `mapstructure:"prep_steps"`
	AcquisitionSteps int              `mapstructure:"acquisition_steps"`
	DropLinkSteps    int              `mapstructure:"drop_link_steps"`
	Facility         string           `mapstructure:"facility"`
	StateOfHealth    bool             `mapstructure:"state_of_health"`
	Constraints      ConstraintConfig `mapstructure:"constraints"`
	Overrides        []OverrideConfig `mapstructure:"overrides"`
}

type ElementConfig struct {
	Designator   string          `mapstructure:"designator"`
	Type         string          `mapstructure:"type"`
	TLE1         string          `mapstructure:"tle1"`
	TLE2         string          `mapstructure:"tle2"`
	LatitudeDeg  float64         `mapstructure:"latitude_deg"`
	LongitudeDeg float64         `mapstructure:"longitude_deg"`
	AltitudeKm   float64         `mapstructure:"altitude_km"`
	Antennas     []AntennaConfig `mapstructure:"antennas"`
}

type AssignmentConfig struct {
	SwitchThreshold int `mapstructure:"switch_threshold"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.seconds_per_time_step", 60.0)
	v.SetDefault("simulation.effectivity", "month_and_day")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", observability.ExporterStdout)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "mural-planner")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("scoring.optical.coefficient", 1.0)
	v.SetDefault("scoring.optical.base", 2.0)
	v.SetDefault("scoring.radar.coefficient", 1.0)
	v.SetDefault("scoring.radar.base", 2.0)
	v.SetDefault("scoring.default_country_factor", 1.0)
	v.SetDefault("missions.count", 1)
	v.SetDefault("priorities", 9)
	v.SetDefault("assignment.switch_threshold", 0)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads and validates a configuration file. The format follows the
// file extension (yaml, toml or json).
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, cfg.Validate()
}

// LoadReader reads and validates configuration of the given format from r.
// Relative deck paths resolve against baseDir.
func LoadReader(r io.Reader, format, baseDir string) (*Config, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read %s config: %w", format, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.baseDir = baseDir
	return cfg, cfg.Validate()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// LoggerConfig maps the logging section onto the logger settings.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}

// TracerConfig maps the tracing section onto the run tracing settings.
func (c *Config) TracerConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    strings.ToLower(c.Tracing.Exporter),
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// DeckPath resolves the file of deck i.
func (c *Config) DeckPath(i int) string {
	p := c.Decks[i].File
	if filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// Validate reports every missing or inconsistent setting in one error.
func (c *Config) Validate() error {
	col := errs.NewCollector("Config", "Validate")

	if _, err := time.Parse(time.RFC3339, c.Simulation.Start); err != nil {
		col.Addf("simulation.start %q is not RFC3339", c.Simulation.Start)
	}
	if c.Simulation.SecondsPerTimeStep <= 0 {
		col.Addf("simulation.seconds_per_time_step must be positive")
	}
	if c.Simulation.NumberOfTimeSteps <= 0 {
		col.Addf("simulation.number_of_time_steps must be positive")
	}
	if c.Simulation.EffectivityEnd != "" {
		if _, err := time.Parse(time.RFC3339, c.Simulation.EffectivityEnd); err != nil {
			col.Addf("simulation.effectivity_end %q is not RFC3339", c.Simulation.EffectivityEnd)
		}
	}
	if _, err := parseEffectivity(c.Simulation.Effectivity); err != nil {
		col.Addf("simulation.effectivity %q is not a known policy", c.Simulation.Effectivity)
	}
	col.Require(c.Missions.Count > 0, "missions.count")
	for _, m := range c.Missions.Inactive {
		if m < 1 || m > c.Missions.Count {
			col.Addf("inactive mission %d not in [1, %d]", m, c.Missions.Count)
		}
	}
	col.Require(c.Priorities > 0, "priorities")

	c.validateSensors(col)
	c.validateElements(col)
	col.Merge(c.TracerConfig().Validate())

	col.Require(len(c.Decks) > 0, "decks")
	for i, d := range c.Decks {
		if d.File == "" {
			col.Addf("deck %d (%s) has no file", i, d.Name)
		}
		for _, name := range d.ActiveSensors {
			if c.sensorIndex(name) < 0 {
				col.Addf("deck %s activates unknown sensor %q", d.Name, name)
			}
		}
	}

	seen := map[string]bool{}
	for _, r := range c.RegionConfigs {
		key := model.FormatRegionNumber(model.FullRegionNumber(r.Number, r.SubRegion))
		if seen[key] {
			col.Addf("region %s listed twice", key)
		}
		seen[key] = true
		if r.LatitudeDeg < -90 || r.LatitudeDeg > 90 {
			col.Addf("region %s latitude %.3f outside [-90, 90]", key, r.LatitudeDeg)
		}
	}
	for _, ca := range c.CrisisAreaConfigs {
		if ca.EndIndex != nil && *ca.EndIndex < ca.StartIndex {
			col.Addf("crisis area %d.%02d ends before it starts", ca.Region, ca.SubRegion)
		}
	}
	if c.Assignment.SwitchThreshold < 0 {
		col.Addf("assignment.switch_threshold must not be negative")
	}
	return col.Err()
}

func (c *Config) validateSensors(col *errs.Collector) {
	col.Require(len(c.SensorConfigs) > 0, "sensors")
	names := map[string]bool{}
	for i, s := range c.SensorConfigs {
		if s.Name == "" {
			col.Addf("sensor %d has no name", i)
		}
		if names[s.Name] {
			col.Addf("sensor %q listed twice", s.Name)
		}
		names[s.Name] = true
		if _, err := parseSensorType(s.Type); err != nil {
			col.Addf("sensor %q has unknown type %q", s.Name, s.Type)
		}
		if len(s.Rates) != c.Missions.Count {
			col.Addf("sensor %q has %d rate rows for %d missions", s.Name, len(s.Rates), c.Missions.Count)
		}
		for _, carrier := range s.Carriers {
			e := c.element(carrier)
			if e == nil || !isUserVehicle(e.Type) {
				col.Addf("sensor %q carrier %q is not a user vehicle", s.Name, carrier)
			}
		}
	}
}

func (c *Config) validateElements(col *errs.Collector) {
	col.Require(len(c.ElementConfigs) > 0, "elements")
	seen := map[string]bool{}
	for _, e := range c.ElementConfigs {
		if e.Designator == "" {
			col.Addf("element with no designator")
			continue
		}
		if seen[e.Designator] {
			col.Addf("element %s listed twice", e.Designator)
		}
		seen[e.Designator] = true

		kind, err := model.ParseElementType(e.Type)
		if err != nil {
			col.Addf("element %s: %v", e.Designator, err)
			continue
		}
		if kind.IsSpaceBased() && (e.TLE1 == "") != (e.TLE2 == "") {
			col.Addf("element %s needs both TLE lines", e.Designator)
		}
		if kind == model.ElementUserVehicle && len(e.Antennas) != 1 {
			col.Addf("user vehicle %s has %d antennas, want 1", e.Designator, len(e.Antennas))
		}
		for _, a := range e.Antennas {
			if a.Capacity < 0 {
				col.Addf("antenna %s/%s capacity is negative", e.Designator, a.Name)
			}
			if kind == model.ElementGroundStation {
				if _, ok := c.facilities().IndexOf(facilityOf(&e, a)); !ok {
					col.Addf("antenna %s/%s names unknown facility %q", e.Designator, a.Name, facilityOf(&e, a))
				}
			}
		}
	}
}

func (c *Config) element(designator string) *ElementConfig {
	for i := range c.ElementConfigs {
		if c.ElementConfigs[i].Designator == designator {
			return &c.ElementConfigs[i]
		}
	}
	return nil
}

func (c *Config) sensorIndex(name string) int {
	for i, s := range c.SensorConfigs {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}

func isUserVehicle(elementType string) bool {
	t, err := model.ParseElementType(elementType)
	return err == nil && t == model.ElementUserVehicle
}
