// YAML baseline loader with CUE validation integration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"droneops-console/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed baseline.yaml
var defaultBaseline []byte

//go:embed schema.cue
var defaultSchema []byte

// ScenarioRef names a built-in scenario or points to a YAML file.
type ScenarioRef struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// MapConfig holds the initial map view.
type MapConfig struct {
	Center model.LatLng `yaml:"center"`
	Zoom   int          `yaml:"zoom"`
}

// GreptimeConfig configures the optional telemetry export.
type GreptimeConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Database        string `yaml:"database"`
	Table           string `yaml:"table"`
	TimelineTable   string `yaml:"timeline_table"`
	AssignmentTable string `yaml:"assignment_table"`
}

// ExportConfig groups export destinations.
type ExportConfig struct {
	Greptime GreptimeConfig `yaml:"greptime"`
}

// Config is the canned baseline the console starts from and returns to.
type Config struct {
	ClusterID           string                     `yaml:"cluster_id"`
	Scenario            ScenarioRef                `yaml:"scenario"`
	Map                 MapConfig                  `yaml:"map"`
	DriftInterval       time.Duration              `yaml:"drift_interval"`
	LowBatteryThreshold float64                    `yaml:"low_battery_threshold"`
	Drones              []model.Drone              `yaml:"drones"`
	Sensors             []model.Sensor             `yaml:"sensors"`
	Docks               []model.DockStation        `yaml:"docks"`
	Geofences           []model.Geofence           `yaml:"geofences"`
	Environment         model.EnvironmentalReading `yaml:"environment"`
	Export              ExportConfig               `yaml:"export"`
}

// Defaults applied after unmarshalling.
const (
	DefaultClusterID     = "console-01"
	DefaultDriftInterval = 2 * time.Second
	DefaultLowBattery    = 25
	DefaultZoom          = 14
)

// Load reads the baseline at configPath and validates it against the CUE
// schema at schemaPath. Empty paths select the embedded defaults.
func Load(configPath, schemaPath string) (*Config, error) {
	data := defaultBaseline
	name := "baseline.yaml"
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		data, name = b, configPath
	}
	schema := defaultSchema
	if schemaPath != "" {
		b, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		schema = b
	}
	return Parse(name, data, schema)
}

// Parse validates data against schema and decodes it.
func Parse(name string, data, schema []byte) (*Config, error) {
	if err := Validate(name, data, schema); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the embedded baseline.
func Default() *Config {
	cfg, err := Parse("baseline.yaml", defaultBaseline, defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("embedded baseline invalid: %v", err))
	}
	return cfg
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CLUSTER_ID"); v != "" {
		c.ClusterID = v
	}
	if v := os.Getenv("DRIFT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DRIFT_INTERVAL: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid DRIFT_INTERVAL: must be positive")
		}
		c.DriftInterval = d
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Export.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Export.Greptime.Database = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		c.Export.Greptime.Table = v
	}
	if v := os.Getenv("TIMELINE_TABLE"); v != "" {
		c.Export.Greptime.TimelineTable = v
	}
	if v := os.Getenv("ASSIGNMENT_TABLE"); v != "" {
		c.Export.Greptime.AssignmentTable = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ClusterID == "" {
		c.ClusterID = DefaultClusterID
	}
	if c.DriftInterval <= 0 {
		c.DriftInterval = DefaultDriftInterval
	}
	if c.LowBatteryThreshold == 0 {
		c.LowBatteryThreshold = DefaultLowBattery
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = DefaultZoom
	}
	if c.Export.Greptime.Database == "" {
		c.Export.Greptime.Database = "public"
	}
	if c.Export.Greptime.Table == "" {
		c.Export.Greptime.Table = "drone_telemetry"
	}
	if c.Export.Greptime.TimelineTable == "" {
		c.Export.Greptime.TimelineTable = "console_timeline"
	}
	if c.Export.Greptime.AssignmentTable == "" {
		c.Export.Greptime.AssignmentTable = "drone_assignments"
	}
}

// check enforces what the schema cannot express: unique ids.
func (c *Config) check() error {
	seen := map[string]bool{}
	dup := func(kind, id string) error {
		key := kind + ":" + id
		if seen[key] {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[key] = true
		return nil
	}
	for _, d := range c.Drones {
		if err := dup("drone", d.ID); err != nil {
			return err
		}
	}
	for _, s := range c.Sensors {
		if err := dup("sensor", s.ID); err != nil {
			return err
		}
	}
	for _, d := range c.Docks {
		if err := dup("dock", d.ID); err != nil {
			return err
		}
	}
	for _, g := range c.Geofences {
		if err := dup("geofence", strings.ToLower(g.ID)); err != nil {
			return err
		}
	}
	return nil
}
