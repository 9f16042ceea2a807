package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/config.schema.yaml
var configSchemaYAML []byte

// Config holds the pipeline configuration. All keys are explicit: there is
// no dynamic settings bag, so a typo in the file fails validation instead
// of being silently ignored.
type Config struct {
	RootFolder          string             `yaml:"root_folder"`
	OutputFolder        string             `yaml:"output_folder"`
	SeverityFolder      string             `yaml:"severity_folder"`
	Years               []int              `yaml:"years"`
	ConcurrencyLimit    int                `yaml:"concurrency_limit"`
	SkipExisting        bool               `yaml:"skip_existing"`
	MaxAttempts         int                `yaml:"max_attempts"`
	TimeoutSeconds      int                `yaml:"timeout_seconds"`
	RetryBackoffSeconds int                `yaml:"retry_backoff_seconds"`
	StorePath           string             `yaml:"store_path"`
	ServerPort          string             `yaml:"server_port"`
	Optimization        OptimizationConfig `yaml:"optimization"`
	Raster              RasterConfig       `yaml:"raster"`
	Upload              UploadConfig       `yaml:"upload"`
}

// OptimizationConfig sets the memory profiler's size bands.
type OptimizationConfig struct {
	LightMB        float64 `yaml:"light_mb"`
	ModerateMB     float64 `yaml:"moderate_mb"`
	AggressiveMB   float64 `yaml:"aggressive_mb"`
	PeakMultiplier float64 `yaml:"peak_multiplier"`
}

// RasterConfig sets the rasterization products.
type RasterConfig struct {
	ResolutionMeters float64  `yaml:"resolution_meters"`
	Scenarios        []string `yaml:"scenarios"`
}

// UploadConfig sets the optional S3 artifact upload.
type UploadConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

// Load reads, validates and defaults a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse validates and defaults raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ConcurrencyLimit == 0 {
		c.ConcurrencyLimit = 2
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 600
	}
	if c.RetryBackoffSeconds == 0 {
		c.RetryBackoffSeconds = 5
	}
	if c.StorePath == "" {
		c.StorePath = filepath.Join(c.OutputFolder, "wildfire_jobs.db")
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.Optimization.LightMB == 0 {
		c.Optimization.LightMB = 10
	}
	if c.Optimization.ModerateMB == 0 {
		c.Optimization.ModerateMB = 50
	}
	if c.Optimization.AggressiveMB == 0 {
		c.Optimization.AggressiveMB = 100
	}
	if c.Optimization.PeakMultiplier == 0 {
		c.Optimization.PeakMultiplier = 4.0
	}
	if c.Raster.ResolutionMeters == 0 {
		c.Raster.ResolutionMeters = 30
	}
	if len(c.Raster.Scenarios) == 0 {
		c.Raster.Scenarios = []string{"16mmh", "20mmh", "24mmh", "40mmh"}
	}
}

// validate checks the raw document against the embedded JSON schema, so
// unknown keys and out-of-range values are rejected with a precise message.
func validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	doc = normalizeYAML(doc)

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	var schemaDoc interface{}
	if err := yaml.Unmarshal(configSchemaYAML, &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}
	jsonData, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	schema, err := jsonschema.CompileString("config.schema.yaml", string(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// normalizeYAML converts yaml.v3's map[string]interface{} tree into the
// shape the schema validator expects. yaml.v3 already decodes mappings
// with string keys; this pass only rewrites nested non-string-keyed maps
// that sneak in via flow syntax.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}
