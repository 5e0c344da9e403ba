package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/imdp/internal/dynamo"
	"github.com/san-kum/imdp/internal/experiment"
	"github.com/san-kum/imdp/internal/label"
	"github.com/san-kum/imdp/internal/noise"
)

const (
	DefaultHorizon       = 10
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 10000
	DefaultFloor         = 1e-10
	DefaultImageSamples  = 3
	DefaultImageSearch   = 100
	DefaultSourceSamples = 16
	DefaultSeed          = 1
	DefaultOutputDir     = "runs"
)

// Config is a problem file.
type Config struct {
	Model  string             `yaml:"model"`
	Params map[string]float64 `yaml:"params,omitempty"`

	// Horizon is the finite horizon; 0 synthesizes an infinite-horizon
	// controller.
	Horizon       int             `yaml:"horizon"`
	Pessimistic   bool            `yaml:"pessimistic"`
	Tolerance     float64         `yaml:"tolerance"`
	MaxIterations int             `yaml:"max_iterations"`
	Noise         noise.Type      `yaml:"noise"`
	Floor         float64         `yaml:"floor"`
	ImageSamples  int             `yaml:"image_samples"`
	ImageSearch   int             `yaml:"image_search"`
	ImageMargin   float64         `yaml:"image_margin"`
	SourceSamples int             `yaml:"source_samples"`
	MonteCarlo    noise.MCOptions `yaml:"monte_carlo"`
	Label         LabelConfig     `yaml:"label"`
	Workers       int             `yaml:"workers"`
	BestEffort    bool            `yaml:"best_effort"`
	Seed          int64           `yaml:"seed"`
	OutputDir     string          `yaml:"output_dir"`
}

type LabelConfig struct {
	Policy  label.Policy `yaml:"policy"`
	Samples int          `yaml:"samples"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         "vanderpol",
		Horizon:       DefaultHorizon,
		Pessimistic:   true,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Noise:         noise.Normal,
		Floor:         DefaultFloor,
		ImageSamples:  DefaultImageSamples,
		ImageSearch:   DefaultImageSearch,
		SourceSamples: DefaultSourceSamples,
		MonteCarlo:    noise.DefaultMCOptions(),
		Label: LabelConfig{
			Policy:  label.Containment,
			Samples: 3,
		},
		Seed:      DefaultSeed,
		OutputDir: DefaultOutputDir,
	}
}

// Load reads a problem file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must not be negative, got %d", c.Horizon)
	}
	switch c.Noise {
	case noise.Normal, noise.Custom:
	default:
		return fmt.Errorf("unknown noise type %q", c.Noise)
	}
	switch c.Label.Policy {
	case label.Containment, label.Center:
	default:
		return fmt.Errorf("unknown label policy %q", c.Label.Policy)
	}
	if c.Noise == noise.Custom {
		if err := c.MonteCarlo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Experiment converts the file into pipeline settings.
func (c *Config) Experiment() experiment.Config {
	cfg := experiment.DefaultConfig()
	cfg.Horizon = c.Horizon
	cfg.Workers = c.Workers

	cfg.Label.Policy = c.Label.Policy
	cfg.Label.Samples = c.Label.Samples

	cfg.Abstraction.Floor = c.Floor
	cfg.Abstraction.ImageSamples = c.ImageSamples
	cfg.Abstraction.ImageSearch = c.ImageSearch
	cfg.Abstraction.ImageMargin = c.ImageMargin
	cfg.Abstraction.SourceSamples = c.SourceSamples
	cfg.Abstraction.MC = c.MonteCarlo
	cfg.Abstraction.ForceMonteCarlo = c.Noise == noise.Custom
	cfg.Abstraction.BestEffort = c.BestEffort
	cfg.Abstraction.Seed = c.Seed

	cfg.Synthesis.Pessimistic = c.Pessimistic
	cfg.Synthesis.Tolerance = c.Tolerance
	cfg.Synthesis.MaxIterations = c.MaxIterations
	return cfg
}

// ApplyParams sets the file's model parameters. Names the model does not
// expose are rejected.
func (c *Config) ApplyParams(m dynamo.Configurable) error {
	known := m.GetParams()
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("model %s has no parameter %q", c.Model, name)
		}
		m.SetParam(name, c.Params[name])
	}
	return nil
}
