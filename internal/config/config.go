// Package config carries the YAML run configuration of the reduction
// binaries. Configuration problems are startup errors: Validate runs before
// any event is read, so a malformed threshold can never abort a half-done
// batch.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"charm-reso-lab/internal/calib"
	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/prefilter"
	"charm-reso-lab/internal/qa"
	"charm-reso-lab/internal/selection"
)

// CCDB configures the calibration-database client.
type CCDB struct {
	URL            string `yaml:"url"`
	ObjectPath     string `yaml:"objectPath"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxRetries     int    `yaml:"maxRetries"`
}

// Timeout returns the configured HTTP timeout.
func (c CCDB) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// V0Cuts mirrors the selection thresholds with YAML tags.
type V0Cuts struct {
	MaxDauEta        float64 `yaml:"maxDauEta"`
	MinRadius        float64 `yaml:"minRadius"`
	MinCosPA         float64 `yaml:"minCosPA"`
	MaxDCAToPV       float64 `yaml:"maxDcaToPV"`
	MaxDauDCA        float64 `yaml:"maxDauDca"`
	MinDauDCAToPV    float64 `yaml:"minDauDcaToPV"`
	DeltaMassK0Short float64 `yaml:"deltaMassK0Short"`
	DeltaMassLambda  float64 `yaml:"deltaMassLambda"`
}

// Selection converts the cuts to their selection-package form.
func (c V0Cuts) Selection() selection.V0Cuts {
	return selection.V0Cuts{
		MaxDauEta:        c.MaxDauEta,
		MinRadius:        c.MinRadius,
		MinCosPA:         c.MinCosPA,
		MaxDCAToPV:       c.MaxDCAToPV,
		MaxDauDCA:        c.MaxDauDCA,
		MinDauDCAToPV:    c.MinDauDCAToPV,
		DeltaMassK0Short: c.DeltaMassK0Short,
		DeltaMassLambda:  c.DeltaMassLambda,
	}
}

func v0CutsFrom(s selection.V0Cuts) V0Cuts {
	return V0Cuts{
		MaxDauEta:        s.MaxDauEta,
		MinRadius:        s.MinRadius,
		MinCosPA:         s.MinCosPA,
		MaxDCAToPV:       s.MaxDCAToPV,
		MaxDauDCA:        s.MaxDauDCA,
		MinDauDCAToPV:    s.MinDauDCAToPV,
		DeltaMassK0Short: s.DeltaMassK0Short,
		DeltaMassLambda:  s.DeltaMassLambda,
	}
}

// Config is the full configuration of one reduction run.
type Config struct {
	Channel     string    `yaml:"channel"`
	Workers     int       `yaml:"workers"`
	PropagateV0 bool      `yaml:"propagateV0"`
	Prefilter   string    `yaml:"prefilter"` // empty means the channel default expression
	V0Cuts      V0Cuts    `yaml:"v0Cuts"`
	DMassWindow float64   `yaml:"dMassWindow"`
	CCDB        CCDB      `yaml:"ccdb"`
	PtBins      []float64 `yaml:"ptBins"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Channel:     domain.ChannelDs1ToDstarK0s.String(),
		Workers:     1,
		PropagateV0: false,
		V0Cuts:      v0CutsFrom(selection.DefaultV0Cuts()),
		DMassWindow: selection.DefaultPairCuts().DMassWindow,
		CCDB: CCDB{
			URL:            calib.DefaultURL,
			ObjectPath:     calib.DefaultObjectPath,
			TimeoutSeconds: int(calib.DefaultTimeout / time.Second),
			MaxRetries:     calib.DefaultMaxRetries,
		},
		PtBins: append([]float64(nil), qa.DefaultPtBins...),
	}
}

// LoadFromYAML loads a configuration file. Fields absent from the file keep
// their defaults; the result is validated before being returned.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for startup errors.
func (c *Config) Validate() error {
	if _, err := domain.ParseChannel(c.Channel); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.DMassWindow <= 0 {
		return fmt.Errorf("dMassWindow must be positive, got %g", c.DMassWindow)
	}
	if c.V0Cuts.MinCosPA < -1 || c.V0Cuts.MinCosPA > 1 {
		return fmt.Errorf("minCosPA must lie in [-1, 1], got %g", c.V0Cuts.MinCosPA)
	}
	if c.V0Cuts.DeltaMassK0Short <= 0 || c.V0Cuts.DeltaMassLambda <= 0 {
		return fmt.Errorf("mass-window half-widths must be positive")
	}
	if len(c.PtBins) < 2 {
		return fmt.Errorf("ptBins needs at least two edges, got %d", len(c.PtBins))
	}
	for i := 1; i < len(c.PtBins); i++ {
		if c.PtBins[i] <= c.PtBins[i-1] {
			return fmt.Errorf("ptBins must be strictly increasing at index %d", i)
		}
	}
	if c.CCDB.URL == "" {
		return fmt.Errorf("ccdb url must not be empty")
	}
	if c.CCDB.TimeoutSeconds <= 0 {
		return fmt.Errorf("ccdb timeoutSeconds must be positive, got %d", c.CCDB.TimeoutSeconds)
	}
	if c.Prefilter != "" {
		if _, err := prefilter.New(c.Prefilter); err != nil {
			return fmt.Errorf("prefilter: %w", err)
		}
	}
	return nil
}

// DecayChannel returns the parsed channel. Call only after Validate.
func (c *Config) DecayChannel() domain.DecayChannel {
	ch, _ := domain.ParseChannel(c.Channel)
	return ch
}

// PairCuts returns the D-side thresholds in selection form.
func (c *Config) PairCuts() selection.PairCuts {
	return selection.PairCuts{DMassWindow: c.DMassWindow}
}

// PrefilterExpression returns the configured gate expression, falling back
// to the channel default when unset.
func (c *Config) PrefilterExpression() string {
	if c.Prefilter != "" {
		return c.Prefilter
	}
	return prefilter.DefaultExpression(c.DecayChannel())
}
