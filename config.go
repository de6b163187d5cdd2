package splatsurf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/splatsurf/surfelrt/rt/core"
	"github.com/gekko3d/splatsurf/surfelrt/rt/gpu"
)

// Config holds Manager settings. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	// Variant is the geometry strategy: "color-normal" or "normal-covariance".
	Variant string `yaml:"variant"`
	// PowerPreference is "high-performance" or "low-power".
	PowerPreference string `yaml:"power_preference"`
	// MaxPolls bounds the readback poll loop.
	MaxPolls int `yaml:"max_polls"`
	// ReuseSession keeps one compute session open across operations.
	ReuseSession bool `yaml:"reuse_session"`
	// FallbackToCPU runs the host dispatcher when no adapter is available.
	FallbackToCPU bool `yaml:"fallback_to_cpu"`

	LogPrefix string `yaml:"log_prefix"`
	Debug     bool   `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Variant:         core.VariantColorNormal.String(),
		PowerPreference: gpu.PowerHighPerformance.String(),
		MaxPolls:        gpu.DefaultMaxPolls,
		ReuseSession:    true,
		LogPrefix:       "splatsurf",
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := core.ParseVariant(c.Variant); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := gpu.ParsePowerPreference(c.PowerPreference); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("config: max_polls must not be negative")
	}
	return nil
}

func (c Config) variant() core.Variant {
	v, _ := core.ParseVariant(c.Variant)
	return v
}

func (c Config) power() gpu.PowerPreference {
	p, _ := gpu.ParsePowerPreference(c.PowerPreference)
	return p
}
