// Package config loads huimine settings from built-in defaults, an optional
// YAML file and HUIMINE_* environment variables, in that order of
// precedence. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when the merged configuration fails
// validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the merged configuration.
type Config struct {
	Input   InputConfig   `koanf:"input"`
	Mining  MiningConfig  `koanf:"mining"`
	Output  OutputConfig  `koanf:"output"`
	Logging LoggingConfig `koanf:"logging"`
	Memory  MemoryConfig  `koanf:"memory"`
}

// InputConfig names the transaction and mapping sources. Both accept local
// paths, .gz files and s3:// URIs; Path also accepts "-" for stdin.
type InputConfig struct {
	Path    string `koanf:"path"`
	Mapping string `koanf:"mapping"`
}

// MiningConfig holds run parameters.
type MiningConfig struct {
	MinUtility float64   `koanf:"min_utility" validate:"gte=0"`
	MaxSize    int       `koanf:"max_size" validate:"min=1,max=64"`
	Workers    int       `koanf:"workers" validate:"min=0,max=1024"`
	Thresholds []float64 `koanf:"thresholds" validate:"dive,gte=0"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir     string `koanf:"dir" validate:"required"`
	Parquet bool   `koanf:"parquet"`
	SQLite  string `koanf:"sqlite"`
	Upload  string `koanf:"upload" validate:"omitempty,startswith=s3://"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Debug bool `koanf:"debug"`
	Human bool `koanf:"human"`
}

// MemoryConfig holds the frontier memory budget, e.g. "4GiB". Empty means
// the HUIMINE_MEM_BUDGET variable or half of system RAM.
type MemoryConfig struct {
	Budget string `koanf:"budget"`
}

func defaultConfig() *Config {
	return &Config{
		Mining: MiningConfig{
			MaxSize:    3,
			Workers:    0, // 0 = runtime.NumCPU()
			Thresholds: []float64{1000, 5000, 10000},
		},
		Output: OutputConfig{
			Dir: "output/patterns",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s%s (value %v)",
					fe.Namespace(), fe.Tag(), paramSuffix(fe.Param()), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if !finite(c.Mining.MinUtility) {
		return fmt.Errorf("%w: mining.min_utility must be finite", ErrInvalidConfig)
	}
	for _, t := range c.Mining.Thresholds {
		if !finite(t) {
			return fmt.Errorf("%w: mining.thresholds must be finite", ErrInvalidConfig)
		}
	}
	return nil
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
