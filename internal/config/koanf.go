package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eunmann/huimine/pkg/fileutil"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when no file is given.
var DefaultConfigPaths = []string{
	"huimine.yaml",
	"huimine.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HUIMINE_CONFIG"

const envPrefix = "HUIMINE_"

// envMappings maps lower-cased variable names, without the prefix, to
// config paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	"in":          "input.path",
	"mapping":     "input.mapping",
	"min_utility": "mining.min_utility",
	"max_size":    "mining.max_size",
	"workers":     "mining.workers",
	"thresholds":  "mining.thresholds",
	"out":         "output.dir",
	"parquet":     "output.parquet",
	"sqlite":      "output.sqlite",
	"upload":      "output.upload",
	"debug":       "logging.debug",
	"human":       "logging.human",
}

// Load merges defaults, the config file at path (or the first default path
// found when path is empty) and the environment, then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processThresholds(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the HUIMINE_CONFIG file if it exists, else the
// first non-empty default path. An empty huimine.yaml is a placeholder.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" && fileutil.Exists(p) {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if fileutil.IsNonEmpty(p) {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return envMappings[key]
}

// processThresholds splits a comma-separated thresholds string, as it
// arrives from the environment, into a list.
func processThresholds(k *koanf.Koanf) error {
	const path = "mining.thresholds"
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	vals, err := ParseThresholds(s)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := k.Set(path, vals); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// ParseThresholds parses "1000, 5000,10000" into numbers. Empty fields are
// skipped.
func ParseThresholds(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(part, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("threshold %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
