// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	lookupEnv  func(string) (string, bool)
	// ConsumedEnvKeys lists every environment key the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath means ENV and defaults only.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, lookupEnv: os.LookupEnv}
}

// Path returns the configuration file, or "" when none is used.
func (l *Loader) Path() string { return l.configPath }

// Load builds the configuration: defaults, then the YAML file (strict), then
// environment variables, then normalisation and validation.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	env := newEnvReader(l.lookupEnv)
	envErr := env.apply(&cfg)
	l.ConsumedEnvKeys = env.consumed
	if envErr != nil {
		return cfg, fmt.Errorf("environment: %w", envErr)
	}

	normalize(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file onto cfg. Unknown fields and multiple
// documents are rejected.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

// normalize lower-cases enums, resolves the data directory and maps the
// "best-match" sort alias to the empty sort.
func normalize(cfg *Config) {
	cfg.GitHub.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.GitHub.BaseURL), "/")
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Telemetry.Protocol = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Protocol))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if abs, err := filepath.Abs(cfg.Storage.DataDir); err == nil && cfg.Storage.DataDir != "" {
		cfg.Storage.DataDir = abs
	}
	if cfg.Cache.Dir != "" {
		if abs, err := filepath.Abs(cfg.Cache.Dir); err == nil {
			cfg.Cache.Dir = abs
		}
	}

	for i, s := range cfg.Collect.Sorts {
		cfg.Collect.Sorts[i] = NormalizeSort(s)
	}
}

// NormalizeSort lower-cases a search sort and maps the "best-match" alias to
// the empty sort.
func NormalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "best-match" || s == "best_match" {
		return ""
	}
	return s
}
