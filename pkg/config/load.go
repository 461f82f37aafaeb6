package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted after the file is decoded. They take
// precedence over file values; command-line flags take precedence over both.
const (
	EnvProxyHost   = "LITELLM_PROXY_HOST"
	EnvProxyPort   = "LITELLM_PROXY_PORT"
	EnvMasterKey   = "LITELLM_MASTER_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = "LITELLM_LOG_LEVEL"
)

// LoadConfig loads configuration from a YAML or JSON file at the specified
// path. The file format is chosen by extension (".json" is JSON, anything
// else is YAML). Unknown keys are rejected.
//
// The loading sequence is:
//  1. Decode the file strictly
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = jsonToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration bytes, applies defaults and environment
// overrides, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// jsonToYAML re-encodes a JSON document as YAML so JSON configuration goes
// through the same strict decoder, including duration parsing.
func jsonToYAML(data []byte) ([]byte, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return yaml.Marshal(normalizeJSON(doc))
}

// normalizeJSON converts json.Number values into int64 or float64 so the YAML
// encoder emits plain scalars.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeJSON(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeJSON(val)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvProxyHost); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv(EnvProxyPort); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv(EnvMasterKey); val != "" {
		cfg.GeneralSettings.MasterKey = val
	}
	if val := os.Getenv(EnvDatabaseURL); val != "" {
		cfg.GeneralSettings.DatabaseURL = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %q: %w", path, err)
		}
	}
	return nil
}

// ExportEnvironment exports the environment_variables section into the
// process environment.
func ExportEnvironment(cfg *Config) error {
	for key, value := range cfg.EnvironmentVariables {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to export %s: %w", key, err)
		}
	}
	return nil
}
