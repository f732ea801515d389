package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvFileVar      = "PRESENTER_ENV_FILE"
	EnvBridgeListen = "PRESENTER_BRIDGE_LISTEN"
	EnvRemoteListen = "PRESENTER_REMOTE_LISTEN"
	EnvLogLevel     = "PRESENTER_LOG_LEVEL"
)

// LoadResult carries the effective config and where it came from.
type LoadResult struct {
	Config  *Config
	File    string // empty when no config file exists
	EnvFile string // empty when no .env file was loaded
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "presenter", "config.yaml"), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config from the standard location and reports the
// files that contributed.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads defaults, merges the YAML file at path (if present),
// then applies .env and environment overrides.
func LoadFromPath(path string) (*LoadResult, error) {
	cfg := DefaultConfig()
	res := &LoadResult{Config: cfg}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeInto(cfg, data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		res.File = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if envPath := resolveEnvPath(); envPath != "" {
		// Existing environment wins over the .env file.
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
		res.EnvFile = envPath
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeInto(cfg *Config, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Fetch.Profiles == nil {
		cfg.Fetch.Profiles = BuiltinProfiles()
	}
	return nil
}

// resolveEnvPath prefers $PRESENTER_ENV_FILE, then a .env next to the
// executable.
func resolveEnvPath() string {
	if alt := strings.TrimSpace(os.Getenv(EnvFileVar)); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBridgeListen)); v != "" {
		cfg.Bridge.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteListen)); v != "" {
		cfg.Remote.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
