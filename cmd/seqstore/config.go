package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds all CLI configuration options. Every field can come from a
// config file or be overridden by a flag.
type Config struct {
	Path        string `json:"path"`
	Format      string `json:"format"`
	Wrap        int    `json:"wrap,omitempty"`
	Compression string `json:"compression,omitempty"`
	Glob        string `json:"glob,omitempty"`
	CacheSize   int    `json:"cache_size,omitempty"` //nolint:tagliatelle // snake_case for config file
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Format:    "fasta",
		CacheSize: 128,
	}
}

// ConfigFileName is the project config file name.
const ConfigFileName = ".seqstore.json"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config file")
	errPathRequired       = errors.New("storage path is required (set path in config or pass --path)")
	errUnknownFormat      = errors.New("unknown storage format")
)

// getGlobalConfigPath returns the path to the global config file:
// $XDG_CONFIG_HOME/seqstore/config.json, falling back to
// ~/.config/seqstore/config.json. Empty when no home can be determined.
func getGlobalConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "seqstore", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "seqstore", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest
// wins):
//  1. Defaults
//  2. Global user config
//  3. Project config (.seqstore.json in workDir, if present)
//  4. Explicit config file via configPath (must exist when set)
//  5. CLI overrides (applied by the caller)
func LoadConfig(workDir, configPath string) (Config, error) {
	cfg := DefaultConfig()

	if globalPath := getGlobalConfigPath(); globalPath != "" {
		global, loaded, err := loadConfigFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = mergeConfig(cfg, global)
		}
	}

	projectFile := filepath.Join(workDir, ConfigFileName)
	mustExist := false

	if configPath != "" {
		projectFile = configPath
		if !filepath.IsAbs(projectFile) {
			projectFile = filepath.Join(workDir, projectFile)
		}

		mustExist = true
	}

	project, loaded, err := loadConfigFile(projectFile, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = mergeConfig(cfg, project)
	}

	return cfg, nil
}

// loadConfigFile reads one JSONC config file. A missing optional file
// reports loaded=false without error.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config resolution
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if os.IsNotExist(err) {
			return Config{}, false, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
		}

		return Config{}, false, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override Config) Config {
	if override.Path != "" {
		base.Path = override.Path
	}

	if override.Format != "" {
		base.Format = override.Format
	}

	if override.Wrap != 0 {
		base.Wrap = override.Wrap
	}

	if override.Compression != "" {
		base.Compression = override.Compression
	}

	if override.Glob != "" {
		base.Glob = override.Glob
	}

	if override.CacheSize != 0 {
		base.CacheSize = override.CacheSize
	}

	return base
}

// validateConfig checks the resolved configuration before any storage is
// touched.
func validateConfig(cfg Config) error {
	if cfg.Path == "" {
		return errPathRequired
	}

	switch strings.ToLower(cfg.Format) {
	case "fasta", "tar", "folder":
		return nil
	default:
		return fmt.Errorf("%w: %q (want fasta, tar, or folder)", errUnknownFormat, cfg.Format)
	}
}
