package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/openchad-ai/openchad/pkg/types"
)

// Defaults applied when no source provides a value.
const (
	DefaultBackendURL = "http://localhost:5000/api"
	DefaultTheme      = "dark"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/openchad/openchad.json or .jsonc)
// 2. Project config (./openchad.json or .jsonc)
// 3. .env file in the working directory
// 4. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "openchad.json"))
	loadOnce(filepath.Join(globalPath, "openchad.jsonc"))

	// 2. Project config
	if directory != "" {
		loadOnce(filepath.Join(directory, "openchad.json"))
		loadOnce(filepath.Join(directory, "openchad.jsonc"))
	}

	// 3. .env file (missing file is fine)
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	} else {
		_ = godotenv.Load()
	}

	// 4. Environment variables (highest priority)
	applyEnvOverrides(config)

	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file, tolerating JSONC comments.
func loadConfigFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	data = jsonc.ToJSON(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.BackendURL != "" {
		target.BackendURL = source.BackendURL
	}
	if source.Theme != "" {
		target.Theme = source.Theme
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if url := os.Getenv("OPENCHAD_BACKEND_URL"); url != "" {
		config.BackendURL = url
	}
	if theme := os.Getenv("OPENCHAD_THEME"); theme != "" {
		config.Theme = theme
	}
	if level := os.Getenv("OPENCHAD_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if dir := os.Getenv("OPENCHAD_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
}

// applyDefaults fills unset fields.
func applyDefaults(config *types.Config) {
	if config.BackendURL == "" {
		config.BackendURL = DefaultBackendURL
	}
	if config.Theme == "" {
		config.Theme = DefaultTheme
	}
	if config.DataDir == "" {
		config.DataDir = GetPaths().StoragePath()
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
