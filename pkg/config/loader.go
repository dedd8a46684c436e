package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlOverlay is the optional audit.yaml file in the config directory. Every
// field is optional; anything unset falls back to the environment variable
// or, failing that, to defaults.
type yamlOverlay struct {
	BSICatalogPath    string `yaml:"bsi_catalog_path,omitempty"`
	ChunkOverlapPages int    `yaml:"chunk_overlap_pages,omitempty"`
	SourcePrefix      string `yaml:"source_prefix,omitempty"`
	OutputPrefix      string `yaml:"output_prefix,omitempty"`
}

// Initialize loads, merges, and validates configuration:
//  1. read recognized environment variables
//  2. load an optional audit.yaml overlay from configDir
//  3. merge environment + overlay + built-in defaults (mergo, env wins)
//  4. validate
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	fromEnv := loadFromEnv()

	overlay, err := loadYAMLOverlay(configDir)
	if err != nil {
		return nil, err
	}

	cfg := mergeConfig(fromEnv, overlay)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"audit_type", cfg.AuditType,
		"test_mode", cfg.TestMode,
		"max_concurrent_ai_requests", cfg.MaxConcurrentAIRequests)

	return &cfg, nil
}

func loadFromEnv() Config {
	var cfg Config
	cfg.AuditType = AuditType(os.Getenv("AUDIT_TYPE"))
	cfg.TestMode, _ = strconv.ParseBool(os.Getenv("TEST_MODE"))
	cfg.OutputLanguage = os.Getenv("OUTPUT_LANGUAGE")
	cfg.SourcePrefix = os.Getenv("SOURCE_PREFIX")
	cfg.OutputPrefix = os.Getenv("OUTPUT_PREFIX")

	if v := os.Getenv("MAX_CONCURRENT_AI_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentAIRequests = n
		} else {
			slog.Warn("ignoring invalid MAX_CONCURRENT_AI_REQUESTS", "value", v)
		}
	}
	return cfg
}

func loadYAMLOverlay(configDir string) (yamlOverlay, error) {
	if configDir == "" {
		return yamlOverlay{}, nil
	}
	path := filepath.Join(configDir, "audit.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return yamlOverlay{}, nil
		}
		return yamlOverlay{}, NewLoadError(path, err)
	}
	var overlay yamlOverlay
	if err := yaml.Unmarshal(b, &overlay); err != nil {
		return yamlOverlay{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return overlay, nil
}

// mergeConfig layers env over the YAML overlay over built-in defaults,
// env and overlay values taking precedence over defaults (mergo's
// WithOverride semantics, applied source-over-destination).
func mergeConfig(env Config, overlay yamlOverlay) Config {
	cfg := defaults

	overlayCfg := Config{
		BSICatalogPath:    overlay.BSICatalogPath,
		ChunkOverlapPages: overlay.ChunkOverlapPages,
		SourcePrefix:      overlay.SourcePrefix,
		OutputPrefix:      overlay.OutputPrefix,
	}
	_ = mergo.Merge(&cfg, overlayCfg, mergo.WithOverride)
	_ = mergo.Merge(&cfg, env, mergo.WithOverride)

	cfg.OutputLanguage = strings.TrimSpace(cfg.OutputLanguage)
	return cfg
}
