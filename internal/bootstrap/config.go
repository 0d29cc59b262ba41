package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"dex_trader/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// LoadConfig delegates to the project's config loader
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}

	return cfg, nil
}

// checkPreFlight performs environment checks beyond schema validation
func checkPreFlight(cfg *Config) error {
	if cfg.Storage.Type == "sqlite" {
		dir := filepath.Dir(cfg.Storage.Path)
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("storage directory not found: %s", dir)
			}
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path parent is not a directory: %s", dir)
		}
	}

	if cfg.IsProduction() && cfg.Indexer.APIKey == "" {
		return fmt.Errorf("indexer api_key is required in production")
	}

	return nil
}
