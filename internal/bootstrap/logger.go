package bootstrap

import (
	"dex_trader/internal/core"
	"dex_trader/pkg/logging"
)

// InitLogger creates the zap logger for cfg and installs it as the global logger.
func InitLogger(cfg *Config) (core.ILogger, error) {
	zl, err := logging.NewNamedZapLogger(cfg.App.Name, cfg.System.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := zl.WithFields(map[string]interface{}{
		"network": cfg.App.Network,
	})
	logging.SetGlobalLogger(logger)

	if cfg.Indexer.APIKey != "" {
		logger.Debug("indexer credentials loaded", "api_key", cfg.Indexer.APIKey.Masked())
	}

	return logger, nil
}
