// Package config handles configuration management with validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Trading     TradingConfig     `yaml:"trading"`
	System      SystemConfig      `yaml:"system"`
	Polling     PollingConfig     `yaml:"polling"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Alerts      AlertsConfig      `yaml:"alerts"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Network     string `yaml:"network"`
}

// IndexerConfig describes how to reach the exchange indexer
type IndexerConfig struct {
	RESTURL        string  `yaml:"rest_url"`
	WSURL          string  `yaml:"ws_url"`
	GRPCTarget     string  `yaml:"grpc_target"`
	APIKey         Secret  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"` // requests per second
	Burst          int     `yaml:"burst"`
}

// Timeout returns the request timeout as a duration
func (c IndexerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TradingConfig contains estimator defaults
type TradingConfig struct {
	// DefaultSlippage is a fraction, 0.005 means prices are worsened by 0.5%
	DefaultSlippage       float64   `yaml:"default_slippage"`
	DefaultLeverage       float64   `yaml:"default_leverage"`
	PercentPresets        []float64 `yaml:"percent_presets"`
	DefaultMaintenanceMMR float64   `yaml:"default_maintenance_margin_ratio"`
	DefaultGasPrice       string    `yaml:"default_gas_price"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// PollingConfig contains background refresh intervals in seconds
type PollingConfig struct {
	GasPriceInterval int      `yaml:"gas_price_interval"`
	SummaryInterval  int      `yaml:"summary_interval"`
	MarketIDs        []string `yaml:"market_ids"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	WorkerPoolSize   int `yaml:"worker_pool_size"`
	WorkerPoolBuffer int `yaml:"worker_pool_buffer"`
}

// StorageConfig selects the snapshot store
type StorageConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// ServerConfig contains the outer HTTP surfaces
type ServerConfig struct {
	APIPort        int      `yaml:"api_port"`
	LivePort       int      `yaml:"live_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// APIKeys guard the estimator routes; empty disables the check
	APIKeys []Secret `yaml:"api_keys"`
}

// AlertsConfig configures liquidation risk notifications. Channels without credentials stay disabled.
type AlertsConfig struct {
	SlackWebhook    Secret `yaml:"slack_webhook"`
	TelegramToken   Secret `yaml:"telegram_token"`
	TelegramChatID  string `yaml:"telegram_chat_id"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
}

// Cooldown returns the minimum delay between alerts of the same market
func (c AlertsConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
	PrettyPrint   bool `yaml:"pretty_print"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion.
// A .env file next to the config file is loaded first; variables already set win.
func LoadConfig(filename string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(filename), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	for _, validate := range []func() error{
		c.validateAppConfig,
		c.validateIndexerConfig,
		c.validateTradingConfig,
		c.validateSystemConfig,
		c.validatePollingConfig,
		c.validateConcurrencyConfig,
		c.validateStorageConfig,
		c.validateServerConfig,
		c.validateAlertsConfig,
	} {
		if err := validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateAppConfig() error {
	validNetworks := []string{"mainnet", "testnet", "devnet", "local"}
	if !contains(validNetworks, c.App.Network) {
		return ValidationError{
			Field:   "app.network",
			Value:   c.App.Network,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validNetworks, ", ")),
		}
	}
	return nil
}

func (c *Config) validateIndexerConfig() error {
	if c.Indexer.RESTURL == "" {
		return ValidationError{
			Field:   "indexer.rest_url",
			Message: "indexer REST endpoint is required",
		}
	}
	if u, err := url.Parse(c.Indexer.RESTURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   "indexer.rest_url",
			Value:   c.Indexer.RESTURL,
			Message: "must be an http(s) URL",
		}
	}
	if c.Indexer.WSURL != "" {
		if u, err := url.Parse(c.Indexer.WSURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return ValidationError{
				Field:   "indexer.ws_url",
				Value:   c.Indexer.WSURL,
				Message: "must be a ws(s) URL",
			}
		}
	}
	if c.Indexer.TimeoutSeconds <= 0 {
		return ValidationError{
			Field:   "indexer.timeout_seconds",
			Value:   c.Indexer.TimeoutSeconds,
			Message: "timeout must be positive",
		}
	}
	if c.Indexer.RateLimit <= 0 {
		return ValidationError{
			Field:   "indexer.rate_limit",
			Value:   c.Indexer.RateLimit,
			Message: "rate limit must be positive",
		}
	}
	return nil
}

func (c *Config) validateTradingConfig() error {
	if c.Trading.DefaultSlippage < 0 || c.Trading.DefaultSlippage >= 1 {
		return ValidationError{
			Field:   "trading.default_slippage",
			Value:   c.Trading.DefaultSlippage,
			Message: "slippage must be in [0, 1)",
		}
	}
	if c.Trading.DefaultLeverage <= 0 {
		return ValidationError{
			Field:   "trading.default_leverage",
			Value:   c.Trading.DefaultLeverage,
			Message: "leverage must be positive",
		}
	}
	for _, p := range c.Trading.PercentPresets {
		if p <= 0 || p > 1 {
			return ValidationError{
				Field:   "trading.percent_presets",
				Value:   p,
				Message: "presets must be in (0, 1]",
			}
		}
	}
	if c.Trading.DefaultMaintenanceMMR <= 0 || c.Trading.DefaultMaintenanceMMR >= 1 {
		return ValidationError{
			Field:   "trading.default_maintenance_margin_ratio",
			Value:   c.Trading.DefaultMaintenanceMMR,
			Message: "ratio must be in (0, 1)",
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validatePollingConfig() error {
	if c.Polling.GasPriceInterval <= 0 {
		return ValidationError{
			Field:   "polling.gas_price_interval",
			Value:   c.Polling.GasPriceInterval,
			Message: "interval must be positive",
		}
	}
	if c.Polling.SummaryInterval <= 0 {
		return ValidationError{
			Field:   "polling.summary_interval",
			Value:   c.Polling.SummaryInterval,
			Message: "interval must be positive",
		}
	}
	return nil
}

func (c *Config) validateConcurrencyConfig() error {
	if c.Concurrency.WorkerPoolSize < 1 || c.Concurrency.WorkerPoolSize > 100 {
		return ValidationError{
			Field:   "concurrency.worker_pool_size",
			Value:   c.Concurrency.WorkerPoolSize,
			Message: "must be between 1 and 100",
		}
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	switch c.Storage.Type {
	case "memory":
		return nil
	case "sqlite":
		if c.Storage.Path == "" {
			return ValidationError{
				Field:   "storage.path",
				Message: "path is required for sqlite storage",
			}
		}
		return nil
	default:
		return ValidationError{
			Field:   "storage.type",
			Value:   c.Storage.Type,
			Message: "must be one of: memory, sqlite",
		}
	}
}

func (c *Config) validateServerConfig() error {
	if c.Server.APIPort != 0 && c.Server.APIPort == c.Server.LivePort {
		return ValidationError{
			Field:   "server.live_port",
			Value:   c.Server.LivePort,
			Message: "must differ from api_port",
		}
	}
	return nil
}

func (c *Config) validateAlertsConfig() error {
	if c.Alerts.CooldownSeconds < 0 {
		return ValidationError{
			Field:   "alerts.cooldown_seconds",
			Value:   c.Alerts.CooldownSeconds,
			Message: "cooldown must not be negative",
		}
	}
	if c.Alerts.TelegramToken != "" && c.Alerts.TelegramChatID == "" {
		return ValidationError{
			Field:   "alerts.telegram_chat_id",
			Message: "required when telegram_token is set",
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// String returns a string representation of the configuration (with sensitive data masked)
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// DefaultConfig returns a configuration pointing at the public testnet indexer
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "dex_trader",
			Environment: "development",
			Network:     "testnet",
		},
		Indexer: IndexerConfig{
			RESTURL:        "https://testnet.indexer.example.com",
			WSURL:          "wss://testnet.indexer.example.com/ws",
			GRPCTarget:     "testnet.indexer.example.com:443",
			TimeoutSeconds: 10,
			RateLimit:      20,
			Burst:          5,
		},
		Trading: TradingConfig{
			DefaultSlippage:       0.005,
			DefaultLeverage:       1,
			PercentPresets:        []float64{0.25, 0.5, 0.75, 1},
			DefaultMaintenanceMMR: 0.05,
			DefaultGasPrice:       "500000000",
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Polling: PollingConfig{
			GasPriceInterval: 30,
			SummaryInterval:  10,
		},
		Concurrency: ConcurrencyConfig{
			WorkerPoolSize:   4,
			WorkerPoolBuffer: 100,
		},
		Storage: StorageConfig{
			Type: "memory",
		},
		Server: ServerConfig{
			APIPort:        8080,
			LivePort:       8081,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: true,
		},
		Alerts: AlertsConfig{
			CooldownSeconds: 300,
		},
	}
}
