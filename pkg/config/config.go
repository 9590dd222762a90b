// Package config loads the bot settings: a yaml file for everything
// non-secret plus environment variables (optionally via .env) for the API
// credentials.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Supported exchange backends.
const (
	ExchangeBinance = "binance"
	ExchangeKucoin  = "kucoin"
)

// Config is the full settings surface the orchestrator hands to the adapter
// layer.
type Config struct {
	// Exchange selects the backend: "binance" or "kucoin".
	Exchange string `yaml:"exchange"`

	// BaseURL overrides the backend's default API host, e.g. to point at a
	// sandbox.
	BaseURL string `yaml:"base_url"`

	// Credentials. Normally left empty in the yaml and supplied via
	// GOSWAP_API_KEY / GOSWAP_API_SECRET / GOSWAP_API_PASSPHRASE.
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	APIPassphrase string `yaml:"api_passphrase"`

	// Live marks the account as holding real funds.
	Live bool `yaml:"live"`

	// MainAsset is the reference asset everything is bought with and
	// liquidated back into.
	MainAsset string `yaml:"main_asset"`

	// MainAssetAmount is the amount of main asset the bot commits, kept as a
	// string so the yaml value round-trips without float artifacts.
	MainAssetAmount string `yaml:"main_asset_amount"`

	Log LogConfig `yaml:"log"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the yaml file, applies credential env vars on top and validates.
// A .env file next to the process is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	if v := os.Getenv("GOSWAP_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("GOSWAP_API_SECRET"); v != "" {
		cfg.APISecret = v
	}
	if v := os.Getenv("GOSWAP_API_PASSPHRASE"); v != "" {
		cfg.APIPassphrase = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings are complete enough to construct a backend.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Exchange) {
	case ExchangeBinance:
	case ExchangeKucoin:
		if c.APIPassphrase == "" {
			return errors.New("config: kucoin requires api_passphrase")
		}
	default:
		return errors.Errorf("config: unknown exchange %q", c.Exchange)
	}
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("config: api_key and api_secret are required")
	}
	if c.MainAsset == "" {
		return errors.New("config: main_asset is required")
	}
	if amount, err := c.Amount(); err != nil || !amount.IsPositive() {
		return errors.New("config: main_asset_amount must be a positive number")
	}
	return nil
}

// Amount parses MainAssetAmount.
func (c *Config) Amount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.MainAssetAmount)
}
