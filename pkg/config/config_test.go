package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
exchange: binance
api_key: key
api_secret: secret
main_asset: USDT
main_asset_amount: "100.5"
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ExchangeBinance, cfg.Exchange)
	assert.Equal(t, "debug", cfg.Log.Level)

	amount, err := cfg.Amount()
	require.NoError(t, err)
	assert.Equal(t, "100.5", amount.String())
}

func TestLoadEnvOverridesCredentials(t *testing.T) {
	t.Setenv("GOSWAP_API_KEY", "env-key")
	t.Setenv("GOSWAP_API_SECRET", "env-secret")
	path := writeConfig(t, `
exchange: binance
api_key: file-key
api_secret: file-secret
main_asset: USDT
main_asset_amount: "100"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "env-secret", cfg.APISecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Exchange:        ExchangeBinance,
			APIKey:          "k",
			APISecret:       "s",
			MainAsset:       "USDT",
			MainAssetAmount: "100",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid binance", func(c *Config) {}, ""},
		{"kucoin needs passphrase", func(c *Config) { c.Exchange = ExchangeKucoin }, "api_passphrase"},
		{"kucoin with passphrase", func(c *Config) { c.Exchange = ExchangeKucoin; c.APIPassphrase = "p" }, ""},
		{"unknown exchange", func(c *Config) { c.Exchange = "mtgox" }, "unknown exchange"},
		{"missing credentials", func(c *Config) { c.APISecret = "" }, "api_key and api_secret"},
		{"missing main asset", func(c *Config) { c.MainAsset = "" }, "main_asset is required"},
		{"bad amount", func(c *Config) { c.MainAssetAmount = "lots" }, "positive number"},
		{"zero amount", func(c *Config) { c.MainAssetAmount = "0" }, "positive number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
