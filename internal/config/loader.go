package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (dcad.toml)
// 3. Environment variables (DCAD_ prefix)
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()

	// 1. Set defaults first
	setDefaults(v)

	// 2. Load main configuration file
	if err := loadMainConfig(v, paths.Main); err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	// 3. Set up environment variable support
	v.SetEnvPrefix("DCAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal main config into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Store path for reference
	config.configPath = paths.Main

	// 6. Validate the complete configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadMainConfig loads the main configuration file
func loadMainConfig(v *viper.Viper, configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path cannot be empty")
	}

	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// LoadConfigFromDir loads configuration from a specific directory
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathsFromDir(configDir))
}

// LoadDefaultConfig loads configuration using default paths
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig(DefaultConfigPaths())
}

// ReloadConfig reloads configuration from the same paths
func ReloadConfig(existingConfig *Config) (*Config, error) {
	return LoadConfig(ConfigPaths{Main: existingConfig.configPath})
}

// SaveExampleConfig writes an example configuration file
func SaveExampleConfig(configPath string) error {
	exampleConfig := generateExampleConfig()

	v := viper.New()
	for key, value := range exampleConfig {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}

// Example accounts. They only need to be distinct and non-zero.
const (
	exampleGovernor = "0x00000000000000000000000000000000000000a1"
	exampleKeeper   = "0x00000000000000000000000000000000000000b2"
	exampleMarket   = "0x00000000000000000000000000000000000000c3"
	exampleUSDC     = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	exampleWETH     = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

// generateExampleConfig generates example configuration values
func generateExampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"server.address": "127.0.0.1:5005",
		"server.admin":   []string{"127.0.0.1"},

		"grpc.enabled": true,
		"grpc.address": "127.0.0.1:50051",

		"storage.backend":     "pebble",
		"storage.path":        "/var/lib/dcad/ledger",
		"storage.compression": "lz4",

		"journal.driver": "sqlite",
		"journal.dsn":    "/var/lib/dcad/events.db",

		"protocol.governor":          exampleGovernor,
		"protocol.fee_recipient":     exampleGovernor,
		"protocol.swap_fee":          6000,
		"protocol.loan_fee":          1000,
		"protocol.allowed_intervals": []int{3600, 86400, 604800},

		"oracle.kind":        "twap",
		"oracle.twap_window": "30m",
		"oracle.prices": []map[string]interface{}{
			{"base": "WETH", "quote": "USDC", "price": "2000"},
		},

		"tokens": []map[string]interface{}{
			{
				"symbol": "USDC", "address": exampleUSDC, "decimals": 6,
				"balances": []map[string]interface{}{
					{"holder": exampleMarket, "amount": "2000000000000"},
				},
			},
			{
				"symbol": "WETH", "address": exampleWETH, "decimals": 18,
				"balances": []map[string]interface{}{
					{"holder": exampleMarket, "amount": "1000000000000000000000"},
				},
			},
		},
		"pairs": []map[string]interface{}{
			{"token_a": "USDC", "token_b": "WETH"},
		},

		"swapper.enabled":       true,
		"swapper.account":       exampleKeeper,
		"swapper.poll_interval": "15s",
		"swapper.watch_db":      "/var/lib/dcad/watchlist",
		"swapper.pairs":         []string{"USDC/WETH"},

		"market.enabled": true,
		"market.address": exampleMarket,
		"market.pools": []map[string]interface{}{
			{
				"token_a": "USDC", "token_b": "WETH",
				"amount_a": "2000000000000", "amount_b": "1000000000000000000000",
				"fee_bps": 30, "provider": exampleMarket,
			},
		},

		"metrics.enabled": true,
		"log.level":       "info",
		"log.format":      "text",
	}
}
