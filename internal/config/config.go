package config

import (
	"path/filepath"
	"time"

	"github.com/LeJamon/goDCA/internal/logging"
	"github.com/LeJamon/goDCA/internal/storage/journal"
)

// Config represents the complete dcad configuration
type Config struct {
	// 1. Listeners
	Server ServerConfig `toml:"server" mapstructure:"server"`
	GRPC   GRPCConfig   `toml:"grpc" mapstructure:"grpc"`

	// 2. Persistence
	Storage StorageConfig  `toml:"storage" mapstructure:"storage"`
	Journal journal.Config `toml:"journal" mapstructure:"journal"`

	// 3. Protocol and genesis state
	Protocol ProtocolConfig `toml:"protocol" mapstructure:"protocol"`
	Oracle   OracleConfig   `toml:"oracle" mapstructure:"oracle"`
	Tokens   []TokenConfig  `toml:"tokens" mapstructure:"tokens"`
	Pairs    []PairConfig   `toml:"pairs" mapstructure:"pairs"`

	// 4. Keeper
	Swapper SwapperConfig `toml:"swapper" mapstructure:"swapper"`
	Market  MarketConfig  `toml:"market" mapstructure:"market"`

	// 5. Diagnostics
	Metrics MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	Log     logging.Config `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPaths holds the paths to configuration files
type ConfigPaths struct {
	Main string // Path to main config file (dcad.toml)
}

// DefaultConfigPaths returns the default configuration file paths
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "dcad.toml"}
}

// ConfigPathsFromDir returns configuration paths for a specific directory
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "dcad.toml")}
}

// GetConfigPath returns the path to the main configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// ProtocolConfig represents the [protocol] section. It seeds the ledger
// parameters on first start; afterwards governance owns them.
type ProtocolConfig struct {
	Governor     string `toml:"governor" mapstructure:"governor"`
	FeeRecipient string `toml:"fee_recipient" mapstructure:"fee_recipient"`
	// Fees are in millionths
	SwapFee          uint32   `toml:"swap_fee" mapstructure:"swap_fee"`
	LoanFee          uint32   `toml:"loan_fee" mapstructure:"loan_fee"`
	AllowedIntervals []uint32 `toml:"allowed_intervals" mapstructure:"allowed_intervals"`
	Paused           bool     `toml:"paused" mapstructure:"paused"`

	// AllowOneSidedSwaps lets a pair swap when only one side has demand
	AllowOneSidedSwaps bool `toml:"allow_one_sided_swaps" mapstructure:"allow_one_sided_swaps"`
}

// Oracle kinds accepted in [oracle].
const (
	OracleStatic = "static"
	OracleTWAP   = "twap"
)

// OracleConfig represents the [oracle] section
type OracleConfig struct {
	Kind       string        `toml:"kind" mapstructure:"kind"`
	TWAPWindow time.Duration `toml:"twap_window" mapstructure:"twap_window"`
	Prices     []PriceConfig `toml:"prices" mapstructure:"prices"`
}

// PriceConfig is a starting price: one whole Base is worth Price whole Quote.
type PriceConfig struct {
	Base  string `toml:"base" mapstructure:"base"`
	Quote string `toml:"quote" mapstructure:"quote"`
	Price string `toml:"price" mapstructure:"price"`
}

// TokenConfig represents one [[tokens]] entry
type TokenConfig struct {
	Symbol   string          `toml:"symbol" mapstructure:"symbol"`
	Address  string          `toml:"address" mapstructure:"address"`
	Decimals uint8           `toml:"decimals" mapstructure:"decimals"`
	Balances []BalanceConfig `toml:"balances" mapstructure:"balances"`
}

// BalanceConfig credits Amount base units to Holder at genesis.
type BalanceConfig struct {
	Holder string `toml:"holder" mapstructure:"holder"`
	Amount string `toml:"amount" mapstructure:"amount"`
}

// PairConfig represents one [[pairs]] entry. Tokens are named by symbol
// or address.
type PairConfig struct {
	TokenA string `toml:"token_a" mapstructure:"token_a"`
	TokenB string `toml:"token_b" mapstructure:"token_b"`
}
