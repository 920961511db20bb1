package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SwapperConfig represents the [swapper] section
// Controls the keeper that executes due swaps of watched pairs
type SwapperConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
	// Account submits the swaps
	Account string `toml:"account" mapstructure:"account"`
	// Governor manages the watch list; defaults to the protocol governor
	Governor            string        `toml:"governor" mapstructure:"governor"`
	PollInterval        time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	QuoteCacheSize      int           `toml:"quote_cache_size" mapstructure:"quote_cache_size"`
	QuoteTTL            time.Duration `toml:"quote_ttl" mapstructure:"quote_ttl"`
	MaxConcurrentQuotes int           `toml:"max_concurrent_quotes" mapstructure:"max_concurrent_quotes"`
	// WatchDB is a directory; when set the watch list persists in a bbolt
	// file inside it
	WatchDB string `toml:"watch_db" mapstructure:"watch_db"`
	// Pairs are watched at startup; symbols are "AAA/BBB"
	Pairs []string `toml:"pairs" mapstructure:"pairs"`
}

// MarketConfig represents the [market] section
// The market is the constant product venue the keeper sells rewards to
type MarketConfig struct {
	Enabled bool         `toml:"enabled" mapstructure:"enabled"`
	Address string       `toml:"address" mapstructure:"address"`
	Pools   []PoolConfig `toml:"pools" mapstructure:"pools"`
}

// PoolConfig is a pool seeded by Provider when the ledger is created.
type PoolConfig struct {
	TokenA   string `toml:"token_a" mapstructure:"token_a"`
	TokenB   string `toml:"token_b" mapstructure:"token_b"`
	AmountA  string `toml:"amount_a" mapstructure:"amount_a"`
	AmountB  string `toml:"amount_b" mapstructure:"amount_b"`
	FeeBps   uint32 `toml:"fee_bps" mapstructure:"fee_bps"`
	Provider string `toml:"provider" mapstructure:"provider"`
}

// MetricsConfig represents the [metrics] section
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" mapstructure:"enabled"`
	Path      string `toml:"path" mapstructure:"path"`
	Namespace string `toml:"namespace" mapstructure:"namespace"`
}

// Validate performs validation on the swapper configuration
func (s *SwapperConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if err := validateAccount(s.Account, false); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	if err := validateAccount(s.Governor, true); err != nil {
		return fmt.Errorf("governor: %w", err)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", s.PollInterval)
	}
	if s.QuoteCacheSize < 0 {
		return fmt.Errorf("quote_cache_size must be non-negative, got %d", s.QuoteCacheSize)
	}
	if s.QuoteTTL < 0 {
		return fmt.Errorf("quote_ttl must be non-negative, got %s", s.QuoteTTL)
	}
	if s.MaxConcurrentQuotes < 0 {
		return fmt.Errorf("max_concurrent_quotes must be non-negative, got %d", s.MaxConcurrentQuotes)
	}
	return nil
}

// Validate performs validation on the market configuration
func (m *MarketConfig) Validate() error {
	if !m.Enabled {
		if len(m.Pools) > 0 {
			return fmt.Errorf("pools configured but market is disabled")
		}
		return nil
	}
	if err := validateAccount(m.Address, false); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	for i, p := range m.Pools {
		if err := validateAccount(p.Provider, false); err != nil {
			return fmt.Errorf("pool %d provider: %w", i, err)
		}
		if _, err := parseAmount(p.AmountA); err != nil {
			return fmt.Errorf("pool %d amount_a: %w", i, err)
		}
		if _, err := parseAmount(p.AmountB); err != nil {
			return fmt.Errorf("pool %d amount_b: %w", i, err)
		}
		if p.FeeBps >= 10_000 {
			return fmt.Errorf("pool %d fee_bps must be below 10000, got %d", i, p.FeeBps)
		}
	}
	return nil
}

// Validate performs validation on the metrics configuration
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if len(m.Path) == 0 || m.Path[0] != '/' {
		return fmt.Errorf("metrics path must start with '/', got %q", m.Path)
	}
	return nil
}

// validateAccount checks a hex account address. An empty value passes when
// optional is set.
func validateAccount(s string, optional bool) error {
	if s == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("address is required")
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("invalid address %q", s)
	}
	if common.HexToAddress(s) == (common.Address{}) {
		return fmt.Errorf("zero address")
	}
	return nil
}
