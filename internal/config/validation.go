package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/LeJamon/goDCA/internal/core/amount"
)

// ValidateConfig performs comprehensive validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc config validation failed: %w", err)
	}

	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := config.Journal.Validate(); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}

	if err := validateProtocol(&config.Protocol); err != nil {
		return fmt.Errorf("protocol validation failed: %w", err)
	}
	if err := validateTokens(config.Tokens); err != nil {
		return fmt.Errorf("tokens validation failed: %w", err)
	}
	if err := validateOracle(config); err != nil {
		return fmt.Errorf("oracle validation failed: %w", err)
	}

	if err := config.Swapper.Validate(); err != nil {
		return fmt.Errorf("swapper validation failed: %w", err)
	}
	if err := config.Market.Validate(); err != nil {
		return fmt.Errorf("market validation failed: %w", err)
	}

	if err := config.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	// Cross-validation checks
	if err := validateCrossReferences(config); err != nil {
		return fmt.Errorf("cross-validation failed: %w", err)
	}

	return nil
}

func validateProtocol(p *ProtocolConfig) error {
	if err := validateAccount(p.Governor, false); err != nil {
		return fmt.Errorf("governor: %w", err)
	}
	if err := validateAccount(p.FeeRecipient, true); err != nil {
		return fmt.Errorf("fee_recipient: %w", err)
	}
	if p.SwapFee > amount.MaxFee {
		return fmt.Errorf("swap_fee %d above maximum %d", p.SwapFee, amount.MaxFee)
	}
	if p.LoanFee > amount.MaxFee {
		return fmt.Errorf("loan_fee %d above maximum %d", p.LoanFee, amount.MaxFee)
	}
	if len(p.AllowedIntervals) == 0 {
		return fmt.Errorf("at least one allowed interval is required")
	}
	for _, i := range p.AllowedIntervals {
		if i == 0 {
			return fmt.Errorf("allowed intervals must be positive")
		}
	}
	return nil
}

func validateTokens(tokens []TokenConfig) error {
	symbols := make(map[string]bool, len(tokens))
	addresses := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token %s has no symbol", t.Address)
		}
		if strings.Contains(t.Symbol, "/") {
			return fmt.Errorf("token symbol %q cannot contain '/'", t.Symbol)
		}
		if err := validateAccount(t.Address, false); err != nil {
			return fmt.Errorf("token %s: %w", t.Symbol, err)
		}
		key := strings.ToUpper(t.Symbol)
		if symbols[key] {
			return fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		symbols[key] = true
		addr := common.HexToAddress(t.Address)
		if addresses[addr] {
			return fmt.Errorf("duplicate token address %s", t.Address)
		}
		addresses[addr] = true

		for _, b := range t.Balances {
			if err := validateAccount(b.Holder, false); err != nil {
				return fmt.Errorf("token %s holder: %w", t.Symbol, err)
			}
			if _, err := parseAmount(b.Amount); err != nil {
				return fmt.Errorf("token %s: %w", t.Symbol, err)
			}
		}
	}
	return nil
}

func validateOracle(config *Config) error {
	switch config.Oracle.Kind {
	case OracleStatic:
	case OracleTWAP:
		if config.Oracle.TWAPWindow <= 0 {
			return fmt.Errorf("twap_window must be positive, got %s", config.Oracle.TWAPWindow)
		}
	default:
		return fmt.Errorf("invalid oracle kind: %s (valid options: static, twap)", config.Oracle.Kind)
	}
	for _, p := range config.Oracle.Prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("price %s/%s: %w", p.Base, p.Quote, err)
		}
		if !price.IsPositive() {
			return fmt.Errorf("price %s/%s must be positive", p.Base, p.Quote)
		}
	}
	return nil
}

// validateCrossReferences checks that every token reference resolves
func validateCrossReferences(config *Config) error {
	for _, p := range config.Pairs {
		if _, err := config.ResolvePair(p); err != nil {
			return fmt.Errorf("pair %s/%s: %w", p.TokenA, p.TokenB, err)
		}
	}
	for _, p := range config.Oracle.Prices {
		if _, err := config.ResolveToken(p.Base); err != nil {
			return fmt.Errorf("price base: %w", err)
		}
		if _, err := config.ResolveToken(p.Quote); err != nil {
			return fmt.Errorf("price quote: %w", err)
		}
	}
	if _, err := config.WatchedPairs(); err != nil {
		return fmt.Errorf("swapper pairs: %w", err)
	}
	if _, err := config.Pools(); err != nil {
		return fmt.Errorf("market pools: %w", err)
	}
	if config.Metrics.Enabled {
		switch config.Metrics.Path {
		case "/rpc", "/ws", "/health":
			return fmt.Errorf("metrics path %s is already served", config.Metrics.Path)
		}
	}
	return nil
}
