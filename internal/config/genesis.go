package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/oracle"
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/core/tx/market"
)

// Pool is a resolved [[market.pools]] entry.
type Pool struct {
	Provider common.Address
	Create   *market.PoolCreate
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount is required")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// ResolveToken returns the address of a token named by symbol or address.
func (c *Config) ResolveToken(ref string) (common.Address, error) {
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, ref) {
			return common.HexToAddress(t.Address), nil
		}
	}
	return common.Address{}, fmt.Errorf("unknown token %q", ref)
}

// ResolvePair returns the pair address of a [[pairs]] entry.
func (c *Config) ResolvePair(p PairConfig) (common.Address, error) {
	a, err := c.ResolveToken(p.TokenA)
	if err != nil {
		return common.Address{}, err
	}
	b, err := c.ResolveToken(p.TokenB)
	if err != nil {
		return common.Address{}, err
	}
	return keylet.PairAddress(a, b), nil
}

// WatchedPairs resolves swapper.pairs. Entries are pair addresses or
// "AAA/BBB" token references.
func (c *Config) WatchedPairs() ([]common.Address, error) {
	pairs := make([]common.Address, 0, len(c.Swapper.Pairs))
	for _, ref := range c.Swapper.Pairs {
		if common.IsHexAddress(ref) {
			pairs = append(pairs, common.HexToAddress(ref))
			continue
		}
		a, b, ok := strings.Cut(ref, "/")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q (expected address or AAA/BBB)", ref)
		}
		pair, err := c.ResolvePair(PairConfig{TokenA: a, TokenB: b})
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", ref, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// SwapperGovernor returns the account managing the watch list.
func (c *Config) SwapperGovernor() common.Address {
	if c.Swapper.Governor != "" {
		return common.HexToAddress(c.Swapper.Governor)
	}
	return common.HexToAddress(c.Protocol.Governor)
}

// ToGenesis converts the protocol, token and pair sections into the
// ledger's initial state.
func (c *Config) ToGenesis() (tx.Genesis, error) {
	g := tx.Genesis{
		Governor:         common.HexToAddress(c.Protocol.Governor),
		FeeRecipient:     common.HexToAddress(c.Protocol.FeeRecipient),
		SwapFee:          c.Protocol.SwapFee,
		LoanFee:          c.Protocol.LoanFee,
		AllowedIntervals: c.Protocol.AllowedIntervals,
		Paused:           c.Protocol.Paused,
	}
	if c.Protocol.FeeRecipient == "" {
		g.FeeRecipient = g.Governor
	}

	for _, t := range c.Tokens {
		tok := tx.GenesisToken{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Balances: make(map[common.Address]*uint256.Int, len(t.Balances)),
		}
		for _, b := range t.Balances {
			v, err := parseAmount(b.Amount)
			if err != nil {
				return tx.Genesis{}, fmt.Errorf("token %s balance of %s: %w", t.Symbol, b.Holder, err)
			}
			holder := common.HexToAddress(b.Holder)
			if prev, ok := tok.Balances[holder]; ok {
				v = new(uint256.Int).Add(prev, v)
			}
			tok.Balances[holder] = v
		}
		g.Tokens = append(g.Tokens, tok)
	}

	for _, p := range c.Pairs {
		a, err := c.ResolveToken(p.TokenA)
		if err != nil {
			return tx.Genesis{}, fmt.Errorf("pair %s/%s: %w", p.TokenA, p.TokenB, err)
		}
		b, err := c.ResolveToken(p.TokenB)
		if err != nil {
			return tx.Genesis{}, fmt.Errorf("pair %s/%s: %w", p.TokenA, p.TokenB, err)
		}
		g.Pairs = append(g.Pairs, [2]common.Address{a, b})
	}
	return g, nil
}

// Pools resolves the [[market.pools]] entries into pool creations.
func (c *Config) Pools() ([]Pool, error) {
	pools := make([]Pool, 0, len(c.Market.Pools))
	for i, p := range c.Market.Pools {
		a, err := c.ResolveToken(p.TokenA)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		b, err := c.ResolveToken(p.TokenB)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		amountA, err := parseAmount(p.AmountA)
		if err != nil {
			return nil, fmt.Errorf("pool %d amount_a: %w", i, err)
		}
		amountB, err := parseAmount(p.AmountB)
		if err != nil {
			return nil, fmt.Errorf("pool %d amount_b: %w", i, err)
		}
		pools = append(pools, Pool{
			Provider: common.HexToAddress(p.Provider),
			Create: &market.PoolCreate{
				TokenA:  a,
				TokenB:  b,
				AmountA: amountA,
				AmountB: amountB,
				FeeBps:  p.FeeBps,
			},
		})
	}
	return pools, nil
}

// NewOracle builds the configured price feed and loads the configured
// tokens and starting prices into it.
func (c *Config) NewOracle(clock oracle.Clock) (oracle.Feed, error) {
	var feed oracle.Feed
	switch c.Oracle.Kind {
	case OracleStatic, "":
		feed = oracle.NewStatic()
	case OracleTWAP:
		feed = oracle.NewTWAP(clock, c.Oracle.TWAPWindow)
	default:
		return nil, fmt.Errorf("unknown oracle kind %q", c.Oracle.Kind)
	}

	for _, t := range c.Tokens {
		feed.SetToken(common.HexToAddress(t.Address), t.Decimals)
	}
	for _, p := range c.Oracle.Prices {
		base, err := c.ResolveToken(p.Base)
		if err != nil {
			return nil, fmt.Errorf("price %s/%s: %w", p.Base, p.Quote, err)
		}
		quote, err := c.ResolveToken(p.Quote)
		if err != nil {
			return nil, fmt.Errorf("price %s/%s: %w", p.Base, p.Quote, err)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("price %s/%s: %w", p.Base, p.Quote, err)
		}
		if err := feed.Update(base, quote, price); err != nil {
			return nil, fmt.Errorf("price %s/%s: %w", p.Base, p.Quote, err)
		}
	}
	return feed, nil
}
