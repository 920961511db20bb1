package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Static quotes fixed prices. Prices are set per ordered pair as the number
// of whole quote tokens one whole base token buys; the reverse direction is
// derived.
type Static struct {
	mu       sync.RWMutex
	decimals map[common.Address]uint8
	prices   map[pairKey]decimal.Decimal
}

// NewStatic creates an empty Static oracle.
func NewStatic() *Static {
	return &Static{
		decimals: make(map[common.Address]uint8),
		prices:   make(map[pairKey]decimal.Decimal),
	}
}

// SetToken registers a token's precision.
func (s *Static) SetToken(token common.Address, decimals uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decimals[token] = decimals
}

// SetPrice sets how many whole quote tokens one whole base token is worth.
func (s *Static) SetPrice(base, quote common.Address, price decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, pairKey{quote, base})
	s.prices[pairKey{base, quote}] = price
	return nil
}

// Price returns the price of base in quote.
func (s *Static) Price(base, quote common.Address) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prices[pairKey{base, quote}]; ok {
		return p, nil
	}
	if p, ok := s.prices[pairKey{quote, base}]; ok {
		return invert(p), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, base.Hex(), quote.Hex())
}

func (s *Static) Quote(_ context.Context, tokenIn common.Address, amountIn *uint256.Int, tokenOut common.Address) (*uint256.Int, error) {
	decIn, decOut, err := s.precision(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	price, err := s.Price(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return convert(amountIn, decIn, decOut, price)
}

func (s *Static) precision(tokenIn, tokenOut common.Address) (uint8, uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decIn, ok := s.decimals[tokenIn]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownToken, tokenIn.Hex())
	}
	decOut, ok := s.decimals[tokenOut]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownToken, tokenOut.Hex())
	}
	return decIn, decOut, nil
}
