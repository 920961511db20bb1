package oracle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Feed is an oracle whose prices are pushed in by an operator.
type Feed interface {
	Oracle
	SetToken(token common.Address, decimals uint8)
	Update(base, quote common.Address, price decimal.Decimal) error
}

// Update sets the price of base in quote.
func (s *Static) Update(base, quote common.Address, price decimal.Decimal) error {
	return s.SetPrice(base, quote, price)
}

// Update records price as observed now.
func (o *TWAP) Update(base, quote common.Address, price decimal.Decimal) error {
	return o.Observe(base, quote, price, o.clock.Now())
}

var (
	_ Feed = (*Static)(nil)
	_ Feed = (*TWAP)(nil)
)
