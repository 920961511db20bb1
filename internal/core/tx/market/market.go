package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/swapper"
)

// DefaultAddress is where the market is registered as a swap callee unless
// configured otherwise.
var DefaultAddress = common.HexToAddress("0x000000000000000000000000000000000000dca0")

// order is the quote payload the market fills during a swap callback.
type order struct {
	SellToken    common.Address `json:"sellToken"`
	BuyToken     common.Address `json:"buyToken"`
	SellAmount   *uint256.Int   `json:"sellAmount"`
	MinBuyAmount *uint256.Int   `json:"minBuyAmount"`
}

// Market quotes reward sales against the ledger's pools and fills them as
// a swap callee. The bought tokens go straight to the pair being swapped.
type Market struct {
	engine  *tx.Engine
	address common.Address
	log     *slog.Logger
}

// New registers a market at address on engine.
func New(engine *tx.Engine, address common.Address, logger *slog.Logger) (*Market, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Market{
		engine:  engine,
		address: address,
		log:     logger.With("component", "market"),
	}
	if err := engine.RegisterCallee(address, m); err != nil {
		return nil, fmt.Errorf("register market: %w", err)
	}
	return m, nil
}

// Address returns the callee address of the market.
func (m *Market) Address() common.Address { return m.address }

// Pool returns a copy of the pool trading a and b.
func (m *Market) Pool(a, b common.Address) (*PoolInfo, error) {
	var info *PoolInfo
	err := m.engine.Read(func(v ledger.View) error {
		p, err := loadPool(v, keylet.PoolAddress(a, b))
		if err != nil {
			return err
		}
		info = &PoolInfo{
			Address:  p.Address,
			TokenA:   p.TokenA,
			TokenB:   p.TokenB,
			ReserveA: p.ReserveA,
			ReserveB: p.ReserveB,
			FeeBps:   p.FeeBps,
		}
		return nil
	})
	return info, err
}

// PoolInfo is the state of one pool.
type PoolInfo struct {
	Address  common.Address `json:"address"`
	TokenA   common.Address `json:"tokenA"`
	TokenB   common.Address `json:"tokenB"`
	ReserveA *uint256.Int   `json:"reserveA"`
	ReserveB *uint256.Int   `json:"reserveB"`
	FeeBps   uint32         `json:"feeBps"`
}

// Quote prices req against current reserves. The quote's minimum is its
// own BuyAmount, so filling it fails if the pool moved against the seller
// in between. Quote takes the engine lock and must not be called from a
// callback.
func (m *Market) Quote(ctx context.Context, req swapper.QuoteRequest) (*swapper.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.SellAmount == nil || req.SellAmount.IsZero() {
		return nil, tx.Errorf(tx.ZeroAmount, "sell amount")
	}
	var out *uint256.Int
	err := m.engine.Read(func(v ledger.View) error {
		p, err := loadPool(v, keylet.PoolAddress(req.SellToken, req.BuyToken))
		if err != nil {
			return err
		}
		reserveIn, reserveOut, err := reserves(p, req.SellToken, req.BuyToken)
		if err != nil {
			return err
		}
		out, err = AmountOut(req.SellAmount, reserveIn, reserveOut, p.FeeBps)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("quote %s for %s: %w", req.SellToken, req.BuyToken, err)
	}

	payload, err := json.Marshal(&order{
		SellToken:    req.SellToken,
		BuyToken:     req.BuyToken,
		SellAmount:   req.SellAmount,
		MinBuyAmount: out,
	})
	if err != nil {
		return nil, err
	}
	return &swapper.Quote{
		SellAmount: req.SellAmount,
		BuyAmount:  out,
		Payload:    payload,
		Executor:   m.address,
	}, nil
}

// OnSwap fills the order in cb.Data with the reward the market just
// received and sends everything bought to the pair.
func (m *Market) OnSwap(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
	var o order
	if err := json.Unmarshal(cb.Data, &o); err != nil {
		return tx.Wrap(tx.Malformed, err, "market order")
	}
	if o.SellToken != cb.Info.TokenToRewardSwapperWith || o.BuyToken != cb.Info.TokenToBeProvidedBySwapper {
		return tx.Errorf(tx.Malformed, "order sells %s for %s", o.SellToken, o.BuyToken)
	}
	m.log.Debug("filling order",
		"pair", cb.Info.Pair,
		"sell", o.SellAmount,
		"minBuy", o.MinBuyAmount,
	)
	return ctx.Call(&PoolSwap{
		TokenIn:      o.SellToken,
		TokenOut:     o.BuyToken,
		AmountIn:     o.SellAmount,
		MinAmountOut: o.MinBuyAmount,
		Recipient:    cb.Info.Pair,
	})
}
