package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

// Transaction types of the market
const (
	TypePoolCreate  = tx.TypeExtension + 1
	TypePoolDeposit = tx.TypeExtension + 2
	TypePoolSwap    = tx.TypeExtension + 3
)

// Events of the market
const (
	EventPoolCreated   tx.EventType = "PoolCreated"
	EventPoolDeposited tx.EventType = "PoolDeposited"
	EventPoolSwapped   tx.EventType = "PoolSwapped"
)

func init() {
	tx.Register(TypePoolCreate, "PoolCreate", func() tx.Transaction { return &PoolCreate{} })
	tx.Register(TypePoolDeposit, "PoolDeposit", func() tx.Transaction { return &PoolDeposit{} })
	tx.Register(TypePoolSwap, "PoolSwap", func() tx.Transaction { return &PoolSwap{} })
}

// PoolEvent is published when a pool's reserves change.
type PoolEvent struct {
	Pool     common.Address `json:"pool"`
	Account  common.Address `json:"account"`
	ReserveA *uint256.Int   `json:"reserveA"`
	ReserveB *uint256.Int   `json:"reserveB"`
}

// PoolSwappedEvent is published for every pool trade.
type PoolSwappedEvent struct {
	PoolEvent
	TokenIn   common.Address `json:"tokenIn"`
	TokenOut  common.Address `json:"tokenOut"`
	AmountIn  *uint256.Int   `json:"amountIn"`
	AmountOut *uint256.Int   `json:"amountOut"`
	Recipient common.Address `json:"recipient"`
}

func validateTokens(a, b common.Address) error {
	if a == (common.Address{}) || b == (common.Address{}) {
		return tx.Errorf(tx.ZeroAddress, "pool token")
	}
	if a == b {
		return tx.Errorf(tx.InvalidPair, "pool tokens must differ")
	}
	return nil
}

// sorted returns the amounts in the pool's token order.
func sorted(tokenA, tokenB common.Address, amountA, amountB *uint256.Int) (*uint256.Int, *uint256.Int) {
	if first, _ := keylet.SortTokens(tokenA, tokenB); first != tokenA {
		return amount.OrZero(amountB), amount.OrZero(amountA)
	}
	return amount.OrZero(amountA), amount.OrZero(amountB)
}

// PoolCreate opens a pool seeded with the caller's tokens. Anyone may
// create the pool of a token pair once.
type PoolCreate struct {
	TokenA  common.Address `json:"tokenA"`
	TokenB  common.Address `json:"tokenB"`
	AmountA *uint256.Int   `json:"amountA"`
	AmountB *uint256.Int   `json:"amountB"`
	// FeeBps is the trading fee in basis points
	FeeBps uint32 `json:"feeBps"`
}

func (t *PoolCreate) TxType() tx.Type { return TypePoolCreate }

func (t *PoolCreate) Validate() error {
	if err := validateTokens(t.TokenA, t.TokenB); err != nil {
		return err
	}
	if t.AmountA == nil || t.AmountA.IsZero() || t.AmountB == nil || t.AmountB.IsZero() {
		return tx.Errorf(tx.InvalidAmount, "both reserves must be positive")
	}
	if t.FeeBps > MaxPoolFee {
		return tx.Errorf(tx.InvalidFee, "pool fee %d above %d", t.FeeBps, MaxPoolFee)
	}
	return nil
}

func (t *PoolCreate) Apply(ctx *tx.ApplyContext) error {
	addr := keylet.PoolAddress(t.TokenA, t.TokenB)
	exists, err := ctx.View.Exists(keylet.Pool(addr))
	if err != nil {
		return tx.Wrap(tx.Internal, err, "read pool")
	}
	if exists {
		return tx.Errorf(tx.PoolExists, "pool %s", addr)
	}

	tokenA, tokenB := keylet.SortTokens(t.TokenA, t.TokenB)
	reserveA, reserveB := sorted(t.TokenA, t.TokenB, t.AmountA, t.AmountB)
	if err := ctx.Transfer(tokenA, addr, reserveA); err != nil {
		return err
	}
	if err := ctx.Transfer(tokenB, addr, reserveB); err != nil {
		return err
	}

	pool := &entry.Pool{
		Address:  addr,
		TokenA:   tokenA,
		TokenB:   tokenB,
		ReserveA: reserveA,
		ReserveB: reserveB,
		FeeBps:   t.FeeBps,
	}
	if err := savePool(ctx.View, pool); err != nil {
		return err
	}
	ctx.SetOutput(addr)
	ctx.Emit(EventPoolCreated, common.Address{}, &PoolEvent{
		Pool:     addr,
		Account:  ctx.Caller,
		ReserveA: pool.ReserveA,
		ReserveB: pool.ReserveB,
	})
	return nil
}

// PoolDeposit adds the caller's tokens to a pool's reserves. Deposits are
// not redeemable; they deepen the simulated market.
type PoolDeposit struct {
	TokenA  common.Address `json:"tokenA"`
	TokenB  common.Address `json:"tokenB"`
	AmountA *uint256.Int   `json:"amountA,omitempty"`
	AmountB *uint256.Int   `json:"amountB,omitempty"`
}

func (t *PoolDeposit) TxType() tx.Type { return TypePoolDeposit }

func (t *PoolDeposit) Validate() error {
	if err := validateTokens(t.TokenA, t.TokenB); err != nil {
		return err
	}
	if amount.OrZero(t.AmountA).IsZero() && amount.OrZero(t.AmountB).IsZero() {
		return tx.Errorf(tx.ZeroAmount, "nothing to deposit")
	}
	return nil
}

func (t *PoolDeposit) Apply(ctx *tx.ApplyContext) error {
	pool, err := loadPool(ctx.View, keylet.PoolAddress(t.TokenA, t.TokenB))
	if err != nil {
		return err
	}
	addA, addB := sorted(t.TokenA, t.TokenB, t.AmountA, t.AmountB)
	if err := ctx.Transfer(pool.TokenA, pool.Address, addA); err != nil {
		return err
	}
	if err := ctx.Transfer(pool.TokenB, pool.Address, addB); err != nil {
		return err
	}
	if pool.ReserveA, err = amount.Add(pool.ReserveA, addA); err != nil {
		return tx.Wrap(tx.InvalidAmount, err, "reserve")
	}
	if pool.ReserveB, err = amount.Add(pool.ReserveB, addB); err != nil {
		return tx.Wrap(tx.InvalidAmount, err, "reserve")
	}
	if err := savePool(ctx.View, pool); err != nil {
		return err
	}
	ctx.Emit(EventPoolDeposited, common.Address{}, &PoolEvent{
		Pool:     pool.Address,
		Account:  ctx.Caller,
		ReserveA: pool.ReserveA,
		ReserveB: pool.ReserveB,
	})
	return nil
}

// PoolSwap sells AmountIn of the caller's TokenIn to the pool and sends the
// TokenOut bought to Recipient, or to the caller when Recipient is unset.
type PoolSwap struct {
	TokenIn      common.Address `json:"tokenIn"`
	TokenOut     common.Address `json:"tokenOut"`
	AmountIn     *uint256.Int   `json:"amountIn"`
	MinAmountOut *uint256.Int   `json:"minAmountOut,omitempty"`
	Recipient    common.Address `json:"recipient,omitempty"`
}

func (t *PoolSwap) TxType() tx.Type { return TypePoolSwap }

func (t *PoolSwap) Validate() error {
	if err := validateTokens(t.TokenIn, t.TokenOut); err != nil {
		return err
	}
	if t.AmountIn == nil || t.AmountIn.IsZero() {
		return tx.Errorf(tx.ZeroAmount, "amount in")
	}
	return nil
}

func (t *PoolSwap) Apply(ctx *tx.ApplyContext) error {
	pool, err := loadPool(ctx.View, keylet.PoolAddress(t.TokenIn, t.TokenOut))
	if err != nil {
		return err
	}
	reserveIn, reserveOut, err := reserves(pool, t.TokenIn, t.TokenOut)
	if err != nil {
		return err
	}
	out, err := AmountOut(t.AmountIn, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		return err
	}
	if out.IsZero() {
		return tx.Errorf(tx.InsufficientOutput, "selling %s yields nothing", t.AmountIn)
	}
	if t.MinAmountOut != nil && out.Lt(t.MinAmountOut) {
		return tx.Errorf(tx.InsufficientOutput, "yields %s, minimum %s", out, t.MinAmountOut)
	}

	recipient := t.Recipient
	if recipient == (common.Address{}) {
		recipient = ctx.Caller
	}
	if err := ctx.Transfer(t.TokenIn, pool.Address, t.AmountIn); err != nil {
		return err
	}
	if err := ctx.Move(t.TokenOut, pool.Address, recipient, out); err != nil {
		return err
	}

	newIn, err := amount.Add(reserveIn, t.AmountIn)
	if err != nil {
		return tx.Wrap(tx.InvalidAmount, err, "reserve")
	}
	newOut := new(uint256.Int).Sub(reserveOut, out)
	if t.TokenIn == pool.TokenA {
		pool.ReserveA, pool.ReserveB = newIn, newOut
	} else {
		pool.ReserveA, pool.ReserveB = newOut, newIn
	}
	if err := savePool(ctx.View, pool); err != nil {
		return err
	}

	ctx.SetOutput(out)
	ctx.Emit(EventPoolSwapped, common.Address{}, &PoolSwappedEvent{
		PoolEvent: PoolEvent{
			Pool:     pool.Address,
			Account:  ctx.Caller,
			ReserveA: pool.ReserveA,
			ReserveB: pool.ReserveB,
		},
		TokenIn:   t.TokenIn,
		TokenOut:  t.TokenOut,
		AmountIn:  t.AmountIn,
		AmountOut: out,
		Recipient: recipient,
	})
	return nil
}
