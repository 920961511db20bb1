package market_test

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/tx"
	mkt "github.com/LeJamon/goDCA/internal/core/tx/market"
	"github.com/LeJamon/goDCA/internal/swapper"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/market"
	"github.com/LeJamon/goDCA/internal/testing/position"
	"github.com/LeJamon/goDCA/internal/testing/swap"
)

type fixture struct {
	env    *jtx.TestEnv
	pair   common.Address
	tokenA common.Address
	tokenB common.Address
	lp     *jtx.Account
	market *mkt.Market
}

// setup creates two tokens, their pair at one B = 2 A and a registered
// market. The liquidity provider holds 100k of each token.
func setup(t *testing.T) *fixture {
	t.Helper()
	env := jtx.NewTestEnv(t)
	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
	p := env.Pair(pair)
	env.SetPrice(p.TokenB, p.TokenA, "2")

	m, err := mkt.New(env.Engine(), mkt.DefaultAddress, nil)
	require.NoError(t, err)

	f := &fixture{
		env:    env,
		pair:   pair,
		tokenA: p.TokenA,
		tokenB: p.TokenB,
		lp:     env.Account("lp"),
		market: m,
	}
	env.Mint(f.tokenA, f.lp, jtx.Ether(100_000))
	env.Mint(f.tokenB, f.lp, jtx.Ether(100_000))
	return f
}

func (f *fixture) createPool(t *testing.T, reserveA, reserveB *uint256.Int) common.Address {
	t.Helper()
	result := f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenB).Reserves(reserveA, reserveB).Build())
	jtx.RequireTxSuccess(t, result)
	return result.Output.(common.Address)
}

func TestAmountOut(t *testing.T) {
	tests := []struct {
		name       string
		in, rIn    uint64
		rOut       uint64
		fee        uint32
		expected   uint64
		expectFail bool
	}{
		{name: "no fee", in: 1000, rIn: 1000, rOut: 1000, expected: 500},
		{name: "rounds down", in: 100, rIn: 1000, rOut: 1000, expected: 90},
		{name: "fee", in: 100, rIn: 1000, rOut: 1000, fee: 30, expected: 90},
		{name: "max fee", in: 1000, rIn: 1000, rOut: 1000, fee: mkt.MaxPoolFee, expected: 473},
		{name: "empty pool", in: 1, rIn: 0, rOut: 1000, expectFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mkt.AmountOut(uint256.NewInt(tt.in), uint256.NewInt(tt.rIn), uint256.NewInt(tt.rOut), tt.fee)
			if tt.expectFail {
				require.ErrorIs(t, err, tx.ErrInsufficientLiquidity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.Uint64())
		})
	}
}

func TestPoolCreate(t *testing.T) {
	t.Run("funds the pool", func(t *testing.T) {
		f := setup(t)
		result := f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenB).Reserves(jtx.Ether(1_000), jtx.Ether(2_000)).Build())
		jtx.RequireTxSuccess(t, result)

		addr := result.Output.(common.Address)
		assert.Equal(t, keylet.PoolAddress(f.tokenA, f.tokenB), addr)
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenA, addr))
		jtx.RequireAmount(t, jtx.Ether(2_000), f.env.Balance(f.tokenB, addr))
		jtx.RequireBalance(t, f.env, f.tokenA, f.lp, jtx.Ether(99_000))

		pool, err := f.market.Pool(f.tokenB, f.tokenA)
		require.NoError(t, err)
		jtx.RequireAmount(t, jtx.Ether(1_000), pool.ReserveA)
		jtx.RequireAmount(t, jtx.Ether(2_000), pool.ReserveB)
		assert.Equal(t, uint32(30), pool.FeeBps)

		ev := result.Event(mkt.EventPoolCreated)
		require.NotNil(t, ev)
		assert.Equal(t, f.lp.Address, ev.Data.(*mkt.PoolEvent).Account)
	})

	t.Run("tokens in either order", func(t *testing.T) {
		f := setup(t)
		jtx.RequireTxSuccess(t, f.env.Submit(f.lp, market.PoolCreate(f.tokenB, f.tokenA).Reserves(jtx.Ether(2_000), jtx.Ether(1_000)).Build()))
		pool, err := f.market.Pool(f.tokenA, f.tokenB)
		require.NoError(t, err)
		assert.Equal(t, f.tokenA, pool.TokenA)
		jtx.RequireAmount(t, jtx.Ether(1_000), pool.ReserveA)
		jtx.RequireAmount(t, jtx.Ether(2_000), pool.ReserveB)
	})

	t.Run("only once per token pair", func(t *testing.T) {
		f := setup(t)
		f.createPool(t, jtx.Ether(1), jtx.Ether(1))
		result := f.env.Submit(f.lp, market.PoolCreate(f.tokenB, f.tokenA).Reserves(jtx.Ether(1), jtx.Ether(1)).Build())
		jtx.RequireTxFail(t, result, tx.PoolExists)
	})

	t.Run("malformed", func(t *testing.T) {
		f := setup(t)
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenA).Reserves(jtx.Ether(1), jtx.Ether(1)).Build()), tx.InvalidPair)
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolCreate(f.tokenA, common.Address{}).Reserves(jtx.Ether(1), jtx.Ether(1)).Build()), tx.ZeroAddress)
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenB).Reserves(jtx.Ether(1), uint256.NewInt(0)).Build()), tx.InvalidAmount)
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenB).Reserves(jtx.Ether(1), jtx.Ether(1)).Fee(mkt.MaxPoolFee+1).Build()), tx.InvalidFee)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := setup(t)
		result := f.env.Submit(f.lp, market.PoolCreate(f.tokenA, jtx.TokenAddress("ZZZ")).Reserves(jtx.Ether(1), jtx.Ether(1)).Build())
		jtx.RequireTxFail(t, result, tx.InvalidToken)
		jtx.RequireBalance(t, f.env, f.tokenA, f.lp, jtx.Ether(100_000))
	})

	t.Run("creator lacks funds", func(t *testing.T) {
		f := setup(t)
		result := f.env.Submit(f.lp, market.PoolCreate(f.tokenA, f.tokenB).Reserves(jtx.Ether(1), jtx.Ether(100_001)).Build())
		jtx.RequireTxFail(t, result, tx.InsufficientBalance)
		jtx.RequireBalance(t, f.env, f.tokenA, f.lp, jtx.Ether(100_000))
	})
}

func TestPoolDeposit(t *testing.T) {
	f := setup(t)
	addr := f.createPool(t, jtx.Ether(1_000), jtx.Ether(2_000))

	t.Run("one side", func(t *testing.T) {
		jtx.RequireTxSuccess(t, f.env.Submit(f.lp, market.PoolDeposit(f.tokenB, f.tokenA, jtx.Ether(500), nil)))
		pool, err := f.market.Pool(f.tokenA, f.tokenB)
		require.NoError(t, err)
		jtx.RequireAmount(t, jtx.Ether(1_000), pool.ReserveA)
		jtx.RequireAmount(t, jtx.Ether(2_500), pool.ReserveB)
		jtx.RequireAmount(t, jtx.Ether(2_500), f.env.Balance(f.tokenB, addr))
	})

	t.Run("nothing", func(t *testing.T) {
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolDeposit(f.tokenA, f.tokenB, nil, nil)), tx.ZeroAmount)
	})

	t.Run("no pool", func(t *testing.T) {
		other := f.env.CreateToken("CCC", 6)
		jtx.RequireTxFail(t, f.env.Submit(f.lp, market.PoolDeposit(f.tokenA, other, jtx.Ether(1), nil)), tx.PoolNotFound)
	})
}

func TestPoolSwap(t *testing.T) {
	t.Run("sells into the pool", func(t *testing.T) {
		f := setup(t)
		addr := f.createPool(t, jtx.Ether(1_000), jtx.Ether(2_000))
		trader := f.env.Account("trader")
		f.env.Mint(f.tokenA, trader, jtx.Ether(10))

		result := f.env.Submit(trader, market.PoolSwap(f.tokenA, f.tokenB, jtx.Ether(10)).Build())
		jtx.RequireTxSuccess(t, result)

		expected := uint256.MustFromDecimal("19743160687941225977")
		jtx.RequireAmount(t, expected, result.Output.(*uint256.Int))
		jtx.RequireBalance(t, f.env, f.tokenB, trader, expected)
		jtx.RequireBalance(t, f.env, f.tokenA, trader, uint256.NewInt(0))

		pool, err := f.market.Pool(f.tokenA, f.tokenB)
		require.NoError(t, err)
		jtx.RequireAmount(t, jtx.Ether(1_010), pool.ReserveA)
		jtx.RequireAmount(t, new(uint256.Int).Sub(jtx.Ether(2_000), expected), pool.ReserveB)
		jtx.RequireAmount(t, pool.ReserveB, f.env.Balance(f.tokenB, addr))

		before := new(uint256.Int).Mul(jtx.Ether(1_000), jtx.Ether(2_000))
		after := new(uint256.Int).Mul(pool.ReserveA, pool.ReserveB)
		assert.False(t, after.Lt(before), "constant product decreased")
	})

	t.Run("to a recipient", func(t *testing.T) {
		f := setup(t)
		f.createPool(t, jtx.Ether(1_000), jtx.Ether(2_000))
		friend := f.env.Account("friend")
		result := f.env.Submit(f.lp, market.PoolSwap(f.tokenB, f.tokenA, jtx.Ether(1)).Recipient(friend.Address).Build())
		jtx.RequireTxSuccess(t, result)
		jtx.RequireBalance(t, f.env, f.tokenA, friend, result.Output.(*uint256.Int))
	})

	t.Run("below minimum", func(t *testing.T) {
		f := setup(t)
		f.createPool(t, jtx.Ether(1_000), jtx.Ether(2_000))
		jtx.AssertNoBalanceChange(t, f.env, f.tokenA, f.lp, func() {
			result := f.env.Submit(f.lp, market.PoolSwap(f.tokenA, f.tokenB, jtx.Ether(10)).MinOut(jtx.Ether(20)).Build())
			jtx.RequireTxFail(t, result, tx.InsufficientOutput)
		})
	})

	t.Run("dust yields nothing", func(t *testing.T) {
		f := setup(t)
		f.createPool(t, jtx.Ether(1_000), jtx.Ether(2_000))
		result := f.env.Submit(f.lp, market.PoolSwap(f.tokenB, f.tokenA, uint256.NewInt(1)).Build())
		jtx.RequireTxFail(t, result, tx.InsufficientOutput)
	})

	t.Run("no pool", func(t *testing.T) {
		f := setup(t)
		result := f.env.Submit(f.lp, market.PoolSwap(f.tokenB, f.tokenA, jtx.Ether(1)).Build())
		jtx.RequireTxFail(t, result, tx.PoolNotFound)
	})
}

// priced opens the swap of 100 A against 100 B: the swapper is rewarded 50 B
// and must provide 100 A. The pool sells 50 B for about 148.8 A.
func priced(t *testing.T) *fixture {
	t.Helper()
	f := setup(t)
	f.createPool(t, jtx.Ether(30_000), jtx.Ether(10_000))
	alice, bob := f.env.Account("alice"), f.env.Account("bob")
	f.env.Mint(f.tokenA, alice, jtx.Ether(1_000))
	f.env.Mint(f.tokenB, bob, jtx.Ether(1_000))
	jtx.RequireTxSuccess(t, f.env.Submit(alice, position.Deposit(f.pair, f.tokenA).Rate(jtx.Ether(100)).Swaps(10).Build()))
	jtx.RequireTxSuccess(t, f.env.Submit(bob, position.Deposit(f.pair, f.tokenB).Rate(jtx.Ether(100)).Swaps(10).Build()))
	return f
}

func rewardQuote(t *testing.T, f *fixture) *swapper.Quote {
	t.Helper()
	info := f.env.NextSwapInfo(f.pair)
	q, err := f.market.Quote(t.Context(), swapper.QuoteRequest{
		SellToken:  info.TokenToRewardSwapperWith,
		BuyToken:   info.TokenToBeProvidedBySwapper,
		SellAmount: info.AmountToRewardSwapperWith,
	})
	require.NoError(t, err)
	return q
}

func TestMarketQuote(t *testing.T) {
	f := priced(t)

	t.Run("prices the reward", func(t *testing.T) {
		q := rewardQuote(t, f)
		jtx.RequireAmount(t, jtx.Ether(50), q.SellAmount)
		jtx.RequireAmount(t, uint256.MustFromDecimal("148808191167032343766"), q.BuyAmount)
		assert.Equal(t, mkt.DefaultAddress, q.Executor)
		assert.NotEmpty(t, q.Payload)
	})

	t.Run("does not change state", func(t *testing.T) {
		first := rewardQuote(t, f)
		second := rewardQuote(t, f)
		assert.Equal(t, first, second)
	})

	t.Run("no pool", func(t *testing.T) {
		other := f.env.CreateToken("CCC", 6)
		_, err := f.market.Quote(t.Context(), swapper.QuoteRequest{SellToken: f.tokenA, BuyToken: other, SellAmount: jtx.Ether(1)})
		require.ErrorIs(t, err, tx.ErrPoolNotFound)
	})

	t.Run("nothing to sell", func(t *testing.T) {
		_, err := f.market.Quote(t.Context(), swapper.QuoteRequest{SellToken: f.tokenA, BuyToken: f.tokenB})
		require.ErrorIs(t, err, tx.ErrZeroAmount)
	})
}

func TestMarketFillsSwap(t *testing.T) {
	t.Run("bought amount goes to the pair", func(t *testing.T) {
		f := priced(t)
		swapperAcc := f.env.Account("swapper")
		q := rewardQuote(t, f)

		pairA := f.env.Balance(f.tokenA, f.pair)
		result := f.env.Submit(swapperAcc, swap.Swap(f.pair).Callee(f.market.Address()).Data(q.Payload).Build())
		jtx.RequireTxSuccess(t, result)

		// surplus of 48.80... A plus the 1.2 A platform fee
		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), uint256.MustFromDecimal("50008191167032343766"))
		jtx.RequireBalance(t, f.env, f.tokenA, swapperAcc, uint256.NewInt(0))
		jtx.RequireBalance(t, f.env, f.tokenB, swapperAcc, uint256.NewInt(0))
		jtx.RequireAmount(t, uint256.NewInt(0), f.env.Balance(f.tokenB, f.market.Address()))

		// 100 A provided minus the 1.2 A fee
		expectedPairA := new(uint256.Int).Add(pairA, jtx.MustParse("98.8", 18))
		jtx.RequireAmount(t, expectedPairA, f.env.Balance(f.tokenA, f.pair))

		ev := result.Event(tx.EventSwapped)
		require.NotNil(t, ev)
		jtx.RequireAmount(t, uint256.MustFromDecimal("48808191167032343766"), ev.Data.(*tx.SwappedEvent).Surplus)
		require.NotNil(t, result.Event(mkt.EventPoolSwapped))
	})

	t.Run("stale quote", func(t *testing.T) {
		f := priced(t)
		q := rewardQuote(t, f)
		// someone trades ahead of the swap
		jtx.RequireTxSuccess(t, f.env.Submit(f.lp, market.PoolSwap(f.tokenB, f.tokenA, jtx.Ether(100)).Build()))

		pairA := f.env.Balance(f.tokenA, f.pair)
		result := f.env.Submit(f.env.Account("swapper"), swap.Swap(f.pair).Callee(f.market.Address()).Data(q.Payload).Build())
		jtx.RequireTxFail(t, result, tx.InsufficientOutput)
		jtx.RequireAmount(t, pairA, f.env.Balance(f.tokenA, f.pair))
		assert.Equal(t, int64(0), f.env.SecondsUntilNextSwap(f.pair))
	})

	t.Run("order for the wrong direction", func(t *testing.T) {
		f := priced(t)
		payload, err := json.Marshal(map[string]any{
			"sellToken":    f.tokenA,
			"buyToken":     f.tokenB,
			"sellAmount":   jtx.Ether(1),
			"minBuyAmount": jtx.Ether(0),
		})
		require.NoError(t, err)
		result := f.env.Submit(f.env.Account("swapper"), swap.Swap(f.pair).Callee(f.market.Address()).Data(payload).Build())
		jtx.RequireTxFail(t, result, tx.Malformed)
	})

	t.Run("garbage payload", func(t *testing.T) {
		f := priced(t)
		result := f.env.Submit(f.env.Account("swapper"), swap.Swap(f.pair).Callee(f.market.Address()).Data([]byte("{")).Build())
		jtx.RequireTxFail(t, result, tx.Malformed)
	})

	t.Run("unprofitable pool", func(t *testing.T) {
		f := setup(t)
		// 50 B buys about 49.6 A here, less than the 100 A owed
		f.createPool(t, jtx.Ether(10_000), jtx.Ether(10_000))
		alice, bob := f.env.Account("alice"), f.env.Account("bob")
		f.env.Mint(f.tokenA, alice, jtx.Ether(1_000))
		f.env.Mint(f.tokenB, bob, jtx.Ether(1_000))
		jtx.RequireTxSuccess(t, f.env.Submit(alice, position.Deposit(f.pair, f.tokenA).Rate(jtx.Ether(100)).Swaps(10).Build()))
		jtx.RequireTxSuccess(t, f.env.Submit(bob, position.Deposit(f.pair, f.tokenB).Rate(jtx.Ether(100)).Swaps(10).Build()))

		q := rewardQuote(t, f)
		assert.True(t, q.BuyAmount.Lt(jtx.Ether(100)))
		result := f.env.Submit(f.env.Account("swapper"), swap.Swap(f.pair).Callee(f.market.Address()).Data(q.Payload).Build())
		jtx.RequireTxFail(t, result, tx.LiquidityNotReturned)
	})
}
