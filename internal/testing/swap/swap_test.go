package swap_test

import (
	"errors"
	"maps"
	"math/rand"
	"slices"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/tx"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/position"
	"github.com/LeJamon/goDCA/internal/testing/swap"
)

type fixture struct {
	env     *jtx.TestEnv
	pair    common.Address
	tokenA  common.Address
	tokenB  common.Address
	alice   *jtx.Account
	bob     *jtx.Account
	swapper *jtx.Account
}

// setup creates a pair of two 18-decimal tokens where one B is worth price A.
func setup(t *testing.T, cfg jtx.EnvConfig, price string) *fixture {
	t.Helper()
	env := jtx.NewTestEnvWithConfig(t, cfg)
	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
	p := env.Pair(pair)
	env.SetPrice(p.TokenB, p.TokenA, price)

	f := &fixture{
		env:     env,
		pair:    pair,
		tokenA:  p.TokenA,
		tokenB:  p.TokenB,
		alice:   env.Account("alice"),
		bob:     env.Account("bob"),
		swapper: env.Account("swapper"),
	}
	env.Mint(f.tokenA, f.alice, jtx.Ether(100_000))
	env.Mint(f.tokenB, f.bob, jtx.Ether(100_000))
	return f
}

func (f *fixture) deposit(t *testing.T, acc *jtx.Account, token common.Address, rate *uint256.Int, swaps, interval uint32) uint64 {
	t.Helper()
	result := f.env.Submit(acc, position.Deposit(f.pair, token).Rate(rate).Swaps(swaps).Interval(interval).Build())
	jtx.RequireTxSuccess(t, result)
	return position.DepositID(result)
}

// priced opens 100 A against 100 B for ten daily swaps at one B = 2 A. The
// A side then owes 50 B and the B side 200 A, so the swapper provides 100 A
// and is rewarded with 50 B.
func priced(t *testing.T) *fixture {
	t.Helper()
	f := setup(t, jtx.DefaultEnvConfig(), "2")
	f.deposit(t, f.alice, f.tokenA, jtx.Ether(100), 10, jtx.Day)
	f.deposit(t, f.bob, f.tokenB, jtx.Ether(100), 10, jtx.Day)
	return f
}

func TestNextSwapInfo(t *testing.T) {
	f := priced(t)

	t.Run("amounts at one B for two A", func(t *testing.T) {
		info := f.env.NextSwapInfo(f.pair)
		require.Len(t, info.Intervals, 1)
		assert.Equal(t, jtx.Day, info.Intervals[0].Interval)
		jtx.RequireAmount(t, jtx.Ether(100), info.AmountToSwapA)
		jtx.RequireAmount(t, jtx.Ether(100), info.AmountToSwapB)
		jtx.RequireAmount(t, jtx.MustParse("0.5", 18), info.RatePerUnitAToB)
		jtx.RequireAmount(t, jtx.Ether(2), info.RatePerUnitBToA)
		jtx.RequireAmount(t, jtx.MustParse("1.2", 18), info.PlatformFeeA)
		jtx.RequireAmount(t, jtx.MustParse("0.3", 18), info.PlatformFeeB)
		assert.Equal(t, f.tokenA, info.TokenToBeProvidedBySwapper)
		jtx.RequireAmount(t, jtx.Ether(100), info.AmountToBeProvidedBySwapper)
		assert.Equal(t, f.tokenB, info.TokenToRewardSwapperWith)
		jtx.RequireAmount(t, jtx.Ether(50), info.AmountToRewardSwapperWith)
	})

	t.Run("is a pure query", func(t *testing.T) {
		first := f.env.NextSwapInfo(f.pair)
		second := f.env.NextSwapInfo(f.pair)
		assert.Equal(t, first, second)
		assert.True(t, f.env.Pair(f.pair).BalanceA.Eq(jtx.Ether(1_000)))
	})

	t.Run("reflects the price at query time", func(t *testing.T) {
		f.env.SetPrice(f.tokenB, f.tokenA, "1")
		defer f.env.SetPrice(f.tokenB, f.tokenA, "2")
		info := f.env.NextSwapInfo(f.pair)
		assert.True(t, info.AmountToBeProvidedBySwapper.IsZero())
		assert.True(t, info.AmountToRewardSwapperWith.IsZero())
	})

	t.Run("unknown pair", func(t *testing.T) {
		_, err := f.env.Engine().NextSwapInfo(t.Context(), common.HexToAddress("0xdead"))
		require.ErrorIs(t, err, tx.ErrPairNotFound)
	})
}

func TestSwapBySwapper(t *testing.T) {
	t.Run("pays the reward and pulls what is owed", func(t *testing.T) {
		f := priced(t)
		f.env.Mint(f.tokenA, f.swapper, jtx.Ether(100))

		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Provided(jtx.Ether(100)).Build())
		jtx.RequireTxSuccess(t, result)
		jtx.RequireBalance(t, f.env, f.tokenA, f.swapper, uint256.NewInt(0))
		jtx.RequireBalance(t, f.env, f.tokenB, f.swapper, jtx.Ether(50))
		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), jtx.MustParse("1.2", 18))
		jtx.RequireBalance(t, f.env, f.tokenB, f.env.FeeRecipient(), jtx.MustParse("0.3", 18))

		p := f.env.Pair(f.pair)
		jtx.RequireAmount(t, jtx.MustParse("1098.8", 18), p.BalanceA)
		jtx.RequireAmount(t, jtx.MustParse("949.7", 18), p.BalanceB)
		jtx.RequireAmount(t, p.BalanceA, f.env.Balance(f.tokenA, f.pair))
		jtx.RequireAmount(t, p.BalanceB, f.env.Balance(f.tokenB, f.pair))

		jtx.RequireAmount(t, jtx.MustParse("49.7", 18), f.env.Position(f.pair, 1).Swapped)
		jtx.RequireAmount(t, jtx.MustParse("198.8", 18), f.env.Position(f.pair, 2).Swapped)

		ev := result.Event(tx.EventSwapped)
		require.NotNil(t, ev)
		data := ev.Data.(*tx.SwappedEvent)
		assert.Equal(t, f.swapper.Address, data.Swapper)
		assert.Equal(t, map[uint32]uint32{jtx.Day: 1}, data.PerformedSwaps)
		assert.True(t, data.Surplus.IsZero())
		assert.Equal(t, result.Output, data.Info)
	})

	t.Run("swapper short of funds", func(t *testing.T) {
		f := priced(t)
		f.env.Mint(f.tokenA, f.swapper, jtx.Ether(99))
		jtx.AssertNoBalanceChange(t, f.env, f.tokenB, f.swapper, func() {
			result := f.env.Submit(f.swapper, swap.Swap(f.pair).Provided(jtx.Ether(100)).Build())
			jtx.RequireTxFail(t, result, tx.LiquidityNotReturned)
		})
	})

	t.Run("nothing provided", func(t *testing.T) {
		f := priced(t)
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()), tx.LiquidityNotReturned)
	})

	t.Run("minimum reward", func(t *testing.T) {
		f := priced(t)
		f.env.Mint(f.tokenA, f.swapper, jtx.Ether(100))
		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Provided(jtx.Ether(100)).MinReward(jtx.Ether(51)).Build())
		jtx.RequireTxFail(t, result, tx.InvalidReward)

		result = f.env.Submit(f.swapper, swap.Swap(f.pair).Provided(jtx.Ether(100)).MinReward(jtx.Ether(50)).Build())
		jtx.RequireTxSuccess(t, result)
	})

	t.Run("paused", func(t *testing.T) {
		f := priced(t)
		jtx.RequireTxSuccess(t, f.env.Submit(f.env.Governor(), &tx.Pause{}))
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()), tx.Paused)
	})

	t.Run("unknown pair", func(t *testing.T) {
		f := priced(t)
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(common.HexToAddress("0xdead")).Build()), tx.PairNotFound)
	})
}

func TestSwapWithCallee(t *testing.T) {
	setupCallee := func(t *testing.T, fn func(*tx.ApplyContext, *tx.SwapCallback) error) (*fixture, *jtx.Account) {
		f := priced(t)
		callee := f.env.Account("callee")
		f.env.Mint(f.tokenA, callee, jtx.Ether(500))
		f.env.RegisterCallee(callee.Address, &jtx.FuncCallee{Swap: fn})
		return f, callee
	}

	t.Run("callee receives the reward and provides", func(t *testing.T) {
		var seen *tx.SwapCallback
		f, callee := setupCallee(t, func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
			seen = cb
			return jtx.ProvideExact()(ctx, cb)
		})
		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Data([]byte("hello")).Build())
		jtx.RequireTxSuccess(t, result)

		require.NotNil(t, seen)
		assert.Equal(t, f.swapper.Address, seen.Swapper)
		assert.Equal(t, []byte("hello"), seen.Data)
		jtx.RequireBalance(t, f.env, f.tokenB, callee, jtx.Ether(50))
		jtx.RequireBalance(t, f.env, f.tokenA, callee, jtx.Ether(400))
		jtx.RequireBalance(t, f.env, f.tokenB, f.swapper, uint256.NewInt(0))
	})

	t.Run("callee sees the reward before paying", func(t *testing.T) {
		f, callee := setupCallee(t, func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
			bal, err := ctx.BalanceOf(cb.Info.TokenToRewardSwapperWith, ctx.Caller)
			if err != nil {
				return err
			}
			if !bal.Eq(cb.Info.AmountToRewardSwapperWith) {
				return errors.New("reward not received")
			}
			return jtx.ProvideExact()(ctx, cb)
		})
		jtx.RequireTxSuccess(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build()))
	})

	t.Run("surplus goes to the fee recipient", func(t *testing.T) {
		f, callee := setupCallee(t, func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
			extra := new(uint256.Int).Add(cb.Info.AmountToBeProvidedBySwapper, jtx.Ether(1))
			return ctx.Transfer(cb.Info.TokenToBeProvidedBySwapper, cb.Info.Pair, extra)
		})
		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
		jtx.RequireTxSuccess(t, result)
		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), jtx.MustParse("2.2", 18))
		jtx.RequireAmount(t, jtx.Ether(1), result.Event(tx.EventSwapped).Data.(*tx.SwappedEvent).Surplus)

		p := f.env.Pair(f.pair)
		jtx.RequireAmount(t, p.BalanceA, f.env.Balance(f.tokenA, f.pair))
	})

	t.Run("liquidity not returned rolls back the reward", func(t *testing.T) {
		f, callee := setupCallee(t, func(*tx.ApplyContext, *tx.SwapCallback) error { return nil })
		jtx.AssertNoBalanceChange(t, f.env, f.tokenB, callee, func() {
			result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
			jtx.RequireTxFail(t, result, tx.LiquidityNotReturned)
		})
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenB, f.pair))
		assert.Equal(t, int64(0), f.env.SecondsUntilNextSwap(f.pair))
	})

	t.Run("callee error aborts the swap", func(t *testing.T) {
		f, callee := setupCallee(t, func(*tx.ApplyContext, *tx.SwapCallback) error { return errors.New("boom") })
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build()), tx.Internal)
	})

	t.Run("callee error code is kept", func(t *testing.T) {
		f, callee := setupCallee(t, func(*tx.ApplyContext, *tx.SwapCallback) error {
			return tx.Errorf(tx.InsufficientBalance, "out of funds")
		})
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build()), tx.InsufficientBalance)
	})

	t.Run("callee cannot move the pair's funds", func(t *testing.T) {
		drains := map[string]func(*tx.ApplyContext, *tx.SwapCallback) error{
			"directly": func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
				return ctx.Move(cb.Info.TokenToRewardSwapperWith, cb.Info.Pair, ctx.Caller, jtx.Ether(1))
			},
			"through its own transaction": func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
				return ctx.Call(&sweep{token: cb.Info.TokenToRewardSwapperWith, from: cb.Info.Pair})
			},
		}
		for name, drain := range drains {
			t.Run(name, func(t *testing.T) {
				f, callee := setupCallee(t, func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
					if err := drain(ctx, cb); err != nil {
						return err
					}
					return jtx.ProvideExact()(ctx, cb)
				})
				jtx.AssertNoBalanceChange(t, f.env, f.tokenB, callee, func() {
					result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
					jtx.RequireTxFail(t, result, tx.Unauthorized)
				})
				jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenB, f.pair))
			})
		}
	})

	t.Run("unregistered callee", func(t *testing.T) {
		f := priced(t)
		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(common.HexToAddress("0xbeef")).Build())
		jtx.RequireTxFail(t, result, tx.UnknownCallee)
	})

	t.Run("loan-only callee", func(t *testing.T) {
		f := priced(t)
		callee := f.env.Account("lender")
		f.env.RegisterCallee(callee.Address, loanOnly{})
		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
		jtx.RequireTxFail(t, result, tx.UnknownCallee)
	})
}

// sweep moves funds out of any holder to the caller. It is not a registered
// transaction type.
type sweep struct {
	token, from common.Address
}

func (s *sweep) TxType() tx.Type { return tx.TypeTransfer }
func (s *sweep) Validate() error { return nil }
func (s *sweep) Apply(ctx *tx.ApplyContext) error {
	return ctx.Move(s.token, s.from, ctx.Caller, jtx.Ether(1))
}

type loanOnly struct{}

func (loanOnly) OnLoan(*tx.ApplyContext, *tx.LoanCallback) error { return nil }

func TestSwapReentrancy(t *testing.T) {
	// alice holds position 1 selling A, bob position 2 selling B
	nested := []struct {
		name  string
		build func(f *fixture, callee *jtx.Account) tx.Transaction
	}{
		{"deposit", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return position.Deposit(f.pair, f.tokenA).Rate(jtx.Ether(1)).Swaps(1).Build()
		}},
		{"withdraw swapped", func(f *fixture, callee *jtx.Account) tx.Transaction {
			return position.Withdraw(f.pair, 1, callee)
		}},
		{"withdraw swapped many", func(f *fixture, callee *jtx.Account) tx.Transaction {
			return position.WithdrawMany(f.pair, callee, 1, 2)
		}},
		{"modify rate", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return position.ModifyRate(f.pair, 1, jtx.Ether(1))
		}},
		{"modify swaps", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return position.ModifySwaps(f.pair, 1, 5)
		}},
		{"modify rate and swaps", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return position.ModifyRateAndSwaps(f.pair, 1, jtx.Ether(1), 5)
		}},
		{"add funds", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return position.AddFunds(f.pair, 1, jtx.Ether(1), 5)
		}},
		{"terminate", func(f *fixture, callee *jtx.Account) tx.Transaction {
			return position.Terminate(f.pair, 1, callee)
		}},
		{"swap", func(f *fixture, _ *jtx.Account) tx.Transaction {
			return swap.Swap(f.pair).Build()
		}},
		{"loan", func(f *fixture, callee *jtx.Account) tx.Transaction {
			return &tx.Loan{Pair: f.pair, Callee: callee.Address, AmountA: jtx.Ether(1)}
		}},
	}
	for _, tc := range nested {
		t.Run(tc.name+" on the same pair", func(t *testing.T) {
			f := priced(t)
			callee := f.env.Account("callee")
			f.env.Mint(f.tokenA, callee, jtx.Ether(500))
			var err error
			f.env.RegisterCallee(callee.Address, &jtx.FuncCallee{Swap: func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
				err = ctx.Call(tc.build(f, callee))
				// swallow the refusal and pay anyway
				return jtx.ProvideExact()(ctx, cb)
			}})

			jtx.AssertNoBalanceChange(t, f.env, f.tokenA, callee, func() {
				result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
				jtx.RequireTxFail(t, result, tx.ReentrancyDetected)
				assert.Equal(t, tx.ClassReentrancy.String(), result.Class)
			})
			require.ErrorIs(t, err, tx.ErrReentrancyDetected)
			assert.Equal(t, int64(0), f.env.SecondsUntilNextSwap(f.pair))
			jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenB, f.pair))
		})
	}

	t.Run("nested call into another pair", func(t *testing.T) {
		f := priced(t)
		other := f.env.CreatePair(f.tokenA, f.env.CreateToken("CCC", 18))
		callee := f.env.Account("callee")
		f.env.Mint(f.tokenA, callee, jtx.Ether(500))
		f.env.RegisterCallee(callee.Address, &jtx.FuncCallee{Swap: func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
			if err := ctx.Call(position.Deposit(other, f.tokenA).Rate(jtx.Ether(1)).Swaps(5).Build()); err != nil {
				return err
			}
			return jtx.ProvideExact()(ctx, cb)
		}})

		result := f.env.Submit(f.swapper, swap.Swap(f.pair).Callee(callee.Address).Build())
		jtx.RequireTxSuccess(t, result)
		assert.Equal(t, callee.Address, f.env.Position(other, 1).Owner)
		require.NotNil(t, result.Event(tx.EventDeposited))
	})
}

func TestSwapTiming(t *testing.T) {
	t.Run("no positions", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		assert.Equal(t, tx.NeverDue, f.env.SecondsUntilNextSwap(f.pair))
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()), tx.ZeroAmount)
	})

	t.Run("one side only without one-sided swaps", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(10), 5, jtx.Day)
		assert.Equal(t, tx.NeverDue, f.env.SecondsUntilNextSwap(f.pair))
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()), tx.ZeroAmount)
	})

	t.Run("not yet due", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(10), 5, jtx.Day)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(10), 5, jtx.Day)
		jtx.RequireTxSuccess(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()))

		f.env.AdvanceSeconds(3600)
		assert.Equal(t, int64(jtx.Day)-3600, f.env.SecondsUntilNextSwap(f.pair))
		jtx.RequireTxFail(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()), tx.PairSwapNotNeeded)
	})

	t.Run("swaps land on interval boundaries", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(10), 5, jtx.Day)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(10), 5, jtx.Day)
		f.env.AdvanceSeconds(int64(jtx.Day) - 10)
		jtx.RequireTxSuccess(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()))
		assert.Equal(t, int64(10), f.env.SecondsUntilNextSwap(f.pair))
	})

	t.Run("due intervals are swapped together", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(10), 50, jtx.Hour)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(10), 50, jtx.Hour)
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(30), 5, jtx.Day)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(30), 5, jtx.Day)

		info := f.env.NextSwapInfo(f.pair)
		require.Len(t, info.Intervals, 2)
		jtx.RequireAmount(t, jtx.Ether(40), info.AmountToSwapA)
		jtx.RequireTxSuccess(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Build()))

		f.env.AdvanceSeconds(int64(jtx.Hour))
		info = f.env.NextSwapInfo(f.pair)
		require.Len(t, info.Intervals, 1)
		assert.Equal(t, jtx.Hour, info.Intervals[0].Interval)
		jtx.RequireAmount(t, jtx.Ether(10), info.AmountToSwapA)
	})

	t.Run("zero seconds exactly when a swap succeeds", func(t *testing.T) {
		f := setup(t, jtx.DefaultEnvConfig(), "1")
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(10), 20, jtx.Hour)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(10), 20, jtx.Hour)
		f.deposit(t, f.alice, f.tokenA, jtx.Ether(5), 2, jtx.Day)
		f.deposit(t, f.bob, f.tokenB, jtx.Ether(5), 2, jtx.Day)

		outcomes := map[string]int{}
		for i := 0; i < 150; i++ {
			f.env.AdvanceSeconds(int64(i%7) * 600)
			secs := f.env.SecondsUntilNextSwap(f.pair)
			result := f.env.Submit(f.swapper, swap.Swap(f.pair).Build())
			outcomes[result.Code]++
			switch {
			case secs == 0:
				jtx.RequireTxSuccess(t, result)
			case secs == tx.NeverDue:
				jtx.RequireTxFail(t, result, tx.ZeroAmount)
			default:
				jtx.RequireTxFail(t, result, tx.PairSwapNotNeeded)
			}
		}
		assert.Equal(t, 21, outcomes["Success"], "20 hourly swaps plus the second daily one")
		assert.NotZero(t, outcomes["PairSwapNotNeeded"])
		assert.NotZero(t, outcomes["ZeroAmount"])
	})
}

func TestOneSidedSwaps(t *testing.T) {
	cfg := jtx.DefaultEnvConfig()
	cfg.AllowOneSidedSwaps = true
	f := setup(t, cfg, "2")
	id := f.deposit(t, f.alice, f.tokenA, jtx.Ether(100), 3, jtx.Day)
	assert.Equal(t, int64(0), f.env.SecondsUntilNextSwap(f.pair))

	info := f.env.NextSwapInfo(f.pair)
	assert.Equal(t, f.tokenB, info.TokenToBeProvidedBySwapper)
	jtx.RequireAmount(t, jtx.Ether(50), info.AmountToBeProvidedBySwapper)
	jtx.RequireAmount(t, jtx.Ether(100), info.AmountToRewardSwapperWith)
	assert.True(t, info.PlatformFeeA.IsZero())

	f.env.Mint(f.tokenB, f.swapper, jtx.Ether(50))
	jtx.RequireTxSuccess(t, f.env.Submit(f.swapper, swap.Swap(f.pair).Provided(jtx.Ether(50)).Build()))
	jtx.RequireBalance(t, f.env, f.tokenA, f.swapper, jtx.Ether(100))
	jtx.RequireAmount(t, jtx.MustParse("49.7", 18), f.env.Position(f.pair, id).Swapped)
	jtx.RequireBalance(t, f.env, f.tokenB, f.env.FeeRecipient(), jtx.MustParse("0.3", 18))
}

// createPair creates a pair whose token A has decimalsA and token B
// decimalsB.
func createPair(env *jtx.TestEnv, decimalsA, decimalsB uint8) common.Address {
	a, b := "AAA", "BBB"
	if jtx.TokenAddress(a).Cmp(jtx.TokenAddress(b)) > 0 {
		a, b = b, a
	}
	return env.CreatePair(env.CreateToken(a, decimalsA), env.CreateToken(b, decimalsB))
}

// TestSwapMixedPrecision swaps one raw unit of a 6-decimal A against one raw
// unit of an 18-decimal B. The B the A side earns is worth far more than the
// B swapped, so the swapper provides it and nobody else's B is spent.
func TestSwapMixedPrecision(t *testing.T) {
	env := jtx.NewTestEnv(t)
	pairAddr := createPair(env, 6, 18)
	p := env.Pair(pairAddr)
	env.SetPrice(p.TokenB, p.TokenA, "1")

	alice, bob, carol := env.Account("alice"), env.Account("bob"), env.Account("carol")
	swapper := env.Account("swapper")
	env.Mint(p.TokenA, alice, jtx.Raw(1))
	env.Mint(p.TokenB, bob, jtx.Raw(1))
	env.Mint(p.TokenB, carol, jtx.Raw(1_000_000_000_000))
	env.Mint(p.TokenB, swapper, jtx.Ether(1))

	deposit := func(acc *jtx.Account, token common.Address, rate *uint256.Int, interval uint32) uint64 {
		result := env.Submit(acc, position.Deposit(pairAddr, token).Rate(rate).Swaps(1).Interval(interval).Build())
		jtx.RequireTxSuccess(t, result)
		return position.DepositID(result)
	}
	aliceID := deposit(alice, p.TokenA, jtx.Raw(1), jtx.Day)
	deposit(bob, p.TokenB, jtx.Raw(1), jtx.Day)
	// only B on the hourly interval, so it is never swapped
	carolID := deposit(carol, p.TokenB, jtx.Raw(1_000_000_000_000), jtx.Hour)

	info := env.NextSwapInfo(pairAddr)
	require.Len(t, info.Intervals, 1)
	assert.Equal(t, p.TokenB, info.TokenToBeProvidedBySwapper)
	jtx.RequireAmount(t, jtx.Raw(999_999_999_999), info.AmountToBeProvidedBySwapper)
	assert.Equal(t, p.TokenA, info.TokenToRewardSwapperWith)
	assert.True(t, info.AmountToRewardSwapperWith.IsZero())
	assert.True(t, info.PlatformFeeA.IsZero())
	jtx.RequireAmount(t, jtx.Raw(6_000_000_000), info.PlatformFeeB)

	result := env.Submit(swapper, swap.Swap(pairAddr).Provided(info.AmountToBeProvidedBySwapper).Build())
	jtx.RequireTxSuccess(t, result)

	pair := env.Pair(pairAddr)
	jtx.RequireAmount(t, pair.BalanceA, env.Balance(p.TokenA, pairAddr))
	jtx.RequireAmount(t, pair.BalanceB, env.Balance(p.TokenB, pairAddr))
	jtx.RequireAmount(t, jtx.Raw(994_000_000_000), env.Position(pairAddr, aliceID).Swapped)
	jtx.RequireBalance(t, env, p.TokenB, env.FeeRecipient(), jtx.Raw(6_000_000_000))

	jtx.RequireTxSuccess(t, env.Submit(alice, position.Withdraw(pairAddr, aliceID, alice)))
	jtx.RequireBalance(t, env, p.TokenB, alice, jtx.Raw(994_000_000_000))

	jtx.RequireTxSuccess(t, env.Submit(carol, position.Terminate(pairAddr, carolID, carol)))
	jtx.RequireBalance(t, env, p.TokenB, carol, jtx.Raw(1_000_000_000_000))
}

// TestSolvency drives a pair through random deposits, modifications,
// withdrawals and swaps and checks after every step that the pair can pay
// every position. Tiny rates and mixed precision exercise the rounding of
// both conversions.
func TestSolvency(t *testing.T) {
	tests := []struct {
		name                 string
		decimalsA, decimalsB uint8
		price                string
		seed                 int64
	}{
		{name: "18 and 6 decimals", decimalsA: 18, decimalsB: 6, price: "1.7", seed: 42},
		{name: "6 and 18 decimals at par", decimalsA: 6, decimalsB: 18, price: "1", seed: 7},
		{name: "6 and 18 decimals below one", decimalsA: 6, decimalsB: 18, price: "0.0003", seed: 11},
		{name: "18 and 6 decimals below one", decimalsA: 18, decimalsB: 6, price: "0.037", seed: 13},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runSolvency(t, tc.decimalsA, tc.decimalsB, tc.price, tc.seed)
		})
	}
}

func runSolvency(t *testing.T, decimalsA, decimalsB uint8, price string, seed int64) {
	env := jtx.NewTestEnv(t)
	pairAddr := createPair(env, decimalsA, decimalsB)
	p := env.Pair(pairAddr)
	env.SetPrice(p.TokenB, p.TokenA, price)

	tokens := [2]common.Address{p.TokenA, p.TokenB}
	decimals := [2]uint8{p.DecimalsA, p.DecimalsB}
	swapper := env.Account("swapper")
	var traders []*jtx.Account
	for _, name := range []string{"t0", "t1", "t2", "t3"} {
		acc := env.Account(name)
		for i, tok := range tokens {
			env.Mint(tok, acc, jtx.Units(10_000_000, decimals[i]))
		}
		traders = append(traders, acc)
	}
	for i, tok := range tokens {
		env.Mint(tok, swapper, jtx.Units(1_000_000_000_000, decimals[i]))
	}

	type live struct {
		owner *jtx.Account
		side  int
	}
	positions := map[uint64]live{}
	intervals := []uint32{jtx.Hour, jtx.Day}
	rng := rand.New(rand.NewSource(seed))

	pick := func() (uint64, live, bool) {
		if len(positions) == 0 {
			return 0, live{}, false
		}
		ids := slices.Sorted(maps.Keys(positions))
		id := ids[rng.Intn(len(ids))]
		return id, positions[id], true
	}
	randomRate := func(side int) *uint256.Int {
		if rng.Intn(4) == 0 {
			return jtx.Raw(uint64(rng.Intn(5) + 1))
		}
		rate := jtx.Units(uint64(rng.Intn(1_000)+1), decimals[side])
		return rate.Add(rate, jtx.Raw(uint64(rng.Intn(999_983))))
	}

	for step := 0; step < 400; step++ {
		switch op := rng.Intn(10); {
		case op < 3:
			side := rng.Intn(2)
			owner := traders[rng.Intn(len(traders))]
			deposit := position.Deposit(pairAddr, tokens[side]).
				Rate(randomRate(side)).
				Swaps(uint32(rng.Intn(10) + 1)).
				Interval(intervals[rng.Intn(len(intervals))]).
				Build()
			result := env.Submit(owner, deposit)
			jtx.RequireTxSuccess(t, result)
			positions[position.DepositID(result)] = live{owner: owner, side: side}

		case op == 3:
			if id, l, ok := pick(); ok {
				result := env.Submit(l.owner, position.Withdraw(pairAddr, id, l.owner))
				if !result.Success {
					jtx.RequireTxFail(t, result, tx.NoSwappedAmount)
				}
			}

		case op == 4:
			if id, l, ok := pick(); ok {
				jtx.RequireTxSuccess(t, env.Submit(l.owner, position.Terminate(pairAddr, id, l.owner)))
				delete(positions, id)
			}

		case op == 5:
			if id, l, ok := pick(); ok {
				result := env.Submit(l.owner, position.ModifyRateAndSwaps(pairAddr, id, randomRate(l.side), uint32(rng.Intn(6))))
				if !result.Success {
					jtx.RequireTxFail(t, result, tx.PositionCompleted)
				}
			}

		case op < 8:
			env.AdvanceSeconds(int64(rng.Intn(int(jtx.Hour) * 3)))

		default:
			secs := env.SecondsUntilNextSwap(pairAddr)
			info := env.NextSwapInfo(pairAddr)
			result := env.Submit(swapper, swap.Swap(pairAddr).Provided(info.AmountToBeProvidedBySwapper).Build())
			require.Equal(t, secs == 0, result.Success, "step %d: %s %s", step, result.Code, result.Message)
		}

		// every position can be paid from the pair's internal balances,
		// which the pair actually holds
		pair := env.Pair(pairAddr)
		owed := [2]*uint256.Int{new(uint256.Int), new(uint256.Int)}
		for id, l := range positions {
			info := env.Position(pairAddr, id)
			owed[l.side].Add(owed[l.side], info.Unswapped)
			owed[1-l.side].Add(owed[1-l.side], info.Swapped)
		}
		internal := [2]*uint256.Int{pair.BalanceA, pair.BalanceB}
		for i, tok := range tokens {
			held := env.Balance(tok, pairAddr)
			require.False(t, held.Lt(internal[i]), "step %d: pair holds %s of token %d, books %s", step, held, i, internal[i])
			require.False(t, internal[i].Lt(owed[i]), "step %d: pair books %s of token %d, owes %s", step, internal[i], i, owed[i])
		}
	}

	// once everyone leaves, only rounding dust remains
	for id, l := range positions {
		jtx.RequireTxSuccess(t, env.Submit(l.owner, position.Terminate(pairAddr, id, l.owner)))
	}
	pair := env.Pair(pairAddr)
	for i, bal := range []*uint256.Int{pair.BalanceA, pair.BalanceB} {
		assert.False(t, bal.Gt(uint256.NewInt(10_000)), "token %d dust %s", i, bal)
	}
}
