package loan_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/tx"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/loan"
	"github.com/LeJamon/goDCA/internal/testing/position"
)

type fixture struct {
	env    *jtx.TestEnv
	pair   common.Address
	tokenA common.Address
	tokenB common.Address
	callee *jtx.Account
	user   *jtx.Account
}

// setup funds a pair with 1000 of each token through two positions and
// gives the callee enough to cover fees.
func setup(t *testing.T, onLoan func(*tx.ApplyContext, *tx.LoanCallback) error) *fixture {
	t.Helper()
	env := jtx.NewTestEnv(t)
	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
	p := env.Pair(pair)
	env.SetPrice(p.TokenB, p.TokenA, "1")

	f := &fixture{
		env:    env,
		pair:   pair,
		tokenA: p.TokenA,
		tokenB: p.TokenB,
		callee: env.Account("borrower-contract"),
		user:   env.Account("user"),
	}
	alice, bob := env.Account("alice"), env.Account("bob")
	env.Mint(f.tokenA, alice, jtx.Ether(1_000))
	env.Mint(f.tokenB, bob, jtx.Ether(1_000))
	jtx.RequireTxSuccess(t, env.Submit(alice, position.Deposit(pair, f.tokenA).Rate(jtx.Ether(100)).Swaps(10).Build()))
	jtx.RequireTxSuccess(t, env.Submit(bob, position.Deposit(pair, f.tokenB).Rate(jtx.Ether(100)).Swaps(10).Build()))

	env.Mint(f.tokenA, f.callee, jtx.Ether(10))
	env.Mint(f.tokenB, f.callee, jtx.Ether(10))
	env.RegisterCallee(f.callee.Address, &jtx.FuncCallee{Loan: onLoan})
	return f
}

func TestLoan(t *testing.T) {
	t.Run("repaid with fee", func(t *testing.T) {
		var seen *tx.LoanCallback
		f := setup(t, func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			seen = cb
			return jtx.RepayWithFee()(ctx, cb)
		})

		result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).
			AmountA(jtx.Ether(100)).
			AmountB(jtx.Ether(1_000)).
			Data([]byte{1, 2}).
			Build())
		jtx.RequireTxSuccess(t, result)

		require.NotNil(t, seen)
		assert.Equal(t, f.user.Address, seen.Borrower)
		assert.Equal(t, []byte{1, 2}, seen.Data)
		jtx.RequireAmount(t, jtx.MustParse("0.1", 18), seen.FeeA)
		jtx.RequireAmount(t, jtx.Ether(1), seen.FeeB)

		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), jtx.MustParse("0.1", 18))
		jtx.RequireBalance(t, f.env, f.tokenB, f.env.FeeRecipient(), jtx.Ether(1))
		jtx.RequireBalance(t, f.env, f.tokenA, f.callee, jtx.MustParse("9.9", 18))
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenA, f.pair))
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Pair(f.pair).BalanceA)

		ev := result.Event(tx.EventLoaned)
		require.NotNil(t, ev)
		data := ev.Data.(*tx.LoanedEvent)
		assert.Equal(t, f.callee.Address, data.Callee)
		jtx.RequireAmount(t, jtx.Ether(1_000), data.AmountB)
	})

	t.Run("fee rounds down", func(t *testing.T) {
		var fee *uint256.Int
		f := setup(t, func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			fee = cb.FeeA
			return jtx.RepayWithFee()(ctx, cb)
		})
		jtx.RequireTxSuccess(t, f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(uint256.NewInt(999)).Build()))
		assert.True(t, fee.IsZero())
	})

	t.Run("over-repayment goes to the fee recipient", func(t *testing.T) {
		f := setup(t, func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			return ctx.Transfer(cb.TokenA, cb.Pair, new(uint256.Int).Add(cb.AmountA, jtx.Ether(2)))
		})
		jtx.RequireTxSuccess(t, f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build()))
		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), jtx.Ether(2))
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenA, f.pair))
	})

	t.Run("not repaid rolls back", func(t *testing.T) {
		f := setup(t, func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			// principal only
			return ctx.Transfer(cb.TokenA, cb.Pair, cb.AmountA)
		})
		jtx.AssertNoBalanceChange(t, f.env, f.tokenA, f.callee, func() {
			result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build())
			jtx.RequireTxFail(t, result, tx.LoanNotRepaid)
		})
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenA, f.pair))
	})

	t.Run("more than the pair holds", func(t *testing.T) {
		f := setup(t, jtx.RepayWithFee())
		result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(1_001)).Build())
		jtx.RequireTxFail(t, result, tx.InsufficientLiquidity)
	})

	t.Run("nothing to lend", func(t *testing.T) {
		f := setup(t, jtx.RepayWithFee())
		result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(uint256.NewInt(0)).Build())
		jtx.RequireTxFail(t, result, tx.ZeroLoan)
	})

	t.Run("paused", func(t *testing.T) {
		f := setup(t, jtx.RepayWithFee())
		jtx.RequireTxSuccess(t, f.env.Submit(f.env.Governor(), &tx.Pause{}))
		result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(1)).Build())
		jtx.RequireTxFail(t, result, tx.Paused)

		// input checks come first
		result = f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).Build())
		jtx.RequireTxFail(t, result, tx.ZeroLoan)
	})

	t.Run("callee cannot move the pair's funds", func(t *testing.T) {
		f := setup(t, func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			// repaying B out of the pair's own balance
			if err := ctx.Move(cb.TokenB, cb.Pair, ctx.Caller, jtx.Ether(1)); err != nil {
				return err
			}
			return jtx.RepayWithFee()(ctx, cb)
		})
		jtx.AssertNoBalanceChange(t, f.env, f.tokenB, f.callee, func() {
			result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build())
			jtx.RequireTxFail(t, result, tx.Unauthorized)
		})
		jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenB, f.pair))
	})

	t.Run("unknown callee", func(t *testing.T) {
		f := setup(t, jtx.RepayWithFee())
		result := f.env.Submit(f.user, loan.Loan(f.pair, common.HexToAddress("0xbeef")).AmountA(jtx.Ether(1)).Build())
		jtx.RequireTxFail(t, result, tx.UnknownCallee)
	})
}

func TestLoanReentrancy(t *testing.T) {
	// alice holds position 1 selling A, bob position 2 selling B
	nested := []struct {
		name  string
		build func(f *fixture) tx.Transaction
	}{
		{"deposit", func(f *fixture) tx.Transaction {
			return position.Deposit(f.pair, f.tokenA).Rate(jtx.Ether(10)).Swaps(10).Build()
		}},
		{"withdraw swapped", func(f *fixture) tx.Transaction {
			return position.Withdraw(f.pair, 1, f.user)
		}},
		{"withdraw swapped many", func(f *fixture) tx.Transaction {
			return position.WithdrawMany(f.pair, f.user, 1, 2)
		}},
		{"modify rate", func(f *fixture) tx.Transaction {
			return position.ModifyRate(f.pair, 1, jtx.Ether(1))
		}},
		{"modify swaps", func(f *fixture) tx.Transaction {
			return position.ModifySwaps(f.pair, 1, 5)
		}},
		{"modify rate and swaps", func(f *fixture) tx.Transaction {
			return position.ModifyRateAndSwaps(f.pair, 1, jtx.Ether(1), 5)
		}},
		{"add funds", func(f *fixture) tx.Transaction {
			return position.AddFunds(f.pair, 1, jtx.Ether(1), 5)
		}},
		{"terminate", func(f *fixture) tx.Transaction {
			return position.Terminate(f.pair, 1, f.user)
		}},
		{"swap", func(f *fixture) tx.Transaction {
			return &tx.Swap{Pair: f.pair}
		}},
		{"loan", func(f *fixture) tx.Transaction {
			return loan.Loan(f.pair, f.callee.Address).AmountB(jtx.Ether(1)).Build()
		}},
	}
	for _, tc := range nested {
		t.Run(tc.name+" during the loan", func(t *testing.T) {
			var err error
			f := setup(t, nil)
			f.env.RegisterCallee(f.callee.Address, &jtx.FuncCallee{Loan: func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
				err = ctx.Call(tc.build(f))
				return err
			}})

			jtx.AssertNoBalanceChange(t, f.env, f.tokenA, f.callee, func() {
				result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build())
				jtx.RequireTxFail(t, result, tx.ReentrancyDetected)
			})
			require.ErrorIs(t, err, tx.ErrReentrancyDetected)
			jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenA, f.pair))
			jtx.RequireAmount(t, jtx.Ether(1_000), f.env.Balance(f.tokenB, f.pair))
			assert.Equal(t, uint64(3), f.env.Pair(f.pair).NextPositionID)
		})
	}

	t.Run("swallowed refusal still fails", func(t *testing.T) {
		f := setup(t, nil)
		f.env.RegisterCallee(f.callee.Address, &jtx.FuncCallee{Loan: func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
			_ = ctx.Call(&tx.Swap{Pair: cb.Pair})
			return jtx.RepayWithFee()(ctx, cb)
		}})
		result := f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build())
		jtx.RequireTxFail(t, result, tx.ReentrancyDetected)
		jtx.RequireBalance(t, f.env, f.tokenA, f.env.FeeRecipient(), uint256.NewInt(0))
	})

	t.Run("pair unlocks after the loan", func(t *testing.T) {
		f := setup(t, jtx.RepayWithFee())
		jtx.RequireTxSuccess(t, f.env.Submit(f.user, loan.Loan(f.pair, f.callee.Address).AmountA(jtx.Ether(100)).Build()))
		jtx.RequireTxSuccess(t, f.env.Submit(f.user, &tx.Swap{Pair: f.pair}))
	})
}
