// Package testing provides test infrastructure for DCA transaction testing.
//
// It provides a deterministic environment in which tests create tokens and
// pairs, submit transactions as named accounts, move the clock, and check
// balances and positions.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: a bootstrapped ledger with an engine, a static oracle and a manual clock
//   - Account: deterministic named accounts
//   - Amount helpers: Units, Ether and MustParse
//   - Assertions: result and balance checks
//
// Transaction families keep their builders and tests in subpackages
// (position, swap, loan, params).
//
// # Basic Usage
//
//	func TestDeposit(t *testing.T) {
//	    env := jtx.NewTestEnv(t)
//	    alice := env.Account("alice")
//
//	    tokA := env.CreateToken("AAA", 18)
//	    tokB := env.CreateToken("BBB", 18)
//	    pair := env.CreatePair(tokA, tokB)
//	    env.Mint(tokA, alice, jtx.Ether(1000))
//
//	    result := env.Submit(alice, position.Deposit(pair, tokA).
//	        Rate(jtx.Ether(50)).Swaps(13).Interval(jtx.Day).Build())
//	    jtx.RequireTxSuccess(t, result)
//	}
//
// # Clock Control
//
// The engine reads time from a ManualClock:
//
//	env.AdvanceTime(24 * time.Hour)
//	env.AdvanceSeconds(int64(env.SecondsUntilNextSwap(pair)))
//	env.Now()
package testing
