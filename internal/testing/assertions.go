package testing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// RequireTxSuccess asserts that a transaction result indicates success.
func RequireTxSuccess(t *testing.T, result TxResult) {
	t.Helper()
	require.True(t, result.Success,
		"Expected transaction success, got %s: %s", result.Code, result.Message)
}

// RequireTxFail asserts that a transaction result indicates failure with a specific code.
func RequireTxFail(t *testing.T, result TxResult, expected tx.Result) {
	t.Helper()
	require.False(t, result.Success,
		"Expected transaction failure with code %s, but transaction succeeded", expected)
	require.Equal(t, expected.String(), result.Code,
		"Expected failure code %s, got %s: %s", expected, result.Code, result.Message)
	require.Equal(t, expected.Class().String(), result.Class)
}

// RequireBalance asserts that holder has exactly expected of token.
func RequireBalance(t *testing.T, env *TestEnv, token common.Address, acc *Account, expected *uint256.Int) {
	t.Helper()
	actual := env.BalanceOf(token, acc)
	require.True(t, expected.Eq(actual),
		"Account %s balance mismatch: expected %s, got %s", acc.Name, expected.Dec(), actual.Dec())
}

// RequireBalanceApprox asserts that holder's balance of token is within
// tolerance base units of expected.
func RequireBalanceApprox(t *testing.T, env *TestEnv, token common.Address, acc *Account, expected *uint256.Int, tolerance uint64) {
	t.Helper()
	RequireApprox(t, expected, env.BalanceOf(token, acc), tolerance)
}

// RequireApprox asserts that two amounts differ by at most tolerance.
func RequireApprox(t *testing.T, expected, actual *uint256.Int, tolerance uint64) {
	t.Helper()
	diff := new(uint256.Int)
	if actual.Gt(expected) {
		diff.Sub(actual, expected)
	} else {
		diff.Sub(expected, actual)
	}
	require.False(t, diff.Gt(uint256.NewInt(tolerance)),
		"amount mismatch: expected %s +/- %d, got %s (diff: %s)",
		expected.Dec(), tolerance, actual.Dec(), diff.Dec())
}

// RequireAmount asserts two amounts are equal.
func RequireAmount(t *testing.T, expected, actual *uint256.Int, msgAndArgs ...any) {
	t.Helper()
	require.NotNil(t, actual, msgAndArgs...)
	require.Equal(t, expected.Dec(), actual.Dec(), msgAndArgs...)
}

// AssertBalanceChange runs fn and asserts that acc's balance of token grew by
// exactly delta.
func AssertBalanceChange(t *testing.T, env *TestEnv, token common.Address, acc *Account, delta *uint256.Int, fn func()) {
	t.Helper()
	before := env.BalanceOf(token, acc)
	fn()
	after := env.BalanceOf(token, acc)
	require.False(t, after.Lt(before), "balance of %s decreased", acc.Name)
	RequireAmount(t, delta, new(uint256.Int).Sub(after, before), "balance change of %s", acc.Name)
}

// AssertNoBalanceChange runs fn and asserts acc's balance of token did not move.
func AssertNoBalanceChange(t *testing.T, env *TestEnv, token common.Address, acc *Account, fn func()) {
	t.Helper()
	before := env.BalanceOf(token, acc)
	fn()
	RequireAmount(t, before, env.BalanceOf(token, acc), "balance of %s", acc.Name)
}
