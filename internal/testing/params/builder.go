// Package params provides helpers and tests for governed protocol
// parameters.
package params

import (
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/testing"
)

// SetPendingGovernor builds a SetPendingGovernor naming acc.
func SetPendingGovernor(acc *testing.Account) tx.Transaction {
	return &tx.SetPendingGovernor{Pending: acc.Address}
}

// AcceptPendingGovernor builds an AcceptPendingGovernor.
func AcceptPendingGovernor() tx.Transaction {
	return &tx.AcceptPendingGovernor{}
}

// SetFeeRecipient builds a SetFeeRecipient naming acc.
func SetFeeRecipient(acc *testing.Account) tx.Transaction {
	return &tx.SetFeeRecipient{Recipient: acc.Address}
}

// SwapFee builds a SetSwapFee.
func SwapFee(fee uint32) tx.Transaction {
	return &tx.SetSwapFee{Fee: fee}
}

// LoanFee builds a SetLoanFee.
func LoanFee(fee uint32) tx.Transaction {
	return &tx.SetLoanFee{Fee: fee}
}

// AllowIntervals builds an AddSwapIntervals.
func AllowIntervals(intervals ...uint32) tx.Transaction {
	return &tx.AddSwapIntervals{Intervals: intervals}
}

// ForbidIntervals builds a RemoveSwapIntervals.
func ForbidIntervals(intervals ...uint32) tx.Transaction {
	return &tx.RemoveSwapIntervals{Intervals: intervals}
}
