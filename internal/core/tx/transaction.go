package tx

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Type represents a transaction type
type Type uint16

// Transaction types
const (
	TypeInvalid Type = iota
	TypeTokenCreate
	TypeTokenMint
	TypeTransfer
	TypeCreatePair
	TypeDeposit
	TypeWithdrawSwapped
	TypeWithdrawSwappedMany
	TypeModifyRate
	TypeModifySwaps
	TypeModifyRateAndSwaps
	TypeAddFunds
	TypeTerminate
	TypeSwap
	TypeLoan
	TypeSetPendingGovernor
	TypeAcceptPendingGovernor
	TypeSetFeeRecipient
	TypeSetSwapFee
	TypeSetLoanFee
	TypeAddSwapIntervals
	TypeRemoveSwapIntervals
	TypePause
	TypeUnpause

	// TypeExtension is the first type number available to transactions
	// defined outside this package, such as the simulation market.
	TypeExtension Type = 1000
)

var typeNames = map[Type]string{
	TypeTokenCreate:           "TokenCreate",
	TypeTokenMint:             "TokenMint",
	TypeTransfer:              "Transfer",
	TypeCreatePair:            "CreatePair",
	TypeDeposit:               "Deposit",
	TypeWithdrawSwapped:       "WithdrawSwapped",
	TypeWithdrawSwappedMany:   "WithdrawSwappedMany",
	TypeModifyRate:            "ModifyRate",
	TypeModifySwaps:           "ModifySwaps",
	TypeModifyRateAndSwaps:    "ModifyRateAndSwaps",
	TypeAddFunds:              "AddFunds",
	TypeTerminate:             "Terminate",
	TypeSwap:                  "Swap",
	TypeLoan:                  "Loan",
	TypeSetPendingGovernor:    "SetPendingGovernor",
	TypeAcceptPendingGovernor: "AcceptPendingGovernor",
	TypeSetFeeRecipient:       "SetFeeRecipient",
	TypeSetSwapFee:            "SetSwapFee",
	TypeSetLoanFee:            "SetLoanFee",
	TypeAddSwapIntervals:      "AddSwapIntervals",
	TypeRemoveSwapIntervals:   "RemoveSwapIntervals",
	TypePause:                 "Pause",
	TypeUnpause:               "Unpause",
}

// String returns the transaction type name
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// TypeFromName returns the transaction type for a name
func TypeFromName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Transaction is the interface every ledger operation implements. The
// submitting account is not part of the transaction; the engine supplies it
// as ApplyContext.Caller.
type Transaction interface {
	// TxType returns the transaction type
	TxType() Type

	// Validate checks the transaction without reading state
	Validate() error

	// Apply executes the transaction against ctx.View. A non-nil error
	// discards every change the transaction made.
	Apply(ctx *ApplyContext) error
}

// PairTransaction is implemented by transactions that move a pair's funds.
// The engine holds the pair's lock while they apply.
type PairTransaction interface {
	Transaction
	PairAddress() common.Address
}
