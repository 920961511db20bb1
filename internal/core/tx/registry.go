package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// ErrUnknownTransactionType is returned when a transaction type is unknown
var ErrUnknownTransactionType = errors.New("unknown transaction type")

var (
	registryMu sync.RWMutex
	factories  = map[Type]func() Transaction{
		TypeTokenCreate:           func() Transaction { return &TokenCreate{} },
		TypeTokenMint:             func() Transaction { return &TokenMint{} },
		TypeTransfer:              func() Transaction { return &Transfer{} },
		TypeCreatePair:            func() Transaction { return &CreatePair{} },
		TypeDeposit:               func() Transaction { return &Deposit{} },
		TypeWithdrawSwapped:       func() Transaction { return &WithdrawSwapped{} },
		TypeWithdrawSwappedMany:   func() Transaction { return &WithdrawSwappedMany{} },
		TypeModifyRate:            func() Transaction { return &ModifyRate{} },
		TypeModifySwaps:           func() Transaction { return &ModifySwaps{} },
		TypeModifyRateAndSwaps:    func() Transaction { return &ModifyRateAndSwaps{} },
		TypeAddFunds:              func() Transaction { return &AddFunds{} },
		TypeTerminate:             func() Transaction { return &Terminate{} },
		TypeSwap:                  func() Transaction { return &Swap{} },
		TypeLoan:                  func() Transaction { return &Loan{} },
		TypeSetPendingGovernor:    func() Transaction { return &SetPendingGovernor{} },
		TypeAcceptPendingGovernor: func() Transaction { return &AcceptPendingGovernor{} },
		TypeSetFeeRecipient:       func() Transaction { return &SetFeeRecipient{} },
		TypeSetSwapFee:            func() Transaction { return &SetSwapFee{} },
		TypeSetLoanFee:            func() Transaction { return &SetLoanFee{} },
		TypeAddSwapIntervals:      func() Transaction { return &AddSwapIntervals{} },
		TypeRemoveSwapIntervals:   func() Transaction { return &RemoveSwapIntervals{} },
		TypePause:                 func() Transaction { return &Pause{} },
		TypeUnpause:               func() Transaction { return &Unpause{} },
	}
)

// Register adds a transaction type defined outside this package so that
// FromJSON can build it. It panics if t or name is already taken.
func Register(t Type, name string, factory func() Transaction) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[t]; dup {
		panic(fmt.Sprintf("tx: type %d already registered", t))
	}
	for _, n := range typeNames {
		if n == name {
			panic(fmt.Sprintf("tx: type name %q already registered", name))
		}
	}
	factories[t] = factory
	typeNames[t] = name
}

// registered reports whether t is of a type the registry builds, as opposed
// to a Transaction implemented by a callee.
func registered(t Transaction) bool {
	registryMu.RLock()
	factory, ok := factories[t.TxType()]
	registryMu.RUnlock()
	return ok && reflect.TypeOf(factory()) == reflect.TypeOf(t)
}

// NewFromType creates a new transaction of the given type
func NewFromType(txType Type) (Transaction, error) {
	registryMu.RLock()
	factory, ok := factories[txType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransactionType, txType)
	}
	return factory(), nil
}

// FromJSON creates a Transaction from a JSON object carrying its type name
// in TransactionType.
func FromJSON(data []byte) (Transaction, error) {
	var raw struct {
		TransactionType string `json:"TransactionType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	registryMu.RLock()
	txType, ok := TypeFromName(raw.TransactionType)
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransactionType, raw.TransactionType)
	}

	t, err := NewFromType(txType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Types returns every registered transaction type in ascending order.
func Types() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
