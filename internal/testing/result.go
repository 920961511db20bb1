package testing

import (
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

// TxResult represents the result of applying a transaction.
type TxResult struct {
	// Code is the result code name (e.g., "Success", "ReentrancyDetected").
	Code string

	// Class is the result class name (e.g., "StateError").
	Class string

	// Success indicates whether the transaction was applied.
	Success bool

	// Message provides additional details about the result.
	Message string

	// Output is the value the transaction returned, if any.
	Output any

	// Events are the events the transaction published.
	Events []tx.Event

	// Metadata lists the ledger entries the transaction changed.
	Metadata *ledger.Metadata
}

func resultFrom(res *tx.ApplyResult, err error) TxResult {
	r := TxResult{
		Code:    res.Result.String(),
		Class:   res.Result.Class().String(),
		Success: err == nil && res.Applied,
		Message: res.Message,
	}
	if r.Success {
		r.Message = "The transaction was applied."
		r.Output = res.Output
		r.Events = res.Events
		r.Metadata = res.Metadata
	}
	return r
}

// IsSuccess returns true if the transaction was applied.
func (r TxResult) IsSuccess() bool {
	return r.Success
}

// Event returns the first event of type typ, or nil.
func (r TxResult) Event(typ tx.EventType) *tx.Event {
	for i := range r.Events {
		if r.Events[i].Type == typ {
			return &r.Events[i]
		}
	}
	return nil
}
