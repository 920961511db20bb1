package tx

import (
	"errors"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/governance"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
)

const (
	// DefaultSwapFee is 0.6%
	DefaultSwapFee uint32 = 6000
	// DefaultLoanFee is 0.1%
	DefaultLoanFee uint32 = 1000
)

// Parameters are the governed protocol parameters.
type Parameters = entry.Parameters

// GovernanceError maps governance sentinels to result codes.
func GovernanceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, governance.ErrZeroAddress):
		return Wrap(ZeroAddress, err, "")
	case errors.Is(err, governance.ErrNoPendingGovernor):
		return Wrap(NoPendingGovernor, err, "")
	case errors.Is(err, governance.ErrOnlyGovernor), errors.Is(err, governance.ErrOnlyPendingGovernor):
		return Wrap(Unauthorized, err, "")
	default:
		return Wrap(Internal, err, "governance")
	}
}

func onlyGovernor(ctx *ApplyContext) error {
	p, err := ctx.Parameters()
	if err != nil {
		return err
	}
	return GovernanceError(p.Governance.OnlyGovernor(ctx.Caller))
}

func whenNotPaused(ctx *ApplyContext) error {
	p, err := ctx.Parameters()
	if err != nil {
		return err
	}
	if p.Paused {
		return Errorf(Paused, "protocol is paused")
	}
	return nil
}

// updateParameters runs fn on the parameters after checking the caller is
// the governor, then stores the result.
func updateParameters(ctx *ApplyContext, fn func(p *Parameters) error) (*Parameters, error) {
	p, err := ctx.Parameters()
	if err != nil {
		return nil, err
	}
	if err := GovernanceError(p.Governance.OnlyGovernor(ctx.Caller)); err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := saveParameters(ctx.View, p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateFee(fee uint32) error {
	if fee > amount.MaxFee {
		return Errorf(InvalidFee, "fee %d above maximum %d", fee, amount.MaxFee)
	}
	return nil
}

func validateIntervals(intervals []uint32) error {
	if len(intervals) == 0 {
		return Errorf(InvalidInterval, "no intervals")
	}
	for _, i := range intervals {
		if i == 0 {
			return Errorf(InvalidInterval, "interval must be positive")
		}
	}
	return nil
}

// SetPendingGovernor starts a governor handoff.
type SetPendingGovernor struct {
	Pending common.Address `json:"pending"`
}

func (t *SetPendingGovernor) TxType() Type { return TypeSetPendingGovernor }

func (t *SetPendingGovernor) Validate() error {
	if t.Pending == (common.Address{}) {
		return Errorf(ZeroAddress, "pending governor")
	}
	return nil
}

func (t *SetPendingGovernor) Apply(ctx *ApplyContext) error {
	p, err := ctx.Parameters()
	if err != nil {
		return err
	}
	if err := GovernanceError(p.Governance.SetPendingGovernor(ctx.Caller, t.Pending)); err != nil {
		return err
	}
	if err := saveParameters(ctx.View, p); err != nil {
		return err
	}
	ctx.Emit(EventPendingGovernorSet, common.Address{}, &GovernorEvent{
		Governor:        p.Governance.Governor,
		PendingGovernor: p.Governance.PendingGovernor,
	})
	return nil
}

// AcceptPendingGovernor completes a governor handoff.
type AcceptPendingGovernor struct{}

func (t *AcceptPendingGovernor) TxType() Type { return TypeAcceptPendingGovernor }

func (t *AcceptPendingGovernor) Validate() error { return nil }

func (t *AcceptPendingGovernor) Apply(ctx *ApplyContext) error {
	p, err := ctx.Parameters()
	if err != nil {
		return err
	}
	if err := GovernanceError(p.Governance.AcceptPendingGovernor(ctx.Caller)); err != nil {
		return err
	}
	if err := saveParameters(ctx.View, p); err != nil {
		return err
	}
	ctx.Emit(EventPendingGovernorAccepted, common.Address{}, &GovernorEvent{
		Governor: p.Governance.Governor,
	})
	return nil
}

// SetFeeRecipient sets the account that receives swap and loan fees.
type SetFeeRecipient struct {
	Recipient common.Address `json:"recipient"`
}

func (t *SetFeeRecipient) TxType() Type { return TypeSetFeeRecipient }

func (t *SetFeeRecipient) Validate() error {
	if t.Recipient == (common.Address{}) {
		return Errorf(ZeroAddress, "fee recipient")
	}
	return nil
}

func (t *SetFeeRecipient) Apply(ctx *ApplyContext) error {
	_, err := updateParameters(ctx, func(p *Parameters) error {
		p.FeeRecipient = t.Recipient
		return nil
	})
	if err != nil {
		return err
	}
	ctx.Emit(EventFeeRecipientSet, common.Address{}, &FeeRecipientSetEvent{Recipient: t.Recipient})
	return nil
}

// SetSwapFee sets the platform fee charged on every swap.
type SetSwapFee struct {
	Fee uint32 `json:"fee"`
}

func (t *SetSwapFee) TxType() Type { return TypeSetSwapFee }

func (t *SetSwapFee) Validate() error { return validateFee(t.Fee) }

func (t *SetSwapFee) Apply(ctx *ApplyContext) error {
	_, err := updateParameters(ctx, func(p *Parameters) error {
		p.SwapFee = t.Fee
		return nil
	})
	if err != nil {
		return err
	}
	ctx.Emit(EventSwapFeeSet, common.Address{}, &FeeSetEvent{Fee: t.Fee})
	return nil
}

// SetLoanFee sets the fee charged on flash loans.
type SetLoanFee struct {
	Fee uint32 `json:"fee"`
}

func (t *SetLoanFee) TxType() Type { return TypeSetLoanFee }

func (t *SetLoanFee) Validate() error { return validateFee(t.Fee) }

func (t *SetLoanFee) Apply(ctx *ApplyContext) error {
	_, err := updateParameters(ctx, func(p *Parameters) error {
		p.LoanFee = t.Fee
		return nil
	})
	if err != nil {
		return err
	}
	ctx.Emit(EventLoanFeeSet, common.Address{}, &FeeSetEvent{Fee: t.Fee})
	return nil
}

// AddSwapIntervals allows deposits to use more intervals.
type AddSwapIntervals struct {
	Intervals []uint32 `json:"intervals"`
}

func (t *AddSwapIntervals) TxType() Type { return TypeAddSwapIntervals }

func (t *AddSwapIntervals) Validate() error { return validateIntervals(t.Intervals) }

func (t *AddSwapIntervals) Apply(ctx *ApplyContext) error {
	p, err := updateParameters(ctx, func(p *Parameters) error {
		for _, i := range t.Intervals {
			if !p.IsIntervalAllowed(i) {
				p.AllowedIntervals = append(p.AllowedIntervals, i)
			}
		}
		slices.Sort(p.AllowedIntervals)
		return nil
	})
	if err != nil {
		return err
	}
	ctx.Emit(EventSwapIntervalsAllowed, common.Address{}, &IntervalsEvent{
		Intervals: t.Intervals,
		Allowed:   p.AllowedIntervals,
	})
	return nil
}

// RemoveSwapIntervals forbids new deposits on some intervals. Existing
// positions keep swapping.
type RemoveSwapIntervals struct {
	Intervals []uint32 `json:"intervals"`
}

func (t *RemoveSwapIntervals) TxType() Type { return TypeRemoveSwapIntervals }

func (t *RemoveSwapIntervals) Validate() error { return validateIntervals(t.Intervals) }

func (t *RemoveSwapIntervals) Apply(ctx *ApplyContext) error {
	p, err := updateParameters(ctx, func(p *Parameters) error {
		p.AllowedIntervals = slices.DeleteFunc(p.AllowedIntervals, func(i uint32) bool {
			return slices.Contains(t.Intervals, i)
		})
		return nil
	})
	if err != nil {
		return err
	}
	ctx.Emit(EventSwapIntervalsForbidden, common.Address{}, &IntervalsEvent{
		Intervals: t.Intervals,
		Allowed:   p.AllowedIntervals,
	})
	return nil
}

// Pause blocks deposits, swaps and loans. Withdrawals stay open.
type Pause struct{}

func (t *Pause) TxType() Type { return TypePause }

func (t *Pause) Validate() error { return nil }

func (t *Pause) Apply(ctx *ApplyContext) error {
	if _, err := updateParameters(ctx, func(p *Parameters) error {
		p.Paused = true
		return nil
	}); err != nil {
		return err
	}
	ctx.Emit(EventPaused, common.Address{}, &PauseEvent{By: ctx.Caller})
	return nil
}

// Unpause lifts a pause.
type Unpause struct{}

func (t *Unpause) TxType() Type { return TypeUnpause }

func (t *Unpause) Validate() error { return nil }

func (t *Unpause) Apply(ctx *ApplyContext) error {
	if _, err := updateParameters(ctx, func(p *Parameters) error {
		p.Paused = false
		return nil
	}); err != nil {
		return err
	}
	ctx.Emit(EventUnpaused, common.Address{}, &PauseEvent{By: ctx.Caller})
	return nil
}
