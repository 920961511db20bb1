package tx

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/schedule"
)

// Swap executes every due interval of a pair at the oracle price. The
// swapper receives the reward first, optionally through a callee, and must
// leave the pair holding the amount to be provided.
type Swap struct {
	Pair common.Address `json:"pair"`
	// Provided is pulled from the swapper after the callback
	Provided *uint256.Int `json:"provided,omitempty"`
	// MinReward makes the swap fail if the reward is smaller
	MinReward *uint256.Int   `json:"minReward,omitempty"`
	Callee    common.Address `json:"callee,omitempty"`
	Data      []byte         `json:"data,omitempty"`
}

func (t *Swap) TxType() Type                { return TypeSwap }
func (t *Swap) PairAddress() common.Address { return t.Pair }

func (t *Swap) Validate() error {
	if t.Pair == (common.Address{}) {
		return Errorf(ZeroAddress, "pair")
	}
	return nil
}

func (t *Swap) Apply(ctx *ApplyContext) error {
	if err := whenNotPaused(ctx); err != nil {
		return err
	}
	plan, err := planSwap(ctx.Context(), ctx.View, ctx.Engine, t.Pair, ctx.Now())
	if err != nil {
		return err
	}
	if !plan.hasDemand {
		return Errorf(ZeroAmount, "nothing to swap on pair %s", t.Pair)
	}
	if plan.secondsUntil != 0 {
		return Errorf(PairSwapNotNeeded, "next swap in %ds", plan.secondsUntil)
	}
	info, pair := plan.info, plan.pair
	if t.MinReward != nil && t.MinReward.Gt(info.AmountToRewardSwapperWith) {
		return Errorf(InvalidReward, "reward %s below minimum %s", info.AmountToRewardSwapperWith, t.MinReward)
	}

	provided := info.TokenToBeProvidedBySwapper
	before, err := ctx.BalanceOf(provided, pair.Address)
	if err != nil {
		return err
	}

	rewardTo := ctx.Caller
	if t.Callee != (common.Address{}) {
		rewardTo = t.Callee
	}
	if err := ctx.Move(info.TokenToRewardSwapperWith, pair.Address, rewardTo, info.AmountToRewardSwapperWith); err != nil {
		return err
	}

	if t.Callee != (common.Address{}) {
		callee, err := ctx.swapCallee(t.Callee)
		if err != nil {
			return err
		}
		cb := &SwapCallback{Info: info, Swapper: ctx.Caller, Data: t.Data}
		if err := callee.OnSwap(ctx.as(t.Callee), cb); err != nil {
			return err
		}
	}

	if t.Provided != nil && !t.Provided.IsZero() {
		if err := ctx.Transfer(provided, pair.Address, t.Provided); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return Wrap(LiquidityNotReturned, err, "swapper cannot provide")
			}
			return err
		}
	}

	after, err := ctx.BalanceOf(provided, pair.Address)
	if err != nil {
		return err
	}
	required, err := amount.Add(before, info.AmountToBeProvidedBySwapper)
	if err != nil {
		return Wrap(Internal, err, "required balance")
	}
	if after.Lt(required) {
		return Errorf(LiquidityNotReturned, "pair holds %s of %s, needs %s", after, provided, required)
	}
	surplus := new(uint256.Int).Sub(after, required)
	if err := ctx.Move(provided, pair.Address, plan.params.FeeRecipient, surplus); err != nil {
		return err
	}

	performed := make(map[uint32]uint32, len(plan.due))
	for i, acc := range plan.due {
		incA, incB := plan.incA, plan.incB
		if info.Intervals[i].AmountToSwapA.IsZero() {
			incA = amount.Zero()
		}
		if info.Intervals[i].AmountToSwapB.IsZero() {
			incB = amount.Zero()
		}
		performed[acc.Interval()] = acc.CommitSwap(incA, incB, ctx.Now())
		if err := saveSchedule(ctx.View, pair.Address, acc); err != nil {
			return err
		}
	}

	// Each side gives up what it swapped and is credited its net share.
	for _, side := range []schedule.Side{schedule.SideA, schedule.SideB} {
		swappedOut, credited := info.AmountToSwapA, plan.netA
		if side == schedule.SideB {
			swappedOut, credited = info.AmountToSwapB, plan.netB
		}
		if err := adjustPairBalance(pair, side, swappedOut, false); err != nil {
			return err
		}
		if err := adjustPairBalance(pair, side, credited, true); err != nil {
			return err
		}
	}
	if err := ctx.Move(pair.TokenA, pair.Address, plan.params.FeeRecipient, info.PlatformFeeA); err != nil {
		return err
	}
	if err := ctx.Move(pair.TokenB, pair.Address, plan.params.FeeRecipient, info.PlatformFeeB); err != nil {
		return err
	}
	if err := savePair(ctx.View, pair); err != nil {
		return err
	}

	ctx.SetOutput(info)
	ctx.Emit(EventSwapped, pair.Address, &SwappedEvent{
		Swapper:        ctx.Caller,
		Callee:         t.Callee,
		Info:           info,
		Surplus:        surplus,
		PerformedSwaps: performed,
		BalanceA:       pair.BalanceA,
		BalanceB:       pair.BalanceB,
	})
	return nil
}
