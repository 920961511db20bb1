package tx

import (
	"context"
	"errors"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/schedule"
)

// NeverDue is reported by SecondsUntilNextSwap when no interval of a pair
// has anything to swap.
const NeverDue int64 = math.MaxUint32

// IntervalSwap is the part of a swap contributed by one interval.
type IntervalSwap struct {
	Interval      uint32       `json:"interval"`
	AmountToSwapA *uint256.Int `json:"amountToSwapA"`
	AmountToSwapB *uint256.Int `json:"amountToSwapB"`
}

// SwapInfo describes what swapping a pair would do at one moment. It is
// recomputed on every query and never stored.
type SwapInfo struct {
	Pair      common.Address `json:"pair"`
	TokenA    common.Address `json:"tokenA"`
	TokenB    common.Address `json:"tokenB"`
	Intervals []IntervalSwap `json:"intervals"`

	AmountToSwapA *uint256.Int `json:"amountToSwapA"`
	AmountToSwapB *uint256.Int `json:"amountToSwapB"`

	// RatePerUnitAToB is the amount of B one whole A is worth
	RatePerUnitAToB *uint256.Int `json:"ratePerUnitAToB"`
	// RatePerUnitBToA is the amount of A one whole B is worth
	RatePerUnitBToA *uint256.Int `json:"ratePerUnitBToA"`

	PlatformFeeA *uint256.Int `json:"platformFeeA"`
	PlatformFeeB *uint256.Int `json:"platformFeeB"`

	AmountToBeProvidedBySwapper *uint256.Int   `json:"amountToBeProvidedBySwapper"`
	AmountToRewardSwapperWith   *uint256.Int   `json:"amountToRewardSwapperWith"`
	TokenToBeProvidedBySwapper  common.Address `json:"tokenToBeProvidedBySwapper"`
	TokenToRewardSwapperWith    common.Address `json:"tokenToRewardSwapperWith"`
}

// swapPlan is a SwapInfo plus what committing it needs.
type swapPlan struct {
	info   *SwapInfo
	pair   *entry.Pair
	params *entry.Parameters

	due []*schedule.Accumulator
	// secondsUntil is the pair's SecondsUntilNextSwap
	secondsUntil int64
	hasDemand    bool

	// incA is the per-unit ratio side A earns, in B per whole A, net of fees
	incA *uint256.Int
	incB *uint256.Int
	// netA is what side B positions earn in A; netB what side A earns in B
	netA *uint256.Int
	netB *uint256.Int
}

func emptySwapInfo(p *entry.Pair) *SwapInfo {
	return &SwapInfo{
		Pair:                        p.Address,
		TokenA:                      p.TokenA,
		TokenB:                      p.TokenB,
		Intervals:                   []IntervalSwap{},
		AmountToSwapA:               amount.Zero(),
		AmountToSwapB:               amount.Zero(),
		RatePerUnitAToB:             amount.Zero(),
		RatePerUnitBToA:             amount.Zero(),
		PlatformFeeA:                amount.Zero(),
		PlatformFeeB:                amount.Zero(),
		AmountToBeProvidedBySwapper: amount.Zero(),
		AmountToRewardSwapperWith:   amount.Zero(),
		TokenToBeProvidedBySwapper:  p.TokenB,
		TokenToRewardSwapperWith:    p.TokenA,
	}
}

// scanIntervals loads the pair's accumulators and sorts out which are due.
func scanIntervals(v ledger.View, p *entry.Pair, oneSided bool, now int64) (*swapPlan, error) {
	plan := &swapPlan{pair: p, secondsUntil: NeverDue}
	for _, interval := range p.Intervals {
		acc, err := loadSchedule(v, p.Address, interval)
		if err != nil {
			return nil, err
		}
		if !acc.HasDemand(oneSided) {
			continue
		}
		plan.hasDemand = true
		secs := acc.SecondsUntilNextSwap(now)
		if secs == 0 {
			plan.due = append(plan.due, acc)
		}
		plan.secondsUntil = min(plan.secondsUntil, secs)
	}
	return plan, nil
}

func secondsUntilNextSwap(v ledger.View, e *Engine, pair common.Address, now int64) (int64, error) {
	p, err := loadPair(v, pair)
	if err != nil {
		return 0, err
	}
	plan, err := scanIntervals(v, p, e.config.AllowOneSidedSwaps, now)
	if err != nil {
		return 0, err
	}
	return plan.secondsUntil, nil
}

// planSwap computes the swap of every due interval of pair at the oracle's
// current price. What the pair is owed and what it books for positions are
// rounded up while each position's share is floored, so positions can always
// be paid from what the pair holds.
func planSwap(ctx context.Context, v ledger.View, e *Engine, pairAddr common.Address, now int64) (*swapPlan, error) {
	p, err := loadPair(v, pairAddr)
	if err != nil {
		return nil, err
	}
	params, err := loadParameters(v)
	if err != nil {
		return nil, err
	}
	plan, err := scanIntervals(v, p, e.config.AllowOneSidedSwaps, now)
	if err != nil {
		return nil, err
	}
	plan.params = params
	info := emptySwapInfo(p)
	plan.info = info
	plan.incA, plan.incB = amount.Zero(), amount.Zero()
	plan.netA, plan.netB = amount.Zero(), amount.Zero()
	if len(plan.due) == 0 {
		return plan, nil
	}

	magA, magB := amount.Magnitude(p.DecimalsA), amount.Magnitude(p.DecimalsB)
	rBA, err := e.oracle.Quote(ctx, p.TokenB, magB, p.TokenA)
	if err != nil {
		return nil, Wrap(Internal, err, "oracle quote")
	}
	if rBA == nil || rBA.IsZero() {
		return nil, Errorf(Internal, "oracle priced %s at zero", p.TokenB)
	}
	rAB, err := amount.MulDiv(magA, magB, rBA)
	if err != nil || rAB.IsZero() {
		return nil, Errorf(Internal, "oracle price of %s out of range", p.TokenB)
	}
	info.RatePerUnitAToB, info.RatePerUnitBToA = rAB, rBA
	plan.incA = amount.ApplyFee(rAB, params.SwapFee)
	plan.incB = amount.ApplyFee(rBA, params.SwapFee)

	for _, acc := range plan.due {
		amtA, amtB := acc.AmountToSwap(schedule.SideA), acc.AmountToSwap(schedule.SideB)
		info.Intervals = append(info.Intervals, IntervalSwap{
			Interval:      acc.Interval(),
			AmountToSwapA: amtA,
			AmountToSwapB: amtB,
		})
		if _, overflow := info.AmountToSwapA.AddOverflow(info.AmountToSwapA, amtA); overflow {
			return nil, Errorf(Internal, "swap amounts overflow")
		}
		if _, overflow := info.AmountToSwapB.AddOverflow(info.AmountToSwapB, amtB); overflow {
			return nil, Errorf(Internal, "swap amounts overflow")
		}
	}

	// Converted once over the totals so every interval shares one rounding.
	x, y := info.AmountToSwapA, info.AmountToSwapB
	owedB, errB := amount.MulDivUp(x, rAB, magA)
	owedA, errA := amount.MulDivUp(y, rBA, magB)
	netB, errNB := amount.MulDivUp(x, plan.incA, magA)
	netA, errNA := amount.MulDivUp(y, plan.incB, magB)
	if err := errors.Join(errA, errB, errNA, errNB); err != nil {
		return nil, Wrap(Internal, err, "swap amounts")
	}
	plan.netA, plan.netB = netA, netB

	info.PlatformFeeA = amount.SubFloor(owedA, plan.netA)
	info.PlatformFeeB = amount.SubFloor(owedB, plan.netB)

	// owedA > x means y is worth more than x, and rAB is floored, so owedB
	// cannot exceed y at the same time. The short side is provided.
	if owedA.Gt(x) {
		info.TokenToBeProvidedBySwapper = p.TokenA
		info.AmountToBeProvidedBySwapper = new(uint256.Int).Sub(owedA, x)
		info.TokenToRewardSwapperWith = p.TokenB
		info.AmountToRewardSwapperWith = amount.SubFloor(y, owedB)
	} else {
		info.TokenToBeProvidedBySwapper = p.TokenB
		info.AmountToBeProvidedBySwapper = amount.SubFloor(owedB, y)
		info.TokenToRewardSwapperWith = p.TokenA
		info.AmountToRewardSwapperWith = new(uint256.Int).Sub(x, owedA)
	}
	return plan, nil
}
