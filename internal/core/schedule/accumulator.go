// Package schedule implements the per-interval swap accumulator of a pair.
//
// An Accumulator tracks, for one swap-interval duration, the aggregate rate
// each side offers at every future swap and the cumulative per-unit ratio
// each side has received at every performed swap. Both are sparse: rates are
// stored as deltas keyed by the swap number where they change, ratios as
// checkpoints keyed by the swap number that produced them. Lookups carry the
// previous value forward, so a swap costs O(log n) regardless of how many
// positions are open.
package schedule

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/holiman/uint256"
)

// Side selects the token a rate or ratio belongs to.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	return 1 - s
}

var (
	ErrPastSwap      = errors.New("rate change targets a performed swap")
	ErrEmptyRange    = errors.New("empty swap range")
	ErrRateUnderflow = errors.New("rate deregistration exceeds registered rate")
	ErrZeroInterval  = errors.New("swap interval must be positive")
)

// delta is a net rate change at one swap number. At most one of add and sub
// is non-zero.
type delta struct {
	add *uint256.Int
	sub *uint256.Int
}

func (d *delta) normalize() {
	if d.add.Cmp(d.sub) >= 0 {
		d.add.Sub(d.add, d.sub)
		d.sub.Clear()
		return
	}
	d.sub.Sub(d.sub, d.add)
	d.add.Clear()
}

func (d *delta) empty() bool {
	return d.add.IsZero() && d.sub.IsZero()
}

// Accumulator is the swap schedule for one interval duration of a pair. It
// is not safe for concurrent use; callers serialize access through the
// transaction engine.
type Accumulator struct {
	interval          uint32
	performed         uint32
	nextSwapAvailable int64
	rate              [2]*uint256.Int
	deltas            [2]*treemap.Map // uint32 -> *delta
	ratios            [2]*treemap.Map // uint32 -> *uint256.Int
}

// New returns an empty accumulator for the given interval in seconds.
func New(interval uint32) (*Accumulator, error) {
	if interval == 0 {
		return nil, ErrZeroInterval
	}
	a := &Accumulator{interval: interval}
	for s := range a.rate {
		a.rate[s] = new(uint256.Int)
		a.deltas[s] = treemap.NewWith(utils.UInt32Comparator)
		a.ratios[s] = treemap.NewWith(utils.UInt32Comparator)
	}
	return a, nil
}

// Interval returns the swap interval in seconds.
func (a *Accumulator) Interval() uint32 { return a.interval }

// PerformedSwaps returns the number of swaps executed so far.
func (a *Accumulator) PerformedSwaps() uint32 { return a.performed }

// NextSwapAvailable returns the unix time at which the next swap may run.
func (a *Accumulator) NextSwapAvailable() int64 { return a.nextSwapAvailable }

// RegisterRate adds rate to every swap in [from, to) on the given side.
func (a *Accumulator) RegisterRate(side Side, from, to uint32, rate *uint256.Int) error {
	if err := a.checkRange(from, to); err != nil {
		return err
	}
	if rate.IsZero() {
		return nil
	}
	a.applyDelta(side, from, rate, false)
	a.applyDelta(side, to, rate, true)
	return nil
}

// DeregisterRate removes rate from every swap in [from, to) on the given
// side. It fails if any swap in the range would end up below zero.
func (a *Accumulator) DeregisterRate(side Side, from, to uint32, rate *uint256.Int) error {
	if err := a.checkRange(from, to); err != nil {
		return err
	}
	if rate.IsZero() {
		return nil
	}
	for n := from; n < to; n = a.nextChange(side, n, to) {
		if a.Query(side, n).Lt(rate) {
			return fmt.Errorf("%w: side %s swap %d", ErrRateUnderflow, side, n)
		}
	}
	a.applyDelta(side, from, rate, true)
	a.applyDelta(side, to, rate, false)
	return nil
}

// nextChange returns the next swap number after n, bounded by limit, at which
// the aggregate rate for side may change.
func (a *Accumulator) nextChange(side Side, n, limit uint32) uint32 {
	k, _ := a.deltas[side].Ceiling(n + 1)
	if k == nil || k.(uint32) > limit {
		return limit
	}
	return k.(uint32)
}

func (a *Accumulator) checkRange(from, to uint32) error {
	if from <= a.performed {
		return fmt.Errorf("%w: %d (performed %d)", ErrPastSwap, from, a.performed)
	}
	if to <= from {
		return fmt.Errorf("%w: [%d, %d)", ErrEmptyRange, from, to)
	}
	return nil
}

func (a *Accumulator) applyDelta(side Side, at uint32, rate *uint256.Int, subtract bool) {
	var d *delta
	if v, ok := a.deltas[side].Get(at); ok {
		d = v.(*delta)
	} else {
		d = &delta{add: new(uint256.Int), sub: new(uint256.Int)}
	}
	if subtract {
		d.sub.Add(d.sub, rate)
	} else {
		d.add.Add(d.add, rate)
	}
	d.normalize()
	if d.empty() {
		a.deltas[side].Remove(at)
		return
	}
	a.deltas[side].Put(at, d)
}

// Query returns the aggregate rate of side at swap n, as if every bucket up
// to n had been populated eagerly. Swaps at or before the last performed one
// report the rate that was swapped there last.
func (a *Accumulator) Query(side Side, n uint32) *uint256.Int {
	total := new(uint256.Int).Set(a.rate[side])
	if n <= a.performed {
		return total
	}
	it := a.deltas[side].Iterator()
	for it.Next() {
		k := it.Key().(uint32)
		if k <= a.performed {
			continue
		}
		if k > n {
			break
		}
		d := it.Value().(*delta)
		total.Add(total, d.add)
		if total.Lt(d.sub) {
			total.Clear()
			continue
		}
		total.Sub(total, d.sub)
	}
	return total
}

// AmountToSwap returns the rate that side contributes to the next swap.
func (a *Accumulator) AmountToSwap(side Side) *uint256.Int {
	return a.Query(side, a.performed+1)
}

// HasDemand reports whether the next swap has something to trade. Unless
// oneSided is set both sides need a positive rate.
func (a *Accumulator) HasDemand(oneSided bool) bool {
	amountA, amountB := a.AmountToSwap(SideA), a.AmountToSwap(SideB)
	if oneSided {
		return !amountA.IsZero() || !amountB.IsZero()
	}
	return !amountA.IsZero() && !amountB.IsZero()
}

// SecondsUntilNextSwap returns how long until the next swap may run at now.
// It is never negative.
func (a *Accumulator) SecondsUntilNextSwap(now int64) int64 {
	if now >= a.nextSwapAvailable {
		return 0
	}
	return a.nextSwapAvailable - now
}

// Ratio returns the cumulative per-unit ratio of side at swap n. Swaps
// without a checkpoint carry the nearest earlier one forward; before the
// first swap the ratio is zero.
func (a *Accumulator) Ratio(side Side, n uint32) *uint256.Int {
	_, v := a.ratios[side].Floor(n)
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v.(*uint256.Int))
}

// CommitSwap records swap number PerformedSwaps()+1. incA and incB are the
// per-unit ratios each side received, already net of fees. The next swap is
// scheduled on the interval boundary after now.
func (a *Accumulator) CommitSwap(incA, incB *uint256.Int, now int64) uint32 {
	n := a.performed + 1
	for s, inc := range [2]*uint256.Int{incA, incB} {
		side := Side(s)
		prev := a.Ratio(side, n-1)
		if !inc.IsZero() {
			a.ratios[side].Put(n, new(uint256.Int).Add(prev, inc))
		}
		a.rate[side] = a.Query(side, n)
		a.deltas[side].Remove(n)
	}
	a.performed = n
	a.nextSwapAvailable = (now/int64(a.interval) + 1) * int64(a.interval)
	return n
}
