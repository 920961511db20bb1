package schedule

import (
	"github.com/holiman/uint256"
)

// DeltaPoint is a serialized rate change.
type DeltaPoint struct {
	Swap uint32       `codec:"swap" json:"swap"`
	Add  *uint256.Int `codec:"add" json:"add"`
	Sub  *uint256.Int `codec:"sub" json:"sub"`
}

// RatioPoint is a serialized ratio checkpoint.
type RatioPoint struct {
	Swap  uint32       `codec:"swap" json:"swap"`
	Ratio *uint256.Int `codec:"ratio" json:"ratio"`
}

// State is the persisted form of an Accumulator. Points are sorted by swap
// number.
type State struct {
	Interval          uint32          `codec:"interval" json:"interval"`
	PerformedSwaps    uint32          `codec:"performed" json:"performedSwaps"`
	NextSwapAvailable int64           `codec:"next" json:"nextSwapAvailable"`
	Rate              [2]*uint256.Int `codec:"rate" json:"rate"`
	Deltas            [2][]DeltaPoint `codec:"deltas" json:"deltas"`
	Ratios            [2][]RatioPoint `codec:"ratios" json:"ratios"`
}

// State returns a snapshot of the accumulator.
func (a *Accumulator) State() State {
	st := State{
		Interval:          a.interval,
		PerformedSwaps:    a.performed,
		NextSwapAvailable: a.nextSwapAvailable,
	}
	for s := range a.rate {
		st.Rate[s] = new(uint256.Int).Set(a.rate[s])

		it := a.deltas[s].Iterator()
		for it.Next() {
			d := it.Value().(*delta)
			st.Deltas[s] = append(st.Deltas[s], DeltaPoint{
				Swap: it.Key().(uint32),
				Add:  new(uint256.Int).Set(d.add),
				Sub:  new(uint256.Int).Set(d.sub),
			})
		}

		rit := a.ratios[s].Iterator()
		for rit.Next() {
			st.Ratios[s] = append(st.Ratios[s], RatioPoint{
				Swap:  rit.Key().(uint32),
				Ratio: new(uint256.Int).Set(rit.Value().(*uint256.Int)),
			})
		}
	}
	return st
}

// FromState rebuilds an accumulator from a snapshot.
func FromState(st State) (*Accumulator, error) {
	a, err := New(st.Interval)
	if err != nil {
		return nil, err
	}
	a.performed = st.PerformedSwaps
	a.nextSwapAvailable = st.NextSwapAvailable
	for s := range a.rate {
		if st.Rate[s] != nil {
			a.rate[s].Set(st.Rate[s])
		}
		for _, p := range st.Deltas[s] {
			d := &delta{add: orZero(p.Add), sub: orZero(p.Sub)}
			d.normalize()
			if !d.empty() {
				a.deltas[s].Put(p.Swap, d)
			}
		}
		for _, p := range st.Ratios[s] {
			a.ratios[s].Put(p.Swap, orZero(p.Ratio))
		}
	}
	return a, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
