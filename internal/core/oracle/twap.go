package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const defaultSampleCap = 256

// Observation is one reported spot price of base in quote.
type Observation struct {
	Price decimal.Decimal
	At    time.Time
}

// TWAP quotes the time-weighted average of observed prices over a trailing
// window. Each observation holds until the next one; the last observation
// before the window opens is carried into it.
type TWAP struct {
	mu        sync.RWMutex
	clock     Clock
	window    time.Duration
	sampleCap int
	decimals  map[common.Address]uint8
	history   map[pairKey][]Observation
}

// NewTWAP creates a TWAP oracle averaging over window.
func NewTWAP(clock Clock, window time.Duration) *TWAP {
	if clock == nil {
		clock = SystemClock
	}
	return &TWAP{
		clock:     clock,
		window:    window,
		sampleCap: defaultSampleCap,
		decimals:  make(map[common.Address]uint8),
		history:   make(map[pairKey][]Observation),
	}
}

// SetToken registers a token's precision.
func (o *TWAP) SetToken(token common.Address, decimals uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decimals[token] = decimals
}

// Observe records a spot price of base in quote. Observations older than the
// previous one for the same pair are dropped.
func (o *TWAP) Observe(base, quote common.Address, price decimal.Decimal, at time.Time) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	key := pairKey{base, quote}
	if _, ok := o.history[key]; !ok {
		if _, rev := o.history[pairKey{quote, base}]; rev {
			key = pairKey{quote, base}
			price = invert(price)
		}
	}
	obs := o.history[key]
	if n := len(obs); n > 0 && at.Before(obs[n-1].At) {
		return nil
	}
	obs = append(obs, Observation{Price: price, At: at})
	if len(obs) > o.sampleCap {
		obs = obs[len(obs)-o.sampleCap:]
	}
	o.history[key] = obs
	return nil
}

// Price returns the time-weighted average price of base in quote.
func (o *TWAP) Price(base, quote common.Address) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if obs, ok := o.history[pairKey{base, quote}]; ok {
		return o.average(obs)
	}
	if obs, ok := o.history[pairKey{quote, base}]; ok {
		avg, err := o.average(obs)
		if err != nil {
			return decimal.Zero, err
		}
		return invert(avg), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, base.Hex(), quote.Hex())
}

func (o *TWAP) average(obs []Observation) (decimal.Decimal, error) {
	now := o.clock.Now()
	start := now.Add(-o.window)

	// Find the last observation at or before start.
	first := 0
	for i, ob := range obs {
		if ob.At.After(start) {
			break
		}
		first = i
	}
	obs = obs[first:]
	if len(obs) == 0 || obs[0].At.After(now) {
		return decimal.Zero, ErrNoObservations
	}

	weighted := decimal.Zero
	var total time.Duration
	for i, ob := range obs {
		from := ob.At
		if from.Before(start) {
			from = start
		}
		to := now
		if i+1 < len(obs) {
			to = obs[i+1].At
		}
		if to.After(now) {
			to = now
		}
		if !to.After(from) {
			continue
		}
		d := to.Sub(from)
		weighted = weighted.Add(ob.Price.Mul(decimal.NewFromInt(int64(d))))
		total += d
	}
	if total == 0 {
		// All observations landed at now; use the latest spot.
		return obs[len(obs)-1].Price, nil
	}
	return weighted.DivRound(decimal.NewFromInt(int64(total)), 40), nil
}

func (o *TWAP) Quote(_ context.Context, tokenIn common.Address, amountIn *uint256.Int, tokenOut common.Address) (*uint256.Int, error) {
	o.mu.RLock()
	decIn, okIn := o.decimals[tokenIn]
	decOut, okOut := o.decimals[tokenOut]
	o.mu.RUnlock()
	if !okIn {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tokenIn.Hex())
	}
	if !okOut {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tokenOut.Hex())
	}
	price, err := o.Price(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return convert(amountIn, decIn, decOut, price)
}
