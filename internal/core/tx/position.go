package tx

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/schedule"
)

// PositionInfo is a position together with the amounts it can claim.
type PositionInfo struct {
	entry.Position
	// Swapped is the amount of To the owner can withdraw now
	Swapped *uint256.Int `json:"swapped"`
	// Unswapped is the amount of From still waiting to be swapped
	Unswapped      *uint256.Int `json:"unswapped"`
	SwapsExecuted  uint32       `json:"swapsExecuted"`
	SwapsRemaining uint32       `json:"swapsRemaining"`
}

// positionState is a loaded position with the pair and accumulator it
// lives in.
type positionState struct {
	pair *entry.Pair
	pos  *entry.Position
	acc  *schedule.Accumulator
	side schedule.Side
}

func loadPosition(v ledger.View, pairAddr common.Address, id uint64) (*positionState, error) {
	pair, err := loadPair(v, pairAddr)
	if err != nil {
		return nil, err
	}
	var pos entry.Position
	found, err := ledger.Get(v, keylet.Position(pairAddr, id), &pos)
	if err != nil {
		return nil, Wrap(Internal, err, "read position")
	}
	if !found || pos.Terminated {
		return nil, Errorf(PositionNotFound, "position %d of pair %s", id, pairAddr)
	}
	side, ok := sideOf(pair, pos.From)
	if !ok {
		return nil, Errorf(Internal, "position %d sells a token outside its pair", id)
	}
	acc, err := loadSchedule(v, pairAddr, pos.Interval)
	if err != nil {
		return nil, err
	}
	return &positionState{pair: pair, pos: &pos, acc: acc, side: side}, nil
}

// loadOwnedPosition loads a position and checks the caller owns it.
func loadOwnedPosition(ctx *ApplyContext, pairAddr common.Address, id uint64) (*positionState, error) {
	ps, err := loadPosition(ctx.View, pairAddr, id)
	if err != nil {
		return nil, err
	}
	if ps.pos.Owner != ctx.Caller {
		return nil, Errorf(Unauthorized, "position %d is owned by %s", id, ps.pos.Owner)
	}
	return ps, nil
}

func (ps *positionState) save(v ledger.View) error {
	if err := ledger.Put(v, keylet.Position(ps.pair.Address, ps.pos.ID), ps.pos); err != nil {
		return Wrap(Internal, err, "write position")
	}
	return nil
}

// lastSwap is the last swap the position took part in so far.
func (ps *positionState) lastSwap() uint32 {
	return min(ps.acc.PerformedSwaps(), ps.pos.LastSwap)
}

func (ps *positionState) remaining() uint32 {
	return ps.pos.SwapsRemaining(ps.acc.PerformedSwaps())
}

// swapped returns the amount of To the position earned since its last
// withdrawal, rounded down.
func (ps *positionState) swapped() (*uint256.Int, error) {
	total := new(uint256.Int).Set(amount.OrZero(ps.pos.SwappedBeforeModified))
	last := ps.lastSwap()
	if last <= ps.pos.LastWithdrawSwap {
		return total, nil
	}
	diff, err := amount.Sub(ps.acc.Ratio(ps.side, last), ps.acc.Ratio(ps.side, ps.pos.LastWithdrawSwap))
	if err != nil {
		return nil, Wrap(Internal, err, "ratio went backwards")
	}
	earned, err := amount.MulDiv(ps.pos.Rate, diff, amount.Magnitude(decimalsOf(ps.pair, ps.side)))
	if err != nil {
		return nil, Wrap(Internal, err, "swapped amount")
	}
	return total.Add(total, earned), nil
}

func (ps *positionState) unswapped() *uint256.Int {
	return new(uint256.Int).Mul(ps.pos.Rate, uint256.NewInt(uint64(ps.remaining())))
}

func (ps *positionState) info() (*PositionInfo, error) {
	swapped, err := ps.swapped()
	if err != nil {
		return nil, err
	}
	executed := uint32(0)
	if last := ps.lastSwap(); last >= ps.pos.StartSwap {
		executed = last - ps.pos.StartSwap + 1
	}
	return &PositionInfo{
		Position:       *ps.pos,
		Swapped:        swapped,
		Unswapped:      ps.unswapped(),
		SwapsExecuted:  executed,
		SwapsRemaining: ps.remaining(),
	}, nil
}

// adjustPairBalance adds or removes value from the internal balance of one
// side of the pair.
func adjustPairBalance(p *entry.Pair, side schedule.Side, value *uint256.Int, add bool) error {
	bal := &p.BalanceA
	if side == schedule.SideB {
		bal = &p.BalanceB
	}
	var (
		next *uint256.Int
		err  error
	)
	if add {
		next, err = amount.Add(*bal, value)
	} else {
		next, err = amount.Sub(*bal, value)
	}
	if err != nil {
		return Wrap(Internal, err, "pair balance")
	}
	*bal = next
	return nil
}

// payOut sends value of one side's token from the pair to recipient.
func payOut(ctx *ApplyContext, p *entry.Pair, side schedule.Side, recipient common.Address, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	if err := adjustPairBalance(p, side, value, false); err != nil {
		return err
	}
	return ctx.Move(tokenOf(p, side), p.Address, recipient, value)
}

// pullIn takes value of one side's token from the caller into the pair.
func pullIn(ctx *ApplyContext, p *entry.Pair, side schedule.Side, value *uint256.Int) error {
	if value.IsZero() {
		return nil
	}
	if err := ctx.Transfer(tokenOf(p, side), p.Address, value); err != nil {
		return err
	}
	return adjustPairBalance(p, side, value, true)
}

func (ps *positionState) commit(v ledger.View) error {
	if err := ps.save(v); err != nil {
		return err
	}
	if err := saveSchedule(v, ps.pair.Address, ps.acc); err != nil {
		return err
	}
	return savePair(v, ps.pair)
}

// Deposit opens a position selling Rate of From at each of the next Swaps
// swaps of Interval.
type Deposit struct {
	Pair     common.Address `json:"pair"`
	From     common.Address `json:"from"`
	Rate     *uint256.Int   `json:"rate"`
	Swaps    uint32         `json:"swaps"`
	Interval uint32         `json:"interval"`
}

func (t *Deposit) TxType() Type                { return TypeDeposit }
func (t *Deposit) PairAddress() common.Address { return t.Pair }

func (t *Deposit) Validate() error {
	if t.Pair == (common.Address{}) || t.From == (common.Address{}) {
		return Errorf(ZeroAddress, "deposit pair and token")
	}
	if t.Rate == nil || t.Rate.IsZero() || t.Swaps == 0 {
		return Errorf(InvalidAmount, "rate and swaps must be positive")
	}
	if t.Interval == 0 {
		return Errorf(InvalidInterval, "interval must be positive")
	}
	return nil
}

func (t *Deposit) Apply(ctx *ApplyContext) error {
	pair, err := loadPair(ctx.View, t.Pair)
	if err != nil {
		return err
	}
	side, ok := sideOf(pair, t.From)
	if !ok {
		return Errorf(InvalidToken, "%s is not traded by pair %s", t.From, t.Pair)
	}
	params, err := ctx.Parameters()
	if err != nil {
		return err
	}
	if !params.IsIntervalAllowed(t.Interval) {
		return Errorf(InvalidInterval, "interval %d is not allowed", t.Interval)
	}
	if params.Paused {
		return Errorf(Paused, "protocol is paused")
	}

	total, err := amount.Mul(t.Rate, uint256.NewInt(uint64(t.Swaps)))
	if err != nil {
		return Wrap(InvalidAmount, err, "rate times swaps")
	}
	acc, err := loadSchedule(ctx.View, t.Pair, t.Interval)
	if err != nil {
		return err
	}
	performed := acc.PerformedSwaps()
	if uint64(performed)+uint64(t.Swaps)+1 > math.MaxUint32 {
		return Errorf(InvalidAmount, "too many swaps")
	}
	first, last := performed+1, performed+t.Swaps
	if err := acc.RegisterRate(side, first, last+1, t.Rate); err != nil {
		return Wrap(Internal, err, "register rate")
	}
	if err := pullIn(ctx, pair, side, total); err != nil {
		return err
	}

	pos := &entry.Position{
		ID:                    pair.NextPositionID,
		Pair:                  pair.Address,
		Owner:                 ctx.Caller,
		From:                  t.From,
		To:                    tokenOf(pair, side.Other()),
		Interval:              t.Interval,
		Rate:                  t.Rate,
		StartSwap:             first,
		LastSwap:              last,
		LastWithdrawSwap:      performed,
		SwappedBeforeModified: amount.Zero(),
	}
	pair.NextPositionID++
	pair.AddInterval(t.Interval)

	ps := &positionState{pair: pair, pos: pos, acc: acc, side: side}
	if err := ps.commit(ctx.View); err != nil {
		return err
	}
	ctx.SetOutput(pos.ID)
	ctx.Emit(EventDeposited, pair.Address, &DepositedEvent{
		PositionID: pos.ID,
		Owner:      pos.Owner,
		From:       pos.From,
		To:         pos.To,
		Interval:   pos.Interval,
		Rate:       pos.Rate,
		StartSwap:  pos.StartSwap,
		LastSwap:   pos.LastSwap,
	})
	return nil
}

// WithdrawSwapped sends what a position has earned so far to Recipient.
type WithdrawSwapped struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	Recipient  common.Address `json:"recipient"`
}

func (t *WithdrawSwapped) TxType() Type                { return TypeWithdrawSwapped }
func (t *WithdrawSwapped) PairAddress() common.Address { return t.Pair }

func (t *WithdrawSwapped) Validate() error {
	if t.Pair == (common.Address{}) || t.Recipient == (common.Address{}) {
		return Errorf(ZeroAddress, "withdraw pair and recipient")
	}
	return nil
}

func (t *WithdrawSwapped) Apply(ctx *ApplyContext) error {
	ps, err := loadOwnedPosition(ctx, t.Pair, t.PositionID)
	if err != nil {
		return err
	}
	swapped, err := ps.swapped()
	if err != nil {
		return err
	}
	if swapped.IsZero() {
		return Errorf(NoSwappedAmount, "position %d", t.PositionID)
	}
	ps.pos.LastWithdrawSwap = ps.lastSwap()
	ps.pos.SwappedBeforeModified = amount.Zero()
	if err := payOut(ctx, ps.pair, ps.side.Other(), t.Recipient, swapped); err != nil {
		return err
	}
	if err := ps.save(ctx.View); err != nil {
		return err
	}
	if err := savePair(ctx.View, ps.pair); err != nil {
		return err
	}
	ctx.SetOutput(swapped)
	ctx.Emit(EventWithdrew, t.Pair, &WithdrewEvent{
		PositionID:       t.PositionID,
		Recipient:        t.Recipient,
		Token:            ps.pos.To,
		Amount:           swapped,
		LastWithdrawSwap: ps.pos.LastWithdrawSwap,
	})
	return nil
}

// WithdrawSwappedMany withdraws from several positions of one pair with at
// most one transfer per token. Positions with nothing to withdraw are
// skipped.
type WithdrawSwappedMany struct {
	Pair        common.Address `json:"pair"`
	PositionIDs []uint64       `json:"positionIds"`
	Recipient   common.Address `json:"recipient"`
}

func (t *WithdrawSwappedMany) TxType() Type                { return TypeWithdrawSwappedMany }
func (t *WithdrawSwappedMany) PairAddress() common.Address { return t.Pair }

func (t *WithdrawSwappedMany) Validate() error {
	if t.Pair == (common.Address{}) || t.Recipient == (common.Address{}) {
		return Errorf(ZeroAddress, "withdraw pair and recipient")
	}
	if len(t.PositionIDs) == 0 {
		return Errorf(Malformed, "no positions")
	}
	return nil
}

func (t *WithdrawSwappedMany) Apply(ctx *ApplyContext) error {
	totals := [2]*uint256.Int{amount.Zero(), amount.Zero()}
	var pair *entry.Pair
	for _, id := range t.PositionIDs {
		ps, err := loadOwnedPosition(ctx, t.Pair, id)
		if err != nil {
			return err
		}
		pair = ps.pair
		swapped, err := ps.swapped()
		if err != nil {
			return err
		}
		if swapped.IsZero() {
			continue
		}
		ps.pos.LastWithdrawSwap = ps.lastSwap()
		ps.pos.SwappedBeforeModified = amount.Zero()
		if err := ps.save(ctx.View); err != nil {
			return err
		}
		to := ps.side.Other()
		totals[to].Add(totals[to], swapped)
	}
	if totals[schedule.SideA].IsZero() && totals[schedule.SideB].IsZero() {
		return Errorf(NoSwappedAmount, "positions %v", t.PositionIDs)
	}
	for _, side := range []schedule.Side{schedule.SideA, schedule.SideB} {
		if err := payOut(ctx, pair, side, t.Recipient, totals[side]); err != nil {
			return err
		}
	}
	if err := savePair(ctx.View, pair); err != nil {
		return err
	}
	ctx.Emit(EventWithdrewMany, t.Pair, &WithdrewManyEvent{
		PositionIDs: t.PositionIDs,
		Recipient:   t.Recipient,
		AmountA:     totals[schedule.SideA],
		AmountB:     totals[schedule.SideB],
	})
	return nil
}

// reschedule replaces the future of a position. plan receives the
// unswapped principal and remaining swaps and returns the new rate and swap
// count. Earned amounts are kept in SwappedBeforeModified and the principal
// difference is settled with the owner.
func reschedule(ctx *ApplyContext, pairAddr common.Address, id uint64,
	plan func(unswapped *uint256.Int, remaining uint32) (*uint256.Int, uint32, error),
) error {
	ps, err := loadOwnedPosition(ctx, pairAddr, id)
	if err != nil {
		return err
	}
	remaining := ps.remaining()
	if remaining == 0 {
		return Errorf(PositionCompleted, "position %d", id)
	}
	unswapped := ps.unswapped()
	newRate, newSwaps, err := plan(unswapped, remaining)
	if err != nil {
		return err
	}
	if newRate == nil || newRate.IsZero() {
		return Errorf(ZeroRate, "use Terminate to close a position")
	}
	newTotal, err := amount.Mul(newRate, uint256.NewInt(uint64(newSwaps)))
	if err != nil {
		return Wrap(InvalidAmount, err, "rate times swaps")
	}

	swapped, err := ps.swapped()
	if err != nil {
		return err
	}
	performed := ps.acc.PerformedSwaps()
	if uint64(performed)+uint64(newSwaps)+1 > math.MaxUint32 {
		return Errorf(InvalidAmount, "too many swaps")
	}
	if err := ps.acc.DeregisterRate(ps.side, performed+1, ps.pos.LastSwap+1, ps.pos.Rate); err != nil {
		return Wrap(Internal, err, "deregister rate")
	}
	if newSwaps > 0 {
		if err := ps.acc.RegisterRate(ps.side, performed+1, performed+newSwaps+1, newRate); err != nil {
			return Wrap(Internal, err, "register rate")
		}
	}
	ps.pos.SwappedBeforeModified = swapped
	ps.pos.Rate = newRate
	ps.pos.StartSwap = performed + 1
	ps.pos.LastSwap = performed + newSwaps
	ps.pos.LastWithdrawSwap = performed

	pulled, returned := amount.Zero(), amount.Zero()
	if newTotal.Gt(unswapped) {
		pulled.Sub(newTotal, unswapped)
		if err := pullIn(ctx, ps.pair, ps.side, pulled); err != nil {
			return err
		}
	} else {
		returned.Sub(unswapped, newTotal)
		if err := payOut(ctx, ps.pair, ps.side, ctx.Caller, returned); err != nil {
			return err
		}
	}
	if err := ps.commit(ctx.View); err != nil {
		return err
	}
	ctx.Emit(EventModified, pairAddr, &ModifiedEvent{
		PositionID:            id,
		Rate:                  ps.pos.Rate,
		StartSwap:             ps.pos.StartSwap,
		LastSwap:              ps.pos.LastSwap,
		SwappedBeforeModified: swapped,
		Pulled:                pulled,
		Returned:              returned,
	})
	return nil
}

// ModifyRate changes the rate of a position and keeps its remaining swaps.
type ModifyRate struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	NewRate    *uint256.Int   `json:"newRate"`
}

func (t *ModifyRate) TxType() Type                { return TypeModifyRate }
func (t *ModifyRate) PairAddress() common.Address { return t.Pair }

func (t *ModifyRate) Validate() error {
	if t.Pair == (common.Address{}) {
		return Errorf(ZeroAddress, "pair")
	}
	if t.NewRate == nil || t.NewRate.IsZero() {
		return Errorf(ZeroRate, "use Terminate to close a position")
	}
	return nil
}

func (t *ModifyRate) Apply(ctx *ApplyContext) error {
	return reschedule(ctx, t.Pair, t.PositionID, func(_ *uint256.Int, remaining uint32) (*uint256.Int, uint32, error) {
		return t.NewRate, remaining, nil
	})
}

// ModifySwaps changes the remaining swaps of a position and keeps its rate.
// Zero swaps returns the principal and leaves the earnings withdrawable.
type ModifySwaps struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	NewSwaps   uint32         `json:"newSwaps"`
}

func (t *ModifySwaps) TxType() Type                { return TypeModifySwaps }
func (t *ModifySwaps) PairAddress() common.Address { return t.Pair }

func (t *ModifySwaps) Validate() error {
	if t.Pair == (common.Address{}) {
		return Errorf(ZeroAddress, "pair")
	}
	return nil
}

func (t *ModifySwaps) Apply(ctx *ApplyContext) error {
	return reschedule(ctx, t.Pair, t.PositionID, func(unswapped *uint256.Int, remaining uint32) (*uint256.Int, uint32, error) {
		rate := new(uint256.Int).Div(unswapped, uint256.NewInt(uint64(remaining)))
		return rate, t.NewSwaps, nil
	})
}

// ModifyRateAndSwaps replaces both the rate and the remaining swaps.
type ModifyRateAndSwaps struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	NewRate    *uint256.Int   `json:"newRate"`
	NewSwaps   uint32         `json:"newSwaps"`
}

func (t *ModifyRateAndSwaps) TxType() Type                { return TypeModifyRateAndSwaps }
func (t *ModifyRateAndSwaps) PairAddress() common.Address { return t.Pair }

func (t *ModifyRateAndSwaps) Validate() error {
	if t.Pair == (common.Address{}) {
		return Errorf(ZeroAddress, "pair")
	}
	if t.NewRate == nil || t.NewRate.IsZero() {
		return Errorf(ZeroRate, "use Terminate to close a position")
	}
	return nil
}

func (t *ModifyRateAndSwaps) Apply(ctx *ApplyContext) error {
	return reschedule(ctx, t.Pair, t.PositionID, func(*uint256.Int, uint32) (*uint256.Int, uint32, error) {
		return t.NewRate, t.NewSwaps, nil
	})
}

// AddFunds tops up a position and spreads the principal over NewSwaps
// swaps. What does not divide evenly is returned to the owner.
type AddFunds struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	Amount     *uint256.Int   `json:"amount"`
	NewSwaps   uint32         `json:"newSwaps"`
}

func (t *AddFunds) TxType() Type                { return TypeAddFunds }
func (t *AddFunds) PairAddress() common.Address { return t.Pair }

func (t *AddFunds) Validate() error {
	if t.Pair == (common.Address{}) {
		return Errorf(ZeroAddress, "pair")
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return Errorf(InvalidAmount, "amount must be positive")
	}
	if t.NewSwaps == 0 {
		return Errorf(InvalidAmount, "swaps must be positive")
	}
	return nil
}

func (t *AddFunds) Apply(ctx *ApplyContext) error {
	return reschedule(ctx, t.Pair, t.PositionID, func(unswapped *uint256.Int, _ uint32) (*uint256.Int, uint32, error) {
		total, err := amount.Add(unswapped, t.Amount)
		if err != nil {
			return nil, 0, Wrap(InvalidAmount, err, "add funds")
		}
		return total.Div(total, uint256.NewInt(uint64(t.NewSwaps))), t.NewSwaps, nil
	})
}

// Terminate closes a position and sends both its earnings and its unswapped
// principal to Recipient.
type Terminate struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
	Recipient  common.Address `json:"recipient"`
}

func (t *Terminate) TxType() Type                { return TypeTerminate }
func (t *Terminate) PairAddress() common.Address { return t.Pair }

func (t *Terminate) Validate() error {
	if t.Pair == (common.Address{}) || t.Recipient == (common.Address{}) {
		return Errorf(ZeroAddress, "terminate pair and recipient")
	}
	return nil
}

func (t *Terminate) Apply(ctx *ApplyContext) error {
	ps, err := loadOwnedPosition(ctx, t.Pair, t.PositionID)
	if err != nil {
		return err
	}
	swapped, err := ps.swapped()
	if err != nil {
		return err
	}
	unswapped := ps.unswapped()
	performed := ps.acc.PerformedSwaps()
	if ps.remaining() > 0 {
		if err := ps.acc.DeregisterRate(ps.side, performed+1, ps.pos.LastSwap+1, ps.pos.Rate); err != nil {
			return Wrap(Internal, err, "deregister rate")
		}
	}
	if err := payOut(ctx, ps.pair, ps.side.Other(), t.Recipient, swapped); err != nil {
		return err
	}
	if err := payOut(ctx, ps.pair, ps.side, t.Recipient, unswapped); err != nil {
		return err
	}
	ps.pos.Terminated = true
	ps.pos.LastSwap = ps.lastSwap()
	ps.pos.LastWithdrawSwap = ps.pos.LastSwap
	ps.pos.SwappedBeforeModified = amount.Zero()
	if err := ps.commit(ctx.View); err != nil {
		return err
	}
	ctx.SetOutput(&TerminatedEvent{
		PositionID: t.PositionID,
		Recipient:  t.Recipient,
		Swapped:    swapped,
		Unswapped:  unswapped,
	})
	ctx.Emit(EventTerminated, t.Pair, &TerminatedEvent{
		PositionID: t.PositionID,
		Recipient:  t.Recipient,
		Swapped:    swapped,
		Unswapped:  unswapped,
	})
	return nil
}
