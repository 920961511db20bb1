package tx

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/schedule"
)

func loadPair(v ledger.View, addr common.Address) (*entry.Pair, error) {
	var p entry.Pair
	found, err := ledger.Get(v, keylet.Pair(addr), &p)
	if err != nil {
		return nil, Wrap(Internal, err, "read pair")
	}
	if !found {
		return nil, Errorf(PairNotFound, "pair %s", addr)
	}
	return &p, nil
}

func savePair(v ledger.View, p *entry.Pair) error {
	if err := ledger.Put(v, keylet.Pair(p.Address), p); err != nil {
		return Wrap(Internal, err, "write pair")
	}
	return nil
}

// loadSchedule returns the accumulator of one interval of a pair. An
// interval nobody deposited into yet gets an empty accumulator.
func loadSchedule(v ledger.View, pair common.Address, interval uint32) (*schedule.Accumulator, error) {
	var s entry.Schedule
	found, err := ledger.Get(v, keylet.Schedule(pair, interval), &s)
	if err != nil {
		return nil, Wrap(Internal, err, "read schedule")
	}
	if !found {
		acc, err := schedule.New(interval)
		if err != nil {
			return nil, Wrap(InvalidInterval, err, "")
		}
		return acc, nil
	}
	acc, err := schedule.FromState(s.State)
	if err != nil {
		return nil, Wrap(Internal, err, "decode schedule")
	}
	return acc, nil
}

func saveSchedule(v ledger.View, pair common.Address, acc *schedule.Accumulator) error {
	s := &entry.Schedule{Pair: pair, State: acc.State()}
	if err := ledger.Put(v, keylet.Schedule(pair, acc.Interval()), s); err != nil {
		return Wrap(Internal, err, "write schedule")
	}
	return nil
}

// sideOf returns the side a position selling token sits on.
func sideOf(p *entry.Pair, token common.Address) (schedule.Side, bool) {
	switch token {
	case p.TokenA:
		return schedule.SideA, true
	case p.TokenB:
		return schedule.SideB, true
	default:
		return 0, false
	}
}

func tokenOf(p *entry.Pair, side schedule.Side) common.Address {
	if side == schedule.SideA {
		return p.TokenA
	}
	return p.TokenB
}

func decimalsOf(p *entry.Pair, side schedule.Side) uint8 {
	if side == schedule.SideA {
		return p.DecimalsA
	}
	return p.DecimalsB
}

func createPair(v ledger.View, tokenA, tokenB common.Address) (*entry.Pair, error) {
	if tokenA == tokenB {
		return nil, Errorf(InvalidPair, "tokens must differ")
	}
	a, b := keylet.SortTokens(tokenA, tokenB)
	tokA, err := loadToken(v, a)
	if err != nil {
		return nil, err
	}
	tokB, err := loadToken(v, b)
	if err != nil {
		return nil, err
	}
	addr := keylet.PairAddress(a, b)
	exists, err := v.Exists(keylet.Pair(addr))
	if err != nil {
		return nil, Wrap(Internal, err, "read pair")
	}
	if exists {
		return nil, Errorf(PairExists, "pair %s", addr)
	}
	p := &entry.Pair{
		Address:        addr,
		TokenA:         a,
		TokenB:         b,
		DecimalsA:      tokA.Decimals,
		DecimalsB:      tokB.Decimals,
		NextPositionID: 1,
		BalanceA:       amount.Zero(),
		BalanceB:       amount.Zero(),
	}
	if err := savePair(v, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePair creates the DCA pair trading two registered tokens. Anyone may
// create a pair; its address is derived from the sorted tokens.
type CreatePair struct {
	TokenA common.Address `json:"tokenA"`
	TokenB common.Address `json:"tokenB"`
}

func (t *CreatePair) TxType() Type { return TypeCreatePair }

func (t *CreatePair) Validate() error {
	if t.TokenA == (common.Address{}) || t.TokenB == (common.Address{}) {
		return Errorf(ZeroAddress, "pair token")
	}
	if t.TokenA == t.TokenB {
		return Errorf(InvalidPair, "tokens must differ")
	}
	return nil
}

func (t *CreatePair) Apply(ctx *ApplyContext) error {
	p, err := createPair(ctx.View, t.TokenA, t.TokenB)
	if err != nil {
		return err
	}
	ctx.SetOutput(p.Address)
	ctx.Emit(EventPairCreated, p.Address, &PairCreatedEvent{TokenA: p.TokenA, TokenB: p.TokenB})
	return nil
}
