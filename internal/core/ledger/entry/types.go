package entry

import (
	"errors"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/governance"
	"github.com/LeJamon/goDCA/internal/core/schedule"
)

var (
	ErrMissingAddress = errors.New("entry address is zero")
	ErrNilAmount      = errors.New("entry amount is nil")
	ErrSameTokens     = errors.New("pair tokens must differ")
	ErrUnsortedTokens = errors.New("pair tokens must be sorted")
)

// Parameters holds the governed protocol parameters.
type Parameters struct {
	Governance       governance.State `codec:"governance" json:"governance"`
	FeeRecipient     common.Address   `codec:"feeRecipient" json:"feeRecipient"`
	SwapFee          uint32           `codec:"swapFee" json:"swapFee"`
	LoanFee          uint32           `codec:"loanFee" json:"loanFee"`
	AllowedIntervals []uint32         `codec:"intervals" json:"allowedIntervals"`
	Paused           bool             `codec:"paused" json:"paused"`
}

func (p *Parameters) Type() Type { return TypeParameters }

func (p *Parameters) Validate() error {
	if p.Governance.Governor == (common.Address{}) || p.FeeRecipient == (common.Address{}) {
		return ErrMissingAddress
	}
	return nil
}

// IsIntervalAllowed reports whether deposits may use interval.
func (p *Parameters) IsIntervalAllowed(interval uint32) bool {
	return slices.Contains(p.AllowedIntervals, interval)
}

// Token describes a token known to the ledger.
type Token struct {
	Address  common.Address `codec:"address" json:"address"`
	Symbol   string         `codec:"symbol" json:"symbol"`
	Decimals uint8          `codec:"decimals" json:"decimals"`
}

func (t *Token) Type() Type { return TypeToken }

func (t *Token) Validate() error {
	if t.Address == (common.Address{}) {
		return ErrMissingAddress
	}
	return nil
}

// Balance is the amount of one token held by one account.
type Balance struct {
	Token  common.Address `codec:"token" json:"token"`
	Holder common.Address `codec:"holder" json:"holder"`
	Amount *uint256.Int   `codec:"amount" json:"amount"`
}

func (b *Balance) Type() Type { return TypeBalance }

func (b *Balance) Validate() error {
	if b.Amount == nil {
		return ErrNilAmount
	}
	return nil
}

// Pair is the root entry of a DCA pair. BalanceA and BalanceB are the
// amounts the pair owes to positions; anything the pair holds above them is
// idle and may be lent.
type Pair struct {
	Address        common.Address `codec:"address" json:"address"`
	TokenA         common.Address `codec:"tokenA" json:"tokenA"`
	TokenB         common.Address `codec:"tokenB" json:"tokenB"`
	DecimalsA      uint8          `codec:"decimalsA" json:"decimalsA"`
	DecimalsB      uint8          `codec:"decimalsB" json:"decimalsB"`
	NextPositionID uint64         `codec:"nextId" json:"nextPositionId"`
	BalanceA       *uint256.Int   `codec:"balanceA" json:"balanceA"`
	BalanceB       *uint256.Int   `codec:"balanceB" json:"balanceB"`
	Intervals      []uint32       `codec:"intervals" json:"intervals"`
}

func (p *Pair) Type() Type { return TypePair }

func (p *Pair) Validate() error {
	if p.Address == (common.Address{}) {
		return ErrMissingAddress
	}
	if p.TokenA == p.TokenB {
		return ErrSameTokens
	}
	if p.TokenA.Cmp(p.TokenB) > 0 {
		return ErrUnsortedTokens
	}
	if p.BalanceA == nil || p.BalanceB == nil {
		return ErrNilAmount
	}
	return nil
}

// AddInterval records that interval has a schedule. It reports whether the
// interval was new.
func (p *Pair) AddInterval(interval uint32) bool {
	i, found := slices.BinarySearch(p.Intervals, interval)
	if found {
		return false
	}
	p.Intervals = slices.Insert(p.Intervals, i, interval)
	return true
}

// Schedule is the swap accumulator of one interval of one pair.
type Schedule struct {
	Pair  common.Address `codec:"pair" json:"pair"`
	State schedule.State `codec:"state" json:"state"`
}

func (s *Schedule) Type() Type { return TypeSchedule }

func (s *Schedule) Validate() error {
	if s.Pair == (common.Address{}) {
		return ErrMissingAddress
	}
	return nil
}

// Position is a user's DCA commitment on one side of a pair.
type Position struct {
	ID                    uint64         `codec:"id" json:"id"`
	Pair                  common.Address `codec:"pair" json:"pair"`
	Owner                 common.Address `codec:"owner" json:"owner"`
	From                  common.Address `codec:"from" json:"from"`
	To                    common.Address `codec:"to" json:"to"`
	Interval              uint32         `codec:"interval" json:"interval"`
	Rate                  *uint256.Int   `codec:"rate" json:"rate"`
	StartSwap             uint32         `codec:"start" json:"startSwap"`
	LastSwap              uint32         `codec:"last" json:"lastSwap"`
	LastWithdrawSwap      uint32         `codec:"lastWithdraw" json:"lastWithdrawSwap"`
	SwappedBeforeModified *uint256.Int   `codec:"swappedBefore" json:"swappedBeforeModified"`
	Terminated            bool           `codec:"terminated" json:"terminated"`
}

func (p *Position) Type() Type { return TypePosition }

func (p *Position) Validate() error {
	if p.Owner == (common.Address{}) || p.Pair == (common.Address{}) {
		return ErrMissingAddress
	}
	if p.Rate == nil || p.SwappedBeforeModified == nil {
		return ErrNilAmount
	}
	return nil
}

// SwapsRemaining returns the swaps left after performed swaps have run.
func (p *Position) SwapsRemaining(performed uint32) uint32 {
	if performed >= p.LastSwap {
		return 0
	}
	if performed < p.StartSwap-1 {
		return p.LastSwap - p.StartSwap + 1
	}
	return p.LastSwap - performed
}

// Pool is a constant-product liquidity pool of the simulation market.
type Pool struct {
	Address  common.Address `codec:"address" json:"address"`
	TokenA   common.Address `codec:"tokenA" json:"tokenA"`
	TokenB   common.Address `codec:"tokenB" json:"tokenB"`
	ReserveA *uint256.Int   `codec:"reserveA" json:"reserveA"`
	ReserveB *uint256.Int   `codec:"reserveB" json:"reserveB"`
	FeeBps   uint32         `codec:"feeBps" json:"feeBps"`
}

func (p *Pool) Type() Type { return TypePool }

func (p *Pool) Validate() error {
	if p.Address == (common.Address{}) {
		return ErrMissingAddress
	}
	if p.ReserveA == nil || p.ReserveB == nil {
		return ErrNilAmount
	}
	return nil
}
