package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventType names a notification published after a transaction commits.
type EventType string

const (
	EventTokenCreated            EventType = "TokenCreated"
	EventMinted                  EventType = "Minted"
	EventTransferred             EventType = "Transferred"
	EventPairCreated             EventType = "PairCreated"
	EventDeposited               EventType = "Deposited"
	EventWithdrew                EventType = "Withdrew"
	EventWithdrewMany            EventType = "WithdrewMany"
	EventModified                EventType = "Modified"
	EventTerminated              EventType = "Terminated"
	EventSwapped                 EventType = "Swapped"
	EventLoaned                  EventType = "Loaned"
	EventPendingGovernorSet      EventType = "PendingGovernorSet"
	EventPendingGovernorAccepted EventType = "PendingGovernorAccepted"
	EventFeeRecipientSet         EventType = "FeeRecipientSet"
	EventSwapFeeSet              EventType = "SwapFeeSet"
	EventLoanFeeSet              EventType = "LoanFeeSet"
	EventSwapIntervalsAllowed    EventType = "SwapIntervalsAllowed"
	EventSwapIntervalsForbidden  EventType = "SwapIntervalsForbidden"
	EventPaused                  EventType = "Paused"
	EventUnpaused                EventType = "Unpaused"
	EventWatchingNewPairs        EventType = "WatchingNewPairs"
	EventStoppedWatchingPairs    EventType = "StoppedWatchingPairs"
)

// Event is a notification with a typed payload. Payloads carry post-state
// values so an observer can follow state without reading the ledger.
type Event struct {
	Type EventType `json:"type"`
	// Sequence is the engine sequence of the transaction that emitted it
	Sequence uint64         `json:"sequence"`
	Time     int64          `json:"time"`
	Pair     common.Address `json:"pair,omitempty"`
	Data     any            `json:"data"`
}

// EventSink receives committed events in order.
type EventSink interface {
	HandleEvent(ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev Event)

func (f EventSinkFunc) HandleEvent(ev Event) { f(ev) }

type TokenCreatedEvent struct {
	Token    common.Address `json:"token"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

type MintedEvent struct {
	Token   common.Address `json:"token"`
	To      common.Address `json:"to"`
	Amount  *uint256.Int   `json:"amount"`
	Balance *uint256.Int   `json:"balance"`
}

type TransferredEvent struct {
	Token  common.Address `json:"token"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type PairCreatedEvent struct {
	TokenA common.Address `json:"tokenA"`
	TokenB common.Address `json:"tokenB"`
}

type DepositedEvent struct {
	PositionID uint64         `json:"positionId"`
	Owner      common.Address `json:"owner"`
	From       common.Address `json:"from"`
	To         common.Address `json:"to"`
	Interval   uint32         `json:"interval"`
	Rate       *uint256.Int   `json:"rate"`
	StartSwap  uint32         `json:"startSwap"`
	LastSwap   uint32         `json:"lastSwap"`
}

type WithdrewEvent struct {
	PositionID uint64         `json:"positionId"`
	Recipient  common.Address `json:"recipient"`
	Token      common.Address `json:"token"`
	Amount     *uint256.Int   `json:"amount"`
	// LastWithdrawSwap is the position's new withdraw checkpoint
	LastWithdrawSwap uint32 `json:"lastWithdrawSwap"`
}

type WithdrewManyEvent struct {
	PositionIDs []uint64       `json:"positionIds"`
	Recipient   common.Address `json:"recipient"`
	AmountA     *uint256.Int   `json:"amountA"`
	AmountB     *uint256.Int   `json:"amountB"`
}

type ModifiedEvent struct {
	PositionID            uint64       `json:"positionId"`
	Rate                  *uint256.Int `json:"rate"`
	StartSwap             uint32       `json:"startSwap"`
	LastSwap              uint32       `json:"lastSwap"`
	SwappedBeforeModified *uint256.Int `json:"swappedBeforeModified"`
	// Pulled is what the owner paid in, Returned what they got back
	Pulled   *uint256.Int `json:"pulled"`
	Returned *uint256.Int `json:"returned"`
}

type TerminatedEvent struct {
	PositionID uint64         `json:"positionId"`
	Recipient  common.Address `json:"recipient"`
	Swapped    *uint256.Int   `json:"swapped"`
	Unswapped  *uint256.Int   `json:"unswapped"`
}

type SwappedEvent struct {
	Swapper common.Address `json:"swapper"`
	Callee  common.Address `json:"callee,omitempty"`
	Info    *SwapInfo      `json:"info"`
	// Surplus is what the swapper returned above the required amount; it is
	// sent to the fee recipient.
	Surplus *uint256.Int `json:"surplus"`
	// PerformedSwaps is the new swap count of each executed interval
	PerformedSwaps map[uint32]uint32 `json:"performedSwaps"`
	BalanceA       *uint256.Int      `json:"balanceA"`
	BalanceB       *uint256.Int      `json:"balanceB"`
}

type LoanedEvent struct {
	Borrower common.Address `json:"borrower"`
	Callee   common.Address `json:"callee"`
	AmountA  *uint256.Int   `json:"amountA"`
	AmountB  *uint256.Int   `json:"amountB"`
	FeeA     *uint256.Int   `json:"feeA"`
	FeeB     *uint256.Int   `json:"feeB"`
}

type GovernorEvent struct {
	Governor        common.Address `json:"governor"`
	PendingGovernor common.Address `json:"pendingGovernor"`
}

type FeeRecipientSetEvent struct {
	Recipient common.Address `json:"recipient"`
}

type FeeSetEvent struct {
	Fee uint32 `json:"fee"`
}

type IntervalsEvent struct {
	Intervals []uint32 `json:"intervals"`
	// Allowed is the full allowed set after the change
	Allowed []uint32 `json:"allowed"`
}

type PauseEvent struct {
	By common.Address `json:"by"`
}

// WatchEvent is emitted by the swapper when its watch list changes.
type WatchEvent struct {
	Pairs []common.Address `json:"pairs"`
}
