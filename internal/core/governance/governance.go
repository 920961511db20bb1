// Package governance implements the two-phase governor handoff used to
// guard protocol parameters and the swapper watch list.
//
// The handoff is a three state machine:
//
//	{governor=G, none pending} --SetPendingGovernor(X)--> {governor=G, pending=X}
//	{governor=G, pending=X}    --AcceptPendingGovernor--> {governor=X, none pending}
package governance

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrZeroAddress         = errors.New("governable: zero address")
	ErrOnlyGovernor        = errors.New("governable: only governor")
	ErrOnlyPendingGovernor = errors.New("governable: only pending governor")
	ErrNoPendingGovernor   = errors.New("governable: no pending governor")
)

// Authority is the capability check other components consume.
type Authority interface {
	OnlyGovernor(caller common.Address) error
}

// State is the persisted handoff state.
type State struct {
	Governor        common.Address `codec:"governor" json:"governor"`
	PendingGovernor common.Address `codec:"pending" json:"pendingGovernor"`
}

// NewState returns the state of a freshly deployed governable component.
func NewState(governor common.Address) (State, error) {
	if governor == (common.Address{}) {
		return State{}, ErrZeroAddress
	}
	return State{Governor: governor}, nil
}

func (s *State) IsGovernor(a common.Address) bool {
	return a == s.Governor
}

func (s *State) IsPendingGovernor(a common.Address) bool {
	return s.PendingGovernor != (common.Address{}) && a == s.PendingGovernor
}

func (s *State) OnlyGovernor(caller common.Address) error {
	if !s.IsGovernor(caller) {
		return ErrOnlyGovernor
	}
	return nil
}

func (s *State) OnlyPendingGovernor(caller common.Address) error {
	if s.PendingGovernor == (common.Address{}) {
		return ErrNoPendingGovernor
	}
	if !s.IsPendingGovernor(caller) {
		return ErrOnlyPendingGovernor
	}
	return nil
}

// SetPendingGovernor starts a handoff to pending. Only the governor may call
// it; a later call replaces an earlier pending governor.
func (s *State) SetPendingGovernor(caller, pending common.Address) error {
	if err := s.OnlyGovernor(caller); err != nil {
		return err
	}
	if pending == (common.Address{}) {
		return ErrZeroAddress
	}
	s.PendingGovernor = pending
	return nil
}

// AcceptPendingGovernor completes the handoff. Only the pending governor may
// call it.
func (s *State) AcceptPendingGovernor(caller common.Address) error {
	if err := s.OnlyPendingGovernor(caller); err != nil {
		return err
	}
	s.Governor = s.PendingGovernor
	s.PendingGovernor = common.Address{}
	return nil
}

// Governor is a State safe for concurrent use, for components that keep
// their governance in memory rather than in the ledger.
type Governor struct {
	mu    sync.RWMutex
	state State
}

// New creates a Governor controlled by governor.
func New(governor common.Address) (*Governor, error) {
	st, err := NewState(governor)
	if err != nil {
		return nil, err
	}
	return &Governor{state: st}, nil
}

// Restore creates a Governor from persisted state.
func Restore(st State) (*Governor, error) {
	if st.Governor == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return &Governor{state: st}, nil
}

func (g *Governor) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Governor) IsGovernor(a common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.IsGovernor(a)
}

func (g *Governor) IsPendingGovernor(a common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.IsPendingGovernor(a)
}

func (g *Governor) OnlyGovernor(caller common.Address) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.OnlyGovernor(caller)
}

func (g *Governor) OnlyPendingGovernor(caller common.Address) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.OnlyPendingGovernor(caller)
}

func (g *Governor) SetPendingGovernor(caller, pending common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.SetPendingGovernor(caller, pending)
}

func (g *Governor) AcceptPendingGovernor(caller common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.AcceptPendingGovernor(caller)
}
