package rpc_handlers

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
	"github.com/LeJamon/goDCA/internal/swapper"
)

func dispatcherOf(ctx *rpc_types.RpcContext) (*swapper.Dispatcher, *rpc_types.RpcError) {
	if ctx.Services.Dispatcher == nil {
		return nil, rpc_types.RpcErrorNotEnabled("swapper")
	}
	return ctx.Services.Dispatcher, nil
}

func formatOutcomes(outcomes []swapper.PairOutcome) map[string]interface{} {
	swapped := 0
	for _, o := range outcomes {
		if o.Status == swapper.StatusSwapped {
			swapped++
		}
	}
	if outcomes == nil {
		outcomes = []swapper.PairOutcome{}
	}
	return map[string]interface{}{
		"outcomes": outcomes,
		"swapped":  swapped,
	}
}

// SwapDuePairsMethod handles the swap_due_pairs RPC method. It runs one
// keeper pass over the watched pairs.
type SwapDuePairsMethod struct{ adminMethod }

func (m *SwapDuePairsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	d, rpcErr := dispatcherOf(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return formatOutcomes(d.SwapDuePairs(ctx.Context)), nil
}

// ExecuteSwapsMethod handles the execute_swaps RPC method
type ExecuteSwapsMethod struct{ adminMethod }

func (m *ExecuteSwapsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	d, rpcErr := dispatcherOf(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p struct {
		Pairs []swapper.PairQuote `json:"pairs"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if len(p.Pairs) == 0 {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'pairs'")
	}
	return formatOutcomes(d.ExecuteSwaps(ctx.Context, p.Pairs)), nil
}

// WatchPairsMethod handles watch_pairs, and unwatch_pairs when Stop is set.
// Account must be the swapper governor.
type WatchPairsMethod struct {
	adminMethod
	Stop bool
}

func (m *WatchPairsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	d, rpcErr := dispatcherOf(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p struct {
		Account common.Address   `json:"account"`
		Pairs   []common.Address `json:"pairs"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	var err error
	if m.Stop {
		err = d.StopWatching(ctx.Context, p.Account, p.Pairs)
	} else {
		err = d.StartWatching(ctx.Context, p.Account, p.Pairs)
	}
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"watched": d.Watched()}, nil
}

// WatchedPairsMethod handles the watched_pairs RPC method
type WatchedPairsMethod struct{ guestMethod }

func (m *WatchedPairsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	d, rpcErr := dispatcherOf(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]interface{}{
		"watched":    d.Watched(),
		"governance": d.Governance(),
	}, nil
}

// SwapperGovernorMethod handles swapper_set_pending_governor, and
// swapper_accept_pending_governor when Accept is set.
type SwapperGovernorMethod struct {
	adminMethod
	Accept bool
}

func (m *SwapperGovernorMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	d, rpcErr := dispatcherOf(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p struct {
		Account         common.Address `json:"account"`
		PendingGovernor common.Address `json:"pending_governor"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	var err error
	if m.Accept {
		err = d.AcceptPendingGovernor(p.Account)
	} else {
		err = d.SetPendingGovernor(p.Account, p.PendingGovernor)
	}
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"governance": d.Governance()}, nil
}
