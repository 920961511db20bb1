package rpc_handlers

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
)

type pairParam struct {
	Pair common.Address `json:"pair"`
}

func parsePair(params json.RawMessage) (common.Address, *rpc_types.RpcError) {
	var p pairParam
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return common.Address{}, rpcErr
	}
	if p.Pair == (common.Address{}) {
		return common.Address{}, rpc_types.RpcErrorInvalidParams("Missing field 'pair'")
	}
	return p.Pair, nil
}

// PositionMethod handles the position RPC method
type PositionMethod struct{ guestMethod }

func (m *PositionMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var p struct {
		Pair       common.Address `json:"pair"`
		PositionID uint64         `json:"position_id"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	info, err := ctx.Services.Engine.Position(p.Pair, p.PositionID)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"position": info}, nil
}

// NextSwapInfoMethod handles the next_swap_info RPC method
type NextSwapInfoMethod struct{ guestMethod }

func (m *NextSwapInfoMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	pair, rpcErr := parsePair(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	info, err := ctx.Services.Engine.NextSwapInfo(ctx.Context, pair)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"swap_info": info}, nil
}

// SecondsUntilNextSwapMethod handles the seconds_until_next_swap RPC method
type SecondsUntilNextSwapMethod struct{ guestMethod }

func (m *SecondsUntilNextSwapMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	pair, rpcErr := parsePair(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	secs, err := ctx.Services.Engine.SecondsUntilNextSwap(pair)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{
		"seconds":   secs,
		"never_due": secs == tx.NeverDue,
	}, nil
}

// PairMethod handles the pair RPC method
type PairMethod struct{ guestMethod }

func (m *PairMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	pair, rpcErr := parsePair(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	p, err := ctx.Services.Engine.Pair(pair)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"pair": p}, nil
}

// PairsMethod handles the pairs RPC method
type PairsMethod struct{ guestMethod }

func (m *PairsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	pairs, err := ctx.Services.Engine.Pairs()
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"pairs": pairs}, nil
}

// TokenMethod handles the token RPC method
type TokenMethod struct{ guestMethod }

func (m *TokenMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var p struct {
		Token common.Address `json:"token"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	t, err := ctx.Services.Engine.Token(p.Token)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"token": t}, nil
}

// BalanceMethod handles the balance RPC method
type BalanceMethod struct{ guestMethod }

func (m *BalanceMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var p struct {
		Token  common.Address `json:"token"`
		Holder common.Address `json:"holder"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Holder == (common.Address{}) {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'holder'")
	}
	bal, err := ctx.Services.Engine.Balance(p.Token, p.Holder)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{
		"token":   p.Token,
		"holder":  p.Holder,
		"balance": bal.Dec(),
	}, nil
}

// ParametersMethod handles the parameters RPC method
type ParametersMethod struct{ guestMethod }

func (m *ParametersMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	p, err := ctx.Services.Engine.Parameters()
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"parameters": p}, nil
}
