package rpc_handlers

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
	"github.com/LeJamon/goDCA/internal/storage/journal"
	"github.com/LeJamon/goDCA/internal/swapper"
)

// PingMethod handles the ping RPC method
type PingMethod struct{ guestMethod }

func (m *PingMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	return map[string]interface{}{}, nil
}

// ServerInfoMethod handles the server_info RPC method
type ServerInfoMethod struct{ guestMethod }

func (m *ServerInfoMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	s := ctx.Services
	info := map[string]interface{}{
		"version":  s.Version,
		"sequence": s.Engine.Sequence(),
		"time":     s.Engine.Now(),
		"swapper":  s.Dispatcher != nil,
		"market":   s.Market != nil,
		"journal":  s.Journal != nil,
		"oracle":   s.Feed != nil,
		"admin":    ctx.IsAdmin(),
	}
	if p, err := s.Engine.Parameters(); err == nil {
		info["paused"] = p.Paused
		info["governor"] = p.Governance.Governor
	}
	if s.Dispatcher != nil {
		info["watched_pairs"] = len(s.Dispatcher.Watched())
	}
	return map[string]interface{}{"info": info}, nil
}

// EventsMethod handles the events RPC method, reading the journal.
type EventsMethod struct{ guestMethod }

const maxEventsLimit = 1000

func (m *EventsMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if ctx.Services.Journal == nil {
		return nil, rpc_types.RpcErrorNotEnabled("journal")
	}
	var p struct {
		FromSequence uint64         `json:"from_sequence"`
		Type         tx.EventType   `json:"type"`
		Pair         common.Address `json:"pair"`
		Limit        int            `json:"limit"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Limit <= 0 || p.Limit > maxEventsLimit {
		p.Limit = maxEventsLimit
	}
	records, err := ctx.Services.Journal.Events(ctx.Context, journal.Filter{
		FromSequence: p.FromSequence,
		Type:         p.Type,
		Pair:         p.Pair,
		Limit:        p.Limit,
	})
	if err != nil {
		return nil, rpc_types.RpcErrorInternal(err.Error())
	}
	if records == nil {
		records = []journal.Record{}
	}
	return map[string]interface{}{
		"events": records,
		"limit":  p.Limit,
	}, nil
}

// PoolMethod handles the pool RPC method
type PoolMethod struct{ guestMethod }

func (m *PoolMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if ctx.Services.Market == nil {
		return nil, rpc_types.RpcErrorNotEnabled("market")
	}
	var p struct {
		TokenA common.Address `json:"token_a"`
		TokenB common.Address `json:"token_b"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	pool, err := ctx.Services.Market.Pool(p.TokenA, p.TokenB)
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"pool": pool}, nil
}

// MarketQuoteMethod handles the market_quote RPC method
type MarketQuoteMethod struct{ guestMethod }

func (m *MarketQuoteMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if ctx.Services.Market == nil {
		return nil, rpc_types.RpcErrorNotEnabled("market")
	}
	var p struct {
		SellToken  common.Address `json:"sell_token"`
		BuyToken   common.Address `json:"buy_token"`
		SellAmount *uint256.Int   `json:"sell_amount"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	q, err := ctx.Services.Market.Quote(ctx.Context, swapper.QuoteRequest{
		SellToken:  p.SellToken,
		BuyToken:   p.BuyToken,
		SellAmount: p.SellAmount,
	})
	if err != nil {
		return nil, rpc_types.RpcErrorFromTx(err)
	}
	return map[string]interface{}{"quote": q}, nil
}
