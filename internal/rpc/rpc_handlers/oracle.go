package rpc_handlers

import (
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/LeJamon/goDCA/internal/core/oracle"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
)

// oracleError reports unknown tokens and missing prices as invalid params.
func oracleError(err error) *rpc_types.RpcError {
	switch {
	case errors.Is(err, oracle.ErrUnknownToken),
		errors.Is(err, oracle.ErrUnsupportedPair),
		errors.Is(err, oracle.ErrNoObservations),
		errors.Is(err, oracle.ErrInvalidPrice):
		return rpc_types.RpcErrorInvalidParams(err.Error())
	default:
		return rpc_types.RpcErrorInternal(err.Error())
	}
}

// SetPriceMethod handles the set_price RPC method
type SetPriceMethod struct{ adminMethod }

func (m *SetPriceMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if ctx.Services.Feed == nil {
		return nil, rpc_types.RpcErrorNotEnabled("price feed")
	}
	var p struct {
		Base  common.Address `json:"base"`
		Quote common.Address `json:"quote"`
		Price string         `json:"price"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, rpc_types.RpcErrorInvalidParams("Invalid field 'price': " + err.Error())
	}
	if err := ctx.Services.Feed.Update(p.Base, p.Quote, price); err != nil {
		return nil, oracleError(err)
	}
	return map[string]interface{}{
		"base":  p.Base,
		"quote": p.Quote,
		"price": price.String(),
	}, nil
}

// OracleQuoteMethod handles the oracle_quote RPC method
type OracleQuoteMethod struct{ guestMethod }

func (m *OracleQuoteMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	if ctx.Services.Feed == nil {
		return nil, rpc_types.RpcErrorNotEnabled("price feed")
	}
	var p struct {
		TokenIn  common.Address `json:"token_in"`
		AmountIn *uint256.Int   `json:"amount_in"`
		TokenOut common.Address `json:"token_out"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.AmountIn == nil {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'amount_in'")
	}
	out, err := ctx.Services.Feed.Quote(ctx.Context, p.TokenIn, p.AmountIn, p.TokenOut)
	if err != nil {
		return nil, oracleError(err)
	}
	return map[string]interface{}{"amount_out": out.Dec()}, nil
}
