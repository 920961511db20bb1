package rpc_handlers

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
)

// guestMethod and adminMethod set the role a method requires.
type guestMethod struct{}

func (guestMethod) RequiredRole() rpc_types.Role { return rpc_types.RoleGuest }

type adminMethod struct{}

func (adminMethod) RequiredRole() rpc_types.Role { return rpc_types.RoleAdmin }

// MethodName returns the RPC method name of a transaction type, such as
// withdraw_swapped_many for WithdrawSwappedMany.
func MethodName(t tx.Type) string {
	var b strings.Builder
	for i, r := range t.String() {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// submit applies t as account and renders the result. A rejected
// transaction is a successful call; the outcome is in engine_result.
func submit(ctx *rpc_types.RpcContext, account common.Address, t tx.Transaction) (interface{}, *rpc_types.RpcError) {
	res, err := ctx.Services.Engine.Submit(ctx.Context, account, t)
	if res == nil {
		return nil, rpc_types.RpcErrorInternal(err.Error())
	}
	return formatResult(res), nil
}

func formatResult(res *tx.ApplyResult) map[string]interface{} {
	out := map[string]interface{}{
		"transaction_type":   res.Type.String(),
		"engine_result":      res.Result.String(),
		"engine_result_code": int(res.Result),
		"applied":            res.Applied,
	}
	if res.Message != "" {
		out["engine_result_message"] = res.Message
	}
	if res.Applied {
		out["sequence"] = res.Sequence
		out["events"] = res.Events
	}
	if res.Output != nil {
		out["output"] = res.Output
	}
	return out
}

type accountParam struct {
	Account common.Address `json:"account"`
}

// TransactionMethod submits one transaction type. Params are the
// transaction fields plus the submitting account.
type TransactionMethod struct {
	adminMethod
	Type tx.Type
}

func (m *TransactionMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var p accountParam
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Account == (common.Address{}) {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'account'")
	}
	t, err := tx.NewFromType(m.Type)
	if err != nil {
		return nil, rpc_types.RpcErrorInternal(err.Error())
	}
	if rpcErr := rpc_types.ParseParams(params, t); rpcErr != nil {
		return nil, rpcErr
	}
	return submit(ctx, p.Account, t)
}

// SubmitMethod handles the submit RPC method. tx_json names its type in
// TransactionType.
type SubmitMethod struct{ adminMethod }

func (m *SubmitMethod) Handle(ctx *rpc_types.RpcContext, params json.RawMessage) (interface{}, *rpc_types.RpcError) {
	var p struct {
		Account common.Address  `json:"account"`
		TxJSON  json.RawMessage `json:"tx_json"`
	}
	if rpcErr := rpc_types.ParseParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Account == (common.Address{}) {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'account'")
	}
	if len(p.TxJSON) == 0 {
		return nil, rpc_types.RpcErrorInvalidParams("Missing field 'tx_json'")
	}
	t, err := tx.FromJSON(p.TxJSON)
	if err != nil {
		return nil, rpc_types.RpcErrorInvalidParams("Invalid tx_json: " + err.Error())
	}
	return submit(ctx, p.Account, t)
}
