package rpc_types

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// RpcError represents an RPC error with code and message
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Error codes
const (
	// Universal errors
	RpcUNKNOWN          = -1
	RpcJSON_RPC         = -32600
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	// General purpose errors
	RpcGENERAL           = 1
	RpcMISSING_COMMAND   = 2
	RpcCOMMAND_UNTRUSTED = 3
	RpcTOO_BUSY          = 6

	// Feature errors
	RpcNOT_ENABLED   = 31
	RpcNOT_SUPPORTED = 32

	// Subscription errors
	RpcSTREAM_MALFORMED = 26

	// RpcENGINE is added to a transaction result code when a query fails
	// with a ledger error, so PairNotFound (210) is reported as 1210.
	RpcENGINE = 1000
)

// NewRpcError creates an RpcError
func NewRpcError(code int, errorString, message string) *RpcError {
	return &RpcError{Code: code, ErrorString: errorString, Message: message}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", fmt.Sprintf("Unknown method: %s", method))
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}

func RpcErrorMissingCommand() *RpcError {
	return NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing method field")
}

func RpcErrorCommandUntrusted(method string) *RpcError {
	return NewRpcError(RpcCOMMAND_UNTRUSTED, "commandUntrusted", fmt.Sprintf("Method '%s' requires admin privileges", method))
}

func RpcErrorNotEnabled(feature string) *RpcError {
	return NewRpcError(RpcNOT_ENABLED, "notEnabled", fmt.Sprintf("%s is not enabled on this server", feature))
}

// RpcErrorFromTx converts a ledger error into an RpcError named after its
// result code. Errors that carry no result code are internal.
func RpcErrorFromTx(err error) *RpcError {
	var txErr *tx.Error
	if !errors.As(err, &txErr) || txErr.Code == tx.Internal {
		return RpcErrorInternal(err.Error())
	}
	return NewRpcError(RpcENGINE+int(txErr.Code), txErr.Code.String(), err.Error())
}
