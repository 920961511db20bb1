package tx

import (
	"errors"
	"fmt"
)

// Class groups result codes by the stage at which a transaction was
// rejected.
type Class int

const (
	// ClassSuccess is the class of an applied transaction
	ClassSuccess Class = iota
	// ClassValidation rejects malformed input before any state is read
	ClassValidation
	// ClassState rejects after read-only checks against current state
	ClassState
	// ClassInvariant rejects after a callback boundary; every transfer made
	// before the callback is rolled back
	ClassInvariant
	// ClassReentrancy rejects at lock acquisition
	ClassReentrancy
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "Success"
	case ClassValidation:
		return "ValidationError"
	case ClassState:
		return "StateError"
	case ClassInvariant:
		return "InvariantViolation"
	case ClassReentrancy:
		return "ReentrancyError"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Result represents a transaction result code
type Result int

// Result codes, numbered by class
const (
	Success Result = 0

	// Validation (100-199)
	InvalidAmount   Result = 100
	ZeroAmount      Result = 101
	ZeroRate        Result = 102
	ZeroAddress     Result = 103
	InvalidToken    Result = 104
	InvalidInterval Result = 105
	InvalidFee      Result = 106
	ZeroLoan        Result = 107
	InvalidPair     Result = 108
	Malformed       Result = 109

	// State (200-299)
	PairSwapNotNeeded     Result = 200
	PositionCompleted     Result = 201
	NoSwappedAmount       Result = 202
	PositionNotFound      Result = 203
	Unauthorized          Result = 204
	NoPendingGovernor     Result = 205
	InsufficientLiquidity Result = 206
	InsufficientBalance   Result = 207
	Paused                Result = 208
	PairExists            Result = 209
	PairNotFound          Result = 210
	TokenExists           Result = 211
	UnknownCallee         Result = 212
	PoolExists            Result = 213
	PoolNotFound          Result = 214
	InsufficientOutput    Result = 215

	// Invariant (300-399)
	LiquidityNotReturned Result = 300
	LoanNotRepaid        Result = 301
	InvalidReward        Result = 302
	Internal             Result = 399

	// Reentrancy (400)
	ReentrancyDetected Result = 400
)

var resultNames = map[Result]string{
	Success:               "Success",
	InvalidAmount:         "InvalidAmount",
	ZeroAmount:            "ZeroAmount",
	ZeroRate:              "ZeroRate",
	ZeroAddress:           "ZeroAddress",
	InvalidToken:          "InvalidToken",
	InvalidInterval:       "InvalidInterval",
	InvalidFee:            "InvalidFee",
	ZeroLoan:              "ZeroLoan",
	InvalidPair:           "InvalidPair",
	Malformed:             "Malformed",
	PairSwapNotNeeded:     "PairSwapNotNeeded",
	PositionCompleted:     "PositionCompleted",
	NoSwappedAmount:       "NoSwappedAmount",
	PositionNotFound:      "PositionNotFound",
	Unauthorized:          "Unauthorized",
	NoPendingGovernor:     "NoPendingGovernor",
	InsufficientLiquidity: "InsufficientLiquidity",
	InsufficientBalance:   "InsufficientBalance",
	Paused:                "Paused",
	PairExists:            "PairExists",
	PairNotFound:          "PairNotFound",
	TokenExists:           "TokenExists",
	UnknownCallee:         "UnknownCallee",
	PoolExists:            "PoolExists",
	PoolNotFound:          "PoolNotFound",
	InsufficientOutput:    "InsufficientOutput",
	LiquidityNotReturned:  "LiquidityNotReturned",
	LoanNotRepaid:         "LoanNotRepaid",
	InvalidReward:         "InvalidReward",
	Internal:              "Internal",
	ReentrancyDetected:    "ReentrancyDetected",
}

// String returns the name of the result code
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Class returns the class of the result code
func (r Result) Class() Class {
	switch {
	case r == Success:
		return ClassSuccess
	case r < 200:
		return ClassValidation
	case r < 300:
		return ClassState
	case r < 400:
		return ClassInvariant
	default:
		return ClassReentrancy
	}
}

// IsSuccess returns true if the transaction was applied
func (r Result) IsSuccess() bool {
	return r == Success
}

// Error is a rejected transaction. errors.Is matches any Error with the same
// code, so callers compare against the sentinel values below.
type Error struct {
	Code Result
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Class returns the class of the error's code
func (e *Error) Class() Class { return e.Code.Class() }

// Errorf returns an Error with the given code and formatted message.
func Errorf(code Result, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with the given code wrapping err.
func Wrap(code Result, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrInvalidAmount         = &Error{Code: InvalidAmount}
	ErrZeroAmount            = &Error{Code: ZeroAmount}
	ErrZeroRate              = &Error{Code: ZeroRate}
	ErrZeroAddress           = &Error{Code: ZeroAddress}
	ErrInvalidToken          = &Error{Code: InvalidToken}
	ErrInvalidInterval       = &Error{Code: InvalidInterval}
	ErrInvalidFee            = &Error{Code: InvalidFee}
	ErrZeroLoan              = &Error{Code: ZeroLoan}
	ErrInvalidPair           = &Error{Code: InvalidPair}
	ErrMalformed             = &Error{Code: Malformed}
	ErrPairSwapNotNeeded     = &Error{Code: PairSwapNotNeeded}
	ErrPositionCompleted     = &Error{Code: PositionCompleted}
	ErrNoSwappedAmount       = &Error{Code: NoSwappedAmount}
	ErrPositionNotFound      = &Error{Code: PositionNotFound}
	ErrUnauthorized          = &Error{Code: Unauthorized}
	ErrNoPendingGovernor     = &Error{Code: NoPendingGovernor}
	ErrInsufficientLiquidity = &Error{Code: InsufficientLiquidity}
	ErrInsufficientBalance   = &Error{Code: InsufficientBalance}
	ErrPaused                = &Error{Code: Paused}
	ErrPairExists            = &Error{Code: PairExists}
	ErrPairNotFound          = &Error{Code: PairNotFound}
	ErrTokenExists           = &Error{Code: TokenExists}
	ErrUnknownCallee         = &Error{Code: UnknownCallee}
	ErrPoolExists            = &Error{Code: PoolExists}
	ErrPoolNotFound          = &Error{Code: PoolNotFound}
	ErrInsufficientOutput    = &Error{Code: InsufficientOutput}
	ErrLiquidityNotReturned  = &Error{Code: LiquidityNotReturned}
	ErrLoanNotRepaid         = &Error{Code: LoanNotRepaid}
	ErrInvalidReward         = &Error{Code: InvalidReward}
	ErrInternal              = &Error{Code: Internal}
	ErrReentrancyDetected    = &Error{Code: ReentrancyDetected}
)

// CodeOf returns the result code carried by err. Errors that are not an
// Error report Internal; nil reports Success.
func CodeOf(err error) Result {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// ClassOf returns the class of err.
func ClassOf(err error) Class {
	return CodeOf(err).Class()
}
