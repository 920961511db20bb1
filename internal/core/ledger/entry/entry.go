package entry

import (
	"fmt"
)

// Type represents a ledger entry type
type Type uint16

// All known ledger entry types
const (
	// System singletons
	TypeParameters Type = 0x0065 // Global protocol parameters (singleton)

	// Token ledger
	TypeToken   Type = 0x0074 // Token metadata
	TypeBalance Type = 0x0062 // Token balance of one holder

	// DCA
	TypePair     Type = 0x0070 // Pair root
	TypeSchedule Type = 0x0073 // Swap schedule of one interval
	TypePosition Type = 0x006f // User position

	// Simulation market
	TypePool Type = 0x006d // Constant-product pool
)

// String returns the string representation of the Type
func (t Type) String() string {
	switch t {
	case TypeParameters:
		return "Parameters"
	case TypeToken:
		return "Token"
	case TypeBalance:
		return "Balance"
	case TypePair:
		return "Pair"
	case TypeSchedule:
		return "Schedule"
	case TypePosition:
		return "Position"
	case TypePool:
		return "Pool"
	default:
		return fmt.Sprintf("Unknown(%#x)", uint16(t))
	}
}

// Entry defines the interface for all ledger entries
type Entry interface {
	Type() Type
	Validate() error
}
