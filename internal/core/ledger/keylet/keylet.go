package keylet

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
)

// Space identifiers for keylet generation
const (
	spaceParameters uint16 = 'e' // Global parameters (singleton)
	spaceToken      uint16 = 't' // Token metadata
	spaceBalance    uint16 = 'b' // Token balance
	spacePair       uint16 = 'p' // Pair root
	spaceSchedule   uint16 = 's' // Pair swap schedule
	spacePosition   uint16 = 'o' // Position
	spacePool       uint16 = 'm' // Market pool
	spacePairAddr   uint16 = 'P' // Pair address derivation
	spacePoolAddr   uint16 = 'M' // Pool address derivation
)

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  common.Hash
}

// indexHash computes a keylet key by hashing the space and provided data.
func indexHash(space uint16, data ...[]byte) common.Hash {
	spaceBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(spaceBytes, space)

	inputs := make([][]byte, 0, len(data)+1)
	inputs = append(inputs, spaceBytes)
	inputs = append(inputs, data...)

	return crypto.Keccak256Hash(inputs...)
}

// Parameters returns the keylet for the singleton parameters entry.
func Parameters() Keylet {
	return Keylet{
		Type: entry.TypeParameters,
		Key:  indexHash(spaceParameters),
	}
}

// Token returns the keylet for a token's metadata.
func Token(token common.Address) Keylet {
	return Keylet{
		Type: entry.TypeToken,
		Key:  indexHash(spaceToken, token[:]),
	}
}

// Balance returns the keylet for holder's balance of token.
func Balance(token, holder common.Address) Keylet {
	return Keylet{
		Type: entry.TypeBalance,
		Key:  indexHash(spaceBalance, token[:], holder[:]),
	}
}

// Pair returns the keylet for a pair root.
func Pair(pair common.Address) Keylet {
	return Keylet{
		Type: entry.TypePair,
		Key:  indexHash(spacePair, pair[:]),
	}
}

// Schedule returns the keylet for the swap schedule of one interval.
func Schedule(pair common.Address, interval uint32) Keylet {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, interval)
	return Keylet{
		Type: entry.TypeSchedule,
		Key:  indexHash(spaceSchedule, pair[:], b),
	}
}

// Position returns the keylet for a position of a pair.
func Position(pair common.Address, id uint64) Keylet {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return Keylet{
		Type: entry.TypePosition,
		Key:  indexHash(spacePosition, pair[:], b),
	}
}

// Pool returns the keylet for a market pool.
func Pool(pool common.Address) Keylet {
	return Keylet{
		Type: entry.TypePool,
		Key:  indexHash(spacePool, pool[:]),
	}
}

// SortTokens orders two token addresses the way pairs store them.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

// PairAddress derives the address of the pair trading a and b. The result
// does not depend on argument order.
func PairAddress(a, b common.Address) common.Address {
	a, b = SortTokens(a, b)
	return common.BytesToAddress(indexHash(spacePairAddr, a[:], b[:]).Bytes()[12:])
}

// PoolAddress derives the address of the market pool trading a and b.
func PoolAddress(a, b common.Address) common.Address {
	a, b = SortTokens(a, b)
	return common.BytesToAddress(indexHash(spacePoolAddr, a[:], b[:]).Bytes()[12:])
}
