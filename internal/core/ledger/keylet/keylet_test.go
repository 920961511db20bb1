package keylet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func TestPairAddressIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairAddress(weth, usdc), PairAddress(usdc, weth))
	assert.NotEqual(t, PairAddress(weth, usdc), PoolAddress(weth, usdc))
	assert.NotEqual(t, common.Address{}, PairAddress(weth, usdc))
}

func TestSortTokens(t *testing.T) {
	a, b := SortTokens(weth, usdc)
	assert.Equal(t, usdc, a)
	assert.Equal(t, weth, b)
}

func TestKeyletsAreDistinct(t *testing.T) {
	pair := PairAddress(weth, usdc)
	keys := []Keylet{
		Parameters(),
		Token(weth),
		Token(usdc),
		Balance(weth, pair),
		Balance(usdc, pair),
		Pair(pair),
		Schedule(pair, 3600),
		Schedule(pair, 86400),
		Position(pair, 1),
		Position(pair, 2),
		Pool(PoolAddress(weth, usdc)),
	}
	seen := make(map[common.Hash]bool)
	for _, k := range keys {
		assert.False(t, seen[k.Key], "duplicate key for %s", k.Type)
		seen[k.Key] = true
	}
	assert.Equal(t, entry.TypeSchedule, Schedule(pair, 60).Type)
}
