package entry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/schedule"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	pairID = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestEncodeDecodePosition(t *testing.T) {
	pos := &Position{
		ID:                    7,
		Pair:                  pairID,
		Owner:                 common.HexToAddress("0x1234"),
		From:                  tokenA,
		To:                    tokenB,
		Interval:              3600,
		Rate:                  uint256.NewInt(50),
		StartSwap:             3,
		LastSwap:              15,
		LastWithdrawSwap:      2,
		SwappedBeforeModified: uint256.NewInt(0),
	}

	data, err := Encode(pos)
	require.NoError(t, err)

	typ, err := TypeOf(data)
	require.NoError(t, err)
	assert.Equal(t, TypePosition, typ)

	var got Position
	require.NoError(t, Decode(data, &got))
	assert.Equal(t, pos.Owner, got.Owner)
	assert.Equal(t, uint64(50), got.Rate.Uint64())
	assert.Equal(t, uint32(15), got.LastSwap)
}

func TestDecodeTypeMismatch(t *testing.T) {
	data, err := Encode(&Token{Address: tokenA, Symbol: "WETH", Decimals: 18})
	require.NoError(t, err)

	var bal Balance
	err = Decode(data, &bal)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	err = Decode([]byte{0x01}, &bal)
	assert.ErrorIs(t, err, ErrShortEntry)
}

func TestEncodeValidates(t *testing.T) {
	_, err := Encode(&Pair{Address: pairID, TokenA: tokenB, TokenB: tokenA,
		BalanceA: uint256.NewInt(0), BalanceB: uint256.NewInt(0)})
	assert.ErrorIs(t, err, ErrUnsortedTokens)

	_, err = Encode(&Balance{Token: tokenA})
	assert.ErrorIs(t, err, ErrNilAmount)
}

func TestScheduleStateSurvivesEncoding(t *testing.T) {
	acc, err := schedule.New(86400)
	require.NoError(t, err)
	require.NoError(t, acc.RegisterRate(schedule.SideA, 1, 10, uint256.NewInt(50)))
	require.NoError(t, acc.RegisterRate(schedule.SideB, 1, 4, uint256.NewInt(70)))
	acc.CommitSwap(uint256.NewInt(994), uint256.NewInt(1006), 86400*3)

	data, err := Encode(&Schedule{Pair: pairID, State: acc.State()})
	require.NoError(t, err)

	var got Schedule
	require.NoError(t, Decode(data, &got))
	restored, err := schedule.FromState(got.State)
	require.NoError(t, err)
	assert.Equal(t, acc.Query(schedule.SideA, 5).Uint64(), restored.Query(schedule.SideA, 5).Uint64())
	assert.Equal(t, acc.Query(schedule.SideB, 4).Uint64(), restored.Query(schedule.SideB, 4).Uint64())
	assert.Equal(t, acc.Ratio(schedule.SideB, 1).Uint64(), restored.Ratio(schedule.SideB, 1).Uint64())
	assert.Equal(t, acc.NextSwapAvailable(), restored.NextSwapAvailable())
}

func TestPairAddInterval(t *testing.T) {
	p := &Pair{}
	assert.True(t, p.AddInterval(3600))
	assert.True(t, p.AddInterval(60))
	assert.False(t, p.AddInterval(3600))
	assert.Equal(t, []uint32{60, 3600}, p.Intervals)
}

func TestSwapsRemaining(t *testing.T) {
	p := &Position{StartSwap: 3, LastSwap: 7}
	assert.Equal(t, uint32(5), p.SwapsRemaining(2))
	assert.Equal(t, uint32(2), p.SwapsRemaining(5))
	assert.Equal(t, uint32(0), p.SwapsRemaining(7))
	assert.Equal(t, uint32(0), p.SwapsRemaining(9))
}
