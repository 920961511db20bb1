package ledgerstore_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/storage/database"
	"github.com/LeJamon/goDCA/internal/storage/database/bbolt"
	"github.com/LeJamon/goDCA/internal/storage/database/pebble"
	"github.com/LeJamon/goDCA/internal/storage/ledgerstore"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/position"
)

func openStore(t *testing.T, m database.Manager, cfg ledgerstore.Config) *ledgerstore.Store {
	t.Helper()
	db, err := m.OpenDB("ledger")
	require.NoError(t, err)
	s, err := ledgerstore.New(db, cfg, nil)
	require.NoError(t, err)
	return s
}

func tokenEntry(symbol string) (keylet.Keylet, []byte) {
	addr := jtx.TokenAddress(symbol)
	data, err := entry.Encode(&entry.Token{Address: addr, Symbol: symbol, Decimals: 18})
	if err != nil {
		panic(err)
	}
	return keylet.Token(addr), data
}

func TestStoreView(t *testing.T) {
	m := bbolt.NewManager(t.TempDir())
	t.Cleanup(func() { _ = m.Close() })
	s := openStore(t, m, ledgerstore.DefaultConfig())
	k, data := tokenEntry("AAA")

	t.Run("missing entry reads nil", func(t *testing.T) {
		got, err := s.Read(k)
		require.NoError(t, err)
		assert.Nil(t, got)
		ok, err := s.Exists(k)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("insert then read", func(t *testing.T) {
		require.NoError(t, s.Insert(k, data))
		got, err := s.Read(k)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.ErrorIs(t, s.Insert(k, data), ledger.ErrEntryExists)
	})

	t.Run("update and erase", func(t *testing.T) {
		missing, other := tokenEntry("BBB")
		assert.ErrorIs(t, s.Update(missing, other), ledger.ErrEntryNotFound)
		assert.ErrorIs(t, s.Erase(missing), ledger.ErrEntryNotFound)

		require.NoError(t, s.Update(k, other))
		got, err := s.Read(k)
		require.NoError(t, err)
		assert.Equal(t, other, got)

		require.NoError(t, s.Erase(k))
		got, err = s.Read(k)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("commit and iterate", func(t *testing.T) {
		var changes []ledger.Change
		for _, sym := range []string{"CCC", "DDD", "EEE"} {
			ck, cdata := tokenEntry(sym)
			changes = append(changes, ledger.Change{Keylet: ck, Data: cdata})
		}
		require.NoError(t, s.Commit(changes))
		require.NoError(t, s.Commit([]ledger.Change{{Keylet: changes[1].Keylet}}))

		var keys []common.Hash
		require.NoError(t, s.ForEach(func(key common.Hash, data []byte) bool {
			typ, err := entry.TypeOf(data)
			require.NoError(t, err)
			assert.Equal(t, entry.TypeToken, typ)
			keys = append(keys, key)
			return true
		}))
		assert.ElementsMatch(t, []common.Hash{changes[0].Keylet.Key, changes[2].Keylet.Key}, keys)
	})

	t.Run("returned bytes are private", func(t *testing.T) {
		ck, _ := tokenEntry("CCC")
		got, err := s.Read(ck)
		require.NoError(t, err)
		got[0] ^= 0xff
		again, err := s.Read(ck)
		require.NoError(t, err)
		assert.NotEqual(t, got[0], again[0])
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	for _, compressor := range []string{"lz4", "none"} {
		t.Run(compressor, func(t *testing.T) {
			dir := t.TempDir()
			cfg := ledgerstore.Config{Compression: compressor, CacheSize: 16}

			m := pebble.NewManager(dir)
			store := openStore(t, m, cfg)
			env := jtx.NewTestEnvWithConfig(t, func() jtx.EnvConfig {
				c := jtx.DefaultEnvConfig()
				c.View = store
				return c
			}())
			pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
			p := env.Pair(pair)
			alice := env.Account("alice")
			env.Mint(p.TokenA, alice, jtx.Ether(100))
			id := position.DepositID(env.Submit(alice, position.Deposit(pair, p.TokenA).Rate(jtx.Ether(10)).Swaps(5).Build()))
			require.NoError(t, m.Close())

			reopened := pebble.NewManager(dir)
			t.Cleanup(func() { _ = reopened.Close() })
			s := openStore(t, reopened, ledgerstore.Config{Compression: "lz4"})
			assert.Zero(t, s.CacheLen())

			var ps entry.Position
			found, err := ledger.Get(s, keylet.Position(pair, id), &ps)
			require.NoError(t, err)
			require.True(t, found)
			jtx.RequireAmount(t, jtx.Ether(10), ps.Rate)
			assert.Equal(t, alice.Address, ps.Owner)

			var stored entry.Pair
			found, err = ledger.Get(s, keylet.Pair(pair), &stored)
			require.NoError(t, err)
			require.True(t, found)
			jtx.RequireAmount(t, jtx.Ether(50), stored.BalanceA)
		})
	}
}

func TestUnknownCompressor(t *testing.T) {
	m := bbolt.NewManager(t.TempDir())
	t.Cleanup(func() { _ = m.Close() })
	db, err := m.OpenDB("ledger")
	require.NoError(t, err)
	_, err = ledgerstore.New(db, ledgerstore.Config{Compression: "snappy"}, nil)
	assert.Error(t, err)
}
