package journal_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/storage/journal"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/position"
)

func openSQLite(t *testing.T) (*journal.Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	j, err := journal.Open(t.Context(), journal.SQLiteConfig(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     journal.Config
		driver  string
		wantErr error
	}{
		{name: "disabled", cfg: journal.NewConfig(), driver: journal.DriverNone},
		{name: "sqlite alias", cfg: func() journal.Config {
			c := journal.SQLiteConfig("x.db")
			c.Driver = "sqlite3"
			return c
		}(), driver: journal.DriverSQLite},
		{name: "missing dsn", cfg: func() journal.Config {
			c := journal.NewConfig()
			c.Driver = journal.DriverPostgres
			return c
		}(), wantErr: journal.ErrMissingDSN},
		{name: "bad timeout", cfg: func() journal.Config {
			c := journal.SQLiteConfig("x.db")
			c.Timeout = 0
			return c
		}(), wantErr: journal.ErrInvalidTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, cfg.Driver)
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		cfg := journal.NewConfig()
		cfg.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})
}

func TestJournal(t *testing.T) {
	j, _ := openSQLite(t)
	pair := common.HexToAddress("0x0a")

	t.Run("empty journal", func(t *testing.T) {
		seq, err := j.LastSequence(t.Context())
		require.NoError(t, err)
		assert.Zero(t, seq)
		records, err := j.Events(t.Context(), journal.Filter{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("append and filter", func(t *testing.T) {
		require.NoError(t, j.Append(t.Context(),
			tx.Event{Type: tx.EventPaused, Sequence: 3, Time: 10, Data: &tx.PauseEvent{By: pair}},
			tx.Event{Type: tx.EventSwapFeeSet, Sequence: 4, Time: 11, Data: &tx.FeeSetEvent{Fee: 5000}},
			tx.Event{Type: tx.EventTerminated, Sequence: 7, Time: 12, Pair: pair, Data: map[string]int{"id": 1}},
		))

		seq, err := j.LastSequence(t.Context())
		require.NoError(t, err)
		assert.Equal(t, uint64(7), seq)

		all, err := j.Events(t.Context(), journal.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, tx.EventPaused, all[0].Type)

		var fee tx.FeeSetEvent
		require.NoError(t, json.Unmarshal(all[1].Data, &fee))
		assert.Equal(t, uint32(5000), fee.Fee)

		byPair, err := j.Events(t.Context(), journal.Filter{Pair: pair})
		require.NoError(t, err)
		require.Len(t, byPair, 1)
		assert.Equal(t, uint64(7), byPair[0].Sequence)

		from, err := j.Events(t.Context(), journal.Filter{FromSequence: 4, Limit: 1})
		require.NoError(t, err)
		require.Len(t, from, 1)
		assert.Equal(t, tx.EventSwapFeeSet, from[0].Type)

		byType, err := j.Events(t.Context(), journal.Filter{Type: tx.EventTerminated})
		require.NoError(t, err)
		assert.Len(t, byType, 1)
	})

	t.Run("unencodable payload writes nothing", func(t *testing.T) {
		before, err := j.Events(t.Context(), journal.Filter{})
		require.NoError(t, err)
		err = j.Append(t.Context(),
			tx.Event{Type: tx.EventPaused, Sequence: 8},
			tx.Event{Type: tx.EventPaused, Sequence: 9, Data: make(chan int)},
		)
		require.Error(t, err)
		after, err := j.Events(t.Context(), journal.Filter{})
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestJournalFollowsEngine(t *testing.T) {
	j, path := openSQLite(t)
	env := jtx.NewTestEnv(t)
	env.Engine().Subscribe(j)

	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
	p := env.Pair(pair)
	alice := env.Account("alice")
	env.Mint(p.TokenA, alice, jtx.Ether(100))
	jtx.RequireTxSuccess(t, env.Submit(alice, position.Deposit(pair, p.TokenA).Rate(jtx.Ether(10)).Swaps(5).Build()))

	seq, err := j.LastSequence(t.Context())
	require.NoError(t, err)
	assert.Equal(t, env.Engine().Sequence(), seq)

	deposits, err := j.Events(t.Context(), journal.Filter{Type: tx.EventDeposited})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, pair, deposits[0].Pair)

	t.Run("reopen", func(t *testing.T) {
		require.NoError(t, j.Close())
		_, err := j.LastSequence(t.Context())
		require.ErrorIs(t, err, journal.ErrClosed)

		reopened, err := journal.Open(t.Context(), journal.SQLiteConfig(path), nil)
		require.NoError(t, err)
		defer reopened.Close()
		again, err := reopened.LastSequence(t.Context())
		require.NoError(t, err)
		assert.Equal(t, seq, again)
	})
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DCAD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DCAD_TEST_POSTGRES_DSN not set")
	}
	cfg := journal.NewConfig()
	cfg.Driver = journal.DriverPostgres
	cfg.DSN = dsn
	j, err := journal.Open(t.Context(), cfg, nil)
	require.NoError(t, err)
	defer j.Close()

	before, err := j.LastSequence(t.Context())
	require.NoError(t, err)
	require.NoError(t, j.Append(t.Context(), tx.Event{Type: tx.EventUnpaused, Sequence: before + 1}))
	after, err := j.LastSequence(t.Context())
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}
