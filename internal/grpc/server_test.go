package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/LeJamon/goDCA/internal/core/tx"
	jtx "github.com/LeJamon/goDCA/internal/testing"
	"github.com/LeJamon/goDCA/internal/testing/position"
)

// startServer serves env over an in-memory listener and returns a client.
func startServer(t *testing.T, env *jtx.TestEnv) (*Server, *QueryClient) {
	t.Helper()
	srv, err := NewServer(DefaultServerConfig(), env.Engine())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		assert.NoError(t, <-errc)
	})
	return srv, NewQueryClient(conn)
}

func TestServerConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		assert.NoError(t, DefaultServerConfig().Validate())
	})

	t.Run("Invalid", func(t *testing.T) {
		for name, mutate := range map[string]func(*ServerConfig){
			"empty address": func(c *ServerConfig) { c.Address = "" },
			"no port":       func(c *ServerConfig) { c.Address = "127.0.0.1" },
			"no host":       func(c *ServerConfig) { c.Address = ":50051" },
			"recv size":     func(c *ServerConfig) { c.MaxRecvMsgSize = 0 },
			"send size":     func(c *ServerConfig) { c.MaxSendMsgSize = -1 },
		} {
			cfg := DefaultServerConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate(), name)
		}
	})

	t.Run("EngineRequired", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		assert.Error(t, err)
	})
}

func TestQueries(t *testing.T) {
	env := jtx.NewTestEnv(t)
	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))
	p := env.Pair(pair)
	env.SetPrice(p.TokenB, p.TokenA, "1")
	alice := env.Account("alice")
	env.Mint(p.TokenA, alice, jtx.Ether(100))

	result := env.Submit(alice, position.Deposit(pair, p.TokenA).Rate(jtx.Ether(10)).Swaps(3).Build())
	jtx.RequireTxSuccess(t, result)
	id := position.DepositID(result)

	srv, client := startServer(t, env)
	ctx := t.Context()

	t.Run("Running", func(t *testing.T) {
		assert.True(t, srv.IsRunning())
		assert.NotEmpty(t, srv.Address())
	})

	t.Run("Pair", func(t *testing.T) {
		got, err := client.Pair(ctx, &PairRequest{Pair: pair})
		require.NoError(t, err)
		assert.Equal(t, pair, got.Address)
		assert.Equal(t, p.TokenA, got.TokenA)
	})

	t.Run("Pairs", func(t *testing.T) {
		got, err := client.Pairs(ctx)
		require.NoError(t, err)
		require.Len(t, got.Pairs, 1)
		assert.Equal(t, pair, got.Pairs[0].Address)
	})

	t.Run("Position", func(t *testing.T) {
		got, err := client.Position(ctx, &PositionRequest{Pair: pair, PositionID: id})
		require.NoError(t, err)
		assert.Equal(t, alice.Address, got.Owner)
		jtx.RequireAmount(t, jtx.Ether(10), got.Rate)
		jtx.RequireAmount(t, jtx.Ether(30), got.Unswapped)
	})

	t.Run("NextSwapInfo", func(t *testing.T) {
		got, err := client.NextSwapInfo(ctx, &PairRequest{Pair: pair})
		require.NoError(t, err)
		assert.Equal(t, pair, got.Pair)
		want, err := env.Engine().NextSwapInfo(ctx, pair)
		require.NoError(t, err)
		jtx.RequireAmount(t, want.AmountToSwapA, got.AmountToSwapA)
	})

	t.Run("SecondsUntilNextSwap", func(t *testing.T) {
		got, err := client.SecondsUntilNextSwap(ctx, &PairRequest{Pair: pair})
		require.NoError(t, err)
		assert.Equal(t, env.SecondsUntilNextSwap(pair), got.Seconds)
		assert.False(t, got.NeverDue)
	})

	t.Run("Parameters", func(t *testing.T) {
		got, err := client.Parameters(ctx)
		require.NoError(t, err)
		assert.Equal(t, env.Governor().Address, got.Governance.Governor)
		assert.EqualValues(t, tx.DefaultSwapFee, got.SwapFee)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := client.Pair(ctx, &PairRequest{Pair: common.HexToAddress("0xdead")})
		assert.Equal(t, codes.NotFound, status.Code(err))

		_, err = client.Position(ctx, &PositionRequest{Pair: pair, PositionID: 999})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("MissingPair", func(t *testing.T) {
		_, err := client.NextSwapInfo(ctx, &PairRequest{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, codes.NotFound, status.Code(statusFromError(tx.Errorf(tx.PositionNotFound, "x"))))
	assert.Equal(t, codes.InvalidArgument, status.Code(statusFromError(tx.Errorf(tx.ZeroAddress, "x"))))
	assert.Equal(t, codes.FailedPrecondition, status.Code(statusFromError(tx.Errorf(tx.Paused, "x"))))
	assert.Equal(t, codes.Internal, status.Code(statusFromError(tx.Errorf(tx.Internal, "x"))))
}
