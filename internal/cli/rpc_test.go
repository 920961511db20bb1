package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/rpc"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
	jtx "github.com/LeJamon/goDCA/internal/testing"
)

func startRPC(t *testing.T) (*jtx.TestEnv, common.Address, string) {
	t.Helper()
	env := jtx.NewTestEnv(t)
	pair := env.CreatePair(env.CreateToken("AAA", 18), env.CreateToken("BBB", 18))

	server := rpc.NewServer(&rpc_types.ServiceContainer{
		Engine:  env.Engine(),
		Feed:    env.Oracle(),
		Version: "test",
	}, 5*time.Second)
	ts := httptest.NewServer(rpc.NewHandler(rpc.HandlerConfig{RPC: server}))
	t.Cleanup(ts.Close)
	return env, pair, ts.URL
}

func TestRPCClient(t *testing.T) {
	_, pair, url := startRPC(t)
	client := &rpcClient{url: url, http: &http.Client{Timeout: 5 * time.Second}}

	t.Run("Result", func(t *testing.T) {
		raw, err := client.Call(t.Context(), "pair", json.RawMessage(`{"pair":"`+pair.Hex()+`"}`))
		require.NoError(t, err)
		var out struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, "success", out.Status)
	})

	t.Run("Error", func(t *testing.T) {
		_, err := client.Call(t.Context(), "pair", json.RawMessage(`{"pair":"0x00000000000000000000000000000000000000ff"}`))
		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, "PairNotFound", rpcErr.Name)
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		_, err := client.Call(t.Context(), "no_such_method", nil)
		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, "unknownCmd", rpcErr.Name)
	})
}

func TestRPCCommand(t *testing.T) {
	_, pair, url := startRPC(t)

	run := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"rpc", "--url", url}, args...))
		t.Cleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetArgs(nil)
		})
		err := rootCmd.Execute()
		return out.String(), err
	}

	t.Run("Generic", func(t *testing.T) {
		out, err := run(t, "seconds_until_next_swap", `{"pair":"`+pair.Hex()+`"}`)
		require.NoError(t, err)
		assert.Contains(t, out, `"status": "success"`)
		assert.Contains(t, out, `"never_due": true`)
	})

	t.Run("Shorthand", func(t *testing.T) {
		out, err := run(t, "pairs")
		require.NoError(t, err)
		assert.Contains(t, out, strings.ToLower(pair.Hex()))
	})

	t.Run("InvalidParams", func(t *testing.T) {
		_, err := run(t, "seconds_until_next_swap", `{not json`)
		assert.Error(t, err)
	})

	t.Run("PositionID", func(t *testing.T) {
		_, err := run(t, "position", pair.Hex(), "abc")
		assert.ErrorContains(t, err, "invalid position id")
	})
}
