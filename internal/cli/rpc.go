package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// RPC client flags
	rpcURL     string
	rpcTimeout time.Duration
)

// rpcCmd calls a method of a running daemon. The remaining arguments are
// the method name and an optional JSON object of parameters.
var rpcCmd = &cobra.Command{
	Use:   "rpc <method> [params-json]",
	Short: "Call a JSON-RPC method of a running daemon",
	Long: `Call a JSON-RPC method of a running daemon and print the result.

The daemon address comes from --url, or from [server] address in the
configuration. Governor methods require the caller's IP to be listed in
[server] admin.

Examples:
  dcad rpc server_info
  dcad rpc pair '{"pair":"0x..."}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params json.RawMessage
		if len(args) > 1 {
			params = json.RawMessage(args[1])
			if !json.Valid(params) {
				return fmt.Errorf("params are not valid JSON")
			}
		}
		return callAndPrint(cmd, args[0], params)
	},
}

func init() {
	rootCmd.AddCommand(rpcCmd)

	rpcCmd.PersistentFlags().StringVar(&rpcURL, "url", "", "daemon URL (default from [server] address)")
	rpcCmd.PersistentFlags().DurationVar(&rpcTimeout, "timeout", 30*time.Second, "request timeout")
}

// rpcClient posts JSON-RPC requests to a daemon.
type rpcClient struct {
	url  string
	http *http.Client
}

// RPCError is an error reported by the daemon.
type RPCError struct {
	Code    int    `json:"error_code"`
	Name    string `json:"error"`
	Message string `json:"error_message"`
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", e.Name, e.Code)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

func newRPCClient() (*rpcClient, error) {
	url := rpcURL
	if url == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("no --url given: %w", err)
		}
		url = cfg.Server.Address
	}
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	return &rpcClient{url: url, http: &http.Client{Timeout: rpcTimeout}}, nil
}

// Call invokes method and returns the result object.
func (c *rpcClient) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	req := struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params,omitempty"`
	}{Method: method}
	if len(params) > 0 {
		req.Params = []json.RawMessage{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var status struct {
		Status string `json:"status"`
		RPCError
	}
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if status.Status == "error" {
		return nil, &status.RPCError
	}
	return envelope.Result, nil
}

// callAndPrint calls method and pretty prints the result.
func callAndPrint(cmd *cobra.Command, method string, params any) error {
	var raw json.RawMessage
	switch p := params.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal parameters: %w", err)
		}
		raw = b
	}

	client, err := newRPCClient()
	if err != nil {
		return err
	}
	result, err := client.Call(background(cmd), method, raw)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(result)
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(cmd.OutOrStdout())
	return err
}

// =============================================================================
// SHORTHAND COMMANDS
// =============================================================================

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint(cmd, "ping", nil)
	},
}

var serverInfoCmd = &cobra.Command{
	Use:   "server_info",
	Short: "Get daemon information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint(cmd, "server_info", nil)
	},
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List every pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint(cmd, "pairs", nil)
	},
}

var pairCmd = &cobra.Command{
	Use:   "pair <pair>",
	Short: "Get the state of a pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint(cmd, "pair", map[string]interface{}{"pair": args[0]})
	},
}

var positionCmd = &cobra.Command{
	Use:   "position <pair> <id>",
	Short: "Get a position with its swapped and unswapped amounts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid position id %q", args[1])
		}
		return callAndPrint(cmd, "position", map[string]interface{}{
			"pair":        args[0],
			"position_id": id,
		})
	},
}

var nextSwapInfoCmd = &cobra.Command{
	Use:   "next_swap_info <pair>",
	Short: "Show what swapping a pair now would do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint(cmd, "next_swap_info", map[string]interface{}{"pair": args[0]})
	},
}

var (
	eventsFrom  uint64
	eventsType  string
	eventsPair  string
	eventsLimit int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Read journaled events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{"from_sequence": eventsFrom}
		if eventsType != "" {
			params["type"] = eventsType
		}
		if eventsPair != "" {
			params["pair"] = eventsPair
		}
		if eventsLimit > 0 {
			params["limit"] = eventsLimit
		}
		return callAndPrint(cmd, "events", params)
	},
}

var swapPairs []string

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap watched pairs that are due, or the given pairs",
	Long: `Ask the daemon's swapper to execute swaps.

Without --pair every watched pair that is due is swapped. With --pair only
the named pairs are tried, each priced by the swapper's quote provider.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(swapPairs) == 0 {
			return callAndPrint(cmd, "swap_due_pairs", nil)
		}
		pairs := make([]map[string]string, 0, len(swapPairs))
		for _, p := range swapPairs {
			pairs = append(pairs, map[string]string{"pair": p})
		}
		return callAndPrint(cmd, "execute_swaps", map[string]interface{}{"pairs": pairs})
	},
}

func init() {
	eventsCmd.Flags().Uint64Var(&eventsFrom, "from", 0, "first sequence to return")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "only events of this type")
	eventsCmd.Flags().StringVar(&eventsPair, "pair", "", "only events of this pair")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 0, "maximum number of events")

	swapCmd.Flags().StringSliceVar(&swapPairs, "pair", nil, "pair to swap (repeatable)")

	rpcCmd.AddCommand(
		pingCmd,
		serverInfoCmd,
		pairsCmd,
		pairCmd,
		positionCmd,
		nextSwapInfoCmd,
		eventsCmd,
		swapCmd,
	)
}
