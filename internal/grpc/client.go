package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

// QueryClient calls the query service.
type QueryClient struct {
	cc grpc.ClientConnInterface
}

// NewQueryClient returns a client over cc.
func NewQueryClient(cc grpc.ClientConnInterface) *QueryClient {
	return &QueryClient{cc: cc}
}

func (c *QueryClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *QueryClient) NextSwapInfo(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*tx.SwapInfo, error) {
	out := new(tx.SwapInfo)
	if err := c.invoke(ctx, "NextSwapInfo", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QueryClient) SecondsUntilNextSwap(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*SecondsUntilNextSwapResponse, error) {
	out := new(SecondsUntilNextSwapResponse)
	if err := c.invoke(ctx, "SecondsUntilNextSwap", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QueryClient) Position(ctx context.Context, in *PositionRequest, opts ...grpc.CallOption) (*tx.PositionInfo, error) {
	out := new(tx.PositionInfo)
	if err := c.invoke(ctx, "Position", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QueryClient) Pair(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (*entry.Pair, error) {
	out := new(entry.Pair)
	if err := c.invoke(ctx, "Pair", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QueryClient) Pairs(ctx context.Context, opts ...grpc.CallOption) (*PairsResponse, error) {
	out := new(PairsResponse)
	if err := c.invoke(ctx, "Pairs", &Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QueryClient) Parameters(ctx context.Context, opts ...grpc.CallOption) (*entry.Parameters, error) {
	out := new(entry.Parameters)
	if err := c.invoke(ctx, "Parameters", &Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
