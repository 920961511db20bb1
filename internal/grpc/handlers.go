package grpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

// ServiceName is the full name of the query service.
const ServiceName = "dca.v1.Query"

// PairRequest names a pair.
type PairRequest struct {
	Pair common.Address `json:"pair"`
}

// PositionRequest names a position of a pair.
type PositionRequest struct {
	Pair       common.Address `json:"pair"`
	PositionID uint64         `json:"positionId"`
}

// Empty is a request without fields.
type Empty struct{}

// SecondsUntilNextSwapResponse reports when a pair is next due. NeverDue is
// set when no interval of the pair has demand.
type SecondsUntilNextSwapResponse struct {
	Seconds  int64 `json:"seconds"`
	NeverDue bool  `json:"neverDue"`
}

// PairsResponse lists every pair.
type PairsResponse struct {
	Pairs []*entry.Pair `json:"pairs"`
}

// QueryServer is the server API of the query service.
type QueryServer interface {
	NextSwapInfo(context.Context, *PairRequest) (*tx.SwapInfo, error)
	SecondsUntilNextSwap(context.Context, *PairRequest) (*SecondsUntilNextSwapResponse, error)
	Position(context.Context, *PositionRequest) (*tx.PositionInfo, error)
	Pair(context.Context, *PairRequest) (*entry.Pair, error)
	Pairs(context.Context, *Empty) (*PairsResponse, error)
	Parameters(context.Context, *Empty) (*entry.Parameters, error)
}

// NextSwapInfo returns what swapping a pair would do now.
func (s *Server) NextSwapInfo(ctx context.Context, req *PairRequest) (*tx.SwapInfo, error) {
	if req.Pair == (common.Address{}) {
		return nil, status.Error(codes.InvalidArgument, "pair is required")
	}
	info, err := s.engine.NextSwapInfo(ctx, req.Pair)
	if err != nil {
		return nil, statusFromError(err)
	}
	return info, nil
}

// SecondsUntilNextSwap returns how long until a pair can be swapped.
func (s *Server) SecondsUntilNextSwap(ctx context.Context, req *PairRequest) (*SecondsUntilNextSwapResponse, error) {
	if req.Pair == (common.Address{}) {
		return nil, status.Error(codes.InvalidArgument, "pair is required")
	}
	secs, err := s.engine.SecondsUntilNextSwap(req.Pair)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &SecondsUntilNextSwapResponse{Seconds: secs, NeverDue: secs == tx.NeverDue}, nil
}

// Position returns a position with its claimable amounts.
func (s *Server) Position(ctx context.Context, req *PositionRequest) (*tx.PositionInfo, error) {
	info, err := s.engine.Position(req.Pair, req.PositionID)
	if err != nil {
		return nil, statusFromError(err)
	}
	return info, nil
}

// Pair returns the state of a pair.
func (s *Server) Pair(ctx context.Context, req *PairRequest) (*entry.Pair, error) {
	p, err := s.engine.Pair(req.Pair)
	if err != nil {
		return nil, statusFromError(err)
	}
	return p, nil
}

// Pairs returns every pair.
func (s *Server) Pairs(ctx context.Context, _ *Empty) (*PairsResponse, error) {
	pairs, err := s.engine.Pairs()
	if err != nil {
		return nil, statusFromError(err)
	}
	return &PairsResponse{Pairs: pairs}, nil
}

// Parameters returns the protocol parameters.
func (s *Server) Parameters(ctx context.Context, _ *Empty) (*entry.Parameters, error) {
	p, err := s.engine.Parameters()
	if err != nil {
		return nil, statusFromError(err)
	}
	return p, nil
}

// statusFromError maps a ledger error to a gRPC status. The result name is
// kept in the message.
func statusFromError(err error) error {
	code := tx.CodeOf(err)
	switch {
	case code == tx.PairNotFound, code == tx.PositionNotFound, code == tx.PoolNotFound:
		return status.Error(codes.NotFound, err.Error())
	case code.Class() == tx.ClassValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case code == tx.Internal:
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
}

func unaryHandler[Req any, Resp any](name string, call func(QueryServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(QueryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(QueryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// QueryServiceDesc describes the query service.
var QueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("NextSwapInfo", QueryServer.NextSwapInfo),
		unaryHandler("SecondsUntilNextSwap", QueryServer.SecondsUntilNextSwap),
		unaryHandler("Position", QueryServer.Position),
		unaryHandler("Pair", QueryServer.Pair),
		unaryHandler("Pairs", QueryServer.Pairs),
		unaryHandler("Parameters", QueryServer.Parameters),
	},
	Streams: []grpc.StreamDesc{},
}

var _ QueryServer = (*Server)(nil)
